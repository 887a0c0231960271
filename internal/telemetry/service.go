// Package telemetry records decoded readings in a sqlite history.
package telemetry

import (
	"context"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"github.com/google/uuid"
)

type service struct {
	repo    Repository
	cfg     Config
	session string
}

// noopCollector is used when recording is disabled.
type noopCollector struct{}

// NewService opens the history database, or returns a no-op collector
// when recording is disabled.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if log == nil {
		log = logger.Nop()
	}
	log = log.With("telemetry")

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Telemetry disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	session := uuid.NewString()
	repo, err := NewRepository(cfg, session, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create telemetry repository")
		return nil, err
	}

	return &service{
		repo:    repo,
		cfg:     cfg,
		session: session,
	}, nil
}

func (s *service) Record(ctx context.Context, sample *Sample) error {
	errFactory := errors.New()

	if sample == nil {
		return errFactory.New(ErrInvalidSample)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(sample); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Session() string {
	return s.session
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func (*noopCollector) Record(context.Context, *Sample) error {
	return nil
}

func (*noopCollector) Session() string {
	return ""
}

func (*noopCollector) Close() error {
	return nil
}
