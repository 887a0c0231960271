package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/amdmetrics/internal/device"
)

// Collector records decoded readings.
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Session() string
	Close() error
}

// Repository defines the interface for reading storage
type Repository interface {
	Store(sample *Sample) error
	Close() error
}

// Sample is every reading taken at one instant.
type Sample struct {
	Timestamp time.Time
	Readings  []device.Reading
}
