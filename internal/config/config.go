package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/serializer"
	"codeberg.org/mutker/amdmetrics/internal/source"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval    = 2
	DefaultMaxAge      = 100 * time.Millisecond
	DefaultLogLevel    = LogLevelWarning
	DefaultTelemetryDB = "/var/lib/amdmetrics/telemetry.db"
	DefaultEnvPrefix   = "AMDMETRICS"
	configName         = "amdmetrics"
	configDir          = "/etc"
)

type Config struct {
	Files         []string
	Path          string
	Interval      int
	MaxAge        time.Duration
	PerCoreDevice string
	Layouts       string
	Format        serializer.Format
	Listen        string
	Telemetry     bool
	TelemetryDB   string
	LogLevel      string
	Debug         bool
	Verbose       bool

	Dump     bool
	FailFast bool
	Watch    bool
}

// flag name to config key
var flagKeys = map[string]string{
	"path":            "path",
	"interval":        "interval",
	"max-age":         "max_age",
	"per-core-device": "per_core_device",
	"layouts":         "layouts",
	"format":          "format",
	"listen":          "listen",
	"telemetry":       "telemetry",
	"telemetry-db":    "telemetry_db",
	"log-level":       "log_level",
	"debug":           "debug",
	"verbose":         "verbose",
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolP("test", "t", false, "Decode and print validated channels (default)")
	fs.BoolP("dump", "d", false, "Print every raw layout field")
	fs.BoolP("fail-fast", "f", false, "Stop at the first file that fails")
	fs.Bool("watch", false, "Print readings every interval until interrupted")

	fs.String("path", source.DefaultPattern, "Glob used to discover gpu_metrics files")
	fs.Int("interval", DefaultInterval, "Interval between updates in seconds")
	fs.Duration("max-age", DefaultMaxAge, "Maximum age of a cached snapshot")
	fs.String("per-core-device", "", "Expose per-core channels as a separate device with this name")
	fs.String("layouts", "", "Vendor layout definitions file (YAML)")
	fs.String("format", string(serializer.FormatTable), "Output format: "+strings.Join(serializer.SupportedFormats(), ", "))
	fs.String("listen", "", "Serve Prometheus metrics on this address")
	fs.Bool("telemetry", false, "Record readings to the telemetry database")
	fs.String("telemetry-db", DefaultTelemetryDB, "Telemetry database path")
	fs.String("log-level", string(DefaultLogLevel), "Log level: debug, info, warning, error")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")

	return fs
}

// Usage returns the flag help text.
func Usage(name string) string {
	return fmt.Sprintf("Usage: %s [flags] [FILE...]\n\n%s", name, newFlagSet(name).FlagUsages())
}

// Load parses args, then reads the config file and environment. Flags
// given on the command line win over both.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{
		configPath: os.Getenv(DefaultEnvPrefix + "_CONFIG"),
		envPrefix:  DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}

	fs := newFlagSet("amdmetrics")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}

	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.WithData(errors.ErrReadConfig, struct {
				Path  string
				Error string
			}{
				Path:  o.configPath,
				Error: err.Error(),
			})
		}
	}

	dump, _ := fs.GetBool("dump")
	failFast, _ := fs.GetBool("fail-fast")
	watch, _ := fs.GetBool("watch")

	cfg := &Config{
		Files:         fs.Args(),
		Path:          v.GetString("path"),
		Interval:      v.GetInt("interval"),
		MaxAge:        v.GetDuration("max_age"),
		PerCoreDevice: v.GetString("per_core_device"),
		Layouts:       v.GetString("layouts"),
		Listen:        v.GetString("listen"),
		Telemetry:     v.GetBool("telemetry"),
		TelemetryDB:   v.GetString("telemetry_db"),
		LogLevel:      strings.ToLower(v.GetString("log_level")),
		Debug:         v.GetBool("debug"),
		Verbose:       v.GetBool("verbose"),
		Dump:          dump,
		FailFast:      failFast,
		Watch:         watch,
	}

	format, err := serializer.ParseFormat(v.GetString("format"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidFormat, err)
	}
	cfg.Format = format

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be checked by their type.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidInterval,
			fmt.Sprintf("interval must be positive, got %d", c.Interval))
	}
	if c.MaxAge <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidMaxAge,
			fmt.Sprintf("max age must be positive, got %s", c.MaxAge))
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithMessage(errors.ErrInvalidLogLevel,
			fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	if c.Dump && (c.Watch || c.Listen != "") {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "dump cannot be combined with watch or listen")
	}
	if c.Telemetry && c.TelemetryDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "telemetry requires a database path")
	}

	return nil
}

// Mode reports what the run does. Watch wins over a bare listen.
func (c *Config) Mode() Mode {
	switch {
	case c.Dump:
		return ModeDump
	case c.Watch:
		return ModeWatch
	case c.Listen != "":
		return ModeExport
	default:
		return ModeTest
	}
}

// Daemon reports whether the run is long-lived.
func (c *Config) Daemon() bool {
	m := c.Mode()
	return m == ModeWatch || m == ModeExport
}
