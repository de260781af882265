package cache

import (
	"io"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.opentelemetry.io/otel/metric"
)

// DefaultSweepInterval is how often expired and invalid entries are removed
// when no interval is configured.
const DefaultSweepInterval = time.Minute

// Config exposes store configuration options.
type Config struct {
	// SweepInterval sets how often the expiry sweep runs. Zero disables it.
	SweepInterval time.Duration

	// DedupeInFlight coalesces concurrent misses for the same key into a
	// single producer call.
	DedupeInFlight bool

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger

	// MeterProvider receives cache metrics. Nil uses a noop provider.
	MeterProvider metric.MeterProvider

	// Clock overrides time.Now, mostly for tests.
	Clock func() time.Time
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval: DefaultSweepInterval,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SweepInterval, validation.Min(time.Duration(0))),
	)
}

// Resolve returns a copy of c with a discard Logger and time.Now filled in
// where they are unset.
func (c Config) Resolve() Config {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}
