package fiscal

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rezonia/fiscal-engine/internal/config"
	"github.com/rezonia/fiscal-engine/internal/engine"
	"github.com/rezonia/fiscal-engine/internal/export"
	"github.com/rezonia/fiscal-engine/internal/lifecycle"
	"github.com/rezonia/fiscal-engine/internal/store"
	"github.com/rezonia/fiscal-engine/internal/store/memory"
)

type (
	// Engine is the assembled fiscal engine
	Engine = engine.Engine
	// Option configures an Engine
	Option = engine.Option
	// ExportResult is one encoded document
	ExportResult = engine.ExportResult
	// Config is the engine configuration
	Config = config.Config
	// Store is the transactional document store an engine runs on
	Store = store.Store
)

// WithClock replaces the system clock, mostly for tests and imports
func WithClock(c Clock) Option {
	return engine.WithClock(c)
}

// FixedClock returns a clock that always answers t
func FixedClock(t time.Time) Clock {
	return lifecycle.FixedClock(t)
}

// LoadConfig reads the configuration from the environment and .env
func LoadConfig() (*Config, error) {
	return config.Load()
}

// NewMemoryStore creates a store that keeps everything in process memory
func NewMemoryStore() Store {
	return memory.New()
}

// NewEngine assembles an engine over st. A nil logger uses the logrus
// standard logger.
func NewEngine(cfg *Config, st Store, logger *logrus.Logger, opts ...Option) *Engine {
	return engine.New(cfg, st, logger, opts...)
}

// Open connects the PostgreSQL store and Redis cache described by cfg and
// assembles an engine over them
func Open(ctx context.Context, cfg *Config, logger *logrus.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return engine.Open(ctx, cfg, logger, opts...)
}

// ParseFormat maps a format name (faia, facturx, peppol) to a Format
func ParseFormat(s string) (Format, error) {
	return export.ParseFormat(s)
}
