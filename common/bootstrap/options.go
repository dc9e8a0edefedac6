package bootstrap

import (
	"github.com/distrodissect/dissector/common/config"
	"github.com/distrodissect/dissector/common/db"
	"github.com/distrodissect/dissector/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipDB       bool
	skipRedis    bool
	customLogger *logger.Logger
	customConfig *config.Config
	dbInitHook   func(*db.DB) error
}

// WithoutDB skips database initialization
func WithoutDB() Option {
	return func(o *options) {
		o.skipDB = true
	}
}

// WithoutRedis skips redis initialization
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithDBInitHook runs a custom function after DB initialization.
// Used for applying the schema on startup.
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{}
}
