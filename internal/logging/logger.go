// Package logging provides categorized structured logging for caprun.
// Each subsystem logs under its own named zap logger so log output can be
// filtered per category. Logging is quiet by default; debug mode enables
// development-style output for every category.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryRegistry   Category = "registry"
	CategoryInvoke     Category = "invoke"
	CategoryCache      Category = "cache"
	CategoryResilience Category = "resilience"
	CategoryTransform  Category = "transform"
	CategoryFacade     Category = "facade"
	CategoryProvider   Category = "provider"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	loggers map[Category]*zap.SugaredLogger
)

func init() {
	// Safe default so packages can log before Init is called.
	root = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Init builds the process-wide logger. When debug is true a development
// config with DebugLevel is used, otherwise a production config at InfoLevel.
func Init(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// SetLogger replaces the root logger. Used by tests and by callers that
// construct their own zap pipeline.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := root.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
