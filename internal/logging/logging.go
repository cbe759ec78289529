package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop()
)

// Init builds the process logger: JSON lines to stdout and, when LOG_PATH is
// set, to that file as well. Must be called after config.Load().
func Init() error {
	l, err := New(config.Cfg.LogLevel, config.Cfg.LogPath)
	if err != nil {
		return err
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	zap.ReplaceGlobals(l)
	return nil
}

// New returns a production zap logger at the given level. An empty path logs
// to stdout only.
func New(level, path string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, path)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// L returns the process logger. Before Init it is a no-op logger.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}
