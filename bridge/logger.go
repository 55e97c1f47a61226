package bridge

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger. It is a no-op logger until SetLogger is called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
// This must be called before any driver is created.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Log is the logger resource systems use. LogPlugin inserts it.
type Log struct {
	*zap.Logger
}

func logFrom(l *Log) *zap.Logger {
	if l == nil || l.Logger == nil {
		return Logger()
	}
	return l.Logger
}
