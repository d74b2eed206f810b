package utils

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerMu sync.Mutex
	logger   *zap.Logger
)

// SetLogger installs the process logger returned by GetLogger. main calls it
// once at startup so components built without an explicit logger share it.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// GetLogger returns the process logger, creating a production logger on
// first use if none was installed.
func GetLogger() *zap.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		l, err := zap.NewProduction()
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
		logger = l
	}
	return logger
}
