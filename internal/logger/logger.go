package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	instance *zap.SugaredLogger
	initErr  error
	once     sync.Once
)

type Config struct {
	Development bool
}

// New builds the process-wide logger on the first call and memoizes both
// results, so a failed first init keeps reporting its error to later callers.
func New(cfg Config) (*zap.SugaredLogger, error) {
	once.Do(func() {
		var l *zap.Logger
		if cfg.Development {
			l, initErr = zap.NewDevelopment()
		} else {
			l, initErr = zap.NewProduction()
		}
		if initErr != nil {
			return
		}
		instance = l.Sugar()
	})
	return instance, initErr
}
