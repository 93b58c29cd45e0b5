// Package logging builds the service's zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/christofluyten/rinlog/internal/config"
)

// New returns a JSON production logger, or a console logger when
// cfg.Development is set, at cfg.Level (default info).
func New(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}
