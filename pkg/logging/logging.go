// Package logging builds the application logger.
package logging

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"

	"github.com/dealroom/firestore-connector/config"
)

// New builds an ectologger backed by zap, configured from the application
// config. PrettyLogs switches to the human-readable development encoder.
func New(cfg config.Config) (ectologger.Logger, error) {
	var zapCfg zap.Config
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	zl, err := zapCfg.Build(zap.Fields(zap.String("app", cfg.AppName)))
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zl, nil), nil
}
