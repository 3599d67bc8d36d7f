package logger_test

import (
	"os"

	"github.com/wonny/krxscan/pkg/config"
	"github.com/wonny/krxscan/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)
	log.Info("scan started")
	log.Warnf("retry attempt %d of %d", 2, 3)
}

// Example_scoped shows per-run and per-stock scoping
func Example_scoped() {
	log := logger.NewWithWriter(os.Stderr, "debug", "development")

	runLog := log.WithRunID("b2c1f0de")
	runLog.WithStock("005930").Debug("insufficient data")
}
