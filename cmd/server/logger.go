package main

import (
	"github.com/michalkw/traffic-status-service/internal/config"
	"github.com/michalkw/traffic-status-service/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
