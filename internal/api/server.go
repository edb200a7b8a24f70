package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/michalkw/traffic-status-service/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewServer creates the HTTP server and binds it to the fx lifecycle
func NewServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, handlers *Handlers) *http.Server {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServicePort),
		Handler:           handlers.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting http server", zap.String("addr", server.Addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return server.Shutdown(ctx)
		},
	})

	return server
}
