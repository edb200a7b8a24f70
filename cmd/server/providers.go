package main

import (
	"github.com/michalkw/traffic-status-service/internal/aggregate"
	"github.com/michalkw/traffic-status-service/internal/api"
	"github.com/michalkw/traffic-status-service/internal/cache"
	"github.com/michalkw/traffic-status-service/internal/config"
	"github.com/michalkw/traffic-status-service/internal/db"
	"github.com/michalkw/traffic-status-service/internal/forecast"
	"github.com/michalkw/traffic-status-service/internal/ingest"
	"github.com/michalkw/traffic-status-service/internal/mq"
	"github.com/michalkw/traffic-status-service/internal/ratelimit"
	"github.com/michalkw/traffic-status-service/internal/repository"
	"github.com/michalkw/traffic-status-service/internal/validator"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProvideDBPool creates the database pool
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates the report store repository
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideRateLimitStore creates the shared, atomic rate limit store
func ProvideRateLimitStore(pool *db.Pool) ratelimit.Store {
	return ratelimit.NewPostgresStore(pool)
}

// ProvideLimiter creates the rate limiter
func ProvideLimiter(store ratelimit.Store, logger *zap.Logger) *ratelimit.Limiter {
	return ratelimit.NewLimiter(store, logger)
}

// ProvideValidator creates the submission validator
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Streets)
}

// ProvideMQConnection creates the RabbitMQ connection
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the incident event publisher
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.IncidentExchange, cfg.RabbitMQ.IncidentRoutingKey, logger)
}

// ProvideGateway creates the ingestion gateway
func ProvideGateway(
	repo *repository.Repository,
	limiter *ratelimit.Limiter,
	v *validator.Validator,
	publisher *mq.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *ingest.Gateway {
	return ingest.NewGateway(repo, limiter, v, publisher, cfg.Ingest.DuplicateWindow, logger)
}

// ProvideAggregator creates the status aggregator
func ProvideAggregator(repo *repository.Repository) *aggregate.Aggregator {
	return aggregate.NewAggregator(repo)
}

// ProvideForecaster creates the status forecaster
func ProvideForecaster(repo *repository.Repository) *forecast.Forecaster {
	return forecast.NewForecaster(repo)
}

// ProvideCache creates the response cache for the read endpoints
func ProvideCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.Backend == "redis" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		return cache.NewRedis(redis.NewClient(opts)), nil
	}
	return cache.NewMemory(), nil
}

// ProvideHandlers creates the HTTP handler set
func ProvideHandlers(
	gateway *ingest.Gateway,
	aggregator *aggregate.Aggregator,
	forecaster *forecast.Forecaster,
	v *validator.Validator,
	limiter *ratelimit.Limiter,
	c cache.Cache,
	publisher *mq.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *api.Handlers {
	return api.NewHandlers(gateway, aggregator, forecaster, v, limiter, c, publisher, cfg, logger)
}
