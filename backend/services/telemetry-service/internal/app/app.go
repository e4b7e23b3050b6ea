package app

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"chargelens/backend/libs/db"
	libredis "chargelens/backend/libs/redis"
	"chargelens/backend/services/telemetry-service/internal/config"
	httpserver "chargelens/backend/services/telemetry-service/internal/http"
	"chargelens/backend/services/telemetry-service/internal/http/handlers"
	redisstore "chargelens/backend/services/telemetry-service/internal/redis"
	"chargelens/backend/services/telemetry-service/internal/repository"
	"chargelens/backend/services/telemetry-service/internal/repository/memory"
	"chargelens/backend/services/telemetry-service/internal/service"
	"chargelens/backend/services/telemetry-service/internal/ws"
)

// App wires telemetry service dependencies.
type App struct {
	server     *httpserver.Server
	subscriber *redisstore.Subscriber
	db         *sql.DB
	redis      *goredis.Client
	logger     *zap.Logger
}

type stores struct {
	vehicleHistory repository.VehicleHistoryRepository
	meterHistory   repository.MeterHistoryRepository
	statuses       repository.CurrentStatusStore
	mappings       repository.MappingRepository
}

// New constructs application components.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}
	hub := ws.NewHub(logger)
	checks := map[string]handlers.HealthCheck{}

	var st stores
	if cfg.Store.Backend == config.BackendMemory {
		mem := memory.NewStore()
		st = stores{mem.VehicleHistory(), mem.MeterHistory(), mem, mem}
		logger.Warn("using in-memory store; telemetry is lost on restart")
	} else {
		sqlDB, err := db.NewPostgresDB(cfg.Database.DSN, db.PoolOptions{MaxOpenConns: cfg.Database.MaxOpenConns})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.db = sqlDB
		if cfg.Database.MigrateOnStart {
			if err := db.Migrate(ctx, sqlDB, repository.Migrations...); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		checks["postgres"] = sqlDB.PingContext
		st = stores{
			vehicleHistory: repository.NewVehicleHistoryRepo(sqlDB),
			meterHistory:   repository.NewMeterHistoryRepo(sqlDB),
			statuses:       repository.NewCurrentStatusRepo(sqlDB),
			mappings:       repository.NewMappingRepo(sqlDB),
		}
	}

	// With Redis the hub is fed by the channel subscription so every replica sees every upsert.
	var publisher service.StatusPublisher = hub
	if cfg.Store.Backend == config.BackendRedis {
		client, err := libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		st.statuses = redisstore.NewStatusStore(client)
		a.subscriber = redisstore.NewSubscriber(client, hub, logger)
		publisher = nil
	}

	ingest := service.NewIngestionService(st.vehicleHistory, st.meterHistory, st.statuses, publisher, logger)
	registry := service.NewMappingRegistry(st.mappings, logger)
	analytics := service.NewAnalyticsService(st.vehicleHistory, st.meterHistory, st.statuses, registry, service.PerformanceOptions{
		Lookback:            cfg.Analytics.Lookback,
		MatchTolerance:      cfg.Analytics.Tolerance,
		EfficiencyThreshold: cfg.Analytics.Threshold,
	}, logger)

	var limiter *rate.Limiter
	if cfg.Ingest.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Ingest.RateLimit), cfg.Ingest.Burst)
	}

	router := httpserver.NewRouter(httpserver.Routes{
		Ingestion:     handlers.NewIngestionHandler(ingest, registry, logger),
		Analytics:     handlers.NewAnalyticsHandler(analytics, logger),
		Health:        handlers.NewHealthHandler(checks, hub.ClientCount),
		Stream:        ws.NewServer(hub, cfg.HTTP.WSWriteTimeout, logger).HandleWS,
		IngestLimiter: limiter,
	}, logger)

	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, httpserver.Timeouts{Shutdown: cfg.HTTP.ShutdownTimeout}, logger)
	logger.Info("telemetry service configured",
		zap.String("store_backend", cfg.Store.Backend),
		zap.Duration("lookback", cfg.Analytics.Lookback),
		zap.Duration("tolerance", cfg.Analytics.Tolerance),
		zap.Float64("threshold", cfg.Analytics.Threshold),
	)
	return a, nil
}

// Run serves HTTP and, with the Redis backend, relays status events until ctx ends.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	if a.subscriber != nil {
		g.Go(func() error {
			return a.subscriber.Run(gctx)
		})
	}
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
