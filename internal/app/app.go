package app

import (
	"strconv"

	"github.com/go-redis/redis/v8"

	"transfer-dashboard/internal/apiclient"
	"transfer-dashboard/internal/common/logging"
	"transfer-dashboard/internal/config"
	"transfer-dashboard/internal/enrichment"
	"transfer-dashboard/internal/pipeline"
	"transfer-dashboard/internal/ratelimit"
	"transfer-dashboard/internal/storage"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Storage     storage.Storage
	Limiter     *ratelimit.Limiter
	Quota       *ratelimit.QuotaGuard
	APIClient   *apiclient.Client
	Enricher    *enrichment.Service
	PlayerCache *enrichment.PlayerCache
	Pipeline    *pipeline.Pipeline
	RedisClient *redis.Client
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	// Initialize components in order of dependency
	if err := app.initializeStorage(); err != nil {
		return nil, err
	}

	app.initializeRateLimiting()

	if err := app.initializeEnrichment(); err != nil {
		return nil, err
	}

	return app, nil
}

// initializeRateLimiting wires the outbound pacer and the daily quota guard.
// With Redis configured the quota counter is shared between processes;
// otherwise it lives in memory and resets with the process.
func (app *App) initializeRateLimiting() {
	app.Limiter = ratelimit.NewLimiter(app.Config.RequestsPerSecond, app.Config.MaxHourlyRequests)

	var counter ratelimit.CounterStore
	if app.Config.RedisAddress != "" {
		redisDB, _ := strconv.Atoi(app.Config.RedisDB)
		app.RedisClient = redis.NewClient(&redis.Options{
			Addr:     app.Config.RedisAddress,
			Password: app.Config.RedisPassword,
			DB:       redisDB,
		})
		counter = ratelimit.NewRedisCounterStore(app.RedisClient, "")
		app.Logger.Info("Quota counter: Redis",
			logging.Field{Key: "address", Value: app.Config.RedisAddress})
	} else {
		counter = ratelimit.NewLocalCounterStore()
		app.Logger.Info("Quota counter: in-process")
	}

	app.Quota = ratelimit.NewQuotaGuard(app.Config.DailyCallLimit, counter, app.Logger)
	app.Quota.StartResetSchedule()

	app.Logger.Info("Rate limiting configured",
		logging.Field{Key: "requests_per_second", Value: app.Config.RequestsPerSecond},
		logging.Field{Key: "max_hourly_requests", Value: app.Config.MaxHourlyRequests},
		logging.Field{Key: "daily_call_limit", Value: app.Config.DailyCallLimit},
	)
}

// initializeEnrichment builds the API client, the enrichment service, the
// player cache, and the pipeline that drives them.
func (app *App) initializeEnrichment() error {
	client, err := apiclient.New(apiclient.Config{
		BaseURL:    app.Config.APIBaseURL,
		APIKey:     app.Config.APIKey,
		MaxRetries: app.Config.MaxRetries,
		Timeout:    app.Config.RequestTimeout,
		Limiter:    app.Limiter,
		Logger:     app.Logger,
	})
	if err != nil {
		return err
	}

	app.APIClient = client
	app.Enricher = enrichment.NewService(client, app.Quota, app.Logger)
	app.PlayerCache = enrichment.NewPlayerCache(app.Storage, app.Logger)
	app.Pipeline = pipeline.New(app.Storage, app.Enricher, app.PlayerCache, app.Logger)

	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Quota != nil {
		app.Quota.Stop()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
	if app.Storage != nil {
		app.Storage.Close()
	}
}
