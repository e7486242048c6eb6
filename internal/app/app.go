package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	ginadapter "github.com/uniedit/photos/internal/adapter/inbound/gin"
	"github.com/uniedit/photos/internal/adapter/outbound/memory"
	"github.com/uniedit/photos/internal/adapter/outbound/postgres"
	redisadapter "github.com/uniedit/photos/internal/adapter/outbound/redis"
	s3adapter "github.com/uniedit/photos/internal/adapter/outbound/s3"
	"github.com/uniedit/photos/internal/domain/photos"
	"github.com/uniedit/photos/internal/infra/events"
	"github.com/uniedit/photos/internal/infra/task"
	"github.com/uniedit/photos/internal/model"
	"github.com/uniedit/photos/internal/port/inbound"
	"github.com/uniedit/photos/internal/port/outbound"
	sharedcache "github.com/uniedit/photos/internal/shared/cache"
	"github.com/uniedit/photos/internal/shared/config"
	"github.com/uniedit/photos/internal/shared/database"
	"github.com/uniedit/photos/internal/shared/logger"
	"github.com/uniedit/photos/internal/utils/metrics"
	"github.com/uniedit/photos/internal/utils/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// purgeJobName identifies the expired-trash sweep in scheduler logs.
const purgeJobName = "purge-expired-trash"

// App represents the application.
type App struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	router *gin.Engine
	logger *zap.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	// Event infrastructure
	eventBus *events.Bus

	// Outbound adapters
	ledgerDB    outbound.AccountLedgerPort
	photoDB     outbound.PhotoStorePort
	blobs       outbound.BlobStoragePort
	s3Blobs     *s3adapter.BlobStorageAdapter
	usageCache  outbound.UsageCachePort
	rateLimiter outbound.RateLimiterPort

	// Domain and transport
	photos        *photos.Domain
	photosHandler inbound.PhotosHttpPort
	scheduler     *task.Scheduler
}

// New creates a new application instance. Nothing runs in the background
// until Start is called.
func New(cfg *config.Config) (*App, error) {
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}
	return NewWithLogger(cfg, zapLog)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, zapLog *zap.Logger) (*App, error) {
	app := &App{
		config:   cfg,
		logger:   zapLog,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New("photos", app.registry)

	ctx := context.Background()
	if err := app.initStores(ctx); err != nil {
		app.Stop()
		return nil, err
	}
	app.initCache(ctx)
	if err := app.initBlobStorage(ctx); err != nil {
		app.Stop()
		return nil, err
	}
	if err := app.initDomain(); err != nil {
		app.Stop()
		return nil, err
	}
	if err := app.initScheduler(); err != nil {
		app.Stop()
		return nil, err
	}

	app.router = app.setupRouter()
	app.registerRoutes()

	return app, nil
}

// initStores selects the ledger and photo store backends.
func (a *App) initStores(ctx context.Context) error {
	if a.config.Database.IsMemory() {
		a.logger.Warn("using in-memory stores; state is lost on restart")
		a.ledgerDB = memory.NewLedgerStore()
		a.photoDB = memory.NewPhotoStore()
		return nil
	}

	db, err := database.New(&a.config.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.db = db

	if err := database.EnsureSchema(db.WithContext(ctx), a.config.Database.AutoMigrate); err != nil {
		return fmt.Errorf("database schema: %w", err)
	}

	a.ledgerDB = postgres.NewAccountAdapter(db)
	a.photoDB = postgres.NewPhotoAdapter(db)
	return nil
}

// initCache connects Redis. Redis is optional: without it usage views are
// computed on every read and mutations are not rate limited.
func (a *App) initCache(ctx context.Context) {
	if !a.config.Redis.Enabled() {
		return
	}

	client, err := sharedcache.NewRedisClient(ctx, &a.config.Redis)
	if err != nil {
		a.logger.Warn("redis connection failed, continuing without cache", zap.Error(err))
		return
	}
	a.redis = client
	a.usageCache = redisadapter.NewUsageCache(client)
	a.rateLimiter = redisadapter.NewRateLimiter(client)
}

// initBlobStorage wires physical byte release. Without a bucket, purges only
// remove records.
func (a *App) initBlobStorage(ctx context.Context) error {
	if !a.config.Storage.Enabled() {
		a.logger.Info("object storage not configured; purge will not release bytes")
		return nil
	}

	client, err := s3adapter.NewClient(ctx, &s3adapter.Config{
		Endpoint:        a.config.Storage.Endpoint,
		Region:          a.config.Storage.Region,
		AccessKeyID:     a.config.Storage.AccessKeyID,
		SecretAccessKey: a.config.Storage.SecretAccessKey,
		Bucket:          a.config.Storage.Bucket,
		UsePathStyle:    a.config.Storage.UsePathStyle,
	})
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	a.s3Blobs = s3adapter.NewBlobStorageAdapter(client, a.config.Storage.Bucket)
	a.blobs = a.s3Blobs
	return nil
}

func (a *App) initDomain() error {
	catalog, err := photos.NewPlanCatalog(a.config.Photos.Plans)
	if err != nil {
		return fmt.Errorf("plan catalog: %w", err)
	}

	a.eventBus = events.NewBus(a.logger.Named("events"))

	domain, err := photos.NewPhotosDomain(
		a.ledgerDB,
		a.photoDB,
		a.blobs,
		a.usageCache,
		catalog,
		a.eventBus,
		a.metrics,
		photos.RealClock{},
		domainConfig(&a.config.Photos),
		a.logger.Named("photos"),
	)
	if err != nil {
		return fmt.Errorf("init photos domain: %w", err)
	}
	a.photos = domain
	a.photosHandler = ginadapter.NewPhotosHandler(domain)

	a.registerEventHandlers()
	return nil
}

// registerEventHandlers registers all domain event handlers.
func (a *App) registerEventHandlers() {
	if a.usageCache != nil {
		a.eventBus.Register(a.photos.CacheInvalidator())
	}

	audit := a.logger.Named("audit")
	a.eventBus.Register(events.NewHandlerFunc(
		append([]string{photos.PhotoReleaseFailedType}, photos.UsageChangedTypes...),
		func(_ context.Context, e events.Event) error {
			audit.Info("photos event",
				zap.String("event_type", e.EventType()),
				zap.String("event_id", e.EventID().String()),
				zap.String("account_id", e.AccountID()),
				zap.Time("occurred_at", e.OccurredAt()),
			)
			return nil
		},
	))
}

func (a *App) initScheduler() error {
	a.scheduler = task.NewScheduler(a.logger)

	interval := a.config.Photos.PurgeInterval
	if interval <= 0 {
		return nil
	}

	retention := a.config.Photos.TrashRetention
	log := a.logger.Named("purge")
	return a.scheduler.Register(task.Job{
		Name:     purgeJobName,
		Interval: interval,
		Timeout:  interval,
		Run: func(ctx context.Context) error {
			result, err := a.photos.PurgeExpired(ctx, retention)
			if err != nil {
				return err
			}
			if result.PurgedCount > 0 || result.LeftoversRemoved > 0 || result.FailedCount > 0 {
				log.Info("expired trash purged",
					zap.Int("accounts", result.AccountsProcessed),
					zap.Int("purged", result.PurgedCount),
					zap.Int("failed", result.FailedCount),
					zap.Int64("reclaimed_bytes", result.ReclaimedDiskBytes),
					zap.Int64("leftovers_removed", result.LeftoversRemoved),
				)
			}
			return nil
		},
	})
}

// domainConfig maps the photos configuration section onto the domain config.
func domainConfig(cfg *config.PhotosConfig) *photos.Config {
	dc := photos.DefaultConfig()
	if cfg.DefaultPlan != "" {
		dc.DefaultPlanID = cfg.DefaultPlan
	}
	if cfg.LargeFileBytes > 0 {
		dc.LargeFileBytes = cfg.LargeFileBytes
	}
	if cfg.LargeFileLimit > 0 {
		dc.LargeFileLimit = cfg.LargeFileLimit
	}
	if cfg.LowQualityLimit > 0 {
		dc.LowQualityLimit = cfg.LowQualityLimit
	}
	if cfg.UsageCacheTTL > 0 {
		dc.CategoryCacheTTL = cfg.UsageCacheTTL
	}

	ec := dc.Engine
	ec.MaxPhotoBytes = cfg.MaxPhotoBytes
	if cfg.ReleaseAttempts > 0 {
		ec.ReleaseAttempts = cfg.ReleaseAttempts
	}
	if cfg.ReleaseBackoff > 0 {
		ec.ReleaseBackoff = cfg.ReleaseBackoff
	}
	ec.ReleaseRate = cfg.ReleaseRate
	if cfg.ReleaseBurst > 0 {
		ec.ReleaseBurst = cfg.ReleaseBurst
	}
	if cfg.SweepBatchSize > 0 {
		ec.SweepBatchSize = cfg.SweepBatchSize
	}
	if cfg.LeftoverGrace > 0 {
		ec.LeftoverGrace = cfg.LeftoverGrace
	}
	return dc
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.ContextLogger(a.logger))
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = a.config.Server.CORSOrigins
	r.Use(middleware.CORS(cors))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return r
}

// registerRoutes registers the API routes.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")
	v1.Use(middleware.RateLimitByAccount(a.rateLimiter, a.config.Photos.MutationsPerMin, time.Minute, a.logger))

	a.photosHandler.RegisterRoutes(v1)
}

// health reports dependency status. Only the database is required; Redis and
// object storage degrade gracefully.
func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if a.db != nil {
		checks["database"] = "ok"
		if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	} else {
		checks["database"] = "memory"
	}

	if a.redis != nil {
		checks["redis"] = "ok"
		if err := a.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
		}
	}

	if a.s3Blobs != nil {
		checks["storage"] = "ok"
		if a.s3Blobs.State() == gobreaker.StateOpen {
			checks["storage"] = "circuit_open"
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Start starts background work.
func (a *App) Start(ctx context.Context) {
	a.scheduler.Start(ctx)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Photos returns the photos domain for operational commands.
func (a *App) Photos() inbound.PhotosDomain {
	return a.photos
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// PurgeExpired runs one expired-trash sweep with the configured retention.
func (a *App) PurgeExpired(ctx context.Context) (*model.SweepResult, error) {
	return a.photos.PurgeExpired(ctx, a.config.Photos.TrashRetention)
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.redis != nil {
		_ = sharedcache.Close(a.redis)
	}

	if a.db != nil {
		_ = database.Close(a.db)
	}

	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
