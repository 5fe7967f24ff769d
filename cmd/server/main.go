package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"autodeposit.backend/internal/config"
	"autodeposit.backend/internal/domain/entities"
	domainRepos "autodeposit.backend/internal/domain/repositories"
	pgsource "autodeposit.backend/internal/infrastructure/datasources/postgres"
	"autodeposit.backend/internal/infrastructure/jobs"
	"autodeposit.backend/internal/infrastructure/models"
	"autodeposit.backend/internal/infrastructure/repositories"
	"autodeposit.backend/internal/infrastructure/transport"
	"autodeposit.backend/internal/interfaces/http/handlers"
	"autodeposit.backend/internal/interfaces/http/middleware"
	"autodeposit.backend/internal/paylink"
	"autodeposit.backend/internal/usecases"
	"autodeposit.backend/pkg/jwt"
	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/redis"
	"autodeposit.backend/pkg/secretbox"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	openInbox = pgsource.NewConnection
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
	// shutdownSignal blocks until the process is asked to stop.
	shutdownSignal = func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
	}
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	logger.Info(ctx, "Connected to PostgreSQL via GORM")

	a, err := buildApp(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer a.close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := a.start(runCtx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Autodeposit backend starting", zap.String("port", cfg.Server.Port))
		serverErr <- runServer(srv)
	}()
	stopped := make(chan struct{})
	go func() {
		shutdownSignal()
		close(stopped)
	}()

	select {
	case err := <-serverErr:
		a.stop(context.Background())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stopped:
	}

	logger.Info(ctx, "Shutting down server...")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "HTTP shutdown incomplete", zap.Error(err))
	}
	a.stop(shutdownCtx)
	return nil
}

// app is the wired service: the HTTP router plus its background workers.
type app struct {
	router     *gin.Engine
	supervisor *jobs.Supervisor
	expiryJob  *jobs.DepositRequestExpiryJob
	closers    []func() error
}

func (a *app) start(ctx context.Context) error {
	if a.supervisor != nil {
		if err := a.supervisor.Start(ctx); err != nil {
			return err
		}
	}
	go a.expiryJob.Start(ctx)
	return nil
}

func (a *app) stop(ctx context.Context) {
	a.expiryJob.Stop()
	if a.supervisor != nil {
		if err := a.supervisor.Stop(ctx); err != nil {
			logger.Warn(ctx, "Watcher did not stop in time", zap.Error(err))
		}
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// idleWatcher reports status when no notification source is configured.
type idleWatcher struct{}

func (idleWatcher) Status() jobs.WatcherStatus {
	return jobs.WatcherStatus{Source: config.SourceNone, State: jobs.StateStopped}
}

func reconcileDefaults(cfg config.ReconcileConfig) (entities.ReconcileSettings, error) {
	tolerance, err := entities.ParseMoney(cfg.AmountTolerance)
	if err != nil {
		return entities.ReconcileSettings{}, fmt.Errorf("AMOUNT_TOLERANCE: %w", err)
	}
	return entities.ReconcileSettings{
		Enabled:      cfg.Enabled,
		PollInterval: cfg.PollInterval,
		Tolerance:    tolerance,
		MaxWait:      cfg.MaxWait,
		RequestTTL:   cfg.RequestTTL,
	}, nil
}

func buildApp(ctx context.Context, cfg *config.Config, db *gorm.DB) (*app, error) {
	a := &app{}

	defaults, err := reconcileDefaults(cfg.Reconcile)
	if err != nil {
		return nil, err
	}
	sealer, err := secretbox.New(cfg.Security.BaseHashEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize base hash encryption: %w", err)
	}

	// Repositories
	requestRepo := repositories.NewDepositRequestRepository(db)
	paymentRepo := repositories.NewIncomingPaymentRepository(db)
	bankRepo := repositories.NewBankConfigRepository(db, sealer)
	settingRepo := repositories.NewSettingRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Usecases
	registry, _ := paylink.NewRegistry(nil, time.Now)
	bankUsecase := usecases.NewBankConfigUsecase(bankRepo, registry, cfg.Banks.URLTemplates)
	if _, err := bankUsecase.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load bank configs: %w", err)
	}
	settingsUsecase := usecases.NewSettingsUsecase(settingRepo, defaults)
	requestUsecase := usecases.NewDepositRequestUsecase(requestRepo, bankUsecase, paylink.NewBuilder(registry), uow)
	matcher := usecases.NewReconciliationUsecase(requestRepo, paymentRepo, bankRepo, uow, settingsUsecase)
	normalizer, err := usecases.NewNormalizer(nil, nil)
	if err != nil {
		return nil, err
	}
	ingestion := usecases.NewIngestionUsecase(normalizer, paymentRepo, matcher)

	// Watcher
	var monitor handlers.WatcherMonitor = idleWatcher{}
	var notificationHandler *handlers.NotificationHandler
	source, err := a.notificationSource(cfg)
	if err != nil {
		return nil, err
	}
	if source != nil {
		cursors, err := a.cursorStore(cfg, db)
		if err != nil {
			return nil, err
		}
		watcher := jobs.NewWatcher(source, cursors, ingestion, matcher, settingsUsecase, jobs.WatcherOptions{
			BatchSize:        cfg.Watcher.BatchSize,
			TransportTimeout: cfg.Watcher.TransportTimeout,
			FetchRetries:     cfg.Watcher.FetchRetries,
			RetryBackoff:     cfg.Watcher.RetryBackoff,
			AlarmThreshold:   cfg.Watcher.AlarmThreshold,
			PollInterval:     defaults.PollInterval,
		})
		var lease jobs.Lease
		if cfg.Watcher.LeaseEnabled {
			lease = redis.NewLease(redis.GetClient(), cfg.Watcher.LeaseKey, cfg.Watcher.LeaseTTL)
		}
		a.supervisor = jobs.NewSupervisor(watcher, lease)
		monitor = watcher
		if appender, ok := source.(handlers.NotificationAppender); ok {
			notificationHandler = handlers.NewNotificationHandler(appender)
		}
	} else {
		logger.Warn(ctx, "No notification source configured, watcher disabled")
	}
	a.expiryJob = jobs.NewDepositRequestExpiryJob(requestUsecase, settingsUsecase, cfg.Reconcile.ExpiryInterval)

	// Router
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerAPIV1Routes(r, routeDeps{
		depositRequestHandler: handlers.NewDepositRequestHandler(requestUsecase),
		paymentHandler:        handlers.NewPaymentHandler(matcher),
		bankHandler:           handlers.NewBankHandler(bankUsecase),
		settingsHandler:       handlers.NewSettingsHandler(settingsUsecase),
		watcherHandler:        handlers.NewWatcherHandler(monitor),
		notificationHandler:   notificationHandler,
		authMiddleware:        middleware.AuthMiddleware(jwtService),
		ingestSecret:          cfg.Security.IngestSecret,
	})
	a.router = r
	return a, nil
}

func (a *app) notificationSource(cfg *config.Config) (domainRepos.NotificationSource, error) {
	switch cfg.Watcher.Source {
	case config.SourceRedis:
		return transport.NewRedisStreamSource(redis.GetClient(), cfg.Watcher.StreamKey), nil
	case config.SourceSQL:
		inboxDB, err := openInbox(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open notification inbox: %w", err)
		}
		a.closers = append(a.closers, inboxDB.Close)
		return transport.NewSQLInboxSource(inboxDB, cfg.Watcher.InboxTable, cfg.Watcher.InboxLookback)
	case config.SourceNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown WATCHER_SOURCE %q", cfg.Watcher.Source)
	}
}

func (a *app) cursorStore(cfg *config.Config, db *gorm.DB) (domainRepos.CursorStore, error) {
	switch cfg.Watcher.CursorStore {
	case config.CursorStoreBolt:
		store, err := repositories.OpenBoltCursorStore(cfg.Watcher.CursorFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open cursor file: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.CursorStoreDB, "":
		return repositories.NewCursorRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown WATCHER_CURSOR_STORE %q", cfg.Watcher.CursorStore)
	}
}
