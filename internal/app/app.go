package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	emailadapter "github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/email"
	mongoadapter "github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/mongo"
	natsadapter "github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/nats"
	redisadapter "github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/tracer"
	httpserver "github.com/Abdurahmanit/GroupProject/rental-service/internal/port/http"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/scheduler"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/service"
	natsio "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	cfg            *config.Config
	log            logger.Logger
	server         *httpserver.Server
	scheduler      *scheduler.Scheduler
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	natsConn       *natsio.Conn
	tracerProvider *sdktrace.TracerProvider
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logCfg := logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	}
	appLogger, err := logger.NewZapLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s", cfg.Env, cfg.HTTPServer.Port)

	var tracerProvider *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tracerProvider, err = tracer.Init(ctx, "rental-service", cfg.Tracing.Endpoint)
		if err != nil {
			appLogger.Errorf("Failed to initialize tracer: %v", err)
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		appLogger.Info("Tracer initialized")
	}

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		appLogger.Errorf("Failed to initialize MongoDB client: %v", err)
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("MongoDB client initialized successfully")

	appLogger.Info("Initializing Redis client...")
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Errorf("Failed to initialize Redis client: %v", err)
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized successfully")

	appLogger.Info("Connecting to NATS...")
	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		appLogger.Errorf("Failed to connect to NATS: %v", err)
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	msgPublisher, err := natsadapter.NewNATSPublisher(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	appLogger.Info("NATS publisher initialized")

	var mailer emailadapter.EmailSender
	if cfg.SMTP.Host != "" {
		mailer, err = emailadapter.NewSMTPSender(cfg.SMTP, appLogger)
		if err != nil {
			appLogger.Errorf("Failed to initialize SMTP sender: %v", err)
			return nil, fmt.Errorf("failed to initialize SMTP sender: %w", err)
		}
		appLogger.Info("SMTP sender initialized")
	} else {
		appLogger.Info("SMTP is not configured, email notifications disabled")
	}

	listingRepo := mongoadapter.NewListingRepository(mongoClient, cfg.MongoDB)
	applicationRepo := mongoadapter.NewApplicationRepository(mongoClient, cfg.MongoDB, appLogger)
	listingCache := redisadapter.NewListingCache(redisClient, cfg.ListingCache.TTL)
	appLogger.Info("Repositories initialized")

	applicationService := service.NewApplicationService(
		applicationRepo,
		listingRepo,
		listingCache,
		msgPublisher,
		mailer,
		cfg.Notifications.OpsEmail,
		appLogger,
	)
	listingService := service.NewListingService(listingRepo, listingCache, msgPublisher, appLogger)
	appLogger.Info("Services initialized")

	var cronScheduler *scheduler.Scheduler
	if cfg.Reconciler.Enabled {
		reconciler := service.NewReconciler(listingRepo, applicationRepo, msgPublisher, appLogger)
		cronScheduler, err = scheduler.New(reconciler, cfg.Reconciler.Schedule, appLogger)
		if err != nil {
			appLogger.Errorf("Failed to initialize reconciliation scheduler: %v", err)
			return nil, fmt.Errorf("failed to initialize reconciliation scheduler: %w", err)
		}
		appLogger.Infof("Reconciliation scheduler initialized with schedule %q", cfg.Reconciler.Schedule)
	}

	handler := httpserver.NewHandler(applicationService, listingService, appLogger)
	server := httpserver.NewServer(
		appLogger,
		cfg.HTTPServer.Port,
		cfg.HTTPServer.ReadTimeout,
		cfg.HTTPServer.WriteTimeout,
		handler,
		cfg.JWT.Secret,
	)
	appLogger.Info("HTTP server instance created")

	return &App{
		cfg:            cfg,
		log:            appLogger,
		server:         server,
		scheduler:      cronScheduler,
		mongoClient:    mongoClient,
		redisClient:    redisClient,
		natsConn:       natsConn,
		tracerProvider: tracerProvider,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	a.log.Info("HTTP server started in a goroutine")

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	}

	a.log.Info("Closing connections...")

	if a.natsConn != nil {
		a.natsConn.Close()
		a.log.Info("NATS connection closed")
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down tracer provider: %v", err)
		}
	}

	a.log.Info("Application shut down successfully")
}
