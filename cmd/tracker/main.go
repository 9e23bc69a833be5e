package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/busterbike/ride-tracker/internal/api/handlers"
	"github.com/busterbike/ride-tracker/internal/api/routes"
	"github.com/busterbike/ride-tracker/internal/config"
	"github.com/busterbike/ride-tracker/internal/device"
	"github.com/busterbike/ride-tracker/internal/repository/history"
	"github.com/busterbike/ride-tracker/internal/service/distance"
	"github.com/busterbike/ride-tracker/internal/service/inventory"
	"github.com/busterbike/ride-tracker/internal/service/notify"
	"github.com/busterbike/ride-tracker/internal/service/reservation"
	"github.com/busterbike/ride-tracker/internal/service/sampler"
	"github.com/busterbike/ride-tracker/internal/service/session"
	"github.com/busterbike/ride-tracker/pkg/bikeapi"
	"github.com/busterbike/ride-tracker/pkg/cache"
	"github.com/busterbike/ride-tracker/pkg/database"
	"github.com/busterbike/ride-tracker/pkg/logger"
	"github.com/busterbike/ride-tracker/pkg/monitoring"
	"github.com/busterbike/ride-tracker/pkg/websocket"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting BusterBike ride tracker",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
		logger.String("api", cfg.API.BaseURL),
		logger.String("location_mode", cfg.Tracking.LocationMode),
	)

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
		LogLevel:   cfg.NewRelic.LogLevel,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
		nrApp = monitoring.Disabled()
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized successfully",
			logger.String("app_name", cfg.NewRelic.AppName))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Bike inventory cache: Redis when configured, process memory otherwise
	var bikeCache inventory.Cache = inventory.NewMemoryCache()
	if cfg.Redis.Enabled {
		redisClient, err := connectRedis(cfg.Redis)
		if err != nil {
			appLogger.Warn("Redis unavailable, caching bikes in memory", logger.Err(err))
		} else {
			defer cache.Close(redisClient)
			bikeCache = inventory.NewRedisCache(redisClient, cfg.Inventory.CacheTTL)
			appLogger.Info("Connected to Redis successfully")
		}
	}

	// Completed-ride journal
	var journal handlers.Journal
	if cfg.Database.Enabled {
		db, repo, err := connectJournal(ctx, cfg.Database)
		if err != nil {
			appLogger.Warn("Ride history disabled", logger.Err(err))
		} else {
			defer db.Close()
			journal = repo
			appLogger.Info("Connected to PostgreSQL successfully")
		}
	}

	// Remote bike-sharing API
	api := bikeapi.New(bikeapi.Config{
		BaseURL:    cfg.API.BaseURL,
		AuthScheme: cfg.API.AuthScheme,
		Timeout:    cfg.API.Timeout,
	}, bikeapi.NewTokenStore(cfg.API.Token), appLogger.Named("bikeapi"))

	// Device location: the device pushes fixes into the feed; in poll mode the
	// sampler re-reads the latest fix on an interval instead of following pushes
	feed := device.NewFeed(cfg.Tracking.MaxFixAge)
	var source sampler.Source = feed
	if cfg.Tracking.LocationMode == config.LocationModePoll {
		source = device.NewPollingSource(feed, cfg.Tracking.PollInterval)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(appLogger.Named("ws"))
	go wsHub.Run(ctx)

	// Ride session and tracking
	store := session.NewStore(
		api,
		feed,
		distance.NewAccumulator(distance.Config{MinStepKM: cfg.Tracking.MinStepKM}),
		appLogger.Named("session"),
	)
	publisher := notify.NewPublisher(wsHub, store, appLogger.Named("notify"), cfg.Tracking.NotificationInterval)
	tracker := sampler.New(source, store, publisher, nrApp, appLogger.Named("sampler"))

	store.Subscribe(tracker.HandleSessionEvent)
	store.Subscribe(publisher.HandleSessionEvent)
	store.Subscribe(rideMetrics(nrApp))
	var journaler *journalWriter
	if repo, ok := journal.(history.Repository); ok {
		journaler = newJournalWriter(repo, appLogger.Named("history"), journalQueueSize)
		go journaler.Run()
		store.Subscribe(journaler.HandleSessionEvent)
	}

	reserver := reservation.NewService(api, feed, store, appLogger.Named("reservation"),
		reservation.Config{MaxDistanceKM: cfg.Tracking.ReserveMaxDistanceKM},
		reservation.WithTrustReporter(publisher),
		reservation.WithNotifier(publisher),
		reservation.WithRecorder(nrApp),
	)

	poller := inventory.NewPoller(api, bikeCache, appLogger.Named("inventory"), inventory.Config{
		PollInterval: cfg.Inventory.PollInterval,
	})

	go poller.Run(ctx)
	go publisher.Run(ctx)

	// Pick up a ride that was already in progress when the tracker started
	if _, err := store.FetchCurrentRide(ctx); err != nil {
		appLogger.Warn("Could not load current ride at startup", logger.Err(err))
	}

	// Initialize handlers with dependencies
	h := handlers.NewHandlers(handlers.Dependencies{
		Rides:             store,
		Feed:              feed,
		Inventory:         poller,
		Reserver:          reserver,
		Journal:           journal,
		Account:           api,
		Metrics:           nrApp,
		Hub:               wsHub,
		Logger:            appLogger.Named("api"),
		WSReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WSWriteBufferSize: cfg.WebSocket.WriteBufferSize,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
	})
	wsHub.SetMessageHandler(h.HandleDeviceMessage)

	// Initialize Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	var nrApplication *newrelic.Application
	if nrApp.IsEnabled() {
		nrApplication = nrApp.Application
	}
	routes.SetupRoutes(router, h, nrApplication, routes.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
	})

	appLogger.Info("Routes configured successfully")

	// Create HTTP server
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	// Location tracking stops with the process; the ride itself stays open on
	// the server and is picked up again on the next start
	tracker.Stop()
	if journaler != nil {
		journaler.Close()
	}
	stop()

	appLogger.Info("Server stopped gracefully")
}

func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	return cache.NewRedisClient(cache.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		PoolSize:    cfg.PoolSize,
		MinIdleConn: cfg.MinIdleConn,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})
}

func connectJournal(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, *history.PostgresRepository, error) {
	db, err := database.NewPostgresDB(ctx, database.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.Name,
		SSLMode:  cfg.SSLMode,
		MaxConns: cfg.MaxConnections,
		MaxIdle:  cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, nil, err
	}

	repo := history.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repo, nil
}
