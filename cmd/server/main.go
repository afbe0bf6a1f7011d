package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"flatfinder/server/config"
	"flatfinder/server/internal/api"
	"flatfinder/server/internal/database"
	"flatfinder/server/internal/events"
	"flatfinder/server/internal/geocoding"
	"flatfinder/server/internal/notify"
	"flatfinder/server/internal/processor"
	"flatfinder/server/internal/queue"
	"flatfinder/server/internal/search"
	"flatfinder/server/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.Server.LogLevel).Warn("Unknown log level, using info")
	}

	catalog := config.DefaultCatalog()
	if cfg.Search.CatalogPath != "" {
		catalog, err = config.LoadCatalogFile(cfg.Search.CatalogPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load catalog")
		}
	}
	logger.WithFields(logrus.Fields{
		"towns":      len(catalog.Towns()),
		"unit_types": len(catalog.UnitTypes()),
	}).Info("Loaded catalog")

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	bus := events.NewBus(cfg.Events.BufferSize, logger)

	var opts []search.BuilderOption
	if cfg.Search.DomainConstants {
		opts = append(opts, search.WithDomainConstants())
	}
	builder := search.NewQueryBuilder(catalog, opts...)

	sessions := session.NewManager(db, db, builder, cfg.Search.QueryTimeout, cfg.Search.SessionTTL, logger)
	defer sessions.Close()
	sessions.Subscribe(bus)
	janitor := session.NewJanitor(sessions, cfg.Search.JanitorInterval, logger)

	notifier := notify.NewService(cfg.Telegram, db, logger)
	if cfg.Telegram.Enabled {
		notifier.Subscribe(bus)
	}

	if cfg.Geocoding.Enabled {
		locator := geocoding.NewLocator(geocoding.NewGeocoder(cfg.Geocoding, logger), db, logger)
		locator.Subscribe(bus)
	}

	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db, listingQueue, bus, cfg, logger)

	bus.Start()
	batchProcessor.Start()
	janitor.Start()

	if err := api.RegisterValidators(catalog); err != nil {
		logger.WithError(err).Fatal("Failed to register validators")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler := api.NewHandler(api.Dependencies{
		DB:           db,
		Builder:      builder,
		Sessions:     sessions,
		Queue:        listingQueue,
		Bus:          bus,
		MaxBatchSize: cfg.BatchProcessing.MaxBatchSize,
	}, logger)
	api.SetupRoutes(router, handler)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
	}

	// Stop producers before the bus their consumers publish to
	janitor.Stop()
	batchProcessor.Stop()
	if err := bus.Close(); err != nil {
		logger.WithError(err).Error("Failed to close event bus")
	}
	logger.Info("Server stopped")
}
