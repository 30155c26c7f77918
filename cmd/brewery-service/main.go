package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	brewevents "github.com/brewops/brewops-backend/internal/brewing/events"
	brewhandler "github.com/brewops/brewops-backend/internal/brewing/handler"
	brewrepo "github.com/brewops/brewops-backend/internal/brewing/repository"
	brewservice "github.com/brewops/brewops-backend/internal/brewing/service"
	invevents "github.com/brewops/brewops-backend/internal/inventory/events"
	invhandler "github.com/brewops/brewops-backend/internal/inventory/handler"
	invrepo "github.com/brewops/brewops-backend/internal/inventory/repository"
	invservice "github.com/brewops/brewops-backend/internal/inventory/service"
	planhandler "github.com/brewops/brewops-backend/internal/planning/handler"
	planservice "github.com/brewops/brewops-backend/internal/planning/service"
	procevents "github.com/brewops/brewops-backend/internal/procurement/events"
	prochandler "github.com/brewops/brewops-backend/internal/procurement/handler"
	procrepo "github.com/brewops/brewops-backend/internal/procurement/repository"
	procservice "github.com/brewops/brewops-backend/internal/procurement/service"
	salesevents "github.com/brewops/brewops-backend/internal/sales/events"
	saleshandler "github.com/brewops/brewops-backend/internal/sales/handler"
	salesrepo "github.com/brewops/brewops-backend/internal/sales/repository"
	salesservice "github.com/brewops/brewops-backend/internal/sales/service"
	"github.com/brewops/brewops-backend/pkg/config"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/httputil"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/messaging"
	"github.com/brewops/brewops-backend/pkg/metrics"
	"github.com/brewops/brewops-backend/pkg/migrate"
	pkgredis "github.com/brewops/brewops-backend/pkg/redis"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "brewery-service"

func main() {
	// A missing .env is fine outside development
	_ = godotenv.Load()

	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Str("driver", cfg.Database.Driver).Msg("starting Brewery Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		m, err := migrate.New(db.DB.DB, db.Driver(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to prepare migrations")
		}
		if err := m.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	// Event publishing stays off without a broker; the domain publishers are nil-safe
	var publisher messaging.EventPublisher
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.Enabled() {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		go rmq.Watch(ctx)

		p, err := messaging.NewPublisher(rmq, cfg.RabbitMQ.Exchange, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		publisher = p
	} else {
		log.Warn().Msg("RabbitMQ not configured, domain events are not published")
	}

	var idempotency pkgredis.IdempotencyStore
	var rdb *pkgredis.Client
	if cfg.Redis.Enabled() {
		rdb, err = pkgredis.New(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		idempotency = rdb
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lifecycle := metrics.NewLifecycle(reg)

	// Repositories
	itemRepo := invrepo.NewItemRepository(db)
	lotRepo := invrepo.NewLotRepository(db)
	movementRepo := invrepo.NewMovementRepository(db)
	positionRepo := invrepo.NewPositionRepository(db)
	recipeRepo := brewrepo.NewRecipeRepository(db)
	batchRepo := brewrepo.NewBatchRepository(db)
	vesselRepo := brewrepo.NewVesselRepository(db)
	fermentationRepo := brewrepo.NewFermentationRepository(db)
	consumptionRepo := brewrepo.NewConsumptionRepository(db)
	poRepo := procrepo.NewPurchaseOrderRepository(db)
	orderRepo := salesrepo.NewOrderRepository(db)
	fgRepo := salesrepo.NewFinishedGoodsRepository(db)

	// Services
	itemService := invservice.NewItemService(itemRepo, log)
	positionService := invservice.NewPositionService(itemRepo, positionRepo, log)
	inventoryPublisher := invevents.NewInventoryEventPublisher(publisher, log)
	ledgerService := invservice.NewLedgerService(db, itemRepo, lotRepo, movementRepo, inventoryPublisher, lifecycle, log)
	recipeService := brewservice.NewRecipeService(db, recipeRepo, itemRepo, log)
	vesselService := brewservice.NewVesselService(db, vesselRepo, log)
	batchService := brewservice.NewBatchService(db, batchRepo, recipeRepo, vesselRepo, fermentationRepo, consumptionRepo,
		ledgerService, brewevents.NewBrewingEventPublisher(publisher, log), lifecycle, log)
	poService := procservice.NewPurchaseOrderService(db, poRepo, itemRepo, ledgerService,
		procevents.NewProcurementEventPublisher(publisher, log), lifecycle, log)
	orderService := salesservice.NewOrderService(db, orderRepo, fgRepo, recipeRepo,
		salesevents.NewSalesEventPublisher(publisher, log), lifecycle, log)
	fgService := salesservice.NewFinishedGoodsService(db, fgRepo, recipeRepo, log)
	materialsService := planservice.NewMaterialsService(positionRepo, positionService, log)

	if cfg.Inventory.ReorderScanInterval > 0 {
		reorder := invservice.NewReorderScheduler(
			invservice.NewReorderScanner(positionService, inventoryPublisher, log),
			cfg.Inventory.ReorderScanInterval, log,
		)
		reorder.Start(ctx)
		defer reorder.Stop()
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", httputil.RequestIDHeader, httputil.IdempotencyHeader},
		ExposedHeaders:   []string{httputil.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]any{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		if rdb != nil {
			health["redis"] = rdb.Health(r.Context())
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler(reg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.Idempotency(idempotency, cfg.Redis.IdempotencyTTL, log))

		invhandler.Routes(r,
			invhandler.NewItemHandler(itemService, log),
			invhandler.NewLedgerHandler(ledgerService, log),
			invhandler.NewPositionHandler(positionService, log),
		)
		brewhandler.Routes(r,
			brewhandler.NewRecipeHandler(recipeService, log),
			brewhandler.NewVesselHandler(vesselService, log),
			brewhandler.NewBatchHandler(batchService, log),
		)
		prochandler.Routes(r, prochandler.NewPurchaseOrderHandler(poService, log))
		saleshandler.Routes(r,
			saleshandler.NewOrderHandler(orderService, log),
			saleshandler.NewFinishedGoodsHandler(fgService, log),
		)
		planhandler.Routes(r, planhandler.NewMaterialsHandler(materialsService, log))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stops the broker watcher and the reorder scheduler
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
