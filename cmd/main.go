package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealdesk/intake-backend/internal/checklist"
	"github.com/dealdesk/intake-backend/internal/data"
	"github.com/dealdesk/intake-backend/internal/data/repos"
	"github.com/dealdesk/intake-backend/internal/handlers"
	"github.com/dealdesk/intake-backend/internal/middleware"
	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/gcp"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/realtime"
	"github.com/dealdesk/intake-backend/internal/realtime/bus"
	"github.com/dealdesk/intake-backend/internal/recognition"
	"github.com/dealdesk/intake-backend/internal/recognition/metrics"
	"github.com/dealdesk/intake-backend/internal/server"
	"github.com/dealdesk/intake-backend/internal/services"
)

func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger
	log, err := logger.New(cfg.App.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	db, err := data.NewPostgres(cfg.Database, log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := data.AutoMigrateAll(db); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}

	// Repos
	log.Info("Setting up repos...")
	dealRepo := repos.NewDealRepo(db, log)
	partyRepo := repos.NewPartyRepo(db, log)
	documentRepo := repos.NewDocumentRepo(db, log)

	// Realtime
	log.Info("Setting up SSE hub and bus...")
	sseHub := realtime.NewSSEHub(log)
	var emitter services.SSEEmitter
	sseBus, err := bus.NewRedisBus(log, cfg.Redis)
	if err != nil {
		log.Warn("Redis SSE bus unavailable; falling back to local hub", "error", err)
		emitter = &services.HubEmitter{Hub: sseHub}
	} else {
		emitter = &services.RedisEmitter{Bus: sseBus}
		if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Fatal("SSE forwarder failed", "error", err)
		}
	}

	// Recognition plumbing
	log.Info("Setting up recognition clients...")
	recClient, err := recognition.NewHTTPClient(log, cfg.Recognition)
	if err != nil {
		log.Fatal("Recognition client init failed", "error", err)
	}
	push, err := recognition.NewRedisPush(log, cfg.Redis)
	if err != nil {
		log.Fatal("Recognition push channel init failed", "error", err)
	}
	recMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Services
	log.Info("Setting up services...")
	bucketService, err := gcp.NewBucketService(log, cfg.Storage)
	if err != nil {
		log.Fatal("Could not init BucketService", "error", err)
	}
	catalogProvider, err := checklist.NewHTTPCatalogProvider(log, cfg.Catalog)
	if err != nil {
		log.Fatal("Could not init CatalogProvider", "error", err)
	}
	consolidator := checklist.NewConsolidator(log, catalogProvider)
	notifier := services.NewIntakeNotifier(emitter)
	intakeService := services.NewIntakeService(db, log, dealRepo, partyRepo, documentRepo, consolidator, notifier)
	documentService := services.NewDocumentService(db, log, cfg.Recognition, documentRepo, bucketService, recClient, push, recMetrics, notifier)

	if err := push.Start(context.Background(), documentService.HandleResult); err != nil {
		log.Warn("Push subscription failed; polling fallback stays active", "error", err)
	}
	documentService.StartSessionJanitor(context.Background())

	// Handlers
	log.Info("Setting up handlers...")
	dealHandler := handlers.NewDealHandler(log, intakeService)
	partyHandler := handlers.NewPartyHandler(log, intakeService)
	documentHandler := handlers.NewDocumentHandler(log, documentService)
	checklistHandler := handlers.NewChecklistHandler(log, intakeService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	var publisher recognition.Publisher
	if p, ok := push.(recognition.Publisher); ok {
		publisher = p
	}
	eventsHandler := handlers.NewEventsHandler(log, cfg.Recognition, publisher, documentService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, cfg.JWT)

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:   authMiddleware,
		DealHandler:      dealHandler,
		PartyHandler:     partyHandler,
		DocumentHandler:  documentHandler,
		ChecklistHandler: checklistHandler,
		SSEHandler:       sseHandler,
		EventsHandler:    eventsHandler,
	})

	log.Info("Server listening", "port", cfg.App.Port)
	if err := router.Run(":" + cfg.App.Port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
