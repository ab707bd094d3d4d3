package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/pmicianjur/pelantikan-api/internal/config"
	"github.com/pmicianjur/pelantikan-api/internal/database"
	"github.com/pmicianjur/pelantikan-api/internal/handler"
	"github.com/pmicianjur/pelantikan-api/internal/middleware"
	"github.com/pmicianjur/pelantikan-api/internal/payment"
	"github.com/pmicianjur/pelantikan-api/internal/pricing"
	"github.com/pmicianjur/pelantikan-api/internal/queue"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/router"
	"github.com/pmicianjur/pelantikan-api/internal/service"
	"github.com/pmicianjur/pelantikan-api/internal/storage"
	"github.com/pmicianjur/pelantikan-api/internal/wizard"
	"github.com/pmicianjur/pelantikan-api/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unreachable: drafts fall back to memory, cache and rate limit disabled")
	}

	photos, err := storage.NewMinioStore(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageUseSSL)
	if err != nil {
		log.Fatalf("object storage: %v", err)
	}

	gateway := payment.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransClientKey, cfg.MidtransProd)

	registrations := repository.NewRegistrationRepo(db)
	participants := repository.NewParticipantRepo(db)
	chaperones := repository.NewChaperoneRepo(db)
	plots := repository.NewPlotRepo(db)
	pending := repository.NewPendingTransactionRepo(db)
	events := repository.NewWebhookEventRepo(db)

	finalizer := service.NewFinalizer(db, registrations, participants, chaperones, plots, pending, events, photos)

	var drafts wizard.Store
	if rdb != nil {
		drafts = wizard.NewRedisStore(rdb, cfg.DraftTTL)
	} else {
		drafts = wizard.NewMemoryStore(cfg.DraftTTL)
	}

	schedule := pricing.Default
	cache := middleware.NewCache(config.LoadCacheConfig(), rdb)

	h := router.Handlers{
		Land:    handler.NewLandHandler(plots),
		Draft:   handler.NewDraftHandler(drafts, photos, pending, gateway, schedule, cfg.PendingTTL),
		Payment: handler.NewPaymentHandler(gateway),
		Webhook: handler.NewWebhookHandler(gateway, finalizer),
		Manual:  handler.NewManualHandler(drafts, registrations, participants, chaperones, plots, photos, schedule),
		Admin:   handler.NewAdminHandler(registrations, participants, chaperones, cache, cfg.AdminPasswordHash, cfg.SessionSecret, cfg.Env == "prod"),
	}
	e := router.Setup(h, cache, config.LoadRateLimitConfig(), rdb, cfg.SessionSecret)

	go func() {
		if err := queue.StartPaidConsumer(); err != nil {
			log.Printf("paid-consumer stopped: %v", err)
		}
	}()
	go worker.NewSweeper(pending, plots, 0, cfg.PendingTTL).Run(context.Background())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
