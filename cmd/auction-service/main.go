package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/loadlane/auction-service/internal/auth"
	"github.com/loadlane/auction-service/internal/config"
	"github.com/loadlane/auction-service/internal/db"
	"github.com/loadlane/auction-service/internal/export"
	httphandler "github.com/loadlane/auction-service/internal/http"
	"github.com/loadlane/auction-service/internal/http/middleware"
	"github.com/loadlane/auction-service/internal/logger"
	"github.com/loadlane/auction-service/internal/matching"
	"github.com/loadlane/auction-service/internal/notify"
	"github.com/loadlane/auction-service/internal/pdf"
	"github.com/loadlane/auction-service/internal/repository"
	"github.com/loadlane/auction-service/internal/service"
	"github.com/loadlane/auction-service/internal/sweep"
	"github.com/loadlane/auction-service/internal/window"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	auctionRepo := repository.NewAuctionRepository(database)
	offerRepo := repository.NewOfferRepository(database)
	awardRepo := repository.NewAwardRepository(database, offerRepo)
	carrierRepo := repository.NewCarrierRepository(database)
	triggerRepo := repository.NewTriggerRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)

	policy := window.Policy{BidWindow: cfg.Auction.BidWindow}

	sender := notify.NewLogSender(log)
	queue := notify.NewQueue(cfg.Notify.QueueDepth, log)

	processor := matching.NewProcessor(
		auctionRepo,
		offerRepo,
		carrierRepo,
		notificationRepo,
		sender,
		policy,
		matching.Limits{
			RatePerHour:        cfg.Notify.RateLimitPerHour,
			Cooldown:           cfg.Notify.Cooldown,
			MaxPerAuction:      cfg.Notify.MaxPerAuction,
			EscalationCooldown: cfg.Notify.EscalationCooldown,
		},
		parseOperatorIDs(cfg.Notify.OperatorIDs),
		log,
	)
	dispatcher := matching.NewDispatcher(triggerRepo, carrierRepo, queue, policy, log)
	events := matching.NewEventBridge(dispatcher, processor)

	auctionService := service.NewAuctionService(auctionRepo, offerRepo, awardRepo, events, policy)
	carrierService := service.NewCarrierService(carrierRepo, triggerRepo, notificationRepo, auctionRepo)
	exportService := service.NewExportService(
		auctionRepo, offerRepo, awardRepo, carrierRepo,
		export.NewGenerator(), pdf.NewGenerator(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go queue.Run(ctx, cfg.Notify.WorkerConcurrency, processor.Process)

	sweeper := sweep.New(auctionRepo, auctionService, processor, sweep.Config{
		ArchiveInterval:    cfg.Sweep.ArchiveInterval,
		EscalationInterval: cfg.Sweep.EscalationInterval,
		Retention:          time.Duration(cfg.Auction.RetentionDays) * 24 * time.Hour,
	}, log)
	go sweeper.Run(ctx)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(auctionService, carrierService, exportService, dispatcher, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info().Str("addr", addr).Msg("starting auction service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func parseOperatorIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
