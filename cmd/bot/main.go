package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/servicefix/dispatch-bot/internal/api/http"
	"github.com/servicefix/dispatch-bot/internal/api/http/handlers"
	"github.com/servicefix/dispatch-bot/internal/bot"
	"github.com/servicefix/dispatch-bot/internal/config"
	"github.com/servicefix/dispatch-bot/internal/events"
	"github.com/servicefix/dispatch-bot/internal/observability"
	"github.com/servicefix/dispatch-bot/internal/persistence"
	"github.com/servicefix/dispatch-bot/internal/refdata"
	"github.com/servicefix/dispatch-bot/internal/repository"
	"github.com/servicefix/dispatch-bot/internal/service"
	"github.com/servicefix/dispatch-bot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	ticketRepo := repository.NewTicketRepository(store)
	technicianRepo := repository.NewTechnicianRepository(store)
	feedbackRepo := repository.NewFeedbackRepository(store)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		TechnicianRepo: technicianRepo,
		FeedbackRepo:   feedbackRepo,
		Dispatcher:     dispatcher,
	})
	technicianService := service.NewTechnicianService(service.TechnicianDependencies{
		TechnicianRepo: technicianRepo,
		Dispatcher:     dispatcher,
	})
	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		TicketRepo:     ticketRepo,
		TechnicianRepo: technicianRepo,
		Dispatcher:     dispatcher,
	})
	exportService := service.NewExportService(service.ExportDependencies{
		TicketRepo:     ticketRepo,
		TechnicianRepo: technicianRepo,
	})

	dispatchBot, err := bot.New(bot.Dependencies{
		Config:      cfg.Bot,
		Logger:      logger,
		Metrics:     metrics,
		Directory:   refdata.Default(),
		Tickets:     ticketService,
		Technicians: technicianService,
		Dispatch:    dispatchService,
		Export:      exportService,
	})
	if err != nil {
		logger.Fatal("failed to connect telegram", zap.Error(err))
	}

	notificationService := service.NewNotificationService(dispatchBot, cfg.Bot.AdminChatID, logger)
	worker.StartNotificationWorker(notificationService, dispatcher)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, metrics),
	})
	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	go func() {
		waitForShutdown(logger)
		cancel()
	}()

	if err := dispatchBot.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("bot stopped", zap.Error(err))
	}

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
