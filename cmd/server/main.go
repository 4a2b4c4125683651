package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fornalha-pos/api/internal/bot"
	"github.com/fornalha-pos/api/internal/config"
	"github.com/fornalha-pos/api/internal/database"
	"github.com/fornalha-pos/api/internal/enum"
	"github.com/fornalha-pos/api/internal/handler"
	"github.com/fornalha-pos/api/internal/marketplace"
	"github.com/fornalha-pos/api/internal/printer"
	"github.com/fornalha-pos/api/internal/router"
	"github.com/fornalha-pos/api/internal/service"
	"github.com/fornalha-pos/api/internal/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run(ctx)

	var publisher handler.ReceiptPublisher = printer.Disabled{}
	if cfg.AmqpURL != "" {
		p, err := printer.NewPublisher(cfg.AmqpURL, cfg.PrintQueue, logger)
		if err != nil {
			log.Fatalf("connect print queue: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	var sender bot.Sender = bot.Disabled{}
	if cfg.TelegramToken != "" {
		t, err := bot.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			log.Fatalf("connect telegram: %v", err)
		}
		sender = t
	}

	if cfg.MarketplaceBaseURL != "" {
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore)
		client := marketplace.NewClient(cfg.MarketplaceBaseURL, cfg.MarketplaceToken)
		importer := marketplace.NewImporter(client, orderService, cfg.MarketplaceInterval, logger)
		importer.OnImported = func(result *service.CreateOrderResult) {
			// Polling covers the full payload; the event just wakes the screens.
			hub.Broadcast("order_created", map[string]any{
				"id":           result.Order.ID,
				"order_number": result.Order.OrderNumber,
				"status":       result.Order.Status,
				"origin":       enum.OriginMarketplace,
			})
		}
		go importer.Run(ctx)
	}

	r := router.New(cfg, queries, pool, hub, publisher, sender)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
