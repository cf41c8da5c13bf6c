package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"washbot/config"
	"washbot/pkg/bot"
	"washbot/pkg/logger"
	"washbot/pkg/notifier"
	"washbot/service"
	"washbot/storage/postgres"
	"washbot/storage/redisdb"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgStore, err := postgres.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pgStore.Close()

	cache, err := redisdb.New(cfg, log)
	if err != nil {
		log.Error("failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer cache.Close()

	mailer := notifier.New(cfg, pgStore, log)
	svc := service.New(pgStore, cache, cache, mailer, log)

	customerBot, err := bot.New(bot.BotTypeCustomer, &cfg, svc, pgStore, log)
	if err != nil {
		log.Error("failed to initialize customer bot", logger.Error(err))
		os.Exit(1)
	}

	adminBot, err := bot.New(bot.BotTypeAdmin, &cfg, svc, pgStore, log)
	if err != nil {
		log.Error("failed to initialize admin bot", logger.Error(err))
		os.Exit(1)
	}

	// Both bots listen on the shared order-events channel: the customer bot
	// pushes status updates to order owners, the admin bot to the admin.
	if err := cache.SubscribeOrderEvents(ctx, customerBot.HandleOrderEvent); err != nil {
		log.Error("failed to subscribe to order events", logger.Error(err))
		os.Exit(1)
	}
	if err := cache.SubscribeOrderEvents(ctx, adminBot.HandleOrderEvent); err != nil {
		log.Error("failed to subscribe to order events", logger.Error(err))
		os.Exit(1)
	}

	go customerBot.Start()
	go adminBot.Start()
	log.Info("🚀 Both bots are now running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down")
	customerBot.Stop()
	adminBot.Stop()
}
