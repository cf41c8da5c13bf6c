package main

import (
	"context"

	"washbot/config"
	"washbot/pkg/logger"
	"washbot/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	pg, err := postgres.New(context.Background(), cfg, log)
	if err != nil {
		panic(err)
	}
	defer pg.Close()

	// Truncate user data and everything hanging off it. The services
	// catalog is system data and survives the reset.
	_, err = pg.GetPool().Exec(context.Background(),
		"TRUNCATE TABLE users, addresses, bookings, orders, order_items, admin_logs, email_logs CASCADE")
	if err != nil {
		log.Error("failed to truncate tables", logger.Error(err))
		return
	}
	log.Info("user data truncated, services kept")
}
