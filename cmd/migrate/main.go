package main

import (
	"context"

	"channelmart/internal/config"
	"channelmart/internal/db"
	"channelmart/internal/logger"
	"channelmart/internal/migrate"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}

	log.Info("migrations applied")
}
