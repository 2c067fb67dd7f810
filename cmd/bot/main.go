package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"channelmart/internal/config"
	"channelmart/internal/db"
	"channelmart/internal/httpserver"
	"channelmart/internal/logger"
	"channelmart/internal/migrate"
	"channelmart/internal/ocr"
	cartrepo "channelmart/internal/repository/cart"
	orderrepo "channelmart/internal/repository/order"
	productrepo "channelmart/internal/repository/product"
	sourcerepo "channelmart/internal/repository/source"
	cartsvc "channelmart/internal/service/cart"
	catalogsvc "channelmart/internal/service/catalog"
	ordersvc "channelmart/internal/service/order"
	"channelmart/internal/telegram"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}

	msgr, err := telegram.New(cfg.BotToken, cfg.SinkChatID, log)
	if err != nil {
		log.Fatal("init telegram", zap.Error(err))
	}

	products := productrepo.NewPostgres(dbpool, log)
	sources := sourcerepo.NewPostgres(dbpool)
	carts := cartrepo.NewPostgres(dbpool)
	orders := orderrepo.NewPostgres(dbpool)

	modCfg := ordersvc.Config{
		ModeratorGroupID: cfg.ModeratorGroupID,
		ModeratorIDs:     cfg.ModeratorIDs,
	}

	catalogService := catalogsvc.New(products, sources, msgr, log)
	cartService := cartsvc.New(carts, products, log)
	orderService := ordersvc.New(orders, products, cartService, msgr, modCfg, log)

	var extractor *ocr.Extractor
	if cfg.EnableOCR {
		if extractor = ocr.New(cfg.TesseractCmd); extractor == nil {
			log.Warn("ocr enabled but tesseract not found", zap.String("cmd", cfg.TesseractCmd))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := telegram.NewHandler(msgr, orderService, extractor, modCfg, log)
	go handler.Run(runCtx)

	srv, err := httpserver.New(cfg.HTTPAddr, log, dbpool, httpserver.Deps{
		Catalog: catalogService,
		Carts:   cartService,
		Orders:  orderService,
		Sources: sources,
	})
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}
