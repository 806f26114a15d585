// README: Entry point; loads config, wires services, starts HTTP server and the termination sweeper.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harvest/internal/config"
	httptransport "harvest/internal/http"
	"harvest/internal/infra"
	"harvest/internal/modules/catalog"
	"harvest/internal/modules/notification"
	"harvest/internal/modules/order"
	"harvest/internal/modules/transaction"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Error("connect db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	producer := notification.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() { _ = producer.Close() }()
	notifier := notification.NewService(producer, logger)

	catalogStore := catalog.NewStore(dbPool, redisClient)
	catalogSvc := catalog.NewService(catalogStore)

	orderStore := order.NewStore(dbPool)
	orderSvc := order.NewService(orderStore, catalogSvc, notifier)

	transactionStore := transaction.NewStore(dbPool)
	transactionSvc := transaction.NewService(
		transactionStore,
		orderSvc,
		notifier,
		logger,
		time.Duration(cfg.Sweep.IntervalSeconds)*time.Second,
	)
	orderSvc.SetSettlements(transactionSvc)

	go transactionSvc.RunTerminationSweeper(ctx)

	router := httptransport.NewRouter(orderSvc, transactionSvc, logger)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("harvest-api listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}
