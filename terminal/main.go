package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pharmapos/m/internal/api"
	"pharmapos/m/internal/backend"
	"pharmapos/m/internal/cart"
	"pharmapos/m/internal/checkout"
	"pharmapos/m/internal/config"
	"pharmapos/m/internal/database"
	"pharmapos/m/internal/journal"
	"pharmapos/m/internal/logger"
	"pharmapos/m/internal/migrations"
	"pharmapos/m/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	receipts := journal.New(db)
	co := checkout.New(client, receipts, cart.QuantityUnit(cfg.SaleQuantityUnit), log)

	handler := api.New(session.NewStore(), client, co, receipts, log, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        cfg.MetricsEnabled,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("pharmacy POS terminal starting", "addr", srv.Addr, "backend", cfg.BackendURL, "quantity_unit", cfg.SaleQuantityUnit)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
