package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gymstack/presence/internal/config"
	"github.com/gymstack/presence/internal/db"
	"github.com/gymstack/presence/internal/httpapi"
	"github.com/gymstack/presence/internal/presence/service"
	sqlitestore "github.com/gymstack/presence/internal/presence/store/sqlite"
)

func main() {
	// Optional .env for local runs; real deployments set env directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "presence-server ", log.LstdFlags|log.LUTC)
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{KnownMembers: cfg.KnownMembers}); err != nil {
			logger.Fatalf("seed dev: %v", err)
		}
	}

	// Stores
	sessionStore := sqlitestore.NewSessionStore(conn, writer, loc)
	ledgerStore := sqlitestore.NewLedgerStore(conn, writer)
	statsStore := sqlitestore.NewStatsStore(conn, loc)
	memberStore := sqlitestore.NewMemberStore(conn)

	// Services
	registry := service.NewMemberRegistry(memberStore)
	tracker := service.NewSessionTracker(sessionStore, registry, service.SystemClock(), cfg.DefaultLocation)
	ledger := service.NewAttendanceLedger(ledgerStore, loc)
	stats := service.NewStatsService(statsStore, service.SystemClock())

	watchdog := service.NewOverstayWatchdog(sessionStore, service.WatchdogConfig{
		OverstayHours: cfg.OverstayHours,
		IntervalMin:   cfg.WatchdogIntervalMin,
	}, logger)
	watchdog.Start(ctx)
	defer watchdog.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:  logger,
		Addr:    cfg.HTTPAddr,
		Tracker: tracker,
		Ledger:  ledger,
		Stats:   stats,
	})

	go func() {
		logger.Printf("listening on %s (tz=%s)", cfg.HTTPAddr, cfg.Timezone)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
