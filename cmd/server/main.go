// Package main is the entry point for the TradePulse trading analytics service.
// It wires the SQLite trade ledger, the analytics bridge and orchestrator, the
// event bus, the background scheduler, and the HTTP API, then blocks until a
// shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/tradepulse/internal/bridge"
	"github.com/aristath/tradepulse/internal/config"
	"github.com/aristath/tradepulse/internal/database"
	"github.com/aristath/tradepulse/internal/events"
	"github.com/aristath/tradepulse/internal/modules/trades"
	"github.com/aristath/tradepulse/internal/orchestrator"
	"github.com/aristath/tradepulse/internal/scheduler"
	"github.com/aristath/tradepulse/internal/server"
	"github.com/aristath/tradepulse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting TradePulse")

	// The ledger database is the immutable record of imported trades.
	// Everything else (analytics results, caches) is derived from it.
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerPath(),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	repo := trades.NewRepository(ledgerDB.Conn(), log)
	if err := repo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger schema")
	}

	eventBus := events.NewBus(log)

	analyticsBridge := bridge.New(log, bridge.Options{
		ForceSync: !cfg.WorkerEnabled,
	})
	if err := analyticsBridge.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize analytics bridge")
	}

	orch := orchestrator.New(analyticsBridge, eventBus, log, orchestrator.Options{
		Debounce:  cfg.Debounce,
		CacheSize: cfg.CacheSize,
	})

	tradeService := trades.NewService(repo, orch, eventBus, cfg.Analytics, log)

	// Warm the snapshot from whatever the ledger already holds so the first
	// API reader does not see an empty state after a restart.
	if err := tradeService.Recompute(); err != nil {
		log.Error().Err(err).Msg("Initial analytics recompute failed")
	}

	sched := scheduler.New(log)
	if err := sched.AddJob("@hourly", scheduler.NewRefreshJob(tradeService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	if err := sched.AddJob("@daily", scheduler.NewMaintenanceJob(ledgerDB, orch, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:          log,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		DataDir:      cfg.DataDir,
		LedgerDB:     ledgerDB,
		TradeService: tradeService,
		Orchestrator: orch,
		EventBus:     eventBus,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sched.Stop()

	// Terminating the orchestrator also shuts down the bridge worker, so any
	// in-flight computation is dropped before the process exits.
	orch.Terminate()

	log.Info().Msg("Shutdown complete")
}
