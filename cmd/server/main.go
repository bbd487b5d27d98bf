// Package main is the entry point for the Papertrade simulated trading backend.
// It wires the three databases, the market, portfolio and trading modules,
// the background price simulator and the HTTP server, then runs until
// interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/market"
	markethandlers "github.com/aristath/papertrade/internal/modules/market/handlers"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/papertrade/internal/modules/portfolio/handlers"
	"github.com/aristath/papertrade/internal/modules/trading"
	tradinghandlers "github.com/aristath/papertrade/internal/modules/trading/handlers"
	"github.com/aristath/papertrade/internal/scheduler"
	"github.com/aristath/papertrade/internal/server"
	"github.com/aristath/papertrade/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Papertrade")

	// Databases. The ledger gets the durable profile; the trade record
	// must survive a crash. Portfolio and market data are rebuildable
	// enough for the standard profile.
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	marketDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "market.db"),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open market database")
	}
	defer marketDB.Close()

	if err := trading.InitSchema(ledgerDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger schema")
	}
	if err := portfolio.InitSchema(portfolioDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize portfolio schema")
	}
	if err := market.InitSchema(marketDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize market schema")
	}

	// Events
	eventBus := events.NewBus()
	eventManager := events.NewManager(eventBus, log)

	// Repositories and services
	stockRepo := market.NewStockRepository(marketDB.Conn(), log)
	marketService := market.NewService(stockRepo, eventManager, log)

	holdingRepo := portfolio.NewHoldingRepository(portfolioDB.Conn(), log)
	portfolioService := portfolio.NewService(holdingRepo, marketService, eventManager, log)

	tradeRepo := trading.NewTradeRepository(ledgerDB.Conn(), log)
	tradingService := trading.NewService(tradeRepo, marketService, portfolioService, eventManager, log)

	if err := marketService.Seed(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed market data")
	}

	// Background jobs
	sched := scheduler.New(log)
	if cfg.PriceSimEnabled {
		simulator := market.NewSimulatorJob(marketService, 0, log)
		if err := sched.AddJob(cfg.PriceSimSchedule, simulator); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule price simulator")
		}
		// First tick right away; quotes should move before the first
		// scheduled run.
		if err := sched.RunNow(simulator); err != nil {
			log.Warn().Err(err).Msg("Initial simulation step failed")
		}
	}

	checkpoint := database.NewCheckpointJob(eventManager, log, ledgerDB, portfolioDB, marketDB)
	if err := sched.AddJob("@hourly", checkpoint); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule WAL checkpoint")
	}
	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:              log,
		Cfg:              cfg,
		LedgerDB:         ledgerDB,
		PortfolioDB:      portfolioDB,
		MarketDB:         marketDB,
		EventBus:         eventBus,
		MarketHandler:    markethandlers.NewHandler(marketService, log),
		PortfolioHandler: portfoliohandlers.NewHandler(portfolioService, log),
		TradingHandler:   tradinghandlers.NewHandler(tradingService, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
