package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/api"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/infra/exchange/paper"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/infra/feed/dexscreener"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/infra/journal/sqlite"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/infra/notify"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/infra/store/jsonfile"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/pkg/config"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/pkg/logger"
	executionsvc "github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/service/execution"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/service/monitor"
)

const (
	serviceName    = "jarvis-exit-runtime"
	serviceVersion = "1.0.0"
)

func main() {
	intervalFlag := flag.Int("interval", 0, "monitor pass interval in seconds (overrides env)")
	onceFlag := flag.Bool("once", false, "run a single evaluation pass and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		RotationSize:   cfg.Logging.RotationSize,
		RetentionDays:  cfg.Logging.RetentionDays,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("version", serviceVersion).
		Msg("🚀 Starting Exit Engine Runtime...")

	if *intervalFlag > 0 {
		cfg.Monitor.Interval = time.Duration(*intervalFlag) * time.Second
	}

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ========================================
	// 1. Stores
	// ========================================
	intentStore := jsonfile.New(cfg.Store.IntentsPath)

	journal, err := sqlite.New(cfg.Store.JournalPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open execution journal")
	}
	defer journal.Close()

	log.Info().
		Str("intents", cfg.Store.IntentsPath).
		Str("journal", cfg.Store.JournalPath).
		Msg("✅ Stores ready")

	// ========================================
	// 2. Price feed
	// ========================================
	feed := dexscreener.NewClient(cfg.Feed.DexScreenerBaseURL, cfg.Feed.Timeout)

	// ========================================
	// 3. Notification pipeline
	// ========================================
	sinks := []notify.Sink{notify.NewLogSink()}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		sinks = append(sinks, notify.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID, ""))
		log.Info().Msg("✅ Telegram sink configured")
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.BufferSize, cfg.Notify.Cooldown, sinks...)
	dispatcher.Start()

	// ========================================
	// 4. Execution gateway
	// ========================================
	var venue execution.Exchange
	var mode execution.Mode
	switch cfg.Execution.Mode {
	case "paper":
		venue = paper.New()
		mode = execution.ModePaper
	case "live":
		log.Fatal().Msg("Live execution requires an exchange adapter; this build ships paper only")
	default:
		log.Fatal().Str("mode", cfg.Execution.Mode).Msg("Unknown execution mode")
	}

	gateway := executionsvc.NewGateway(venue, journal, dispatcher, mode,
		cfg.Execution.MaxAttempts, cfg.Execution.MaxSlippageBps)

	log.Info().Str("mode", string(mode)).Msg("✅ Execution gateway ready")

	// ========================================
	// 5. Exit monitor
	// ========================================
	ratchetMode := monitor.RatchetMode(cfg.Monitor.RatchetMode)
	switch ratchetMode {
	case monitor.RatchetOff, monitor.RatchetBreakeven:
	default:
		log.Fatal().Str("mode", cfg.Monitor.RatchetMode).Msg("Unknown stop ratchet mode")
	}

	mon := monitor.NewService(monitor.Config{
		Interval:         cfg.Monitor.Interval,
		PassTimeout:      cfg.Monitor.PassTimeout,
		FetchTimeout:     cfg.Monitor.FetchTimeout,
		FetchConcurrency: cfg.Monitor.FetchConcurrency,
		DustThreshold:    cfg.Monitor.DustThreshold,
		RatchetMode:      ratchetMode,
		RatchetBufferPct: cfg.Monitor.RatchetBufferPct,
	}, intentStore, feed, gateway, dispatcher)

	if *onceFlag {
		if err := mon.RunOnce(ctx); err != nil {
			log.Fatal().Err(err).Msg("Single pass failed")
		}
		dispatcher.Stop()
		log.Info().Msg("👋 Single pass complete")
		return
	}

	if err := mon.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start exit monitor")
	}

	// ========================================
	// 6. Ops API
	// ========================================
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(api.Config{
			Port:           cfg.API.Port,
			AllowedOrigins: cfg.API.AllowedOrigins,
		}, mon, journal)
		apiServer.Start()
	}

	log.Info().Msg("🎯 Exit Engine Runtime is running")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("🛑 Shutdown signal received, stopping services...")

	// The monitor finishes its in-flight pass before returning
	mon.Stop()

	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API shutdown failed")
		}
	}

	// Drain pending notifications last
	dispatcher.Stop()

	log.Info().Msg("👋 Exit Engine Runtime stopped")
}
