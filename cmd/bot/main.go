package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fourmind/internal/analysis"
	"fourmind/internal/analytics"
	"fourmind/internal/config"
	"fourmind/internal/engine"
	"fourmind/internal/gameserver"
	"fourmind/internal/generation"
	"fourmind/internal/llm"
	"fourmind/internal/notify"
	"fourmind/internal/proactive"
	"fourmind/internal/scheduler"
	"fourmind/internal/session"
	"fourmind/internal/storage"
	"fourmind/internal/timing"
)

func main() {
	logger := newLogger("info")

	if err := godotenv.Load(".env"); err != nil {
		logger.Debug().Err(err).Msg(".env file not found")
	}

	cfg, err := config.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg.LogLevel)
	logger.Info().Bool("persist", cfg.PersistChats).Str("provider", cfg.LLMProvider).Msg("starting fourmind bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := llm.NewFactory(cfg)
	analysisClient, err := factory.CreateClient(cfg.LLMProvider, cfg.AnalysisModel, cfg.AnalysisTemperature)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create analysis llm client")
	}
	generationClient, err := factory.CreateClient(cfg.LLMProvider, cfg.GenerationModel, cfg.GenerationTemperature)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create generation llm client")
	}

	var archiver session.Archiver
	var store *storage.FileStore
	if cfg.PersistChats {
		store, err = storage.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init session store")
		}
		archiver = store
	}

	reg := session.NewRegistry(archiver, logger)
	analyzer := llm.NewFourSides(analysisClient, logger)
	generator := llm.NewLookahead(generationClient, logger)
	queues := analysis.NewManager(analyzer, cfg.AnalysisTimeout, logger)
	sim := timing.NewSimulator()
	coord := generation.NewCoordinator(reg, generator, sim, cfg.GenerationTimeout, logger)

	proCfg := proactive.DefaultConfig()
	proCfg.SessionLifetime = cfg.SessionLifetime
	proCfg.Poll = cfg.ProactivePoll
	proCfg.EarlySilence = cfg.EarlySilence
	proCfg.LateSilence = cfg.LateSilence
	proCfg.GenTimeout = cfg.GenerationTimeout

	eng := engine.New(ctx, reg, queues, coord, generator, sim, proCfg, logger)
	gs := gameserver.New(cfg.GameServerURL, cfg.GameAPIKey, cfg.BotName, cfg.Language, eng, logger)
	eng.SetTransport(gs)

	if cfg.TelegramBotToken != "" && cfg.AdminChatID != 0 && store != nil {
		notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.AdminChatID, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to init telegram notifier, reports disabled")
		} else {
			sched := scheduler.New(logger)
			sched.SetReportFunc(func(ctx context.Context) error {
				snaps, err := store.LoadSnapshots()
				if err != nil {
					return err
				}
				stats := analytics.AnalyzeDailyGames(snaps, time.Now().UTC())
				return notifier.Send(stats.Summary())
			})
			if err := sched.Start(); err != nil {
				logger.Error().Err(err).Msg("failed to start scheduler")
			} else {
				defer sched.Stop()
			}
		}
	}

	if err := gs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("game server connection ended")
	}

	// Drain and persist whatever is still running.
	eng.Shutdown()
	logger.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}
