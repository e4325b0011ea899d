package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandevgo/mualim/internal/config"
	"github.com/sandevgo/mualim/internal/providers/llm"
	"github.com/sandevgo/mualim/internal/service/bank"
	"github.com/sandevgo/mualim/internal/service/tutor"
	"github.com/sandevgo/mualim/internal/storage/sqlite"
	"github.com/sandevgo/mualim/internal/transport/cli"
	"github.com/sandevgo/mualim/internal/transport/telegram"
	"github.com/sandevgo/mualim/pkg/log"
	"github.com/sandevgo/mualim/pkg/retry"
	"github.com/sandevgo/mualim/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	err := initEnv(ctx, config.GetRuntimePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	geminiCfg := config.NewGeminiConfig(ctx)

	// 2. Storage
	db, crowdRepo, turnsRepo, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 3. Curated curriculum bank
	static, err := bank.NewStaticBank(appCfg.GetCurriculumPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load curriculum bank")
	}
	logger.Info().Int("entries", static.Size()).Msg("curriculum bank loaded")

	// 4. Inference provider with key rotation
	provider := llm.NewGemini(llm.GeminiConfig{
		APIKeys:           geminiCfg.APIKeys,
		Model:             geminiCfg.Model,
		SystemInstruction: tutor.SystemInstruction,
		Retry: &retry.Config{
			MaxAttempts: geminiCfg.RetryMaxAttempts,
			BaseDelay:   time.Duration(geminiCfg.RetryBaseDelayMS) * time.Millisecond,
			Multiplier:  geminiCfg.RetryMultiplier,
			MaxDelay:    10 * time.Second,
		},
	})
	logger.Info().Int("keys", provider.Pool().Size()).Str("model", geminiCfg.Model).Msg("inference provider ready")

	// 5. Resolution engine
	probe := llm.NewProbe()
	resolver := tutor.NewResolver(static, crowdRepo, provider, probe.Online, tutor.Config{
		MinCacheableAnswerLen: appCfg.MinCacheableAnswerLen,
		MaxHistoryTurns:       appCfg.ContextWindowSize,
		HistoryTokenBudget:    appCfg.ContextTokenBudget,
	})
	services = append(services, srv.NewCleanup(func() error {
		resolver.Close()
		return nil
	}))

	// 6. Transports
	transports, err := initTransports(ctx, appCfg, resolver, crowdRepo, turnsRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	services = append(services, transports...)

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, *sqlite.CrowdRepo, *sqlite.TurnsRepo, error) {
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, nil, err
	}
	return db, sqlite.NewCrowdRepo(db), sqlite.NewTurnsRepo(db), nil
}

func initTransports(
	ctx context.Context,
	cfg *config.AppConfig,
	resolver *tutor.Resolver,
	crowdRepo *sqlite.CrowdRepo,
	turnsRepo *sqlite.TurnsRepo,
) ([]srv.Service, error) {
	var services []srv.Service

	// Telegram Bot
	if cfg.EnableTelegram {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, resolver, turnsRepo, crowdRepo)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	// Local CLI
	if cfg.EnableCLI {
		rl, err := cli.NewReadLine(resolver, turnsRepo, cfg)
		if err != nil {
			return nil, err
		}
		services = append(services, rl)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
