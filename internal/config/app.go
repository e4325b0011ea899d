package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/mualim/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"MUALIM_RUNTIME_PATH" envDefault:".mualim"`

	// Transport flags
	EnableTelegram bool `env:"MUALIM_ENABLE_TELEGRAM" envDefault:"false"`
	EnableCLI      bool `env:"MUALIM_ENABLE_CLI" envDefault:"true"`

	// Conversation window passed to the provider
	ContextWindowSize  int `env:"MUALIM_CONTEXT_WINDOW_SIZE" envDefault:"8"`
	ContextTokenBudget int `env:"MUALIM_CONTEXT_TOKEN_BUDGET" envDefault:"4096"`

	// Answers shorter than this are never cached (trivial/truncated output)
	MinCacheableAnswerLen int `env:"MUALIM_MIN_CACHEABLE_LEN" envDefault:"20"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "mualim.db")
}

func (c AppConfig) GetCurriculumPath() string {
	return filepath.Join(c.RuntimePath, "curriculum.json")
}
