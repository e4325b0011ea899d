package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/mualim/pkg/log"
)

type GeminiConfig struct {
	// Ordered credential list; the pool rotates through it on quota
	// errors. Empty entries are filtered out before pool construction.
	APIKeys []string `env:"MUALIM_GEMINI_API_KEYS" envSeparator:","`
	Model   string   `env:"MUALIM_GEMINI_MODEL" envDefault:"gemini-3-flash-preview"`

	RetryMaxAttempts int     `env:"MUALIM_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelayMS int     `env:"MUALIM_RETRY_BASE_DELAY_MS" envDefault:"500"`
	RetryMultiplier  float64 `env:"MUALIM_RETRY_MULTIPLIER" envDefault:"2"`
}

func NewGeminiConfig(ctx context.Context) *GeminiConfig {
	c := &GeminiConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Gemini config")
	}
	return c
}
