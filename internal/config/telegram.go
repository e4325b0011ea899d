package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/mualim/pkg/log"
)

type TelegramConfig struct {
	Token string `env:"MUALIM_TELEGRAM_TOKEN,required,notEmpty"`
	// AdminID may see /stats; zero disables the command
	AdminID int64 `env:"MUALIM_TELEGRAM_ADMIN_ID"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	c := &TelegramConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Telegram config")
	}
	return c
}
