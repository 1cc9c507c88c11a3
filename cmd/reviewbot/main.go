package main

import (
	"context"
	"log"

	"github.com/m3rciful/reviewbot/core/bootstrap"
	"github.com/m3rciful/reviewbot/core/cmd"
	"github.com/m3rciful/reviewbot/internal/bot"
	"github.com/m3rciful/reviewbot/internal/config"
)

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		EnvFiles:          []string{".env"},
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg := carrier.(*config.Config)
			opts := bootstrap.Options{Config: &cfg.Config}
			if cfg.UsesDatabase() {
				opts.Database = &cfg.Database
			}
			res, err := bootstrap.Run(opts)
			if err != nil {
				return nil, err
			}
			app, err := bot.New(context.Background(), cfg, res.DB)
			if err != nil {
				_ = res.Close()
				return nil, err
			}
			return app, nil
		},
	})
	if err != nil {
		log.Fatalf("reviewbot: %v", err)
	}
}
