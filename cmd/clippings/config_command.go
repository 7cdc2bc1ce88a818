package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ClippingsImporter/internal/config"
)

const redacted = "********"

func newConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(redact(cfg))
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
}

func redact(cfg config.Config) config.Config {
	for _, secret := range []*string{&cfg.Pure.APIKey, &cfg.ChatGPT.APIKey, &cfg.Notifications.Telegram.BotToken} {
		if *secret != "" {
			*secret = redacted
		}
	}
	return cfg
}
