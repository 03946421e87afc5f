package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"streampresence/internal/broadcast"
	"streampresence/internal/config"
	"streampresence/internal/discord"
	"streampresence/internal/tmdb"
	"streampresence/internal/tracker"
)

func newTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Broadcast a sample show until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if cfg.Discord.ClientID == "" {
				return fmt.Errorf("missing credentials: %w", config.ErrMissingClientID)
			}
			log, err := ctx.logger(cfg, "")
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := discord.NewClient(discord.WithTimeout(cfg.Discord.Timeout))
			driver := broadcast.NewDriver(client, cfg.IdentityFor, log)

			var artwork tracker.ArtworkFinder
			if cfg.TMDB.APIKey != "" {
				api, err := tmdb.New(cfg.TMDB.APIKey, tmdb.WithBaseURL(cfg.TMDB.BaseURL))
				if err != nil {
					return err
				}
				artwork = tmdb.NewFinder(api, log, cfg.TMDB.CacheTTL)
			}

			return tracker.RunSample(runCtx, driver, artwork, log)
		},
	}
}
