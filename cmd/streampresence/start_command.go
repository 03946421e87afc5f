package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"streampresence/internal/broadcast"
	"streampresence/internal/config"
	"streampresence/internal/daemon"
	"streampresence/internal/detection"
	"streampresence/internal/discord"
	"streampresence/internal/metrics"
	"streampresence/internal/tmdb"
	"streampresence/internal/tracker"
	"streampresence/internal/web"
	"streampresence/pkg/detector"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var foreground bool
	var withWeb bool
	var webPort int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the presence daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := cfg.RequireCredentials(); err != nil {
				return fmt.Errorf("missing credentials: %w", err)
			}
			if withWeb {
				cfg.Web.Enabled = true
			}
			if webPort > 0 {
				if err := cfg.SetWebPort(webPort); err != nil {
					return err
				}
			}

			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if running {
				return fmt.Errorf("daemon is already running (PID: %d)", pid)
			}

			if !foreground && !daemon.IsChild() {
				childPID, err := daemon.Spawn(os.Args[1:])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon started successfully (PID: %d)\n", childPID)
				if cfg.Web.Enabled {
					fmt.Fprintf(cmd.OutOrStdout(), "Status page: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
				}
				logFile := cfg.Log.File
				if logFile == "" {
					logFile = defaultLogFile()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logs: %s\n", logFile)
				return nil
			}

			logFile := ""
			if daemon.IsChild() {
				logFile = defaultLogFile()
			}
			log, err := ctx.logger(cfg, logFile)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg, dm, log)
		},
	}

	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground instead of detaching")
	cmd.Flags().BoolVar(&withWeb, "web", false, "Serve the status page and metrics")
	cmd.Flags().IntVar(&webPort, "port", 0, "Status page port")
	return cmd
}

// runDaemon wires the detection, presence and history stack and polls until
// SIGINT or SIGTERM.
func runDaemon(parent context.Context, cfg *config.Config, dm *daemon.Daemon, log *logrus.Logger) error {
	if parent == nil {
		parent = context.Background()
	}

	if err := dm.Lock(); err != nil {
		return err
	}
	defer func() { _ = dm.Unlock() }()

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer func() { _ = dm.RemovePID() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeDB, err := openRepository(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer closeDB()

	enum, err := detector.New(log)
	if err != nil {
		return fmt.Errorf("failed to initialize window detector: %w", err)
	}
	defer func() { _ = enum.Close() }()
	log.WithField("display_server", enum.DisplayServer()).Info("Window detector initialized")

	fusion := detection.NewDefaultFusion(enum, log)

	client := discord.NewClient(discord.WithTimeout(cfg.Discord.Timeout))
	driver := broadcast.NewDriver(client, cfg.IdentityFor, log.WithField("component", "broadcast"))

	api, err := tmdb.New(cfg.TMDB.APIKey, tmdb.WithBaseURL(cfg.TMDB.BaseURL))
	if err != nil {
		return err
	}
	finder := tmdb.NewFinder(api, log.WithField("component", "tmdb"), cfg.TMDB.CacheTTL)

	metrics.RegisterMetrics()
	svc := tracker.NewService(cfg, fusion, driver, finder, log,
		tracker.WithHistory(repo),
		tracker.WithProcessCheck(enum),
	)
	defer svc.Shutdown()

	if cfg.Web.Enabled {
		server := web.NewServer(cfg, svc, repo, log.WithField("component", "web"))
		go func() {
			if err := server.Start(ctx); err != nil {
				log.WithError(err).Error("Web server stopped")
			}
		}()
	}

	log.Info("Starting streampresence daemon")
	log.Debugf("%s", cfg)

	if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tracker error: %w", err)
	}

	log.Info("Daemon stopped successfully")
	return nil
}
