package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"streampresence/internal/daemon"
	"streampresence/internal/detection"
	"streampresence/pkg/detector"
	"streampresence/pkg/media"
)

const stopTimeout = 10 * time.Second

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the presence daemon and clear the status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			dm := daemon.New(cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			out := cmd.OutOrStdout()
			if !running {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}

			fmt.Fprintf(out, "Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(stopTimeout); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Fprintln(out, "Daemon stopped successfully")
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipDetect bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and what would be detected right now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if running {
				fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
				fmt.Fprintf(out, "Poll Interval: %v\n", cfg.Tracker.PollInterval)
				if cfg.Web.Enabled {
					fmt.Fprintf(out, "Status page: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
				}
			} else {
				fmt.Fprintln(out, "Status: Not running")
			}

			if skipDetect {
				return nil
			}

			log := logrus.New()
			log.SetOutput(io.Discard)
			enum, err := detector.New(log)
			if err != nil {
				fmt.Fprintf(out, "\nCould not detect windows: %v\n", err)
				return nil
			}
			defer func() { _ = enum.Close() }()

			res := detection.NewDefaultFusion(enum, log).Run(context.Background())
			fmt.Fprintf(out, "\nDisplay: %s\n", enum.DisplayServer())
			printDetection(out, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDetect, "no-detect", false, "Skip the one-shot detection")
	return cmd
}

func printDetection(out io.Writer, res detection.Result) {
	rec := res.Record
	if !rec.Watching {
		fmt.Fprintln(out, "Detected: nothing")
		if res.Rejected != "" {
			fmt.Fprintf(out, "  Rejected: %s (%s)\n", res.RawTitle, res.Rejected)
		}
		return
	}
	fmt.Fprintln(out, "Detected:")
	fmt.Fprintf(out, "  Service:  %s\n", rec.Service)
	fmt.Fprintf(out, "  Title:    %s\n", rec.Title)
	fmt.Fprintf(out, "  Type:     %s\n", rec.Type)
	fmt.Fprintf(out, "  Status:   %s\n", media.StatusLine(rec.Service, rec.Type, rec.Episode))
	fmt.Fprintf(out, "  Strategy: %s\n", res.Strategy)
}
