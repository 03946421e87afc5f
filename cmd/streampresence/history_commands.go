package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"streampresence/internal/models"
	"streampresence/internal/reporter"
	"streampresence/pkg/media"
	"streampresence/pkg/utils"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showErrors bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent watch sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			if showErrors {
				errs, err := repo.RecentErrors(limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderErrors(errs))
				return nil
			}

			sessions, err := repo.ListSessions(limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No watch sessions recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderSessions(sessions, time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&showErrors, "errors", false, "Show recent errors instead of sessions")
	return cmd
}

func renderSessions(sessions []*models.WatchSession, now time.Time) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		status := ""
		if s.Season > 0 || s.Episode > 0 {
			status = media.StatusLine(media.Service(s.Service), media.Type(s.MediaType), &media.Episode{
				Season: s.Season, Number: s.Episode, Title: s.EpisodeTitle,
			})
		}
		duration := s.Duration
		if s.Open() {
			duration = int64(now.Sub(s.StartedAt).Seconds())
		}
		rows = append(rows, []string{
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Service,
			s.Title,
			status,
			utils.FormatWatchTime(duration),
			strconv.Itoa(s.Refreshes),
		})
	}
	return renderTable(
		[]string{"Started", "Service", "Title", "Episode", "Duration", "Refreshes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func renderErrors(errs []*models.ErrorLog) string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{e.Timestamp.Local().Format(time.DateTime), e.Op, e.Service, e.ErrorMsg})
	}
	return renderTable([]string{"Time", "Operation", "Service", "Error"}, rows, nil)
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Summarize watch time for a period",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "today", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) == 1 {
				periodType = args[0]
			}

			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			rep := reporter.New(repo)
			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, data)
				return nil
			}
			fmt.Fprint(out, rep.FormatReportText(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete watch sessions older than a number of days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			deleted, err := repo.DeleteOldSessions(time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sessions\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Keep sessions newer than this many days")
	return cmd
}
