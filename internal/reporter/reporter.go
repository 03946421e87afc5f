// Package reporter summarizes watch history over calendar periods.
package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"streampresence/internal/models"
	"streampresence/pkg/utils"
)

// Source is the subset of the repository the reporter reads.
type Source interface {
	GetTitleSummarySince(since time.Time) ([]models.TitleSummary, error)
	GetServiceSummarySince(since time.Time) ([]models.ServiceSummary, error)
}

// Reporter handles report generation
type Reporter struct {
	repo Source
	now  func() time.Time
}

// New creates a new reporter
func New(repo Source) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := Period(periodType, r.now())
	if err != nil {
		return nil, err
	}

	titles, err := r.repo.GetTitleSummarySince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get title summary: %w", err)
	}
	services, err := r.repo.GetServiceSummarySince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get service summary: %w", err)
	}

	var totalSeconds int64
	for i := range titles {
		titles[i].TotalMinutes = float64(titles[i].TotalSeconds) / 60.0
		titles[i].TotalHours = float64(titles[i].TotalSeconds) / 3600.0
		totalSeconds += titles[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range titles {
			titles[i].Percentage = (float64(titles[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
		for i := range services {
			services[i].TotalHours = float64(services[i].TotalSeconds) / 3600.0
			services[i].Percentage = (float64(services[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}

	return &models.Report{
		Period:       *period,
		Titles:       titles,
		Services:     services,
		TotalSeconds: totalSeconds,
		TotalMinutes: float64(totalSeconds) / 60.0,
		TotalHours:   float64(totalSeconds) / 3600.0,
		GeneratedAt:  r.now(),
	}, nil
}

// Period calculates the time range containing now
func Period(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Weeks start on Monday
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable tables
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Watch Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Time: %s (%.2fh)\n\n", utils.FormatWatchTime(report.TotalSeconds), report.TotalHours)

	if len(report.Titles) == 0 {
		b.WriteString("Nothing watched in this period.\n")
		return b.String()
	}

	titles := table.NewWriter()
	titles.SetStyle(table.StyleLight)
	titles.AppendHeader(table.Row{"Title", "Service", "Sessions", "Time", "Percent"})
	for _, t := range report.Titles {
		titles.AppendRow(table.Row{
			truncate(t.Title, 40),
			t.Service,
			t.SessionCount,
			utils.FormatWatchTime(t.TotalSeconds),
			fmt.Sprintf("%.1f%%", t.Percentage),
		})
	}
	b.WriteString(titles.Render())
	b.WriteString("\n\n")

	services := table.NewWriter()
	services.SetStyle(table.StyleLight)
	services.AppendHeader(table.Row{"Service", "Sessions", "Hours", "Percent"})
	for _, s := range report.Services {
		services.AppendRow(table.Row{
			s.Service,
			s.SessionCount,
			fmt.Sprintf("%.2f", s.TotalHours),
			fmt.Sprintf("%.1f%%", s.Percentage),
		})
	}
	b.WriteString(services.Render())
	b.WriteString("\n")

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
