package reporter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"streampresence/internal/models"
)

type fakeSource struct {
	titles   []models.TitleSummary
	services []models.ServiceSummary
	err      error
	since    time.Time
}

func (f *fakeSource) GetTitleSummarySince(since time.Time) ([]models.TitleSummary, error) {
	f.since = since
	return f.titles, f.err
}

func (f *fakeSource) GetServiceSummarySince(since time.Time) ([]models.ServiceSummary, error) {
	return f.services, f.err
}

func TestPeriod(t *testing.T) {
	// Thursday
	now := time.Date(2024, 5, 2, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{"day", "day", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), false},
		{"today alias", "today", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), false},
		{"week starts monday", "week", time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), false},
		{"month", "month", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"invalid", "year", time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Period(tt.period, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Period() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("Period() = %v - %v, want %v - %v", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestGenerateReport(t *testing.T) {
	src := &fakeSource{
		titles: []models.TitleSummary{
			{Service: "Disney+", Title: "Encanto", TotalSeconds: 5400, SessionCount: 1},
			{Service: "Netflix", Title: "Dark", TotalSeconds: 1800, SessionCount: 2},
		},
		services: []models.ServiceSummary{
			{Service: "Disney+", TotalSeconds: 5400, SessionCount: 1},
			{Service: "Netflix", TotalSeconds: 1800, SessionCount: 2},
		},
	}
	r := New(src)
	r.now = func() time.Time { return time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC) }

	report, err := r.GenerateReport("day")
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	if !src.since.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("queried since %v, want start of day", src.since)
	}
	if report.TotalSeconds != 7200 || report.TotalHours != 2 {
		t.Errorf("totals = %ds / %.2fh, want 7200s / 2h", report.TotalSeconds, report.TotalHours)
	}
	if report.Titles[0].Percentage != 75 || report.Services[1].Percentage != 25 {
		t.Errorf("percentages = %.1f / %.1f, want 75 / 25", report.Titles[0].Percentage, report.Services[1].Percentage)
	}

	text := r.FormatReportText(report)
	for _, want := range []string{"Watch Report - day", "Encanto", "Dark", "Total Time: 2h"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}

	out, err := r.FormatReportJSON(report)
	if err != nil {
		t.Fatalf("FormatReportJSON() error = %v", err)
	}
	var decoded models.Report
	if err := json.Unmarshal([]byte(out), &decoded); err != nil || len(decoded.Titles) != 2 {
		t.Errorf("json report = %s, %v", out, err)
	}
}

func TestGenerateReportEmptyAndError(t *testing.T) {
	r := New(&fakeSource{})
	report, err := r.GenerateReport("week")
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	if !strings.Contains(r.FormatReportText(report), "Nothing watched") {
		t.Error("empty report should say nothing was watched")
	}

	r = New(&fakeSource{err: errors.New("disk full")})
	if _, err := r.GenerateReport("day"); err == nil {
		t.Error("expected repository error to propagate")
	}
}
