package web

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"streampresence/internal/metrics"
	"streampresence/internal/models"
	"streampresence/internal/reporter"
	"streampresence/internal/tracker"
	"streampresence/pkg/utils"
)

const defaultHistoryLimit = 50

// StatusSource exposes the live loop state.
type StatusSource interface {
	Status() tracker.Status
}

// HistorySource is the read side of the watch history.
type HistorySource interface {
	reporter.Source
	ListSessions(limit int) ([]*models.WatchSession, error)
	RecentErrors(limit int) ([]*models.ErrorLog, error)
}

type Handler struct {
	status   StatusSource
	history  HistorySource
	reporter *reporter.Reporter
	log      logrus.FieldLogger
}

func NewHandler(status StatusSource, history HistorySource, log logrus.FieldLogger) *Handler {
	return &Handler{
		status:   status,
		history:  history,
		reporter: reporter.New(history),
		log:      log,
	}
}

// Router builds the route table.
func (h *Handler) Router() chi.Router {
	metrics.RegisterMetrics()

	r := chi.NewRouter()
	r.Get("/", h.handleIndex)
	r.Get("/health", h.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/history", h.handleHistory)
		r.Get("/errors", h.handleErrors)
		r.Get("/report", h.handleReport)
		r.Get("/report/{period}", h.handleReport)
	})
	return r
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, h.status.Status())
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessions, err := h.history.ListSessions(limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list sessions")
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, sessions)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	errs, err := h.history.RecentErrors(limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list errors")
		http.Error(w, "Failed to fetch errors", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, errs)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	periodType := chi.URLParam(r, "period")
	if periodType == "" {
		periodType = r.URL.Query().Get("period")
	}
	if periodType == "" {
		periodType = "day"
	}

	if _, err := reporter.Period(periodType, time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		h.log.WithError(err).Error("Failed to generate report")
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondReportHTML(w, report)
		return
	}
	h.respondJSON(w, report)
}

func (h *Handler) respondReportHTML(w http.ResponseWriter, report *models.Report) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(report.Titles) == 0 {
		_, _ = w.Write([]byte(`<div class="empty">Nothing watched in this period</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, t := range report.Titles {
		fmt.Fprintf(&b, `<div class="row"><span class="title">%s</span><span class="service">%s</span><span class="time">%s</span><span class="percent">%.1f%%</span></div>`,
			html.EscapeString(t.Title),
			html.EscapeString(t.Service),
			utils.FormatWatchTime(t.TotalSeconds),
			t.Percentage,
		)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatWatchTime(report.TotalSeconds))

	_, _ = w.Write([]byte(b.String()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit: %q", raw)
	}
	return limit, nil
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Error("Error encoding JSON")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>streampresence</title>
<script src="https://unpkg.com/htmx.org@1.9.10"></script>
<style>
body { font-family: sans-serif; margin: 2rem; background: #111; color: #eee; }
.row { display: flex; gap: 1rem; padding: 0.25rem 0; }
.title { flex: 1; }
.service, .time, .percent { width: 6rem; text-align: right; color: #aaa; }
.total { margin-top: 1rem; font-weight: bold; }
nav button { margin-right: 0.5rem; }
</style>
</head>
<body>
<h1>Watch time</h1>
<pre id="status" hx-get="/api/status" hx-trigger="load, every 10s"></pre>
<nav>
<button hx-get="/api/report/day" hx-target="#report">Today</button>
<button hx-get="/api/report/week" hx-target="#report">This week</button>
<button hx-get="/api/report/month" hx-target="#report">This month</button>
</nav>
<div id="report" hx-get="/api/report/day" hx-trigger="load"></div>
</body>
</html>
`
