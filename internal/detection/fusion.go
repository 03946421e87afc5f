package detection

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"streampresence/internal/classifier"
	"streampresence/internal/metrics"
	"streampresence/internal/titleparse"
	"streampresence/pkg/media"
	"streampresence/pkg/window"
)

// Titles naming project artifacts are dropped whatever their provenance.
var artifactMarkers = []string{
	"readme", ".md", "documentation", "repository", "github",
	"project", "folder", "source code", "disney + & netflix",
}

// Result describes one fusion pass for logs and the status command.
type Result struct {
	Record   media.Record
	Strategy string
	RawTitle string
	Rejected string
}

// Fusion runs the collectors as a strict priority cascade.
type Fusion struct {
	collectors []Collector
	focus      Focus
	log        logrus.FieldLogger
}

// NewFusion returns a fusion over collectors in priority order.
func NewFusion(log logrus.FieldLogger, collectors ...Collector) *Fusion {
	return &Fusion{collectors: collectors, log: log}
}

// NewDefaultFusion wires the process, native-app and browser-tab
// collectors over one enumerator.
func NewDefaultFusion(enum window.Enumerator, log logrus.FieldLogger) *Fusion {
	f := NewFusion(log,
		NewProcessCollector(enum, log.WithField("collector", "process")),
		NewNativeCollector(enum, log.WithField("collector", "native")),
		NewBrowserCollector(enum, log.WithField("collector", "browser")),
	)
	return f.WithFocus(enum)
}

// WithFocus sets the source of the foreground window. Without one every
// collector runs with no foreground handle.
func (f *Fusion) WithFocus(focus Focus) *Fusion {
	f.focus = focus
	return f
}

// Detect returns the record for this cycle.
func (f *Fusion) Detect(ctx context.Context) media.Record {
	return f.Run(ctx).Record
}

// Run executes one cascade. The first strategy that yields a candidate
// decides the cycle; a rejected candidate ends the cycle as not watching.
func (f *Fusion) Run(ctx context.Context) Result {
	active := activeHandle(f.focus)
	for _, c := range f.collectors {
		if ctx.Err() != nil {
			return Result{Record: media.NotWatching()}
		}

		cands, err := c.Collect(ctx, active)
		if err != nil {
			f.log.WithError(err).WithField("strategy", c.Name()).Warn("Collector failed")
			metrics.CollectorErrors.WithLabelValues(c.Name()).Inc()
			continue
		}

		cand, ok := Select(cands)
		if !ok {
			continue
		}
		metrics.Detections.WithLabelValues(c.Name()).Inc()
		res := f.finish(cand)
		res.Strategy = c.Name()
		return res
	}
	return Result{Record: media.NotWatching()}
}

func (f *Fusion) finish(cand Candidate) Result {
	rec := cand.Record
	res := Result{RawTitle: cand.RawTitle}

	if titleparse.IsBare(rec.Title, rec.Service) {
		rec.Title = rec.Service.Placeholder()
		rec.Type = media.TypeUnknown
		rec.Episode = nil
	}

	logger := f.log.WithFields(logrus.Fields{
		"service": rec.Service,
		"title":   titleparse.SanitizeForLog(rec.Title),
		"source":  rec.DetectedBy,
	})

	if v := classifier.Classify(rec, cand.RawTitle); !v.Genuine {
		logger.WithFields(logrus.Fields{"rule": v.Rule, "marker": v.Marker}).Info("Ignoring false positive")
		return f.reject(res, v.Rule)
	}

	lower := strings.ToLower(rec.Title)
	if containsAny(lower, artifactMarkers) {
		logger.Info("Detected project artifact, not streaming media")
		return f.reject(res, "artifact")
	}
	if rec.DetectedBy != media.SourceSystemProcess && utf8.RuneCountInString(strings.TrimSpace(rec.Title)) < classifier.MinTitleLength {
		logger.Info("Title too short, likely not valid media")
		return f.reject(res, "too-short")
	}

	if f.focus != nil && rec.Handle != 0 {
		logger = logger.WithField("visible", f.focus.IsVisible(rec.Handle))
	}
	logger.WithField("foreground", cand.Foreground).Debug("Selected media")
	res.Record = rec.Stripped()
	return res
}

func (f *Fusion) reject(res Result, rule string) Result {
	metrics.Rejections.WithLabelValues(rule).Inc()
	res.Record = media.NotWatching()
	res.Rejected = rule
	return res
}
