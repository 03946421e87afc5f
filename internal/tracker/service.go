// Package tracker runs the poll loop: detect, decide, broadcast, record.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"streampresence/internal/config"
	"streampresence/internal/detection"
	"streampresence/internal/metrics"
	"streampresence/internal/models"
	"streampresence/internal/presence"
	"streampresence/internal/titleparse"
	"streampresence/pkg/media"
	"streampresence/pkg/window"
)

const shutdownTimeout = 5 * time.Second

// Detector produces one fused detection per call.
type Detector interface {
	Run(ctx context.Context) detection.Result
}

// Broadcaster is the presence backend as seen by the loop.
type Broadcaster interface {
	ConnectWithRetry(ctx context.Context) error
	Degraded() bool
	Reconnect(ctx context.Context) error
	Push(ctx context.Context, snap presence.Snapshot) bool
	Clear(ctx context.Context) error
	Shutdown(ctx context.Context)
}

// ArtworkFinder resolves poster paths.
type ArtworkFinder interface {
	SearchImage(ctx context.Context, title string, typ media.Type, season int) (string, error)
}

// History records watch sessions and cycle errors.
type History interface {
	StartSession(session *models.WatchSession) error
	RecordRefresh(id uint, refreshes int, at time.Time) error
	EndOpenSessions(at time.Time) (int64, error)
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// ProcessLister is used for the Discord-running precheck.
type ProcessLister interface {
	ListProcesses() ([]window.Process, error)
}

type Service struct {
	detector  Detector
	driver    Broadcaster
	artwork   ArtworkFinder
	history   History
	procs     ProcessLister
	log       logrus.FieldLogger
	policy    presence.RefreshPolicy
	interval  *presence.Interval
	threshold int
	now       func() time.Time

	// Loop-owned
	state     presence.State
	sessionID uint
	failures  int

	mu      sync.Mutex
	status  Status
	running bool

	stopChan     chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
}

// Option configures a Service.
type Option func(*Service)

// WithProcessCheck enables the Discord-running precheck on start.
func WithProcessCheck(procs ProcessLister) Option {
	return func(s *Service) { s.procs = procs }
}

// WithHistory records sessions and cycle errors.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg *config.Config, detector Detector, driver Broadcaster, artwork ArtworkFinder, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		detector: detector,
		driver:   driver,
		artwork:  artwork,
		log:      log,
		policy: presence.RefreshPolicy{
			Period:    cfg.Tracker.RefreshPeriod,
			Tolerance: presence.DefaultRefreshPolicy().Tolerance,
		},
		interval:  presence.DefaultInterval(cfg.Tracker.PollInterval),
		threshold: cfg.Tracker.ErrorThreshold,
		now:       time.Now,
		state:     presence.Idle(),
		stopChan:  make(chan struct{}),
	}
	if s.threshold <= 0 {
		s.threshold = 3
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects to Discord and polls until ctx is cancelled or Stop is
// called. Cleanup runs once on return.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.running = true
	s.status.Running = true
	s.mu.Unlock()

	defer func() {
		s.Shutdown()
		s.mu.Lock()
		s.running = false
		s.status.Running = false
		s.mu.Unlock()
	}()

	s.connect(ctx)
	s.log.WithField("interval", s.interval.Base).Info("Starting tracker")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Tracker stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.log.Info("Tracker stopped")
			return nil

		case <-timer.C:
			wait := s.Cycle(ctx)
			timer.Reset(wait)
		}
	}
}

// Stop ends the loop started by Start
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Shutdown clears the presence, closes the connection and ends the open
// history session. Only the first call has an effect.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.log.Info("Shutting down, clearing presence")
		shutdown(s.driver)
		s.endSession(s.now())
		metrics.Watching.Reset()
	})
}

func (s *Service) connect(ctx context.Context) {
	if s.procs != nil {
		running, err := DiscordRunning(s.procs)
		switch {
		case err != nil:
			s.log.WithError(err).Warn("Could not check whether Discord is running")
		case !running:
			s.log.Warn("Discord does not appear to be running, presence updates will fail until it starts")
		}
	}
	if err := s.driver.ConnectWithRetry(ctx); err != nil {
		s.storeError("connect", err)
	}
}

// Cycle runs one detection and reconciliation pass and returns the wait
// before the next one.
func (s *Service) Cycle(ctx context.Context) time.Duration {
	started := time.Now()
	defer func() { metrics.CycleDuration.Observe(time.Since(started).Seconds()) }()

	res := s.detector.Run(ctx)
	now := s.now()
	dec := presence.Transition(s.state, res.Record, now, s.policy)

	ok := true
	switch dec.Action {
	case presence.ActionNone:
		s.state = dec.Next

	case presence.ActionClear:
		if err := s.driver.Clear(ctx); err != nil {
			s.log.WithError(err).Warn("Failed to clear presence")
			s.storeError("clear", err)
			ok = false
		}
		s.state = dec.Next
		s.endSession(now)
		metrics.Watching.Reset()
		s.log.Info("No media detected, presence cleared")

	case presence.ActionPush:
		snap := dec.Next.Snapshot
		snap.Artwork = s.lookupArtwork(ctx, snap)
		if dec.ServiceChanged {
			s.log.WithFields(logrus.Fields{"from": s.state.Snapshot.Service, "to": snap.Service}).Info("Service changed")
		}
		if s.driver.Push(ctx, snap) {
			s.state = presence.WatchingState(snap)
			s.startSession(snap, now)
			metrics.Watching.Reset()
			metrics.Watching.WithLabelValues(string(snap.Service)).Set(1)
		} else {
			ok = false
		}

	case presence.ActionRefresh:
		snap := dec.Next.Snapshot
		if s.driver.Push(ctx, snap) {
			s.state = dec.Next
			s.recordRefresh(snap, now)
			s.log.WithField("refreshes", snap.Refreshes).Debug("Presence refreshed")
		} else {
			ok = false
		}
	}

	s.trackFailures(ctx, ok)
	wait := s.interval.Next(s.state.Watching)
	s.updateStatus(res, now)
	return wait
}

// trackFailures forces a reconnect after enough consecutive failed cycles.
func (s *Service) trackFailures(ctx context.Context, ok bool) {
	if ok {
		s.failures = 0
		return
	}
	s.failures++
	if s.failures < s.threshold {
		return
	}
	s.log.WithField("failures", s.failures).Warn("Too many consecutive errors, reconnecting to Discord")
	if err := s.driver.Reconnect(ctx); err != nil {
		s.storeError("reconnect", err)
	}
	s.failures = 0
}

func (s *Service) lookupArtwork(ctx context.Context, snap presence.Snapshot) string {
	if s.artwork == nil || snap.Title == snap.Service.Placeholder() {
		return ""
	}
	season := 0
	if snap.Episode != nil {
		season = snap.Episode.Season
	}
	poster, err := s.artwork.SearchImage(ctx, snap.Title, snap.Type, season)
	if err != nil {
		s.log.WithError(err).WithField("title", titleparse.SanitizeForLog(snap.Title)).Warn("Artwork lookup failed")
		return ""
	}
	return poster
}

func (s *Service) startSession(snap presence.Snapshot, now time.Time) {
	if s.history == nil {
		return
	}
	s.endSession(now)

	session := &models.WatchSession{
		Service:   string(snap.Service),
		Title:     snap.Title,
		MediaType: string(snap.Type),
		ImageURL:  snap.Artwork,
		StartedAt: snap.StartedAt,
	}
	if snap.Episode != nil {
		session.Season = snap.Episode.Season
		session.Episode = snap.Episode.Number
		session.EpisodeTitle = snap.Episode.Title
	}
	if err := s.history.StartSession(session); err != nil {
		s.log.WithError(err).Warn("Failed to record watch session")
		return
	}
	s.sessionID = session.ID
}

func (s *Service) recordRefresh(snap presence.Snapshot, now time.Time) {
	if s.history == nil || s.sessionID == 0 {
		return
	}
	if err := s.history.RecordRefresh(s.sessionID, snap.Refreshes, now); err != nil {
		s.log.WithError(err).Warn("Failed to update watch session")
	}
}

func (s *Service) endSession(now time.Time) {
	if s.history == nil {
		return
	}
	if _, err := s.history.EndOpenSessions(now); err != nil {
		s.log.WithError(err).Warn("Failed to end watch session")
	}
	s.sessionID = 0
}

func (s *Service) storeError(op string, err error) {
	if s.history == nil {
		return
	}
	errorLog := &models.ErrorLog{
		Timestamp: s.now(),
		Op:        op,
		ErrorMsg:  err.Error(),
	}
	if s.state.Watching {
		errorLog.Service = string(s.state.Snapshot.Service)
	}
	if dbErr := s.history.CreateErrorLog(errorLog); dbErr != nil {
		s.log.WithError(dbErr).WithField("original", err.Error()).Warn("Failed to store error in database")
	}
}

// DiscordRunning reports whether a Discord client process is alive.
func DiscordRunning(procs ProcessLister) (bool, error) {
	list, err := procs.ListProcesses()
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.Name), "discord") {
			return true, nil
		}
	}
	return false, nil
}
