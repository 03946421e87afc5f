package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"streampresence/internal/config"
	"streampresence/internal/detection"
	"streampresence/internal/models"
	"streampresence/internal/presence"
	"streampresence/pkg/media"
	"streampresence/pkg/window"
)

type scriptedDetector struct {
	mu      sync.Mutex
	records []media.Record
	calls   int
}

func (d *scriptedDetector) called() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *scriptedDetector) Run(context.Context) detection.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := media.NotWatching()
	if d.calls < len(d.records) {
		rec = d.records[d.calls]
	}
	d.calls++
	return detection.Result{Record: rec, Strategy: "test"}
}

type fakeDriver struct {
	pushes      []presence.Snapshot
	pushResults []bool
	clears      int
	reconnects  int
	shutdowns   int
	connectErr  error
	degraded    bool
}

func (f *fakeDriver) ConnectWithRetry(context.Context) error {
	if f.connectErr != nil {
		f.degraded = true
	}
	return f.connectErr
}
func (f *fakeDriver) Degraded() bool { return f.degraded }
func (f *fakeDriver) Reconnect(context.Context) error {
	f.reconnects++
	return nil
}
func (f *fakeDriver) Push(_ context.Context, snap presence.Snapshot) bool {
	f.pushes = append(f.pushes, snap)
	if len(f.pushResults) > 0 {
		ok := f.pushResults[0]
		f.pushResults = f.pushResults[1:]
		return ok
	}
	return true
}
func (f *fakeDriver) Clear(context.Context) error { f.clears++; return nil }
func (f *fakeDriver) Shutdown(context.Context)    { f.shutdowns++ }

type fakeArtwork struct {
	lookups []string
	err     error
}

func (f *fakeArtwork) SearchImage(_ context.Context, title string, _ media.Type, _ int) (string, error) {
	f.lookups = append(f.lookups, title)
	if f.err != nil {
		return "", f.err
	}
	return "/poster.jpg", nil
}

type fakeHistory struct {
	started   []*models.WatchSession
	refreshes []int
	ends      int
	errors    []string
}

func (f *fakeHistory) StartSession(s *models.WatchSession) error {
	s.ID = uint(len(f.started) + 1)
	f.started = append(f.started, s)
	return nil
}
func (f *fakeHistory) RecordRefresh(_ uint, refreshes int, _ time.Time) error {
	f.refreshes = append(f.refreshes, refreshes)
	return nil
}
func (f *fakeHistory) EndOpenSessions(time.Time) (int64, error) { f.ends++; return 1, nil }
func (f *fakeHistory) CreateErrorLog(e *models.ErrorLog) error {
	f.errors = append(f.errors, e.Op+": "+e.ErrorMsg)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func show(title string, season, episode int) media.Record {
	return media.Record{
		Watching:   true,
		Service:    media.Netflix,
		Title:      title,
		Type:       media.TypeShow,
		Episode:    &media.Episode{Season: season, Number: episode},
		DetectedBy: media.SourceActiveWindow,
	}
}

type harness struct {
	svc     *Service
	det     *scriptedDetector
	driver  *fakeDriver
	artwork *fakeArtwork
	history *fakeHistory
	clock   *clock
}

func newHarness(t *testing.T, records ...media.Record) *harness {
	t.Helper()
	log, _ := test.NewNullLogger()
	h := &harness{
		det:     &scriptedDetector{records: records},
		driver:  &fakeDriver{},
		artwork: &fakeArtwork{},
		history: &fakeHistory{},
		clock:   &clock{t: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)},
	}
	cfg := config.Default()
	h.svc = NewService(cfg, h.det, h.driver, h.artwork, log, WithHistory(h.history), WithClock(h.clock.now))
	return h
}

func (h *harness) cycles(n int, step time.Duration) {
	for i := 0; i < n; i++ {
		h.svc.Cycle(context.Background())
		h.clock.advance(step)
	}
}

func TestCyclePushesOnceAndLooksUpArtworkOnce(t *testing.T) {
	rec := show("Stranger Things", 1, 2)
	h := newHarness(t, rec, rec, rec)

	h.cycles(3, 5*time.Second)

	if len(h.driver.pushes) != 1 {
		t.Fatalf("pushes = %d, want 1", len(h.driver.pushes))
	}
	if h.driver.pushes[0].Artwork != "/poster.jpg" {
		t.Errorf("Artwork = %q, want /poster.jpg", h.driver.pushes[0].Artwork)
	}
	if len(h.artwork.lookups) != 1 {
		t.Errorf("artwork lookups = %d, want 1", len(h.artwork.lookups))
	}
	if len(h.history.started) != 1 || h.history.started[0].Season != 1 || h.history.started[0].Episode != 2 {
		t.Errorf("sessions = %+v", h.history.started)
	}

	st := h.svc.Status()
	if !st.Watching || st.Title != "Stranger Things" || st.Strategy != "test" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestCycleContentChangeResetsStart(t *testing.T) {
	h := newHarness(t, show("Dark", 1, 1), show("Dark", 1, 2))

	h.cycles(2, 5*time.Second)

	if len(h.driver.pushes) != 2 {
		t.Fatalf("pushes = %d, want 2", len(h.driver.pushes))
	}
	if !h.driver.pushes[1].StartedAt.After(h.driver.pushes[0].StartedAt) {
		t.Error("episode change must reset StartedAt")
	}
	if len(h.history.started) != 2 {
		t.Errorf("sessions started = %d, want 2", len(h.history.started))
	}
}

func TestCycleRefreshKeepsStart(t *testing.T) {
	rec := show("Dark", 1, 1)
	records := make([]media.Record, 40)
	for i := range records {
		records[i] = rec
	}
	h := newHarness(t, records...)

	// 40 cycles at 5s = 200s, crossing the 180s refresh boundary once
	h.cycles(40, 5*time.Second)

	if len(h.driver.pushes) != 2 {
		t.Fatalf("pushes = %d, want initial push plus one refresh", len(h.driver.pushes))
	}
	if !h.driver.pushes[1].StartedAt.Equal(h.driver.pushes[0].StartedAt) {
		t.Error("refresh must keep StartedAt")
	}
	if len(h.artwork.lookups) != 1 {
		t.Errorf("artwork lookups = %d, refresh must not look up again", len(h.artwork.lookups))
	}
	if len(h.history.refreshes) != 1 || h.history.refreshes[0] != 1 {
		t.Errorf("recorded refreshes = %v, want [1]", h.history.refreshes)
	}
}

func TestCycleClearsExactlyOnce(t *testing.T) {
	h := newHarness(t, show("Dark", 1, 1), media.NotWatching(), media.NotWatching(), media.NotWatching())

	h.cycles(4, 5*time.Second)

	if h.driver.clears != 1 {
		t.Errorf("clears = %d, want 1", h.driver.clears)
	}
	if h.svc.Status().Watching {
		t.Error("status still watching after clear")
	}
}

func TestCycleFailedPushIsRetried(t *testing.T) {
	rec := show("Dark", 1, 1)
	h := newHarness(t, rec, rec)
	h.driver.pushResults = []bool{false, true}

	h.cycles(2, 5*time.Second)

	if len(h.driver.pushes) != 2 {
		t.Fatalf("pushes = %d, want retry after failure", len(h.driver.pushes))
	}
	if len(h.history.started) != 1 {
		t.Errorf("sessions = %d, only the successful push is recorded", len(h.history.started))
	}
}

func TestCycleReconnectsAfterConsecutiveFailures(t *testing.T) {
	rec := show("Dark", 1, 1)
	h := newHarness(t, rec, rec, rec, rec)
	h.driver.pushResults = []bool{false, false, false, false}

	h.cycles(3, 5*time.Second)
	if h.driver.reconnects != 1 {
		t.Errorf("reconnects after 3 failures = %d, want 1", h.driver.reconnects)
	}

	h.cycles(1, 5*time.Second)
	if h.driver.reconnects != 1 {
		t.Errorf("failure counter should reset after reconnect, got %d reconnects", h.driver.reconnects)
	}
}

func TestCycleArtworkFailureStillPushes(t *testing.T) {
	h := newHarness(t, show("Dark", 1, 1))
	h.artwork.err = errors.New("tmdb down")

	h.cycles(1, 5*time.Second)

	if len(h.driver.pushes) != 1 || h.driver.pushes[0].Artwork != "" {
		t.Errorf("pushes = %+v, want one push without artwork", h.driver.pushes)
	}
}

func TestCyclePlaceholderSkipsArtwork(t *testing.T) {
	h := newHarness(t, media.Record{
		Watching: true, Service: media.DisneyPlus, Title: media.DisneyPlus.Placeholder(), Type: media.TypeUnknown,
		DetectedBy: media.SourceSystemProcess,
	})

	h.cycles(1, 5*time.Second)

	if len(h.artwork.lookups) != 0 {
		t.Errorf("artwork lookups = %v, placeholder titles are not looked up", h.artwork.lookups)
	}
}

func TestCycleAdaptiveInterval(t *testing.T) {
	h := newHarness(t)

	var waits []time.Duration
	for i := 0; i < 22; i++ {
		waits = append(waits, h.svc.Cycle(context.Background()))
	}

	if waits[0] != 5*time.Second || waits[5] != 15*time.Second || waits[21] != 30*time.Second {
		t.Errorf("waits = %v", waits)
	}
}

func TestStartShutsDownOnce(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.svc.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for h.det.called() == 0 {
		select {
		case <-deadline:
			t.Fatal("loop did not run a cycle")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
	h.svc.Shutdown()

	if h.driver.shutdowns != 1 {
		t.Errorf("driver shutdowns = %d, want 1", h.driver.shutdowns)
	}
	if h.svc.IsRunning() {
		t.Error("service still running after Start returned")
	}
}

func TestStartRecordsConnectFailure(t *testing.T) {
	h := newHarness(t)
	h.driver.connectErr = errors.New("no discord")
	h.svc.Stop()

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if len(h.history.errors) != 1 || h.history.errors[0] != "connect: no discord" {
		t.Errorf("stored errors = %v, want connect failure", h.history.errors)
	}
}

type procList []window.Process

func (p procList) ListProcesses() ([]window.Process, error) { return p, nil }

func TestDiscordRunning(t *testing.T) {
	tests := []struct {
		name  string
		procs procList
		want  bool
	}{
		{"stable client", procList{{PID: 1, Name: "Discord"}}, true},
		{"canary", procList{{PID: 1, Name: "DiscordCanary"}}, true},
		{"absent", procList{{PID: 1, Name: "firefox"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiscordRunning(tt.procs)
			if err != nil || got != tt.want {
				t.Errorf("DiscordRunning() = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestSampleSnapshot(t *testing.T) {
	snap := SampleSnapshot()
	if snap.Service != media.Netflix || snap.Title != "Stranger Things" || snap.Episode == nil || snap.Episode.Title != "Chapter One" {
		t.Errorf("SampleSnapshot() = %+v", snap)
	}
}
