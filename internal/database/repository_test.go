package database

import (
	"testing"
	"time"

	"streampresence/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Connect(MemoryPath)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return NewRepository(db)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	session := &models.WatchSession{
		Service:   "Netflix",
		Title:     "Stranger Things",
		MediaType: "show",
		Season:    1,
		Episode:   2,
		StartedAt: start,
	}
	if err := repo.StartSession(session); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if session.ID == 0 {
		t.Fatal("expected session id to be assigned")
	}

	open, err := repo.GetOpenSession()
	if err != nil || open == nil || open.ID != session.ID {
		t.Fatalf("GetOpenSession() = %+v, %v", open, err)
	}

	if err := repo.RecordRefresh(session.ID, 1, start.Add(3*time.Minute)); err != nil {
		t.Fatalf("RecordRefresh() error = %v", err)
	}

	closed, err := repo.EndOpenSessions(start.Add(10 * time.Minute))
	if err != nil || closed != 1 {
		t.Fatalf("EndOpenSessions() = %d, %v; want 1", closed, err)
	}

	sessions, err := repo.ListSessions(10)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListSessions() = %v, %v", sessions, err)
	}
	got := sessions[0]
	if got.Open() {
		t.Error("session still open after EndOpenSessions")
	}
	if got.Duration != 600 {
		t.Errorf("Duration = %d, want 600", got.Duration)
	}
	if got.Refreshes != 1 {
		t.Errorf("Refreshes = %d, want 1", got.Refreshes)
	}

	if open, err := repo.GetOpenSession(); err != nil || open != nil {
		t.Errorf("GetOpenSession() after end = %+v, %v; want nil", open, err)
	}
}

func TestSummaries(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	sessions := []struct {
		service string
		title   string
		minutes int
	}{
		{"Netflix", "Dark", 50},
		{"Netflix", "Dark", 40},
		{"Disney+", "Encanto", 110},
		{"Netflix", "Ozark", 10},
	}
	offset := time.Duration(0)
	for _, s := range sessions {
		start := base.Add(offset)
		if err := repo.StartSession(&models.WatchSession{Service: s.service, Title: s.title, MediaType: "unknown", StartedAt: start}); err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		if _, err := repo.EndOpenSessions(start.Add(time.Duration(s.minutes) * time.Minute)); err != nil {
			t.Fatalf("EndOpenSessions() error = %v", err)
		}
		offset += 3 * time.Hour
	}

	titles, err := repo.GetTitleSummarySince(base)
	if err != nil {
		t.Fatalf("GetTitleSummarySince() error = %v", err)
	}
	if len(titles) != 3 {
		t.Fatalf("got %d title summaries, want 3", len(titles))
	}
	if titles[0].Title != "Encanto" || titles[0].TotalSeconds != 6600 {
		t.Errorf("top title = %+v, want Encanto with 6600s", titles[0])
	}
	if titles[1].Title != "Dark" || titles[1].SessionCount != 2 || titles[1].TotalSeconds != 5400 {
		t.Errorf("second title = %+v, want Dark with 2 sessions and 5400s", titles[1])
	}

	services, err := repo.GetServiceSummarySince(base)
	if err != nil {
		t.Fatalf("GetServiceSummarySince() error = %v", err)
	}
	if len(services) != 2 || services[0].Service != "Disney+" || services[1].SessionCount != 3 {
		t.Errorf("service summaries = %+v", services)
	}

	later, err := repo.GetTitleSummarySince(base.Add(5 * time.Hour))
	if err != nil || len(later) != 2 {
		t.Errorf("GetTitleSummarySince(later) = %+v, %v; want 2 rows", later, err)
	}
}

func TestSummariesBreakTiesByName(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	// Inserted in reverse name order with equal totals
	for i, s := range []struct{ service, title string }{
		{"Netflix", "Ozark"},
		{"Netflix", "Dark"},
		{"Disney+", "Loki"},
		{"Disney+", "Andor"},
	} {
		start := base.Add(time.Duration(i) * time.Hour)
		if err := repo.StartSession(&models.WatchSession{Service: s.service, Title: s.title, StartedAt: start}); err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		if _, err := repo.EndOpenSessions(start.Add(30 * time.Minute)); err != nil {
			t.Fatalf("EndOpenSessions() error = %v", err)
		}
	}

	for run := 0; run < 3; run++ {
		services, err := repo.GetServiceSummarySince(base)
		if err != nil || len(services) != 2 || services[0].Service != "Disney+" || services[1].Service != "Netflix" {
			t.Fatalf("service summaries = %+v, %v; want Disney+ before Netflix", services, err)
		}

		titles, err := repo.GetTitleSummarySince(base)
		if err != nil || len(titles) != 4 {
			t.Fatalf("title summaries = %+v, %v", titles, err)
		}
		var got []string
		for _, ts := range titles {
			got = append(got, ts.Service+"/"+ts.Title)
		}
		want := []string{"Disney+/Andor", "Disney+/Loki", "Netflix/Dark", "Netflix/Ozark"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("title order = %v, want %v", got, want)
			}
		}
	}
}

func TestDeleteOldSessions(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, start := range []time.Time{now.AddDate(0, -2, 0), now} {
		if err := repo.StartSession(&models.WatchSession{Service: "Netflix", Title: "Dark", StartedAt: start}); err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
	}

	deleted, err := repo.DeleteOldSessions(now.AddDate(0, -1, 0))
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteOldSessions() = %d, %v; want 1", deleted, err)
	}
	sessions, _ := repo.ListSessions(0)
	if len(sessions) != 1 {
		t.Errorf("remaining sessions = %d, want 1", len(sessions))
	}
}

func TestErrorLogs(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now()

	for i, msg := range []string{"first", "second"} {
		entry := &models.ErrorLog{Timestamp: now.Add(time.Duration(i) * time.Second), Op: "connect", ErrorMsg: msg}
		if err := repo.CreateErrorLog(entry); err != nil {
			t.Fatalf("CreateErrorLog() error = %v", err)
		}
	}

	logs, err := repo.RecentErrors(1)
	if err != nil || len(logs) != 1 || logs[0].ErrorMsg != "second" {
		t.Errorf("RecentErrors(1) = %+v, %v", logs, err)
	}
}
