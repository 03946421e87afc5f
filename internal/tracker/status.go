package tracker

import (
	"time"

	"streampresence/internal/detection"
)

// Status is a copy of the loop state for the status command and web API.
type Status struct {
	Running      bool      `json:"running"`
	Watching     bool      `json:"watching"`
	Service      string    `json:"service,omitempty"`
	Title        string    `json:"title,omitempty"`
	MediaType    string    `json:"media_type,omitempty"`
	Season       int       `json:"season,omitempty"`
	Episode      int       `json:"episode,omitempty"`
	EpisodeTitle string    `json:"episode_title,omitempty"`
	Artwork      string    `json:"artwork,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	Refreshes    int       `json:"refreshes"`
	Strategy     string    `json:"strategy,omitempty"`
	Rejected     string    `json:"rejected,omitempty"`
	Degraded     bool      `json:"degraded"`
	Failures     int       `json:"consecutive_failures"`
	IdleCycles   int       `json:"idle_cycles"`
	LastCycle    time.Time `json:"last_cycle"`
}

// Status returns a snapshot of the current loop state
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) updateStatus(res detection.Result, now time.Time) {
	st := Status{
		Watching:   s.state.Watching,
		Strategy:   res.Strategy,
		Rejected:   res.Rejected,
		Degraded:   s.driver.Degraded(),
		Failures:   s.failures,
		IdleCycles: s.interval.IdleCycles(),
		LastCycle:  now,
	}
	if s.state.Watching {
		snap := s.state.Snapshot
		st.Service = string(snap.Service)
		st.Title = snap.Title
		st.MediaType = string(snap.Type)
		st.Artwork = snap.Artwork
		st.StartedAt = snap.StartedAt
		st.Refreshes = snap.Refreshes
		if snap.Episode != nil {
			st.Season = snap.Episode.Season
			st.Episode = snap.Episode.Number
			st.EpisodeTitle = snap.Episode.Title
		}
	}

	s.mu.Lock()
	st.Running = s.status.Running
	s.status = st
	s.mu.Unlock()
}
