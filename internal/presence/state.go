// Package presence decides, once per cycle, what the broadcast presence
// must do. It holds no connection and performs no I/O.
package presence

import (
	"time"

	"streampresence/pkg/media"
)

// Snapshot is the content last pushed successfully.
type Snapshot struct {
	Service   media.Service
	Title     string
	Type      media.Type
	Episode   *media.Episode
	Artwork   string
	StartedAt time.Time
	Refreshes int
}

// SnapshotOf builds the snapshot for a newly detected record.
func SnapshotOf(rec media.Record, now time.Time) Snapshot {
	rec = rec.Stripped()
	return Snapshot{
		Service:   rec.Service,
		Title:     rec.Title,
		Type:      rec.Type,
		Episode:   rec.Episode,
		StartedAt: now,
	}
}

// Matches reports whether rec carries the same content as the snapshot.
func (s Snapshot) Matches(rec media.Record) bool {
	return rec.Watching &&
		s.Service == rec.Service &&
		s.Title == rec.Title &&
		media.SameEpisode(s.Episode, rec.Episode)
}

// State is either idle or watching a snapshot.
type State struct {
	Watching bool
	Snapshot Snapshot
}

// Idle returns the state with no snapshot.
func Idle() State { return State{} }

// WatchingState returns the state holding snap.
func WatchingState(snap Snapshot) State { return State{Watching: true, Snapshot: snap} }

// Action is what the caller must do with the presence backend.
type Action int

const (
	ActionNone Action = iota
	ActionClear
	ActionPush
	ActionRefresh
)

func (a Action) String() string {
	switch a {
	case ActionClear:
		return "clear"
	case ActionPush:
		return "push"
	case ActionRefresh:
		return "refresh"
	default:
		return "none"
	}
}

// Decision is the result of one transition. Next must only be committed
// once the action succeeded; a clear always commits.
type Decision struct {
	Action         Action
	Next           State
	ServiceChanged bool
}

// RefreshPolicy controls forced re-assertion of unchanged content.
type RefreshPolicy struct {
	Period    time.Duration
	Tolerance time.Duration
}

// DefaultRefreshPolicy re-pushes unchanged content every three minutes.
func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{Period: 180 * time.Second, Tolerance: 5 * time.Second}
}

// due reports whether a refresh boundary has been crossed that was not yet
// served. Boundaries are counted from StartedAt; a missed boundary is served
// by the next cycle.
func (p RefreshPolicy) due(snap Snapshot, now time.Time) bool {
	if p.Period <= 0 {
		return false
	}
	elapsed := now.Sub(snap.StartedAt)
	if elapsed < 0 {
		return false
	}
	boundary := int((elapsed + p.Tolerance) / p.Period)
	return boundary > snap.Refreshes
}

// Transition evaluates one detection against the current state.
func Transition(state State, rec media.Record, now time.Time, policy RefreshPolicy) Decision {
	if !rec.Watching {
		if state.Watching {
			return Decision{Action: ActionClear, Next: Idle()}
		}
		return Decision{Action: ActionNone, Next: state}
	}

	if !state.Watching || !state.Snapshot.Matches(rec) {
		return Decision{
			Action:         ActionPush,
			Next:           WatchingState(SnapshotOf(rec, now)),
			ServiceChanged: state.Watching && state.Snapshot.Service != rec.Service,
		}
	}

	if policy.due(state.Snapshot, now) {
		next := state.Snapshot
		next.Refreshes = int((now.Sub(next.StartedAt) + policy.Tolerance) / policy.Period)
		return Decision{Action: ActionRefresh, Next: WatchingState(next)}
	}

	return Decision{Action: ActionNone, Next: state}
}
