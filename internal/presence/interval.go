package presence

import "time"

// Interval computes the adaptive poll interval. It is not safe for
// concurrent use; the poll loop owns it.
type Interval struct {
	Base   time.Duration
	Idle   time.Duration
	Sleepy time.Duration

	IdleAfter   int
	SleepyAfter int

	idleCycles int
}

// DefaultInterval polls every 5s while watching, 15s after more than 5 idle
// cycles and 30s after more than 20.
func DefaultInterval(base time.Duration) *Interval {
	if base <= 0 {
		base = 5 * time.Second
	}
	return &Interval{
		Base:        base,
		Idle:        3 * base,
		Sleepy:      6 * base,
		IdleAfter:   5,
		SleepyAfter: 20,
	}
}

// Next records one cycle and returns the wait before the next one.
func (i *Interval) Next(watching bool) time.Duration {
	if watching {
		i.idleCycles = 0
		return i.Base
	}
	i.idleCycles++
	switch {
	case i.idleCycles > i.SleepyAfter:
		return i.Sleepy
	case i.idleCycles > i.IdleAfter:
		return i.Idle
	default:
		return i.Base
	}
}

// IdleCycles returns the number of consecutive cycles without media.
func (i *Interval) IdleCycles() int { return i.idleCycles }
