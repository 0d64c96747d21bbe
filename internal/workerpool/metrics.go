package workerpool

import "sync/atomic"

// Metrics tracks pool counters.
type Metrics struct {
	submitted atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	active    atomic.Int64
}

// Stats is a point-in-time copy of the pool counters.
type Stats struct {
	Submitted int64
	Rejected  int64
	Completed int64
	Panicked  int64
	Active    int64
	Queued    int64
}

func (m *Metrics) snapshot(queued int) Stats {
	return Stats{
		Submitted: m.submitted.Load(),
		Rejected:  m.rejected.Load(),
		Completed: m.completed.Load(),
		Panicked:  m.panicked.Load(),
		Active:    m.active.Load(),
		Queued:    int64(queued),
	}
}
