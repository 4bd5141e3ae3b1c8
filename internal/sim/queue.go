package sim

import (
	"log"

	"siegelane/internal/sim/core"
)

// fireFn launches one queued shot. A failed fire (pool exhausted) is
// logged and dropped; it never stalls the lane.
type fireFn func() error

// laneQueue is the FIFO firing channel for one lane of one side. Shots
// drain in arrival order, one per pacing interval, so a burst of stat
// deltas becomes a spaced volley instead of a single-tick spike.
type laneQueue struct {
	key      core.LaneKey
	pending  []fireFn
	nextFire int64 // earliest tick the next shot may fire
	closed   bool
}

// enqueue appends a shot. Enqueues after close are rejected.
func (q *laneQueue) enqueue(fn fireFn) bool {
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	return true
}

// drain fires at most one pending shot if the pacing interval allows it.
// Consecutive shots from the same lane are always spaced by at least
// interval ticks, whatever order they were enqueued in.
func (q *laneQueue) drain(tick, interval int64) {
	if len(q.pending) == 0 || tick < q.nextFire {
		return
	}

	fn := q.pending[0]
	q.pending = q.pending[1:]
	q.nextFire = tick + interval

	if err := fn(); err != nil {
		log.Printf("Dropped queued shot on %s: %v", q.key, err)
	}
}

// empty reports whether the lane has nothing left to fire.
func (q *laneQueue) empty() bool {
	return len(q.pending) == 0
}

// close rejects all future enqueues and discards pending shots.
func (q *laneQueue) close() {
	q.closed = true
	q.pending = nil
}
