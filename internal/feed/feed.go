// Package feed defines the quarter statistics input that drives battles.
// A Source produces per-quarter stat deltas; the engine translates each
// delta into base attacks on the matching lane.
package feed

import (
	"fmt"

	"siegelane/internal/sim/core"
)

// QuarterStats carries the stat deltas accumulated during one quarter.
// Deltas are indexed [side][lane] and must be non-negative: a delta is
// how much a category grew during the quarter, not a running total.
type QuarterStats struct {
	Quarter int                                  `json:"quarter"`
	Deltas  [core.SideCount][core.LaneCount]int `json:"deltas"`
}

// Validate rejects malformed stat submissions before they reach a battle.
func (qs QuarterStats) Validate() error {
	if qs.Quarter < 1 {
		return fmt.Errorf("invalid quarter %d", qs.Quarter)
	}
	for side := range qs.Deltas {
		for lane, d := range qs.Deltas[side] {
			if d < 0 {
				return fmt.Errorf("negative delta %d for side=%s lane=%s",
					d, core.Side(side), core.Lane(lane))
			}
		}
	}
	return nil
}

// Total sums every delta in the submission.
func (qs QuarterStats) Total() int {
	total := 0
	for side := range qs.Deltas {
		for _, d := range qs.Deltas[side] {
			total += d
		}
	}
	return total
}

// Source yields one QuarterStats per quarter of a tracked game.
// Next returns false when the game has no more quarters.
type Source interface {
	Next() (QuarterStats, bool)
}

// Scripted replays a fixed list of quarter stats, used for replays and
// deterministic tests.
type Scripted struct {
	quarters []QuarterStats
	pos      int
}

// NewScripted builds a Source that yields the given quarters in order.
func NewScripted(quarters []QuarterStats) *Scripted {
	return &Scripted{quarters: quarters}
}

// Next returns the next scripted quarter, or false when exhausted.
func (s *Scripted) Next() (QuarterStats, bool) {
	if s.pos >= len(s.quarters) {
		return QuarterStats{}, false
	}
	qs := s.quarters[s.pos]
	s.pos++
	return qs, true
}

// Remaining reports how many scripted quarters have not been consumed.
func (s *Scripted) Remaining() int {
	return len(s.quarters) - s.pos
}
