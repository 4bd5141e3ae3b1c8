package sim

import (
	"time"

	"siegelane/internal/config"
	"siegelane/internal/sim/core"
	"siegelane/internal/sim/roll"
)

// Phase is a battle's lifecycle state. Quarters alternate between
// InProgress (waiting for stats) and Battle (shots resolving); Final is
// terminal.
type Phase uint8

const (
	PhaseScheduled Phase = iota
	PhaseQuarterInProgress
	PhaseQuarterBattle
	PhaseFinal
)

func (p Phase) String() string {
	switch p {
	case PhaseScheduled:
		return "scheduled"
	case PhaseQuarterInProgress:
		return "quarter_in_progress"
	case PhaseQuarterBattle:
		return "quarter_battle"
	case PhaseFinal:
		return "final"
	default:
		return "unknown"
	}
}

// BattleConfig is the creation-time shape of a battle. Zero stakes fall
// back to the configured default.
type BattleConfig struct {
	ID        string // optional; a UUID is assigned when empty
	HomeStake int
	AwayStake int
}

// scheduledTask is a deferred engine action belonging to one battle.
// Tasks die with their battle: teardown defuses them before they run.
type scheduledTask struct {
	due int64
	seq uint64
	fn  func()
}

// Battle holds all mutable state of one running battle. Only the engine
// tick loop touches it; there is no per-battle lock.
type Battle struct {
	ID      string
	Phase   Phase
	Quarter int

	stakes  [core.SideCount]int
	castles [core.SideCount]*Castle
	knights [core.SideCount]*Knight
	orbs    [core.SideCount][core.LaneCount][]*Orb
	queues  [core.SideCount][core.LaneCount]*laneQueue

	live    []*Projectile
	tasks   []scheduledTask
	taskSeq uint64
	shotSeq uint64

	speedMult [core.SideCount]float64
	loadout   [core.SideCount]map[roll.Slot]roll.RolledItem

	winner        core.Side
	winnerSet     bool
	finalQuarters int

	createdAt time.Time
}

func newBattle(id string, bc BattleConfig, cfg config.SimConfig) *Battle {
	b := &Battle{
		ID:        id,
		Phase:     PhaseScheduled,
		createdAt: time.Now(),
	}

	b.stakes[core.SideHome] = bc.HomeStake
	b.stakes[core.SideAway] = bc.AwayStake
	for side := range b.stakes {
		if b.stakes[side] <= 0 {
			b.stakes[side] = cfg.DefaultStake
		}
	}

	for _, side := range []core.Side{core.SideHome, core.SideAway} {
		b.castles[side] = newCastle(side, b.stakes[side])
		b.knights[side] = newKnight(side, cfg.KnightHP)
		b.speedMult[side] = 1.0
		b.loadout[side] = make(map[roll.Slot]roll.RolledItem)
		for _, lane := range core.AllLanes() {
			row := make([]*Orb, cfg.OrbsPerLane)
			for i := range row {
				row[i] = newOrb(core.OrbID{Side: side, Lane: lane, Index: i}, cfg.OrbHP)
			}
			b.orbs[side][lane] = row
			b.queues[side][lane] = &laneQueue{key: core.LaneKey{BattleID: id, Side: side, Lane: lane}}
		}
	}

	return b
}

// nearestOrb returns the lowest-index alive orb in the lane, or nil.
func (b *Battle) nearestOrb(side core.Side, lane core.Lane) *Orb {
	for _, o := range b.orbs[side][lane] {
		if o.Alive() {
			return o
		}
	}
	return nil
}

// queuesEmpty reports whether every lane on both sides has drained.
func (b *Battle) queuesEmpty() bool {
	for side := range b.queues {
		for lane := range b.queues[side] {
			if !b.queues[side][lane].empty() {
				return false
			}
		}
	}
	return true
}

// quiet reports whether no shots are pending or in flight.
func (b *Battle) quiet() bool {
	return len(b.live) == 0 && b.queuesEmpty()
}

// tied reports whether both castles hold equal HP.
func (b *Battle) tied() bool {
	return b.castles[core.SideHome].HP == b.castles[core.SideAway].HP
}

// scheduleTask registers fn to run once tick reaches due.
func (b *Battle) scheduleTask(due int64, fn func()) {
	b.taskSeq++
	b.tasks = append(b.tasks, scheduledTask{due: due, seq: b.taskSeq, fn: fn})
}

// dueTasks removes and returns every task due at or before tick, in
// schedule order.
func (b *Battle) dueTasks(tick int64) []scheduledTask {
	var due []scheduledTask
	remaining := b.tasks[:0]
	for _, t := range b.tasks {
		if t.due <= tick {
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	b.tasks = remaining
	return due
}
