package sim

import (
	"sort"

	"siegelane/internal/sim/core"
)

// Snapshot types are plain value copies handed to the API and websocket
// layers. Nothing in them aliases live battle state, so callers can hold
// them across ticks without racing the engine.

// OrbSnapshot is one defense orb's visible state.
type OrbSnapshot struct {
	ID    core.OrbID `json:"id"`
	HP    int        `json:"hp"`
	MaxHP int        `json:"maxHp"`
	Alive bool       `json:"alive"`
}

// ShieldSnapshot is an active shield's visible state.
type ShieldSnapshot struct {
	HP           int     `json:"hp"`
	MaxHP        int     `json:"maxHp"`
	Threshold    float64 `json:"threshold"`
	SourceItemID string  `json:"sourceItemId"`
}

// CastleSnapshot is one castle's visible state.
type CastleSnapshot struct {
	Side   core.Side       `json:"side"`
	HP     int             `json:"hp"`
	MaxHP  int             `json:"maxHp"`
	Shield *ShieldSnapshot `json:"shield,omitempty"`
}

// KnightSnapshot is one defender's visible state.
type KnightSnapshot struct {
	Side    core.Side `json:"side"`
	HP      int       `json:"hp"`
	MaxHP   int       `json:"maxHp"`
	Charges int       `json:"charges"`
	State   string    `json:"state"`
	Alive   bool      `json:"alive"`
}

// ProjectileSnapshot is one in-flight shot's visible state.
type ProjectileSnapshot struct {
	ID       string    `json:"id"`
	Side     core.Side `json:"side"`
	Lane     core.Lane `json:"lane"`
	Progress float64   `json:"progress"`
	ItemShot bool      `json:"itemShot"`
}

// SideSnapshot groups one side's structures.
type SideSnapshot struct {
	Castle  CastleSnapshot                `json:"castle"`
	Knight  KnightSnapshot                `json:"knight"`
	Orbs    [core.LaneCount][]OrbSnapshot `json:"orbs"`
	ItemIDs []string                      `json:"itemIds"`
}

// BattleSnapshot is the full visible state of one battle at one tick.
type BattleSnapshot struct {
	ID          string                        `json:"id"`
	Phase       string                        `json:"phase"`
	Quarter     int                           `json:"quarter"`
	Tick        int64                         `json:"tick"`
	Sides       [core.SideCount]SideSnapshot  `json:"sides"`
	Projectiles []ProjectileSnapshot          `json:"projectiles"`
	Winner      string                        `json:"winner,omitempty"` // set once Final
	ItemIDs     []string                      `json:"itemIds"`
}

// Snapshot returns a value copy of one battle's state.
func (e *Engine) Snapshot(battleID string) (BattleSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.battles[battleID]
	if !ok {
		return BattleSnapshot{}, ErrBattleNotFound
	}
	return e.snapshotLocked(b), nil
}

// Snapshots returns value copies of every battle, ordered by id.
func (e *Engine) Snapshots() []BattleSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]BattleSnapshot, 0, len(e.battles))
	for _, b := range e.battles {
		out = append(out, e.snapshotLocked(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) snapshotLocked(b *Battle) BattleSnapshot {
	snap := BattleSnapshot{
		ID:      b.ID,
		Phase:   b.Phase.String(),
		Quarter: b.Quarter,
		Tick:    e.tick,
		ItemIDs: e.registry.InstancesForBattle(b.ID),
	}

	for _, side := range []core.Side{core.SideHome, core.SideAway} {
		castle := b.castles[side]
		cs := CastleSnapshot{Side: side, HP: castle.HP, MaxHP: castle.MaxHP}
		if castle.Shield != nil {
			cs.Shield = &ShieldSnapshot{
				HP:           castle.Shield.HP,
				MaxHP:        castle.Shield.MaxHP,
				Threshold:    castle.Shield.Threshold,
				SourceItemID: castle.Shield.SourceItemID,
			}
		}

		k := b.knights[side]
		ks := KnightSnapshot{Side: side, HP: k.HP, MaxHP: k.MaxHP, Charges: k.Charges, State: k.State.String(), Alive: k.Alive()}

		ss := SideSnapshot{Castle: cs, Knight: ks}
		ss.ItemIDs = e.registry.InstancesForSide(core.SideKey{BattleID: b.ID, Side: side})
		for _, lane := range core.AllLanes() {
			row := make([]OrbSnapshot, 0, len(b.orbs[side][lane]))
			for _, o := range b.orbs[side][lane] {
				row = append(row, OrbSnapshot{ID: o.ID, HP: o.HP, MaxHP: o.MaxHP, Alive: o.Alive()})
			}
			ss.Orbs[lane] = row
		}
		snap.Sides[side] = ss
	}

	snap.Projectiles = make([]ProjectileSnapshot, 0, len(b.live))
	for _, p := range b.live {
		snap.Projectiles = append(snap.Projectiles, ProjectileSnapshot{
			ID:       p.ID,
			Side:     p.Side,
			Lane:     p.Lane,
			Progress: p.Progress(e.tick),
			ItemShot: p.ItemShot,
		})
	}

	if b.Phase == PhaseFinal {
		if b.winnerSet {
			snap.Winner = b.winner.String()
		} else {
			snap.Winner = "draw"
		}
	}

	return snap
}
