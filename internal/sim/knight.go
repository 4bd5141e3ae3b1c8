package sim

import "siegelane/internal/sim/core"

// KnightState is the defender's lifecycle state. Idle knights wait for
// battle start; Patrolling knights contest castle-routed hits; Destroyed
// is terminal.
type KnightState uint8

const (
	KnightIdle KnightState = iota
	KnightPatrolling
	KnightDestroyed
)

func (s KnightState) String() string {
	switch s {
	case KnightIdle:
		return "idle"
	case KnightPatrolling:
		return "patrolling"
	case KnightDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Knight is the last defender in front of a castle. It deflects
// castle-routed hits for free while it holds block charges; each charged
// block opens a short window during which further hits are also
// deflected without spending charges. Window deflects do not refresh the
// window. With no charge and no open window the knight takes the hit
// itself and the shot continues toward the walls.
type Knight struct {
	Side      core.Side
	HP        int
	MaxHP     int
	Charges   int
	State     KnightState
	lastBlock int64 // tick of the last charged block, 0 = never
}

func newKnight(side core.Side, hp int) *Knight {
	return &Knight{Side: side, HP: hp, MaxHP: hp, State: KnightIdle}
}

// Deploy moves an idle knight onto patrol. No-op once destroyed.
func (k *Knight) Deploy() {
	if k.State == KnightIdle {
		k.State = KnightPatrolling
	}
}

// Alive reports whether the knight still contests hits.
func (k *Knight) Alive() bool {
	return k.State != KnightDestroyed
}

// GrantCharges adds free-block charges.
func (k *Knight) GrantCharges(n int) {
	if k.State == KnightDestroyed || n <= 0 {
		return
	}
	k.Charges += n
}

// blockOutcome describes how the knight handled one incoming hit.
type blockOutcome struct {
	blocked   bool // hit fully deflected, nothing reaches the castle
	freeBlock bool // deflected by spending a charge
	wounded   bool // knight took damage
	destroyed bool // this hit destroyed the knight
}

// Contest resolves one castle-routed hit against the knight at the given
// tick. windowTicks is the free-deflect window opened by a charged block.
func (k *Knight) Contest(tick int64, windowTicks int64, dmg int) blockOutcome {
	if k.State == KnightDestroyed {
		return blockOutcome{}
	}

	if k.Charges > 0 {
		k.Charges--
		k.lastBlock = tick
		return blockOutcome{blocked: true, freeBlock: true}
	}

	if k.lastBlock > 0 && tick-k.lastBlock <= windowTicks {
		return blockOutcome{blocked: true}
	}

	k.HP -= dmg
	if k.HP <= 0 {
		k.HP = 0
		k.State = KnightDestroyed
		return blockOutcome{wounded: true, destroyed: true}
	}
	return blockOutcome{wounded: true}
}
