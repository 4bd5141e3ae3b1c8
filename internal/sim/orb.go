package sim

import "siegelane/internal/sim/core"

// Orb is a single defense orb guarding one lane. Orbs soak projectile
// hits until destroyed; a destroyed orb never absorbs another hit.
type Orb struct {
	ID        core.OrbID
	HP        int
	MaxHP     int
	destroyed bool
}

func newOrb(id core.OrbID, hp int) *Orb {
	return &Orb{ID: id, HP: hp, MaxHP: hp}
}

// Alive reports whether the orb can still absorb hits.
func (o *Orb) Alive() bool {
	return !o.destroyed
}

// ApplyDamage reduces HP, clamped at zero, and reports whether this hit
// destroyed the orb. Destruction is reported exactly once; further calls
// on a destroyed orb are no-ops.
func (o *Orb) ApplyDamage(dmg int) bool {
	if o.destroyed {
		return false
	}
	o.HP -= dmg
	if o.HP <= 0 {
		o.HP = 0
		o.destroyed = true
		return true
	}
	return false
}
