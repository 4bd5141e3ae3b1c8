package sim

import "siegelane/internal/sim/core"

// Shield is a temporary HP buffer in front of a castle. It absorbs
// castle-routed hits whole: a hit that meets or exceeds the remaining
// shield HP breaks the shield and nothing carries over to the castle.
type Shield struct {
	HP           int
	MaxHP        int
	Threshold    float64 // castle HP ratio that triggered activation
	SourceItemID string
}

// Castle is one side's win-condition structure. HP never drops below
// zero and never rises above MaxHP.
type Castle struct {
	Side   core.Side
	HP     int
	MaxHP  int
	Shield *Shield // nil when no shield is active
}

func newCastle(side core.Side, hp int) *Castle {
	return &Castle{Side: side, HP: hp, MaxHP: hp}
}

// Destroyed reports whether the castle has fallen.
func (c *Castle) Destroyed() bool {
	return c.HP <= 0
}

// ActivateShield installs a fresh shield. An already-active shield is
// replaced outright; replacement is not a break and emits no break event.
func (c *Castle) ActivateShield(hp int, threshold float64, sourceItemID string) *Shield {
	c.Shield = &Shield{HP: hp, MaxHP: hp, Threshold: threshold, SourceItemID: sourceItemID}
	return c.Shield
}

// HealShield restores shield HP, clamped to the shield's max. Returns
// the healed amount actually applied, or 0 when no shield is active.
func (c *Castle) HealShield(amount int) int {
	if c.Shield == nil || amount <= 0 {
		return 0
	}
	healed := amount
	if c.Shield.HP+healed > c.Shield.MaxHP {
		healed = c.Shield.MaxHP - c.Shield.HP
	}
	c.Shield.HP += healed
	return healed
}

// hitResult describes what one castle-routed hit did.
type hitResult struct {
	absorbed    bool // a shield took the hit
	shieldBroke bool // the hit removed the shield
	castleDown  bool // the castle reached zero HP
}

// ApplyHit routes one hit through the shield, then the castle. A shield
// absorbs the entire hit; when the hit meets or exceeds the shield's
// remaining HP the shield breaks and no overflow reaches the walls.
func (c *Castle) ApplyHit(dmg int) hitResult {
	if c.Shield != nil {
		if dmg >= c.Shield.HP {
			c.Shield = nil
			return hitResult{absorbed: true, shieldBroke: true}
		}
		c.Shield.HP -= dmg
		return hitResult{absorbed: true}
	}

	c.HP -= dmg
	if c.HP <= 0 {
		c.HP = 0
		return hitResult{castleDown: true}
	}
	return hitResult{}
}
