package effects

import (
	"siegelane/internal/sim/events"
)

// DefaultInstallers is the static effect table built at startup: one
// installer per known template id. No effect registers itself at import
// time; this list is the single place behaviors are bound.
func DefaultInstallers(tickRate int) map[string]Installer {
	return map[string]Installer{
		"volley_banner": installVolleyBanner,
		"aegis_charm":   installAegisCharm,
		"mending_sigil": func(ctx InstallContext, rt *Runtime) {
			installMendingSigil(ctx, rt, tickRate)
		},
		"swift_quiver": installSwiftQuiver,
		"knight_oath":  installKnightOath,
	}
}

// installVolleyBanner fires N bonus shots on the triggering lane every
// K base shots from the owning side.
func installVolleyBanner(ctx InstallContext, rt *Runtime) {
	threshold := int(ctx.Rolls["shotThreshold"])
	bonus := int(ctx.Rolls["bonusShots"])
	if threshold < 1 {
		threshold = 1
	}

	rt.OnBattleEvent(events.EventTypeShotFired, func(ev events.Event) {
		shot, ok := ev.Payload.(events.ShotPayload)
		if !ok || shot.Side != ctx.Side {
			return
		}
		// Only base shots advance the counter; counting bonus shots
		// would feed the effect back into itself.
		if shot.ItemShot {
			return
		}
		if rt.IncrCounter("baseShots") >= threshold {
			rt.ResetCounter("baseShots")
			rt.Actions().FireBonusShots(ctx.BattleID, ctx.Side, shot.Lane, bonus, ctx.InstanceID)
		}
	})
}

// installAegisCharm arms a one-shot castle shield that activates when
// the owning side's castle drops below the rolled threshold.
func installAegisCharm(ctx InstallContext, rt *Runtime) {
	shieldHP := int(ctx.Rolls["shieldHP"])
	threshold := ctx.Rolls["activationThreshold"]

	rt.OnBattleEvent(events.EventTypeCastleDamaged, func(ev events.Event) {
		hit, ok := ev.Payload.(events.CastlePayload)
		if !ok || hit.Side != ctx.Side {
			return
		}
		if rt.Counter("armed") != 0 {
			return
		}
		if hit.MaxHP <= 0 || float64(hit.HP)/float64(hit.MaxHP) > threshold {
			return
		}
		rt.SetCounter("armed", 1)
		rt.Actions().ActivateShield(ctx.BattleID, ctx.Side, shieldHP, threshold, ctx.InstanceID)
	})
}

// installMendingSigil heals the owning side's active shield on a fixed
// interval while one is up. The heal is a scheduled task on the engine
// tick timeline, so battle teardown defuses it.
func installMendingSigil(ctx InstallContext, rt *Runtime, tickRate int) {
	amount := int(ctx.Rolls["healAmount"])
	intervalTicks := int64(ctx.Rolls["healIntervalSec"] * float64(tickRate))
	if intervalTicks < 1 {
		intervalTicks = 1
	}

	var tickFn func()
	tickFn = func() {
		if !rt.Active() || rt.Counter("ticking") == 0 {
			return
		}
		rt.Actions().HealShield(ctx.BattleID, ctx.Side, amount)
		rt.Actions().ScheduleTask(ctx.BattleID, intervalTicks, tickFn)
	}

	rt.OnBattleEvent(events.EventTypeShieldActivated, func(ev events.Event) {
		shield, ok := ev.Payload.(events.ShieldPayload)
		if !ok || shield.Side != ctx.Side {
			return
		}
		if rt.Counter("ticking") == 1 {
			return // already running for the current shield
		}
		rt.SetCounter("ticking", 1)
		rt.Actions().ScheduleTask(ctx.BattleID, intervalTicks, tickFn)
	})

	rt.OnBattleEvent(events.EventTypeShieldBroken, func(ev events.Event) {
		shield, ok := ev.Payload.(events.ShieldPayload)
		if !ok || shield.Side != ctx.Side {
			return
		}
		rt.ResetCounter("ticking")
	})
}

// installSwiftQuiver scales the owning side's projectile speed for the
// whole battle.
func installSwiftQuiver(ctx InstallContext, rt *Runtime) {
	mult := ctx.Rolls["speedMult"]
	if mult <= 0 {
		mult = 1
	}

	rt.OnBattleEvent(events.EventTypeBattleStart, func(events.Event) {
		rt.Actions().SetProjectileSpeedMult(ctx.BattleID, ctx.Side, mult)
	})
}

// installKnightOath grants the owning side's defender extra free-block
// charges at battle start.
func installKnightOath(ctx InstallContext, rt *Runtime) {
	charges := int(ctx.Rolls["blockCharges"])

	rt.OnBattleEvent(events.EventTypeBattleStart, func(events.Event) {
		rt.Actions().GrantKnightCharges(ctx.BattleID, ctx.Side, charges)
	})
}
