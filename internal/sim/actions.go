package sim

import (
	"log"

	"siegelane/internal/sim/core"
	"siegelane/internal/sim/events"
)

// engineActions adapts the engine for item effects. Every method runs
// inside an engine-owned call stack (event fan-out or a scheduled task),
// so the engine lock is already held: nothing here may lock. Calls
// naming an unknown or finished battle are logged no-ops.
type engineActions struct {
	e *Engine
}

func (a *engineActions) activeBattle(battleID, op string) *Battle {
	b, ok := a.e.battles[battleID]
	if !ok {
		log.Printf("Effect %s ignored: battle %s gone", op, battleID)
		return nil
	}
	if b.Phase == PhaseFinal {
		return nil
	}
	return b
}

func (a *engineActions) FireBonusShots(battleID string, side core.Side, lane core.Lane, count int, originID string) {
	b := a.activeBattle(battleID, "bonus_shots")
	if b == nil || count <= 0 {
		return
	}
	if count > a.e.cfg.MaxShotsPerDelta {
		log.Printf("⚠️ Bonus volley from %s clamped %d -> %d", originID, count, a.e.cfg.MaxShotsPerDelta)
		count = a.e.cfg.MaxShotsPerDelta
	}
	a.e.enqueueShots(b, side, lane, count, true, originID)
}

func (a *engineActions) ActivateShield(battleID string, side core.Side, hp int, threshold float64, sourceItemID string) {
	b := a.activeBattle(battleID, "shield")
	if b == nil || hp <= 0 {
		return
	}
	sh := b.castles[side].ActivateShield(hp, threshold, sourceItemID)
	a.e.emit(events.NewEvent(events.EventTypeShieldActivated, a.e.tick, battleID, events.ShieldPayload{
		Side:         side,
		HP:           sh.HP,
		MaxHP:        sh.MaxHP,
		SourceItemID: sourceItemID,
	}))
}

func (a *engineActions) HealShield(battleID string, side core.Side, amount int) {
	b := a.activeBattle(battleID, "heal")
	if b == nil {
		return
	}
	castle := b.castles[side]
	if castle.HealShield(amount) == 0 {
		return
	}
	a.e.emit(events.NewEvent(events.EventTypeShieldHealed, a.e.tick, battleID, events.ShieldPayload{
		Side:         side,
		HP:           castle.Shield.HP,
		MaxHP:        castle.Shield.MaxHP,
		SourceItemID: castle.Shield.SourceItemID,
	}))
}

func (a *engineActions) SetProjectileSpeedMult(battleID string, side core.Side, mult float64) {
	b := a.activeBattle(battleID, "speed")
	if b == nil || mult <= 0 {
		return
	}
	b.speedMult[side] = mult
}

func (a *engineActions) GrantKnightCharges(battleID string, side core.Side, charges int) {
	b := a.activeBattle(battleID, "charges")
	if b == nil {
		return
	}
	b.knights[side].GrantCharges(charges)
}

func (a *engineActions) ScheduleTask(battleID string, delayTicks int64, fn func()) {
	b := a.activeBattle(battleID, "task")
	if b == nil || fn == nil {
		return
	}
	if delayTicks < 1 {
		delayTicks = 1
	}
	b.scheduleTask(a.e.tick+delayTicks, fn)
}
