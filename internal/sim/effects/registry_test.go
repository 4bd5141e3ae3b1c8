package effects

import (
	"testing"

	"siegelane/internal/sim/core"
	"siegelane/internal/sim/events"
	"siegelane/internal/sim/roll"
)

// fakeActions records every engine action an effect drives.
type fakeActions struct {
	bonusShots   []bonusCall
	shields      []shieldCall
	heals        []int
	speedMults   []float64
	charges      []int
	tasks        []scheduledCall
}

type bonusCall struct {
	side  core.Side
	lane  core.Lane
	count int
}

type shieldCall struct {
	side core.Side
	hp   int
}

type scheduledCall struct {
	delay int64
	fn    func()
}

func (f *fakeActions) FireBonusShots(_ string, side core.Side, lane core.Lane, count int, _ string) {
	f.bonusShots = append(f.bonusShots, bonusCall{side: side, lane: lane, count: count})
}

func (f *fakeActions) ActivateShield(_ string, side core.Side, hp int, _ float64, _ string) {
	f.shields = append(f.shields, shieldCall{side: side, hp: hp})
}

func (f *fakeActions) HealShield(_ string, _ core.Side, amount int) {
	f.heals = append(f.heals, amount)
}

func (f *fakeActions) SetProjectileSpeedMult(_ string, _ core.Side, mult float64) {
	f.speedMults = append(f.speedMults, mult)
}

func (f *fakeActions) GrantKnightCharges(_ string, _ core.Side, charges int) {
	f.charges = append(f.charges, charges)
}

func (f *fakeActions) ScheduleTask(_ string, delayTicks int64, fn func()) {
	f.tasks = append(f.tasks, scheduledCall{delay: delayTicks, fn: fn})
}

// runTasks drains and executes all currently scheduled tasks once.
func (f *fakeActions) runTasks() {
	tasks := f.tasks
	f.tasks = nil
	for _, task := range tasks {
		task.fn()
	}
}

func newTestRegistry(t *testing.T) (*Registry, *events.Bus, *fakeActions) {
	t.Helper()
	bus := events.NewBus()
	actions := &fakeActions{}
	return NewRegistry(bus, actions, DefaultInstallers(10)), bus, actions
}

func rolledItem(templateID string, rolls map[string]float64) roll.RolledItem {
	return roll.RolledItem{TemplateID: templateID, Rolls: rolls, Tier: roll.TierMid}
}

// TestActivateUnknownTemplateIsNoOp verifies unregistered templates
// activate silently without handlers
func TestActivateUnknownTemplateIsNoOp(t *testing.T) {
	reg, bus, _ := newTestRegistry(t)

	id := reg.ActivateItem("b1", core.SideHome, rolledItem("mystery_item", nil))
	if id == "" {
		t.Fatal("expected an instance id for unknown template")
	}
	if got := bus.SubscriberCount(); got != 0 {
		t.Errorf("no-op activation registered %d handlers", got)
	}

	// Still a live instance; deactivation must be clean
	reg.DeactivateItem(id)
	if reg.ActiveInstances() != 0 {
		t.Error("instance not removed after deactivation")
	}
}

// TestDeactivateIdempotent verifies deactivation is safe on unknown and
// already-removed ids
func TestDeactivateIdempotent(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	id := reg.ActivateItem("b1", core.SideHome, rolledItem("swift_quiver", map[string]float64{"speedMult": 1.2}))
	reg.DeactivateItem(id)
	reg.DeactivateItem(id)
	reg.DeactivateItem("not-an-instance")
	reg.DeactivateBattle("never-created")
}

// TestDeactivateBattleRemovesAllInstances verifies battle teardown
func TestDeactivateBattleRemovesAllInstances(t *testing.T) {
	reg, bus, _ := newTestRegistry(t)

	reg.ActivateItem("b1", core.SideHome, rolledItem("swift_quiver", map[string]float64{"speedMult": 1.2}))
	reg.ActivateItem("b1", core.SideAway, rolledItem("knight_oath", map[string]float64{"blockCharges": 2}))
	keep := reg.ActivateItem("b2", core.SideHome, rolledItem("swift_quiver", map[string]float64{"speedMult": 1.5}))

	reg.DeactivateBattle("b1")

	if reg.ActiveInstances() != 1 {
		t.Errorf("expected 1 surviving instance, got %d", reg.ActiveInstances())
	}
	if got := reg.InstancesForBattle("b2"); len(got) != 1 || got[0] != keep {
		t.Errorf("b2 instances corrupted: %v", got)
	}
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 surviving subscription, got %d", bus.SubscriberCount())
	}
}

// TestVolleyBannerThreshold verifies "every K base shots, fire N bonus
// shots" including counter reset and bonus-shot exclusion
func TestVolleyBannerThreshold(t *testing.T) {
	reg, bus, actions := newTestRegistry(t)

	id := reg.ActivateItem("b1", core.SideHome, rolledItem("volley_banner", map[string]float64{
		"shotThreshold": 3,
		"bonusShots":    2,
	}))

	fire := func(side core.Side, itemShot bool) {
		bus.Emit(events.NewEvent(events.EventTypeShotFired, 0, "b1", events.ShotPayload{
			Side:     side,
			Lane:     core.LaneRushing,
			ItemShot: itemShot,
		}))
	}

	// Two base shots: below threshold
	fire(core.SideHome, false)
	fire(core.SideHome, false)
	if len(actions.bonusShots) != 0 {
		t.Fatal("bonus fired below threshold")
	}

	// Opposing side and item shots must not count
	fire(core.SideAway, false)
	fire(core.SideHome, true)
	if len(actions.bonusShots) != 0 {
		t.Fatal("filtered shots advanced the counter")
	}

	// Third base shot trips the threshold
	fire(core.SideHome, false)
	if len(actions.bonusShots) != 1 {
		t.Fatalf("expected 1 volley, got %d", len(actions.bonusShots))
	}
	if actions.bonusShots[0].count != 2 || actions.bonusShots[0].lane != core.LaneRushing {
		t.Errorf("unexpected volley %+v", actions.bonusShots[0])
	}

	// Counter reset: three more base shots fire again
	if v, ok := reg.CounterValue(id, "baseShots"); !ok || v != 0 {
		t.Errorf("counter not reset, got %d (ok=%v)", v, ok)
	}
	fire(core.SideHome, false)
	fire(core.SideHome, false)
	fire(core.SideHome, false)
	if len(actions.bonusShots) != 2 {
		t.Errorf("expected 2 volleys after second threshold, got %d", len(actions.bonusShots))
	}
}

// TestAegisCharmActivatesOnce verifies the shield arms only once, below
// the rolled threshold
func TestAegisCharmActivatesOnce(t *testing.T) {
	reg, bus, actions := newTestRegistry(t)
	reg.ActivateItem("b1", core.SideHome, rolledItem("aegis_charm", map[string]float64{
		"shieldHP":            10,
		"activationThreshold": 0.5,
	}))

	hit := func(side core.Side, hp, max int) {
		bus.Emit(events.NewEvent(events.EventTypeCastleDamaged, 0, "b1", events.CastlePayload{
			Side: side, HP: hp, MaxHP: max, Damage: 1,
		}))
	}

	hit(core.SideHome, 15, 20) // 75%: above threshold
	if len(actions.shields) != 0 {
		t.Fatal("shield activated above threshold")
	}

	hit(core.SideAway, 2, 20) // wrong side
	if len(actions.shields) != 0 {
		t.Fatal("shield activated for opposing side's damage")
	}

	hit(core.SideHome, 10, 20) // exactly 50%
	if len(actions.shields) != 1 {
		t.Fatalf("expected 1 shield activation, got %d", len(actions.shields))
	}
	if actions.shields[0].hp != 10 {
		t.Errorf("expected shield HP 10, got %d", actions.shields[0].hp)
	}

	hit(core.SideHome, 5, 20) // armed already: one-shot
	if len(actions.shields) != 1 {
		t.Errorf("shield armed twice")
	}
}

// TestMendingSigilHealLoop verifies the repeating heal task starts on
// shield activation and stops on break
func TestMendingSigilHealLoop(t *testing.T) {
	reg, bus, actions := newTestRegistry(t)

	reg.ActivateItem("b1", core.SideHome, rolledItem("mending_sigil", map[string]float64{
		"healAmount":      2,
		"healIntervalSec": 1,
	}))

	bus.Emit(events.NewEvent(events.EventTypeShieldActivated, 0, "b1", events.ShieldPayload{
		Side: core.SideHome, HP: 10, MaxHP: 10,
	}))
	if len(actions.tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(actions.tasks))
	}
	if actions.tasks[0].delay != 10 { // 1s at 10 TPS
		t.Errorf("expected delay 10 ticks, got %d", actions.tasks[0].delay)
	}

	// Each firing heals and reschedules
	actions.runTasks()
	if len(actions.heals) != 1 || actions.heals[0] != 2 {
		t.Fatalf("expected one heal of 2, got %v", actions.heals)
	}
	if len(actions.tasks) != 1 {
		t.Fatal("heal task did not reschedule")
	}

	// Break stops the loop: the pending task fires as a no-op
	bus.Emit(events.NewEvent(events.EventTypeShieldBroken, 0, "b1", events.ShieldPayload{
		Side: core.SideHome,
	}))
	actions.runTasks()
	if len(actions.heals) != 1 {
		t.Errorf("heal ran after shield break: %v", actions.heals)
	}
	if len(actions.tasks) != 0 {
		t.Error("task rescheduled after shield break")
	}
}

// TestSwiftQuiverAndKnightOath verify the battle-start installers
func TestSwiftQuiverAndKnightOath(t *testing.T) {
	reg, bus, actions := newTestRegistry(t)

	reg.ActivateItem("b1", core.SideHome, rolledItem("swift_quiver", map[string]float64{"speedMult": 1.4}))
	reg.ActivateItem("b1", core.SideAway, rolledItem("knight_oath", map[string]float64{"blockCharges": 3}))

	bus.Emit(events.NewEvent(events.EventTypeBattleStart, 0, "b1", nil))

	if len(actions.speedMults) != 1 || actions.speedMults[0] != 1.4 {
		t.Errorf("expected speed mult 1.4, got %v", actions.speedMults)
	}
	if len(actions.charges) != 1 || actions.charges[0] != 3 {
		t.Errorf("expected 3 charges, got %v", actions.charges)
	}
}

// TestCountersUnknownInstance verifies safe counter lookups
func TestCountersUnknownInstance(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	if _, ok := reg.CounterValue("ghost", "anything"); ok {
		t.Error("counter lookup on unknown instance reported ok")
	}
}
