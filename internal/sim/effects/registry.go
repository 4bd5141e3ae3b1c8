// Package effects manages item-instance lifecycle: activation installs
// event handlers from an explicit installer table, deactivation tears
// them down. Per-instance named counters let effects track thresholds.
package effects

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"siegelane/internal/sim/core"
	"siegelane/internal/sim/events"
	"siegelane/internal/sim/roll"
)

// Actions is the slice of engine behavior item effects may drive. The
// engine implements it; every call happens inside an engine-owned call
// stack (event fan-out or scheduled tasks), so implementations must not
// re-acquire the engine lock.
type Actions interface {
	// FireBonusShots enqueues count item-sourced shots on one lane.
	FireBonusShots(battleID string, side core.Side, lane core.Lane, count int, originID string)
	// ActivateShield installs a shield over the side's castle. The
	// threshold is the castle HP ratio that triggered the activation,
	// recorded on the shield for state introspection.
	ActivateShield(battleID string, side core.Side, hp int, threshold float64, sourceItemID string)
	// HealShield heals the side's active shield, clamped to its max.
	HealShield(battleID string, side core.Side, amount int)
	// SetProjectileSpeedMult scales the side's projectile flight speed.
	SetProjectileSpeedMult(battleID string, side core.Side, mult float64)
	// GrantKnightCharges adds free-block charges to the side's defender.
	GrantKnightCharges(battleID string, side core.Side, charges int)
	// ScheduleTask runs fn after delayTicks engine ticks. Tasks belonging
	// to a torn-down battle are defused, never invoked.
	ScheduleTask(battleID string, delayTicks int64, fn func())
}

// InstallContext is the read-only runtime context handed to installers.
type InstallContext struct {
	InstanceID string
	BattleID   string
	Side       core.Side
	TemplateID string
	Rolls      map[string]float64
	Tier       roll.Tier
}

// Installer wires one item instance's behavior: it subscribes to events
// and seeds counters through the Runtime.
type Installer func(ctx InstallContext, rt *Runtime)

// instance is the mutable state of one activated item.
type instance struct {
	id         string
	battleID   string
	side       core.Side
	templateID string
	active     bool
	counters   map[string]int
	subs       []events.SubscriptionID
}

// Registry owns item-instance lifecycle for all battles. The installer
// table is fixed at construction; there is no import-time registration.
type Registry struct {
	mu         sync.Mutex
	bus        *events.Bus
	actions    Actions
	installers map[string]Installer
	instances  map[string]*instance
	byBattle   map[string][]string // battle id -> instance ids
}

// NewRegistry builds a registry around a bus, the engine's action
// surface, and a static (templateID, installer) table.
func NewRegistry(bus *events.Bus, actions Actions, installers map[string]Installer) *Registry {
	return &Registry{
		bus:        bus,
		actions:    actions,
		installers: installers,
		instances:  make(map[string]*instance),
		byBattle:   make(map[string][]string),
	}
}

// ActivateItem allocates instance state for a rolled item on one side of
// one battle and invokes its installer. Unregistered template ids
// activate as silent no-ops: items are optional content, not a hard
// failure.
func (r *Registry) ActivateItem(battleID string, side core.Side, item roll.RolledItem) string {
	inst := &instance{
		id:         uuid.NewString(),
		battleID:   battleID,
		side:       side,
		templateID: item.TemplateID,
		active:     true,
		counters:   make(map[string]int),
	}

	r.mu.Lock()
	r.instances[inst.id] = inst
	r.byBattle[battleID] = append(r.byBattle[battleID], inst.id)
	installer, known := r.installers[item.TemplateID]
	r.mu.Unlock()

	if !known {
		log.Printf("⚠️ no installer for template %q, activating as no-op", item.TemplateID)
	} else {
		installer(InstallContext{
			InstanceID: inst.id,
			BattleID:   battleID,
			Side:       side,
			TemplateID: item.TemplateID,
			Rolls:      item.Rolls,
			Tier:       item.Tier,
		}, &Runtime{reg: r, inst: inst})
	}

	r.bus.Emit(events.NewEvent(events.EventTypeItemActivated, 0, battleID, events.ItemPayload{
		InstanceID: inst.id,
		TemplateID: item.TemplateID,
		Side:       side,
		Tier:       uint8(item.Tier),
	}))
	return inst.id
}

// DeactivateItem unsubscribes all handlers owned by the instance and
// discards its counters. Idempotent, safe on unknown ids.
func (r *Registry) DeactivateItem(instanceID string) {
	r.mu.Lock()
	inst, ok := r.instances[instanceID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.instances, instanceID)
	ids := r.byBattle[inst.battleID]
	n := 0
	for _, id := range ids {
		if id != instanceID {
			ids[n] = id
			n++
		}
	}
	if n == 0 {
		delete(r.byBattle, inst.battleID)
	} else {
		r.byBattle[inst.battleID] = ids[:n]
	}
	subs := inst.subs
	inst.active = false
	inst.subs = nil
	inst.counters = nil
	battleID := inst.battleID
	templateID := inst.templateID
	side := inst.side
	r.mu.Unlock()

	for _, sub := range subs {
		r.bus.Unsubscribe(sub)
	}

	r.bus.Emit(events.NewEvent(events.EventTypeItemDeactivated, 0, battleID, events.ItemPayload{
		InstanceID: instanceID,
		TemplateID: templateID,
		Side:       side,
	}))
}

// DeactivateBattle deactivates every instance bound to a battle id.
// Idempotent, safe on unknown ids.
func (r *Registry) DeactivateBattle(battleID string) {
	r.mu.Lock()
	ids := append([]string(nil), r.byBattle[battleID]...)
	r.mu.Unlock()

	for _, id := range ids {
		r.DeactivateItem(id)
	}
}

// CounterValue reads a per-instance counter. The second return is false
// for unknown or deactivated instances.
func (r *Registry) CounterValue(instanceID, name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[instanceID]
	if !ok || !inst.active {
		return 0, false
	}
	return inst.counters[name], true
}

// ActiveInstances returns the number of live instances, for teardown
// verification.
func (r *Registry) ActiveInstances() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// InstancesForBattle returns the live instance ids bound to a battle.
func (r *Registry) InstancesForBattle(battleID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.byBattle[battleID]...)
}

// InstancesForSide returns the live instance ids bound to one side of a
// battle.
func (r *Registry) InstancesForSide(key core.SideKey) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, id := range r.byBattle[key.BattleID] {
		if inst := r.instances[id]; inst != nil && inst.side == key.Side {
			out = append(out, id)
		}
	}
	return out
}

// Runtime is the handle an installer uses to wire its instance. All
// subscriptions made through it are owned by the instance and removed on
// deactivation.
type Runtime struct {
	reg  *Registry
	inst *instance
}

// OnBattleEvent subscribes a handler scoped to the instance's battle.
func (rt *Runtime) OnBattleEvent(t events.EventType, h events.Handler) {
	id := rt.reg.bus.SubscribeBattle(rt.inst.battleID, t, h)
	rt.reg.mu.Lock()
	rt.inst.subs = append(rt.inst.subs, id)
	rt.reg.mu.Unlock()
}

// OnGlobalEvent subscribes a handler across all battles. Handlers must
// filter on battle id themselves.
func (rt *Runtime) OnGlobalEvent(t events.EventType, h events.Handler) {
	id := rt.reg.bus.Subscribe(t, h)
	rt.reg.mu.Lock()
	rt.inst.subs = append(rt.inst.subs, id)
	rt.reg.mu.Unlock()
}

// Actions exposes the engine behavior surface.
func (rt *Runtime) Actions() Actions {
	return rt.reg.actions
}

// Counter returns the current value of a named counter.
func (rt *Runtime) Counter(name string) int {
	rt.reg.mu.Lock()
	defer rt.reg.mu.Unlock()
	if !rt.inst.active {
		return 0
	}
	return rt.inst.counters[name]
}

// SetCounter sets a named counter.
func (rt *Runtime) SetCounter(name string, v int) {
	rt.reg.mu.Lock()
	defer rt.reg.mu.Unlock()
	if !rt.inst.active {
		return
	}
	rt.inst.counters[name] = v
}

// IncrCounter increments a named counter and returns the new value.
func (rt *Runtime) IncrCounter(name string) int {
	rt.reg.mu.Lock()
	defer rt.reg.mu.Unlock()
	if !rt.inst.active {
		return 0
	}
	rt.inst.counters[name]++
	return rt.inst.counters[name]
}

// ResetCounter zeroes a named counter.
func (rt *Runtime) ResetCounter(name string) {
	rt.reg.mu.Lock()
	defer rt.reg.mu.Unlock()
	if !rt.inst.active {
		return
	}
	rt.inst.counters[name] = 0
}

// Active reports whether the instance is still live. Handlers that
// outlive deactivation by a tick use this to bail out.
func (rt *Runtime) Active() bool {
	rt.reg.mu.Lock()
	defer rt.reg.mu.Unlock()
	return rt.inst.active
}
