package sim

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"siegelane/internal/config"
	"siegelane/internal/feed"
	"siegelane/internal/persist"
	"siegelane/internal/sim/core"
	"siegelane/internal/sim/effects"
	"siegelane/internal/sim/events"
	"siegelane/internal/sim/roll"
)

// Deps are the engine's collaborators. Bus is required; the rest are
// optional.
type Deps struct {
	Bus        *events.Bus
	Journal    *events.Journal
	Recorder   persist.Recorder
	MaxBattles int

	// TickObserver, when set, receives the wall-clock duration of every
	// Step. Used to feed tick-timing metrics without the engine
	// depending on the metrics package.
	TickObserver func(time.Duration)
}

// Engine owns every battle. A single tick loop advances all of them;
// the mutex serializes the loop against the public API. Item effects
// run inside engine-owned call stacks (event fan-out, scheduled tasks)
// and must never re-acquire the lock.
type Engine struct {
	mu       sync.Mutex
	cfg      config.SimConfig
	battles  map[string]*Battle
	pool     *ProjectilePool
	bus      *events.Bus
	journal  *events.Journal
	recorder persist.Recorder
	registry *effects.Registry
	observe  func(time.Duration)

	tick       int64
	maxBattles int

	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewEngine creates an engine with the given simulation config.
func NewEngine(cfg config.SimConfig, deps Deps) *Engine {
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Recorder == nil {
		deps.Recorder = persist.Noop{}
	}
	if deps.MaxBattles <= 0 {
		deps.MaxBattles = 100
	}

	e := &Engine{
		cfg:        cfg,
		battles:    make(map[string]*Battle),
		pool:       NewProjectilePool(cfg.PoolSize),
		bus:        deps.Bus,
		journal:    deps.Journal,
		recorder:   deps.Recorder,
		observe:    deps.TickObserver,
		maxBattles: deps.MaxBattles,
	}
	e.registry = effects.NewRegistry(deps.Bus, &engineActions{e: e}, effects.DefaultInstallers(cfg.TickRate))
	return e
}

// Bus returns the event bus battles publish on.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Start launches the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.done = make(chan struct{})
	e.mu.Unlock()

	go e.tickLoop()
	log.Printf("⚔️ Simulation engine started (%d TPS)", e.cfg.TickRate)
}

// Stop halts the tick loop and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop := e.stopChan
	done := e.done
	e.mu.Unlock()

	close(stop)
	<-done
	log.Println("Simulation engine stopped")
}

func (e *Engine) tickLoop() {
	defer close(e.done)
	interval := time.Second / time.Duration(e.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Step advances the simulation one tick. The tick loop calls it on a
// timer; tests call it directly for deterministic runs.
func (e *Engine) Step() {
	start := time.Now()
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		if e.observe != nil {
			e.observe(time.Since(start))
		}
	}()

	e.tick++

	// Stable order so ties between battles resolve the same way every run.
	ids := make([]string, 0, len(e.battles))
	for id := range e.battles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b, ok := e.battles[id]
		if !ok {
			continue // torn down by an earlier battle's handler
		}
		e.advanceBattle(b)
	}
}

// StepN advances n ticks.
func (e *Engine) StepN(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

// Tick returns the current engine tick.
func (e *Engine) Tick() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// =============================================================================
// BATTLE LIFECYCLE
// =============================================================================

// CreateBattle registers a new battle in the Scheduled phase.
func (e *Engine) CreateBattle(bc BattleConfig) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.battles) >= e.maxBattles {
		return "", ErrBattleLimit
	}

	id := bc.ID
	if id == "" {
		id = uuid.New().String()
	}
	if _, exists := e.battles[id]; exists {
		return "", fmt.Errorf("battle %s already exists", id)
	}

	e.battles[id] = newBattle(id, bc, e.cfg)
	log.Printf("🏰 Battle created: %s (stakes %d/%d)", id, e.battles[id].stakes[core.SideHome], e.battles[id].stakes[core.SideAway])
	return id, nil
}

// EquipItem adds a rolled item to a side's loadout. The loadout locks
// when the battle starts; one item per slot.
func (e *Engine) EquipItem(battleID string, side core.Side, item roll.RolledItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.battles[battleID]
	if !ok {
		return ErrBattleNotFound
	}
	if b.Phase != PhaseScheduled {
		return ErrLoadoutLocked
	}
	if !side.Valid() {
		return fmt.Errorf("invalid side %d", side)
	}
	tpl, known := roll.GetTemplate(item.TemplateID)
	if !known {
		return fmt.Errorf("unknown item template %q", item.TemplateID)
	}
	// Rolls arrive from the wire; clamp them onto the template's stat
	// ranges so effect installers never see out-of-range values.
	item = roll.Normalize(tpl, item)
	if _, occupied := b.loadout[side][item.Slot]; occupied {
		return ErrSlotOccupied
	}

	b.loadout[side][item.Slot] = item
	return nil
}

// StartBattle consumes the loadout and opens quarter 1. Each equipped
// item activates exactly once, before the opening events fire, so
// battle-start effects observe them.
func (e *Engine) StartBattle(battleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.battles[battleID]
	if !ok {
		return ErrBattleNotFound
	}
	if b.Phase != PhaseScheduled {
		return ErrBadPhase
	}

	for _, side := range []core.Side{core.SideHome, core.SideAway} {
		for _, slot := range roll.AllSlots() {
			if item, ok := b.loadout[side][slot]; ok {
				e.registry.ActivateItem(battleID, side, item)
			}
		}
		b.knights[side].Deploy()
	}

	e.emit(events.NewEvent(events.EventTypeBattleStart, e.tick, battleID, nil))
	e.startQuarter(b, 1)
	log.Printf("⚔️ Battle started: %s", battleID)
	return nil
}

// SubmitQuarterStats feeds one quarter's stat deltas into the battle and
// opens the quarter's battle phase. The battle phase never starts
// without stats: this is the only transition into it.
func (e *Engine) SubmitQuarterStats(battleID string, qs feed.QuarterStats) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.battles[battleID]
	if !ok {
		return ErrBattleNotFound
	}
	if b.Phase != PhaseQuarterInProgress {
		return ErrBadPhase
	}
	if qs.Quarter != b.Quarter {
		return ErrWrongQuarter
	}
	if err := qs.Validate(); err != nil {
		return err
	}

	for sideIdx := range qs.Deltas {
		side := core.Side(sideIdx)
		for laneIdx, delta := range qs.Deltas[sideIdx] {
			shots := delta
			if shots > e.cfg.MaxShotsPerDelta {
				shots = e.cfg.MaxShotsPerDelta
			}
			e.enqueueShots(b, side, core.Lane(laneIdx), shots, false, "")
		}
	}

	b.Phase = PhaseQuarterBattle
	return nil
}

// ForceProgress ends the current quarter immediately, discarding any
// unfired or in-flight shots. Progressing a finished battle is rejected
// without mutating it.
func (e *Engine) ForceProgress(battleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.battles[battleID]
	if !ok {
		return ErrBattleNotFound
	}
	switch b.Phase {
	case PhaseScheduled:
		return ErrBadPhase
	case PhaseFinal:
		return ErrPeriodLimit
	}

	for side := range b.queues {
		for lane := range b.queues[side] {
			b.queues[side][lane].pending = nil
		}
	}
	for _, p := range b.live {
		e.pool.Release(p)
	}
	b.live = nil

	e.endQuarter(b)
	return nil
}

// TeardownBattle removes a battle in any phase. In-flight projectiles
// return to the pool, scheduled tasks are defused, item effects
// deactivate, and every later submission for the id is rejected.
func (e *Engine) TeardownBattle(battleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.teardownLocked(battleID)
}

func (e *Engine) teardownLocked(battleID string) error {
	b, ok := e.battles[battleID]
	if !ok {
		return ErrBattleNotFound
	}

	for _, p := range b.live {
		e.pool.Release(p)
	}
	b.live = nil
	b.tasks = nil
	for side := range b.queues {
		for lane := range b.queues[side] {
			b.queues[side][lane].close()
		}
	}

	delete(e.battles, battleID)
	e.registry.DeactivateBattle(battleID)
	e.bus.DropBattle(battleID)
	if e.journal != nil {
		e.journal.DropBattle(battleID)
	}

	log.Printf("🏰 Battle torn down: %s", battleID)
	return nil
}

// =============================================================================
// TICK ADVANCEMENT
// =============================================================================

func (e *Engine) advanceBattle(b *Battle) {
	switch b.Phase {
	case PhaseQuarterBattle:
		e.drainQueues(b)
		e.resolveProjectiles(b)
		e.runTasks(b)
		// Resolution may have finalized the battle mid-tick.
		if b.Phase == PhaseQuarterBattle && b.quiet() {
			e.endQuarter(b)
		}
	case PhaseQuarterInProgress:
		e.runTasks(b)
	}
}

func (e *Engine) drainQueues(b *Battle) {
	for _, side := range []core.Side{core.SideHome, core.SideAway} {
		for _, lane := range core.AllLanes() {
			b.queues[side][lane].drain(e.tick, e.cfg.FireIntervalTicks)
		}
	}
}

func (e *Engine) runTasks(b *Battle) {
	for _, t := range b.dueTasks(e.tick) {
		t.fn()
		if b.Phase == PhaseFinal {
			return // remaining tasks were cleared by finalization
		}
	}
}

func (e *Engine) startQuarter(b *Battle, q int) {
	b.Quarter = q
	b.Phase = PhaseQuarterInProgress
	e.emit(events.NewEvent(events.EventTypeQuarterStart, e.tick, b.ID, events.QuarterPayload{
		Quarter:  q,
		Overtime: q > 4,
	}))
}

func (e *Engine) endQuarter(b *Battle) {
	e.emit(events.NewEvent(events.EventTypeQuarterEnd, e.tick, b.ID, events.QuarterPayload{
		Quarter:  b.Quarter,
		Overtime: b.Quarter > 4,
	}))

	switch {
	case b.Quarter < 4:
		e.startQuarter(b, b.Quarter+1)
	case b.tied() && b.Quarter < e.cfg.MaxPeriods():
		e.startQuarter(b, b.Quarter+1)
	default:
		winner, ok := e.pickWinner(b)
		e.finalizeBattle(b, winner, ok)
	}
}

// pickWinner returns the side with the higher remaining castle HP, or
// ok=false on a draw.
func (e *Engine) pickWinner(b *Battle) (core.Side, bool) {
	home := b.castles[core.SideHome].HP
	away := b.castles[core.SideAway].HP
	switch {
	case home > away:
		return core.SideHome, true
	case away > home:
		return core.SideAway, true
	default:
		return core.SideHome, false
	}
}

func (e *Engine) finalizeBattle(b *Battle, winner core.Side, winnerSet bool) {
	b.Phase = PhaseFinal
	b.winner = winner
	b.winnerSet = winnerSet
	b.finalQuarters = b.Quarter
	b.tasks = nil
	for side := range b.queues {
		for lane := range b.queues[side] {
			b.queues[side][lane].pending = nil
		}
	}

	e.emit(events.NewEvent(events.EventTypeBattleFinal, e.tick, b.ID, events.FinalPayload{
		WinnerSet: winnerSet,
		Winner:    winner,
		HomeHP:    b.castles[core.SideHome].HP,
		AwayHP:    b.castles[core.SideAway].HP,
		Quarters:  b.Quarter,
	}))

	e.registry.DeactivateBattle(b.ID)

	outcome := persist.Outcome{
		BattleID:  b.ID,
		Winner:    "draw",
		HomeHP:    b.castles[core.SideHome].HP,
		AwayHP:    b.castles[core.SideAway].HP,
		HomeStake: b.stakes[core.SideHome],
		AwayStake: b.stakes[core.SideAway],
		Quarters:  b.Quarter,
		Overtime:  b.Quarter > 4,
		EndedAt:   time.Now(),
	}
	if winnerSet {
		outcome.Winner = winner.String()
	}
	if err := e.recorder.RecordOutcome(outcome); err != nil {
		log.Printf("Failed to record outcome for %s: %v", b.ID, err)
	}

	log.Printf("🏁 Battle final: %s winner=%s quarters=%d", b.ID, outcome.Winner, b.Quarter)
}

// =============================================================================
// FIRING
// =============================================================================

// enqueueShots queues n shots on one lane. Queue entries are fire
// closures so the lane pacing applies uniformly to base and bonus shots.
func (e *Engine) enqueueShots(b *Battle, side core.Side, lane core.Lane, n int, itemShot bool, originID string) {
	for i := 0; i < n; i++ {
		fn := func() error {
			return e.fireShot(b, side, lane, itemShot, originID)
		}
		if !b.queues[side][lane].enqueue(fn) {
			return
		}
	}
}

func (e *Engine) fireShot(b *Battle, side core.Side, lane core.Lane, itemShot bool, originID string) error {
	p := e.pool.Acquire()
	if p == nil {
		return fmt.Errorf("projectile pool exhausted")
	}

	b.shotSeq++
	p.ID = fmt.Sprintf("%s#%d", b.ID, b.shotSeq)
	p.BattleID = b.ID
	p.Side = side
	p.Lane = lane
	p.ItemShot = itemShot
	p.OriginID = originID
	p.FiredTick = e.tick
	p.ArriveTick = e.tick + flightTicks(e.cfg.ProjectileFlightTicks, b.speedMult[side])
	b.live = append(b.live, p)

	e.emit(events.NewEvent(events.EventTypeShotFired, e.tick, b.ID, events.ShotPayload{
		Side:         side,
		Lane:         lane,
		ProjectileID: p.ID,
		ItemShot:     itemShot,
		OriginID:     originID,
	}))
	return nil
}

func flightTicks(base int64, mult float64) int64 {
	if mult <= 0 {
		mult = 1
	}
	t := int64(float64(base)/mult + 0.5)
	if t < 1 {
		t = 1
	}
	return t
}

// =============================================================================
// EVENTS & INTROSPECTION
// =============================================================================

func (e *Engine) emit(ev events.Event) {
	if e.journal != nil {
		e.journal.Record(ev)
	}
	e.bus.Emit(ev)
}

// BattleCount returns how many battles the engine currently holds.
func (e *Engine) BattleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.battles)
}

// Gauges returns the point-in-time counts sampled by the metrics poller.
func (e *Engine) Gauges() (battles, projectiles, items int) {
	e.mu.Lock()
	battles = len(e.battles)
	for _, b := range e.battles {
		projectiles += len(b.live)
	}
	e.mu.Unlock()
	return battles, projectiles, e.registry.ActiveInstances()
}

// Stats reports engine-level counters for the debug endpoint.
func (e *Engine) Stats() map[string]any {
	e.mu.Lock()
	tick := e.tick
	battles := len(e.battles)
	inFlight := 0
	for _, b := range e.battles {
		inFlight += len(b.live)
	}
	e.mu.Unlock()

	return map[string]any{
		"tick":                  tick,
		"battles":               battles,
		"projectiles_in_flight": inFlight,
		"active_items":          e.registry.ActiveInstances(),
		"pool":                  e.pool.Stats(),
	}
}
