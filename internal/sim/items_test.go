package sim

import (
	"testing"

	"siegelane/internal/feed"
	"siegelane/internal/sim/core"
	"siegelane/internal/sim/events"
	"siegelane/internal/sim/roll"
)

func equip(t *testing.T, e *Engine, id string, side core.Side, templateID string, rolls map[string]float64) {
	t.Helper()
	tpl, ok := roll.GetTemplate(templateID)
	if !ok {
		t.Fatalf("Unknown template %s", templateID)
	}
	item := roll.RolledItem{TemplateID: templateID, Slot: tpl.Slot, Rolls: rolls, Tier: roll.TierMid}
	if err := e.EquipItem(id, side, item); err != nil {
		t.Fatalf("EquipItem %s failed: %v", templateID, err)
	}
}

func TestKnightOathGrantsChargesAtStart(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	id, _ := e.CreateBattle(BattleConfig{})
	equip(t, e, id, core.SideAway, "knight_oath", map[string]float64{"blockCharges": 3})

	if err := e.StartBattle(id); err != nil {
		t.Fatalf("StartBattle failed: %v", err)
	}
	snap, _ := e.Snapshot(id)
	if got := snap.Sides[core.SideAway].Knight.Charges; got != 3 {
		t.Errorf("Expected 3 block charges after start, got %d", got)
	}
}

func TestSwiftQuiverSpeedsOwnShots(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	id, _ := e.CreateBattle(BattleConfig{})
	equip(t, e, id, core.SideHome, "swift_quiver", map[string]float64{"speedMult": 1.5})
	e.StartBattle(id)

	b := e.battles[id]
	if b.speedMult[core.SideHome] != 1.5 {
		t.Errorf("Expected home speed mult 1.5, got %v", b.speedMult[core.SideHome])
	}
	if b.speedMult[core.SideAway] != 1.0 {
		t.Errorf("Away side must keep 1.0, got %v", b.speedMult[core.SideAway])
	}
}

func TestEquipItemClampsWireRolls(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	id, _ := e.CreateBattle(BattleConfig{})
	equip(t, e, id, core.SideHome, "volley_banner", map[string]float64{
		"shotThreshold": 100,
		"bonusShots":    1e6,
		"cursed":        42,
	})

	item := e.battles[id].loadout[core.SideHome][roll.SlotBanner]
	if got := item.Rolls["shotThreshold"]; got != 8 {
		t.Errorf("Expected shotThreshold clamped to 8, got %v", got)
	}
	if got := item.Rolls["bonusShots"]; got != 3 {
		t.Errorf("Expected bonusShots clamped to 3, got %v", got)
	}
	if _, ok := item.Rolls["cursed"]; ok {
		t.Error("Undeclared stat must be dropped")
	}
	// Score and tier are recomputed from the clamped rolls, not trusted
	// from the wire.
	if item.Tier != roll.TierTop {
		t.Errorf("Expected recomputed top tier, got %v", item.Tier)
	}
}

func TestBonusVolleyCappedPerTrigger(t *testing.T) {
	cfg := testConfig()
	e, _ := newTestEngine(t, cfg)
	id := startedBattle(t, e, BattleConfig{})

	a := &engineActions{e: e}
	a.FireBonusShots(id, core.SideHome, core.LanePassing, 1_000_000, "itm-1")

	pending := len(e.battles[id].queues[core.SideHome][core.LanePassing].pending)
	if pending != cfg.MaxShotsPerDelta {
		t.Errorf("Expected volley capped at %d, queued %d", cfg.MaxShotsPerDelta, pending)
	}
}

func TestVolleyBannerFiresBonusShots(t *testing.T) {
	e, c := newTestEngine(t, testConfig())
	id, _ := e.CreateBattle(BattleConfig{})
	equip(t, e, id, core.SideHome, "volley_banner", map[string]float64{"shotThreshold": 4, "bonusShots": 2})
	e.StartBattle(id)

	submitLane(t, e, id, 1, core.SideHome, core.LanePassing, 4)
	e.StepN(80)

	base, bonus := 0, 0
	for _, ev := range c.ofType(events.EventTypeShotFired) {
		if ev.Payload.(events.ShotPayload).ItemShot {
			bonus++
		} else {
			base++
		}
	}
	if base != 4 {
		t.Errorf("Expected 4 base shots, got %d", base)
	}
	// Bonus shots do not count toward the next threshold, so exactly
	// one volley triggers.
	if bonus != 2 {
		t.Errorf("Expected 2 bonus shots, got %d", bonus)
	}
}

func TestAegisCharmRaisesShieldAtThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.OrbsPerLane = 0
	cfg.KnightHP = 1
	e, c := newTestEngine(t, cfg)
	id, _ := e.CreateBattle(BattleConfig{HomeStake: 20, AwayStake: 4})
	equip(t, e, id, core.SideAway, "aegis_charm", map[string]float64{"shieldHP": 6, "activationThreshold": 0.5})
	e.StartBattle(id)

	// Two wall hits bring the away castle to half: 4 -> 3 -> 2.
	submitLane(t, e, id, 1, core.SideHome, core.LanePassing, 2)
	e.StepN(40)

	if got := c.count(events.EventTypeShieldActivated); got != 1 {
		t.Fatalf("Expected shield at half HP, got %d activations", got)
	}
	snap, _ := e.Snapshot(id)
	sh := snap.Sides[core.SideAway].Castle.Shield
	if sh == nil || sh.MaxHP != 6 {
		t.Fatalf("Expected 6 HP shield, got %+v", sh)
	}

	// Further hits are absorbed, not applied to the walls.
	if err := e.SubmitQuarterStats(id, quarterWithLane(2, core.SideHome, core.LanePassing, 2)); err != nil {
		t.Fatalf("Quarter 2 stats failed: %v", err)
	}
	e.StepN(40)
	snap, _ = e.Snapshot(id)
	if hp := snap.Sides[core.SideAway].Castle.HP; hp != 2 {
		t.Errorf("Expected walls untouched at 2 HP, got %d", hp)
	}
	if got := c.count(events.EventTypeShieldActivated); got != 1 {
		t.Errorf("Charm must activate once, got %d", got)
	}
}

func TestMendingSigilHealsActiveShield(t *testing.T) {
	cfg := testConfig() // 10 TPS
	e, c := newTestEngine(t, cfg)
	id, _ := e.CreateBattle(BattleConfig{})
	equip(t, e, id, core.SideHome, "mending_sigil", map[string]float64{"healAmount": 2, "healIntervalSec": 2})
	e.StartBattle(id)

	a := &engineActions{e: e}
	a.ActivateShield(id, core.SideHome, 10, 0.5, "shield-item")
	e.battles[id].castles[core.SideHome].Shield.HP = 4

	e.StepN(21) // one 2s interval at 10 TPS

	if got := c.count(events.EventTypeShieldHealed); got != 1 {
		t.Fatalf("Expected 1 heal after interval, got %d", got)
	}
	if hp := e.battles[id].castles[core.SideHome].Shield.HP; hp != 6 {
		t.Errorf("Expected shield healed to 6, got %d", hp)
	}

	e.StepN(20)
	if got := c.count(events.EventTypeShieldHealed); got != 2 {
		t.Errorf("Expected repeating heals, got %d", got)
	}
}

func TestFinalDeactivatesItems(t *testing.T) {
	cfg := testConfig()
	cfg.OrbsPerLane = 0
	cfg.KnightHP = 1
	e, c := newTestEngine(t, cfg)
	id, _ := e.CreateBattle(BattleConfig{HomeStake: 20, AwayStake: 1})
	equip(t, e, id, core.SideHome, "swift_quiver", map[string]float64{"speedMult": 1.2})
	e.StartBattle(id)

	snap, _ := e.Snapshot(id)
	if len(snap.Sides[core.SideHome].ItemIDs) != 1 {
		t.Errorf("Expected 1 home item, got %v", snap.Sides[core.SideHome].ItemIDs)
	}
	if len(snap.Sides[core.SideAway].ItemIDs) != 0 {
		t.Errorf("Expected no away items, got %v", snap.Sides[core.SideAway].ItemIDs)
	}

	submitLane(t, e, id, 1, core.SideHome, core.LanePassing, 2)
	e.StepN(40)

	if c.count(events.EventTypeBattleFinal) != 1 {
		t.Fatal("Expected battle final")
	}
	if got := c.count(events.EventTypeItemDeactivated); got != 1 {
		t.Errorf("Expected item deactivated at final, got %d", got)
	}
	snap, _ = e.Snapshot(id)
	if len(snap.ItemIDs) != 0 {
		t.Errorf("Expected no active items after final, got %v", snap.ItemIDs)
	}
}

// quarterWithLane builds a QuarterStats with one lane delta.
func quarterWithLane(quarter int, side core.Side, lane core.Lane, delta int) feed.QuarterStats {
	qs := feed.QuarterStats{Quarter: quarter}
	qs.Deltas[side][lane] = delta
	return qs
}
