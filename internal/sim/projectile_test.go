package sim

import (
	"testing"

	"siegelane/internal/sim/core"
)

func TestPoolAcquireReleaseCycle(t *testing.T) {
	pp := NewProjectilePool(2)

	p1 := pp.Acquire()
	p2 := pp.Acquire()
	if p1 == nil || p2 == nil {
		t.Fatal("Expected acquires under cap to succeed")
	}
	if pp.Outstanding() != 2 {
		t.Errorf("Expected 2 outstanding, got %d", pp.Outstanding())
	}

	// At capacity: log-and-drop, never allocate past the limit.
	if p3 := pp.Acquire(); p3 != nil {
		t.Error("Expected nil at pool capacity")
	}

	pp.Release(p1)
	if pp.Outstanding() != 1 {
		t.Errorf("Expected 1 outstanding after release, got %d", pp.Outstanding())
	}

	// The freed instance is reused, zeroed.
	p1.ID = "stale"
	p4 := pp.Acquire()
	if p4 == nil {
		t.Fatal("Expected reuse after release")
	}
	if p4.ID != "" || p4.BattleID != "" {
		t.Errorf("Expected zeroed reused projectile, got %+v", p4)
	}
}

func TestPoolDoubleReleaseIgnored(t *testing.T) {
	pp := NewProjectilePool(4)
	p := pp.Acquire()

	pp.Release(p)
	pp.Release(p) // must not corrupt the free list
	pp.Release(nil)

	if pp.Outstanding() != 0 {
		t.Errorf("Expected 0 outstanding, got %d", pp.Outstanding())
	}
	stats := pp.Stats()
	if stats["double_releases"].(uint64) != 1 {
		t.Errorf("Expected 1 counted double release, got %v", stats["double_releases"])
	}
	if stats["free"].(int) != 1 {
		t.Errorf("Expected exactly 1 free instance, got %v", stats["free"])
	}
}

func TestProjectileProgress(t *testing.T) {
	p := &Projectile{FiredTick: 10, ArriveTick: 20}

	tests := []struct {
		tick int64
		want float64
	}{
		{5, 0},
		{10, 0},
		{15, 0.5},
		{20, 1},
		{25, 1},
	}
	for _, tt := range tests {
		if got := p.Progress(tt.tick); got != tt.want {
			t.Errorf("Progress(%d) = %v, want %v", tt.tick, got, tt.want)
		}
	}

	// Instant flight reports complete.
	instant := &Projectile{FiredTick: 10, ArriveTick: 10}
	if got := instant.Progress(10); got != 1 {
		t.Errorf("Expected instant flight progress 1, got %v", got)
	}
}

func TestLaneQueueRejectsAfterClose(t *testing.T) {
	q := &laneQueue{}
	fired := 0
	fn := func() error { fired++; return nil }

	if !q.enqueue(fn) {
		t.Fatal("Expected enqueue on open queue")
	}
	q.close()
	if q.enqueue(fn) {
		t.Error("Expected enqueue rejected after close")
	}
	q.drain(100, 1)
	if fired != 0 {
		t.Errorf("Closed queue fired %d shots", fired)
	}
}

func TestLaneQueueFailedFireDoesNotStall(t *testing.T) {
	q := &laneQueue{}
	fired := 0
	q.enqueue(func() error { return ErrBattleNotFound })
	q.enqueue(func() error { fired++; return nil })

	q.drain(10, 2) // failing shot dropped
	q.drain(12, 2)
	if fired != 1 {
		t.Errorf("Expected queue to advance past failed fire, fired=%d", fired)
	}
	if !q.empty() {
		t.Error("Expected empty queue")
	}
}

func TestOrbDestroyedExactlyOnce(t *testing.T) {
	o := newOrb(core.OrbID{Side: core.SideHome, Lane: core.LanePassing, Index: 0}, 2)

	if o.ApplyDamage(1) {
		t.Error("First hit should not destroy a 2 HP orb")
	}
	if !o.ApplyDamage(1) {
		t.Error("Second hit should destroy the orb")
	}
	if o.ApplyDamage(1) {
		t.Error("Destroyed orb must not report destruction again")
	}
	if o.HP != 0 {
		t.Errorf("Expected HP clamped at 0, got %d", o.HP)
	}
}
