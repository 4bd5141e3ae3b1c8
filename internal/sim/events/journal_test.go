package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestJournalRecordAndFlush verifies events reach the NDJSON file
func TestJournalRecordAndFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battles.jsonl")

	j := NewJournal()
	if err := j.Start(path); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if !j.Record(NewEvent(EventTypeShotFired, int64(i), "b1", ShotPayload{})) {
			t.Fatalf("Record %d rejected", i)
		}
	}

	j.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 10 {
		t.Errorf("expected 10 journal lines, got %d", lines)
	}
	if j.GetTotalCount() != 10 {
		t.Errorf("expected total 10, got %d", j.GetTotalCount())
	}
}

// TestJournalRejectsWhenStopped verifies no recording after Stop
func TestJournalRejectsWhenStopped(t *testing.T) {
	j := NewJournal()
	if err := j.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	j.Stop()

	if j.Record(NewEvent(EventTypeShotFired, 0, "b1", ShotPayload{})) {
		t.Error("Record accepted after Stop")
	}
}

// TestJournalPerBattleRateLimit verifies a flooding battle gets dropped
// without starving other battles
func TestJournalPerBattleRateLimit(t *testing.T) {
	j := NewJournal()
	if err := j.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer j.Stop()

	// Burst well past the per-battle burst allowance
	accepted := 0
	for i := 0; i < MaxEventsPerBattle; i++ {
		if j.Record(NewEvent(EventTypeShotFired, int64(i), "flood", ShotPayload{})) {
			accepted++
		}
	}

	if accepted == MaxEventsPerBattle {
		t.Error("per-battle limiter never engaged")
	}
	if j.GetDroppedCount() == 0 {
		t.Error("expected dropped events to be counted")
	}

	// A different battle still has headroom
	if !j.Record(NewEvent(EventTypeShotFired, 0, "other", ShotPayload{})) {
		t.Error("sibling battle rejected while flooder was limited")
	}
}

// TestJournalStats verifies the stats map shape
func TestJournalStats(t *testing.T) {
	j := NewJournal()
	if err := j.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	j.Record(NewEvent(EventTypeBattleStart, 0, "b1", nil))
	time.Sleep(2 * BatchFlushInterval) // let the writer drain

	stats := j.GetStats()
	if stats["running"] != true {
		t.Error("expected running=true")
	}
	if stats["total"].(uint64) != 1 {
		t.Errorf("expected total 1, got %v", stats["total"])
	}

	j.Stop()
	if j.GetStats()["running"] != false {
		t.Error("expected running=false after Stop")
	}
}

// TestJournalDoubleStop verifies Stop is idempotent
func TestJournalDoubleStop(t *testing.T) {
	j := NewJournal()
	if err := j.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	j.Stop()
	j.Stop()
}
