package persist

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"siegelane/internal/sim/core"
)

func TestFileRecorderWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.jsonl")
	r, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder failed: %v", err)
	}

	outcomes := []Outcome{
		{BattleID: "b1", Winner: "home", HomeHP: 12, AwayHP: 0, Quarters: 3, EndedAt: time.Now()},
		{BattleID: "b2", Winner: "draw", HomeHP: 5, AwayHP: 5, Quarters: 7, Overtime: true, EndedAt: time.Now()},
	}
	for _, o := range outcomes {
		if err := r.RecordOutcome(o); err != nil {
			t.Fatalf("RecordOutcome failed: %v", err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open outcome file: %v", err)
	}
	defer f.Close()

	var read []Outcome
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var o Outcome
		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			t.Fatalf("Bad NDJSON line: %v", err)
		}
		read = append(read, o)
	}
	if len(read) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(read))
	}
	if read[0].BattleID != "b1" || read[0].Winner != "home" {
		t.Errorf("Unexpected first record: %+v", read[0])
	}
	if read[1].Quarters != 7 || !read[1].Overtime {
		t.Errorf("Unexpected second record: %+v", read[1])
	}
}

func TestFileRecorderClosedRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.jsonl")
	r, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder failed: %v", err)
	}
	r.Close()
	r.Close() // idempotent

	if err := r.RecordOutcome(Outcome{BattleID: "late"}); err == nil {
		t.Error("Expected error recording after close")
	}
}

func TestOutcomeWinnerSide(t *testing.T) {
	if side, ok := (Outcome{Winner: "away"}).WinnerSide(); !ok || side != core.SideAway {
		t.Errorf("Expected away winner, got %v ok=%v", side, ok)
	}
	if _, ok := (Outcome{Winner: "draw"}).WinnerSide(); ok {
		t.Error("Draw must not parse as a side")
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = Noop{}
	if err := r.RecordOutcome(Outcome{BattleID: "x"}); err != nil {
		t.Errorf("Noop record failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Noop close failed: %v", err)
	}
}
