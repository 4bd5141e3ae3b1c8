// Package persist records final battle outcomes for later settlement.
package persist

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"siegelane/internal/sim/core"
)

// Outcome is the durable record written when a battle reaches Final.
type Outcome struct {
	BattleID  string    `json:"battle_id"`
	Winner    string    `json:"winner"` // "home", "away", or "draw"
	HomeHP    int       `json:"home_hp"`
	AwayHP    int       `json:"away_hp"`
	HomeStake int       `json:"home_stake"`
	AwayStake int       `json:"away_stake"`
	Quarters  int       `json:"quarters"`
	Overtime  bool      `json:"overtime"`
	EndedAt   time.Time `json:"ended_at"`
}

// WinnerSide returns the winning side, or false on a draw.
func (o Outcome) WinnerSide() (core.Side, bool) {
	return core.ParseSide(o.Winner)
}

// Recorder receives each finished battle's outcome.
type Recorder interface {
	RecordOutcome(o Outcome) error
	Close() error
}

// Noop discards outcomes. Used when no outcome path is configured.
type Noop struct{}

func (Noop) RecordOutcome(Outcome) error { return nil }
func (Noop) Close() error                { return nil }

// FileRecorder appends outcomes to an NDJSON file. Writes happen on a
// background goroutine so the engine tick never blocks on disk.
type FileRecorder struct {
	mu     sync.Mutex
	file   *os.File
	ch     chan Outcome
	done   chan struct{}
	closed bool
}

const recorderQueueSize = 64

// NewFileRecorder opens (or creates) the outcome file and starts the
// background writer.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open outcome file: %w", err)
	}

	r := &FileRecorder{
		file: f,
		ch:   make(chan Outcome, recorderQueueSize),
		done: make(chan struct{}),
	}
	go r.writerLoop()

	log.Printf("💾 Outcome recorder started: %s", path)
	return r, nil
}

// RecordOutcome queues an outcome for writing. It never blocks: if the
// writer is backed up the outcome is dropped with a log line.
func (r *FileRecorder) RecordOutcome(o Outcome) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("recorder closed")
	}
	r.mu.Unlock()

	select {
	case r.ch <- o:
		return nil
	default:
		log.Printf("⚠️ Outcome recorder backed up, dropping battle=%s", o.BattleID)
		return fmt.Errorf("recorder queue full")
	}
}

// Close drains pending outcomes and closes the file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.ch)
	<-r.done
	return r.file.Close()
}

func (r *FileRecorder) writerLoop() {
	defer close(r.done)
	enc := json.NewEncoder(r.file)
	for o := range r.ch {
		if err := enc.Encode(o); err != nil {
			log.Printf("Failed to write outcome battle=%s: %v", o.BattleID, err)
		}
	}
}
