package events

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	JournalBufferSize    = 1024                   // Circular buffer size
	MaxEventsPerSec      = 10000                  // Global rate limit
	MaxEventsPerBattle   = 200                    // Per-battle rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	BattleLimiterCleanup = 5 * time.Minute        // Cleanup interval for battle limiters
)

// Journal provides bounded, rate-limited battle event recording with
// backpressure. Events flow through a circular buffer to an async batch
// writer producing newline-delimited JSON.
type Journal struct {
	// Circular buffer (lock-free SPSC pattern)
	buffer    [JournalBufferSize]Event
	writeHead uint64 // atomic - producer position
	readHead  uint64 // atomic - consumer position

	// Rate limiting so one noisy effect cannot flood the log
	globalLimiter  *rate.Limiter
	battleLimiters sync.Map // map[string]*battleLimiterEntry

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// File output
	filePath string
	file     *os.File
	fileMu   sync.Mutex

	// Stats for monitoring
	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// battleLimiterEntry tracks per-battle rate limiting
type battleLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewJournal creates a new bounded battle journal
func NewJournal() *Journal {
	return &Journal{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer goroutine
func (j *Journal) Start(filePath string) error {
	if j.running.Load() {
		return nil
	}

	j.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		j.file = file
	}

	j.running.Store(true)
	j.writerWg.Add(2)
	go j.writerLoop()
	go j.cleanupLoop()

	return nil
}

// Stop gracefully shuts down the journal
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Record adds an event with rate limiting. Returns false if rate
// limited or the journal is stopped.
func (j *Journal) Record(event Event) bool {
	if !j.running.Load() {
		return false
	}

	if !j.globalLimiter.Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		return false
	}

	// Per-battle rate limit (one battle's effects cannot starve the rest)
	if event.BattleID != "" {
		limiter := j.getBattleLimiter(event.BattleID)
		if !limiter.Allow() {
			atomic.AddUint64(&j.droppedCount, 1)
			return false
		}
	}

	// Acquire write slot in circular buffer
	head := atomic.AddUint64(&j.writeHead, 1)
	tail := atomic.LoadUint64(&j.readHead)

	// Buffer full: drop oldest events (rolling window)
	if head-tail >= JournalBufferSize {
		atomic.AddUint64(&j.readHead, 1)
		atomic.AddUint64(&j.droppedCount, 1)
	}

	event.Sequence = head
	idx := head % JournalBufferSize
	j.buffer[idx] = event

	atomic.AddUint64(&j.totalCount, 1)
	return true
}

// getBattleLimiter returns/creates a per-battle rate limiter
func (j *Journal) getBattleLimiter(battleID string) *rate.Limiter {
	if entry, ok := j.battleLimiters.Load(battleID); ok {
		e := entry.(*battleLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &battleLimiterEntry{
		limiter:  rate.NewLimiter(MaxEventsPerBattle, MaxEventsPerBattle/10),
		lastUsed: time.Now(),
	}
	actual, _ := j.battleLimiters.LoadOrStore(battleID, entry)
	return actual.(*battleLimiterEntry).limiter
}

// DropBattle discards the rate limiter for a torn-down battle
func (j *Journal) DropBattle(battleID string) {
	j.battleLimiters.Delete(battleID)
}

// writerLoop batches and writes events to disk asynchronously
func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-j.stopChan:
			// Final flush
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
			return

		case <-ticker.C:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale battle limiters to prevent memory leak
func (j *Journal) cleanupLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(BattleLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.cleanupBattleLimiters()
		}
	}
}

func (j *Journal) cleanupBattleLimiters() {
	cutoff := time.Now().Add(-BattleLimiterCleanup)
	j.battleLimiters.Range(func(key, value any) bool {
		entry := value.(*battleLimiterEntry)
		if entry.lastUsed.Before(cutoff) {
			j.battleLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch reads available events from the circular buffer
func (j *Journal) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&j.writeHead)
	tail := atomic.LoadUint64(&j.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		idx := i % JournalBufferSize
		batch = append(batch, j.buffer[idx])
	}

	if len(batch) > 0 {
		atomic.AddUint64(&j.readHead, uint64(len(batch)))
	}

	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (j *Journal) flushBatch(batch []Event) {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	if j.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		j.file.Write(data)
		j.file.Write([]byte("\n"))
	}
}

// GetStats returns journal metrics for monitoring
func (j *Journal) GetStats() map[string]any {
	head := atomic.LoadUint64(&j.writeHead)
	tail := atomic.LoadUint64(&j.readHead)

	return map[string]any{
		"total":   atomic.LoadUint64(&j.totalCount),
		"dropped": atomic.LoadUint64(&j.droppedCount),
		"pending": head - tail,
		"running": j.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (j *Journal) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&j.droppedCount)
}

// GetTotalCount returns the total number of events recorded
func (j *Journal) GetTotalCount() uint64 {
	return atomic.LoadUint64(&j.totalCount)
}
