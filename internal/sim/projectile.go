package sim

import (
	"log"
	"sync"

	"siegelane/internal/sim/core"
)

// hitTarget records what a landed projectile resolved against. A shot
// discarded on battle final keeps hitNone.
type hitTarget uint8

const (
	hitNone hitTarget = iota
	hitOrb
	hitKnight
	hitCastle
)

// Projectile is one shot in flight. Instances are pooled; every field is
// reset on release and the inUse flag guards against double release.
type Projectile struct {
	ID         string
	BattleID   string
	Side       core.Side // firing side
	Lane       core.Lane
	FiredTick  int64
	ArriveTick int64
	ItemShot   bool
	OriginID   string // item instance id for bonus shots

	resolved hitTarget
	inUse    bool
}

func (p *Projectile) reset() {
	*p = Projectile{}
}

// Progress reports flight completion in [0,1] at the given tick.
func (p *Projectile) Progress(tick int64) float64 {
	span := p.ArriveTick - p.FiredTick
	if span <= 0 {
		return 1
	}
	prog := float64(tick-p.FiredTick) / float64(span)
	if prog < 0 {
		return 0
	}
	if prog > 1 {
		return 1
	}
	return prog
}

// ProjectilePool recycles Projectile instances across every battle. The
// pool is bounded: when the cap is reached Acquire fails and the shot is
// dropped with a log line instead of allocating past the limit.
type ProjectilePool struct {
	mu          sync.Mutex
	free        []*Projectile
	capacity    int
	outstanding int

	droppedAcquires uint64
	doubleReleases  uint64
}

// NewProjectilePool creates a pool bounded at capacity live projectiles.
func NewProjectilePool(capacity int) *ProjectilePool {
	return &ProjectilePool{
		capacity: capacity,
		free:     make([]*Projectile, 0, capacity),
	}
}

// Acquire returns a zeroed projectile marked in-use, or nil when the
// pool is at capacity.
func (pp *ProjectilePool) Acquire() *Projectile {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.outstanding >= pp.capacity {
		pp.droppedAcquires++
		log.Printf("⚠️ Projectile pool exhausted (cap=%d), dropping shot", pp.capacity)
		return nil
	}

	var p *Projectile
	if n := len(pp.free); n > 0 {
		p = pp.free[n-1]
		pp.free = pp.free[:n-1]
		// Writes through a stale alias held past Release must not leak
		// into the next lease.
		p.reset()
	} else {
		p = &Projectile{}
	}
	p.inUse = true
	pp.outstanding++
	return p
}

// Release returns a projectile to the pool. Releasing nil or an already
// released projectile is a counted no-op, never a corruption.
func (pp *ProjectilePool) Release(p *Projectile) {
	if p == nil {
		return
	}

	pp.mu.Lock()
	defer pp.mu.Unlock()

	if !p.inUse {
		pp.doubleReleases++
		log.Printf("⚠️ Double release of projectile %s ignored", p.ID)
		return
	}
	p.reset()
	pp.free = append(pp.free, p)
	pp.outstanding--
}

// Stats reports pool occupancy and guard counters.
func (pp *ProjectilePool) Stats() map[string]any {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return map[string]any{
		"capacity":         pp.capacity,
		"outstanding":      pp.outstanding,
		"free":             len(pp.free),
		"dropped_acquires": pp.droppedAcquires,
		"double_releases":  pp.doubleReleases,
	}
}

// Outstanding reports how many projectiles are currently in use.
func (pp *ProjectilePool) Outstanding() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.outstanding
}
