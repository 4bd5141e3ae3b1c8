package sim

import (
	"siegelane/internal/sim/core"
	"siegelane/internal/sim/events"
)

// resolveProjectiles lands every projectile whose flight completed this
// tick, in firing order. Each projectile resolves against exactly one
// target and returns to the pool. If a resolution finalizes the battle,
// the rest of the flight is discarded unresolved.
func (e *Engine) resolveProjectiles(b *Battle) {
	remaining := b.live[:0]
	for _, p := range b.live {
		switch {
		case b.Phase == PhaseFinal:
			e.pool.Release(p)
		case e.tick >= p.ArriveTick:
			e.resolveHit(b, p)
			e.pool.Release(p)
		default:
			remaining = append(remaining, p)
		}
	}
	if b.Phase == PhaseFinal {
		// Shots still mid-flight when the battle ended were already moved
		// to remaining; they go back to the pool with the rest.
		for _, p := range remaining {
			e.pool.Release(p)
		}
		b.live = nil
		return
	}
	b.live = remaining
}

// resolveHit routes one landed projectile: the defending lane's nearest
// alive orb takes it; with the lane cleared the hit is castle-routed and
// contested by the defender knight, then the shield, then the walls.
func (e *Engine) resolveHit(b *Battle, p *Projectile) {
	def := p.Side.Opponent()

	if orb := b.nearestOrb(def, p.Lane); orb != nil {
		p.resolved = hitOrb
		destroyed := orb.ApplyDamage(e.cfg.OrbDamage)
		evType := events.EventTypeOrbDamaged
		if destroyed {
			evType = events.EventTypeOrbDestroyed
		}
		e.emit(events.NewEvent(evType, e.tick, b.ID, events.OrbPayload{
			Orb:    orb.ID,
			Damage: e.cfg.OrbDamage,
			HP:     orb.HP,
		}))
		return
	}

	if k := b.knights[def]; k.Alive() {
		out := k.Contest(e.tick, e.cfg.BlockWindowTicks(), e.cfg.KnightDamage)
		if out.blocked {
			p.resolved = hitKnight
			e.emit(events.NewEvent(events.EventTypeKnightBlocked, e.tick, b.ID, events.KnightPayload{
				Side:      def,
				HP:        k.HP,
				Charges:   k.Charges,
				FreeBlock: out.freeBlock,
			}))
			return
		}
		evType := events.EventTypeKnightDamaged
		if out.destroyed {
			evType = events.EventTypeKnightDestroyed
		}
		e.emit(events.NewEvent(evType, e.tick, b.ID, events.KnightPayload{
			Side:    def,
			HP:      k.HP,
			Charges: k.Charges,
		}))
		// An unblocked hit wounds the knight and still reaches the walls.
	}

	p.resolved = hitCastle
	e.applyCastleHit(b, def, e.cfg.CastleDamage, p.Side)
}

// applyCastleHit lands damage on the defending castle's shield or walls
// and finalizes the battle the moment a castle falls.
func (e *Engine) applyCastleHit(b *Battle, def core.Side, dmg int, attacker core.Side) {
	castle := b.castles[def]
	shield := castle.Shield
	res := castle.ApplyHit(dmg)

	e.emit(events.NewEvent(events.EventTypeCastleDamaged, e.tick, b.ID, events.CastlePayload{
		Side:     def,
		Damage:   dmg,
		HP:       castle.HP,
		MaxHP:    castle.MaxHP,
		Absorbed: res.absorbed,
	}))

	if res.shieldBroke {
		e.emit(events.NewEvent(events.EventTypeShieldBroken, e.tick, b.ID, events.ShieldPayload{
			Side:         def,
			HP:           0,
			MaxHP:        shield.MaxHP,
			SourceItemID: shield.SourceItemID,
		}))
	}

	if res.castleDown {
		e.finalizeBattle(b, attacker, true)
	}
}
