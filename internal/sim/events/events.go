// Package events carries the battle event vocabulary, the synchronous
// pub/sub bus, and the rate-limited battle journal.
package events

import (
	"time"

	"siegelane/internal/sim/core"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeBattleStart
	EventTypeQuarterStart
	EventTypeQuarterEnd
	EventTypeBattleFinal
	EventTypeShotFired
	EventTypeOrbDamaged
	EventTypeOrbDestroyed
	EventTypeCastleDamaged
	EventTypeShieldActivated
	EventTypeShieldHealed
	EventTypeShieldBroken
	EventTypeKnightBlocked
	EventTypeKnightDamaged
	EventTypeKnightDestroyed
	EventTypeItemActivated
	EventTypeItemDeactivated
)

// EventVersion for backwards compatibility in journal replay
const EventVersion uint8 = 1

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeBattleStart:
		return "battle_start"
	case EventTypeQuarterStart:
		return "quarter_start"
	case EventTypeQuarterEnd:
		return "quarter_end"
	case EventTypeBattleFinal:
		return "battle_final"
	case EventTypeShotFired:
		return "shot_fired"
	case EventTypeOrbDamaged:
		return "orb_damaged"
	case EventTypeOrbDestroyed:
		return "orb_destroyed"
	case EventTypeCastleDamaged:
		return "castle_damaged"
	case EventTypeShieldActivated:
		return "shield_activated"
	case EventTypeShieldHealed:
		return "shield_healed"
	case EventTypeShieldBroken:
		return "shield_broken"
	case EventTypeKnightBlocked:
		return "knight_blocked"
	case EventTypeKnightDamaged:
		return "knight_damaged"
	case EventTypeKnightDestroyed:
		return "knight_destroyed"
	case EventTypeItemActivated:
		return "item_activated"
	case EventTypeItemDeactivated:
		return "item_deactivated"
	default:
		return "unknown"
	}
}

// Event is delivered to bus subscribers and recorded by the journal.
// Payload holds one of the typed payload structs below; handlers
// type-switch on it and filter by side/battle themselves.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Assigned by the journal
	Tick      int64     `json:"tick"`      // Engine tick this occurred in
	BattleID  string    `json:"battleId"`
	Payload   any       `json:"payload"`
}

// NewEvent creates an event with the current timestamp
func NewEvent(eventType EventType, tick int64, battleID string, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		BattleID:  battleID,
		Payload:   payload,
	}
}

// Typed payloads for different event types

// QuarterPayload covers quarter_start and quarter_end
type QuarterPayload struct {
	Quarter  int  `json:"quarter"`
	Overtime bool `json:"overtime"`
}

// FinalPayload contains the battle outcome
type FinalPayload struct {
	WinnerSet bool      `json:"winnerSet"` // false on a draw
	Winner    core.Side `json:"winner"`
	HomeHP    int       `json:"homeHp"`
	AwayHP    int       `json:"awayHp"`
	Quarters  int       `json:"quarters"`
}

// ShotPayload contains shot_fired details
type ShotPayload struct {
	Side         core.Side `json:"side"`
	Lane         core.Lane `json:"lane"`
	ProjectileID string    `json:"projectileId"`
	ItemShot     bool      `json:"itemShot"` // true for item-triggered bonus shots
	OriginID     string    `json:"originId"` // item instance id, empty for base shots
}

// OrbPayload covers orb_damaged and orb_destroyed
type OrbPayload struct {
	Orb    core.OrbID `json:"orb"`
	Damage int        `json:"damage"`
	HP     int        `json:"hp"`
}

// CastlePayload contains castle_damaged details
type CastlePayload struct {
	Side     core.Side `json:"side"`
	Damage   int       `json:"damage"`
	HP       int       `json:"hp"`
	MaxHP    int       `json:"maxHp"`
	Absorbed bool      `json:"absorbed"` // true when a shield took the hit
}

// ShieldPayload covers shield_activated, shield_healed, shield_broken
type ShieldPayload struct {
	Side         core.Side `json:"side"`
	HP           int       `json:"hp"`
	MaxHP        int       `json:"maxHp"`
	SourceItemID string    `json:"sourceItemId"`
}

// KnightPayload covers knight_blocked, knight_damaged, knight_destroyed
type KnightPayload struct {
	Side      core.Side `json:"side"`
	HP        int       `json:"hp"`
	Charges   int       `json:"charges"`
	FreeBlock bool      `json:"freeBlock"`
}

// ItemPayload covers item_activated and item_deactivated
type ItemPayload struct {
	InstanceID string    `json:"instanceId"`
	TemplateID string    `json:"templateId"`
	Side       core.Side `json:"side"`
	Tier       uint8     `json:"tier"`
}
