// Package core holds the identifiers shared by every simulation package:
// battle sides, lanes, and the structured keys built from them.
package core

import "fmt"

// Side identifies one of the two competing sides of a battle.
type Side uint8

const (
	SideHome Side = iota
	SideAway
)

// SideCount is the number of sides in every battle.
const SideCount = 2

// Opponent returns the opposing side.
func (s Side) Opponent() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// Valid reports whether the side is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideHome || s == SideAway
}

func (s Side) String() string {
	switch s {
	case SideHome:
		return "home"
	case SideAway:
		return "away"
	default:
		return "unknown"
	}
}

// ParseSide converts a wire string into a Side.
func ParseSide(v string) (Side, bool) {
	switch v {
	case "home":
		return SideHome, true
	case "away":
		return SideAway, true
	default:
		return SideHome, false
	}
}

// Lane is one of the fixed scoring categories. Each lane routes a stat
// delta through its own row of defense orbs and its own firing channel.
type Lane uint8

const (
	LanePassing Lane = iota
	LaneRushing
	LaneReceiving
	LaneDefense
	LaneSpecial
)

// LaneCount is the number of lanes per side.
const LaneCount = 5

// Valid reports whether the lane index is in range.
func (l Lane) Valid() bool {
	return l < LaneCount
}

func (l Lane) String() string {
	switch l {
	case LanePassing:
		return "passing"
	case LaneRushing:
		return "rushing"
	case LaneReceiving:
		return "receiving"
	case LaneDefense:
		return "defense"
	case LaneSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// AllLanes returns every lane in index order.
func AllLanes() [LaneCount]Lane {
	return [LaneCount]Lane{LanePassing, LaneRushing, LaneReceiving, LaneDefense, LaneSpecial}
}

// SideKey identifies one side of one battle. It replaces the old
// string-concatenated battle+side keys with a comparable struct.
type SideKey struct {
	BattleID string
	Side     Side
}

func (k SideKey) String() string {
	return fmt.Sprintf("%s/%s", k.BattleID, k.Side)
}

// LaneKey identifies one firing lane on one side of one battle.
type LaneKey struct {
	BattleID string
	Side     Side
	Lane     Lane
}

func (k LaneKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.BattleID, k.Side, k.Lane)
}

// OrbID identifies a single defense orb within a battle.
type OrbID struct {
	Side  Side
	Lane  Lane
	Index int
}

func (id OrbID) String() string {
	return fmt.Sprintf("%s/%s/%d", id.Side, id.Lane, id.Index)
}
