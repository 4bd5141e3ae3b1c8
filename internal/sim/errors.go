package sim

import "errors"

var (
	ErrBattleNotFound = errors.New("battle not found")
	ErrBattleLimit    = errors.New("battle limit reached")
	ErrBadPhase       = errors.New("operation not valid in current phase")
	ErrLoadoutLocked  = errors.New("loadout locked after battle start")
	ErrPeriodLimit    = errors.New("bounded period count reached")
	ErrWrongQuarter   = errors.New("stats do not match current quarter")
	ErrSlotOccupied   = errors.New("slot already equipped")
)
