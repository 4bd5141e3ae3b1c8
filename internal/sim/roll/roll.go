// Package roll turns item templates into concrete rolled stats plus a
// quality tier. Rolling is pure and deterministic given a seeded RNG.
package roll

import (
	"fmt"
	"math"
	"math/rand"
)

// Tier is the four-band quality classification of a rolled item.
type Tier uint8

const (
	TierBottom Tier = iota
	TierMid
	TierUpper
	TierTop
)

// Tier score thresholds. Score >= threshold lands in the band.
const (
	TierMidThreshold   = 25.0
	TierUpperThreshold = 60.0
	TierTopThreshold   = 85.0
)

func (t Tier) String() string {
	switch t {
	case TierBottom:
		return "bottom"
	case TierMid:
		return "mid"
	case TierUpper:
		return "upper"
	case TierTop:
		return "top"
	default:
		return "unknown"
	}
}

// ParseTier converts a wire string into a Tier.
func ParseTier(v string) (Tier, bool) {
	switch v {
	case "bottom":
		return TierBottom, true
	case "mid":
		return TierMid, true
	case "upper":
		return TierUpper, true
	case "top":
		return TierTop, true
	default:
		return TierBottom, false
	}
}

// TierForScore maps a 0-100 quality score to a tier band.
func TierForScore(score float64) Tier {
	switch {
	case score >= TierTopThreshold:
		return TierTop
	case score >= TierUpperThreshold:
		return TierUpper
	case score >= TierMidThreshold:
		return TierMid
	default:
		return TierBottom
	}
}

// band returns the score interval [lo, hi) covered by a tier.
func (t Tier) band() (lo, hi float64) {
	switch t {
	case TierBottom:
		return 0, TierMidThreshold
	case TierMid:
		return TierMidThreshold, TierUpperThreshold
	case TierUpper:
		return TierUpperThreshold, TierTopThreshold
	default:
		return TierTopThreshold, 100
	}
}

// RolledItem is a template id plus concrete rolls and the derived tier.
// Immutable once created.
type RolledItem struct {
	TemplateID string             `json:"templateId"`
	Slot       Slot               `json:"slot"`
	Rolls      map[string]float64 `json:"rolls"`
	Score      float64            `json:"score"`
	Tier       Tier               `json:"tier"`
}

// snap clamps v to [def.Min, def.Max], snapping to the step grid first
// when a step is declared.
func snap(def StatDef, v float64) float64 {
	if def.Step > 0 {
		v = def.Min + math.Round((v-def.Min)/def.Step)*def.Step
	}
	if v < def.Min {
		v = def.Min
	}
	if v > def.Max {
		v = def.Max
	}
	return v
}

// percentile returns where v sits within the stat's range, 0..1.
// A degenerate range (min == max) always counts as a full roll.
func percentile(def StatDef, v float64) float64 {
	if def.Max <= def.Min {
		return 1
	}
	p := (v - def.Min) / (def.Max - def.Min)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// Score computes the 0-100 quality score for a set of rolls: the mean
// percentile-of-range across all of the template's stats.
func Score(tpl Template, rolls map[string]float64) float64 {
	if len(tpl.Stats) == 0 {
		return 0
	}
	sum := 0.0
	for _, def := range tpl.Stats {
		sum += percentile(def, rolls[def.Name])
	}
	return sum / float64(len(tpl.Stats)) * 100
}

// Normalize coerces externally supplied rolls onto the template's stat
// grid: stats the template does not declare are dropped, declared stats
// are snapped into their ranges (non-finite values collapse to the
// minimum), and the score and tier are recomputed from the result. The
// slot always comes from the template.
func Normalize(tpl Template, item RolledItem) RolledItem {
	rolls := make(map[string]float64, len(tpl.Stats))
	for _, def := range tpl.Stats {
		v := item.Rolls[def.Name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = def.Min
		}
		rolls[def.Name] = snap(def, v)
	}
	score := Score(tpl, rolls)
	return RolledItem{
		TemplateID: tpl.ID,
		Slot:       tpl.Slot,
		Rolls:      rolls,
		Score:      score,
		Tier:       TierForScore(score),
	}
}

// RollItem samples each declared stat uniformly within its range,
// optionally snapped to the step, then scores and tiers the result.
func RollItem(tpl Template, rng *rand.Rand) RolledItem {
	rolls := make(map[string]float64, len(tpl.Stats))
	for _, def := range tpl.Stats {
		v := def.Min + rng.Float64()*(def.Max-def.Min)
		rolls[def.Name] = snap(def, v)
	}
	score := Score(tpl, rolls)
	return RolledItem{
		TemplateID: tpl.ID,
		Slot:       tpl.Slot,
		Rolls:      rolls,
		Score:      score,
		Tier:       TierForScore(score),
	}
}

// RollItemWithTier biases sampling toward the requested tier's band
// center with bounded jitter, then re-scores with the same scorer used
// by RollItem. The result lands in the requested tier; when step
// snapping pushes the score out of the band the rolls are walked back
// toward the band center one step at a time.
func RollItemWithTier(tpl Template, tier Tier, rng *rand.Rand) (RolledItem, error) {
	if tier > TierTop {
		return RolledItem{}, fmt.Errorf("roll: unknown tier %d", tier)
	}
	lo, hi := tier.band()
	center := (lo + hi) / 2
	half := (hi - lo) / 2

	rolls := make(map[string]float64, len(tpl.Stats))
	for _, def := range tpl.Stats {
		// Keep per-stat percentiles inside the band with room to spare
		// so the mean stays in-band before snapping.
		jitter := (rng.Float64()*2 - 1) * half * 0.6
		p := (center + jitter) / 100
		v := def.Min + p*(def.Max-def.Min)
		rolls[def.Name] = snap(def, v)
	}

	// Step snapping on coarse ranges can move the mean out of the band.
	// Nudge stats toward the band center until the round-trip holds.
	for i := 0; i < len(tpl.Stats)*16; i++ {
		score := Score(tpl, rolls)
		if TierForScore(score) == tier {
			break
		}
		adjustTowardBand(tpl, rolls, score, center)
	}

	score := Score(tpl, rolls)
	return RolledItem{
		TemplateID: tpl.ID,
		Slot:       tpl.Slot,
		Rolls:      rolls,
		Score:      score,
		Tier:       TierForScore(score),
	}, nil
}

// adjustTowardBand moves the single stat with the most room one notch
// in the direction that brings the mean score closer to target.
func adjustTowardBand(tpl Template, rolls map[string]float64, score, target float64) {
	up := score < target
	var best *StatDef
	bestRoom := 0.0
	for i := range tpl.Stats {
		def := tpl.Stats[i]
		p := percentile(def, rolls[def.Name])
		room := p // room to move down
		if up {
			room = 1 - p
		}
		if room > bestRoom {
			bestRoom = room
			best = &tpl.Stats[i]
		}
	}
	if best == nil {
		return // nothing can move; degenerate template
	}
	delta := best.Step
	if delta <= 0 {
		delta = (best.Max - best.Min) / 100
	}
	if !up {
		delta = -delta
	}
	rolls[best.Name] = snap(*best, rolls[best.Name]+delta)
}
