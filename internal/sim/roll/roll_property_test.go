package roll

import (
	"math/rand"
	"testing"

	"pgregory.net/rapid"
)

// genTemplate draws a random well-formed template: 1-4 stats with
// non-degenerate ranges and optional coarse steps.
func genTemplate(t *rapid.T) Template {
	n := rapid.IntRange(1, 4).Draw(t, "statCount")
	stats := make([]StatDef, n)
	for i := 0; i < n; i++ {
		min := rapid.Float64Range(0, 50).Draw(t, "min")
		span := rapid.Float64Range(1, 100).Draw(t, "span")
		step := 0.0
		if rapid.Bool().Draw(t, "stepped") {
			// Keep steps fine enough that every tier band is reachable.
			step = span / float64(rapid.IntRange(8, 40).Draw(t, "divisions"))
		}
		stats[i] = StatDef{
			Name: string(rune('a' + i)),
			Min:  min,
			Max:  min + span,
			Step: step,
		}
	}
	return Template{ID: "gen", Slot: SlotBanner, Stats: stats}
}

// TestPropRollScoreInBounds: for all templates and seeds, the quality
// score stays in [0,100] and the tier matches its score
func TestPropRollScoreInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tpl := genTemplate(t)
		seed := rapid.Int64().Draw(t, "seed")
		item := RollItem(tpl, rand.New(rand.NewSource(seed)))

		if item.Score < 0 || item.Score > 100 {
			t.Fatalf("score %.4f outside [0,100]", item.Score)
		}
		if item.Tier != TierForScore(item.Score) {
			t.Fatalf("tier %s inconsistent with score %.4f", item.Tier, item.Score)
		}
		for _, def := range tpl.Stats {
			v := item.Rolls[def.Name]
			if v < def.Min || v > def.Max {
				t.Fatalf("stat %s = %.4f outside [%.4f,%.4f]", def.Name, v, def.Min, def.Max)
			}
		}
	})
}

// TestPropTierMonotonic: tier assignment is monotone in score
func TestPropTierMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(0, 100).Draw(t, "a")
		b := rapid.Float64Range(0, 100).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		if TierForScore(a) > TierForScore(b) {
			t.Fatalf("tier not monotonic: score %.2f -> %s, score %.2f -> %s",
				a, TierForScore(a), b, TierForScore(b))
		}
	})
}

// TestPropTierBiasedRoundTrip: re-scoring a tier-biased roll with the
// standard scorer yields the requested tier
func TestPropTierBiasedRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tpl := genTemplate(t)
		tier := Tier(rapid.IntRange(0, 3).Draw(t, "tier"))
		seed := rapid.Int64().Draw(t, "seed")

		item, err := RollItemWithTier(tpl, tier, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := TierForScore(Score(tpl, item.Rolls)); got != tier {
			t.Fatalf("requested tier %s, re-scored to %s (score %.4f)", tier, got, item.Score)
		}
	})
}
