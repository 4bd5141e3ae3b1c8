package roll

import "sort"

// Slot is the equipment slot an item template occupies.
type Slot string

const (
	SlotBanner Slot = "banner"
	SlotCharm  Slot = "charm"
	SlotSigil  Slot = "sigil"
	SlotQuiver Slot = "quiver"
	SlotOath   Slot = "oath"
)

// AllSlots returns every slot in a fixed order.
func AllSlots() []Slot {
	return []Slot{SlotBanner, SlotCharm, SlotSigil, SlotQuiver, SlotOath}
}

// StatDef declares one rollable stat on a template: a uniform range with
// an optional snapping step (0 means continuous).
type StatDef struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Template is the immutable static definition of an item. Stats are kept
// as an ordered slice so rolling is deterministic for a seeded RNG.
type Template struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Slot  Slot      `json:"slot"`
	Stats []StatDef `json:"stats"`
}

// Templates is the static item catalog, loaded once at startup.
var Templates = map[string]Template{
	"volley_banner": {
		ID:   "volley_banner",
		Name: "Volley Banner",
		Slot: SlotBanner,
		Stats: []StatDef{
			{Name: "shotThreshold", Min: 4, Max: 8, Step: 1},
			{Name: "bonusShots", Min: 1, Max: 3, Step: 1},
		},
	},
	"aegis_charm": {
		ID:   "aegis_charm",
		Name: "Aegis Charm",
		Slot: SlotCharm,
		Stats: []StatDef{
			{Name: "shieldHP", Min: 5, Max: 15, Step: 1},
			{Name: "activationThreshold", Min: 0.3, Max: 0.6},
		},
	},
	"mending_sigil": {
		ID:   "mending_sigil",
		Name: "Mending Sigil",
		Slot: SlotSigil,
		Stats: []StatDef{
			{Name: "healAmount", Min: 1, Max: 3, Step: 1},
			{Name: "healIntervalSec", Min: 2, Max: 6, Step: 1},
		},
	},
	"swift_quiver": {
		ID:   "swift_quiver",
		Name: "Swift Quiver",
		Slot: SlotQuiver,
		Stats: []StatDef{
			{Name: "speedMult", Min: 1.1, Max: 1.6},
		},
	},
	"knight_oath": {
		ID:   "knight_oath",
		Name: "Knight's Oath",
		Slot: SlotOath,
		Stats: []StatDef{
			{Name: "blockCharges", Min: 1, Max: 4, Step: 1},
		},
	},
}

// GetTemplate returns a template by id.
func GetTemplate(id string) (Template, bool) {
	t, ok := Templates[id]
	return t, ok
}

// AllTemplates returns all templates as a slice, ordered by id.
func AllTemplates() []Template {
	out := make([]Template, 0, len(Templates))
	for _, t := range Templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
