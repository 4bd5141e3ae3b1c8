package api

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"time"

	"siegelane/internal/feed"
	"siegelane/internal/sim"
	"siegelane/internal/sim/core"
	"siegelane/internal/sim/roll"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleListBattles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshots())
}

func (h *routerHandlers) handleCreateBattle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string `json:"id"`
		HomeStake int    `json:"homeStake"`
		AwayStake int    `json:"awayStake"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.HomeStake < 0 || req.AwayStake < 0 {
		writeError(w, "Stakes must be non-negative", http.StatusBadRequest)
		return
	}

	id, err := h.engine.CreateBattle(sim.BattleConfig{
		ID:        req.ID,
		HomeStake: req.HomeStake,
		AwayStake: req.AwayStake,
	})
	if err != nil {
		if errors.Is(err, sim.ErrBattleLimit) {
			writeError(w, "Battle limit reached", http.StatusServiceUnavailable)
			return
		}
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	snap, _ := h.engine.Snapshot(id)
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(chi.URLParam(r, "battleID"))
	if err != nil {
		writeError(w, "Battle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleTeardownBattle(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.TeardownBattle(chi.URLParam(r, "battleID")); err != nil {
		writeError(w, "Battle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleStartBattle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "battleID")
	if err := h.engine.StartBattle(id); err != nil {
		writeEngineError(w, err)
		return
	}
	snap, _ := h.engine.Snapshot(id)
	writeJSON(w, snap)
}

func (h *routerHandlers) handleSubmitStats(w http.ResponseWriter, r *http.Request) {
	var qs feed.QuarterStats
	if err := json.NewDecoder(r.Body).Decode(&qs); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "battleID")
	if err := h.engine.SubmitQuarterStats(id, qs); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleForceProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "battleID")
	log.Printf("⏭️ Force progress requested for battle %s", id)
	if err := h.engine.ForceProgress(id); err != nil {
		writeEngineError(w, err)
		return
	}
	snap, _ := h.engine.Snapshot(id)
	writeJSON(w, snap)
}

func (h *routerHandlers) handleEquipItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Side string          `json:"side"`
		Item roll.RolledItem `json:"item"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	side, ok := core.ParseSide(req.Side)
	if !ok {
		writeError(w, "Side must be home or away", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "battleID")
	if err := h.engine.EquipItem(id, side, req.Item); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, roll.AllTemplates())
}

func (h *routerHandlers) handleRollItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string `json:"templateId"`
		Tier       string `json:"tier"` // optional: bias the roll to a band
		Seed       int64  `json:"seed"` // optional: reproducible roll
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	tpl, ok := roll.GetTemplate(req.TemplateID)
	if !ok {
		writeError(w, "Unknown template", http.StatusNotFound)
		return
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if req.Tier != "" {
		tier, ok := roll.ParseTier(req.Tier)
		if !ok {
			writeError(w, "Unknown tier", http.StatusBadRequest)
			return
		}
		item, err := roll.RollItemWithTier(tpl, tier, rng)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, item)
		return
	}

	writeJSON(w, roll.RollItem(tpl, rng))
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	if h.limiter != nil {
		stats["rate_limiter"] = h.limiter.GetStats()
	}
	writeJSON(w, stats)
}

// Helper functions (package-level for reuse)

// writeEngineError maps engine errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrBattleNotFound):
		writeError(w, "Battle not found", http.StatusNotFound)
	case errors.Is(err, sim.ErrBadPhase),
		errors.Is(err, sim.ErrLoadoutLocked),
		errors.Is(err, sim.ErrPeriodLimit),
		errors.Is(err, sim.ErrWrongQuarter),
		errors.Is(err, sim.ErrSlotOccupied):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
