package api

import (
	"net/http"
	"time"

	"siegelane/internal/feed"
	"siegelane/internal/sim"
	"siegelane/internal/sim/core"
	"siegelane/internal/sim/roll"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the simulation engine methods used by the API.
// This interface enables mocking for tests without spinning up the full
// tick loop. Keep this minimal - only include methods the API layer
// actually calls.
type EngineInterface interface {
	// CreateBattle registers a new battle in the Scheduled phase
	CreateBattle(bc sim.BattleConfig) (string, error)
	// EquipItem adds a rolled item to a side's loadout before start
	EquipItem(battleID string, side core.Side, item roll.RolledItem) error
	// StartBattle consumes the loadout and opens quarter 1
	StartBattle(battleID string) error
	// SubmitQuarterStats feeds one quarter's deltas into the battle
	SubmitQuarterStats(battleID string, qs feed.QuarterStats) error
	// ForceProgress ends the current quarter immediately
	ForceProgress(battleID string) error
	// TeardownBattle removes a battle in any phase
	TeardownBattle(battleID string) error
	// Snapshot returns a value copy of one battle's state
	Snapshot(battleID string) (sim.BattleSnapshot, error)
	// Snapshots returns value copies of every battle
	Snapshots() []sim.BattleSnapshot
	// Stats reports engine-level counters
	Stats() map[string]any
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default production origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine  EngineInterface
	limiter *IPRateLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{engine: cfg.Engine, limiter: rateLimiter}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Battle lifecycle
		r.Route("/battles", func(r chi.Router) {
			r.Get("/", h.handleListBattles)
			r.Post("/", h.handleCreateBattle)
			r.Route("/{battleID}", func(r chi.Router) {
				r.Get("/", h.handleGetBattle)
				r.Delete("/", h.handleTeardownBattle)
				r.Post("/start", h.handleStartBattle)
				r.Post("/stats", h.handleSubmitStats)
				r.Post("/progress", h.handleForceProgress)
				r.Post("/items", h.handleEquipItem)
			})
		})

		// Item templates and rolling
		r.Route("/items", func(r chi.Router) {
			r.Get("/templates", h.handleGetTemplates)
			r.Post("/roll", h.handleRollItem)
		})

		// Engine counters
		r.Get("/stats", h.handleGetStats)
	})

	return r
}

// metricsMiddleware records request latency and counts against the chi
// route pattern, never the raw URL, to keep label cardinality bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		RecordRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
