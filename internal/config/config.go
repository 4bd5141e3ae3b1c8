// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the battle simulation tunables. All intervals are
// expressed in engine ticks so battles stay deterministic under test.
type SimConfig struct {
	TickRate int // Engine ticks per second

	FireIntervalTicks     int64 // Minimum ticks between same-lane shots
	ProjectileFlightTicks int64 // Ticks a projectile spends in flight

	OrbsPerLane int // Defense orbs guarding each lane
	OrbHP       int // Hit points per orb
	OrbDamage   int // Damage per projectile hit on an orb

	CastleDamage   int     // Damage per castle-routed projectile hit
	DefaultStake   int     // Castle HP when no stake is wagered
	KnightHP       int     // Defender hit points
	KnightDamage   int     // Damage an unblocked hit deals to the defender
	BlockWindowSec float64 // Free-deflect window after a charged block

	MaxOvertimes     int // Bounded overtime periods after quarter 4
	MaxShotsPerDelta int // Cap on shots one stat delta can enqueue

	PoolSize int // Shared projectile pool capacity
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:              20,
		FireIntervalTicks:     4, // 0.2s at 20 TPS
		ProjectileFlightTicks: 10,
		OrbsPerLane:           2,
		OrbHP:                 3,
		OrbDamage:             1,
		CastleDamage:          1,
		DefaultStake:          20,
		KnightHP:              5,
		KnightDamage:          1,
		BlockWindowSec:        0.5,
		MaxOvertimes:          3,
		MaxShotsPerDelta:      25,
		PoolSize:              256,
	}
}

// SimFromEnv returns simulation configuration with environment overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if v := getEnvInt("SIM_TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("SIM_FIRE_INTERVAL_TICKS", 0); v > 0 {
		cfg.FireIntervalTicks = int64(v)
	}
	if v := getEnvInt("SIM_FLIGHT_TICKS", 0); v > 0 {
		cfg.ProjectileFlightTicks = int64(v)
	}
	if v := getEnvInt("SIM_ORBS_PER_LANE", 0); v > 0 {
		cfg.OrbsPerLane = v
	}
	if v := getEnvInt("SIM_ORB_HP", 0); v > 0 {
		cfg.OrbHP = v
	}
	if v := getEnvInt("SIM_DEFAULT_STAKE", 0); v > 0 {
		cfg.DefaultStake = v
	}
	if v := getEnvInt("SIM_MAX_OVERTIMES", -1); v >= 0 {
		cfg.MaxOvertimes = v
	}
	if v := getEnvInt("SIM_POOL_SIZE", 0); v > 0 {
		cfg.PoolSize = v
	}
	if v := getEnvFloat("SIM_BLOCK_WINDOW_SEC", -1); v >= 0 {
		cfg.BlockWindowSec = v
	}

	return cfg
}

// BlockWindowTicks converts the defender's free-deflect window to ticks.
func (c SimConfig) BlockWindowTicks() int64 {
	return int64(c.BlockWindowSec * float64(c.TickRate))
}

// MaxPeriods is the bounded period count: four quarters plus overtimes.
func (c SimConfig) MaxPeriods() int {
	return 4 + c.MaxOvertimes
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int
	MaxBattles int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:       3000,
		MaxBattles: 100,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mb := getEnvInt("MAX_BATTLES", 0); mb > 0 {
		cfg.MaxBattles = mb
	}

	return cfg
}

// =============================================================================
// JOURNAL & PERSISTENCE CONFIGURATION
// =============================================================================

// StorageConfig holds the journal and outcome-recorder file paths.
type StorageConfig struct {
	JournalPath string // Battle event journal (NDJSON), empty disables
	OutcomePath string // Final outcome records (NDJSON), empty disables
}

// DefaultStorage returns the default storage configuration.
func DefaultStorage() StorageConfig {
	return StorageConfig{
		JournalPath: "battles.jsonl",
		OutcomePath: "outcomes.jsonl",
	}
}

// StorageFromEnv returns storage configuration with environment overrides.
func StorageFromEnv() StorageConfig {
	cfg := DefaultStorage()

	if v, ok := os.LookupEnv("JOURNAL_PATH"); ok {
		cfg.JournalPath = v
	}
	if v, ok := os.LookupEnv("OUTCOME_PATH"); ok {
		cfg.OutcomePath = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim     SimConfig
	Server  ServerConfig
	Storage StorageConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:     SimFromEnv(),
		Server:  ServerFromEnv(),
		Storage: StorageFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
