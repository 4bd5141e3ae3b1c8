package config

import (
	"testing"
)

func TestDefaultSim(t *testing.T) {
	cfg := DefaultSim()

	if cfg.TickRate <= 0 {
		t.Error("Tick rate must be positive")
	}
	if cfg.FireIntervalTicks < 1 {
		t.Error("Fire interval must be at least 1 tick")
	}
	if cfg.DefaultStake <= 0 {
		t.Error("Default stake must be positive")
	}
	if cfg.MaxPeriods() != 4+cfg.MaxOvertimes {
		t.Errorf("Expected %d max periods, got %d", 4+cfg.MaxOvertimes, cfg.MaxPeriods())
	}
}

func TestSimFromEnvOverrides(t *testing.T) {
	t.Setenv("SIM_TICK_RATE", "50")
	t.Setenv("SIM_DEFAULT_STAKE", "33")
	t.Setenv("SIM_MAX_OVERTIMES", "0")

	cfg := SimFromEnv()
	if cfg.TickRate != 50 {
		t.Errorf("Expected tick rate 50, got %d", cfg.TickRate)
	}
	if cfg.DefaultStake != 33 {
		t.Errorf("Expected stake 33, got %d", cfg.DefaultStake)
	}
	if cfg.MaxOvertimes != 0 {
		t.Errorf("Expected 0 overtimes, got %d", cfg.MaxOvertimes)
	}
}

func TestSimFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("SIM_TICK_RATE", "not-a-number")

	cfg := SimFromEnv()
	if cfg.TickRate != DefaultSim().TickRate {
		t.Errorf("Garbage env should keep default, got %d", cfg.TickRate)
	}
}

func TestBlockWindowTicks(t *testing.T) {
	cfg := DefaultSim()
	cfg.TickRate = 20
	cfg.BlockWindowSec = 0.5
	if got := cfg.BlockWindowTicks(); got != 10 {
		t.Errorf("Expected 10 ticks, got %d", got)
	}
}

func TestStorageFromEnv(t *testing.T) {
	t.Setenv("JOURNAL_PATH", "")
	cfg := StorageFromEnv()
	if cfg.JournalPath != "" {
		t.Errorf("Empty env should disable the journal, got %q", cfg.JournalPath)
	}
}
