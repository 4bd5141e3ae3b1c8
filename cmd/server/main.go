package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siegelane/internal/api"
	"siegelane/internal/config"
	"siegelane/internal/persist"
	"siegelane/internal/sim"
	"siegelane/internal/sim/events"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🏰 ================================")
	log.Println("🏰  SIEGE LANE - BATTLE ENGINE")
	log.Println("🏰  Stat feed → castle siege")
	log.Println("🏰 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	cfg := config.Load()

	// Event bus + journal. An empty journal path keeps the bus running
	// with no disk writes.
	bus := events.NewBus()
	journal := events.NewJournal()
	if cfg.Storage.JournalPath != "" {
		if err := journal.Start(cfg.Storage.JournalPath); err != nil {
			log.Fatalf("❌ Failed to start event journal: %v", err)
		}
		log.Printf("📓 Event journal: %s", cfg.Storage.JournalPath)
	} else {
		log.Println("📓 Event journal disabled (JOURNAL_PATH empty)")
	}

	var recorder persist.Recorder = persist.Noop{}
	if cfg.Storage.OutcomePath != "" {
		fileRecorder, err := persist.NewFileRecorder(cfg.Storage.OutcomePath)
		if err != nil {
			log.Fatalf("❌ Failed to open outcome log: %v", err)
		}
		recorder = fileRecorder
		log.Printf("💾 Outcome log: %s", cfg.Storage.OutcomePath)
	}

	engine := sim.NewEngine(cfg.Sim, sim.Deps{
		Bus:          bus,
		Journal:      journal,
		Recorder:     recorder,
		MaxBattles:   cfg.Server.MaxBattles,
		TickObserver: api.RecordTick,
	})

	// Finished battles feed the outcome counter by result label
	bus.Subscribe(events.EventTypeBattleFinal, func(ev events.Event) {
		payload, ok := ev.Payload.(events.FinalPayload)
		if !ok {
			return
		}
		result := "draw"
		if payload.WinnerSet {
			result = payload.Winner.String()
		}
		api.RecordBattleFinished(result)
	})

	// Debug server (pprof + metrics) unless explicitly disabled
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		obsConfig := api.DefaultObservabilityConfig()
		obsConfig.BasicAuthUser = os.Getenv("DEBUG_AUTH_USER")
		obsConfig.BasicAuthPass = os.Getenv("DEBUG_AUTH_PASS")
		if err := api.StartDebugServer(obsConfig); err != nil {
			log.Printf("⚠️ Failed to start debug server: %v", err)
		}
	}

	// Gauge poller: samples engine and journal counters for Prometheus
	metricsStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-metricsStop:
				return
			case <-ticker.C:
				battles, projectiles, items := engine.Gauges()
				api.UpdateBattleCount(battles)
				api.UpdateProjectileCount(projectiles)
				api.UpdateItemCount(items)
				api.UpdateJournalStats(journal.GetTotalCount(), journal.GetDroppedCount())
			}
		}
	}()

	engine.Start()

	server := api.NewServer(engine)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		log.Printf("🌐 API server listening on %s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("❌ API server failed: %v", err)
		}
	}()

	log.Println("✅ Server ready")
	log.Printf("   Tick rate: %d TPS", cfg.Sim.TickRate)
	log.Printf("   Max battles: %d", cfg.Server.MaxBattles)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	close(metricsStop)
	server.Stop()
	engine.Stop()
	journal.Stop()
	if err := recorder.Close(); err != nil {
		log.Printf("⚠️ Outcome log close: %v", err)
	}
	log.Println("👋 Goodbye!")
}
