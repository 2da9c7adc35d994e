package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fruitRouletteServer/api"
	"fruitRouletteServer/config"
	"fruitRouletteServer/db"
	"fruitRouletteServer/game"
	"fruitRouletteServer/state"
	"fruitRouletteServer/ws"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	settings, err := config.LoadGameSettings()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	var archive db.RoundArchive
	if err := db.InitPostgres(); err != nil {
		log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
		db.ClosePostgres()
	} else {
		archive = db.PostgresArchive{}
	}
	defer db.ClosePostgres()

	if archive == nil && settings.SQLitePath != "" {
		sqlite, err := db.OpenSQLite(settings.SQLitePath)
		if err != nil {
			log.Printf("⚠️  Warning: SQLite archive failed: %v", err)
		} else {
			archive = sqlite
			defer sqlite.Close()
		}
	}
	if archive == nil {
		log.Println("   Round archive, verification and audit log will be disabled")
	} else {
		log.Printf("🗄️  Round archive: %s", archive.Name())
	}

	if err := db.InitRedis(); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Sessions will not survive a restart")
	}
	defer db.CloseRedis()

	restore, err := loadSession(ctx)
	if err != nil {
		log.Printf("⚠️  Warning: could not load saved session: %v", err)
	}

	var generator game.OutcomeGenerator
	if settings.ProvablyFair {
		generator = game.NewProvablyFairGenerator()
	} else {
		generator = game.NewRandomGenerator(settings.RNGSeed)
	}

	engine, err := state.NewRoundEngine(state.EngineConfig{
		Segments:  settings.Segments,
		Settings:  settings.Engine,
		Generator: generator,
		Restore:   restore,
	})
	if err != nil && restore != nil {
		log.Printf("⚠️  Warning: saved session rejected, starting fresh: %v", err)
		engine, err = state.NewRoundEngine(state.EngineConfig{
			Segments:  settings.Segments,
			Settings:  settings.Engine,
			Generator: generator,
		})
	}
	if err != nil {
		log.Fatalf("❌ Failed to create round engine: %v", err)
	}

	hub := ws.NewHub(engine)
	go hub.Run(ctx)

	loop := ws.NewRoundLoop(engine, hub, archive, db.RedisStore{})
	if err := loop.Start(); err != nil {
		log.Fatalf("❌ Failed to start round loop: %v", err)
	}

	server := api.NewServer(api.Options{
		Engine:      engine,
		Archive:     archive,
		WSHandler:   hub.HandleWS,
		AdminSecret: settings.AdminJWTSecret,
	})
	if settings.AdminJWTSecret == "" {
		log.Println("⚠️  ADMIN_JWT_SECRET not set, admin endpoints disabled")
	}

	httpServer := &http.Server{
		Addr:              settings.ServerAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Server starting on %s", settings.ServerAddr)
	log.Println("")
	log.Println("📡 WebSocket Endpoints:")
	log.Println("   /ws - Subscribe to 'round' for live round state, results and history")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   GET  /api/round - Current round snapshot")
	log.Println("   POST /api/round/{bet,adjust,clear,double,chip,spin,new} - Round operations")
	log.Println("   GET  /api/segments - Wheel segments and chip values")
	log.Println("   GET  /api/history - Recent results of this session")
	log.Println("   GET  /api/history/rounds[/:roundId] - Archived rounds")
	log.Println("   GET  /api/verify/:roundId - Provably fair verification")
	log.Println("   POST /api/admin/multiplier - Stage a multiplier (admin token)")
	log.Println("   GET  /api/health - Health check")
	log.Println("")

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error:", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown error: %v", err)
	}
	if err := loop.Stop(); err != nil {
		log.Printf("⚠️  Round loop shutdown error: %v", err)
	}

	// Persist the session one last time; open wagers are refunded into the saved balance
	if err := db.SaveSessionState(shutdownCtx, engine.ExportSession()); err != nil {
		log.Printf("⚠️  Failed to save session: %v", err)
	}
	log.Println("👋 Server stopped")
}

func loadSession(ctx context.Context) (*state.SessionState, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s, err := db.LoadCurrentSession(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	log.Printf("♻️  Resuming session %s (balance %d)", s.SessionID, s.Balance)
	return s, nil
}
