package api

import (
	"net/http"

	"fruitRouletteServer/db"

	"github.com/go-chi/render"
)

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// HandleHealthCheck handles health check requests
// GET /api/health
func (s *Server) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check Redis
	redisHealth := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	// Check PostgreSQL
	postgresHealth := "ok"
	if err := db.HealthCheckPostgres(ctx); err != nil {
		postgresHealth = "error: " + err.Error()
	}

	archiveHealth := "disabled"
	if s.archive != nil {
		archiveHealth = s.archive.Name() + ": ok"
		if err := s.archive.Health(ctx); err != nil {
			archiveHealth = s.archive.Name() + ": error: " + err.Error()
		}
	}

	snap := s.engine.Snapshot()
	render.JSON(w, r, map[string]interface{}{
		"success":  true,
		"redis":    redisHealth,
		"postgres": postgresHealth,
		"archive":  archiveHealth,
		"round":    snap.RoundID,
		"phase":    snap.Phase,
		"message":  "Health check completed",
	})
}
