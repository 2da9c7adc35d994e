package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"fruitRouletteServer/db"
	"fruitRouletteServer/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/patrickmn/go-cache"
)

/* =========================
   RESPONSE TYPES
========================= */

type ArchivedRoundsResponse struct {
	Success bool              `json:"success"`
	Rounds  []*db.RoundRecord `json:"rounds"`
}

type ArchivedRoundResponse struct {
	Success bool            `json:"success"`
	Round   *db.RoundRecord `json:"round"`
}

type VerifyResponse struct {
	Success        bool   `json:"success"`
	RoundID        uint64 `json:"roundId"`
	Valid          bool   `json:"valid"`
	SeedMatches    bool   `json:"seedMatchesHash"`
	Expected       string `json:"expectedSegmentId"`
	Recorded       string `json:"recordedSegmentId"`
	ServerSeed     string `json:"serverSeed"`
	ServerSeedHash string `json:"serverSeedHash"`
}

/* =========================
   ARCHIVE ENDPOINTS
========================= */

// HandleGetArchivedRounds handles GET /api/history/rounds
// Query params: segment, limit, wins=true, session (defaults to the current session)
func (s *Server) HandleGetArchivedRounds(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		sendError(w, r, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Round archive is not configured")
		return
	}

	q := r.URL.Query()
	filter := db.RoundFilter{
		SessionID: q.Get("session"),
		SegmentID: q.Get("segment"),
		WinsOnly:  q.Get("wins") == "true",
	}
	if filter.SessionID == "" {
		filter.SessionID = s.engine.Snapshot().SessionID
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	rounds, err := s.archive.RecentRounds(r.Context(), filter)
	if err != nil {
		log.Printf("❌ Failed to get archived rounds: %v", err)
		sendError(w, r, http.StatusInternalServerError, "INTERNAL", "Failed to retrieve round history")
		return
	}

	render.JSON(w, r, ArchivedRoundsResponse{Success: true, Rounds: rounds})
	log.Printf("📋 Retrieved %d archived rounds", len(rounds))
}

// HandleGetArchivedRound handles GET /api/history/rounds/{roundId}
func (s *Server) HandleGetArchivedRound(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRound(w, r)
	if !ok {
		return
	}

	s.audit(r, db.AuditViewRoundHistory, fmt.Sprintf("session %s round %d", record.SessionID, record.RoundID))
	render.JSON(w, r, ArchivedRoundResponse{Success: true, Round: record})
}

// HandleVerifyRound handles GET /api/verify/{roundId}
// Recomputes the winning segment from the revealed seed over the wheel order the round was drawn from.
func (s *Server) HandleVerifyRound(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookupRound(w, r)
	if !ok {
		return
	}
	if record.ServerSeed == "" {
		sendError(w, r, http.StatusUnprocessableEntity, "NOT_VERIFIABLE", "Round was not played with a committed seed")
		return
	}

	v := game.VerifyRound(record.ServerSeed, record.ServerSeedHash, record.RoundID,
		record.Wheel(s.engine.Segments()), record.WinningSegmentID)

	if v.Valid {
		log.Printf("✅ Round verified - Round: %d, Winner: %s", record.RoundID, record.WinningSegmentID)
	} else {
		log.Printf("⚠️  Round verification failed - Round: %d, expected %s, recorded %s",
			record.RoundID, v.ExpectedSegmentID, v.RecordedSegmentID)
	}

	render.JSON(w, r, VerifyResponse{
		Success:        true,
		RoundID:        record.RoundID,
		Valid:          v.Valid,
		SeedMatches:    v.SeedMatchesHash,
		Expected:       v.ExpectedSegmentID,
		Recorded:       v.RecordedSegmentID,
		ServerSeed:     record.ServerSeed,
		ServerSeedHash: record.ServerSeedHash,
	})
}

// lookupRound resolves {roundId} in the current session, writing the error response itself
func (s *Server) lookupRound(w http.ResponseWriter, r *http.Request) (*db.RoundRecord, bool) {
	if s.archive == nil {
		sendError(w, r, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Round archive is not configured")
		return nil, false
	}

	roundID, err := strconv.ParseUint(chi.URLParam(r, "roundId"), 10, 64)
	if err != nil {
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "roundId must be a positive integer")
		return nil, false
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = s.engine.Snapshot().SessionID
	}

	record, err := s.cachedRound(r.Context(), sessionID, roundID)
	if err != nil {
		log.Printf("❌ Failed to get round %d: %v", roundID, err)
		sendError(w, r, http.StatusInternalServerError, "INTERNAL", "Failed to retrieve round")
		return nil, false
	}
	if record == nil {
		sendError(w, r, http.StatusNotFound, "ROUND_NOT_FOUND", fmt.Sprintf("Round %d not found", roundID))
		return nil, false
	}
	return record, true
}

func (s *Server) cachedRound(ctx context.Context, sessionID string, roundID uint64) (*db.RoundRecord, error) {
	key := fmt.Sprintf("%s:%d", sessionID, roundID)
	if v, found := s.roundCache.Get(key); found {
		return v.(*db.RoundRecord), nil
	}

	record, err := s.archive.GetRound(ctx, sessionID, roundID)
	if err != nil || record == nil {
		// Misses are not cached, the round may still be in flight
		return record, err
	}
	s.roundCache.Set(key, record, cache.DefaultExpiration)
	return record, nil
}
