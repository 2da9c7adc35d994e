package api

import (
	"fmt"
	"net/http"

	"fruitRouletteServer/db"
	"fruitRouletteServer/game"
	"fruitRouletteServer/state"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
)

/* =========================
   REQUEST/RESPONSE TYPES
========================= */

// PlaceBetRequest stakes amount on a segment. Without amount the selected chip is used.
type PlaceBetRequest struct {
	SegmentID string `json:"segmentId"`
	Amount    *int64 `json:"amount,omitempty"`
}

type AdjustBetRequest struct {
	SegmentID string `json:"segmentId"`
	Delta     int64  `json:"delta"`
}

// SelectChipRequest selects a chip by value or by preset ("max" or "min")
type SelectChipRequest struct {
	Value  int64  `json:"value,omitempty"`
	Preset string `json:"preset,omitempty"`
}

type SegmentInfo struct {
	game.Segment
	StagedMultiplier *decimal.Decimal `json:"stagedMultiplier,omitempty"`
	ReturnToPlayer   decimal.Decimal  `json:"returnToPlayer"`
}

type SegmentsResponse struct {
	Success    bool          `json:"success"`
	Segments   []SegmentInfo `json:"segments"`
	ChipValues []int64       `json:"chipValues"`
}

type HistoryResponse struct {
	Success bool                 `json:"success"`
	History []state.HistoryEntry `json:"history"`
}

/* =========================
   ROUND ENDPOINTS
========================= */

// HandleGetRound returns the current round snapshot
// GET /api/round
func (s *Server) HandleGetRound(w http.ResponseWriter, r *http.Request) {
	sendRound(w, r, s.engine.Snapshot(), nil)
}

// HandlePlaceBet handles POST /api/round/bet
func (s *Server) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.SegmentID == "" {
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "segmentId is required")
		return
	}

	if req.Amount == nil {
		snap, err := s.engine.PlaceChip(req.SegmentID)
		sendRound(w, r, snap, err)
		return
	}
	snap, err := s.engine.PlaceBet(req.SegmentID, *req.Amount)
	sendRound(w, r, snap, err)
}

// HandleAdjustBet handles POST /api/round/adjust
func (s *Server) HandleAdjustBet(w http.ResponseWriter, r *http.Request) {
	var req AdjustBetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.SegmentID == "" {
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "segmentId is required")
		return
	}

	snap, err := s.engine.AdjustBet(req.SegmentID, req.Delta)
	sendRound(w, r, snap, err)
}

// HandleClearBets handles POST /api/round/clear
func (s *Server) HandleClearBets(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.ClearBets()
	sendRound(w, r, snap, err)
}

// HandleDoubleBets handles POST /api/round/double
func (s *Server) HandleDoubleBets(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.DoubleBets()
	sendRound(w, r, snap, err)
}

// HandleSpin handles POST /api/round/spin
func (s *Server) HandleSpin(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.TriggerSpin()
	sendRound(w, r, snap, err)
}

// HandleNewRound handles POST /api/round/new
func (s *Server) HandleNewRound(w http.ResponseWriter, r *http.Request) {
	minChip := s.engine.ChipValues()[0]
	before := s.engine.Snapshot()
	snap, err := s.engine.StartNewRound()
	if err == nil && before.Balance+before.TotalWagered < minChip {
		s.audit(r, db.AuditSessionReset, fmt.Sprintf("session %s balance reset to %d", snap.SessionID, snap.Balance))
	}
	sendRound(w, r, snap, err)
}

// HandleSelectChip handles POST /api/round/chip
func (s *Server) HandleSelectChip(w http.ResponseWriter, r *http.Request) {
	var req SelectChipRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	var (
		snap state.Snapshot
		err  error
	)
	switch req.Preset {
	case "max":
		snap, err = s.engine.SelectMaxChip()
	case "min":
		snap, err = s.engine.SelectMinChip()
	case "":
		snap, err = s.engine.SelectChip(req.Value)
	default:
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "preset must be max or min")
		return
	}
	sendRound(w, r, snap, err)
}

/* =========================
   WHEEL + SESSION HISTORY
========================= */

// HandleGetSegments handles GET /api/segments
func (s *Server) HandleGetSegments(w http.ResponseWriter, r *http.Request) {
	segments := s.engine.Segments()
	staged := s.engine.StagedMultipliers()

	out := make([]SegmentInfo, 0, len(segments))
	for _, seg := range segments {
		info := SegmentInfo{
			Segment:        seg,
			ReturnToPlayer: game.ReturnToPlayer(segments, seg.ID),
		}
		if m, ok := staged[seg.ID]; ok {
			m := m
			info.StagedMultiplier = &m
		}
		out = append(out, info)
	}

	render.JSON(w, r, SegmentsResponse{
		Success:    true,
		Segments:   out,
		ChipValues: s.engine.ChipValues(),
	})
}

// HandleGetHistory handles GET /api/history
func (s *Server) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HistoryResponse{
		Success: true,
		History: s.engine.History(),
	})
}
