package api

import (
	"errors"
	"log"
	"net/http"

	"fruitRouletteServer/state"

	"github.com/go-chi/render"
)

/* =========================
   RESPONSE TYPES
========================= */

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// RoundResponse wraps the snapshot returned by every round operation
type RoundResponse struct {
	Success bool           `json:"success"`
	Round   state.Snapshot `json:"round"`
}

// sendError writes a JSON error with the given status
func sendError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// sendEngineError maps a rejected engine operation to an HTTP status
func sendEngineError(w http.ResponseWriter, r *http.Request, err error) {
	code := state.ErrorCode(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, state.ErrInvalidPhase):
		status = http.StatusConflict
	case errors.Is(err, state.ErrUnknownSegment),
		errors.Is(err, state.ErrInvalidChipValue),
		errors.Is(err, state.ErrInvalidAmount),
		errors.Is(err, state.ErrInvalidMultiplier):
		status = http.StatusBadRequest
	case errors.Is(err, state.ErrInsufficientBalance),
		errors.Is(err, state.ErrNoActiveWagers),
		errors.Is(err, state.ErrBetLimit):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Printf("❌ Unexpected engine error: %v", err)
		code = "INTERNAL"
	}
	sendError(w, r, status, code, err.Error())
}

func sendRound(w http.ResponseWriter, r *http.Request, snap state.Snapshot, err error) {
	if err != nil {
		sendEngineError(w, r, err)
		return
	}
	render.JSON(w, r, RoundResponse{Success: true, Round: snap})
}
