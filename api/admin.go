package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"fruitRouletteServer/db"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const roleAdmin = "admin"

// AdminClaims are carried by admin bearer tokens
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type adminCtxKey struct{}

// SetMultiplierRequest stages a new multiplier. The value is a decimal string.
type SetMultiplierRequest struct {
	SegmentID  string `json:"segmentId"`
	Multiplier string `json:"multiplier"`
}

type SetMultiplierResponse struct {
	Success   bool                       `json:"success"`
	Message   string                     `json:"message"`
	Staged    map[string]decimal.Decimal `json:"staged"`
	AppliesTo uint64                     `json:"appliesToRound"`
	StagedBy  string                     `json:"stagedBy"`
}

/* =========================
   TOKENS
========================= */

// GenerateAdminToken signs an HS256 admin token for subject
func GenerateAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("admin secret is empty")
	}
	now := time.Now()
	claims := AdminClaims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAdminToken parses tokenStr and checks the signature, expiry and role
func VerifyAdminToken(tokenStr string, secret []byte) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected token signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || claims.Role != roleAdmin {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// requireAdmin rejects requests without a valid admin bearer token
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.adminSecret) == 0 {
			sendError(w, r, http.StatusServiceUnavailable, "ADMIN_DISABLED", "Admin API is not configured")
			return
		}

		header := r.Header.Get("Authorization")
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenStr == "" {
			sendError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
			return
		}

		claims, err := VerifyAdminToken(tokenStr, s.adminSecret)
		if err != nil {
			log.Printf("⚠️  Rejected admin token from %s: %v", r.RemoteAddr, err)
			sendError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), adminCtxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminFromContext(ctx context.Context) string {
	if claims, ok := ctx.Value(adminCtxKey{}).(*AdminClaims); ok {
		return claims.Subject
	}
	return "anonymous"
}

/* =========================
   ADMIN ENDPOINTS
========================= */

// HandleSetMultiplier handles POST /api/admin/multiplier
func (s *Server) HandleSetMultiplier(w http.ResponseWriter, r *http.Request) {
	var req SetMultiplierRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	mult, err := decimal.NewFromString(req.Multiplier)
	if err != nil {
		sendError(w, r, http.StatusBadRequest, "INVALID_MULTIPLIER", "multiplier must be a decimal string")
		return
	}

	snap, err := s.engine.SetMultiplier(req.SegmentID, mult)
	if err != nil {
		sendEngineError(w, r, err)
		return
	}

	actor := adminFromContext(r.Context())
	s.audit(r, db.AuditSetMultiplier, fmt.Sprintf("%s=%s by %s", req.SegmentID, mult.String(), actor))
	log.Printf("🛠️  Multiplier staged - %s: %sx (by %s, applies to round %d)",
		req.SegmentID, mult.String(), actor, snap.RoundID+1)

	render.JSON(w, r, SetMultiplierResponse{
		Success:   true,
		Message:   "Multiplier staged for the next round",
		Staged:    s.engine.StagedMultipliers(),
		AppliesTo: snap.RoundID + 1,
		StagedBy:  actor,
	})
}

// audit records an action in the archive without blocking the request
func (s *Server) audit(r *http.Request, action, details string) {
	if s.archive == nil {
		return
	}
	record := &db.AuditRecord{
		Action:    action,
		Actor:     adminFromContext(r.Context()),
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if record.Actor == "anonymous" {
		record.Actor = r.RemoteAddr
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.archive.StoreAudit(ctx, record); err != nil {
			log.Printf("⚠️  Failed to store audit log (%s): %v", action, err)
		}
	}()
}
