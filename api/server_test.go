package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fruitRouletteServer/db"
	"fruitRouletteServer/game"
	"fruitRouletteServer/state"

	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

func newTestEngine(t *testing.T, gen game.OutcomeGenerator) *state.RoundEngine {
	t.Helper()
	e, err := state.NewRoundEngine(state.EngineConfig{
		Segments: []game.Segment{
			{ID: "cherry", Label: "Cherry", Multiplier: decimal.NewFromInt(5)},
			{ID: "banana", Label: "Banana", Multiplier: decimal.NewFromInt(3)},
		},
		Settings: state.Settings{
			CountdownSeconds: 30,
			StartingBalance:  1000,
			HistoryCapacity:  10,
			ChipValues:       []int64{10, 100},
		},
		Generator: gen,
	})
	if err != nil {
		t.Fatalf("NewRoundEngine failed: %v", err)
	}
	return e
}

type testAPI struct {
	engine  *state.RoundEngine
	archive *db.SQLiteArchive
	handler http.Handler
}

func newTestAPI(t *testing.T, gen game.OutcomeGenerator, secret string) *testAPI {
	t.Helper()
	engine := newTestEngine(t, gen)

	archive, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	// Archive settlements synchronously so the tests can read them back
	engine.Subscribe(func(ev state.Event) {
		if ev.Settlement != nil {
			if err := archive.StoreRound(context.Background(), db.RecordFromSettlement(ev.Settlement)); err != nil {
				t.Errorf("StoreRound failed: %v", err)
			}
		}
	})

	srv := NewServer(Options{Engine: engine, Archive: archive, AdminSecret: secret})
	return &testAPI{engine: engine, archive: archive, handler: srv.Router()}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func round(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	r, ok := resp["round"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no round: %v", resp)
	}
	return r
}

func TestRoundEndpoints(t *testing.T) {
	a := newTestAPI(t, game.FixedGenerator{SegmentID: "cherry"}, "")

	code, resp := a.do(t, http.MethodGet, "/api/round", nil)
	if code != http.StatusOK || round(t, resp)["phase"] != "betting" {
		t.Fatalf("GET /api/round: %d %v", code, resp)
	}

	code, resp = a.do(t, http.MethodPost, "/api/round/bet", map[string]interface{}{"segmentId": "cherry", "amount": 100})
	if code != http.StatusOK || round(t, resp)["balance"].(float64) != 900 {
		t.Fatalf("place bet: %d %v", code, resp)
	}

	// No amount: selected chip (10)
	code, resp = a.do(t, http.MethodPost, "/api/round/bet", map[string]interface{}{"segmentId": "banana"})
	if code != http.StatusOK || round(t, resp)["balance"].(float64) != 890 {
		t.Fatalf("place chip: %d %v", code, resp)
	}

	code, resp = a.do(t, http.MethodPost, "/api/round/adjust", map[string]interface{}{"segmentId": "cherry", "delta": -50})
	if code != http.StatusOK || round(t, resp)["balance"].(float64) != 940 {
		t.Fatalf("adjust: %d %v", code, resp)
	}

	code, resp = a.do(t, http.MethodPost, "/api/round/double", nil)
	if code != http.StatusOK || round(t, resp)["totalWagered"].(float64) != 120 {
		t.Fatalf("double: %d %v", code, resp)
	}

	code, resp = a.do(t, http.MethodPost, "/api/round/clear", nil)
	if code != http.StatusOK || round(t, resp)["balance"].(float64) != 1000 {
		t.Fatalf("clear: %d %v", code, resp)
	}

	code, resp = a.do(t, http.MethodPost, "/api/round/chip", map[string]interface{}{"preset": "max"})
	if code != http.StatusOK || round(t, resp)["selectedChip"].(float64) != 100 {
		t.Fatalf("chip max: %d %v", code, resp)
	}
}

func TestSpinAndHistory(t *testing.T) {
	a := newTestAPI(t, game.FixedGenerator{SegmentID: "cherry"}, "")

	a.do(t, http.MethodPost, "/api/round/bet", map[string]interface{}{"segmentId": "cherry", "amount": 100})
	code, resp := a.do(t, http.MethodPost, "/api/round/spin", nil)
	if code != http.StatusOK {
		t.Fatalf("spin: %d %v", code, resp)
	}
	r := round(t, resp)
	if r["balance"].(float64) != 1400 || r["roundId"].(float64) != 2 || r["phase"] != "betting" {
		t.Errorf("Unexpected snapshot after spin: %v", r)
	}

	code, resp = a.do(t, http.MethodGet, "/api/history", nil)
	history := resp["history"].([]interface{})
	if code != http.StatusOK || len(history) != 1 {
		t.Fatalf("history: %d %v", code, resp)
	}
	entry := history[0].(map[string]interface{})
	if entry["winningSegmentId"] != "cherry" || entry["totalPayout"].(float64) != 500 {
		t.Errorf("Unexpected history entry: %v", entry)
	}

	code, resp = a.do(t, http.MethodGet, "/api/history/rounds?segment=cherry", nil)
	if code != http.StatusOK || len(resp["rounds"].([]interface{})) != 1 {
		t.Errorf("archived rounds: %d %v", code, resp)
	}

	code, resp = a.do(t, http.MethodGet, "/api/history/rounds/1", nil)
	if code != http.StatusOK {
		t.Fatalf("archived round: %d %v", code, resp)
	}
	if resp["round"].(map[string]interface{})["payout"].(float64) != 500 {
		t.Errorf("Unexpected archived round: %v", resp)
	}

	code, resp = a.do(t, http.MethodGet, "/api/history/rounds/42", nil)
	if code != http.StatusNotFound || resp["code"] != "ROUND_NOT_FOUND" {
		t.Errorf("missing round: %d %v", code, resp)
	}
}

func TestEngineErrorMapping(t *testing.T) {
	a := newTestAPI(t, game.FixedGenerator{SegmentID: "cherry"}, "")

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"UnknownSegment", "/api/round/bet", map[string]interface{}{"segmentId": "kiwi", "amount": 10}, http.StatusBadRequest, "UNKNOWN_SEGMENT"},
		{"ZeroAmount", "/api/round/bet", map[string]interface{}{"segmentId": "cherry", "amount": 0}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"InsufficientBalance", "/api/round/bet", map[string]interface{}{"segmentId": "cherry", "amount": 5000}, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"},
		{"SpinWithoutWagers", "/api/round/spin", nil, http.StatusUnprocessableEntity, "NO_ACTIVE_WAGERS"},
		{"DoubleWithoutWagers", "/api/round/double", nil, http.StatusUnprocessableEntity, "NO_ACTIVE_WAGERS"},
		{"InvalidChip", "/api/round/chip", map[string]interface{}{"value": 7}, http.StatusBadRequest, "INVALID_CHIP_VALUE"},
		{"BadPreset", "/api/round/chip", map[string]interface{}{"preset": "huge"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"MalformedBody", "/api/round/bet", "{not json", http.StatusBadRequest, "BAD_REQUEST"},
		{"FractionalAmount", "/api/round/bet", `{"segmentId":"cherry","amount":10.5}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"MissingSegment", "/api/round/adjust", map[string]interface{}{"delta": 10}, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := a.do(t, http.MethodPost, tt.path, tt.body)
			if code != tt.status {
				t.Errorf("Expected status %d, got %d (%v)", tt.status, code, resp)
			}
			if resp["code"] != tt.code {
				t.Errorf("Expected code %s, got %v", tt.code, resp["code"])
			}
			if resp["success"] != false {
				t.Errorf("Expected success=false, got %v", resp["success"])
			}
		})
	}

	if snap := a.engine.Snapshot(); snap.Balance != 1000 || len(snap.Wagers) != 0 {
		t.Errorf("Rejected requests changed state: %+v", snap)
	}
}

func TestNewRoundResetsBrokeSession(t *testing.T) {
	a := newTestAPI(t, game.FixedGenerator{SegmentID: "banana"}, "")

	a.do(t, http.MethodPost, "/api/round/bet", map[string]interface{}{"segmentId": "cherry", "amount": 995})
	a.do(t, http.MethodPost, "/api/round/spin", nil)
	if snap := a.engine.Snapshot(); snap.Balance != 5 {
		t.Fatalf("Expected balance 5 after losing, got %d", snap.Balance)
	}

	code, resp := a.do(t, http.MethodPost, "/api/round/new", nil)
	if code != http.StatusOK || round(t, resp)["balance"].(float64) != 1000 {
		t.Fatalf("new round: %d %v", code, resp)
	}

	waitForAudit(t, a.archive, db.AuditSessionReset, 1)
}

func TestAdminMultiplier(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		a := newTestAPI(t, game.FixedGenerator{SegmentID: "cherry"}, "")
		code, resp := a.do(t, http.MethodPost, "/api/admin/multiplier", map[string]interface{}{"segmentId": "cherry", "multiplier": "7"})
		if code != http.StatusServiceUnavailable || resp["code"] != "ADMIN_DISABLED" {
			t.Errorf("Expected 503 ADMIN_DISABLED, got %d %v", code, resp)
		}
	})

	a := newTestAPI(t, game.FixedGenerator{SegmentID: "cherry"}, testSecret)
	body := map[string]interface{}{"segmentId": "cherry", "multiplier": "7.5"}

	t.Run("MissingToken", func(t *testing.T) {
		code, _ := a.do(t, http.MethodPost, "/api/admin/multiplier", body)
		if code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", code)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := GenerateAdminToken([]byte("other"), "mallory", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		code, _ := a.do(t, http.MethodPost, "/api/admin/multiplier", body, "Authorization", "Bearer "+token)
		if code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", code)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := GenerateAdminToken([]byte(testSecret), "ops", -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		code, _ := a.do(t, http.MethodPost, "/api/admin/multiplier", body, "Authorization", "Bearer "+token)
		if code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", code)
		}
	})

	token, err := GenerateAdminToken([]byte(testSecret), "ops", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}
	auth := []string{"Authorization", "Bearer " + token}

	t.Run("InvalidMultiplier", func(t *testing.T) {
		for _, m := range []string{"abc", "0", "-2"} {
			code, resp := a.do(t, http.MethodPost, "/api/admin/multiplier",
				map[string]interface{}{"segmentId": "cherry", "multiplier": m}, auth...)
			if code != http.StatusBadRequest || resp["code"] != "INVALID_MULTIPLIER" {
				t.Errorf("multiplier %q: expected 400 INVALID_MULTIPLIER, got %d %v", m, code, resp)
			}
		}
	})

	t.Run("StagedUntilNextRound", func(t *testing.T) {
		code, resp := a.do(t, http.MethodPost, "/api/admin/multiplier", body, auth...)
		if code != http.StatusOK {
			t.Fatalf("set multiplier: %d %v", code, resp)
		}
		if resp["appliesToRound"].(float64) != 2 || resp["stagedBy"] != "ops" {
			t.Errorf("Unexpected response: %v", resp)
		}

		_, segs := a.do(t, http.MethodGet, "/api/segments", nil)
		cherry := segs["segments"].([]interface{})[0].(map[string]interface{})
		if cherry["multiplier"] != "5" || cherry["stagedMultiplier"] != "7.5" {
			t.Errorf("Expected live 5 and staged 7.5, got %v", cherry)
		}

		// Payout of the running round still uses 5x
		a.do(t, http.MethodPost, "/api/round/bet", map[string]interface{}{"segmentId": "cherry", "amount": 10})
		a.do(t, http.MethodPost, "/api/round/spin", nil)
		if snap := a.engine.Snapshot(); snap.Balance != 1040 {
			t.Errorf("Expected balance 1040, got %d", snap.Balance)
		}

		_, segs = a.do(t, http.MethodGet, "/api/segments", nil)
		cherry = segs["segments"].([]interface{})[0].(map[string]interface{})
		if cherry["multiplier"] != "7.5" {
			t.Errorf("Expected 7.5 after the round closed, got %v", cherry["multiplier"])
		}

		waitForAudit(t, a.archive, db.AuditSetMultiplier, 1)
	})
}

func TestVerifyRound(t *testing.T) {
	a := newTestAPI(t, game.NewProvablyFairGenerator(), "")

	hash := a.engine.Snapshot().ServerSeedHash
	if hash == "" {
		t.Fatal("Expected a committed seed hash on the open round")
	}

	a.do(t, http.MethodPost, "/api/round/bet", map[string]interface{}{"segmentId": "banana", "amount": 10})
	a.do(t, http.MethodPost, "/api/round/spin", nil)

	code, resp := a.do(t, http.MethodGet, "/api/verify/1", nil)
	if code != http.StatusOK {
		t.Fatalf("verify: %d %v", code, resp)
	}
	if resp["valid"] != true || resp["seedMatchesHash"] != true {
		t.Errorf("Expected a valid round, got %v", resp)
	}
	if resp["serverSeedHash"] != hash {
		t.Errorf("Expected revealed hash %s, got %v", hash, resp["serverSeedHash"])
	}

	code, resp = a.do(t, http.MethodGet, "/api/history/rounds/1", nil)
	if code != http.StatusOK {
		t.Fatalf("round detail: %d %v", code, resp)
	}
	order, _ := resp["round"].(map[string]interface{})["segmentOrder"].([]interface{})
	segments := a.engine.Segments()
	if len(order) != len(segments) || order[0] != segments[0].ID {
		t.Errorf("Expected the drawn wheel order to be archived, got %v", order)
	}

	code, resp = a.do(t, http.MethodGet, "/api/verify/abc", nil)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-numeric round id, got %d %v", code, resp)
	}
}

func TestVerifyRoundWithoutSeed(t *testing.T) {
	a := newTestAPI(t, game.FixedGenerator{SegmentID: "cherry"}, "")
	a.do(t, http.MethodPost, "/api/round/bet", map[string]interface{}{"segmentId": "cherry", "amount": 10})
	a.do(t, http.MethodPost, "/api/round/spin", nil)

	code, resp := a.do(t, http.MethodGet, "/api/verify/1", nil)
	if code != http.StatusUnprocessableEntity || resp["code"] != "NOT_VERIFIABLE" {
		t.Errorf("Expected 422 NOT_VERIFIABLE, got %d %v", code, resp)
	}
}

func TestHealthCheck(t *testing.T) {
	a := newTestAPI(t, game.FixedGenerator{SegmentID: "cherry"}, "")
	code, resp := a.do(t, http.MethodGet, "/api/health", nil)
	if code != http.StatusOK {
		t.Fatalf("health: %d %v", code, resp)
	}
	if resp["archive"] != "sqlite: ok" {
		t.Errorf("Expected sqlite archive ok, got %v", resp["archive"])
	}
}

func waitForAudit(t *testing.T, archive *db.SQLiteArchive, action string, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		n, err := archive.AuditCount(context.Background(), action)
		if err != nil {
			t.Fatalf("AuditCount failed: %v", err)
		}
		if n >= want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d %s audit entries, got %d", want, action, n)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
