// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests require no real Postgres/Redis — every actor is wired against
// in-memory stores and a no-op event bus. They verify:
//   - gin router wiring and middleware ordering
//   - request validation error responses (400)
//   - JWT auth middleware (401 without a token, 401 with a bad token)
//   - response envelope consistency (success/error shape)
//   - CORS preflight handling
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/api"
	"github.com/oddsforge/sportsbook/internal/config"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/eventstore"
	"github.com/oddsforge/sportsbook/internal/snapshot"
)

func testCfg() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Env: "development", Port: "8080"},
		Currency: "USD",
		JWT: config.JWTConfig{
			AccessSecret: "test-access-secret-abcdefghijklmnop",
			AccessTTL:    15 * time.Minute,
		},
		Odds: config.OddsConfig{
			VolatilityWindow: 5 * time.Minute,
			MediumThreshold:  10,
			HighThreshold:    25,
			ExtremeThreshold: 50,
			MinDecimalOdds:   1.01,
		},
		Cashout: config.CashoutConfig{
			DiscountRate: 0.95,
			FloorAmount:  0.01,
		},
		RateLimit: config.RateLimitConfig{BetRPS: 30, DefaultRPS: 50},
	}
}

func buildTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testCfg()

	snaps := snapshot.NewInMemoryStore()
	events := eventstore.NewInMemoryEventStore()
	bus := eventbus.NoopPublisher{}

	walletActor := actor.NewWalletActor(snaps, bus, cfg.Currency)
	oddsActor := actor.NewOddsActor(snaps, bus, domain.VolatilityThresholds{
		Medium:  decimal.NewFromFloat(cfg.Odds.MediumThreshold),
		High:    decimal.NewFromFloat(cfg.Odds.HighThreshold),
		Extreme: decimal.NewFromFloat(cfg.Odds.ExtremeThreshold),
	}, cfg.Odds.VolatilityWindow, decimal.NewFromFloat(cfg.Odds.MinDecimalOdds))
	betIndexActor := actor.NewBetIndexActor(snaps, bus)
	betActor := actor.NewBetActor(events, bus, walletActor, oddsActor, betIndexActor,
		decimal.NewFromFloat(cfg.Cashout.DiscountRate), decimal.NewFromFloat(cfg.Cashout.FloorAmount))
	eventActor := actor.NewSportEventActor(snaps, bus, oddsActor)

	r := api.SetupRouter(api.RouterDeps{
		Wallet:   walletActor,
		Odds:     oddsActor,
		Bets:     betActor,
		BetIndex: betIndexActor,
		Events:   eventActor,
		Hub:      nil,
		Cfg:      cfg,
	})
	return r
}

func signedToken(t *testing.T, secret string, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v — body: %s", err, rr.Body.String())
	}
	return m
}

// ── /health ───────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

// ── JWT auth middleware ──────────────────────────────────────────────────

func TestPlaceBet_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"event_id":"11111111-1111-1111-1111-111111111111","market_id":"22222222-2222-2222-2222-222222222222","selection_id":"home","stake":"10.00","acceptable_odds":"1.50"}`
	rr := do(t, h, http.MethodPost, "/api/bets", payload, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/bets without token = %d, want 401", rr.Code)
	}
}

func TestPlaceBet_InvalidToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"event_id":"11111111-1111-1111-1111-111111111111","market_id":"22222222-2222-2222-2222-222222222222","selection_id":"home","stake":"10.00","acceptable_odds":"1.50"}`
	rr := do(t, h, http.MethodPost, "/api/bets", payload, map[string]string{
		"Authorization": "Bearer not.a.valid.jwt",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/bets with bad JWT = %d, want 401", rr.Code)
	}
}

func TestWalletBalance_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/wallet/11111111-1111-1111-1111-111111111111/balance", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/wallet/.../balance without token = %d, want 401", rr.Code)
	}
}

// ── Validation layer ─────────────────────────────────────────────────────

func TestPlaceBet_MissingFields(t *testing.T) {
	h := buildTestRouter(t)
	userID := uuid.New()
	token := signedToken(t, "test-access-secret-abcdefghijklmnop", userID)
	rr := do(t, h, http.MethodPost, "/api/bets", `{}`, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/bets empty body = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
	if body["code"] == nil {
		t.Errorf("error envelope missing 'code', got: %v", body)
	}
}

// ── Odds/events public endpoints ─────────────────────────────────────────

func TestOddsGetCurrent_IsPublic(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/odds/"+uuid.New().String(), "", nil)
	if rr.Code == http.StatusUnauthorized {
		t.Error("GET /api/odds/:marketId should be public (no 401)")
	}
}

func TestEventLifecycle_EndToEnd(t *testing.T) {
	h := buildTestRouter(t)

	createBody := `{"name":"Finals","sport_type":"football","competition":"Cup","start_time":"2026-08-01T12:00:00Z"}`
	rr := do(t, h, http.MethodPost, "/api/events", createBody, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /api/events = %d, want 201, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	data, _ := body["data"].(map[string]interface{})
	eventID, _ := data["event_id"].(string)
	if eventID == "" {
		t.Fatalf("response missing event_id: %v", body)
	}

	addMarketBody := `{"name":"Match Winner","description":"who wins","outcomes":{"home":"2.00","away":"3.50"}}`
	rr = do(t, h, http.MethodPost, "/api/events/"+eventID+"/markets", addMarketBody, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /api/events/:id/markets = %d, want 201, body=%s", rr.Code, rr.Body.String())
	}
}

// ── Error envelope format ────────────────────────────────────────────────

func TestErrorEnvelope_HasRequiredFields(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/events", `{}`, nil)
	body := decodeBody(t, rr)

	for _, field := range []string{"success", "error", "code"} {
		if _, ok := body[field]; !ok {
			t.Errorf("error envelope missing field %q, got: %v", field, body)
		}
	}
	if body["success"] != false {
		t.Errorf("error envelope.success = %v, want false", body["success"])
	}
}

// ── Admin reporting ──────────────────────────────────────────────────────

func TestFinanceReport_AggregatesDeposits(t *testing.T) {
	h := buildTestRouter(t)
	userID := uuid.New()
	token := signedToken(t, "test-access-secret-abcdefghijklmnop", userID)

	depositBody := `{"amount":"100.00","transaction_id":"tx-report-1"}`
	rr := do(t, h, http.MethodPost, "/api/wallet/"+userID.String()+"/deposit", depositBody, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("POST deposit = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/admin/finance/report", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/admin/finance/report = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	data, _ := body["data"].(map[string]interface{})
	if data["total_deposits"] != "100.00" {
		t.Errorf("report total_deposits = %v, want 100.00", data["total_deposits"])
	}
}

func TestFinanceReport_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/admin/finance/report", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/admin/finance/report without token = %d, want 401", rr.Code)
	}
}

// ── CORS headers ─────────────────────────────────────────────────────────

func TestCORSOptionsRequest(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent && rr.Code != http.StatusOK {
		t.Errorf("OPTIONS /api/events = %d, want 204 or 200", rr.Code)
	}
	allow := rr.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(allow, "POST") {
		t.Errorf("Access-Control-Allow-Methods missing POST, got %q", allow)
	}
}

func TestCORSAllowOrigin_Dev(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	origin := rr.Header().Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("Dev CORS origin = %q, want *", origin)
	}
}
