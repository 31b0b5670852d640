// README: Router wiring tests: public endpoints, auth and role gates.
package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"rideline/internal/config"
	httptransport "rideline/internal/http"
	"rideline/internal/infra"
	"rideline/internal/logging"
	"rideline/internal/modules/offer"
	"rideline/internal/modules/presence"
	"rideline/internal/modules/quote"
)

type stubVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

type noRouteProvider struct{}

func (noRouteProvider) Directions(context.Context, string, string) (quote.Route, error) {
	return quote.Route{Status: "ZERO_RESULTS"}, nil
}

func (noRouteProvider) Geocode(context.Context, string) (string, error) { return "", nil }

func newRouter(verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	rides := offer.NewMemoryStore()
	rides.Put(&offer.Offer{ID: "r1", Status: offer.StatusRequested, DriverID: "d1"})
	return httptransport.NewRouter(httptransport.ServerDeps{
		Log:         logging.Discard(),
		Verifier:    verifier,
		Offer:       offer.NewService(rides),
		Quote:       quote.NewEngine(noRouteProvider{}),
		Presence:    presence.NewTracker(presence.NewMemoryStore()),
		QuoteConfig: config.QuoteConfig{LiveInterval: time.Minute, MinInterval: time.Second},
	})
}

func serve(r *gin.Engine, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	r := newRouter(&stubVerifier{err: errors.New("no token")})
	if w := serve(r, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "rideline_") {
		t.Fatalf("metrics: expected rideline metrics, got %d", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	r := newRouter(&stubVerifier{err: errors.New("bad token")})
	w := serve(r, http.MethodPost, "/api/quote", `{}`, "Bearer nope")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected request id header")
	}
}

func TestDispatcherRoutesNeedRole(t *testing.T) {
	driver := newRouter(&stubVerifier{token: &infra.FirebaseToken{UID: "u1", Claims: map[string]interface{}{"role": "driver"}}})
	w := serve(driver, http.MethodPost, "/api/rides/cancel", `{"rideId":"r1"}`, "Bearer tok")
	if w.Code != http.StatusForbidden {
		t.Fatalf("driver cancel: expected 403, got %d", w.Code)
	}

	dispatcher := newRouter(&stubVerifier{token: &infra.FirebaseToken{UID: "u2", Claims: map[string]interface{}{"role": "dispatcher"}}})
	w = serve(dispatcher, http.MethodPost, "/api/rides/cancel", `{"rideId":"r1","reason":"no_drivers"}`, "Bearer tok")
	if w.Code != http.StatusOK {
		t.Fatalf("dispatcher cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQuoteFailureThroughRouter(t *testing.T) {
	r := newRouter(&stubVerifier{token: &infra.FirebaseToken{UID: "rider"}})
	w := serve(r, http.MethodPost, "/api/quote", `{"origin":{"lat":1,"lng":1},"destination":{"lat":2,"lng":2}}`, "Bearer tok")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"reason":"ZERO_RESULTS"`) {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestPaymentRoutesAbsentWithoutService(t *testing.T) {
	r := newRouter(&stubVerifier{token: &infra.FirebaseToken{UID: "rider"}})
	w := serve(r, http.MethodPost, "/api/payments/intents", `{}`, "Bearer tok")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
