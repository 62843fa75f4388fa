package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	common "github.com/coffeechess/coordinator/pkg/domain"
)

// TestCORSMiddleware_DefaultOrigins validates that an empty GatewayConfig
// still allows the chess client's local dev origins without any env
// configuration.
func TestCORSMiddleware_DefaultOrigins(t *testing.T) {
	m := NewCORSMiddleware(common.GatewayConfig{})

	assert.True(t, m.isOriginAllowed("http://localhost:5173"))
	assert.True(t, m.isOriginAllowed("http://localhost:3000"))
	assert.False(t, m.isOriginAllowed("https://evil.com"))
}

// TestCORSMiddleware_MultipleOrigins validates that every origin in
// GatewayConfig.AllowedOrigins (as parsed from
// GATEWAY_CORS_ALLOWED_ORIGINS by ioc.EnvironmentConfig) is allowed.
func TestCORSMiddleware_MultipleOrigins(t *testing.T) {
	m := NewCORSMiddleware(common.GatewayConfig{
		AllowedOrigins: []string{"https://coffeechess.gg", "https://staging.coffeechess.gg"},
	})

	assert.True(t, m.isOriginAllowed("https://coffeechess.gg"))
	assert.True(t, m.isOriginAllowed("https://staging.coffeechess.gg"))
	assert.True(t, m.isOriginAllowed("http://localhost:3000"), "dev origins remain allowed alongside configured ones")
	assert.False(t, m.isOriginAllowed("https://malicious.com"))
}

// TestCORSMiddleware_DefaultOriginFromConfig validates that
// GatewayConfig.DefaultOrigin both allowlists itself and becomes the
// fallback echoed back for unrecognized requests.
func TestCORSMiddleware_DefaultOriginFromConfig(t *testing.T) {
	m := NewCORSMiddleware(common.GatewayConfig{DefaultOrigin: "https://production.coffeechess.gg"})

	assert.True(t, m.isOriginAllowed("https://production.coffeechess.gg"))
	assert.Equal(t, "https://production.coffeechess.gg", m.defaultOrigin)
}

func TestCORSMiddleware_Handler_SetsCorrectHeaders(t *testing.T) {
	m := NewCORSMiddleware(common.GatewayConfig{})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "GET")
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

// TestCORSMiddleware_Handler_PreflightRequest validates OPTIONS handling
// Business context: Browser preflight requests must receive proper CORS headers
// and return 200 OK without invoking the downstream handler.
func TestCORSMiddleware_Handler_PreflightRequest(t *testing.T) {
	m := NewCORSMiddleware(common.GatewayConfig{})

	handlerCalled := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, handlerCalled, "Handler should not be called for OPTIONS")
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

// TestCORSMiddleware_Handler_UnknownOrigin validates unknown origin behavior
// Business context: Requests from unknown origins still get CORS headers
// but use the default origin to maintain security.
func TestCORSMiddleware_Handler_UnknownOrigin(t *testing.T) {
	m := NewCORSMiddleware(common.GatewayConfig{})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/rooms", nil)
	req.Header.Set("Origin", "https://unknown.com")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	// Unknown origin should fall back to the configured default.
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

// TestCORSMiddleware_Handler_MatchingOrigin validates dynamic origin matching
// Business context: When the request Origin header matches an allowed origin,
// that specific origin is returned (not the default), enabling proper
// cross-origin requests from multiple allowed domains.
func TestCORSMiddleware_Handler_MatchingOrigin(t *testing.T) {
	m := NewCORSMiddleware(common.GatewayConfig{
		AllowedOrigins: []string{"https://coffeechess.gg", "https://api.coffeechess.gg"},
	})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/rooms", nil)
	req.Header.Set("Origin", "https://api.coffeechess.gg")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	// Should return the matching origin
	assert.Equal(t, "https://api.coffeechess.gg", rr.Header().Get("Access-Control-Allow-Origin"))
}
