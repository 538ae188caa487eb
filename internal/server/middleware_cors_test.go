package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontendOrigin = "http://localhost:5173"

func (ts *testServer) withOrigin(method, path, origin string, headers map[string]string) *response {
	ts.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", origin)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return ts.send(req, "")
}

func TestCORS_AllowedOrigins(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.withOrigin(http.MethodGet, "/api/posts/", frontendOrigin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = ts.withOrigin(http.MethodGet, "/api/posts/", "http://elsewhere.test", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightForAuthenticatedRoute(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.withOrigin(http.MethodOptions, "/api/posts/feed", frontendOrigin, map[string]string{
		"Access-Control-Request-Method":  http.MethodGet,
		"Access-Control-Request-Headers": "authorization",
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestGlobalLimiter_RejectionsKeepCORSHeaders(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 100; i++ {
		resp := ts.withOrigin(http.MethodGet, "/health/live", frontendOrigin, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i)
	}

	resp := ts.withOrigin(http.MethodGet, "/health/live", frontendOrigin, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Too many requests, please try again later.", decode[errorBody](t, resp).Error)

	// Preflights are never counted, so browsers can still read the 429.
	resp = ts.withOrigin(http.MethodOptions, "/api/posts/", frontendOrigin, map[string]string{
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
