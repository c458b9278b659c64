package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarm-relay/internal/testutil"
)

func TestConfig_Validate(t *testing.T) {
	cfg := Config{RequestsPerSecond: 5}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.BurstSize)
	assert.Equal(t, 10000, cfg.MaxKeys)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)

	low := Config{RequestsPerSecond: 0.5}
	require.NoError(t, low.Validate())
	assert.Equal(t, 1, low.BurstSize)

	assert.Error(t, (&Config{RequestsPerSecond: -1}).Validate())
	assert.Error(t, (&Config{BurstSize: -1}).Validate())
}

func TestLimiter_Disabled(t *testing.T) {
	rl, err := New(DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("decoder"))
	}
	assert.Zero(t, rl.ActiveKeys())
}

func TestLimiter_PerKey(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, err := New(Config{RequestsPerSecond: 1, BurstSize: 2})
	require.NoError(t, err)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestLimiter_CleanupIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, err := New(Config{RequestsPerSecond: 1, IdleTimeout: time.Minute})
	require.NoError(t, err)
	rl.now = func() time.Time { return now }
	rl.lastCleanup = now

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.ActiveKeys())

	now = now.Add(2 * time.Minute)
	rl.Allow("c")
	assert.Equal(t, 1, rl.ActiveKeys())
}

func TestHTTPMiddleware(t *testing.T) {
	rl, err := New(Config{RequestsPerSecond: 1, BurstSize: 1})
	require.NoError(t, err)
	logger := testutil.NewRecordingLogger()

	handler := HTTPMiddleware(rl, IPKey, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/alarms", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusAccepted, call("10.0.0.1:5000").Code)

	rr := call("10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	assert.Len(t, logger.Entries(), 1)

	assert.Equal(t, http.StatusAccepted, call("10.0.0.2:5000").Code)
}

func TestIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	assert.Equal(t, "192.0.2.7", IPKey(req))

	req.Header.Set("X-Real-IP", "198.51.100.1")
	assert.Equal(t, "198.51.100.1", IPKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", IPKey(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", IPKey(req))
}
