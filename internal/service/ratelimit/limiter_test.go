package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAllowRefills(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	l := New(2, 1, WithClock(clk.Now))

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	clk.Advance(500 * time.Millisecond)
	assert.False(t, l.Allow("a"))
	clk.Advance(500 * time.Millisecond)
	assert.True(t, l.Allow("a"))

	clk.Advance(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	l := New(1, 1, WithClock(clk.Now), WithIdleTTL(time.Minute))

	l.Allow("a")
	clk.Advance(30 * time.Second)
	l.Allow("b")
	clk.Advance(45 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.True(t, l.Allow("a"))
}

func TestMiddlewareAnswers429(t *testing.T) {
	e := echo.New()
	l := New(1, 0.001)
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, l.Middleware())

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	rec := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(echo.HeaderRetryAfter))
	assert.Contains(t, rec.Body.String(), "ERR_TOO_MANY_REQUESTS")
	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)
}
