package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestBucketRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	if !l.allow("a") || !l.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.allow("b") {
		t.Fatal("keys must not share a bucket")
	}
	now = now.Add(time.Second)
	if !l.allow("a") {
		t.Fatal("bucket should refill one token per second at 60/min")
	}
}

func TestKeyedMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(1, 1)
	r := gin.New()
	r.GET("/", l.Keyed(func(c *gin.Context) string { return c.GetHeader("X-User") }), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if got := do("u1"); got != http.StatusNoContent {
		t.Fatalf("first = %d", got)
	}
	if got := do("u1"); got != http.StatusTooManyRequests {
		t.Fatalf("second = %d", got)
	}
	if got := do("u2"); got != http.StatusNoContent {
		t.Fatalf("other key = %d", got)
	}
}

func TestZeroRateDisablesLimiter(t *testing.T) {
	l := NewSimpleTokenBucket(0, 0)
	for i := 0; i < 100; i++ {
		if !l.allow("k") {
			t.Fatal("zero rate should not limit")
		}
	}
}
