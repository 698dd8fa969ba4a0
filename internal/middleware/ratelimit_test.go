package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	now := time.Unix(1000, 0)
	tb := NewTokenBucket(2)
	tb.now = func() time.Time { return now }
	h := Limit(tb, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scene", nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, codes())
	assert.Equal(t, http.StatusOK, codes())
	assert.Equal(t, http.StatusTooManyRequests, codes())

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, codes())
}

func TestWrapDisabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Wrap(inner)
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
