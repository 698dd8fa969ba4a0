package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nominatim(t *testing.T, body string, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchFirstCandidate(t *testing.T) {
	var gotLang, gotQ string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("accept-language")
		gotQ = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[{"lat":"47.9","lon":"106.9","display_name":"Ulaanbaatar"},{"lat":"1","lon":"2","display_name":"other"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithMinInterval(0))
	r, err := c.Search(context.Background(), "Ulaanbaatar", "mn")
	require.NoError(t, err)
	assert.Equal(t, 47.9, r.Lat)
	assert.Equal(t, 106.9, r.Lon)
	assert.Equal(t, "Ulaanbaatar", r.DisplayName)
	assert.Equal(t, "mn", gotLang)
	assert.Equal(t, "Ulaanbaatar", gotQ)
}

func TestSearchDisplayNameFallsBackToQuery(t *testing.T) {
	srv := nominatim(t, `[{"lat":"35.7","lon":"139.7"}]`, http.StatusOK, nil)
	r, err := New(srv.URL, WithMinInterval(0)).Search(context.Background(), "上野公園", "ja")
	require.NoError(t, err)
	assert.Equal(t, "上野公園", r.DisplayName)
}

func TestSearchNotFound(t *testing.T) {
	srv := nominatim(t, `[]`, http.StatusOK, nil)
	_, err := New(srv.URL, WithMinInterval(0)).Search(context.Background(), "nowhere", "mn")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchFailures(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"server error", `oops`, http.StatusInternalServerError},
		{"bad json", `{"lat":`, http.StatusOK},
		{"object instead of array", `{"error":"x"}`, http.StatusOK},
		{"bad coordinates", `[{"lat":"north","lon":"1"}]`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := nominatim(t, tc.body, tc.status, nil)
			_, err := New(srv.URL, WithMinInterval(0)).Search(context.Background(), "x", "mn")
			assert.ErrorIs(t, err, ErrSearchFailed)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}

	c := New("http://127.0.0.1:1", WithMinInterval(0), WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := c.Search(context.Background(), "x", "mn")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearchThrottlesRemoteCalls(t *testing.T) {
	var hits int32
	srv := nominatim(t, `[{"lat":"1","lon":"2","display_name":"a"}]`, http.StatusOK, &hits)
	c := New(srv.URL, WithMinInterval(150*time.Millisecond), WithLRU(1, time.Nanosecond))

	start := time.Now()
	for _, q := range []string{"a", "b", "c"} {
		_, err := c.Search(context.Background(), q, "mn")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestSearchThrottleHonoursContext(t *testing.T) {
	srv := nominatim(t, `[{"lat":"1","lon":"2","display_name":"a"}]`, http.StatusOK, nil)
	c := New(srv.URL, WithMinInterval(time.Hour))
	_, err := c.Search(context.Background(), "a", "mn")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "b", "mn")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearchCachesResults(t *testing.T) {
	var hits int32
	srv := nominatim(t, `[{"lat":"1","lon":"2","display_name":"a"}]`, http.StatusOK, &hits)
	c := New(srv.URL, WithMinInterval(time.Hour))
	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), "Terelj", "mn")
		require.NoError(t, err)
	}
	_, err := c.Search(context.Background(), "terelj ", "mn")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestSearchRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	var hits int32
	srv := nominatim(t, `[{"lat":"1","lon":"2","display_name":"a"}]`, http.StatusOK, &hits)
	first := New(srv.URL, WithMinInterval(0), WithRedis(rc, time.Minute))
	_, err := first.Search(context.Background(), "Khuvsgul", "ja")
	require.NoError(t, err)
	assert.True(t, mr.Exists("geocode:ja:khuvsgul"))

	second := New(srv.URL, WithMinInterval(0), WithRedis(rc, time.Minute))
	r, err := second.Search(context.Background(), "Khuvsgul", "ja")
	require.NoError(t, err)
	assert.Equal(t, "a", r.DisplayName)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := New("http://unused").Search(context.Background(), "   ", "mn")
	assert.ErrorIs(t, err, ErrNotFound)
}
