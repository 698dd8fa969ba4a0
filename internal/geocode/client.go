// 包 geocode：地名文本到坐标的远程查询（Nominatim 兼容接口）
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tripmark/internal/logger"
	"tripmark/internal/metrics"
)

var (
	// ErrNotFound：远端返回空结果集
	ErrNotFound = errors.New("geocode: not found")
	// ErrSearchFailed：传输、状态码或解析失败
	ErrSearchFailed = errors.New("geocode: search failed")
)

const (
	DefaultBaseURL     = "https://nominatim.openstreetmap.org"
	DefaultMinInterval = 600 * time.Millisecond
)

// Result：首个候选的坐标与显示名
type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// candidate：远端响应中的单个候选；坐标以文本返回
type candidate struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client：地理编码客户端
// 约束：远程调用之间至少间隔 minInterval（等待期间遵守 ctx）；命中缓存不占用间隔
type Client struct {
	base        string
	userAgent   string
	client      *http.Client
	minInterval time.Duration

	mu   sync.Mutex
	last time.Time

	lru      *LRU
	rc       *redis.Client
	cacheTTL time.Duration
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option   { return func(c *Client) { c.client = h } }
func WithMinInterval(d time.Duration) Option { return func(c *Client) { c.minInterval = d } }
func WithUserAgent(ua string) Option         { return func(c *Client) { c.userAgent = ua } }
func WithRedis(rc *redis.Client, ttl time.Duration) Option {
	return func(c *Client) { c.rc, c.cacheTTL = rc, ttl }
}
func WithLRU(capacity int, ttl time.Duration) Option {
	return func(c *Client) { c.lru = NewLRU(capacity, ttl) }
}

func New(base string, opts ...Option) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{
		base:        strings.TrimRight(base, "/"),
		userAgent:   "tripmark/1.0",
		client:      &http.Client{Timeout: 8 * time.Second},
		minInterval: DefaultMinInterval,
		lru:         NewLRU(256, time.Hour),
		cacheTTL:    24 * time.Hour,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewFromEnv：GEOCODE_BASE_URL / GEOCODE_USER_AGENT / GEOCODE_MIN_INTERVAL_MS / GEOCODE_CACHE_TTL（秒）
// rc 可为 nil，此时仅使用进程内缓存
func NewFromEnv(rc *redis.Client) *Client {
	var opts []Option
	if ua := os.Getenv("GEOCODE_USER_AGENT"); ua != "" {
		opts = append(opts, WithUserAgent(ua))
	}
	if v := os.Getenv("GEOCODE_MIN_INTERVAL_MS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n >= 0 {
			opts = append(opts, WithMinInterval(time.Duration(n)*time.Millisecond))
		}
	}
	ttl := 24 * time.Hour
	if v := os.Getenv("GEOCODE_CACHE_TTL"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	if rc != nil {
		opts = append(opts, WithRedis(rc, ttl))
	}
	return New(os.Getenv("GEOCODE_BASE_URL"), opts...)
}

func cacheKey(query, lang string) string {
	return "geocode:" + lang + ":" + strings.ToLower(query)
}

// Search：按语言偏好查询地名，返回首个候选
// 返回：空结果集为 ErrNotFound；传输/状态码/解析错误包装为 ErrSearchFailed
func (c *Client) Search(ctx context.Context, query, lang string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNotFound
	}
	key := cacheKey(query, lang)
	if r, ok := c.cached(ctx, key); ok {
		metrics.GeocodeCacheHitsTotal.Inc()
		return r, nil
	}
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	r, err := c.fetch(ctx, query, lang)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, r)
	return r, nil
}

func (c *Client) fetch(ctx context.Context, query, lang string) (*Result, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", "1")
	if lang != "" {
		q.Set("accept-language", lang)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	logger.L().Debug("geocode_req", "q", query, "lang", lang)
	resp, err := c.client.Do(req)
	if err != nil {
		logger.L().Error("geocode_http_error", "err", err)
		metrics.GeocodeFailTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.L().Error("geocode_status_error", "status", resp.StatusCode)
		metrics.GeocodeFailTotal.Inc()
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
	}
	var cands []candidate
	if err := json.NewDecoder(resp.Body).Decode(&cands); err != nil {
		logger.L().Error("geocode_decode_error", "err", err)
		metrics.GeocodeFailTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	dur := time.Since(t0).Milliseconds()
	metrics.GeocodeDurationMs.Observe(float64(dur))
	logger.L().Debug("geocode_resp", "q", query, "candidates", len(cands), "duration_ms", dur)
	if len(cands) == 0 {
		metrics.GeocodeNotFoundTotal.Inc()
		return nil, ErrNotFound
	}
	first := cands[0]
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(first.Lat), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(first.Lon), 64)
	if err1 != nil || err2 != nil {
		metrics.GeocodeFailTotal.Inc()
		return nil, fmt.Errorf("%w: bad coordinates %q,%q", ErrSearchFailed, first.Lat, first.Lon)
	}
	name := first.DisplayName
	if name == "" {
		name = query
	}
	return &Result{Lat: lat, Lon: lon, DisplayName: name}, nil
}

// wait：距上次远程调用不足 minInterval 时等待剩余时间；持锁等待使并发调用依次排队
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.minInterval > 0 && !c.last.IsZero() {
		if d := time.Until(c.last.Add(c.minInterval)); d > 0 {
			metrics.GeocodeThrottleWaitMs.Observe(float64(d.Milliseconds()))
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	c.last = time.Now()
	return nil
}

func (c *Client) cached(ctx context.Context, key string) (*Result, bool) {
	if c.lru != nil {
		if r, ok := c.lru.Get(key); ok {
			return &r, true
		}
	}
	if c.rc == nil {
		return nil, false
	}
	s, _ := c.rc.Get(ctx, key).Result()
	if s == "" {
		return nil, false
	}
	var r Result
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, false
	}
	if c.lru != nil {
		c.lru.Set(key, r)
	}
	return &r, true
}

func (c *Client) store(ctx context.Context, key string, r *Result) {
	if c.lru != nil {
		c.lru.Set(key, *r)
	}
	if c.rc != nil {
		b, _ := json.Marshal(r)
		if err := c.rc.Set(ctx, key, string(b), c.cacheTTL).Err(); err != nil {
			logger.L().Debug("geocode_cache_set_error", "err", err)
		}
	}
}
