package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

const secret = "test-secret"

func okHandler(c echo.Context) error {
	uid, _ := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "role": Role(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", okHandler, JWTAuth(secret), RequireRole("user", "admin"))

	tok, err := utils.NewAccessToken(secret, 42, "user", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":42,"role":"user"}`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	other, err := utils.NewAccessToken("another-secret", 42, "user", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", okHandler, JWTAuth(secret), RequireRole("admin"))

	tok, err := utils.NewAccessToken(secret, 7, "organizer", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := serve(e, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}

func TestUserIDConversions(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, ok := UserID(c)
	assert.False(t, ok)
	assert.Equal(t, "anon", userKey(c))

	for _, v := range []interface{}{uint64(5), 5, int64(5), float64(5), "5"} {
		c.Set(ContextUserID, v)
		id, ok := UserID(c)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, uint64(5), id)
	}
	c.Set(ContextUserID, "x")
	_, ok = UserID(c)
	assert.False(t, ok)
}

func rateCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

var pinnedNow = time.UnixMilli(1_700_000_000_000)

// expectBucket expects one token bucket evaluation for the test client
// with the clock pinned to pinnedNow.
func expectBucket(t *testing.T, mock redismock.ClientMock) *redismock.ExpectedCmd {
	t.Helper()
	prev := rateNow
	rateNow = func() time.Time { return pinnedNow }
	t.Cleanup(func() { rateNow = prev })

	cfg := rateCfg()
	return mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{"rl:ip:192.0.2.1"},
		pinnedNow.UnixMilli(), cfg.Capacity, cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second))
}

func TestTokenBucketAllowsAndLimits(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(true)

	e := echo.New()
	e.GET("/events", okHandler, NewTokenBucket(rateCfg(), rdb))

	expectBucket(t, mock).SetVal([]interface{}{int64(1), int64(1), int64(0)})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	expectBucket(t, mock).SetVal([]interface{}{int64(0), int64(0), int64(1500)})
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/events", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","retry_after":2}`, rec.Body.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := echo.New()
	e.GET("/events", okHandler, NewTokenBucket(rateCfg(), rdb))

	expectBucket(t, mock).SetErr(errors.New("connection refused"))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := rateCfg()
	cfg.Enabled = false
	e := echo.New()
	e.GET("/events", okHandler, NewTokenBucket(cfg, nil))
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/events", nil)).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	c.Set(ContextUserID, uint64(3))

	cases := map[string]string{
		"ip":         "rl:ip:203.0.113.9",
		"user":       "rl:user:3",
		"route":      "rl:route:POST /v1/bookings",
		"user_route": "rl:user:3:route:POST /v1/bookings",
		"":           "rl:ip:203.0.113.9:user:3:route:POST /v1/bookings",
	}
	for strategy, want := range cases {
		cfg := rateCfg()
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, buildRateKey(cfg, c), strategy)
	}
}

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 16,
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestRedisCacheMissThenHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()
	e := echo.New()
	calls := 0
	e.GET("/v1/events", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"status": "success"})
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/v1/events?page=2", nil)
	key := CacheKey(cfg, e.NewContext(req, httptest.NewRecorder()))

	mock.ExpectGet(key).RedisNil()
	mock.Regexp().ExpectSet(key, `.*`, time.Minute).SetVal("OK")
	rec := serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": []string{"application/json"}}, []byte(`{"status":"success"}`))
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/v1/events?page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	assert.Equal(t, 1, calls)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSkipsAuthenticatedAndErrors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()
	e := echo.New()
	e.GET("/v1/events/:id", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/v1/events/9", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer x")
	assert.Equal(t, http.StatusNotFound, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/events/9", nil)
	mock.ExpectGet(CacheKey(cfg, e.NewContext(req, httptest.NewRecorder()))).RedisNil()
	assert.Equal(t, http.StatusNotFound, serve(e, req).Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("request_id").(string))
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	assert.Equal(t, "abc", serve(e, req).Header().Get(echo.HeaderXRequestID))
}

func TestRequestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID(), RequestLogger(zerolog.New(&buf)))
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})
	e.GET("/missing", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	})

	assert.Equal(t, http.StatusInternalServerError, serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil)).Code)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"status":500`)

	buf.Reset()
	serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"route":"/missing"`)
}
