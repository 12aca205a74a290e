package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/config"
	"github.com/iliyamo/campus-hall-booking/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, utils.Claims{UserID: 9, Email: "u@campus.edu", Role: role}, 5)
	require.NoError(t, err)
	return at.Token
}

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"id": UserID(c), "email": Email(c), "role": Role(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "USER"))
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":9,"email":"u@campus.edu","role":"USER"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: token(t, "ADMIN")})
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ADMIN"`)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole("ADMIN"))
	e.GET("/open", whoami, RequireRole("ADMIN"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "USER"))
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "ADMIN"))
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(e, httptest.NewRequest(http.MethodGet, "/open", nil)).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/halls", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/halls")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:GET /v1/halls", buildRateKey(cfg, c))

	c.Set(KeyUserID, uint64(12))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:12", buildRateKey(cfg, c))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami, NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestRedisCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()

	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`["A","B"]`))
	require.NoError(t, err)

	e := echo.New()
	called := false
	e.GET("/v1/blocks", func(c echo.Context) error {
		called = true
		return c.JSON(http.StatusOK, []string{"X"})
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/v1/blocks", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/blocks")
	mock.ExpectGet(cacheKeyFrom(cfg, c)).SetVal(string(payload))

	rec := serve(e, req)
	assert.False(t, called)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `["A","B"]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheMissPassesThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	e := echo.New()
	e.GET("/v1/blocks", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []string{"A"})
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/v1/blocks", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/blocks")
	mock.ExpectGet(cacheKeyFrom(cfg, c)).RedisNil()

	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `["A"]`, rec.Body.String())
}

func TestCaptureWriterTracksOverflow(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abcd"))
	assert.False(t, cw.overflowed())
	_, _ = cw.Write([]byte("e"))
	assert.True(t, cw.overflowed())
	assert.Equal(t, "abcd", cw.buf.String())

	unlimited := &captureWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, _ = unlimited.Write([]byte("abcdef"))
	assert.False(t, unlimited.overflowed())
	assert.Equal(t, "abcdef", unlimited.buf.String())
}

func TestRedisCacheSkipsOversizedBody(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheConfig()
	cfg.MaxBodyBytes = 64

	poster := "data:image/png;base64," + strings.Repeat("A", 256)
	e := echo.New()
	e.GET("/v1/bookings", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []echo.Map{{"bookingID": 1, "posterImage": poster}})
	}, NewRedisCache(cfg, rdb))

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	mock.ExpectGet(cacheKeyFrom(cfg, c)).RedisNil()

	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), poster)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectScan(0, "cache:*", 100).SetVal([]string{"cache:a", "cache:b"}, 7)
	mock.ExpectDel("cache:a", "cache:b").SetVal(2)
	mock.ExpectScan(7, "cache:*", 100).SetVal(nil, 0)

	require.NoError(t, PurgeCache(context.Background(), rdb, "cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayloadRoundTrip(t *testing.T) {
	b, err := encodePayload(201, http.Header{"X-A": {"1"}}, []byte("body"))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(b)
	require.True(t, ok)
	assert.Equal(t, 201, status)
	assert.Equal(t, "1", hdr.Get("X-A"))
	assert.Equal(t, "body", string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestRequestLoggerRendersErrors(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zap.NewNop()))
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
