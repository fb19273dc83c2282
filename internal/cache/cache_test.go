package cache

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedResponse struct {
	Status int
	Data   []byte
}

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisStore(rdb), mr
}

func TestRedisStoreSetGet(t *testing.T) {
	s, _ := newTestStore(t)

	in := cachedResponse{Status: 200, Data: []byte(`{"id":1}`)}
	require.NoError(t, s.Set("k", in, time.Minute))

	var out cachedResponse
	require.NoError(t, s.Get("k", &out))
	assert.Equal(t, in, out)
}

func TestRedisStoreMissAndDelete(t *testing.T) {
	s, _ := newTestStore(t)

	var out cachedResponse
	assert.ErrorIs(t, s.Get("missing", &out), persist.ErrCacheMiss)

	require.NoError(t, s.Set("k", cachedResponse{Status: 200}, time.Minute))
	require.NoError(t, s.Delete("k"))
	assert.ErrorIs(t, s.Get("k", &out), persist.ErrCacheMiss)
}

func TestRedisStoreExpiry(t *testing.T) {
	s, mr := newTestStore(t)

	require.NoError(t, s.Set("k", cachedResponse{Status: 200}, time.Second))
	mr.FastForward(2 * time.Second)

	var out cachedResponse
	assert.ErrorIs(t, s.Get("k", &out), persist.ErrCacheMiss)
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	_, ok := NewStore(nil).(*persist.MemoryStore)
	assert.True(t, ok)
}

func TestFeedBump(t *testing.T) {
	s, _ := newTestStore(t)
	f := NewFeed(s, "recipes", time.Minute)

	before := f.Key("/api/recipes/public")
	assert.Equal(t, before, f.Key("/api/recipes/public"))

	require.NoError(t, f.Bump())
	assert.NotEqual(t, before, f.Key("/api/recipes/public"))
}

func TestFeedCacheAndInvalidate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	f := NewFeed(persist.NewMemoryStore(time.Minute), "recipes", time.Minute)

	hits := 0
	r := gin.New()
	r.GET("/list", f.Cache(), func(c *gin.Context) {
		hits++
		c.String(http.StatusOK, strconv.Itoa(hits))
	})
	r.POST("/ok", f.Invalidate(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/fail", f.Invalidate(), func(c *gin.Context) { c.Status(http.StatusForbidden) })

	serve := func(method, path string) string {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Body.String()
	}

	assert.Equal(t, "1", serve(http.MethodGet, "/list"))
	assert.Equal(t, "1", serve(http.MethodGet, "/list"))

	serve(http.MethodPost, "/fail")
	assert.Equal(t, "1", serve(http.MethodGet, "/list"))

	serve(http.MethodPost, "/ok")
	assert.Equal(t, "2", serve(http.MethodGet, "/list"))
	assert.Equal(t, "2", serve(http.MethodGet, "/list"))
}

func TestFeedWithoutTTLDoesNotCache(t *testing.T) {
	gin.SetMode(gin.TestMode)

	f := NewFeed(persist.NewMemoryStore(time.Minute), "blogs", 0)

	hits := 0
	r := gin.New()
	r.GET("/list", f.Cache(), func(c *gin.Context) {
		hits++
		c.Status(http.StatusOK)
	})

	for range 3 {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/list", nil))
	}
	assert.Equal(t, 3, hits)
}
