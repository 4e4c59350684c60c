package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_mirror/internal/fscache"
)

func newCacheRouter(cache *fscache.Cache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cc := NewCacheController(cache)
	r.DELETE("/api/cache/:component", cc.ClearCache)
	return r
}

func populatedCache(t *testing.T) *fscache.Cache {
	t.Helper()

	cache, err := fscache.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	weather, err := fscache.Wrap(cache, "fetch_weather", time.Hour, func(_ context.Context, city string) (string, error) {
		return "forecast for " + city, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	news, err := fscache.Wrap(cache, "fetch_news", time.Hour, func(_ context.Context, _ struct{}) ([]string, error) {
		return []string{"headline"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := weather(context.Background(), "rome"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := news(context.Background(), struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cache
}

func TestCacheController_ClearCache(t *testing.T) {
	cache := populatedCache(t)
	router := newCacheRouter(cache)

	req := httptest.NewRequest(http.MethodDelete, "/api/cache/WEATHER", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	// Matching is case-insensitive, so WEATHER removes fetch_weather entries
	if body["removed"] != 1 {
		t.Errorf("expected 1 removed entry, got %d", body["removed"])
	}
}

func TestCacheController_ClearCache_NoMatches(t *testing.T) {
	cache := populatedCache(t)
	router := newCacheRouter(cache)

	req := httptest.NewRequest(http.MethodDelete, "/api/cache/calendar", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["removed"] != 0 {
		t.Errorf("expected 0 removed entries, got %d", body["removed"])
	}
}
