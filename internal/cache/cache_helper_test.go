package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCacheHelper(client, "test:"), mr
}

func TestCacheHelper_SetAndGet(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	original := payload{Name: "algebra", Count: 3}
	if err := helper.Set(ctx, "quiz:1", original, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got payload
	if err := helper.Get(ctx, "quiz:1", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != original {
		t.Errorf("Expected %+v, got %+v", original, got)
	}
}

func TestCacheHelper_GetMissing(t *testing.T) {
	helper, _ := newTestCache(t)

	var dest string
	err := helper.Get(context.Background(), "missing", &dest)
	if err != ErrCacheNotFound {
		t.Errorf("Expected ErrCacheNotFound, got %v", err)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	helper := NewCacheHelper(nil, "")
	ctx := context.Background()

	// Writes degrade gracefully
	if err := helper.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Errorf("Set with nil client should not fail, got %v", err)
	}
	if err := helper.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete with nil client should not fail, got %v", err)
	}

	var dest string
	if err := helper.Get(ctx, "key", &dest); err != ErrCacheNotAvailable {
		t.Errorf("Expected ErrCacheNotAvailable, got %v", err)
	}
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	if err := helper.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := helper.Set(ctx, "b", "2", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := helper.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := helper.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Key should have been deleted")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"quiz:id:1", "quiz:id:2", "other:1"} {
		if err := helper.Set(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "quiz:id:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	for _, key := range []string{"quiz:id:1", "quiz:id:2"} {
		exists, _ := helper.Exists(ctx, key)
		if exists {
			t.Errorf("Key %s should have been invalidated", key)
		}
	}

	exists, _ := helper.Exists(ctx, "other:1")
	if !exists {
		t.Error("Non-matching key should survive invalidation")
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"value": 42}, nil
	}

	var first map[string]int
	if err := helper.CacheOrExecute(ctx, "computed", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed: %v", err)
	}
	if first["value"] != 42 {
		t.Errorf("Expected 42, got %d", first["value"])
	}
	if calls != 1 {
		t.Errorf("Expected 1 fetch call, got %d", calls)
	}

	// Async cache write may still be in flight
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := helper.Exists(ctx, "computed"); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var second map[string]int
	if err := helper.CacheOrExecute(ctx, "computed", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed: %v", err)
	}
	if second["value"] != 42 {
		t.Errorf("Expected 42, got %d", second["value"])
	}
	if calls != 1 {
		t.Errorf("Expected cached result without a second fetch, got %d calls", calls)
	}
}

func TestCacheManager_InvalidateAttempt(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cm := NewCacheManager(client)
	ctx := context.Background()

	if err := cm.Fast.Set(ctx, "attempt:7", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cm.Fast.Set(ctx, "attempt:7:answers", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := cm.InvalidateAttempt(ctx, 7, 3, "student-1"); err != nil {
		t.Fatalf("InvalidateAttempt failed: %v", err)
	}

	for _, key := range []string{"attempt:7", "attempt:7:answers"} {
		exists, _ := cm.Fast.Exists(ctx, key)
		if exists {
			t.Errorf("Key %s should have been invalidated", key)
		}
	}
}
