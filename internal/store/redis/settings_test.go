package redis

import (
	"context"
	"os"
	"testing"

	"github.com/MrSnakeDoc/encore/internal/site"
	"github.com/redis/go-redis/v9"
)

// newTestClient connects to ENCORE_TEST_REDIS_ADDR, using DB 15 which the
// test flushes.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("ENCORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ENCORE_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("FlushDB() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	repo := NewSettingsRepository(client)

	doc, err := repo.Load(ctx)
	if err != nil || len(doc) != 0 {
		t.Fatalf("Load() on empty db = %v, %v; want empty document", doc, err)
	}

	first := site.Document{"hero": map[string]any{"title": "Friday"}}
	second := site.Document{"hero": map[string]any{"title": "Saturday"}}

	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cur, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := site.Get(cur, "/hero/title"); v != "Saturday" {
		t.Errorf("current title = %v, want Saturday", v)
	}

	prev, err := repo.Previous(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := site.Get(prev, "/hero/title"); v != "Friday" {
		t.Errorf("previous title = %v, want Friday", v)
	}

	if n, err := client.Exists(ctx, KeySettingsUpdatedAt).Result(); err != nil || n != 1 {
		t.Errorf("updated_at key missing: %d, %v", n, err)
	}
}

func TestSettingsRepositoryCorrupt(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if err := client.Set(ctx, KeySettingsCurrent, "{not json", 0).Err(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSettingsRepository(client).Load(ctx); err == nil {
		t.Error("Load() of corrupt value should fail")
	}
}
