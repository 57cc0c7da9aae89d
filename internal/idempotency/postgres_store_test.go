package idempotency

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := Key("release", "test-key")
	rec := Record{
		Action:     "release",
		StatusCode: 200,
		Response:   []byte("payload"),
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().Add(time.Minute).UTC(),
	}

	if err := store.Save(ctx, key, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.StatusCode != rec.StatusCode || got.Action != "release" {
		t.Fatalf("unexpected record: %#v", got)
	}

	expired := Key("release", "expired-key")
	if err := store.Save(ctx, expired, Record{
		Action:     "release",
		StatusCode: 502,
		Response:   []byte("{}"),
		CreatedAt:  time.Now().Add(-2 * time.Hour).UTC(),
		ExpiresAt:  time.Now().Add(-time.Hour).UTC(),
	}); err != nil {
		t.Fatalf("save expired: %v", err)
	}
	if got, err := store.Get(ctx, expired); err != nil || got != nil {
		t.Fatalf("expected expired record to be dropped, got %#v, %v", got, err)
	}
	if _, err := store.PurgeExpired(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
}
