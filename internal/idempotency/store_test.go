package idempotency

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestKeyScopesByAction(t *testing.T) {
	if Key("fund", "k1") == Key("release", "k1") {
		t.Fatalf("keys for different actions must differ")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if rec, _ := store.Get(ctx, "missing"); rec != nil {
		t.Fatalf("expected nil for missing key")
	}

	record := Record{
		Action:     "fund",
		StatusCode: 200,
		Response:   []byte(`{"txHash":"0x01"}`),
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(time.Minute),
	}
	if err := store.Save(ctx, Key("fund", "abc"), record); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, _ := store.Get(ctx, Key("fund", "abc"))
	if got == nil || got.Action != "fund" || string(got.Response) != `{"txHash":"0x01"}` {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Save(ctx, "k", Record{StatusCode: 200, ExpiresAt: now.Add(time.Second)})
	if got, _ := store.Get(ctx, "k"); got == nil {
		t.Fatalf("record should still be live")
	}
	now = now.Add(2 * time.Second)
	if got, _ := store.Get(ctx, "k"); got != nil {
		t.Fatalf("expected expired record to be hidden, got %+v", got)
	}
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "idem.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	ctx := context.Background()
	record := Record{
		Action:     "create",
		StatusCode: 200,
		Response:   []byte("resp"),
		CreatedAt:  time.Unix(0, 0),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := store.Save(ctx, "key", record); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "stale", Record{ExpiresAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	store2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	if _, ok := store2.data["stale"]; ok {
		t.Fatalf("expired record should be dropped on load")
	}

	got, _ := store2.Get(ctx, "key")
	if got == nil || string(got.Response) != "resp" || got.Action != "create" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idem.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}
