package embedding

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/viant/cardindex/engine"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("engine.Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStore_UpsertLoadCount(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	entries := map[string][]float32{
		"a.png":    {1, 0},
		"廿日市市.png": {0.6, 0.8},
	}
	if err := store.Upsert(ctx, "clip", entries); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, "clip", map[string][]float32{"a.png": {0, 1}}); err != nil {
		t.Fatalf("Upsert (replace) failed: %v", err)
	}
	if err := store.Upsert(ctx, "other", map[string][]float32{"a.png": {1, 1, 1}}); err != nil {
		t.Fatalf("Upsert (other model) failed: %v", err)
	}

	got, err := store.Load(ctx, "clip")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string][]float32{"a.png": {0, 1}, "廿日市市.png": {0.6, 0.8}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}

	n, err := store.Count(ctx, "clip")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	if n, _ := store.Count(ctx, "other"); n != 1 {
		t.Errorf("Count(other) = %d, want 1", n)
	}
}

func TestStore_UpsertRejectsEmpty(t *testing.T) {
	store := openStore(t)
	if err := store.Upsert(context.Background(), "", map[string][]float32{"x": nil}); err == nil {
		t.Fatalf("Upsert with empty vector succeeded, want error")
	}
	if n, _ := store.Count(context.Background(), ""); n != 0 {
		t.Errorf("Count = %d after failed upsert, want 0", n)
	}
}

func TestStore_Nearest(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	entries := map[string][]float32{
		"A": {1, 0},
		"B": {0.6, 0.8},
		"C": {0, 1},
		"D": {1, 0},
	}
	if err := store.Upsert(ctx, "", entries); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Nearest(ctx, "", "A", 2)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "D" || got[1].ID != "B" {
		t.Fatalf("Nearest(A) = %v, want [D B]", got)
	}
	if got[1].Score < 0.599 || got[1].Score > 0.601 {
		t.Errorf("score(A,B) = %v, want 0.6", got[1].Score)
	}

	if _, err := store.Nearest(ctx, "", "missing", 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Nearest(missing) err = %v, want ErrNotFound", err)
	}
	if got, _ := store.Nearest(ctx, "", "A", 0); got != nil {
		t.Errorf("Nearest(k=0) = %v, want nil", got)
	}
}

func TestStore_FilePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "embeddings.sqlite")

	db, err := engine.Open(path)
	if err != nil {
		t.Fatalf("engine.Open(%s) failed: %v", path, err)
	}
	store, err := NewStore(ctx, db)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Upsert(ctx, "m", map[string][]float32{"x.png": {3, 4}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	_ = db.Close()

	db, err = engine.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
	store, err = NewStore(ctx, db)
	if err != nil {
		t.Fatalf("NewStore (reopen) failed: %v", err)
	}
	got, err := store.Load(ctx, "m")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got["x.png"], []float32{3, 4}) {
		t.Errorf("Load = %v, want x.png=[3 4]", got)
	}
}
