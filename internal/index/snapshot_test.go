package index

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	root := writeTree(t, map[string]string{
		"MEMORY.md":            "# Memory\n## Lessons\n- cache invalidation is hard\n",
		"memory/2026-02-01.md": "- decided to cache everything\n- cache hit rate 90%\n",
	})
	idx := build(t, root)
	queries := []string{"cache", "cache hit", "memory lessons", "decided"}

	for _, name := range []string{"index.json", "index.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			ctx := context.Background()
			if err := idx.Save(ctx, path); err != nil {
				t.Fatalf("save: %v", err)
			}
			loaded, err := Load(ctx, path, Options{})
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.Root() != idx.Root() {
				t.Errorf("root = %q, want %q", loaded.Root(), idx.Root())
			}
			if !reflect.DeepEqual(loaded.Stats(), idx.Stats()) {
				t.Errorf("stats = %+v, want %+v", loaded.Stats(), idx.Stats())
			}
			for _, q := range queries {
				want := idx.Search(q, 10, 1)
				got := loaded.Search(q, 10, 1)
				if !reflect.DeepEqual(got, want) {
					t.Errorf("query %q: got %+v, want %+v", q, got, want)
				}
			}
		})
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	for _, name := range []string{"none.json", "none.db"} {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), name), Options{})
		if !errors.Is(err, ErrNoSnapshot) {
			t.Errorf("%s: expected ErrNoSnapshot, got %v", name, err)
		}
	}
}
