package semantic

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agentmem/internal/store"
)

// keywordEmbedder embeds text as counts of a few fixed words.
type keywordEmbedder struct {
	model string
	calls int
	texts int
}

var vocabulary = []string{"cat", "dog", "fish"}

func (e *keywordEmbedder) Model() string { return e.model }

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(vocabulary)+1)
		lower := strings.ToLower(t)
		for j, w := range vocabulary {
			v[j] = float32(strings.Count(lower, w))
		}
		v[len(vocabulary)] = 0.01
		out[i] = v
	}
	return out, nil
}

func TestChunkFileJoinsParagraphs(t *testing.T) {
	chunks := ChunkFile("first para\n\n\n\nsecond para\n\n   \n\nthird", "a.md", 500)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	c := chunks[0]
	if c.Text != "first para\n\nsecond para\n\nthird" || c.File != "a.md" || c.ChunkID != 0 {
		t.Fatalf("chunk = %+v", c)
	}
	if len(c.Hash) != 12 || c.Hash != Hash(c.Text) {
		t.Fatalf("hash = %q", c.Hash)
	}
}

func TestChunkFileSplitsWithOverlap(t *testing.T) {
	words := make([]string, 30)
	for i := range words {
		words[i] = "w" + strings.Repeat("x", i%3)
	}
	first := strings.Join(words, " ")
	second := "tail paragraph"
	chunks := ChunkFile(first+"\n\n"+second, "b.md", len(first)+5)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != first {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
	wantSecond := strings.Join(words[20:], " ") + "\n\n" + second
	if chunks[1].Text != wantSecond || chunks[1].ChunkID != 1 {
		t.Errorf("second chunk = %+v, want text %q", chunks[1], wantSecond)
	}
}

func TestChunkFileShortChunkHasNoOverlap(t *testing.T) {
	chunks := ChunkFile("one two three\n\nfour five six", "c.md", 10)
	if len(chunks) != 2 || chunks[1].Text != "four five six" {
		t.Fatalf("chunks = %+v", chunks)
	}
}

func TestChunkFileEmpty(t *testing.T) {
	if got := ChunkFile("\n\n  \n\n", "e.md", 500); len(got) != 0 {
		t.Fatalf("chunks = %+v", got)
	}
}

func setup(t *testing.T) (string, *store.SQLiteStore) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"cats.md":     "the cat sat on the mat\n\nanother cat story",
		"dogs.md":     "a dog barked at the mailman",
		"fish.txt":    "fish swim; fish and more fish",
		".hidden.md":  "cat cat cat",
		"big.md":      strings.Repeat("dog ", 200),
		"ignored.png": "cat",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "semantic.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return root, st
}

func TestBuildAndSearch(t *testing.T) {
	root, st := setup(t)
	emb := &keywordEmbedder{model: "kw-1"}
	opts := Options{Extensions: []string{".md", ".txt"}, ChunkSize: 500, MaxFileBytes: 500}
	idx := New(root, st, emb, opts)
	ctx := context.Background()

	stats, err := idx.Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if stats.Files != 3 || stats.Chunks != 3 || stats.Embedded != 3 || stats.Reused != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	results, err := idx.Search(ctx, "where is the dog", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 || results[0].File != "dogs.md" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Similarity < 0.9 || results[0].Similarity > 1.0001 {
		t.Errorf("similarity = %v", results[0].Similarity)
	}
	if results[1].Similarity >= results[0].Similarity {
		t.Errorf("results not ordered by similarity: %+v", results)
	}

	// Unchanged content is not embedded again.
	emb.texts = 0
	stats, err = idx.Build(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if stats.Reused != 3 || stats.Embedded != 0 || emb.texts != 0 {
		t.Fatalf("rebuild stats = %+v, embedded texts = %d", stats, emb.texts)
	}

	// A changed file only re-embeds its own chunks.
	if err := os.WriteFile(filepath.Join(root, "fish.txt"), []byte("no more fish"), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, err = idx.Build(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if stats.Reused != 2 || stats.Embedded != 1 {
		t.Fatalf("incremental stats = %+v", stats)
	}

	st2, err := idx.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st2.Files != 3 || st2.Chunks != 3 || st2.Model != "kw-1" {
		t.Fatalf("index stats = %+v", st2)
	}
}

func TestBuildModelChangeReembeds(t *testing.T) {
	root, st := setup(t)
	ctx := context.Background()
	opts := Options{Extensions: []string{".md", ".txt"}, MaxFileBytes: 500}

	if _, err := New(root, st, &keywordEmbedder{model: "a"}, opts).Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	stats, err := New(root, st, &keywordEmbedder{model: "b"}, opts).Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if stats.Reused != 0 || stats.Embedded != 3 {
		t.Fatalf("stats after model change = %+v", stats)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	root, st := setup(t)
	emb := &keywordEmbedder{model: "kw"}
	res, err := New(root, st, emb, Options{}).Search(context.Background(), "   ", 5)
	if err != nil || res != nil || emb.calls != 0 {
		t.Fatalf("res = %v, err = %v, calls = %d", res, err, emb.calls)
	}
}
