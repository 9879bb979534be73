// Package semantic maintains an embedding index of note chunks and
// answers similarity queries against it.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"agentmem/internal/embedder"
	"agentmem/internal/index"
	"agentmem/internal/store"
	"agentmem/internal/walker"
)

const metaModel = "embed_model"

// Options configures which files are chunked and how.
type Options struct {
	Extensions   []string
	Ignore       []string
	ChunkSize    int
	MaxFileBytes int64
	Logger       *slog.Logger
}

// Index is a semantic index persisted in a store.
type Index struct {
	root   string
	store  store.Store
	emb    embedder.Embedder
	opts   Options
	logger *slog.Logger
}

// New creates an Index over root.
func New(root string, st store.Store, emb embedder.Embedder, opts Options) *Index {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 100_000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{root: root, store: st, emb: emb, opts: opts, logger: logger}
}

// BuildStats reports the outcome of Build.
type BuildStats struct {
	Files    int `json:"files"`
	Chunks   int `json:"chunks"`
	Reused   int `json:"reused"`
	Embedded int `json:"embedded"`
}

// Build re-chunks every eligible file, embeds only chunks whose hash is
// not already stored for the same model, and replaces the store contents.
func (x *Index) Build(ctx context.Context) (BuildStats, error) {
	var (
		stats  BuildStats
		chunks []store.Chunk
	)
	err := walker.Walk(ctx, x.root, walker.Options{
		Extensions: x.opts.Extensions,
		Ignore:     x.opts.Ignore,
		SkipHidden: true,
		SkipNames:  index.DefaultSnapshotNames,
		MaxSize:    x.opts.MaxFileBytes,
	}, func(fi walker.FileInfo) error {
		src, err := os.ReadFile(fi.Path)
		if err != nil || !utf8.Valid(src) {
			x.logger.Debug("semantic: skip file", "path", fi.RelPath, "error", err)
			return nil
		}
		stats.Files++
		chunks = append(chunks, ChunkFile(string(src), fi.RelPath, x.opts.ChunkSize)...)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("semantic: walk %s: %w", x.root, err)
	}

	known := map[string][]float32{}
	if model, err := x.store.GetMeta(metaModel); err == nil && model == x.emb.Model() {
		if known, err = x.store.ChunkEmbeddings(ctx); err != nil {
			return stats, fmt.Errorf("semantic: load embeddings: %w", err)
		}
	}

	embeddings := make([][]float32, len(chunks))
	var (
		pending []string
		slots   []int
	)
	for i, c := range chunks {
		if e, ok := known[c.Hash]; ok {
			embeddings[i] = e
			stats.Reused++
			continue
		}
		pending = append(pending, c.Text)
		slots = append(slots, i)
	}

	if len(pending) > 0 {
		x.logger.Info("semantic: embedding chunks", "count", len(pending), "model", x.emb.Model())
		embs, err := x.emb.Embed(ctx, pending)
		if err != nil {
			return stats, fmt.Errorf("semantic: embed: %w", err)
		}
		if len(embs) != len(pending) {
			return stats, fmt.Errorf("semantic: embedder returned %d vectors for %d chunks", len(embs), len(pending))
		}
		for j, e := range embs {
			embeddings[slots[j]] = e
		}
		stats.Embedded = len(pending)
	}

	if err := x.store.ReplaceChunks(ctx, chunks, embeddings); err != nil {
		return stats, fmt.Errorf("semantic: store chunks: %w", err)
	}
	if err := x.store.SetMeta(metaModel, x.emb.Model()); err != nil {
		return stats, fmt.Errorf("semantic: record model: %w", err)
	}
	stats.Chunks = len(chunks)
	return stats, nil
}

// Result is one semantic hit.
type Result struct {
	File       string  `json:"file"`
	ChunkID    int     `json:"chunk_id"`
	Text       string  `json:"chunk_text"`
	Similarity float64 `json:"similarity"`
}

// Search returns the k chunks most similar to query, best first.
func (x *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}
	embs, err := x.emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}
	if len(embs) != 1 {
		return nil, fmt.Errorf("semantic: embedder returned %d vectors for the query", len(embs))
	}
	hits, err := x.store.SearchChunks(ctx, embs[0], k)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			File:       h.Chunk.File,
			ChunkID:    h.Chunk.ChunkID,
			Text:       h.Chunk.Text,
			Similarity: 1 - h.Distance,
		}
	}
	return results, nil
}

// Stats summarizes the stored chunks.
type Stats struct {
	Files      int    `json:"files"`
	Chunks     int    `json:"chunks"`
	TotalChars int    `json:"total_chars"`
	Model      string `json:"model"`
}

// Stats reads chunk counters from the store.
func (x *Index) Stats(ctx context.Context) (Stats, error) {
	chunks, err := x.store.ListChunks(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("semantic: stats: %w", err)
	}
	model, _ := x.store.GetMeta(metaModel)
	files := map[string]bool{}
	st := Stats{Chunks: len(chunks), Model: model}
	for _, c := range chunks {
		files[c.File] = true
		st.TotalChars += utf8.RuneCountInString(c.Text)
	}
	st.Files = len(files)
	return st, nil
}
