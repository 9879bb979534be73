package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrEmpty is returned by LoadSnapshot when no snapshot was ever saved.
var ErrEmpty = errors.New("store: no snapshot saved")

// Store persists lexical index snapshots and embedded chunks.
type Store interface {
	// SaveSnapshot replaces the stored lexical index.
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	// LoadSnapshot returns the stored lexical index, postings in insertion order.
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	// ChunkEmbeddings returns stored embeddings keyed by chunk hash.
	ChunkEmbeddings(ctx context.Context) (map[string][]float32, error)
	// ReplaceChunks drops every stored chunk and stores the given ones.
	ReplaceChunks(ctx context.Context, chunks []Chunk, embeddings [][]float32) error
	// ListChunks returns every stored chunk in insertion order.
	ListChunks(ctx context.Context) ([]Chunk, error)
	// SearchChunks finds the k chunks closest to the query embedding.
	SearchChunks(ctx context.Context, query []float32, k int) ([]ChunkResult, error)
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM postings"); err != nil {
		return fmt.Errorf("store: clear postings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO postings (token, file, line, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("store: prepare postings: %w", err)
	}
	defer stmt.Close()

	for _, p := range snap.Postings {
		if _, err := stmt.ExecContext(ctx, p.Token, p.File, p.Line, p.Text); err != nil {
			return fmt.Errorf("store: insert posting %q: %w", p.Token, err)
		}
	}

	meta := map[string]string{
		"root":        snap.Root,
		"file_count":  strconv.Itoa(snap.FileCount),
		"token_count": strconv.Itoa(snap.TokenCount),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, v,
		); err != nil {
			return fmt.Errorf("store: set %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	root, err := s.GetMeta("root")
	if err != nil {
		return snap, err
	}
	fileCount, err := s.GetMeta("file_count")
	if err != nil {
		return snap, err
	}
	if fileCount == "" {
		return snap, ErrEmpty
	}
	tokenCount, err := s.GetMeta("token_count")
	if err != nil {
		return snap, err
	}
	snap.Root = root
	snap.FileCount, _ = strconv.Atoi(fileCount)
	snap.TokenCount, _ = strconv.Atoi(tokenCount)

	rows, err := s.db.QueryContext(ctx, "SELECT token, file, line, text FROM postings ORDER BY id")
	if err != nil {
		return snap, fmt.Errorf("store: query postings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.Token, &p.File, &p.Line, &p.Text); err != nil {
			return snap, fmt.Errorf("store: scan posting: %w", err)
		}
		snap.Postings = append(snap.Postings, p)
	}
	return snap, rows.Err()
}

func (s *SQLiteStore) ChunkEmbeddings(ctx context.Context) (map[string][]float32, error) {
	out := make(map[string][]float32)
	if dim, err := s.GetMeta("vector_dim"); err != nil || dim == "" {
		return out, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.hash, v.embedding
		FROM chunks c
		JOIN vec_chunks v ON v.chunk_id = c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: query embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			hash string
			blob []byte
		)
		if err := rows.Scan(&hash, &blob); err != nil {
			return nil, fmt.Errorf("store: scan embedding: %w", err)
		}
		out[hash] = decodeFloat32(blob)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ReplaceChunks(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("store: mismatched chunks (%d) and embeddings (%d)", len(chunks), len(embeddings))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var dim int
	if len(embeddings) > 0 {
		dim = len(embeddings[0])
	}

	// A width change means a different model; the old table cannot hold it.
	var stored string
	err = tx.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'vector_dim'").Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if stored != "" && dim > 0 && stored != strconv.Itoa(dim) {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS vec_chunks"); err != nil {
			return fmt.Errorf("store: drop vectors: %w", err)
		}
		stored = ""
	} else if stored != "" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks"); err != nil {
			return fmt.Errorf("store: clear vectors: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("store: clear chunks: %w", err)
	}
	if dim == 0 {
		return tx.Commit()
	}
	if stored == "" {
		if _, err := tx.ExecContext(ctx, vectorTableDDL(dim)); err != nil {
			return fmt.Errorf("store: create vectors: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES ('vector_dim', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			strconv.Itoa(dim),
		); err != nil {
			return err
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks (file, chunk_id, text, hash) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer chunkStmt.Close()
	vecStmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, c := range chunks {
		if len(embeddings[i]) != dim {
			return fmt.Errorf("store: embedding %d has width %d, want %d", i, len(embeddings[i]), dim)
		}
		res, err := chunkStmt.ExecContext(ctx, c.File, c.ChunkID, c.Text, c.Hash)
		if err != nil {
			return fmt.Errorf("store: insert chunk %s#%d: %w", c.File, c.ChunkID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("store: serialize embedding for chunk %d: %w", id, err)
		}
		if _, err := vecStmt.ExecContext(ctx, id, blob); err != nil {
			return fmt.Errorf("store: insert embedding for chunk %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListChunks(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, file, chunk_id, text, hash FROM chunks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.File, &c.ChunkID, &c.Text, &c.Hash); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) SearchChunks(ctx context.Context, query []float32, k int) ([]ChunkResult, error) {
	if dim, err := s.GetMeta("vector_dim"); err != nil || dim == "" {
		return nil, err
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("store: serialize query embedding: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		WITH knn AS (
			SELECT chunk_id, distance
			FROM vec_chunks
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT c.id, c.file, c.chunk_id, c.text, c.hash, knn.distance
		FROM knn
		JOIN chunks c ON c.id = knn.chunk_id
		ORDER BY knn.distance
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("store: vector search: %w", err)
	}
	defer rows.Close()

	var results []ChunkResult
	for rows.Next() {
		var r ChunkResult
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.File, &r.Chunk.ChunkID, &r.Chunk.Text, &r.Chunk.Hash, &r.Distance); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// decodeFloat32 reverses sqlite_vec.SerializeFloat32 (little-endian float32s).
func decodeFloat32(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
