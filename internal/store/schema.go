package store

import (
	"database/sql"
	"fmt"
)

const schemaVersion = "1"

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS postings (
    id    INTEGER PRIMARY KEY AUTOINCREMENT,
    token TEXT NOT NULL,
    file  TEXT NOT NULL,
    line  INTEGER NOT NULL,
    text  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_postings_token ON postings(token);

CREATE TABLE IF NOT EXISTS chunks (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    file     TEXT NOT NULL,
    chunk_id INTEGER NOT NULL,
    text     TEXT NOT NULL,
    hash     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_hash ON chunks(hash);
`

// vecDDL creates the embedding table once the vector width is known.
const vecDDL = `CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
)`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	if _, err := db.Exec(ddl); err != nil {
		return err
	}
	_, err := db.Exec(
		"INSERT INTO meta (key, value) VALUES ('schema_version', ?) ON CONFLICT(key) DO NOTHING",
		schemaVersion,
	)
	return err
}

func vectorTableDDL(dim int) string {
	return fmt.Sprintf(vecDDL, dim)
}
