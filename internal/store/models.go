package store

// Posting is one token occurrence of the lexical index as persisted.
type Posting struct {
	Token string
	File  string
	Line  int
	Text  string
}

// Snapshot is the flat form of a lexical index.
type Snapshot struct {
	Root       string
	FileCount  int
	TokenCount int
	Postings   []Posting
}

// Chunk is a piece of a note file prepared for embedding.
type Chunk struct {
	ID      int64
	File    string
	ChunkID int
	Text    string
	Hash    string
}

// ChunkResult is a chunk with its vector distance to the query.
type ChunkResult struct {
	Chunk    Chunk
	Distance float64
}
