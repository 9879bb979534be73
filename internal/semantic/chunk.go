package semantic

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"agentmem/internal/store"
)

// overlapWords is how many trailing words of a chunk start the next one.
const overlapWords = 10

// ChunkFile joins the paragraphs of content into chunks of roughly size
// characters. When a chunk is closed its last overlapWords words are
// carried into the next one, provided it has more than that many.
func ChunkFile(content, relPath string, size int) []store.Chunk {
	var (
		chunks  []store.Chunk
		current string
	)
	emit := func() {
		text := strings.TrimSpace(current)
		if text == "" {
			return
		}
		chunks = append(chunks, store.Chunk{
			File:    relPath,
			ChunkID: len(chunks),
			Text:    text,
			Hash:    Hash(text),
		})
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current != "" && utf8.RuneCountInString(current)+utf8.RuneCountInString(para) > size {
			emit()
			words := strings.Fields(current)
			current = ""
			if len(words) > overlapWords {
				current = strings.Join(words[len(words)-overlapWords:], " ")
			}
		}
		if current == "" {
			current = para
		} else {
			current += "\n\n" + para
		}
	}
	emit()
	return chunks
}

// Hash is the short content hash used to recognize unchanged chunks.
func Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}
