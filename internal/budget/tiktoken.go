package budget

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used for exact counts.
const DefaultEncoding = "cl100k_base"

// Tiktoken counts tokens with a real BPE encoding. Loading an encoding
// may download its vocabulary on first use.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding, DefaultEncoding when empty.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("budget: load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	n := len(t.enc.Encode(text, nil, nil))
	if n < 1 {
		return 1
	}
	return n
}
