package promote

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// FormatText renders the top candidates for a terminal.
func FormatText(cands []Candidate, top int) string {
	if len(cands) == 0 {
		return "No promotion candidates found."
	}
	shown := len(cands)
	if top > 0 && top < shown {
		shown = top
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Promotion candidates (%d found, showing top %d):\n\n", len(cands), shown)
	for i, c := range cands[:shown] {
		emoji, ok := Emoji[c.Category]
		if !ok {
			emoji = "•"
		}
		fmt.Fprintf(&b, "  %2d. %s [%s] %s\n", i+1, emoji, scoreBar(c.Importance), truncate(c.Text, 100))
		fmt.Fprintf(&b, "      %s | %s:%d\n", c.Category, filepath.Base(c.SourceFile), c.Line)
	}
	b.WriteString("\nTo promote all to MEMORY.md: agentmem promote --apply")
	return b.String()
}

// FormatJSON renders candidates as a JSON array.
func FormatJSON(cands []Candidate) ([]byte, error) {
	if cands == nil {
		cands = []Candidate{}
	}
	return json.MarshalIndent(cands, "", "  ")
}

func scoreBar(importance float64) string {
	filled := int(importance * 5)
	if filled > 5 {
		filled = 5
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 5-filled)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
