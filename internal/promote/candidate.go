// Package promote finds lines in daily logs that are worth keeping in the
// long-term memory document, ranks them and writes the survivors into the
// matching sections of that document.
package promote

import (
	"log/slog"

	"agentmem/internal/config"
)

// Category names, in canonical matching order.
const (
	Decision = "decision"
	Lesson   = "lesson"
	Fact     = "fact"
	Contact  = "contact"
	Platform = "platform"
)

// Emoji is the bullet marker written for each category.
var Emoji = map[string]string{
	Decision: "🔑",
	Lesson:   "💡",
	Fact:     "📌",
	Contact:  "🤝",
	Platform: "🔧",
}

// Candidate is one classified line.
type Candidate struct {
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	Line       int     `json:"line_num"`
	Category   string  `json:"category"`
	Importance float64 `json:"importance"`
}

// Promoter bundles the configured matcher, section aliases and thresholds.
type Promoter struct {
	matcher  *Matcher
	sections map[string][]string
	dedupe   float64
	presence float64
	logger   *slog.Logger

	// beforeWrite runs between applying candidates and the concurrency check.
	beforeWrite func(path string)
}

// New builds a Promoter from cfg. Pattern and section overrides in cfg
// replace the built-in lists category by category.
func New(cfg config.Config, logger *slog.Logger) (*Promoter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := NewMatcher(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	sections := make(map[string][]string, len(DefaultSections))
	for cat, aliases := range DefaultSections {
		sections[cat] = aliases
	}
	for cat, aliases := range cfg.Sections {
		sections[cat] = aliases
	}
	return &Promoter{
		matcher:  m,
		sections: sections,
		dedupe:   cfg.DedupeThreshold,
		presence: cfg.PresenceThreshold,
		logger:   logger,
	}, nil
}

// Matcher returns the compiled category matcher.
func (p *Promoter) Matcher() *Matcher { return p.matcher }
