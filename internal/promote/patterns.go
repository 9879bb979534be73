package promote

import (
	"fmt"
	"regexp"

	"agentmem/internal/config"
)

// DefaultPatterns are the built-in English and Ukrainian phrasings per category.
var DefaultPatterns = map[string][]string{
	Decision: {
		`decided|decision|вирішив|рішення`,
		`switched to|moved to|переїхав`,
		`will use|буду використовувати`,
		`approved|підтверджено|confirmed`,
	},
	Lesson: {
		`урок|lesson|learned|зрозумів|insight`,
		`помилка|mistake|факап|fuckup|fix`,
		`не робити|don't|never again|більше не`,
		`краще|better to|should have`,
	},
	Fact: {
		`LIVE|DONE|CLAIMED|PRODUCTION|DEPLOYED`,
		`підключ|connected|configured|встановлено|installed`,
		`створив|created|built|побудував|pushed`,
		`зареєструвався|registered|signed up`,
	},
	Contact: {
		`бартер|deal|клієнт|client`,
		`контакт|contact|friend|партнер`,
	},
	Platform: {
		`API key|token|creds|credentials`,
		`repo|repository|github\.com`,
		`inbox|email|agentmail`,
	},
}

// Matcher classifies a line into zero or more categories.
type Matcher struct {
	patterns map[string][]*regexp.Regexp
}

// NewMatcher compiles the default patterns, replacing a category's list
// wholesale when overrides names it. All patterns are case-insensitive.
func NewMatcher(overrides map[string][]string) (*Matcher, error) {
	m := &Matcher{patterns: make(map[string][]*regexp.Regexp, len(config.Categories))}
	for _, cat := range config.Categories {
		src, ok := overrides[cat]
		if !ok {
			src = DefaultPatterns[cat]
		}
		for _, p := range src {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("promote: compile %s pattern %q: %w", cat, p, err)
			}
			m.patterns[cat] = append(m.patterns[cat], re)
		}
	}
	return m, nil
}

// Match returns every category with at least one matching pattern, in
// canonical order.
func (m *Matcher) Match(text string) []string {
	var cats []string
	for _, cat := range config.Categories {
		for _, re := range m.patterns[cat] {
			if re.MatchString(text) {
				cats = append(cats, cat)
				break
			}
		}
	}
	return cats
}
