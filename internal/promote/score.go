package promote

import (
	"math"
	"strings"
	"unicode"
)

// BaseScore is what any matching line starts with.
const BaseScore = 0.3

// Rule adds Weight to a line's importance when Match reports true.
type Rule struct {
	Name   string
	Weight float64
	Match  func(line string) bool
}

// markerEmoji are the emoji that flag an emphasized line.
var markerEmoji = []string{"✅", "❌", "⚠️", "🔑", "💡", "🚀"}

// acronyms are common uppercase words that carry no emphasis.
var acronyms = map[string]bool{
	"API": true, "URL": true, "HTTP": true, "HTTPS": true, "JSON": true,
	"CLI": true, "LLM": true, "AI": true, "ID": true, "OK": true,
	"MD": true, "PR": true, "UI": true, "SQL": true, "CSS": true,
	"HTML": true, "TODO": true, "DONE": true, "LIVE": true,
}

var (
	RuleEmphasis = Rule{Name: "emphasis", Weight: 0.2, Match: func(l string) bool {
		return strings.Contains(l, "**") || strings.Contains(l, "__")
	}}
	RuleEmoji = Rule{Name: "emoji", Weight: 0.15, Match: func(l string) bool {
		for _, e := range markerEmoji {
			if strings.Contains(l, e) {
				return true
			}
		}
		return false
	}}
	RuleExclamation = Rule{Name: "exclamation", Weight: 0.05, Match: func(l string) bool {
		return strings.Contains(l, "!")
	}}
	RuleURL = Rule{Name: "url", Weight: 0.1, Match: func(l string) bool {
		return strings.Contains(l, "http")
	}}
	RuleShouting = Rule{Name: "shouting", Weight: 0.1, Match: hasShortUpperWord}
)

// Rules is the additive scoring table, applied in order.
var Rules = []Rule{RuleEmphasis, RuleEmoji, RuleExclamation, RuleURL, RuleShouting}

// CategoryWeights is added on top of the rule table.
var CategoryWeights = map[string]float64{
	Decision: 0.15,
	Lesson:   0.20,
	Fact:     0.10,
	Contact:  0.10,
	Platform: 0.05,
}

// Score rates line in [0, 1], rounded to hundredths.
func Score(line, category string) float64 {
	score := BaseScore
	for _, r := range Rules {
		if r.Match(line) {
			score += r.Weight
		}
	}
	score += CategoryWeights[category]
	score = math.Round(score*100) / 100
	return math.Min(score, 1.0)
}

func hasShortUpperWord(line string) bool {
	words := strings.FieldsFunc(line, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		n := 0
		upper := true
		for _, r := range w {
			n++
			if !unicode.IsUpper(r) {
				upper = false
				break
			}
		}
		if upper && n >= 2 && n <= 5 && !acronyms[w] {
			return true
		}
	}
	return false
}
