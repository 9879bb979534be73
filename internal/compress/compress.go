// Package compress condenses a week of daily logs into a short markdown
// summary by keyword bucketing; no language model is involved.
package compress

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// SummaryDir is where saved weekly summaries live, relative to the root.
const SummaryDir = "memory/summaries"

var (
	blockerWords  = []string{"blocked", "stuck", "waiting", "broken", "failed", "error", "not working"}
	decisionWords = []string{"decided", "decision", "вирішив", "рішення", "changed to", "switched"}
	learningWords = []string{"learned", "lesson", "урок", "зрозумів", "insight", "realization", "дізнався"}

	mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_]+)`)
	peerPattern    = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:з|from|with|replied to|commented on)\s+([\p{L}\p{N}_]+(?:\s+[\p{L}\p{N}_]+)?)`)
	urlPattern     = regexp.MustCompile(`https?://[^\s)]+`)
)

// DaySummary is the bucketed content of one daily log.
type DaySummary struct {
	Date      string   `json:"date"`
	Actions   []string `json:"actions,omitempty"`
	Decisions []string `json:"decisions,omitempty"`
	Blockers  []string `json:"blockers,omitempty"`
	Learnings []string `json:"learnings,omitempty"`
	Contacts  []string `json:"contacts,omitempty"`
	Links     []string `json:"links,omitempty"`
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ExtractSummary buckets the bullets of content. Blockers win over
// decisions, decisions over learnings; any other bullet is an action.
// Contacts and links are collected from every line, first occurrence kept.
func ExtractSummary(content, date string) DaySummary {
	s := DaySummary{Date: date}
	contacts := newOrderedSet()
	links := newOrderedSet()

	for _, line := range strings.Split(content, "\n") {
		text := strings.TrimSpace(line)
		if text == "" || strings.HasPrefix(text, "## ") {
			continue
		}

		if strings.HasPrefix(text, "- ") || strings.HasPrefix(text, "* ") {
			item := text[2:]
			lower := strings.ToLower(item)
			switch {
			case containsAny(lower, blockerWords):
				s.Blockers = append(s.Blockers, item)
			case containsAny(lower, decisionWords):
				s.Decisions = append(s.Decisions, item)
			case containsAny(lower, learningWords):
				s.Learnings = append(s.Learnings, item)
			default:
				s.Actions = append(s.Actions, item)
			}
		}

		for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
			contacts.add(m[1])
		}
		for _, m := range peerPattern.FindAllStringSubmatch(text, -1) {
			contacts.add(m[1])
		}
		for _, u := range urlPattern.FindAllString(text, -1) {
			links.add(u)
		}
	}
	s.Contacts = contacts.items
	s.Links = links.items
	return s
}

// FormatSummary renders one day as a compact markdown block.
func FormatSummary(s DaySummary) string {
	lines := []string{"### " + s.Date}
	if len(s.Actions) > 0 {
		shown := s.Actions
		if len(shown) > 5 {
			shown = shown[:5]
		}
		lines = append(lines, "**Done:** "+strings.Join(shown, "; "))
		if extra := len(s.Actions) - 5; extra > 0 {
			lines = append(lines, fmt.Sprintf("  (+%d more actions)", extra))
		}
	}
	if len(s.Decisions) > 0 {
		lines = append(lines, "**Decisions:** "+strings.Join(s.Decisions, "; "))
	}
	if len(s.Blockers) > 0 {
		lines = append(lines, "**Blocked:** "+strings.Join(s.Blockers, "; "))
	}
	if len(s.Learnings) > 0 {
		lines = append(lines, "**Learned:** "+strings.Join(s.Learnings, "; "))
	}
	if len(s.Contacts) > 0 {
		shown := s.Contacts
		if len(shown) > 10 {
			shown = shown[:10]
		}
		lines = append(lines, "**Contacts:** "+strings.Join(shown, ", "))
	}
	return strings.Join(lines, "\n")
}

// Week holds the daily summaries of one Monday-to-Sunday week.
type Week struct {
	Monday time.Time    `json:"monday"`
	Days   []DaySummary `json:"days"`
}

// MondayOf returns midnight of the Monday starting d's week.
func MondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	y, m, day := d.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}

// CompressWeek summarizes the logs in dir for the week containing weekDate.
// Days without a log are absent from the result.
func CompressWeek(dir string, weekDate time.Time) Week {
	w := Week{Monday: MondayOf(weekDate)}
	for i := 0; i < 7; i++ {
		date := w.Monday.AddDate(0, 0, i).Format("2006-01-02")
		src, err := os.ReadFile(filepath.Join(dir, date+".md"))
		if err != nil {
			continue
		}
		w.Days = append(w.Days, ExtractSummary(string(src), date))
	}
	return w
}

// Markdown renders the week with per-day blocks and aggregated totals.
func (w Week) Markdown() string {
	monday := w.Monday.Format("2006-01-02")
	if len(w.Days) == 0 {
		return "# Week of " + monday + "\n\nNo daily logs found."
	}
	_, weekNum := w.Monday.ISOWeek()
	lines := []string{
		fmt.Sprintf("# Week %d (%s → %s)", weekNum, monday, w.Monday.AddDate(0, 0, 6).Format("2006-01-02")),
		"",
	}
	for _, d := range w.Days {
		lines = append(lines, FormatSummary(d), "")
	}

	contacts := newOrderedSet()
	var blockers []string
	decisions, actions := 0, 0
	for _, d := range w.Days {
		for _, c := range d.Contacts {
			contacts.add(c)
		}
		blockers = append(blockers, d.Blockers...)
		decisions += len(d.Decisions)
		actions += len(d.Actions)
	}

	lines = append(lines, "---",
		fmt.Sprintf("**Week totals:** %d actions | %d decisions | %d blockers", actions, decisions, len(blockers)))
	if len(contacts.items) > 0 {
		lines = append(lines, "**All contacts:** "+strings.Join(contacts.sorted(), ", "))
	}
	if len(blockers) > 0 {
		lines = append(lines, "**Unresolved:** "+strings.Join(blockers, "; "))
	}
	return strings.Join(lines, "\n")
}

// WeekFileName is the ISO week file name for d, e.g. "2026-W11.md".
func WeekFileName(d time.Time) string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%d-W%02d.md", year, week)
}

// Save writes the rendered week under root/SummaryDir and returns the path.
func Save(root string, w Week) (string, error) {
	dir := filepath.Join(root, filepath.FromSlash(SummaryDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("compress: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, WeekFileName(w.Monday))
	if err := os.WriteFile(path, []byte(w.Markdown()+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("compress: write %s: %w", path, err)
	}
	return path, nil
}
