package promote

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"agentmem/internal/config"
)

func newPromoter(t *testing.T) *Promoter {
	t.Helper()
	p, err := New(config.Default(), nil)
	if err != nil {
		t.Fatalf("new promoter: %v", err)
	}
	return p
}

func categories(cands []Candidate) map[string]bool {
	out := map[string]bool{}
	for _, c := range cands {
		out[c.Category] = true
	}
	return out
}

func TestScanTextFindsBilingualPatterns(t *testing.T) {
	p := newPromoter(t)
	content := strings.Join([]string{
		"# Day Log",
		"- вирішив перейти на новий фреймворк",
		"- урок: не довіряй кешу",
		"- побудував agent-memory v0.2",
		"- написав email клієнту",
		"- some random text without keywords",
	}, "\n")

	cands := p.ScanText("day.md", content)
	if len(cands) < 3 {
		t.Fatalf("got %d candidates, want at least 3: %+v", len(cands), cands)
	}
	cats := categories(cands)
	for _, want := range []string{Decision, Lesson, Fact, Contact, Platform} {
		if !cats[want] {
			t.Errorf("missing category %s in %v", want, cats)
		}
	}
	for _, c := range cands {
		if c.Line == 1 || c.Line == 6 {
			t.Errorf("unexpected candidate from line %d: %+v", c.Line, c)
		}
		if strings.HasPrefix(c.Text, "- ") {
			t.Errorf("bullet not stripped: %q", c.Text)
		}
	}
}

func TestScanTextOneCandidatePerCategory(t *testing.T) {
	p := newPromoter(t)
	cands := p.ScanText("a.md", "* decided and approved, decision confirmed")
	if len(cands) != 1 || cands[0].Category != Decision {
		t.Fatalf("candidates = %+v", cands)
	}
}

func TestDecisionScenario(t *testing.T) {
	p := newPromoter(t)
	cands := p.ScanText("a.md", "- decided to switch to new framework")
	if len(cands) != 1 {
		t.Fatalf("candidates = %+v", cands)
	}
	c := cands[0]
	if c.Category != Decision || c.Importance < 0.45 {
		t.Fatalf("candidate = %+v, want decision >= 0.45", c)
	}
	if c.Text != "decided to switch to new framework" {
		t.Fatalf("text = %q", c.Text)
	}
}

func TestMatcherOverrideReplacesCategory(t *testing.T) {
	m, err := NewMatcher(map[string][]string{Decision: {`beslutat`}})
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}
	if got := m.Match("we decided"); len(got) != 0 {
		t.Errorf("default decision pattern still active: %v", got)
	}
	if got := m.Match("Vi BESLUTAT"); !reflect.DeepEqual(got, []string{Decision}) {
		t.Errorf("override not case-insensitive: %v", got)
	}
	if got := m.Match("lesson learned"); !reflect.DeepEqual(got, []string{Lesson}) {
		t.Errorf("other categories lost: %v", got)
	}
}

func TestNewMatcherRejectsBadPattern(t *testing.T) {
	if _, err := NewMatcher(map[string][]string{Fact: {"("}}); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestScoreBounds(t *testing.T) {
	lines := []string{
		"",
		"plain",
		"**ALERT** ✅ ❌ 🚀 !!! https://example.com __x__ WOW",
	}
	for _, l := range lines {
		for _, cat := range config.Categories {
			s := Score(l, cat)
			if s < 0 || s > 1 {
				t.Errorf("Score(%q, %s) = %v out of range", l, cat, s)
			}
		}
	}
	if s := Score(lines[2], Lesson); s != 1.0 {
		t.Errorf("saturated score = %v, want 1.0", s)
	}
}

func TestScoreMonotonic(t *testing.T) {
	base := "built a thing"
	tests := []struct {
		name string
		line string
	}{
		{"bold", "**built a thing**"},
		{"emoji", "built a thing ✅"},
		{"url", "built a thing http://x.dev"},
		{"exclamation", "built a thing!"},
		{"shouting", "built a thing FAST"},
	}
	plain := Score(base, Fact)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.line, Fact); got <= plain {
				t.Errorf("Score(%q) = %v, want > %v", tt.line, got, plain)
			}
		})
	}
}

func TestScoreRules(t *testing.T) {
	tests := []struct {
		rule Rule
		line string
		want bool
	}{
		{RuleEmphasis, "a **b**", true},
		{RuleEmphasis, "a __b__", true},
		{RuleEmphasis, "a *b*", false},
		{RuleEmoji, "⚠️ careful", true},
		{RuleEmoji, "🙂", false},
		{RuleExclamation, "yes!", true},
		{RuleURL, "see https://x", true},
		{RuleShouting, "we are LIVE with the API", false},
		{RuleShouting, "ship it ASAP", true},
		{RuleShouting, "a TOOLONGWORD", false},
		{RuleShouting, "plain I", false},
	}
	for _, tt := range tests {
		if got := tt.rule.Match(tt.line); got != tt.want {
			t.Errorf("%s.Match(%q) = %v, want %v", tt.rule.Name, tt.line, got, tt.want)
		}
	}
}

func TestDedupeDropsNearDuplicates(t *testing.T) {
	cands := []Candidate{
		{Text: "built a new thing today", SourceFile: "a.md", Line: 1, Category: Fact, Importance: 0.5},
		{Text: "built a new thing today with extras", SourceFile: "b.md", Line: 2, Category: Fact, Importance: 0.4},
		{Text: "completely different text about lessons", SourceFile: "c.md", Line: 3, Category: Lesson, Importance: 0.6},
	}
	got := Dedupe(cands, 0.7)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}
	if got[0].SourceFile != "c.md" || got[1].SourceFile != "a.md" {
		t.Fatalf("kept = %+v", got)
	}
	if again := Dedupe(got, 0.7); !reflect.DeepEqual(again, got) {
		t.Fatalf("dedupe not idempotent: %+v vs %+v", again, got)
	}
}

func TestDedupeCaseInsensitive(t *testing.T) {
	cands := []Candidate{
		{Text: "Deployed The Service", Importance: 0.5},
		{Text: "deployed the service", Importance: 0.5},
	}
	if got := Dedupe(cands, 0.7); len(got) != 1 || got[0].Text != "Deployed The Service" {
		t.Fatalf("kept = %+v", got)
	}
}

func TestFindSection(t *testing.T) {
	doc := "# Memory\n\n## Уроки\n- lesson 1\n\n## Платформи\n- platform 1\n"
	if _, ok := FindSection(doc, Lesson); !ok {
		t.Errorf("lesson section not found")
	}
	sec, ok := FindSection(doc, Platform)
	if !ok || sec.Heading.Line != 5 || sec.End != 8 {
		t.Errorf("platform section = %+v, %v", sec, ok)
	}
	if _, ok := FindSection(doc, Contact); ok {
		t.Errorf("contact section should not exist")
	}
}

func TestFindSectionIgnoresFencedHeadings(t *testing.T) {
	doc := "# Memory\n\n```\n## Lessons\n```\n"
	if _, ok := FindSection(doc, Lesson); ok {
		t.Fatalf("heading inside code fence treated as section")
	}
}

func TestAlreadyPresent(t *testing.T) {
	existing := "- урок: не довіряй кешу ніколи"
	if !AlreadyPresent("не довіряй кешу ніколи", existing) {
		t.Errorf("expected present")
	}
	if AlreadyPresent("completely new unrelated text here", existing) {
		t.Errorf("expected absent")
	}
	if !AlreadyPresent("КЕШУ ніколи", existing) {
		t.Errorf("short text should match word by word, ignoring case")
	}
}

var day = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

func TestApplyInsertsIntoSections(t *testing.T) {
	p := newPromoter(t)
	doc := "# Memory\n\n## Lessons\n- old lesson\n\n## Decisions\n- old decision\n"
	cands := []Candidate{
		{Text: "never again deploy on friday", Category: Lesson, Importance: 0.5},
		{Text: "will use postgres for storage", Category: Decision, Importance: 0.45},
		{Text: "met a new client at the expo", Category: Contact, Importance: 0.4},
	}

	got, res := p.Apply(doc, cands, 10, day)
	want := "# Memory\n\n## Lessons\n- old lesson\n- 💡 never again deploy on friday\n\n" +
		"## Decisions\n- old decision\n- 🔑 will use postgres for storage\n\n" +
		"## Promoted 2026-03-09\n- 🤝 met a new client at the expo\n"
	if got != want {
		t.Fatalf("Apply =\n%s\nwant\n%s", got, want)
	}
	if len(res.Added) != 3 || len(res.Skipped) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if res.Added[2].Section != "Promoted 2026-03-09" {
		t.Errorf("placement = %+v", res.Added[2])
	}

	again, res2 := p.Apply(got, cands, 10, day)
	if again != got || len(res2.Added) != 0 || len(res2.Skipped) != 3 {
		t.Fatalf("second apply changed document: %+v", res2)
	}
}

func TestApplyStopsAtNextHeadingOfAnyLevel(t *testing.T) {
	p := newPromoter(t)
	doc := "# Decisions\n- a\n\n## Lessons\n- b\n"
	cands := []Candidate{{Text: "will use sqlite everywhere now", Category: Decision}}

	got, res := p.Apply(doc, cands, 0, day)
	want := "# Decisions\n- a\n- 🔑 will use sqlite everywhere now\n\n## Lessons\n- b\n"
	if got != want {
		t.Fatalf("Apply =\n%q\nwant\n%q", got, want)
	}
	if len(res.Added) != 1 || res.Added[0].Section != "Decisions" {
		t.Fatalf("result = %+v", res)
	}

	sec, ok := FindSection(doc, Decision)
	if !ok || sec.End != 3 {
		t.Fatalf("decision section = %+v, %v", sec, ok)
	}
}

func TestApplyKeepsCRLFLineEndings(t *testing.T) {
	p := newPromoter(t)
	doc := "# Decisions\r\n- a\r\n\r\n## Lessons\r\n- b\r\n"
	cands := []Candidate{
		{Text: "will use sqlite everywhere now", Category: Decision},
		{Text: "met a new client at the expo", Category: Contact},
	}

	got, _ := p.Apply(doc, cands, 0, day)
	want := "# Decisions\r\n- a\r\n- 🔑 will use sqlite everywhere now\r\n\r\n## Lessons\r\n- b\r\n" +
		"\r\n## Promoted 2026-03-09\r\n- 🤝 met a new client at the expo\r\n"
	if got != want {
		t.Fatalf("Apply =\n%q\nwant\n%q", got, want)
	}
	if strings.Contains(strings.ReplaceAll(got, "\r\n", ""), "\n") {
		t.Fatalf("mixed line endings in %q", got)
	}
}

func TestApplyGroupsUnmatchedUnderOnePromotedSection(t *testing.T) {
	p := newPromoter(t)
	cands := []Candidate{
		{Text: "first fact about rollout", Category: Fact},
		{Text: "second fact about billing", Category: Fact},
	}
	got, _ := p.Apply("", cands, 0, day)
	want := "## Promoted 2026-03-09\n- 📌 first fact about rollout\n- 📌 second fact about billing\n"
	if got != want {
		t.Fatalf("Apply =\n%q\nwant\n%q", got, want)
	}
}

func TestApplyWithinRunDuplicates(t *testing.T) {
	p := newPromoter(t)
	cands := []Candidate{
		{Text: "registered on the new platform", Category: Fact},
		{Text: "registered on the new platform", Category: Platform},
	}
	got, res := p.Apply("# Memory\n", cands, 0, day)
	if strings.Count(got, "registered on the new platform") != 1 {
		t.Fatalf("duplicate written:\n%s", got)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestApplyRespectsTop(t *testing.T) {
	p := newPromoter(t)
	cands := []Candidate{
		{Text: "alpha beta gamma", Category: Fact},
		{Text: "delta epsilon zeta", Category: Fact},
	}
	_, res := p.Apply("", cands, 1, day)
	if len(res.Added) != 1 || res.Added[0].Candidate.Text != "alpha beta gamma" {
		t.Fatalf("result = %+v", res)
	}
}

func TestApplyFileMissingDocument(t *testing.T) {
	p := newPromoter(t)
	path := filepath.Join(t.TempDir(), "MEMORY.md")
	cands := []Candidate{{Text: "decided to keep notes", Category: Decision}}

	res, err := p.ApplyFile(path, cands, 10, day)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Added) != 1 {
		t.Fatalf("result = %+v", res)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "- 🔑 decided to keep notes") {
		t.Fatalf("document = %q", data)
	}

	// Nothing new: the file is not rewritten.
	before, _ := os.Stat(path)
	if _, err := p.ApplyFile(path, cands, 10, day); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	after, _ := os.Stat(path)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Errorf("idempotent apply rewrote the file")
	}
}

func TestApplyFileDetectsConcurrentEdit(t *testing.T) {
	p := newPromoter(t)
	path := filepath.Join(t.TempDir(), "MEMORY.md")
	if err := os.WriteFile(path, []byte("## Decisions\n- old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	edited := "## Decisions\n- old\n- written by someone else\n"
	p.beforeWrite = func(string) {
		if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
			t.Errorf("edit: %v", err)
		}
	}

	res, err := p.ApplyFile(path, []Candidate{{Text: "decided to keep notes", Category: Decision}}, 10, day)
	if !errors.Is(err, ErrConcurrentEdit) {
		t.Fatalf("expected ErrConcurrentEdit, got %v", err)
	}
	if len(res.Added) != 1 {
		t.Fatalf("result = %+v", res)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != edited {
		t.Fatalf("document overwritten: %q", data)
	}
}

func TestApplyFileUnwritable(t *testing.T) {
	p := newPromoter(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The parent "directory" is a regular file, so nothing can be created under it.
	path := filepath.Join(blocker, "MEMORY.md")
	_, err := p.ApplyFile(path, []Candidate{{Text: "lesson learned the hard way", Category: Lesson}}, 10, day)
	if !errors.Is(err, ErrUnwritable) {
		t.Fatalf("expected ErrUnwritable, got %v", err)
	}
}

func TestScanRecent(t *testing.T) {
	root := t.TempDir()
	mem := filepath.Join(root, "memory")
	if err := os.MkdirAll(filepath.Join(mem, "inner-monologue"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(mem, "2026-03-09.md"):                    "- decided to ship **today**\n",
		filepath.Join(mem, "2026-03-08.md"):                    "- lesson: test first\n",
		filepath.Join(mem, "inner-monologue", "2026-03-09.md"): "- created a new habit\n",
		filepath.Join(mem, "2026-03-01.md"):                    "- decided something too old\n",
	}
	for path, body := range files {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p := newPromoter(t)
	cands, err := p.ScanRecent(context.Background(), root, 2, day)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("got %d candidates: %+v", len(cands), cands)
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Importance > cands[i-1].Importance {
			t.Fatalf("not sorted by importance: %+v", cands)
		}
	}
	if cands[0].SourceFile != "memory/2026-03-09.md" {
		t.Errorf("top candidate source = %q", cands[0].SourceFile)
	}
}

func TestScanRecentFlatLayout(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "2026-03-09.md"), []byte("- will use sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cands, err := newPromoter(t).ScanRecent(context.Background(), root, 1, day)
	if err != nil || len(cands) != 1 || cands[0].SourceFile != "2026-03-09.md" {
		t.Fatalf("cands = %+v, err = %v", cands, err)
	}
}

func TestFormatText(t *testing.T) {
	cands := []Candidate{
		{Text: "test fact", SourceFile: "memory/test.md", Line: 1, Category: Fact, Importance: 0.7},
		{Text: "test lesson", SourceFile: "test.md", Line: 5, Category: Lesson, Importance: 0.5},
	}
	out := FormatText(cands, 15)
	for _, want := range []string{"📋", "Promotion candidates (2 found, showing top 2)", "📌", "💡", "test fact", "[███░░]", "fact | test.md:1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := FormatText(nil, 5); got != "No promotion candidates found." {
		t.Errorf("empty output = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON([]Candidate{{Text: "test item", SourceFile: "test.md", Line: 1, Category: Fact, Importance: 0.7}})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	var parsed []map[string]any
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(parsed) != 1 || parsed[0]["text"] != "test item" || parsed[0]["category"] != "fact" || parsed[0]["importance"] != 0.7 {
		t.Fatalf("parsed = %v", parsed)
	}
	if parsed[0]["line_num"] != 1.0 || parsed[0]["source_file"] != "test.md" {
		t.Fatalf("parsed = %v", parsed)
	}

	empty, _ := FormatJSON(nil)
	if string(empty) != "[]" {
		t.Errorf("empty = %s", empty)
	}
}
