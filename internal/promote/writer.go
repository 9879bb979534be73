package promote

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentmem/internal/markdown"
)

var (
	// ErrUnwritable wraps any failure to write the long-term document.
	ErrUnwritable = errors.New("promote: memory document unwritable")
	// ErrConcurrentEdit is returned when the document changed between read and write.
	ErrConcurrentEdit = errors.New("promote: memory document changed during promotion")
)

// DefaultPresenceThreshold is the share of matching 3-word windows above
// which a candidate counts as already written.
const DefaultPresenceThreshold = 0.4

// DefaultSections lists accepted header texts per category; the first
// alias found in the document wins.
var DefaultSections = map[string][]string{
	Decision: {"Decisions", "Key Decisions", "Рішення"},
	Lesson:   {"Lessons", "Lessons Learned", "Уроки"},
	Fact:     {"Facts", "Key Facts", "Факти"},
	Contact:  {"Contacts", "People", "Контакти"},
	Platform: {"Platforms", "Accounts", "Платформи"},
}

// Section is a heading and the lines it governs.
type Section struct {
	Heading markdown.Heading
	// End is the index one past the section's last line: the next heading
	// of any level, or the line count.
	End int
}

// Placement records where a candidate was written.
type Placement struct {
	Candidate Candidate
	Section   string
}

// Result reports what Apply did.
type Result struct {
	Added   []Placement
	Skipped []Candidate
}

// FindSection locates the section for category using DefaultSections.
func FindSection(doc, category string) (Section, bool) {
	return findSection(strings.Split(doc, "\n"), markdown.Headings(doc), DefaultSections[category])
}

func findSection(lines []string, headings []markdown.Heading, aliases []string) (Section, bool) {
	for _, alias := range aliases {
		for i, h := range headings {
			if !strings.EqualFold(strings.TrimSpace(h.Text), alias) {
				continue
			}
			end := len(lines)
			if i+1 < len(headings) {
				end = headings[i+1].Line
			}
			return Section{Heading: h, End: end}, true
		}
	}
	return Section{}, false
}

// AlreadyPresent reports whether text is substantially contained in doc,
// using DefaultPresenceThreshold.
func AlreadyPresent(text, doc string) bool {
	return alreadyPresent(text, doc, DefaultPresenceThreshold)
}

func alreadyPresent(text, doc string, threshold float64) bool {
	haystack := fold(doc)
	words := strings.Fields(fold(text))
	if len(words) == 0 {
		return true
	}
	if len(words) < 3 {
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				return false
			}
		}
		return true
	}
	total := len(words) - 2
	matched := 0
	for i := 0; i < total; i++ {
		if strings.Contains(haystack, strings.Join(words[i:i+3], " ")) {
			matched++
		}
	}
	return float64(matched)/float64(total) > threshold
}

// Apply writes up to top candidates (all when top <= 0) into doc and
// returns the new document. Candidates already present are skipped; a
// candidate written earlier in the same call counts as present for the
// ones after it. Candidates whose category has no section go under a
// "## Promoted <date>" section at the end.
func (p *Promoter) Apply(doc string, cands []Candidate, top int, now time.Time) (string, Result) {
	if top > 0 && len(cands) > top {
		cands = cands[:top]
	}
	var res Result
	promoted := "Promoted " + now.Format("2006-01-02")
	eol := lineEnding(doc)

	for _, c := range cands {
		if alreadyPresent(c.Text, doc, p.presence) {
			res.Skipped = append(res.Skipped, c)
			continue
		}
		bullet := "- " + Emoji[c.Category] + " " + c.Text

		lines := strings.Split(doc, "\n")
		headings := markdown.Headings(doc)
		sec, ok := findSection(lines, headings, p.sections[c.Category])
		if !ok {
			sec, ok = findSection(lines, headings, []string{promoted})
		}
		if !ok {
			doc = appendSection(doc, promoted, bullet, eol)
			res.Added = append(res.Added, Placement{Candidate: c, Section: promoted})
			continue
		}

		at := sec.End
		for at-1 > sec.Heading.Line && strings.TrimSpace(lines[at-1]) == "" {
			at--
		}
		lines = append(lines[:at], append([]string{bullet + strings.TrimSuffix(eol, "\n")}, lines[at:]...)...)
		doc = strings.Join(lines, "\n")
		res.Added = append(res.Added, Placement{Candidate: c, Section: sec.Heading.Text})
	}
	return doc, res
}

// lineEnding is "\r\n" when doc already uses it, "\n" otherwise.
func lineEnding(doc string) string {
	if strings.Contains(doc, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

func appendSection(doc, title, bullet, eol string) string {
	var b strings.Builder
	b.WriteString(doc)
	if doc != "" {
		if !strings.HasSuffix(doc, "\n") {
			b.WriteString(eol)
		}
		if !strings.HasSuffix(doc, "\n\n") && !strings.HasSuffix(doc, "\n\r\n") {
			b.WriteString(eol)
		}
	}
	b.WriteString("## " + title + eol)
	b.WriteString(bullet + eol)
	return b.String()
}

// ApplyFile runs Apply against the document at path and rewrites it.
// A missing or unreadable document is treated as empty. The file is
// re-read just before writing and left untouched, with ErrConcurrentEdit,
// if its content changed in the meantime.
func (p *Promoter) ApplyFile(path string, cands []Candidate, top int, now time.Time) (Result, error) {
	orig, err := os.ReadFile(path)
	if err != nil {
		p.logger.Debug("promote: memory document treated as empty", "path", path, "error", err)
		orig = nil
	}
	sum := sha256.Sum256(orig)

	updated, res := p.Apply(string(orig), cands, top, now)
	if len(res.Added) == 0 {
		return res, nil
	}

	if p.beforeWrite != nil {
		p.beforeWrite(path)
	}
	current, err := os.ReadFile(path)
	if err != nil {
		current = nil
	}
	if check := sha256.Sum256(current); !bytes.Equal(check[:], sum[:]) {
		return res, fmt.Errorf("%w: %s", ErrConcurrentEdit, path)
	}

	if err := writeFileAtomic(path, []byte(updated)); err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrUnwritable, path, err)
	}
	p.logger.Info("promote: wrote memory document", "path", path, "added", len(res.Added), "skipped", len(res.Skipped))
	return res, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
