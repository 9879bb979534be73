package promote

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var bulletPrefixes = []string{"- ", "* ", "• "}

// ScanText classifies every non-empty, non-heading line of content.
// A line that matches several categories yields one candidate per category.
func (p *Promoter) ScanText(source, content string) []Candidate {
	var out []Candidate
	for i, line := range strings.Split(content, "\n") {
		text := strings.TrimSpace(line)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		for _, b := range bulletPrefixes {
			if strings.HasPrefix(text, b) {
				text = strings.TrimPrefix(text, b)
				break
			}
		}
		for _, cat := range p.matcher.Match(text) {
			out = append(out, Candidate{
				Text:       text,
				SourceFile: source,
				Line:       i + 1,
				Category:   cat,
				Importance: Score(text, cat),
			})
		}
	}
	return out
}

// ScanFile reads path and classifies its lines, recording source as the
// candidates' file. An unreadable file yields no candidates.
func (p *Promoter) ScanFile(path, source string) []Candidate {
	src, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Debug("promote: skip unreadable file", "path", path, "error", err)
		}
		return nil
	}
	return p.ScanText(source, string(src))
}

// LogDir returns root/memory, or root itself when that directory is absent.
func LogDir(root string) string {
	dir := filepath.Join(root, "memory")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return root
}

// ScanRecent scans the daily logs for the last days days, today included,
// and returns the deduplicated candidates ordered by importance.
func (p *Promoter) ScanRecent(ctx context.Context, root string, days int, now time.Time) ([]Candidate, error) {
	dir := LogDir(root)
	var cands []Candidate
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := now.AddDate(0, 0, -i).Format("2006-01-02") + ".md"
		for _, path := range []string{
			filepath.Join(dir, name),
			filepath.Join(dir, "inner-monologue", name),
		} {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			cands = append(cands, p.ScanFile(path, filepath.ToSlash(rel))...)
		}
	}
	p.logger.Debug("promote: scanned recent logs", "dir", dir, "days", days, "candidates", len(cands))
	return Dedupe(cands, p.dedupe), nil
}

// SortByImportance orders candidates by descending importance, keeping
// the existing order among equals.
func SortByImportance(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Importance > cands[j].Importance
	})
}
