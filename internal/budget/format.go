package budget

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const pathWidth = 40

var printer = message.NewPrinter(language.English)

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// FormatTable renders the top stats as an aligned table with a total.
func FormatTable(stats []FileStats, top int) string {
	total := Total(stats)
	rule := strings.Repeat("─", 65)

	var b strings.Builder
	b.WriteString("📊 Memory Budget Analysis\n")
	printer.Fprintf(&b, "   %d files | ~%d estimated tokens\n", len(stats), total)
	b.WriteString(rule + "\n")

	shown := stats
	if top > 0 && len(stats) > top {
		shown = stats[:top]
	}
	for _, s := range shown {
		path := runewidth.FillRight(runewidth.Truncate(s.Path, pathWidth, "…"), pathWidth)
		printer.Fprintf(&b, "  %s %6d tok  %s  %4.1f%%\n", path, s.Tokens, s.Bar(), percent(s.Tokens, total))
	}
	if rest := stats[len(shown):]; len(rest) > 0 {
		printer.Fprintf(&b, "  ... +%d more files (%d tokens)\n", len(rest), Total(rest))
	}
	b.WriteString(rule + "\n")
	printer.Fprintf(&b, "  TOTAL: ~%d tokens", total)
	return b.String()
}

// FormatCSV renders stats as CSV with a header and a closing TOTAL row.
func FormatCSV(stats []FileStats) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	total := Total(stats)

	_ = w.Write([]string{"path", "bytes", "lines", "tokens", "pct"})
	var bytesSum, linesSum int
	for _, s := range stats {
		bytesSum += s.Bytes
		linesSum += s.Lines
		_ = w.Write([]string{
			s.Path,
			strconv.Itoa(s.Bytes),
			strconv.Itoa(s.Lines),
			strconv.Itoa(s.Tokens),
			fmt.Sprintf("%.1f", percent(s.Tokens, total)),
		})
	}
	_ = w.Write([]string{"TOTAL", strconv.Itoa(bytesSum), strconv.Itoa(linesSum), strconv.Itoa(total), "100.0"})
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}

// FormatWake renders a wake sequence report.
func FormatWake(entries []WakeEntry, total int) string {
	var b strings.Builder
	b.WriteString("🌅 Wake Sequence Cost:\n")
	for _, e := range entries {
		path := runewidth.FillRight(e.Path, 35)
		if e.Found {
			printer.Fprintf(&b, "  ✅ %s ~%d tokens\n", path, e.Tokens)
		} else {
			fmt.Fprintf(&b, "  ❌ %s (not found)\n", path)
		}
	}
	b.WriteString("  " + strings.Repeat("─", 45) + "\n")
	printer.Fprintf(&b, "  Total wake cost: ~%d tokens", total)
	return b.String()
}
