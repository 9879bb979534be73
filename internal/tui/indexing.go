package tui

import (
	"context"
	"fmt"

	"agentmem/internal/index"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type indexingModel struct {
	spinner spinner.Model
	done    bool
	idx     *index.Index
	stats   index.Stats
	err     error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{spinner: sp}
}

// indexDoneMsg is sent when indexing completes. idx is set whenever the
// build succeeded, even if saving the snapshot failed.
type indexDoneMsg struct {
	idx *index.Index
	err error
}

func runIndex(cfg Config) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		idx, err := index.Build(ctx, cfg.Root, cfg.Index)
		if err != nil {
			return indexDoneMsg{err: err}
		}
		if err := idx.Save(ctx, cfg.Snapshot); err != nil {
			return indexDoneMsg{idx: idx, err: err}
		}
		return indexDoneMsg{idx: idx}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.done = true
		m.idx = msg.idx
		m.err = msg.err
		if msg.idx != nil {
			m.stats = msg.idx.Stats()
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Indexing") + "\n\n"

	if !m.done {
		s += fmt.Sprintf("  %s %s\n", m.spinner.View(), "Indexing memory files...")
		return s
	}

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
		if m.idx == nil {
			s += dimStyle.Render("  Press q to quit.") + "\n"
			return s
		}
		s += dimStyle.Render("  The snapshot was not saved. Press Enter to browse anyway, or q to quit.") + "\n"
		return s
	}
	s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
	s += fmt.Sprintf("  Files: %d indexed\n", m.stats.FilesIndexed)
	s += fmt.Sprintf("  Tokens: %d unique, %d references\n", m.stats.UniqueTokens, m.stats.TotalTokenRefs)
	s += "\n"
	s += dimStyle.Render("  Press Enter to browse") + "\n"
	return s
}
