package tui

import (
	"context"
	"errors"
	"os"

	"agentmem/internal/index"
	"agentmem/internal/walker"

	tea "github.com/charmbracelet/bubbletea"
)

var errStopWalk = errors.New("tui: stop walk")

type indexStatus int

const (
	indexNotFound indexStatus = iota
	indexReady
	indexStale
)

type welcomeModel struct {
	status      indexStatus
	staleReason string
	idx         *index.Index
	ready       bool
}

// checkIndexMsg is sent after checking the snapshot.
type checkIndexMsg struct {
	status      indexStatus
	staleReason string
	idx         *index.Index
}

func checkIndex(cfg Config) tea.Cmd {
	return func() tea.Msg {
		info, err := os.Stat(cfg.Snapshot)
		if err != nil {
			return checkIndexMsg{status: indexNotFound}
		}
		if changed := changedSince(cfg, info.ModTime().UnixNano()); changed != "" {
			return checkIndexMsg{
				status:      indexStale,
				staleReason: "changed since last index: " + changed,
			}
		}
		idx, err := index.Load(context.Background(), cfg.Snapshot, cfg.Index)
		if err != nil {
			return checkIndexMsg{status: indexStale, staleReason: err.Error()}
		}
		return checkIndexMsg{status: indexReady, idx: idx}
	}
}

// changedSince returns the first memory file modified after the given
// time, or "" when none is.
func changedSince(cfg Config, since int64) string {
	var changed string
	_ = walker.Walk(context.Background(), cfg.Root, walker.Options{
		Extensions: cfg.Index.Extensions,
		Ignore:     cfg.Index.Ignore,
		SkipHidden: true,
	}, func(fi walker.FileInfo) error {
		st, err := os.Stat(fi.Path)
		if err != nil || fi.Path == cfg.Snapshot {
			return nil
		}
		if st.ModTime().UnixNano() > since {
			changed = fi.RelPath
			return errStopWalk
		}
		return nil
	})
	return changed
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkIndexMsg:
		m.status = msg.status
		m.staleReason = msg.staleReason
		m.idx = msg.idx
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ agentmem") + "\n"
	s += subtitleStyle.Render("  Search and curate your agent's memory") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking index...") + "\n"
		return s
	}

	switch m.status {
	case indexReady:
		s += successStyle.Render("  ✓ Index ready") + "\n"
		s += "\n" + dimStyle.Render("  Press Enter to browse") + "\n"
		return s
	case indexNotFound:
		s += warnStyle.Render("  ✗ No index found") + "\n"
	case indexStale:
		s += warnStyle.Render("  ⚠ Index stale") + "\n"
		s += dimStyle.Render("    "+m.staleReason) + "\n"
	}

	s += "\n"
	s += dimStyle.Render("  Press Enter to build the index") + "\n"
	return s
}
