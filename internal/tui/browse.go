package tui

import (
	"context"
	"fmt"
	"strings"

	"agentmem/internal/budget"
	"agentmem/internal/index"
	"agentmem/internal/promote"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const helpText = "Type words to search memory.\n\nCommands:\n" +
	"  /promote  - list promotion candidates from recent logs\n" +
	"  /budget   - show token cost per file\n" +
	"  /reindex  - rebuild the index from disk\n" +
	"  /clear    - clear the screen\n" +
	"  /exit     - quit\n" +
	"  /help     - show this help"

type browseModel struct {
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	entries     []entry
	idx         *index.Index
	cfg         Config
	busy        bool
	width       int
	height      int
	initialized bool
}

type entry struct {
	role    string
	content string
}

// resultMsg carries the markdown output of a finished command.
type resultMsg struct {
	content string
	idx     *index.Index
	err     error
}

func newBrowseModel(idx *index.Index, cfg Config) browseModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Search memory, or /help..."
	ti.CharLimit = 500
	ti.Focus()

	return browseModel{
		spinner: sp,
		input:   ti,
		idx:     idx,
		cfg:     cfg,
	}
}

func (m *browseModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	vpHeight := height - 3
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(dimStyle.Render(helpText))

	m.input.Width = width - 4

	wrap := width - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = r
	}

	m.initialized = true
}

func searchMemory(idx *index.Index, query string, limit int) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{content: resultsMarkdown(query, idx.Search(query, limit, 1))}
	}
}

func listCandidates(cfg Config) tea.Cmd {
	return func() tea.Msg {
		if cfg.Promoter == nil {
			return resultMsg{err: fmt.Errorf("promotion is not configured")}
		}
		cands, err := cfg.Promoter.ScanRecent(context.Background(), cfg.Root, cfg.Days, cfg.now())
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{content: candidatesMarkdown(cands, cfg.Top)}
	}
}

func showBudget(cfg Config) tea.Cmd {
	return func() tea.Msg {
		stats, err := budget.AnalyzeDir(context.Background(), cfg.Root, cfg.Budget)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{content: "```\n" + budget.FormatTable(stats, 20) + "\n```"}
	}
}

func reindex(cfg Config) tea.Cmd {
	return func() tea.Msg {
		done := runIndex(cfg)().(indexDoneMsg)
		if done.idx == nil {
			return resultMsg{err: done.err}
		}
		st := done.idx.Stats()
		content := fmt.Sprintf("Reindexed **%d** files, **%d** unique tokens.", st.FilesIndexed, st.UniqueTokens)
		return resultMsg{content: content, idx: done.idx, err: done.err}
	}
}

func resultsMarkdown(query string, results []index.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for *%s*", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %d hits for *%s*\n\n", len(results), query)
	for _, r := range results {
		fmt.Fprintf(&sb, "**%s:%d** (%.0f%%)\n\n", r.File, r.Line, r.Score*100)
		lines := r.Context
		if len(lines) == 0 {
			lines = []string{r.Text}
		}
		sb.WriteString("```\n" + strings.Join(lines, "\n") + "\n```\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func candidatesMarkdown(cands []promote.Candidate, top int) string {
	if len(cands) == 0 {
		return "No promotion candidates found."
	}
	shown := cands
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Promotion candidates (%d found, showing top %d)\n\n", len(cands), len(shown))
	for i, c := range shown {
		fmt.Fprintf(&sb, "%d. %s %s  \n   *%s %.2f, %s:%d*\n", i+1, promote.Emoji[c.Category], c.Text, c.Category, c.Importance, c.SourceFile, c.Line)
	}
	sb.WriteString("\nRun `agentmem promote --apply` to write them to MEMORY.md.")
	return sb.String()
}

func (m browseModel) Update(msg tea.Msg) (browseModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case resultMsg:
		m.busy = false
		if msg.idx != nil {
			m.idx = msg.idx
		}
		if msg.content != "" {
			m.entries = append(m.entries, entry{role: "result", content: msg.content})
		}
		if msg.err != nil {
			m.entries = append(m.entries, entry{role: "error", content: msg.err.Error()})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()

			var run tea.Cmd
			switch line {
			case "/exit", "/quit":
				return m, tea.Quit
			case "/clear":
				m.entries = nil
				m.viewport.SetContent(dimStyle.Render("Cleared."))
				return m, nil
			case "/help":
				m.entries = append(m.entries, entry{role: "system", content: helpText})
				m.refresh()
				return m, nil
			case "/promote":
				run = listCandidates(m.cfg)
			case "/budget":
				run = showBudget(m.cfg)
			case "/reindex":
				run = reindex(m.cfg)
			default:
				if strings.HasPrefix(line, "/") {
					m.entries = append(m.entries, entry{role: "error", content: "unknown command " + line + " (try /help)"})
					m.refresh()
					return m, nil
				}
				run = searchMemory(m.idx, line, m.cfg.Limit)
			}

			m.entries = append(m.entries, entry{role: "query", content: line})
			m.busy = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, run)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *browseModel) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m browseModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return resultStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return resultStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m browseModel) render() string {
	var sb strings.Builder
	for _, e := range m.entries {
		switch e.role {
		case "query":
			sb.WriteString(queryStyle.Render("› ") + e.content + "\n\n")
		case "result":
			sb.WriteString(m.renderMarkdown(e.content) + "\n\n")
		case "error":
			sb.WriteString(errorStyle.Render("Error: "+e.content) + "\n\n")
		case "system":
			sb.WriteString(dimStyle.Render(e.content) + "\n\n")
		}
	}
	if m.busy {
		sb.WriteString(m.spinner.View() + " " + dimStyle.Render("Working...") + "\n")
	}
	return sb.String()
}

func (m browseModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	status := "ready"
	if m.busy {
		status = "working..."
	}
	files := 0
	if m.idx != nil {
		files = m.idx.Stats().FilesIndexed
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" agentmem • %d files • %s", files, status))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}
