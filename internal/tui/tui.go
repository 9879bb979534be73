package tui

import (
	"time"

	"agentmem/internal/budget"
	"agentmem/internal/index"
	"agentmem/internal/promote"

	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIndexing
	ViewBrowse
)

// Config holds configuration passed from the CLI layer.
type Config struct {
	// Root is the memory directory.
	Root string
	// Snapshot is the absolute path of the saved keyword index.
	Snapshot string

	Index    index.Options
	Budget   budget.Options
	Promoter *promote.Promoter

	Days  int
	Top   int
	Limit int

	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome  welcomeModel
	indexing indexingModel
	browse   browseModel
	err      error
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	return Model{
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return checkIndex(m.config)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewBrowse {
			var c tea.Cmd
			m.browse, c = m.browse.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewBrowse {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.welcome.ready {
			if m.welcome.status == indexReady {
				m.transitionToBrowse(m.welcome.idx)
				return m, nil
			}
			m.state = ViewIndexing
			m.indexing = newIndexingModel()
			return m, tea.Batch(m.indexing.spinner.Tick, runIndex(m.config))
		}

	case ViewIndexing:
		m.indexing, cmd = m.indexing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.indexing.done && m.indexing.idx != nil {
			m.transitionToBrowse(m.indexing.idx)
			return m, nil
		}

	case ViewBrowse:
		m.browse, cmd = m.browse.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) transitionToBrowse(idx *index.Index) {
	m.browse = newBrowseModel(idx, m.config)
	m.browse.initViewport(m.width, m.height)
	m.state = ViewBrowse
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewIndexing:
		return m.indexing.View(m.width, m.height)
	case ViewBrowse:
		return m.browse.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
