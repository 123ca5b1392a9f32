package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hyperjump/folio/internal/fileid"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/pkg/utils"
)

// Model is the Bubble Tea model for the REPL.
type Model struct {
	ctx        context.Context
	backend    Backend
	topK       int
	collection string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	lines    []string
	status   string
	busy     bool
	ready    bool
}

type indexedMsg struct {
	path       string
	collection string
	result     *indexer.Result
	err        error
}

type resultsMsg struct {
	query   string
	results []models.SearchResult
	err     error
}

type collectionsMsg struct {
	names []string
	err   error
}

var (
	outputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	scoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// New creates a REPL model. collection may be empty; topK <= 0 means the engine default.
func New(ctx context.Context, backend Backend, collection string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "type a query or a command (help)"
	ti.Focus()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := Model{
		ctx:        ctx,
		backend:    backend,
		topK:       topK,
		collection: collection,
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		status:     "Ready. Type help for commands.",
	}
	return m
}

// Collection returns the selected collection.
func (m Model) Collection() string { return m.collection }

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles input, window and command result messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, oh := outputBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-oh)
		m.input.Width = max(10, msg.Width-8)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := m.input.Value()
			m.input.SetValue("")
			return m.run(line)
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case indexedMsg:
		m.busy = false
		if msg.err != nil {
			m.fail(fmt.Sprintf("indexing %s failed: %v", msg.path, msg.err))
			return m, nil
		}
		m.collection = msg.collection
		m.print(indexer.FormatResult(msg.result))
		m.status = "Using collection " + m.collection
		m.refresh()
		return m, nil

	case resultsMsg:
		m.busy = false
		if msg.err != nil {
			m.fail("search failed: " + msg.err.Error())
			return m, nil
		}
		m.print(renderResults(msg.query, msg.results))
		m.status = fmt.Sprintf("%d results", len(msg.results))
		m.refresh()
		return m, nil

	case collectionsMsg:
		m.busy = false
		if msg.err != nil {
			m.fail("listing collections failed: " + msg.err.Error())
			return m, nil
		}
		if len(msg.names) == 0 {
			m.print("No collections")
		} else {
			m.print(strings.Join(msg.names, "\n"))
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) run(line string) (tea.Model, tea.Cmd) {
	cmd, err := ParseCommand(line)
	if err != nil {
		m.fail(err.Error())
		return m, nil
	}
	if cmd.Verb == "" {
		return m, nil
	}
	m.print(dimStyle.Render("> " + strings.TrimSpace(line)))

	switch cmd.Verb {
	case VerbExit:
		return m, tea.Quit
	case VerbHelp:
		m.print(helpText)
		m.refresh()
		return m, nil
	case VerbUse:
		m.collection = cmd.Args[0]
		m.status = "Using collection " + m.collection
		m.refresh()
		return m, nil
	case VerbFile:
		path := cmd.Args[0]
		collection := fileid.CollectionName(path)
		if len(cmd.Args) == 2 {
			collection = cmd.Args[1]
		}
		m.start("Indexing " + path + " into " + collection)
		ctx, backend := m.ctx, m.backend
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			res, err := backend.IndexFile(ctx, path, collection)
			return indexedMsg{path: path, collection: collection, result: res, err: err}
		})
	case VerbCollections:
		m.start("Listing collections")
		ctx, backend := m.ctx, m.backend
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			names, err := backend.Collections(ctx)
			return collectionsMsg{names: names, err: err}
		})
	case VerbSearch:
		if m.collection == "" {
			m.fail("no collection selected: use <collection> or file <path> first")
			return m, nil
		}
		m.start("Searching " + m.collection)
		ctx, backend, collection, query, topK := m.ctx, m.backend, m.collection, cmd.Text, m.topK
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			res, err := backend.Query(ctx, collection, query, topK)
			return resultsMsg{query: query, results: res, err: err}
		})
	}
	return m, nil
}

func (m *Model) start(status string) {
	m.busy = true
	m.status = status
	m.refresh()
}

func (m *Model) print(s string) {
	m.lines = append(m.lines, s)
}

func (m *Model) fail(s string) {
	m.busy = false
	m.print(errorStyle.Render(s))
	m.status = "Error"
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func renderResults(query string, results []models.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q", query)
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s page %d\n", scoreStyle.Render(fmt.Sprintf("%d. %.3f", i+1, r.Score)), r.Page)
		b.WriteString("   " + search.Highlight(utils.OneLine(r.Text), 300) + "\n")
	}
	return b.String()
}

// Output returns everything printed so far.
func (m Model) Output() string {
	return strings.Join(m.lines, "\n")
}

// View renders the header, output, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("folio")
	collection := "no collection"
	if m.collection != "" {
		collection = "collection: " + m.collection
	}
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		dimStyle.Render(collection) + "\n" +
		outputBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

// Run starts the REPL on the terminal and blocks until the user exits.
func Run(ctx context.Context, backend Backend, collection string, topK int) error {
	_, err := tea.NewProgram(New(ctx, backend, collection, topK), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
