package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"filesearch/internal/domain"
	"filesearch/internal/service"
	"filesearch/internal/textprep"
)

// SearchPort is the TUI-facing subset of the search service.
type SearchPort interface {
	Search(ctx context.Context, query string, limit int) []domain.SearchResult
	Status(ctx context.Context) (service.Status, error)
}

// Opener launches a file with the system handler.
type Opener interface {
	Open(path string) error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service   SearchPort
	opener    Opener
	limit     int
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	summary   string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance. Pressing Enter again on an unchanged
// query opens the selected result with opener; a nil opener disables that.
func New(svc SearchPort, opener Opener, limit int) Model {
	if limit <= 0 {
		limit = 10
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the file you are looking for and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{service: svc, opener: opener, limit: limit, input: ti, viewport: vp}
	m.summary = m.describeIndex()
	m.status = "Type to search."
	return m
}

func (m Model) describeIndex() string {
	st, err := m.service.Status(context.Background())
	if err != nil {
		return "Index unavailable: " + err.Error()
	}
	return fmt.Sprintf("%d files indexed (%s, %s)", st.IndexCount, st.Embedder, st.Store)
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResults())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && q == m.lastQuery && len(m.results) > 0 {
				m.status = m.openSelected()
				return m, nil
			}
			if q != "" {
				m.results = m.service.Search(context.Background(), q, m.limit)
				m.cursor = 0
				m.lastQuery = q
				if len(m.results) == 0 {
					m.status = fmt.Sprintf("No matches for %q", q)
				} else {
					m.status = fmt.Sprintf("%d results for %q", len(m.results), q)
				}
				m.viewport.SetContent(m.renderResults())
				m.viewport.GotoTop()
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the result list.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("File Search")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

// Selected returns the highlighted result, if any.
func (m Model) Selected() (domain.SearchResult, bool) {
	if len(m.results) == 0 {
		return domain.SearchResult{}, false
	}
	return m.results[m.cursor], true
}

func (m Model) openSelected() string {
	sel, _ := m.Selected()
	if m.opener == nil {
		return "Opening files is not available"
	}
	if err := m.opener.Open(sel.Path); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Sprintf("%s no longer exists; re-index or remove it", sel.Path)
		}
		return "Error: " + err.Error()
	}
	return "Opened " + sel.Path
}

func (m Model) renderResults() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	terms := make(map[string]struct{})
	for _, t := range textprep.Tokens(m.lastQuery) {
		terms[t] = struct{}{}
	}
	var b strings.Builder
	for i, r := range m.results {
		line := fmt.Sprintf("%.4f  %-5s  %s", r.Similarity, r.Category, highlightTerms(r.Name, terms))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
			b.WriteString("\n    " + pathStyle.Render(r.Path))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	selectedStyle  = lipgloss.NewStyle().Bold(true)
	pathStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// highlightTerms marks file-name words that also appear in the query.
func highlightTerms(name string, terms map[string]struct{}) string {
	if len(terms) == 0 {
		return name
	}
	var b strings.Builder
	word := strings.Builder{}
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		word.Reset()
		if _, ok := terms[strings.ToLower(w)]; ok {
			b.WriteString(highlightStyle.Render(w))
			return
		}
		b.WriteString(w)
	}
	for _, r := range name {
		if isWordRune(r) {
			word.WriteRune(r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
