package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/domain"
	"filesearch/internal/service"
)

type stubPort struct {
	results   []domain.SearchResult
	statusErr error
	queries   []string
	limits    []int
}

func (s *stubPort) Search(_ context.Context, query string, limit int) []domain.SearchResult {
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)
	return s.results
}

func (s *stubPort) Status(context.Context) (service.Status, error) {
	if s.statusErr != nil {
		return service.Status{}, s.statusErr
	}
	return service.Status{IndexCount: 42, Embedder: "local", Store: "bolt"}, nil
}

func typeText(m tea.Model, text string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestModelSearchAndNavigate(t *testing.T) {
	port := &stubPort{results: []domain.SearchResult{
		{Path: "/docs/garden.txt", Name: "garden.txt", Category: domain.CategoryText, Similarity: 0.91},
		{Path: "/pics/basil.png", Name: "basil.png", Category: domain.CategoryImage, Similarity: 0.72},
	}}
	var m tea.Model = New(port, nil, 7)
	assert.Equal(t, "Loading...", m.View())

	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.Contains(t, m.View(), "42 files indexed (local, bolt)")

	m = typeText(m, "  garden herbs ")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"garden herbs"}, port.queries)
	assert.Equal(t, []int{7}, port.limits)

	view := m.View()
	assert.Contains(t, view, `2 results for "garden herbs"`)
	assert.Contains(t, view, "0.9100")
	assert.Contains(t, view, "/docs/garden.txt")

	sel, ok := m.(Model).Selected()
	require.True(t, ok)
	assert.Equal(t, "/docs/garden.txt", sel.Path)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	sel, _ = m.(Model).Selected()
	assert.Equal(t, "/pics/basil.png", sel.Path)

	// wraps around
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	sel, _ = m.(Model).Selected()
	assert.Equal(t, "/docs/garden.txt", sel.Path)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	sel, _ = m.(Model).Selected()
	assert.Equal(t, "/pics/basil.png", sel.Path)
}

func TestModelNoResults(t *testing.T) {
	port := &stubPort{}
	var m tea.Model = New(port, nil, 0)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, port.queries, "blank input is not searched")

	m = typeText(m, "nothing")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []int{10}, port.limits)
	assert.Contains(t, m.View(), `No matches for "nothing"`)
	assert.Contains(t, m.View(), "No results yet.")

	_, ok := m.(Model).Selected()
	assert.False(t, ok)
}

func TestModelStatusErrorAndQuit(t *testing.T) {
	var m tea.Model = New(&stubPort{statusErr: errors.New("store offline")}, nil, 5)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.Contains(t, m.View(), "Index unavailable: store offline")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

type stubOpener struct {
	opened []string
	err    error
}

func (o *stubOpener) Open(path string) error {
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, path)
	return nil
}

func TestModelEnterOnSameQueryOpensSelection(t *testing.T) {
	port := &stubPort{results: []domain.SearchResult{
		{Path: "/docs/garden.txt", Name: "garden.txt", Category: domain.CategoryText, Similarity: 0.91},
		{Path: "/pics/basil.png", Name: "basil.png", Category: domain.CategoryImage, Similarity: 0.72},
	}}
	op := &stubOpener{}
	var m tea.Model = New(port, op, 5)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	m = typeText(m, "garden")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, op.opened, "first enter searches")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"/pics/basil.png"}, op.opened)
	assert.Len(t, port.queries, 1)
	assert.Contains(t, m.View(), "Opened /pics/basil.png")

	// a changed query searches again instead of opening
	m = typeText(m, " herbs")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, port.queries, 2)
	assert.Len(t, op.opened, 1)
}

func TestModelOpenMissingFile(t *testing.T) {
	port := &stubPort{results: []domain.SearchResult{{Path: "/gone.png", Name: "gone.png", Category: domain.CategoryImage}}}
	op := &stubOpener{err: fmt.Errorf("/gone.png: %w", domain.ErrNotFound)}
	var m tea.Model = New(port, op, 5)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	m = typeText(m, "gone")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "/gone.png no longer exists")

	var noOpener tea.Model = New(port, nil, 5)
	noOpener, _ = noOpener.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	noOpener = typeText(noOpener, "gone")
	noOpener, _ = noOpener.Update(tea.KeyMsg{Type: tea.KeyEnter})
	noOpener, _ = noOpener.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, noOpener.View(), "Opening files is not available")
}

func TestHighlightTermsKeepsText(t *testing.T) {
	terms := map[string]struct{}{"garden": {}}
	assert.Equal(t, "notes.txt", highlightTerms("notes.txt", terms))
	assert.Contains(t, highlightTerms("Garden-plan.txt", terms), "-plan.txt")
	assert.Equal(t, "x", highlightTerms("x", nil))
}
