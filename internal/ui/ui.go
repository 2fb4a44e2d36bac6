package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/services"
	"github.com/saur-hub/watchlist/internal/shared"
	"github.com/saur-hub/watchlist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	SearchView
	ResultsView
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	controller *tasks.Controller
	metadata   services.MetadataProvider
	progress   <-chan tasks.ProgressUpdate
	width      int
	height     int
	kind       models.ListKind
	doc        models.Document
	items      list.Model
	results    list.Model
	query      textinput.Model
	status     string
	saveErr    bool
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model. progress must be the channel the controller was built with; it may be nil.
func NewModel(ctx context.Context, controller *tasks.Controller, metadata services.MetadataProvider, progress <-chan tasks.ProgressUpdate) *Model {
	query := textinput.New()
	query.Placeholder = "Title to search for"
	query.CharLimit = 120

	items := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	items.SetShowHelp(false)
	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.SetShowHelp(false)

	return &Model{
		ctx:        ctx,
		view:       ListView,
		controller: controller,
		metadata:   metadata,
		progress:   progress,
		kind:       models.Movies,
		doc:        models.NewDocument(),
		items:      items,
		results:    results,
		query:      query,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init loads the watchlist and starts listening for save progress.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.items.SetSize(msg.Width-4, msg.Height-8)
		m.results.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case ResultsView:
			return m.handleResultsKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgDocumentLoaded:
		data := msg.data.(documentLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.doc = data.doc
		m.refreshItems()
		m.status = fmt.Sprintf("Loaded %d movies, %d series", len(m.doc.Movies), len(m.doc.Series))
		return m, nil

	case MsgSearchResults:
		data := msg.data.(searchResults)
		if data.err != nil {
			m.setStatus(fmt.Sprintf("Search failed: %v", data.err), true)
			m.view = SearchView
			return m, nil
		}
		m.results.SetItems(resultItems(data.results))
		m.results.Title = fmt.Sprintf("Results for '%s'", data.query)
		m.results.Select(0)
		m.view = ResultsView
		if len(data.results) == 0 {
			m.setStatus("No results", false)
		}
		return m, nil

	case MsgEdited:
		data := msg.data.(edited)
		if data.err != nil {
			m.setStatus(describe(data.err), true)
			return m, nil
		}
		m.doc = m.controller.Document()
		m.refreshItems()
		m.setStatus(data.status, false)
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		_, failed := update.Data.(error)
		m.setStatus(update.Message, failed)
		return m, m.waitForProgress()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to reload, q to quit", m.err))
	}

	switch m.view {
	case ListView:
		return m.renderList()
	case SearchView:
		return m.renderSearch()
	case ResultsView:
		return m.renderResults()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.items.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.err = nil
		return m, m.load()
	case m.err != nil:
		return m, nil
	case key.Matches(msg, m.keys.tab):
		if m.kind == models.Movies {
			m.kind = models.Series
		} else {
			m.kind = models.Movies
		}
		m.items.ResetFilter()
		m.refreshItems()
		return m, nil
	case key.Matches(msg, m.keys.add):
		m.view = SearchView
		m.query.SetValue("")
		return m, m.query.Focus()
	case key.Matches(msg, m.keys.remove):
		if selected, ok := m.items.SelectedItem().(watchItem); ok {
			return m, m.remove(selected.item)
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.query.Blur()
		m.view = ListView
		return m, nil
	case "enter":
		q := strings.TrimSpace(m.query.Value())
		if q == "" {
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Searching for '%s'...", q), false)
		return m, m.search(q)
	}

	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

func (m *Model) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.results.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = SearchView
		return m, m.query.Focus()
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.results.SelectedItem().(resultItem); ok {
			m.view = ListView
			m.query.Blur()
			return m, m.add(selected.result)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ListView:
		m.items, cmd = m.items.Update(msg)
	case ResultsView:
		m.results, cmd = m.results.Update(msg)
	case SearchView:
		m.query, cmd = m.query.Update(msg)
	}
	return m, cmd
}

func (m *Model) refreshItems() {
	m.items.Title = fmt.Sprintf("%s (%d)", tabName(m.kind), len(m.doc.List(m.kind)))
	m.items.SetItems(watchItems(m.doc.List(m.kind)))
}

func (m *Model) setStatus(status string, failed bool) {
	m.status = status
	m.saveErr = failed
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		doc, err := m.controller.Load(m.ctx)
		return documentLoadedMsg(doc, err)
	}
}

func (m *Model) search(query string) tea.Cmd {
	return func() tea.Msg {
		if m.metadata == nil {
			return searchResultsMsg(query, nil, fmt.Errorf("%w: no OMDB API key or proxy configured", shared.ErrMissingConfig))
		}
		results, err := m.metadata.Search(m.ctx, query)
		return searchResultsMsg(query, results, err)
	}
}

func (m *Model) add(result services.SearchResult) tea.Cmd {
	return func() tea.Msg {
		tickets, err := m.controller.AddByIDs(m.ctx, []string{result.IMDbID}, "", "")
		if err != nil {
			return editedMsg("", err)
		}
		if len(tickets) == 0 {
			return editedMsg("", fmt.Errorf("%w: %s (%s)", shared.ErrDuplicate, result.Title, result.Year))
		}
		return editedMsg(fmt.Sprintf("Added %s (%s)", result.Title, result.Year), nil)
	}
}

func (m *Model) remove(item models.Item) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.controller.Remove(m.ctx, item.IMDbID); err != nil {
			return editedMsg("", err)
		}
		return editedMsg(fmt.Sprintf("Removed %s (%s)", item.Title, item.Year), nil)
	}
}

// waitForProgress blocks on the progress channel; each update re-arms it. A nil channel disables the status feed.
func (m *Model) waitForProgress() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	ch := m.progress
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, 2)
	for _, kind := range []models.ListKind{models.Movies, models.Series} {
		label := fmt.Sprintf("%s %d", tabName(kind), len(m.doc.List(kind)))
		if kind == m.kind {
			tabs = append(tabs, styles.active.Render(label))
		} else {
			tabs = append(tabs, styles.tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderStatus() string {
	status := m.status
	if m.controller.Pending() {
		status = strings.TrimSpace(status + " (unsaved changes)")
	}
	switch {
	case status == "":
		return ""
	case m.saveErr:
		return styles.err.Render(status)
	default:
		return styles.ok.Render(status)
	}
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.tab, m.keys.filter, m.keys.quit}
	if m.controller.Session().CanEdit() {
		helpKeys = []key.Binding{m.keys.tab, m.keys.filter, m.keys.add, m.keys.remove, m.keys.reload, m.keys.quit}
	}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", m.renderTabs(), m.items.View(), m.renderStatus(), helpView)
}

func (m *Model) renderSearch() string {
	title := styles.title.Render("Add to watchlist")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, m.query.View(), m.renderStatus(), helpView)
}

func (m *Model) renderResults() string {
	addKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add"))
	helpView := m.help.ShortHelpView([]key.Binding{addKey, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", m.results.View(), m.renderStatus(), helpView)
}

func tabName(kind models.ListKind) string {
	if kind == models.Series {
		return "Series"
	}
	return "Movies"
}

// describe turns controller errors into status-line text.
func describe(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return "Sign in with `watchlist auth login` to edit"
	case errors.Is(err, shared.ErrNotOwner):
		return "Only the repository owner can edit this watchlist"
	case errors.Is(err, shared.ErrDuplicate):
		return fmt.Sprintf("Already on the list: %v", err)
	default:
		return err.Error()
	}
}
