package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/services"
	"github.com/saur-hub/watchlist/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgDocumentLoaded MsgKind = iota
	MsgSearchResults
	MsgEdited
	MsgProgressUpdate
)

type documentLoaded struct {
	doc models.Document
	err error
}

type searchResults struct {
	query   string
	results []services.SearchResult
	err     error
}

type edited struct {
	status string
	err    error
}

// documentLoadedMsg is the constructor for [MsgDocumentLoaded]
func documentLoadedMsg(doc models.Document, err error) Msg {
	return Msg{kind: MsgDocumentLoaded, data: documentLoaded{doc, err}}
}

// searchResultsMsg is the constructor for [MsgSearchResults]
func searchResultsMsg(query string, results []services.SearchResult, err error) Msg {
	return Msg{kind: MsgSearchResults, data: searchResults{query, results, err}}
}

// editedMsg is the constructor for [MsgEdited]
func editedMsg(status string, err error) Msg {
	return Msg{kind: MsgEdited, data: edited{status, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}
