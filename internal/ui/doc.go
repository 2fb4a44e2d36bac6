// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a view over [tasks.Controller]:
//  1. [ListView] : Browse the movies and series lists, switch with tab, filter with /
//  2. [SearchView] : Query OMDB by title
//  3. [ResultsView] : Pick a search result to add to the watchlist
//
// Edits return immediately; the controller coalesces them into commits in the background. Save progress flows
// through a [tasks.ProgressUpdate] channel and is shown in the status line.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
