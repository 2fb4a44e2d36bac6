package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/saur-hub/watchlist/internal/models"
	"github.com/saur-hub/watchlist/internal/services"
)

var (
	_ list.Item = watchItem{}
	_ list.Item = resultItem{}
)

// watchItem wraps [models.Item] to implement [list.Item].
type watchItem struct {
	item models.Item
}

func (i watchItem) FilterValue() string { return i.item.Title + " " + i.item.Notes }
func (i watchItem) Title() string       { return fmt.Sprintf("%s (%s)", i.item.Title, i.item.Year) }
func (i watchItem) Description() string {
	parts := []string{}
	if r := i.item.IMDbRating; r != "" && r != "N/A" {
		parts = append(parts, "IMDb "+r)
	}
	if i.item.MyRating != "" {
		parts = append(parts, "mine "+i.item.MyRating)
	}
	if i.item.Notes != "" {
		parts = append(parts, i.item.Notes)
	}
	if len(parts) == 0 {
		return i.item.IMDbID
	}
	return strings.Join(parts, " • ")
}

// resultItem wraps [services.SearchResult] to implement [list.Item].
type resultItem struct {
	result services.SearchResult
}

func (i resultItem) FilterValue() string { return i.result.Title }
func (i resultItem) Title() string       { return fmt.Sprintf("%s (%s)", i.result.Title, i.result.Year) }
func (i resultItem) Description() string { return fmt.Sprintf("%s • %s", i.result.Type, i.result.IMDbID) }

func watchItems(items []models.Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = watchItem{item: it}
	}
	return out
}

func resultItems(results []services.SearchResult) []list.Item {
	out := make([]list.Item, len(results))
	for i, r := range results {
		out[i] = resultItem{result: r}
	}
	return out
}
