package models

import (
	"strings"
)

// Document is the whole watchlist as stored in the repository.
type Document struct {
	Movies []Item `json:"movies"`
	Series []Item `json:"series"`
}

// NewDocument returns an empty document whose lists encode as [] rather than null.
func NewDocument() Document {
	return Document{Movies: []Item{}, Series: []Item{}}
}

// Normalize replaces nil lists with empty ones.
func (d *Document) Normalize() {
	if d.Movies == nil {
		d.Movies = []Item{}
	}
	if d.Series == nil {
		d.Series = []Item{}
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := Document{
		Movies: make([]Item, len(d.Movies)),
		Series: make([]Item, len(d.Series)),
	}
	copy(out.Movies, d.Movies)
	copy(out.Series, d.Series)
	return out
}

// List returns the items of kind.
func (d Document) List(kind ListKind) []Item {
	if kind == Movies {
		return d.Movies
	}
	return d.Series
}

// Len counts items in both lists.
func (d Document) Len() int {
	return len(d.Movies) + len(d.Series)
}

// Add appends item to the list matching its type and re-sorts that list.
func (d *Document) Add(item Item, order string) ListKind {
	kind := item.ListKind()
	list := append(d.List(kind), item)
	SortItems(list, order)
	d.set(kind, list)
	return kind
}

// Remove drops every item with imdbID from both lists and reports how many were removed.
func (d *Document) Remove(imdbID string) int {
	removed := 0
	for _, kind := range []ListKind{Movies, Series} {
		src := d.List(kind)
		kept := make([]Item, 0, len(src))
		for _, it := range src {
			if it.IMDbID == imdbID {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		d.set(kind, kept)
	}
	return removed
}

// Find returns the item with imdbID, if any.
func (d Document) Find(imdbID string) (Item, bool) {
	for _, kind := range []ListKind{Movies, Series} {
		for _, it := range d.List(kind) {
			if it.IMDbID == imdbID {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Filter returns the items of kind whose title or notes contain query, case-insensitively.
func (d Document) Filter(kind ListKind, query string) []Item {
	query = strings.ToLower(strings.TrimSpace(query))
	src := d.List(kind)
	out := make([]Item, 0, len(src))
	for _, it := range src {
		if query == "" ||
			strings.Contains(strings.ToLower(it.Title), query) ||
			strings.Contains(strings.ToLower(it.Notes), query) {
			out = append(out, it)
		}
	}
	return out
}

func (d *Document) set(kind ListKind, items []Item) {
	if kind == Movies {
		d.Movies = items
	} else {
		d.Series = items
	}
}
