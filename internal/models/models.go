// package models defines the data model for the watchlist
package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/saur-hub/watchlist/internal/shared"
)

// TimestampLayout matches the ISO-8601 millisecond timestamps written by browsers.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ListKind names one of the two lists of a [Document].
type ListKind string

const (
	Movies ListKind = "movies"
	Series ListKind = "series"
)

// ParseListKind accepts "movies"/"movie" and "series"/"show"/"tv".
func ParseListKind(s string) (ListKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movies", "movie":
		return Movies, nil
	case "series", "show", "shows", "tv":
		return Series, nil
	default:
		return "", fmt.Errorf("%w: unknown list %q", shared.ErrInvalidArgument, s)
	}
}

// Item is a single watchlist entry.
type Item struct {
	Title      string `json:"title"`
	Year       string `json:"year"`
	MyRating   string `json:"myRating,omitempty"`
	IMDbRating string `json:"imdbRating,omitempty"`
	IMDbID     string `json:"imdbId"`
	PosterURL  string `json:"posterUrl,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Type       string `json:"type,omitempty"`
	AddedAt    string `json:"addedAt,omitempty"`
}

// Validate reports missing required fields.
func (i Item) Validate() error {
	var missing []string
	if strings.TrimSpace(i.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(i.Year) == "" {
		missing = append(missing, "year")
	}
	if strings.TrimSpace(i.IMDbID) == "" {
		missing = append(missing, "imdbId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", shared.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// ListKind returns the list the item belongs to: movies for type "movie", series otherwise.
func (i Item) ListKind() ListKind {
	if strings.EqualFold(i.Type, "movie") {
		return Movies
	}
	return Series
}

// AddedTime parses AddedAt, returning the zero time when absent or malformed.
func (i Item) AddedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, i.AddedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Stamp sets AddedAt to now in the browser timestamp format.
func (i *Item) Stamp(now time.Time) {
	i.AddedAt = now.UTC().Format(TimestampLayout)
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// ParseYear extracts the first run of four digits in s, or 0 if there is none.
//
// OMDB years look like "2019", "2019–" or "1999-2001".
func ParseYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	year, _ := strconv.Atoi(m)
	return year
}

// IsDuplicate reports whether list holds an item with the same title and year as candidate.
func IsDuplicate(list []Item, candidate Item) bool {
	for _, it := range list {
		if it.Title == candidate.Title && it.Year == candidate.Year {
			return true
		}
	}
	return false
}

// SortItems orders items in place.
//
// [shared.SortByAdded] puts the most recently added first; anything else sorts by release year, newest first,
// with ties broken by AddedAt.
func SortItems(items []Item, order string) {
	byAdded := func(a, b Item) bool { return a.AddedAt > b.AddedAt }

	if order == shared.SortByAdded {
		sort.SliceStable(items, func(i, j int) bool { return byAdded(items[i], items[j]) })
		return
	}

	sort.SliceStable(items, func(i, j int) bool {
		yi, yj := ParseYear(items[i].Year), ParseYear(items[j].Year)
		if yi != yj {
			return yi > yj
		}
		return byAdded(items[i], items[j])
	})
}
