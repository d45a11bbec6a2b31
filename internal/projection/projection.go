// Package projection derives the rental list's grouped view from the raw
// catalog collections.  Everything here is pure: the same inputs always
// produce the same view and nothing is retained between calls, so the
// view can be recomputed on every render.
package projection

import (
	"errors"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/iliyamo/movie-rentals/internal/model"
)

// SortKey selects the order of rentals inside each user group.
type SortKey string

const (
	SortNone    SortKey = ""         // keep catalog order
	SortMovie   SortKey = "movie"    // movie title, A-Z
	SortDueDate SortKey = "due_date" // earliest due date first
	// SortUser orders rentals by the renting user's name.  Groups are
	// already ordered by user, so the selector does not offer it.
	SortUser SortKey = "user"
)

// ErrUnknownSortKey is returned by ParseSortKey for values the sort
// selector does not offer.
var ErrUnknownSortKey = errors.New("unknown sort key")

// SortOption is one entry of the sort selector.
type SortOption struct {
	Key   SortKey `json:"key"`
	Label string  `json:"label"`
}

// SortOptions lists the selector entries in display order.
func SortOptions() []SortOption {
	return []SortOption{
		{Key: SortNone, Label: "Select an option"},
		{Key: SortMovie, Label: "Movie Title (A-Z)"},
		{Key: SortDueDate, Label: "Due Date (Earliest to Latest)"},
	}
}

// ParseSortKey maps a selector value to a SortKey.  "none" is accepted
// as an alias of the empty selection.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, nil
	case string(SortMovie):
		return SortMovie, nil
	case string(SortDueDate):
		return SortDueDate, nil
	}
	return SortNone, ErrUnknownSortKey
}

// Row is a rental ready for display.  MovieTitle is empty when the
// rental points at a movie that is not in the catalog.
type Row struct {
	model.Rental
	MovieTitle string `json:"movie_title,omitempty"`
}

// Group holds one user's rentals.  Rows is never nil so that an empty
// group encodes as [] rather than null.
type Group struct {
	User model.User `json:"user"`
	Rows []Row      `json:"rentals"`
}

// GroupedView is the per-user partition of the rentals, ordered by
// user name.
type GroupedView []Group

// Projector builds grouped views, comparing names and titles with the
// collation rules of Locale.
type Projector struct {
	Locale language.Tag
}

// NewProjector returns a Projector for the given BCP 47 tag.  An
// unparsable tag falls back to English.
func NewProjector(locale string) Projector {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Projector{Locale: tag}
}

// Project groups rentals by user using English collation.
func Project(rentals []model.Rental, users []model.User, movies []model.Movie, key SortKey) GroupedView {
	return Projector{Locale: language.English}.Project(rentals, users, movies, key)
}

// Project sorts a copy of rentals by key, partitions it per user in the
// users' order and then orders the groups by user name.  Every user
// gets a group, including users without rentals.  Rentals whose user
// is unknown appear in no group.
func (p Projector) Project(rentals []model.Rental, users []model.User, movies []model.Movie, key SortKey) GroupedView {
	// A collator keeps internal buffers, so each call gets its own.
	col := collate.New(p.Locale)

	titles := make(map[uint64]string, len(movies))
	for _, m := range movies {
		if _, seen := titles[m.ID]; !seen { // first match wins, like a linear scan
			titles[m.ID] = m.Title
		}
	}
	names := make(map[uint64]string, len(users))
	for _, u := range users {
		if _, seen := names[u.ID]; !seen {
			names[u.ID] = u.Name
		}
	}

	sorted := slices.Clone(rentals)
	switch key {
	case SortMovie:
		slices.SortStableFunc(sorted, func(a, b model.Rental) int {
			return col.CompareString(titles[a.MovieID], titles[b.MovieID])
		})
	case SortDueDate:
		slices.SortStableFunc(sorted, func(a, b model.Rental) int {
			return parseDate(a.DueDate).Compare(parseDate(b.DueDate))
		})
	case SortUser:
		slices.SortStableFunc(sorted, func(a, b model.Rental) int {
			return col.CompareString(names[a.UserID], names[b.UserID])
		})
	}

	view := make(GroupedView, 0, len(users))
	for _, u := range users {
		g := Group{User: u, Rows: []Row{}}
		for _, r := range sorted {
			if r.UserID == u.ID {
				g.Rows = append(g.Rows, Row{Rental: r, MovieTitle: titles[r.MovieID]})
			}
		}
		view = append(view, g)
	}
	slices.SortStableFunc(view, func(a, b Group) int {
		return col.CompareString(a.User.Name, b.User.Name)
	})
	return view
}

// parseDate reads a due date; anything unparsable is the zero time and
// therefore sorts first.
func parseDate(s string) time.Time {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
