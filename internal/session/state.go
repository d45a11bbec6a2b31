// Package session implements the rental form's edit session: which
// rental (if any) is being edited, the draft field values, their
// validation messages and touched flags, and the active sort key.
// All of it lives in State, a plain serializable value, so the host
// can keep one per browser session in any store.
package session

import (
	"errors"
	"strconv"

	"github.com/iliyamo/movie-rentals/internal/model"
	"github.com/iliyamo/movie-rentals/internal/projection"
)

// Mode tells what Submit will do with the draft.
type Mode string

const (
	Creating Mode = "creating" // submit adds a new rental
	Editing  Mode = "editing"  // submit updates State.Target
)

// Field names a form field.  Values match the JSON field names of a rental.
type Field string

const (
	FieldUserID  Field = "user_id"
	FieldMovieID Field = "movie_id"
	FieldDueDate Field = "due_date"
)

// Fields lists the form fields in display order.
var Fields = []Field{FieldUserID, FieldMovieID, FieldDueDate}

var (
	// ErrInvalid is returned by Submit when the draft fails validation.
	ErrInvalid = errors.New("rental form is invalid")
	// ErrUnknownField is returned for field names outside Fields.
	ErrUnknownField = errors.New("unknown form field")
	// ErrFieldDisabled is returned when changing user_id while editing.
	ErrFieldDisabled = errors.New("field is disabled while editing")
	// ErrNoTarget is returned when the state claims to edit but has no target.
	ErrNoTarget = errors.New("editing without a target rental")
)

// ParseField validates a field name coming from the host.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", ErrUnknownField
}

// Draft holds the unsaved form values exactly as typed or selected.
type Draft struct {
	UserID  string `json:"user_id"`
	MovieID string `json:"movie_id"`
	DueDate string `json:"due_date"`
}

// Get returns the value of field f.
func (d Draft) Get(f Field) string {
	switch f {
	case FieldUserID:
		return d.UserID
	case FieldMovieID:
		return d.MovieID
	case FieldDueDate:
		return d.DueDate
	}
	return ""
}

func (d *Draft) set(f Field, v string) {
	switch f {
	case FieldUserID:
		d.UserID = v
	case FieldMovieID:
		d.MovieID = v
	case FieldDueDate:
		d.DueDate = v
	}
}

// draftFrom fills a draft with a rental's current values.
func draftFrom(r model.Rental) Draft {
	return Draft{
		UserID:  strconv.FormatUint(r.UserID, 10),
		MovieID: strconv.FormatUint(r.MovieID, 10),
		DueDate: r.DueDate,
	}
}

// input converts a validated draft into typed values.
func (d Draft) input() (model.RentalInput, error) {
	uid, err := strconv.ParseUint(d.UserID, 10, 64)
	if err != nil {
		return model.RentalInput{}, err
	}
	mid, err := strconv.ParseUint(d.MovieID, 10, 64)
	if err != nil {
		return model.RentalInput{}, err
	}
	return model.RentalInput{UserID: uid, MovieID: mid, DueDate: d.DueDate}, nil
}

// State is everything the rental view remembers between events.
type State struct {
	Mode    Mode               `json:"mode"`
	Target  *model.Rental      `json:"target,omitempty"`
	Draft   Draft              `json:"draft"`
	Errors  map[Field]string   `json:"errors,omitempty"`
	Touched map[Field]bool     `json:"touched,omitempty"`
	SortKey projection.SortKey `json:"sort_key"`
	Notice  string             `json:"notice,omitempty"`
}

// NewState returns an empty session in create mode.
func NewState() State {
	return State{Mode: Creating}
}

// Visible returns the messages the form should show: errors of fields
// the user has interacted with.
func (s State) Visible() map[Field]string {
	out := make(map[Field]string, len(s.Errors))
	for f, msg := range s.Errors {
		if s.Touched[f] {
			out[f] = msg
		}
	}
	return out
}
