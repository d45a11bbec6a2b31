package session

import (
	"context"
	"fmt"

	"github.com/iliyamo/movie-rentals/internal/model"
	"github.com/iliyamo/movie-rentals/internal/projection"
)

// Notices shown after a failed mutation.  The draft is kept so the
// user can retry.
const (
	NoticeSaveFailed   = "Could not save rental, please try again."
	NoticeDeleteFailed = "Could not delete rental, please try again."
)

// Mutator is the write side of the data collaborator.
type Mutator interface {
	AddRental(ctx context.Context, in model.RentalInput) error
	UpdateRental(ctx context.Context, r model.Rental) error
	DeleteRental(ctx context.Context, id uint64) error
}

// Controller applies form events to a State.  It mutates the State it
// was given; the caller persists it afterwards.  A Controller is not
// safe for concurrent use.
type Controller struct {
	state   *State
	mutator Mutator
	schema  *Schema
}

// NewController wraps st.  A nil schema validates against time.Now.
func NewController(st *State, m Mutator, schema *Schema) *Controller {
	if st == nil || m == nil {
		panic("nil state or mutator passed to NewController")
	}
	if schema == nil {
		schema = NewSchema(nil)
	}
	if st.Mode == "" {
		st.Mode = Creating
	}
	return &Controller{state: st, mutator: m, schema: schema}
}

// State returns the state being driven.
func (c *Controller) State() *State { return c.state }

// StartEdit switches to editing r and loads its values into the draft.
// Earlier edits are discarded.
func (c *Controller) StartEdit(r model.Rental) {
	target := r
	c.state.Mode = Editing
	c.state.Target = &target
	c.state.Draft = draftFrom(r)
	c.state.Errors = nil
	c.state.Touched = nil
	c.state.Notice = ""
}

// FieldChanged stores value in field f, marks it touched and
// revalidates it.  user_id cannot change while editing.
func (c *Controller) FieldChanged(f Field, value string) error {
	if _, err := ParseField(string(f)); err != nil {
		return err
	}
	if f == FieldUserID && c.state.Mode == Editing {
		return ErrFieldDisabled
	}
	c.state.Notice = ""
	c.state.Draft.set(f, value)
	if c.state.Touched == nil {
		c.state.Touched = make(map[Field]bool)
	}
	c.state.Touched[f] = true
	if c.state.Errors == nil {
		c.state.Errors = make(map[Field]string)
	}
	if msg := c.schema.ValidateField(f, value); msg != "" {
		c.state.Errors[f] = msg
	} else {
		delete(c.state.Errors, f)
	}
	return nil
}

// Submit validates the whole draft and, when valid, performs exactly
// one mutation: add in create mode, update of the target merged with
// the draft in edit mode.  On success the session returns to an empty
// create form.  On a mutation error the draft and mode are kept and a
// notice is set.
func (c *Controller) Submit(ctx context.Context) error {
	c.state.Notice = ""
	c.state.Touched = make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		c.state.Touched[f] = true
	}
	c.state.Errors = c.schema.Validate(c.state.Draft)
	if len(c.state.Errors) > 0 {
		return ErrInvalid
	}
	in, err := c.state.Draft.input()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch c.state.Mode {
	case Editing:
		if c.state.Target == nil {
			return ErrNoTarget
		}
		merged := *c.state.Target
		merged.UserID = in.UserID
		merged.MovieID = in.MovieID
		merged.DueDate = in.DueDate
		err = c.mutator.UpdateRental(ctx, merged)
	default:
		err = c.mutator.AddRental(ctx, in)
	}
	if err != nil {
		c.state.Notice = NoticeSaveFailed
		return fmt.Errorf("submit rental: %w", err)
	}
	c.Reset()
	return nil
}

// DeleteRental removes rental id.  Deleting the rental being edited
// drops the edit and returns to create mode.
func (c *Controller) DeleteRental(ctx context.Context, id uint64) error {
	c.state.Notice = ""
	if err := c.mutator.DeleteRental(ctx, id); err != nil {
		c.state.Notice = NoticeDeleteFailed
		return fmt.Errorf("delete rental %d: %w", id, err)
	}
	if c.state.Mode == Editing && c.state.Target != nil && c.state.Target.ID == id {
		c.Reset()
	}
	return nil
}

// ChangeSort records the sort key used by the next projection.
func (c *Controller) ChangeSort(key projection.SortKey) {
	c.state.Notice = ""
	c.state.SortKey = key
}

// Reset abandons the draft and returns to create mode.  The sort key
// is kept.
func (c *Controller) Reset() {
	sortKey := c.state.SortKey
	*c.state = NewState()
	c.state.SortKey = sortKey
}
