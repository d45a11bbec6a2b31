package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-rentals/internal/model"
)

// rule binds a field to its validator tags and the message shown for
// each failing tag.
type rule struct {
	field    Field
	tags     string
	messages map[string]string
}

var rules = []rule{
	{
		field: FieldUserID,
		tags:  "required,ref",
		messages: map[string]string{
			"required": "User is required",
			"ref":      "User must be a valid selection",
		},
	},
	{
		field: FieldMovieID,
		tags:  "required,ref",
		messages: map[string]string{
			"required": "Movie is required",
			"ref":      "Movie must be a valid selection",
		},
	},
	{
		field: FieldDueDate,
		tags:  "required,datetime=" + model.DateLayout + ",future",
		messages: map[string]string{
			"required": "Due date is required",
			"datetime": "Due date must be a valid date",
			"future":   "Due date must be in the future",
		},
	},
}

// Schema validates draft fields.  The "future" rule compares against
// the schema's clock at validation time.
type Schema struct {
	v   *validator.Validate
	now func() time.Time
}

// NewSchema builds a Schema reading the current time from now.  A nil
// now uses time.Now.
func NewSchema(now func() time.Time) *Schema {
	if now == nil {
		now = time.Now
	}
	s := &Schema{v: validator.New(), now: now}
	// ref: a positive numeric identifier picked from a select.
	mustRegister(s.v, "ref", func(fl validator.FieldLevel) bool {
		n, err := strconv.ParseUint(fl.Field().String(), 10, 64)
		return err == nil && n > 0
	})
	// future: a calendar date (midnight UTC) strictly after now.
	mustRegister(s.v, "future", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(model.DateLayout, strings.TrimSpace(fl.Field().String()))
		if err != nil {
			return false
		}
		return d.After(s.now())
	})
	return s
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

// ValidateField returns the message for the first rule value breaks,
// or "" when the value is valid.
func (s *Schema) ValidateField(f Field, value string) string {
	for _, r := range rules {
		if r.field != f {
			continue
		}
		err := s.v.Var(value, r.tags)
		if err == nil {
			return ""
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if msg, ok := r.messages[verrs[0].Tag()]; ok {
				return msg
			}
		}
		return "Invalid value"
	}
	return ""
}

// Validate checks every field of d and maps each failing field to its
// message.  An empty map means the draft can be submitted.
func (s *Schema) Validate(d Draft) map[Field]string {
	out := make(map[Field]string)
	for _, f := range Fields {
		if msg := s.ValidateField(f, d.Get(f)); msg != "" {
			out[f] = msg
		}
	}
	return out
}

// Validate checks d against the rental form rules as of now.
func Validate(d Draft, now time.Time) map[Field]string {
	return NewSchema(func() time.Time { return now }).Validate(d)
}
