package session

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestMustRegister_PanicsOnRejectedRule(t *testing.T) {
	ok := func(validator.FieldLevel) bool { return true }

	assert.Panics(t, func() { mustRegister(validator.New(), "", ok) }, "empty tag is rejected by the validator")
	assert.Panics(t, func() { mustRegister(validator.New(), "ref", nil) }, "nil rule is rejected by the validator")
	assert.NotPanics(t, func() { NewSchema(nil) })
}
