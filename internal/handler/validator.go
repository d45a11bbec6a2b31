package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs go-playground/validator into echo so handlers
// can call c.Validate on bound request bodies.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator returns a validator ready to assign to e.Validator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// bindValid binds the request body into dst and validates it.  The
// returned message is meant for the client.
func bindValid(c echo.Context, dst any) (string, bool) {
	if err := c.Bind(dst); err != nil { // malformed JSON or wrong types
		return "invalid request body", false
	}
	if c.Echo().Validator == nil { // validation not configured, accept as bound
		return "", true
	}
	if err := c.Validate(dst); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if msg, ok := he.Message.(string); ok {
				return msg, false
			}
		}
		return err.Error(), false
	}
	return "", true
}
