package handler // rental view handlers

import (
	"errors"   // errors.Is maps sentinel errors to status codes
	"net/http" // status codes
	"strconv"  // parse path ids

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-rentals/internal/middleware"
	"github.com/iliyamo/movie-rentals/internal/model"
	"github.com/iliyamo/movie-rentals/internal/projection"
	"github.com/iliyamo/movie-rentals/internal/repository"
	"github.com/iliyamo/movie-rentals/internal/session"
)

// Catalog is the data collaborator the rental view reads from and
// writes through.  *catalog.Catalog satisfies it.
type Catalog interface {
	session.Mutator
	Snapshot() model.Snapshot
	Rental(id uint64) (model.Rental, bool)
}

// RentalHandler serves the rental list and its add/edit form.  Each
// request loads the caller's session, applies one event and saves it.
type RentalHandler struct {
	Catalog   Catalog              // Catalog provides the snapshot and mutations
	Sessions  session.Store        // Sessions keeps one State per browser session
	Projector projection.Projector // Projector groups and orders the rentals
	Schema    *session.Schema      // Schema validates the draft
}

// NewRentalHandler constructs a RentalHandler and panics if a dependency is nil.
func NewRentalHandler(cat Catalog, sessions session.Store, p projection.Projector, schema *session.Schema) *RentalHandler {
	if cat == nil || sessions == nil { // both are required for every route
		panic("nil dependency passed to NewRentalHandler")
	}
	if schema == nil {
		schema = session.NewSchema(nil)
	}
	return &RentalHandler{Catalog: cat, Sessions: sessions, Projector: p, Schema: schema}
}

type sortRequest struct {
	Sort string `json:"sort"`
}

type fieldRequest struct {
	Field string `json:"field" validate:"required,oneof=user_id movie_id due_date"`
	Value string `json:"value"`
}

// load returns a controller over the caller's session state.  Unknown
// or expired sessions start fresh.
func (h *RentalHandler) load(c echo.Context) (*session.Controller, error) {
	st, err := h.Sessions.Load(c.Request().Context(), middleware.CurrentSession(c))
	if errors.Is(err, session.ErrSessionNotFound) {
		st = session.NewState()
	} else if err != nil {
		return nil, err
	}
	return session.NewController(&st, h.Catalog, h.Schema), nil
}

func (h *RentalHandler) save(c echo.Context, ctl *session.Controller) error {
	return h.Sessions.Save(c.Request().Context(), middleware.CurrentSession(c), *ctl.State())
}

// render writes the view for the controller's state.
func (h *RentalHandler) render(c echo.Context, status int, ctl *session.Controller, mutate func(*RentalView)) error {
	v := buildView(h.Projector, h.Catalog.Snapshot(), *ctl.State())
	if mutate != nil {
		mutate(&v)
	}
	return c.JSON(status, v)
}

// commit saves the session and renders the view.
func (h *RentalHandler) commit(c echo.Context, status int, ctl *session.Controller, mutate func(*RentalView)) error {
	if err := h.save(c, ctl); err != nil {
		c.Logger().Errorf("save session: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store error"})
	}
	return h.render(c, status, ctl, mutate)
}

func withError(msg string) func(*RentalView) {
	return func(v *RentalView) { v.Error = msg }
}

func sessionError(c echo.Context, err error) error {
	c.Logger().Errorf("load session: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store error"})
}

// View returns the render-ready rental view.
func (h *RentalHandler) View(c echo.Context) error {
	ctl, err := h.load(c)
	if err != nil {
		return sessionError(c, err)
	}
	return h.render(c, http.StatusOK, ctl, nil)
}

// ChangeSort sets the sort key used for the grouped view.
func (h *RentalHandler) ChangeSort(c echo.Context) error {
	var req sortRequest
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	key, err := projection.ParseSortKey(req.Sort)
	if err != nil { // user sort and anything else the selector does not offer
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctl, err := h.load(c)
	if err != nil {
		return sessionError(c, err)
	}
	ctl.ChangeSort(key)
	return h.commit(c, http.StatusOK, ctl, nil)
}

// StartEdit loads rental :id into the form.
func (h *RentalHandler) StartEdit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	r, ok := h.Catalog.Rental(id)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
	}
	ctl, err := h.load(c)
	if err != nil {
		return sessionError(c, err)
	}
	ctl.StartEdit(r)
	return h.commit(c, http.StatusOK, ctl, func(v *RentalView) { v.ScrollToForm = true })
}

// Delete removes rental :id.  Deleting the rental being edited resets the form.
func (h *RentalHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, ok := h.Catalog.Rental(id); !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
	}
	ctl, err := h.load(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := ctl.DeleteRental(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrRentalNotFound) { // removed by someone else meanwhile
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
		}
		c.Logger().Errorf("delete rental %d: %v", id, err)
		return h.commit(c, statusFor(err), ctl, withError("delete failed"))
	}
	return h.commit(c, http.StatusOK, ctl, nil)
}

// FieldChange records one field edit and revalidates it.
func (h *RentalHandler) FieldChange(c echo.Context) error {
	var req fieldRequest
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	f, err := session.ParseField(req.Field)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctl, err := h.load(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := ctl.FieldChanged(f, req.Value); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return h.commit(c, http.StatusOK, ctl, nil)
}

// Submit validates the draft and adds or updates the rental.
func (h *RentalHandler) Submit(c echo.Context) error {
	ctl, err := h.load(c)
	if err != nil {
		return sessionError(c, err)
	}
	err = ctl.Submit(c.Request().Context())
	switch {
	case err == nil:
		return h.commit(c, http.StatusOK, ctl, nil)
	case errors.Is(err, session.ErrInvalid):
		return h.commit(c, http.StatusUnprocessableEntity, ctl, withError(err.Error()))
	case errors.Is(err, session.ErrNoTarget):
		ctl.Reset()
		return h.commit(c, http.StatusConflict, ctl, withError(err.Error()))
	}
	c.Logger().Errorf("submit rental: %v", err)
	return h.commit(c, statusFor(err), ctl, withError("save failed"))
}

// Reset abandons the draft and returns to an empty add form.
func (h *RentalHandler) Reset(c echo.Context) error {
	ctl, err := h.load(c)
	if err != nil {
		return sessionError(c, err)
	}
	ctl.Reset()
	return h.commit(c, http.StatusOK, ctl, nil)
}

// statusFor maps a failed mutation to a status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrConflict): // unknown user or movie
		return http.StatusConflict
	case errors.Is(err, repository.ErrRentalNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
