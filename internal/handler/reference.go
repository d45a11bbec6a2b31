package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListUsers returns the user options for the form's user select.
// Responses are cacheable, so nothing session specific is included.
func (h *RentalHandler) ListUsers(c echo.Context) error {
	snap := h.Catalog.Snapshot()
	if snap.Loading {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "catalog loading"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": userOptions(snap.Users)})
}

// ListMovies returns the movie options for the form's movie select.
func (h *RentalHandler) ListMovies(c echo.Context) error {
	snap := h.Catalog.Snapshot()
	if snap.Loading {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "catalog loading"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movieOptions(snap.Movies)})
}
