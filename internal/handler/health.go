package handler // declare the package name; contains HTTP handlers

import (
	"net/http" // net/http provides status codes and response helpers

	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/iliyamo/movie-rentals/internal/model"
)

// snapshotter is the read side of the catalog.
type snapshotter interface {
	Snapshot() model.Snapshot
}

// Health returns a health-check handler used by load balancers and
// monitoring systems.  The service is alive as soon as it listens, so
// the status is always 200; "catalog" tells whether the first load
// from the database has completed.
func Health(cat snapshotter) echo.HandlerFunc {
	return func(c echo.Context) error {
		state := "ready"
		if cat.Snapshot().Loading { // first refresh still pending or failing
			state = "loading"
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "catalog": state})
	}
}
