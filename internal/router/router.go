package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                    // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // echo's stock middleware (logging, recovery, request ids)
	"github.com/redis/go-redis/v9"                  // shared client for the limiter and the response cache

	"github.com/iliyamo/movie-rentals/internal/config"     // cache and rate limit settings
	"github.com/iliyamo/movie-rentals/internal/handler"    // import the handlers that implement the rental view
	"github.com/iliyamo/movie-rentals/internal/middleware" // session identity, rate limiting and caching
)

// Use installs the middleware shared by every route.  Recover comes
// first so a panicking handler still produces a 500 that gets logged.
func Use(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(middleware.SessionID())
}

// RegisterRoutes registers routes that do not touch a session.  The
// health check reports whether the catalog has finished its first load.
func RegisterRoutes(e *echo.Echo, h *handler.RentalHandler) {
	// Map the GET request at path "/healthz" to the Health handler.
	e.GET("/healthz", handler.Health(h.Catalog))
}

// RegisterReference registers the select option lists.  They change only
// when the catalog reloads, so responses are cached in Redis.
func RegisterReference(e *echo.Echo, h *handler.RentalHandler, cfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1", middleware.NewRedisCache(cfg, rdb))
	g.GET("/users", h.ListUsers)
	g.GET("/movies", h.ListMovies)
}

// RegisterRentals registers the rental view and form endpoints under
// /v1/rentals.  Every route after View changes session state; mutating
// ones go through the token bucket.
func RegisterRentals(e *echo.Echo, h *handler.RentalHandler, cfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/rentals")
	limit := middleware.NewTokenBucket(cfg, rdb)

	// Read the render-ready view
	g.GET("/view", h.View)
	// Change the sort key of the grouped list
	g.PUT("/view/sort", h.ChangeSort)
	// Load a rental into the form for editing
	g.POST("/:id/edit", h.StartEdit)
	// Delete a rental; resets the form when it was being edited
	g.DELETE("/:id", h.Delete, limit)

	// The form itself: field edits, submit and reset
	g.PATCH("/form", h.FieldChange)
	g.POST("/form", h.Submit, limit)
	g.DELETE("/form", h.Reset)
}
