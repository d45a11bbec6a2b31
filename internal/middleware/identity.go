package middleware

// identity.go ties each request to a browser session.  The rental form's
// draft lives in a server-side session keyed by the X-Session-ID header;
// requests without a usable id get a fresh one, which is echoed back so
// the client can keep sending it.

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

// Echo context keys holding the session id and whether it was minted
// for this request.
const (
	sessionKey       = "session_id"
	sessionMintedKey = "session_minted"
)

// SessionID returns middleware that resolves the session id, stores it
// in the context and sets it on the response.
func SessionID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(SessionHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
				c.Set(sessionMintedKey, true)
			}
			c.Set(sessionKey, id)
			c.Response().Header().Set(SessionHeader, id)
			return next(c)
		}
	}
}

// CurrentSession returns the id stored by SessionID, or "anon" when the
// middleware did not run.
func CurrentSession(c echo.Context) string {
	if s, ok := c.Get(sessionKey).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// sessionMinted reports whether the request arrived without a usable
// session id.
func sessionMinted(c echo.Context) bool {
	minted, _ := c.Get(sessionMintedKey).(bool)
	return minted
}
