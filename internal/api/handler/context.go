package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/veriflow/accounts-api/internal/core/ports"
)

// ctxSession extracts the session injected by the Auth middleware and
// fast-fails before any service call: a session with an empty account id is
// structurally valid but operationally unusable, reject with 401.
func ctxSession(c echo.Context) (*ports.Session, error) {
	session, _ := c.Get("session").(*ports.Session)
	if session == nil || session.AccountID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return session, nil
}
