package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/veriflow/accounts-api/internal/api/cookies"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

// Auth validates the session cookie and injects the decoded session into
// context. Any missing or invalid token clears the cookie before rejecting,
// so the client never keeps a token the server refuses.
func Auth(sessions ports.SessionIssuer, cw cookies.Writer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := cookies.Read(c)
			if token == "" {
				cw.Clear(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}

			session, err := sessions.Verify(token)
			if err != nil {
				cw.Clear(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}

			c.Set("session", session)
			c.Set("account_id", session.AccountID)
			c.Set("role", session.Role)

			return next(c)
		}
	}
}
