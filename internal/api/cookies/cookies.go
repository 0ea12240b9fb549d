// Package cookies owns the session cookie contract: name, attributes, and
// the set/clear helpers used by handlers and middleware alike.
package cookies

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "token"

// Writer stamps session cookies with consistent attributes. Secure is off
// only for local development over plain HTTP.
type Writer struct {
	Secure bool
	MaxAge time.Duration
}

// Set attaches the session token as an HTTP-only, same-site-lax cookie
// scoped to the whole origin.
func (w Writer) Set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(w.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear overwrites the cookie with an empty value and an already-past
// expiry, so the client drops a token the server no longer trusts.
func (w Writer) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the session token from the request, or "" when the cookie is
// absent.
func Read(c echo.Context) string {
	ck, err := c.Cookie(SessionCookie)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
