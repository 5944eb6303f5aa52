package middleware

// identity.go resolves the caller identity.  There is no real
// authentication: the caller supplies an opaque id in a header and the
// service trusts it.  Requests without one are rejected before any
// handler logic runs.

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
)

// DefaultIdentityHeader carries the caller identity.
const DefaultIdentityHeader = "X-User-Id"

// ContextKeyUserID is the echo context key holding the resolved identity.
const ContextKeyUserID = "user_id"

// MaxIdentityLength matches the width of the *_user_id columns.
const MaxIdentityLength = 128

// RequireIdentity reads the identity from header (DefaultIdentityHeader
// when empty) and stores it under ContextKeyUserID.  A missing, blank or
// oversized value yields 401.
func RequireIdentity(header string) echo.MiddlewareFunc {
    if header == "" {
        header = DefaultIdentityHeader
    }
    missing := "Missing " + header + " header"
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := strings.TrimSpace(c.Request().Header.Get(header))
            if id == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": missing})
            }
            if len(id) > MaxIdentityLength {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid " + header + " header"})
            }
            c.Set(ContextKeyUserID, id)
            return next(c)
        }
    }
}

// userID returns the resolved identity, or "anon" before RequireIdentity
// has run.
func userID(c echo.Context) string {
    if s, ok := c.Get(ContextKeyUserID).(string); ok && s != "" {
        return s
    }
    return "anon"
}
