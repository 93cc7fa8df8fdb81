package middleware

// identity.go defines helpers shared across middleware files. It
// provides the user identifier used in rate-limit keys: the subject
// claim stored in context by JWTAuth, or "anon" for guests.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID extracts a printable user identifier from the request
// context. JWT numeric claims arrive as float64; string subjects pass
// through unchanged.
func currentUserID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case float64:
        return strconv.FormatUint(uint64(v), 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    case string:
        if v != "" {
            return v
        }
    }
    return "anon"
}
