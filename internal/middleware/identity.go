package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	switch t := c.Get(ContextUserID).(type) {
	case uint64:
		return t, t > 0
	case int:
		return uint64(t), t > 0
	case int64:
		return uint64(t), t > 0
	case float64:
		return uint64(t), t > 0
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, n > 0
		}
	}
	return 0, false
}

// Role returns the authenticated user's role, or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get(ContextRole).(string)
	return r
}

// userKey identifies the caller for rate limit buckets; anonymous callers
// share the "anon" key and are told apart by IP.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
