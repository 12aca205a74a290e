package middleware

// identity.go reads the caller identity that JWTAuth stored in the Echo
// context.  Anonymous requests yield zero values.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id, or 0.
func UserID(c echo.Context) uint64 {
	switch v := c.Get(KeyUserID).(type) {
	case uint64:
		return v
	case string:
		n, _ := strconv.ParseUint(v, 10, 64)
		return n
	}
	return 0
}

// Email returns the authenticated user's email, or "".
func Email(c echo.Context) string {
	s, _ := c.Get(KeyEmail).(string)
	return s
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(KeyRole).(string)
	return s
}

// currentUserID is the rate limiter's view of the caller: the user id
// when authenticated and "anon" otherwise.
func currentUserID(c echo.Context) string {
	if id := UserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
