package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/campus-hall-booking/internal/utils" // token parsing
)

// AccessCookie is the name of the cookie that carries the access token for
// browser clients.
const AccessCookie = "accessToken"

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
	KeyRole   = "role"
)

// JWTAuth returns an Echo middleware that validates the access token and
// injects its subject, email and role claims into the request context.
// The token is read from the Authorization header ("Bearer ...") or,
// when that header is absent, from the accessToken cookie.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerOrCookie(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// Handlers read these via c.Get() or the identity helpers.
			c.Set(KeyUserID, claims.UserID)
			c.Set(KeyEmail, claims.Email)
			c.Set(KeyRole, claims.Role)
			return next(c)
		}
	}
}

func bearerOrCookie(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}
