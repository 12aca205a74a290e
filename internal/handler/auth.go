package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // errors.Is on service sentinels
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/campus-hall-booking/internal/config"     // app configuration
	"github.com/iliyamo/campus-hall-booking/internal/middleware" // cookie name and identity helpers
	"github.com/iliyamo/campus-hall-booking/internal/model"      // account model
	"github.com/iliyamo/campus-hall-booking/internal/service"    // account use cases
	"github.com/iliyamo/campus-hall-booking/internal/utils"      // token issuing
)

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *service.AccountService
	Tokens   TokenStore
}

func NewAuthHandler(cfg config.Config, accounts *service.AccountService, tokens TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: accounts, Tokens: tokens}
}

// refreshCookie carries the raw refresh token for browser clients.
const refreshCookie = "refreshToken"

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID         uint64   `json:"id"`
	Email      string   `json:"email"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName,omitempty"`
	Role       string   `json:"role"`
	IsVerified bool     `json:"isVerified"`
	Manages    []string `json:"manages,omitempty"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		Manages:    u.Manages,
	}
}

// Register: create an unapproved user.  No tokens are issued until an
// admin approves the account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Accounts.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Registration received, awaiting admin approval",
		"user":    toUserPart(u),
	})
}

// Login: verify and return a new pair.  The access token is also set as
// an HttpOnly cookie for the browser client.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	h.setCookies(c, resp)
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.  The token comes from
// the body or, for browsers, the refresh cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshFrom(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(raw)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Accounts.Get(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": service.ErrAccountBlocked.Error()})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	h.setCookies(c, resp)
	return c.JSON(http.StatusOK, resp)
}

// Logout supports two modes.  A refresh token (body or cookie) revokes
// that session only.  Without one, a valid access token revokes every
// session of its user.  Cookies are cleared either way.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw := h.refreshFrom(c); raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			h.clearCookies(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "logout failed").SetInternal(err)
		}
		h.clearCookies(c)
		return c.NoContent(http.StatusNoContent)
	}

	raw := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if raw == "" {
		if ck, err := c.Cookie(middleware.AccessCookie); err == nil {
			raw = ck.Value
		}
	}
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, raw)
	if err != nil {
		h.clearCookies(c)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed").SetInternal(err)
	}
	h.clearCookies(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Accounts.Get(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// VerifyUser approves a registered account (admin).
func (h *AuthHandler) VerifyUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Accounts.Approve(ctx, actor(c), c.Param("email"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User verified", "user": toUserPart(u)})
}

func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, utils.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, echo.NewHTTPError(http.StatusInternalServerError, "issue access failed").SetInternal(err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, echo.NewHTTPError(http.StatusInternalServerError, "issue refresh failed").SetInternal(err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, echo.NewHTTPError(http.StatusInternalServerError, "save refresh failed").SetInternal(err)
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

func (h *AuthHandler) refreshFrom(c echo.Context) string {
	var req refreshReq
	_ = c.Bind(&req)
	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		return raw
	}
	if ck, err := c.Cookie(refreshCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

func (h *AuthHandler) setCookies(c echo.Context, r authResp) {
	c.SetCookie(h.cookie(middleware.AccessCookie, r.Access.Token, r.Access.Expires))
	c.SetCookie(h.cookie(refreshCookie, r.Refresh.Token, r.Refresh.Expires))
}

func (h *AuthHandler) clearCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessCookie, refreshCookie} {
		ck := h.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (h *AuthHandler) cookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
