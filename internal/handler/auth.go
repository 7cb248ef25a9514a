package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // sentinel error matching
	"net/http" // HTTP status codes and cookies
	"strings"  // string manipulation utilities
	"time"     // timeouts and token lifetimes

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/event-ticketing/internal/config"     // app configuration
	"github.com/iliyamo/event-ticketing/internal/model"      // domain types
	"github.com/iliyamo/event-ticketing/internal/repository" // DB repositories
	"github.com/iliyamo/event-ticketing/internal/utils"      // hashing and token issuing
)

const (
	refreshCookie    = "refresh_token"
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
	resetTokenTTL    = 10 * time.Minute
	authTimeout      = 5 * time.Second
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo

	now func() time.Time
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, now: func() time.Time { return time.Now().UTC() }}
}

// ----- DTOs -----

type registerReq struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type updateMeReq struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	NewPassword string `json:"new_password"`
}

type authResp struct {
	User         model.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
}

func (h *AuthHandler) accessTTL() time.Duration {
	return time.Duration(h.Cfg.AccessTTLMin) * time.Minute
}

func (h *AuthHandler) refreshTTL() time.Duration {
	return time.Duration(h.Cfg.RefreshTTLDays) * 24 * time.Hour
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, tok utils.OpaqueToken) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    tok.Raw,
		Path:     "/v1/auth",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

// presentedRefresh takes the refresh token from the cookie, falling back
// to a JSON body for non-browser clients.
func presentedRefresh(c echo.Context) string {
	if ck, err := c.Cookie(refreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return strings.TrimSpace(req.RefreshToken)
}

// issue signs an access token, stores a new refresh token and sets its
// cookie.
func (h *AuthHandler) issue(ctx context.Context, c echo.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.accessTTL())
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.refreshTTL())
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, refresh.Hash(), refresh.Exp); err != nil {
		return authResp{}, err
	}
	h.setRefreshCookie(c, refresh)
	return authResp{User: u, AccessToken: access.Token, ExpiresAt: access.Exp, RefreshToken: refresh.Raw}, nil
}

// Register: create a user and sign them in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and password are required"})
	}
	if !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Password: req.Password, Role: model.RoleUser,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp, err := h.issue(ctx, c, u)
	if err != nil {
		return respondError(c, err)
	}
	log.Info().Uint64("user_id", uid).Msg("user registered")
	return success(c, http.StatusCreated, resp)
}

// Login verifies credentials.  Consecutive failures lock the account for
// lockoutDuration; a successful login clears the counter.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()
	now := h.now()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return respondError(c, err)
	}
	if u.LockedAt(now) {
		return c.JSON(http.StatusLocked, echo.Map{"error": "account locked, try again later"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		locked, err := h.Users.RegisterFailedLogin(ctx, u, maxLoginAttempts, lockoutDuration, now)
		if err != nil {
			return respondError(c, err)
		}
		if locked {
			log.Warn().Uint64("user_id", u.ID).Msg("account locked after failed logins")
			return c.JSON(http.StatusLocked, echo.Map{"error": "too many failed attempts, account locked for 15 minutes"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
	}
	if u.FailedLoginAttempts > 0 || u.LockoutUntil != nil {
		if err := h.Users.ResetLoginFailures(ctx, u.ID); err != nil {
			return respondError(c, err)
		}
	}

	resp, err := h.issue(ctx, c, u)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, resp)
}

// Refresh redeems a refresh token once and hands out a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := presentedRefresh(c)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	next, err := utils.NewRefreshToken(h.refreshTTL())
	if err != nil {
		return respondError(c, err)
	}
	userID, err := h.Tokens.Rotate(ctx, utils.HashToken(raw), next.Hash(), next.Exp)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			h.clearRefreshCookie(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	if !u.IsActive {
		_ = h.Tokens.RevokeAllForUser(ctx, u.ID)
		h.clearRefreshCookie(c)
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.accessTTL())
	if err != nil {
		return respondError(c, err)
	}
	h.setRefreshCookie(c, next)
	return success(c, http.StatusOK, authResp{User: u, AccessToken: access.Token, ExpiresAt: access.Exp, RefreshToken: next.Raw})
}

// Logout revokes the presented refresh token.  It succeeds even when no
// token is presented.
func (h *AuthHandler) Logout(c echo.Context) error {
	if raw := presentedRefresh(c); raw != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
		defer cancel()
		if err := h.Tokens.RevokeByHash(ctx, utils.HashToken(raw)); err != nil {
			return respondError(c, err)
		}
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{"user": u})
}

// UpdateMe changes the caller's name and phone.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) == "" {
		req.Phone = nil
	}
	ctx := c.Request().Context()
	if err := h.Users.UpdateProfile(ctx, uid, req.Name, req.Phone); err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{"user": u})
}

// ChangePassword requires the current password and signs out every other
// session.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password and new_password are required"})
	}
	if err := utils.CheckPasswordStrength(req.NewPassword); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}
	if err := h.Users.SetPassword(ctx, uid, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return respondError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "password updated"})
}

// ForgotPassword creates a reset token.  There is no mail delivery: the
// link is logged and returned.  Unknown emails get the same message
// without a link.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx := c.Request().Context()
	const msg = "if the account exists, a reset link has been issued"

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": msg})
	}
	if err != nil {
		return respondError(c, err)
	}
	tok, err := utils.NewResetToken(resetTokenTTL)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Users.SetResetToken(ctx, u.ID, tok.Hash(), tok.Exp); err != nil {
		return respondError(c, err)
	}
	link := strings.TrimRight(h.Cfg.ClientURL, "/") + "/reset-password/" + tok.Raw
	log.Info().Uint64("user_id", u.ID).Str("reset_url", link).Msg("password reset requested")
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": msg, "reset_url": link})
}

// ResetPassword sets a new password given an unexpired reset token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	raw := strings.TrimSpace(c.Param("token"))
	var req resetReq
	if err := c.Bind(&req); err != nil || raw == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and new_password are required"})
	}
	if err := utils.CheckPasswordStrength(req.NewPassword); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByResetToken(ctx, utils.HashToken(raw), h.now())
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is invalid or has expired"})
		}
		return respondError(c, err)
	}
	if err := h.Users.SetPassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return respondError(c, err)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "password has been reset"})
}
