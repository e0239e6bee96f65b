package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cellscope/internal/repository"
	"cellscope/internal/security"
	"cellscope/internal/service"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "All fields are required")
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			fail(c, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, service.ErrUsernameTaken):
			fail(c, http.StatusConflict, "Username already exists")
		case errors.Is(err, service.ErrEmailTaken):
			fail(c, http.StatusConflict, "Email already exists")
		default:
			h.log.Error().Err(err).Msg("signup failed")
			failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		}
		return
	}

	h.setSessionCookie(c, result.Token)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    result.User.Public(),
		"token":   result.Token,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			fail(c, http.StatusBadRequest, "Username and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, "Invalid credentials")
		default:
			h.log.Error().Err(err).Msg("login failed")
			failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		}
		return
	}

	h.setSessionCookie(c, result.Token)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    result.User.Public(),
		"token":   result.Token,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	h.clearSessionCookie(c)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout successful",
	})
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken is the explicit dual-token check: the client-held copy in
// the body must byte-match the httpOnly cookie issued by the server.
func (h HandlerSet) ValidateToken(c *gin.Context) {
	var req validateTokenRequest
	_ = c.ShouldBindJSON(&req)

	cookieToken, _ := c.Cookie(h.cfg.Security.CookieName)

	user, err := h.authService.ValidateDualToken(c.Request.Context(), req.Token, cookieToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenMissing):
			fail(c, http.StatusUnauthorized, "Token not found in client storage or cookies")
		case errors.Is(err, service.ErrTokenMismatch):
			fail(c, http.StatusUnauthorized, "Token mismatch between client storage and cookies")
		case errors.Is(err, security.ErrTokenExpired):
			fail(c, http.StatusUnauthorized, "Token expired")
		case errors.Is(err, security.ErrInvalidToken):
			fail(c, http.StatusUnauthorized, "Invalid token")
		case errors.Is(err, repository.ErrUserNotFound):
			fail(c, http.StatusUnauthorized, "User not found")
		default:
			h.log.Error().Err(err).Msg("token validation failed")
			failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Token is valid",
		"user":    user.Public(),
	})
}

// setSessionCookie mirrors the token into an httpOnly cookie. Attributes
// here must stay in sync with clearSessionCookie or browsers will refuse
// to drop the cookie on logout.
func (h HandlerSet) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		h.cfg.Security.CookieName,
		token,
		int(h.cfg.Security.TokenTTL.Seconds()),
		"/",
		"",
		h.cfg.Production(),
		true,
	)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		h.cfg.Security.CookieName,
		"",
		-1,
		"/",
		"",
		h.cfg.Production(),
		true,
	)
}
