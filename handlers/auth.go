package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sublyy/sublyy-backend/internal/config"
	"github.com/sublyy/sublyy-backend/internal/exchange"
	"github.com/sublyy/sublyy-backend/internal/oauth"
	"github.com/sublyy/sublyy-backend/internal/tokens"
	"github.com/sublyy/sublyy-backend/internal/users"
	"github.com/sublyy/sublyy-backend/pkg/logger"
	"github.com/sublyy/sublyy-backend/pkg/metrics"
)

const (
	refreshCookie = "refreshToken"
	stateCookie   = "oauthState"
)

type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg      *config.Config
	usersSvc *users.Service
	codes    exchange.Store
	google   *oauth.Google
}

func NewAuthHandler(cfg *config.Config, u *users.Service, codes exchange.Store, google *oauth.Google) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, codes: codes, google: google}
}

// Register routes under /api/auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/signup", h.Signup)
	a.POST("/login", h.Login)
	a.POST("/refresh-token", h.Refresh)
	a.POST("/logout", h.Logout)
	a.GET("/google", h.GoogleRedirect)
	a.GET("/google/callback", h.GoogleCallback)
	a.POST("/exchange", h.Exchange)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, token, int(h.cfg.JWT.RefreshTokenTTL.Seconds()), "/", "", true, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, "", -1, "/", "", true, true)
}

// Signup registers an email/password user and logs them in.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username, email and password are required"})
		return
	}
	u, err := h.usersSvc.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch err {
		case users.ErrDuplicateEmail:
			metrics.AuthAttempts.WithLabelValues("signup", "conflict").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		case users.ErrInvalidInput:
			c.JSON(http.StatusBadRequest, gin.H{"message": "username, email and password are required"})
		default:
			logger.Errorf("signup error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error in signing up"})
		}
		return
	}
	access, refresh, err := tokens.Issue(h.cfg, u.ID)
	if err != nil {
		logger.Errorf("token issue error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error in signing up"})
		return
	}
	h.setRefreshCookie(c, refresh)
	metrics.AuthAttempts.WithLabelValues("signup", "ok").Inc()
	c.JSON(http.StatusCreated, gin.H{
		"message":     "User created successfully",
		"accessToken": access,
		"user":        gin.H{"id": u.ID, "username": u.Username, "email": u.Email},
	})
}

// Login authenticates an email/password pair. The three failure modes share
// the 400 status and differ only in message text.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case users.ErrNotFound:
			metrics.AuthAttempts.WithLabelValues("login", "no_user").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"message": "User does not exist"})
		case users.ErrBadCredentials:
			metrics.AuthAttempts.WithLabelValues("login", "bad_password").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid password"})
		default:
			logger.Errorf("login error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Login failed"})
		}
		return
	}
	access, refresh, err := tokens.Issue(h.cfg, u.ID)
	if err != nil {
		logger.Errorf("token issue error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Login failed"})
		return
	}
	h.setRefreshCookie(c, refresh)
	metrics.AuthAttempts.WithLabelValues("login", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "accessToken": access})
}

// Refresh mints a new access token from the refresh-token cookie. The
// refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(refreshCookie)
	if err != nil || refresh == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token not provided"})
		return
	}
	access, err := tokens.Refresh(h.cfg, refresh)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("refresh", "invalid").Inc()
		c.JSON(http.StatusForbidden, gin.H{"message": "Invalid refresh token"})
		return
	}
	metrics.AuthAttempts.WithLabelValues("refresh", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"accessToken": access})
}

// Logout clears the refresh cookie. The tokens themselves stay valid until
// their natural expiry; there is no revocation list.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// GoogleRedirect sends the browser to the Google consent screen with a CSRF
// state pinned in a short-lived cookie.
func (h *AuthHandler) GoogleRedirect(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Google OAuth not configured"})
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to start OAuth flow"})
		return
	}
	state := hex.EncodeToString(b)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 300, "/", "", true, true)
	c.Redirect(http.StatusTemporaryRedirect, h.google.AuthURL(state))
}

// GoogleCallback finishes the provider handshake. The browser is redirected
// back to the SPA with a one-time exchange code, never with the token itself.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Google OAuth not configured"})
		return
	}
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		metrics.AuthAttempts.WithLabelValues("oauth", "bad_state").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"message": "OAuth state mismatch"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", true, true)

	identity, err := h.google.ExchangeCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		logger.Errorf("google code exchange failed: %v", err)
		metrics.AuthAttempts.WithLabelValues("oauth", "exchange_failed").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Google authentication failed"})
		return
	}
	u, err := h.usersSvc.FindOrCreateGoogleUser(c.Request.Context(), identity.Subject, identity.Name, identity.Email)
	if err != nil {
		logger.Errorf("google user upsert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Google authentication failed"})
		return
	}
	code, err := h.codes.Put(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("exchange code store failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Google authentication failed"})
		return
	}
	metrics.AuthAttempts.WithLabelValues("oauth", "ok").Inc()
	c.Redirect(http.StatusFound, h.cfg.Client.Origin+"/auth/callback?code="+url.QueryEscape(code))
}

// Exchange redeems a one-time login code for the token pair.
func (h *AuthHandler) Exchange(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "code is required"})
		return
	}
	userID, err := h.codes.Redeem(c.Request.Context(), req.Code)
	if err != nil {
		if err == exchange.ErrCodeInvalid {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired code"})
			return
		}
		logger.Errorf("exchange redeem failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Exchange failed"})
		return
	}
	u, err := h.usersSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("user lookup after exchange failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Exchange failed"})
		return
	}
	access, refresh, err := tokens.Issue(h.cfg, u.ID)
	if err != nil {
		logger.Errorf("token issue error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Exchange failed"})
		return
	}
	h.setRefreshCookie(c, refresh)
	c.JSON(http.StatusOK, gin.H{
		"accessToken": access,
		"user":        gin.H{"id": u.ID, "username": u.Username, "email": u.Email},
	})
}
