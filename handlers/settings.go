package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sublyy/sublyy-backend/internal/config"
	"github.com/sublyy/sublyy-backend/internal/models"
	"github.com/sublyy/sublyy-backend/internal/storage"
	"github.com/sublyy/sublyy-backend/internal/users"
	"github.com/sublyy/sublyy-backend/pkg/logger"
	"github.com/sublyy/sublyy-backend/pkg/middleware"
)

const maxAvatarBytes = 5 << 20

// SettingsNotifier pushes a settings-changed event to the owning user's live
// connection. Satisfied by *realtime.Hub.
type SettingsNotifier interface {
	NotifySettingsUpdated(userID string, settings models.Settings)
}

// AvatarStore is the subset of the object store the settings handler needs.
// Satisfied by *storage.MinIOStorage; nil when storage is not configured.
type AvatarStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

type SettingsRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	ProfilePic *string `json:"profilePic"`
	Settings   *struct {
		Currency          *string `json:"currency"`
		Notifications     *string `json:"notifications"`
		WhatsappNumber    *string `json:"whatsappNumber"`
		WhatsappConnected *bool   `json:"whatsappConnected"`
	} `json:"settings"`
}

// SettingsHandler serves the user's profile/settings endpoints.
type SettingsHandler struct {
	cfg      *config.Config
	usersSvc *users.Service
	notifier SettingsNotifier
	avatars  AvatarStore
}

func NewSettingsHandler(cfg *config.Config, u *users.Service, n SettingsNotifier, avatars AvatarStore) *SettingsHandler {
	return &SettingsHandler{cfg: cfg, usersSvc: u, notifier: n, avatars: avatars}
}

// Register routes under /api/user, all behind the access guard.
func (h *SettingsHandler) Register(rg *gin.RouterGroup) {
	u := rg.Group("/user", middleware.Auth(h.cfg))
	u.GET("/settings", h.Get)
	u.PUT("/settings", h.Update)
	u.POST("/profile-picture", h.UploadProfilePicture)
}

func (h *SettingsHandler) userView(c *gin.Context, u *models.User) gin.H {
	view := gin.H{
		"username":   u.Username,
		"email":      u.Email,
		"profilePic": u.ProfilePic,
		"settings":   u.Settings,
	}
	if u.ProfilePic != "" && h.avatars != nil {
		if url, err := h.avatars.PresignedURL(c.Request.Context(), u.ProfilePic, time.Hour); err == nil {
			view["profilePicUrl"] = url
		}
	}
	return view
}

func (h *SettingsHandler) Get(c *gin.Context) {
	u, err := h.usersSvc.GetByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if err == users.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		logger.Errorf("get settings error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch settings"})
		return
	}
	c.JSON(http.StatusOK, h.userView(c, u))
}

// Update applies a partial settings/profile update, then notifies only this
// user's live connection.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	upd := users.SettingsUpdate{
		Username:   req.Username,
		Email:      req.Email,
		ProfilePic: req.ProfilePic,
	}
	if req.Settings != nil {
		upd.Currency = req.Settings.Currency
		upd.Notifications = req.Settings.Notifications
		upd.WhatsappNumber = req.Settings.WhatsappNumber
		upd.WhatsappConnected = req.Settings.WhatsappConnected
	}
	userID := middleware.UserID(c)
	u, err := h.usersSvc.UpdateSettings(c.Request.Context(), userID, upd)
	if err != nil {
		switch err {
		case users.ErrInvalidInput:
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid settings values"})
		case users.ErrNotFound:
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		default:
			logger.Errorf("update settings error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update settings"})
		}
		return
	}
	if h.notifier != nil {
		h.notifier.NotifySettingsUpdated(userID, u.Settings)
	}
	c.JSON(http.StatusOK, h.userView(c, u))
}

// UploadProfilePicture stores the multipart "avatar" file in the object
// store and records its key on the user.
func (h *SettingsHandler) UploadProfilePicture(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Profile picture storage not configured"})
		return
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "avatar file is required"})
		return
	}
	if file.Size > maxAvatarBytes {
		c.JSON(http.StatusBadRequest, gin.H{"message": "avatar too large"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to read upload"})
		return
	}
	defer src.Close()

	userID := middleware.UserID(c)
	key := storage.AvatarKey(userID)
	contentType := file.Header.Get("Content-Type")
	if err := h.avatars.Upload(c.Request.Context(), key, src, file.Size, contentType); err != nil {
		logger.Errorf("avatar upload error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store avatar"})
		return
	}
	u, err := h.usersSvc.SetProfilePic(c.Request.Context(), userID, key)
	if err != nil {
		logger.Errorf("profile pic update error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, h.userView(c, u))
}
