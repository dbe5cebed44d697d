package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sublyy/sublyy-backend/internal/config"
	"github.com/sublyy/sublyy-backend/internal/subscriptions"
	"github.com/sublyy/sublyy-backend/pkg/logger"
	"github.com/sublyy/sublyy-backend/pkg/middleware"
)

type SubscriptionRequest struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	NextPaymentDate string  `json:"nextPaymentDate"`
	Color           string  `json:"color"`
	Category        string  `json:"category"`
	BillingCycle    string  `json:"billingCycle"`
	Description     string  `json:"description"`
	Notes           string  `json:"notes"`
	PaymentMethod   string  `json:"paymentMethod"`
}

// SubscriptionHandler exposes the subscription ledger over HTTP.
type SubscriptionHandler struct {
	cfg *config.Config
	svc *subscriptions.Service
}

func NewSubscriptionHandler(cfg *config.Config, svc *subscriptions.Service) *SubscriptionHandler {
	return &SubscriptionHandler{cfg: cfg, svc: svc}
}

// Register routes under /api/subscriptions, all behind the access guard.
func (h *SubscriptionHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/subscriptions", middleware.Auth(h.cfg))
	s.POST("", h.Create)
	s.GET("", h.List)
	s.GET("/analytics", h.Analytics)
}

// parseDate accepts both bare dates and full RFC3339 timestamps, matching
// what date inputs and JS clients send.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
		return
	}
	next, ok := parseDate(req.NextPaymentDate)
	if req.NextPaymentDate != "" && !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid nextPaymentDate"})
		return
	}
	sub, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), subscriptions.CreateInput{
		Name:            req.Name,
		Price:           req.Price,
		NextPaymentDate: next,
		Color:           req.Color,
		Category:        req.Category,
		BillingCycle:    req.BillingCycle,
		Description:     req.Description,
		Notes:           req.Notes,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		switch err {
		case subscriptions.ErrMissingFields, subscriptions.ErrInvalidPrice:
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
		default:
			logger.Errorf("add subscription error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to add subscription"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Subscription added", "subscription": sub})
}

func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		logger.Errorf("list subscriptions error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch subscriptions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (h *SubscriptionHandler) Analytics(c *gin.Context) {
	a, err := h.svc.Analytics(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		logger.Errorf("analytics error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch analytics"})
		return
	}
	c.JSON(http.StatusOK, a)
}
