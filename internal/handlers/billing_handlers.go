package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/models"
)

// maxWebhookBody is the largest webhook payload accepted.
const maxWebhookBody = 65536

// GetSubscription returns the caller's subscription with eligibility and entitlements.
// GET /v1/billing/subscription
func (h *Handlers) GetSubscription(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.Billing.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type CheckoutInput struct {
	PlanType models.PlanType `json:"planType" binding:"required"`
}

// StartCheckout opens a hosted checkout for a paid plan.
// POST /v1/billing/checkout
func (h *Handlers) StartCheckout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, billing.ErrInvalidPlan)
		return
	}

	res, err := h.Billing.StartCheckout(c.Request.Context(), userID, input.PlanType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ClaimPremiumBonus grants the loyalty bonus to an eligible pro subscriber.
// POST /v1/billing/premium-bonus
func (h *Handlers) ClaimPremiumBonus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.Billing.ClaimPremiumBonus(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": view})
}

// OpenBillingPortal returns the provider's self-service URL.
// POST /v1/billing/portal
func (h *Handlers) OpenBillingPortal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	url, err := h.Billing.OpenBillingPortal(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// BillingWebhook mirrors provider subscription changes onto the local record.
// POST /v1/billing/webhook (public, signature-verified)
func (h *Handlers) BillingWebhook(c *gin.Context) {
	if h.ParseWebhook == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing webhooks are not configured"})
		return
	}

	// 1. --- Read Body ---
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to read body"})
		return
	}
	if len(payload) > maxWebhookBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return
	}

	// 2. --- Verify & Parse ---
	event, err := h.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, billing.ErrUnhandledEvent) {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err != nil {
		h.Logger.Warn("webhook rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook"})
		return
	}

	// 3. --- Sync Subscription ---
	reason := models.ReasonProviderSync
	if event.Type == billing.EventSubscriptionDeleted {
		reason = models.ReasonSubscriptionCanceled
	}
	if _, err := h.Billing.SyncSubscription(c.Request.Context(), event.SubscriptionID, reason); err != nil {
		h.Logger.Error("webhook sync failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.String("stripe_subscription_id", event.SubscriptionID),
			zap.Error(err),
		)
		// Non-2xx makes the provider retry.
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
