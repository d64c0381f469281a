package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// ChatInput defines the structure of the JSON request body.
type ChatInput struct {
	Message string `json:"message" binding:"required,max=4000"`
}

// ChatAI handles the interaction with the AI Assistant.
// POST /v1/ai/chat
func (h *Handlers) ChatAI(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant is not configured"})
		return
	}

	// 1. Parse Input
	var input ChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. Check plan and daily quota (UTC day).
	ent, err := h.Billing.Entitlements(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ent.AIChat {
		c.JSON(http.StatusForbidden, gin.H{"error": "AI chat is not included in your plan", "tier": ent.Tier})
		return
	}
	now := h.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	used, err := h.Chat.CountSince(c.Request.Context(), userID, dayStart)
	if err != nil {
		h.Logger.Error("chat quota", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check AI quota"})
		return
	}
	if used >= ent.AIMessagesPerDay {
		c.JSON(http.StatusForbidden, gin.H{"error": "Daily AI message limit reached", "limit": ent.AIMessagesPerDay})
		return
	}

	// 3. Call the assistant.
	reply, err := h.Assistant.Reply(c.Request.Context(), userID, input.Message)
	if err != nil {
		h.Logger.Error("assistant reply", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI Service unavailable"})
		return
	}

	// 4. Save to History. The user already has an answer, so a failed write is only logged.
	msg := &models.ChatMessage{
		UserID:      userID,
		UserMessage: input.Message,
		AIResponse:  reply.Text,
		TokensUsed:  reply.TokensUsed,
	}
	if err := h.Chat.Save(c.Request.Context(), msg); err != nil {
		h.Logger.Warn("failed to save chat history", zap.Int64("user_id", userID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"response":  reply.Text,
		"remaining": ent.AIMessagesPerDay - used - 1,
	})
}
