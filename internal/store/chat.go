package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// ChatHistory is the repository for ai_chat_history.
type ChatHistory struct {
	db *sql.DB
}

func NewChatHistory(db *sql.DB) *ChatHistory {
	return &ChatHistory{db: db}
}

// Save appends one exchange.
func (h *ChatHistory) Save(ctx context.Context, msg *models.ChatMessage) error {
	now := time.Now().UTC()
	res, err := h.db.ExecContext(ctx, `
		INSERT INTO ai_chat_history (user_id, user_message, ai_response, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.UserID, msg.UserMessage, msg.AIResponse, msg.TokensUsed, now,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	msg.CreatedAt = now
	return nil
}

// CountSince counts the user's messages at or after since. Used for the daily quota.
func (h *ChatHistory) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ai_chat_history WHERE user_id = ? AND created_at >= ?`,
		userID, since.UTC(),
	).Scan(&n)
	return n, err
}
