package models

import "time"

// Task is the model for the 'tasks' table
type Task struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"userId" db:"user_id"`
	Title        string     `json:"title" db:"title"`
	Notes        *string    `json:"notes,omitempty" db:"notes"`
	Category     *string    `json:"category,omitempty" db:"category"`
	CategorySlug *string    `json:"categorySlug,omitempty" db:"category_slug"`
	DueDate      *time.Time `json:"dueDate,omitempty" db:"due_date"`
	IsCompleted  bool       `json:"isCompleted" db:"is_completed"`
	CompletedAt  *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// CalendarNote is the model for the 'calendar_notes' table (one per user per day)
type CalendarNote struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	NoteDate  string    `json:"noteDate" db:"note_date"` // YYYY-MM-DD
	Content   string    `json:"content" db:"content"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ChatMessage is the model for the 'ai_chat_history' table
type ChatMessage struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	UserMessage string    `json:"userMessage" db:"user_message"`
	AIResponse  string    `json:"aiResponse" db:"ai_response"`
	TokensUsed  int       `json:"tokensUsed" db:"tokens_used"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
