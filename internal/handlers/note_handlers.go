package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

type NoteInput struct {
	Content string `json:"content" binding:"max=10000"`
}

// ListNotes returns the caller's notes for ?month=YYYY-MM (default: current month).
// GET /v1/notes
func (h *Handlers) ListNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	month := h.now().UTC()
	if raw := c.Query("month"); raw != "" {
		m, err := time.Parse("2006-01", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
			return
		}
		month = m
	}

	notes, err := h.Notes.ListMonth(c.Request.Context(), userID, month)
	if err != nil {
		h.Logger.Error("list notes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"month": month.Format("2006-01"), "notes": notes})
}

// PutNote writes the note for one day, replacing what was there.
// PUT /v1/notes/:date
func (h *Handlers) PutNote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	date, err := time.Parse(time.DateOnly, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	var input NoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note := &models.CalendarNote{
		UserID:   userID,
		NoteDate: date.Format(time.DateOnly),
		Content:  input.Content,
	}
	if err := h.Notes.Upsert(c.Request.Context(), note); err != nil {
		h.Logger.Error("put note", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save note"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}
