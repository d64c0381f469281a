package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// Notes is the repository for calendar_notes (one note per user per day).
type Notes struct {
	db *sql.DB
}

func NewNotes(db *sql.DB) *Notes {
	return &Notes{db: db}
}

// ListMonth returns every note in the calendar month containing month.
func (n *Notes) ListMonth(ctx context.Context, userID int64, month time.Time) ([]models.CalendarNote, error) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	rows, err := n.db.QueryContext(ctx, `
		SELECT id, user_id, note_date, content, updated_at
		FROM calendar_notes
		WHERE user_id = ? AND note_date >= ? AND note_date < ?
		ORDER BY note_date`,
		userID, first.Format(time.DateOnly), next.Format(time.DateOnly),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.CalendarNote{}
	for rows.Next() {
		var (
			note models.CalendarNote
			date time.Time
		)
		if err := rows.Scan(&note.ID, &note.UserID, &date, &note.Content, &note.UpdatedAt); err != nil {
			return nil, err
		}
		note.NoteDate = date.Format(time.DateOnly)
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// Upsert writes the note for note.NoteDate, replacing any existing content.
func (n *Notes) Upsert(ctx context.Context, note *models.CalendarNote) error {
	now := time.Now().UTC()
	_, err := n.db.ExecContext(ctx, `
		INSERT INTO calendar_notes (user_id, note_date, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE content = VALUES(content), updated_at = VALUES(updated_at)`,
		note.UserID, note.NoteDate, note.Content, now,
	)
	if err != nil {
		return err
	}
	note.UpdatedAt = now
	return nil
}
