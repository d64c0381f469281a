package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// Tasks is the repository for the tasks table.
type Tasks struct {
	db  *sql.DB
	now func() time.Time
}

func NewTasks(db *sql.DB) *Tasks {
	return &Tasks{db: db, now: time.Now}
}

// TaskFilter narrows List. Zero values mean no bound.
type TaskFilter struct {
	From, To *time.Time
	Open     bool
}

// List returns the user's tasks ordered by due date; tasks without a due date come last.
func (t *Tasks) List(ctx context.Context, userID int64, f TaskFilter) ([]models.Task, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.From != nil {
		where = append(where, "due_date >= ?")
		args = append(args, f.From.Format(time.DateOnly))
	}
	if f.To != nil {
		where = append(where, "due_date <= ?")
		args = append(args, f.To.Format(time.DateOnly))
	}
	if f.Open {
		where = append(where, "is_completed = FALSE")
	}

	query := `
		SELECT id, user_id, title, notes, category, category_slug, due_date,
			is_completed, completed_at, created_at, updated_at
		FROM tasks
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY due_date IS NULL, due_date, id`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var (
			task                  models.Task
			notes, category, slug sql.NullString
			dueDate, completedAt  sql.NullTime
		)
		err := rows.Scan(&task.ID, &task.UserID, &task.Title, &notes, &category, &slug, &dueDate,
			&task.IsCompleted, &completedAt, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return nil, err
		}
		task.Notes = nullString(notes)
		task.Category = nullString(category)
		task.CategorySlug = nullString(slug)
		task.DueDate = nullTime(dueDate)
		task.CompletedAt = nullTime(completedAt)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Create inserts task and fills in its id.
func (t *Tasks) Create(ctx context.Context, task *models.Task) error {
	now := t.now().UTC()
	var due any
	if task.DueDate != nil {
		due = task.DueDate.Format(time.DateOnly)
	}
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, notes, category, category_slug, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.UserID, task.Title, task.Notes, task.Category, task.CategorySlug, due, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// Complete marks a task done. Completing twice keeps the first completion time.
func (t *Tasks) Complete(ctx context.Context, userID, id int64) error {
	now := t.now().UTC()
	res, err := t.db.ExecContext(ctx, `
		UPDATE tasks
		SET is_completed = TRUE, completed_at = COALESCE(completed_at, ?), updated_at = ?
		WHERE id = ? AND user_id = ?`,
		now, now, id, userID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task owned by userID.
func (t *Tasks) Delete(ctx context.Context, userID, id int64) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TaskStats summarises a user's tasks since a point in time.
type TaskStats struct {
	Completed int `json:"completed"`
	Open      int `json:"open"`
}

// Stats counts tasks completed since since, and all currently open tasks.
func (t *Tasks) Stats(ctx context.Context, userID int64, since time.Time) (TaskStats, error) {
	var s TaskStats
	err := t.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN is_completed = TRUE AND completed_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_completed = FALSE THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE user_id = ?`, since.UTC(), userID,
	).Scan(&s.Completed, &s.Open)
	return s, err
}
