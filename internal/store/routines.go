package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// Routines is the repository for the routines table.
// weekly_days and monthly_days are JSON arrays of ints.
type Routines struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewRoutines(db *sql.DB, logger *zap.Logger) *Routines {
	return &Routines{db: db, logger: logger.Named("store.routines"), now: time.Now}
}

const routineColumns = `id, user_id, title, frequency_type, weekly_days, monthly_days,
	skip_weekends, is_active, created_at, updated_at`

// ListActive returns the user's active routines in creation order.
func (r *Routines) ListActive(ctx context.Context, userID int64) ([]models.Routine, error) {
	return r.list(ctx, `SELECT `+routineColumns+` FROM routines WHERE user_id = ? AND is_active = TRUE ORDER BY id`, userID)
}

// List returns every routine of the user, active or not.
func (r *Routines) List(ctx context.Context, userID int64) ([]models.Routine, error) {
	return r.list(ctx, `SELECT `+routineColumns+` FROM routines WHERE user_id = ? ORDER BY id`, userID)
}

func (r *Routines) list(ctx context.Context, query string, args ...any) ([]models.Routine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routines := []models.Routine{}
	for rows.Next() {
		routine, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, routine)
	}
	return routines, rows.Err()
}

// Get returns one routine owned by userID.
func (r *Routines) Get(ctx context.Context, userID, id int64) (models.Routine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return models.Routine{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Routine{}, err
		}
		return models.Routine{}, ErrNotFound
	}
	return r.scan(rows)
}

// CountActive is used to enforce the tier's routine limit.
func (r *Routines) CountActive(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM routines WHERE user_id = ? AND is_active = TRUE`, userID,
	).Scan(&n)
	return n, err
}

// Create validates and inserts routine, filling in its id and timestamps.
func (r *Routines) Create(ctx context.Context, routine *models.Routine) error {
	if err := routine.Validate(); err != nil {
		return err
	}
	weekly, monthly := encodeDays(routine)

	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO routines (user_id, title, frequency_type, weekly_days, monthly_days,
			skip_weekends, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		routine.UserID, routine.Title, routine.FrequencyType, weekly, monthly,
		routine.SkipWeekends, routine.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert routine: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	routine.ID = id
	routine.CreatedAt = now
	routine.UpdatedAt = now
	return nil
}

// Update validates and overwrites routine. ErrNotFound when the user does not own it.
func (r *Routines) Update(ctx context.Context, routine *models.Routine) error {
	if err := routine.Validate(); err != nil {
		return err
	}
	weekly, monthly := encodeDays(routine)

	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE routines
		SET title = ?, frequency_type = ?, weekly_days = ?, monthly_days = ?,
			skip_weekends = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		routine.Title, routine.FrequencyType, weekly, monthly,
		routine.SkipWeekends, routine.IsActive, now,
		routine.ID, routine.UserID,
	)
	if err != nil {
		return fmt.Errorf("update routine %d: %w", routine.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	routine.UpdatedAt = now
	return nil
}

// Delete removes a routine owned by userID.
func (r *Routines) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM routines WHERE id = ? AND user_id = ?`, id, userID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Routines) scan(row rowScanner) (models.Routine, error) {
	var (
		routine         models.Routine
		frequency       string
		weekly, monthly sql.NullString
	)
	err := row.Scan(&routine.ID, &routine.UserID, &routine.Title, &frequency, &weekly, &monthly,
		&routine.SkipWeekends, &routine.IsActive, &routine.CreatedAt, &routine.UpdatedAt)
	if err != nil {
		return models.Routine{}, err
	}
	routine.FrequencyType = models.FrequencyType(frequency)

	// A bad day set makes the routine never due instead of failing the whole listing.
	routine.WeeklyDays = r.decodeDays(routine.ID, "weekly_days", weekly, 0, 6)
	routine.MonthlyDays = r.decodeDays(routine.ID, "monthly_days", monthly, 1, 31)
	return routine, nil
}

func (r *Routines) decodeDays(routineID int64, column string, raw sql.NullString, lo, hi int) []int {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	var days []int
	if err := json.Unmarshal([]byte(raw.String), &days); err != nil {
		r.logger.Warn("malformed day set; treating as empty",
			zap.Int64("routine_id", routineID), zap.String("column", column), zap.Error(err))
		return nil
	}
	for _, d := range days {
		if d < lo || d > hi {
			r.logger.Warn("day set out of range; treating as empty",
				zap.Int64("routine_id", routineID), zap.String("column", column), zap.Int("day", d))
			return nil
		}
	}
	return days
}

func encodeDays(routine *models.Routine) (weekly, monthly sql.NullString) {
	return encodeDaySet(routine.WeeklyDays), encodeDaySet(routine.MonthlyDays)
}

func encodeDaySet(days []int) sql.NullString {
	if len(days) == 0 {
		return sql.NullString{}
	}
	b, _ := json.Marshal(days) // []int always marshals
	return sql.NullString{String: string(b), Valid: true}
}
