package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// PlannerData is the read side the assistant's tools use.
// Build it on the read-only pool when one is configured.
type PlannerData struct {
	tasks    *Tasks
	routines *Routines
}

func NewPlannerData(db *sql.DB, logger *zap.Logger) *PlannerData {
	return &PlannerData{tasks: NewTasks(db), routines: NewRoutines(db, logger)}
}

func (p *PlannerData) ListTasks(ctx context.Context, userID int64, from, to time.Time) ([]models.Task, error) {
	return p.tasks.List(ctx, userID, TaskFilter{From: &from, To: &to})
}

func (p *PlannerData) ListActiveRoutines(ctx context.Context, userID int64) ([]models.Routine, error) {
	return p.routines.ListActive(ctx, userID)
}
