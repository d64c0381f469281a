package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTasksAppliesRange(t *testing.T) {
	db, mock := newMock(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND due_date >= ? AND due_date <= ?")).
		WithArgs(int64(1), "2024-01-01", "2024-01-31").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "title", "notes", "category", "category_slug", "due_date",
			"is_completed", "completed_at", "created_at", "updated_at",
		}).AddRow(1, 1, "Pay rent", nil, "Home Admin", "home-admin", due, false, nil, now, now))

	tasks, err := NewTasks(db).List(context.Background(), 1, TaskFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "home-admin", *tasks[0].CategorySlug)
	assert.Nil(t, tasks[0].Notes)
	assert.Equal(t, due, *tasks[0].DueDate)
}

func TestCompleteTaskNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("COALESCE(completed_at, ?)")).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewTasks(db).Complete(context.Background(), 1, 99), ErrNotFound)
}

func TestTaskStats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM tasks").
		WillReturnRows(sqlmock.NewRows([]string{"completed", "open"}).AddRow(3, 2))

	s, err := NewTasks(db).Stats(context.Background(), 1, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, TaskStats{Completed: 3, Open: 2}, s)
}
