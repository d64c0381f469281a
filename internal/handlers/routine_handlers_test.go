package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

func TestCreateRoutineValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"weekly without days", map[string]any{"title": "Gym", "frequencyType": "weekly"}, http.StatusBadRequest},
		{"weekday out of range", map[string]any{"title": "Gym", "frequencyType": "weekly", "weeklyDays": []int{7}}, http.StatusBadRequest},
		{"monthly day zero", map[string]any{"title": "Rent", "frequencyType": "monthly", "monthlyDays": []int{0}}, http.StatusBadRequest},
		{"unknown frequency", map[string]any{"title": "Tax", "frequencyType": "yearly"}, http.StatusBadRequest},
		{"daily with days", map[string]any{"title": "Walk", "frequencyType": "daily", "weeklyDays": []int{1}}, http.StatusBadRequest},
		{"missing title", map[string]any{"frequencyType": "daily"}, http.StatusBadRequest},
		{"weekly ok", map[string]any{"title": "Gym", "frequencyType": "weekly", "weeklyDays": []int{1, 3, 5}}, http.StatusCreated},
		{"monthly ok", map[string]any{"title": "Rent", "frequencyType": "monthly", "monthlyDays": []int{1, 31}}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/v1/routines", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCreateRoutineEnforcesPlanLimit(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 5; i++ {
		e.routines.rows = append(e.routines.rows, models.Routine{ID: int64(i + 1), UserID: 1, FrequencyType: models.FrequencyDaily, IsActive: true})
	}

	w := e.do(t, http.MethodPost, "/v1/routines", map[string]any{"title": "One more", "frequencyType": "daily"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Inactive routines do not count against the limit.
	w = e.do(t, http.MethodPost, "/v1/routines", map[string]any{"title": "Parked", "frequencyType": "daily", "isActive": false})
	assert.Equal(t, http.StatusCreated, w.Code)

	e.billing.ent = proEnt
	w = e.do(t, http.MethodPost, "/v1/routines", map[string]any{"title": "One more", "frequencyType": "daily"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDueRoutines(t *testing.T) {
	e := newEnv(t)
	e.routines.rows = []models.Routine{
		{ID: 1, UserID: 1, Title: "Gym", FrequencyType: models.FrequencyWeekly, WeeklyDays: []int{1, 3, 5}, IsActive: true},
		{ID: 2, UserID: 1, Title: "Rent", FrequencyType: models.FrequencyMonthly, MonthlyDays: []int{1}, IsActive: true},
		{ID: 3, UserID: 1, Title: "Walk", FrequencyType: models.FrequencyDaily, SkipWeekends: true, IsActive: true},
		{ID: 4, UserID: 1, Title: "Paused", FrequencyType: models.FrequencyDaily, IsActive: false},
		{ID: 5, UserID: 2, Title: "Not mine", FrequencyType: models.FrequencyDaily, IsActive: true},
	}

	// Default date is "today" (a Wednesday, the 3rd).
	w := e.do(t, http.MethodGet, "/v1/routines/due", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2024-01-03", body["date"])
	assert.Equal(t, []string{"Gym", "Walk"}, titles(body["routines"]))

	// Saturday the 6th: walk is skipped, nothing else fires.
	w = e.do(t, http.MethodGet, "/v1/routines/due?date=2024-01-06", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, titles(decode(t, w)["routines"]))

	w = e.do(t, http.MethodGet, "/v1/routines/due?date=2024-02-01", nil)
	assert.Equal(t, []string{"Rent", "Walk"}, titles(decode(t, w)["routines"]))

	w = e.do(t, http.MethodGet, "/v1/routines/due?date=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAndDeleteRoutine(t *testing.T) {
	e := newEnv(t)
	e.routines.rows = []models.Routine{
		{ID: 1, UserID: 1, Title: "Gym", FrequencyType: models.FrequencyWeekly, WeeklyDays: []int{1}, IsActive: true},
		{ID: 2, UserID: 2, Title: "Theirs", FrequencyType: models.FrequencyDaily, IsActive: true},
	}

	w := e.do(t, http.MethodPut, "/v1/routines/1", map[string]any{"title": "Gym", "frequencyType": "weekly", "weeklyDays": []int{2, 4}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int{2, 4}, e.routines.rows[0].WeeklyDays)

	w = e.do(t, http.MethodPut, "/v1/routines/2", map[string]any{"title": "Mine now", "frequencyType": "daily"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPut, "/v1/routines/abc", map[string]any{"title": "x", "frequencyType": "daily"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, "/v1/routines/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodDelete, "/v1/routines/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func titles(v any) []string {
	out := []string{}
	list, _ := v.([]any)
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m["title"].(string))
		}
	}
	return out
}
