package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
	"github.com/01moynul/dayplanner-golang/internal/routine"
	"github.com/01moynul/dayplanner-golang/internal/store"
)

// RoutineInput is the body of create and update.
type RoutineInput struct {
	Title         string               `json:"title"`
	FrequencyType models.FrequencyType `json:"frequencyType"`
	WeeklyDays    []int                `json:"weeklyDays"`
	MonthlyDays   []int                `json:"monthlyDays"`
	SkipWeekends  bool                 `json:"skipWeekends"`
	IsActive      *bool                `json:"isActive"`
}

func (in RoutineInput) toModel(userID int64) models.Routine {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return models.Routine{
		UserID:        userID,
		Title:         in.Title,
		FrequencyType: in.FrequencyType,
		WeeklyDays:    in.WeeklyDays,
		MonthlyDays:   in.MonthlyDays,
		SkipWeekends:  in.SkipWeekends,
		IsActive:      active,
	}
}

// ListRoutines returns all of the caller's routines.
// GET /v1/routines
func (h *Handlers) ListRoutines(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	routines, err := h.Routines.List(c.Request.Context(), userID)
	if err != nil {
		h.Logger.Error("list routines", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load routines"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"routines": routines})
}

// CreateRoutine adds a routine, subject to the tier's routine limit.
// POST /v1/routines
func (h *Handlers) CreateRoutine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	// 1. --- Bind Input ---
	var input RoutineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r := input.toModel(userID)
	if err := r.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	// 2. --- Enforce Plan Limit ---
	if r.IsActive && !h.allowsAnotherRoutine(c, userID) {
		return
	}

	// 3. --- Save ---
	if err := h.Routines.Create(c.Request.Context(), &r); err != nil {
		h.Logger.Error("create routine", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create routine"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"routine": r})
}

// UpdateRoutine replaces a routine the caller owns.
// PUT /v1/routines/:id
func (h *Handlers) UpdateRoutine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var input RoutineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r := input.toModel(userID)
	r.ID = id
	if err := r.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	// Re-activating counts against the limit like a new routine.
	existing, err := h.Routines.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.routineLookupFailed(c, err)
		return
	}
	if r.IsActive && !existing.IsActive && !h.allowsAnotherRoutine(c, userID) {
		return
	}

	if err := h.Routines.Update(c.Request.Context(), &r); err != nil {
		h.routineLookupFailed(c, err)
		return
	}
	r.CreatedAt = existing.CreatedAt
	c.JSON(http.StatusOK, gin.H{"routine": r})
}

// DeleteRoutine removes a routine the caller owns.
// DELETE /v1/routines/:id
func (h *Handlers) DeleteRoutine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Routines.Delete(c.Request.Context(), userID, id); err != nil {
		h.routineLookupFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DueRoutines lists the caller's active routines that are due on ?date (default today, UTC).
// GET /v1/routines/due
func (h *Handlers) DueRoutines(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	date := h.now().UTC()
	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = d
	}

	routines, err := h.Routines.ListActive(c.Request.Context(), userID)
	if err != nil {
		h.Logger.Error("due routines", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load routines"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date.Format(time.DateOnly),
		"routines": routine.ResolveDueRoutines(routines, date),
	})
}

func (h *Handlers) allowsAnotherRoutine(c *gin.Context, userID int64) bool {
	ent, err := h.Billing.Entitlements(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return false
	}
	active, err := h.Routines.CountActive(c.Request.Context(), userID)
	if err != nil {
		h.Logger.Error("count routines", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check routine limit"})
		return false
	}
	if !ent.AllowsRoutines(active) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Routine limit reached for your plan",
			"limit": ent.MaxActiveRoutines,
			"tier":  ent.Tier,
		})
		return false
	}
	return true
}

func (h *Handlers) routineLookupFailed(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Routine not found"})
		return
	}
	h.Logger.Error("routine write", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save routine"})
}

// validationMessage flattens validator output into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "min", "max":
		return fe.Field() + " is out of range"
	default:
		return fe.Field() + " is invalid"
	}
}
