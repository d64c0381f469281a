package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
	"github.com/01moynul/dayplanner-golang/internal/routine"
)

// DashboardStats is the KPI block on the planner home screen.
type DashboardStats struct {
	Tier             models.PlanType `json:"tier"`
	RangeDays        int             `json:"rangeDays"`
	TasksCompleted   int             `json:"tasksCompleted"`
	TasksOpen        int             `json:"tasksOpen"`
	RoutinesDueToday int             `json:"routinesDueToday"`
	ActiveRoutines   int             `json:"activeRoutines"`
	AIMessagesToday  int             `json:"aiMessagesToday"`
	AIMessagesPerDay int             `json:"aiMessagesPerDay"`
}

// GetDashboardStats returns KPI data for the dashboard over ?days=N,
// clamped to the analytics range of the caller's tier.
// GET /v1/dashboard/stats
func (h *Handlers) GetDashboardStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ent, err := h.Billing.Entitlements(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}
	if days > ent.AnalyticsRangeDays {
		days = ent.AnalyticsRangeDays
	}

	now := h.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	stats := DashboardStats{Tier: ent.Tier, RangeDays: days, AIMessagesPerDay: ent.AIMessagesPerDay}

	// 1. Tasks
	ts, err := h.Tasks.Stats(ctx, userID, today.AddDate(0, 0, -(days-1)))
	if err != nil {
		h.statsFailed(c, "tasks", err)
		return
	}
	stats.TasksCompleted, stats.TasksOpen = ts.Completed, ts.Open

	// 2. Routines due today
	routines, err := h.Routines.ListActive(ctx, userID)
	if err != nil {
		h.statsFailed(c, "routines", err)
		return
	}
	stats.ActiveRoutines = len(routines)
	stats.RoutinesDueToday = len(routine.ResolveDueRoutines(routines, today))

	// 3. AI usage
	if ent.AIChat {
		stats.AIMessagesToday, err = h.Chat.CountSince(ctx, userID, today)
		if err != nil {
			h.statsFailed(c, "ai usage", err)
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) statsFailed(c *gin.Context, what string, err error) {
	h.Logger.Error("dashboard stats", zap.String("part", what), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load " + what})
}
