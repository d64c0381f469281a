// Package handlers holds the gin handlers of the v1 API. Every handler is a method on
// Handlers so its collaborators are injected once at startup.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/ai"
	"github.com/01moynul/dayplanner-golang/internal/apperr"
	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/middleware"
	"github.com/01moynul/dayplanner-golang/internal/models"
	"github.com/01moynul/dayplanner-golang/internal/store"
)

// UserStore is the account repository.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
}

// RoutineStore is the routine repository.
type RoutineStore interface {
	List(ctx context.Context, userID int64) ([]models.Routine, error)
	ListActive(ctx context.Context, userID int64) ([]models.Routine, error)
	Get(ctx context.Context, userID, id int64) (models.Routine, error)
	CountActive(ctx context.Context, userID int64) (int, error)
	Create(ctx context.Context, routine *models.Routine) error
	Update(ctx context.Context, routine *models.Routine) error
	Delete(ctx context.Context, userID, id int64) error
}

// TaskStore is the task repository.
type TaskStore interface {
	List(ctx context.Context, userID int64, f store.TaskFilter) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Complete(ctx context.Context, userID, id int64) error
	Delete(ctx context.Context, userID, id int64) error
	Stats(ctx context.Context, userID int64, since time.Time) (store.TaskStats, error)
}

// NoteStore is the calendar note repository.
type NoteStore interface {
	ListMonth(ctx context.Context, userID int64, month time.Time) ([]models.CalendarNote, error)
	Upsert(ctx context.Context, note *models.CalendarNote) error
}

// ChatStore records assistant exchanges.
type ChatStore interface {
	Save(ctx context.Context, msg *models.ChatMessage) error
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// Billing is the subscription state machine as the handlers see it.
type Billing interface {
	GetSubscription(ctx context.Context, userID int64) (billing.SubscriptionView, error)
	Entitlements(ctx context.Context, userID int64) (billing.Entitlements, error)
	StartCheckout(ctx context.Context, userID int64, plan models.PlanType) (billing.CheckoutResult, error)
	ClaimPremiumBonus(ctx context.Context, userID int64) (billing.SubscriptionView, error)
	OpenBillingPortal(ctx context.Context, userID int64) (string, error)
	SyncSubscription(ctx context.Context, subscriptionID, reason string) (models.Subscription, error)
}

// Assistant answers chat messages.
type Assistant interface {
	Reply(ctx context.Context, userID int64, message string) (ai.Reply, error)
}

// TokenIssuer signs login tokens.
type TokenIssuer interface {
	GenerateToken(userID int64) (string, error)
}

// EventParser verifies a provider webhook and extracts the subscription it concerns.
type EventParser func(payload []byte, signature string) (*billing.ProviderEvent, error)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Users    UserStore
	Routines RoutineStore
	Tasks    TaskStore
	Notes    NoteStore
	Chat     ChatStore
	Billing  Billing
	Tokens   TokenIssuer

	// Assistant and ParseWebhook are nil when their integration is not configured.
	Assistant    Assistant
	ParseWebhook EventParser

	Logger *zap.Logger
	Now    func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// currentUser reads the id set by AuthMiddleware.
func currentUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return id, ok
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) fail(c *gin.Context, err error) {
	apperr.Respond(c, h.Logger, err)
}

// Ping answers liveness checks.
func (h *Handlers) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong!"})
}
