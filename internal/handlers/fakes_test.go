package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/ai"
	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/middleware"
	"github.com/01moynul/dayplanner-golang/internal/models"
	"github.com/01moynul/dayplanner-golang/internal/store"
)

var fixedNow = time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC) // a Wednesday

type fakeUsers struct {
	byID map[int64]models.User
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return store.ErrDuplicateEmail
		}
	}
	u.ID = int64(len(f.byID) + 1)
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

type fakeRoutines struct {
	rows   []models.Routine
	nextID int64
}

func (f *fakeRoutines) List(_ context.Context, userID int64) ([]models.Routine, error) {
	out := []models.Routine{}
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoutines) ListActive(ctx context.Context, userID int64) ([]models.Routine, error) {
	all, _ := f.List(ctx, userID)
	out := []models.Routine{}
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoutines) Get(_ context.Context, userID, id int64) (models.Routine, error) {
	for _, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return models.Routine{}, store.ErrNotFound
}

func (f *fakeRoutines) CountActive(ctx context.Context, userID int64) (int, error) {
	active, _ := f.ListActive(ctx, userID)
	return len(active), nil
}

func (f *fakeRoutines) Create(_ context.Context, r *models.Routine) error {
	f.nextID++
	r.ID = 100 + f.nextID
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeRoutines) Update(_ context.Context, r *models.Routine) error {
	for i, existing := range f.rows {
		if existing.ID == r.ID && existing.UserID == r.UserID {
			f.rows[i] = *r
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeRoutines) Delete(_ context.Context, userID, id int64) error {
	for i, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeTasks struct {
	created    []models.Task
	lastFilter store.TaskFilter
	stats      store.TaskStats
	statsSince time.Time
}

func (f *fakeTasks) List(_ context.Context, _ int64, flt store.TaskFilter) ([]models.Task, error) {
	f.lastFilter = flt
	return f.created, nil
}

func (f *fakeTasks) Create(_ context.Context, t *models.Task) error {
	t.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *t)
	return nil
}

func (f *fakeTasks) Complete(_ context.Context, _, id int64) error {
	if id > int64(len(f.created)) {
		return store.ErrNotFound
	}
	return nil
}

func (f *fakeTasks) Delete(_ context.Context, _, id int64) error {
	if id > int64(len(f.created)) {
		return store.ErrNotFound
	}
	return nil
}

func (f *fakeTasks) Stats(_ context.Context, _ int64, since time.Time) (store.TaskStats, error) {
	f.statsSince = since
	return f.stats, nil
}

type fakeNotes struct {
	saved []models.CalendarNote
	month time.Time
}

func (f *fakeNotes) ListMonth(_ context.Context, _ int64, month time.Time) ([]models.CalendarNote, error) {
	f.month = month
	return f.saved, nil
}

func (f *fakeNotes) Upsert(_ context.Context, n *models.CalendarNote) error {
	f.saved = append(f.saved, *n)
	return nil
}

type fakeChat struct {
	mu    sync.Mutex
	saved []models.ChatMessage
	used  int
}

func (f *fakeChat) Save(_ context.Context, m *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *m)
	return nil
}

func (f *fakeChat) CountSince(context.Context, int64, time.Time) (int, error) {
	return f.used, nil
}

// fakeBilling returns canned results and records calls.
type fakeBilling struct {
	view       billing.SubscriptionView
	ent        billing.Entitlements
	checkout   billing.CheckoutResult
	portalURL  string
	err        error
	checkouts  []models.PlanType
	syncs      []string
	syncReason []string
}

func (f *fakeBilling) GetSubscription(context.Context, int64) (billing.SubscriptionView, error) {
	return f.view, f.err
}

func (f *fakeBilling) Entitlements(context.Context, int64) (billing.Entitlements, error) {
	return f.ent, nil
}

func (f *fakeBilling) StartCheckout(_ context.Context, _ int64, plan models.PlanType) (billing.CheckoutResult, error) {
	f.checkouts = append(f.checkouts, plan)
	return f.checkout, f.err
}

func (f *fakeBilling) ClaimPremiumBonus(context.Context, int64) (billing.SubscriptionView, error) {
	return f.view, f.err
}

func (f *fakeBilling) OpenBillingPortal(context.Context, int64) (string, error) {
	return f.portalURL, f.err
}

func (f *fakeBilling) SyncSubscription(_ context.Context, id, reason string) (models.Subscription, error) {
	f.syncs = append(f.syncs, id)
	f.syncReason = append(f.syncReason, reason)
	return models.Subscription{}, f.err
}

type fakeAssistant struct {
	reply ai.Reply
	err   error
	asked []string
}

func (f *fakeAssistant) Reply(_ context.Context, _ int64, msg string) (ai.Reply, error) {
	f.asked = append(f.asked, msg)
	return f.reply, f.err
}

type fakeTokens struct{}

func (fakeTokens) GenerateToken(userID int64) (string, error) {
	return fmt.Sprintf("token-for-%d", userID), nil
}

type env struct {
	h        *Handlers
	users    *fakeUsers
	routines *fakeRoutines
	tasks    *fakeTasks
	notes    *fakeNotes
	chat     *fakeChat
	billing  *fakeBilling
	asst     *fakeAssistant
	router   *gin.Engine
}

var (
	freeEnt = billing.Entitlements{Tier: models.PlanFree, MaxActiveRoutines: 5, AnalyticsRangeDays: 7}
	proEnt  = billing.Entitlements{Tier: models.PlanPro, MaxActiveRoutines: 50, AIChat: true, AIMessagesPerDay: 50, AnalyticsRangeDays: 90}
)

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &env{
		users:    &fakeUsers{byID: map[int64]models.User{}},
		routines: &fakeRoutines{},
		tasks:    &fakeTasks{},
		notes:    &fakeNotes{},
		chat:     &fakeChat{},
		billing:  &fakeBilling{ent: freeEnt},
		asst:     &fakeAssistant{},
	}
	e.h = &Handlers{
		Users:     e.users,
		Routines:  e.routines,
		Tasks:     e.tasks,
		Notes:     e.notes,
		Chat:      e.chat,
		Billing:   e.billing,
		Tokens:    fakeTokens{},
		Assistant: e.asst,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return fixedNow },
	}

	r := gin.New()
	r.POST("/v1/register", e.h.Register)
	r.POST("/v1/login", e.h.Login)
	r.POST("/v1/billing/webhook", e.h.BillingWebhook)

	authed := r.Group("/v1", func(c *gin.Context) {
		if c.GetHeader("X-Test-User") == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(middleware.UserIDKey, int64(1))
	})
	authed.GET("/profile/me", e.h.Me)
	authed.GET("/routines", e.h.ListRoutines)
	authed.POST("/routines", e.h.CreateRoutine)
	authed.GET("/routines/due", e.h.DueRoutines)
	authed.PUT("/routines/:id", e.h.UpdateRoutine)
	authed.DELETE("/routines/:id", e.h.DeleteRoutine)
	authed.GET("/tasks", e.h.ListTasks)
	authed.POST("/tasks", e.h.CreateTask)
	authed.PATCH("/tasks/:id/complete", e.h.CompleteTask)
	authed.GET("/notes", e.h.ListNotes)
	authed.PUT("/notes/:date", e.h.PutNote)
	authed.POST("/ai/chat", e.h.ChatAI)
	authed.GET("/dashboard/stats", e.h.GetDashboardStats)
	authed.GET("/billing/subscription", e.h.GetSubscription)
	authed.POST("/billing/checkout", e.h.StartCheckout)
	authed.POST("/billing/portal", e.h.OpenBillingPortal)
	authed.POST("/billing/premium-bonus", e.h.ClaimPremiumBonus)
	e.router = r
	return e
}

// do sends a request as user 1.
func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "1")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
