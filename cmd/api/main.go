package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/ai"
	"github.com/01moynul/dayplanner-golang/internal/auth"
	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/config"
	"github.com/01moynul/dayplanner-golang/internal/database"
	"github.com/01moynul/dayplanner-golang/internal/handlers"
	"github.com/01moynul/dayplanner-golang/internal/logging"
	"github.com/01moynul/dayplanner-golang/internal/routes"
	"github.com/01moynul/dayplanner-golang/internal/store"
	"github.com/01moynul/dayplanner-golang/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dayplanner api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 0. --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Main Database Connection (Read/Write) ---
	pool := database.DefaultPoolOptions()
	pool.MaxOpenConns = cfg.MaxDBOpenConns
	pool.MaxIdleConns = cfg.MaxDBOpenConns

	db, err := database.OpenDB(ctx, cfg.DBDSNPrimary, pool, logger)
	if err != nil {
		return fmt.Errorf("primary database: %w", err)
	}
	defer db.Close()

	// 2. --- Assistant Database Connection (Read-Only) ---
	// The assistant only reads; it falls back to the primary pool when no read-only DSN is set.
	plannerDB := db
	if cfg.DBDSNReadOnly != "" {
		readOnly, err := database.OpenDB(ctx, cfg.DBDSNReadOnly, database.DefaultPoolOptions(), logger)
		if err != nil {
			return fmt.Errorf("read-only database: %w", err)
		}
		defer readOnly.Close()
		plannerDB = readOnly
	}

	// 3. --- Services ---
	tokens, err := auth.NewTokens(cfg.JWTSecret, 0)
	if err != nil {
		return err
	}

	users := store.NewUsers(db)
	subscriptions := store.NewSubscriptions(db, logger)

	app := &handlers.Handlers{
		Users:    users,
		Routines: store.NewRoutines(db, logger),
		Tasks:    store.NewTasks(db),
		Notes:    store.NewNotes(db),
		Chat:     store.NewChatHistory(db),
		Tokens:   tokens,
		Logger:   logger,
	}

	billingSvc := newBilling(cfg, subscriptions, users, logger)
	app.Billing = billingSvc
	if cfg.BillingEnabled() && cfg.StripeWebhookSecret != "" {
		secret := cfg.StripeWebhookSecret
		app.ParseWebhook = func(payload []byte, signature string) (*billing.ProviderEvent, error) {
			return billing.ParseStripeEvent(payload, signature, secret)
		}
	}

	if cfg.AIEnabled() {
		assistant, err := ai.NewAssistant(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, store.NewPlannerData(plannerDB, logger), logger)
		if err != nil {
			return err
		}
		defer assistant.Close()
		app.Assistant = assistant
	} else {
		logger.Warn("GEMINI_API_KEY not set; AI chat disabled")
	}

	// 4. --- Background Workers ---
	if cfg.BillingEnabled() {
		sweeper := &worker.TrialSweeper{
			Trials:   subscriptions,
			Billing:  billingSvc,
			Logger:   logger.Named("worker"),
			Interval: time.Hour,
			Grace:    time.Hour,
			Batch:    100,
		}
		go sweeper.Run(ctx)
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, routes.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Tokens:         tokens,
		Logger:         logger,
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting dayplanner API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newBilling wires the subscription service. Without Stripe settings the service
// still answers reads; checkout and portal report that billing is not configured.
func newBilling(cfg *config.Config, subs *store.Subscriptions, users *store.Users, logger *zap.Logger) *billing.Service {
	if !cfg.BillingEnabled() {
		logger.Warn("Stripe settings incomplete; billing disabled")
		return billing.NewService(billing.Config{}, nil, subs, users, logger)
	}
	return billing.NewService(billing.Config{
		PriceIDs:    cfg.StripePriceIDs,
		FrontendURL: cfg.FrontendURL,
	}, billing.NewStripeProvider(cfg.StripeSecretKey), subs, users, logger)
}
