package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/config"
	"github.com/01moynul/dayplanner-golang/internal/database"
	"github.com/01moynul/dayplanner-golang/internal/logging"
	"github.com/01moynul/dayplanner-golang/internal/store"
)

var errUserRequired = errors.New("--user is required")

type opsEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
}

func (e *opsEnv) Close() {
	if e.db != nil {
		e.db.Close()
	}
	_ = e.logger.Sync()
}

// billingService builds the subscription service. Without Stripe settings only
// local operations (set-plan, history) work.
func (e *opsEnv) billingService() *billing.Service {
	subs := store.NewSubscriptions(e.db, e.logger)
	users := store.NewUsers(e.db)
	if !e.cfg.BillingEnabled() {
		return billing.NewService(billing.Config{}, nil, subs, users, e.logger)
	}
	return billing.NewService(billing.Config{
		PriceIDs:    e.cfg.StripePriceIDs,
		FrontendURL: e.cfg.FrontendURL,
	}, billing.NewStripeProvider(e.cfg.StripeSecretKey), subs, users, e.logger)
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operate the dayplanner database and billing records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file read before the process environment")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	// connect opens the primary database with the shared flags applied.
	connect := func(cmd *cobra.Command) (context.Context, context.CancelFunc, *opsEnv, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, nil, nil, err
		}
		logger, err := logging.New(cfg.LogLevel, "console")
		if err != nil {
			return nil, nil, nil, err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		db, err := database.OpenDB(ctx, cfg.DBDSNPrimary, database.DefaultPoolOptions(), logger)
		if err != nil {
			cancel()
			return nil, nil, nil, fmt.Errorf("connect: %w", err)
		}
		return ctx, cancel, &opsEnv{cfg: cfg, logger: logger, db: db}, nil
	}

	root.AddCommand(
		newMigrateCmd(connect),
		newSetPlanCmd(connect),
		newReconcileCmd(connect),
		newHistoryCmd(connect),
	)
	return root
}

type connectFunc func(cmd *cobra.Command) (context.Context, context.CancelFunc, *opsEnv, error)
