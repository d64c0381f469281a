package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/database"
	"github.com/01moynul/dayplanner-golang/internal/models"
	"github.com/01moynul/dayplanner-golang/internal/store"
)

func newMigrateCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel, env, err := connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer env.Close()

			if err := database.Migrate(ctx, env.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSetPlanCmd(connect connectFunc) *cobra.Command {
	var (
		userID int64
		plan   string
		status string
		reason string
	)

	cmd := &cobra.Command{
		Use:   "set-plan",
		Short: "Overwrite a user's plan and status without going through the provider",
		Long: `Overwrite a user's plan and status locally.

Use this to repair a record after a logged partial failure when the provider
state is known. A tier change is appended to the plan change log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errUserRequired
			}
			p := models.PlanType(plan)
			if !p.Valid() {
				return fmt.Errorf("unknown plan %q (want free, pro or premium)", plan)
			}
			st, err := parseStatus(status)
			if err != nil {
				return err
			}

			ctx, cancel, env, err := connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer env.Close()

			sub, err := env.billingService().PatchPlan(ctx, userID, p, st, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d: plan=%s status=%s\n", sub.UserID, sub.PlanType, sub.Status)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	cmd.Flags().StringVar(&plan, "plan", "", "free, pro or premium")
	cmd.Flags().StringVar(&status, "status", string(models.StatusActive), "none, trialing, active or canceled")
	cmd.Flags().StringVar(&reason, "reason", models.ReasonManualPatch, "Reason recorded in the plan change log")
	return cmd
}

func parseStatus(s string) (models.SubscriptionStatus, error) {
	switch st := models.SubscriptionStatus(s); st {
	case models.StatusNone, models.StatusTrialing, models.StatusActive, models.StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func newReconcileCmd(connect connectFunc) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-read a user's subscription from Stripe and overwrite the local record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errUserRequired
			}
			ctx, cancel, env, err := connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer env.Close()

			if !env.cfg.BillingEnabled() {
				return billing.ErrNotConfigured
			}
			sub, err := env.billingService().Reconcile(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d: plan=%s status=%s\n", sub.UserID, sub.PlanType, sub.Status)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	return cmd
}

func newHistoryCmd(connect connectFunc) *cobra.Command {
	var (
		userID int64
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a user's plan change log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errUserRequired
			}
			ctx, cancel, env, err := connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer env.Close()

			entries, err := store.NewSubscriptions(env.db, env.logger).PlanChanges(ctx, userID, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tFROM\tTO\tREASON")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.UTC().Format("2006-01-02 15:04"), e.FromPlan, e.ToPlan, e.Reason)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	return cmd
}
