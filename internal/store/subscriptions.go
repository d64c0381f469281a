package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/billing"
	"github.com/01moynul/dayplanner-golang/internal/database"
	"github.com/01moynul/dayplanner-golang/internal/models"
)

// Subscriptions implements billing.Store on the subscriptions and plan_change_log tables.
type Subscriptions struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSubscriptions(db *sql.DB, logger *zap.Logger) *Subscriptions {
	return &Subscriptions{db: db, logger: logger.Named("store.subscriptions")}
}

var _ billing.Store = (*Subscriptions)(nil)

const subscriptionColumns = `user_id, plan_type, status, stripe_customer_id, stripe_subscription_id,
	stripe_price_id, trial_end, current_period_end, cancel_at_period_end, pro_started_at,
	pro_trial_used, premium_bonus_claimed, created_at, updated_at`

// GetSubscription returns the user's row, or the free/none default when there is none.
func (s *Subscriptions) GetSubscription(ctx context.Context, userID int64) (models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = ?`
	sub, err := s.scan(s.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSubscription(userID), nil
	}
	if err != nil {
		return models.Subscription{}, fmt.Errorf("get subscription for user %d: %w", userID, err)
	}
	return sub, nil
}

func (s *Subscriptions) scan(row *sql.Row) (models.Subscription, error) {
	var (
		sub                               models.Subscription
		plan, status                      string
		customerID, subscriptionID, price sql.NullString
		trialEnd, periodEnd, proStarted   sql.NullTime
	)
	err := row.Scan(
		&sub.UserID, &plan, &status, &customerID, &subscriptionID,
		&price, &trialEnd, &periodEnd, &sub.CancelAtPeriodEnd, &proStarted,
		&sub.ProTrialUsed, &sub.PremiumBonusClaimed, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return models.Subscription{}, err
	}

	// Unknown enum values fall back to the free default so the row can still be repaired.
	sub.PlanType = models.PlanType(plan)
	if !sub.PlanType.Valid() {
		s.logger.Warn("unknown plan_type in subscriptions row; treating as free",
			zap.Int64("user_id", sub.UserID), zap.String("plan_type", plan))
		sub.PlanType = models.PlanFree
	}
	sub.Status = models.SubscriptionStatus(status)
	switch sub.Status {
	case models.StatusNone, models.StatusTrialing, models.StatusActive, models.StatusCanceled:
	default:
		s.logger.Warn("unknown status in subscriptions row; treating as none",
			zap.Int64("user_id", sub.UserID), zap.String("status", status))
		sub.Status = models.StatusNone
	}

	sub.StripeCustomerID = nullString(customerID)
	sub.StripeSubscriptionID = nullString(subscriptionID)
	sub.StripePriceID = nullString(price)
	sub.TrialEnd = nullTime(trialEnd)
	sub.CurrentPeriodEnd = nullTime(periodEnd)
	sub.ProStartedAt = nullTime(proStarted)
	return sub, nil
}

// SaveCustomerID records the provider customer id, creating the row if needed.
func (s *Subscriptions) SaveCustomerID(ctx context.Context, userID int64, customerID string) error {
	query := `
		INSERT INTO subscriptions (user_id, plan_type, status, stripe_customer_id)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE stripe_customer_id = VALUES(stripe_customer_id)`
	_, err := s.db.ExecContext(ctx, query, userID, models.PlanFree, models.StatusNone, customerID)
	if err != nil {
		return fmt.Errorf("save customer id for user %d: %w", userID, err)
	}
	return nil
}

// UpsertSubscription writes the whole row and, when change is set, its log entry in one transaction.
func (s *Subscriptions) UpsertSubscription(ctx context.Context, sub models.Subscription, change *models.PlanChangeLogEntry) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO subscriptions (
				user_id, plan_type, status, stripe_customer_id, stripe_subscription_id,
				stripe_price_id, trial_end, current_period_end, cancel_at_period_end, pro_started_at,
				pro_trial_used, premium_bonus_claimed
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				plan_type = VALUES(plan_type),
				status = VALUES(status),
				stripe_customer_id = VALUES(stripe_customer_id),
				stripe_subscription_id = VALUES(stripe_subscription_id),
				stripe_price_id = VALUES(stripe_price_id),
				trial_end = VALUES(trial_end),
				current_period_end = VALUES(current_period_end),
				cancel_at_period_end = VALUES(cancel_at_period_end),
				pro_started_at = VALUES(pro_started_at),
				pro_trial_used = VALUES(pro_trial_used),
				premium_bonus_claimed = VALUES(premium_bonus_claimed)`
		_, err := tx.ExecContext(ctx, query,
			sub.UserID, sub.PlanType, sub.Status, sub.StripeCustomerID, sub.StripeSubscriptionID,
			sub.StripePriceID, sub.TrialEnd, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd, sub.ProStartedAt,
			sub.ProTrialUsed, sub.PremiumBonusClaimed,
		)
		if err != nil {
			return fmt.Errorf("upsert subscription for user %d: %w", sub.UserID, err)
		}

		if change == nil {
			return nil
		}
		return insertPlanChange(ctx, tx, *change)
	})
}

// ClaimPremiumBonus applies the bonus only while premium_bonus_claimed is still false.
// The conditional update and the log insert share a transaction, so a claim is logged exactly once.
func (s *Subscriptions) ClaimPremiumBonus(ctx context.Context, sub models.Subscription, entry models.PlanChangeLogEntry) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			UPDATE subscriptions
			SET plan_type = ?, status = ?, stripe_price_id = ?, trial_end = ?,
				current_period_end = ?, premium_bonus_claimed = TRUE
			WHERE user_id = ? AND premium_bonus_claimed = FALSE`
		res, err := tx.ExecContext(ctx, query,
			sub.PlanType, sub.Status, sub.StripePriceID, sub.TrialEnd,
			sub.CurrentPeriodEnd, sub.UserID,
		)
		if err != nil {
			return fmt.Errorf("claim premium bonus for user %d: %w", sub.UserID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return billing.ErrBonusAlreadyClaimed
		}
		return insertPlanChange(ctx, tx, entry)
	})
}

// UserIDForCustomer maps a provider customer id back to its user.
func (s *Subscriptions) UserIDForCustomer(ctx context.Context, customerID string) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM subscriptions WHERE stripe_customer_id = ?`, customerID,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, billing.ErrUnknownCustomer
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// PlanChanges lists the user's plan change log, newest first.
func (s *Subscriptions) PlanChanges(ctx context.Context, userID int64, limit int) ([]models.PlanChangeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, from_plan, to_plan, reason, created_at
		FROM plan_change_log
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.PlanChangeLogEntry{}
	for rows.Next() {
		var e models.PlanChangeLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.FromPlan, &e.ToPlan, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LapsedTrials lists users still marked trialing whose trial ended before cutoff.
func (s *Subscriptions) LapsedTrials(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM subscriptions
		WHERE status = 'trialing' AND trial_end < ? AND stripe_subscription_id IS NOT NULL
		ORDER BY trial_end
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertPlanChange(ctx context.Context, q database.Querier, e models.PlanChangeLogEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO plan_change_log (user_id, from_plan, to_plan, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.FromPlan, e.ToPlan, e.Reason, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plan change for user %d: %w", e.UserID, err)
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
