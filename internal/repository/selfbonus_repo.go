package repository

import (
	"context"
	"errors"

	"courier_platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type SelfBonusRepository struct {
	db *pgxpool.Pool
}

func NewSelfBonusRepository(db *pgxpool.Pool) *SelfBonusRepository {
	return &SelfBonusRepository{db: db}
}

// EnsureWithTx creates the tracking row with zeros if it does not exist yet.
func (r *SelfBonusRepository) EnsureWithTx(ctx context.Context, tx pgx.Tx, courierID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO self_bonus_tracking (courier_id, orders_completed, bonus_earned, is_completed)
		VALUES ($1, 0, 0, FALSE)
		ON CONFLICT (courier_id) DO NOTHING
	`, courierID)
	return err
}

// GetForUpdateWithTx reads the tracking row locked for the rest of the row
// transaction.
func (r *SelfBonusRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, courierID int64) (*domain.SelfBonusTracking, error) {
	var t domain.SelfBonusTracking
	err := tx.QueryRow(ctx, `
		SELECT courier_id, orders_completed, bonus_earned, is_completed
		FROM self_bonus_tracking
		WHERE courier_id = $1
		FOR UPDATE
	`, courierID).Scan(&t.CourierID, &t.OrdersCompleted, &t.BonusEarned, &t.IsCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Get reads the tracking row without locking.
func (r *SelfBonusRepository) Get(ctx context.Context, courierID int64) (*domain.SelfBonusTracking, error) {
	var t domain.SelfBonusTracking
	err := r.db.QueryRow(ctx, `
		SELECT courier_id, orders_completed, bonus_earned, is_completed
		FROM self_bonus_tracking
		WHERE courier_id = $1
	`, courierID).Scan(&t.CourierID, &t.OrdersCompleted, &t.BonusEarned, &t.IsCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// AddEarnedWithTx accumulates the amount funded out of the courier's own
// rewards toward the bonus cap.
func (r *SelfBonusRepository) AddEarnedWithTx(ctx context.Context, tx pgx.Tx, courierID int64, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		UPDATE self_bonus_tracking
		SET bonus_earned = bonus_earned + $2
		WHERE courier_id = $1 AND NOT is_completed
	`, courierID, amount)
	return err
}

// AddOrdersWithTx increments the milestone order counter.
func (r *SelfBonusRepository) AddOrdersWithTx(ctx context.Context, tx pgx.Tx, courierID int64, deltaOrders int) (int, error) {
	var completed int
	err := tx.QueryRow(ctx, `
		UPDATE self_bonus_tracking
		SET orders_completed = orders_completed + $2
		WHERE courier_id = $1
		RETURNING orders_completed
	`, courierID, deltaOrders).Scan(&completed)
	return completed, err
}

// CompleteWithTx marks the milestone terminal. Returns false when it was
// already completed.
func (r *SelfBonusRepository) CompleteWithTx(ctx context.Context, tx pgx.Tx, courierID int64) (bool, error) {
	res, err := tx.Exec(ctx, `
		UPDATE self_bonus_tracking
		SET is_completed = TRUE
		WHERE courier_id = $1 AND NOT is_completed
	`, courierID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
