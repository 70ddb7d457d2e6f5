package repository

import (
	"context"

	"courier_platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DistributionRepository struct {
	db *pgxpool.Pool
}

func NewDistributionRepository(db *pgxpool.Pool) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// InsertWithTx creates a distribution row inside the row transaction.
func (r *DistributionRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, d *domain.Distribution) error {
	return tx.QueryRow(ctx, `
		INSERT INTO distributions (earning_id, recipient_type, recipient_id, amount, percentage, description, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, created_at
	`, d.EarningID, d.RecipientType, d.RecipientID, d.Amount, d.Percentage, d.Description).Scan(&d.ID, &d.CreatedAt)
}

// PurgeForEarningWithTx removes all distributions of an earning. Used when a
// later batch row supersedes the courier's live pending earning.
func (r *DistributionRepository) PurgeForEarningWithTx(ctx context.Context, tx pgx.Tx, earningID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM distributions WHERE earning_id = $1`, earningID)
	return err
}

// SumForEarningWithTx returns the distribution total for an earning; the
// conservation check compares it against the earning amount.
func (r *DistributionRepository) SumForEarningWithTx(ctx context.Context, tx pgx.Tx, earningID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM distributions WHERE earning_id = $1
	`, earningID).Scan(&sum)
	return sum, err
}

// MarkPaid settles a pending distribution. Returns pgx.ErrNoRows when the
// row does not exist or was already settled.
func (r *DistributionRepository) MarkPaid(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `
		UPDATE distributions
		SET payment_status = 'paid', paid_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListForCourier returns distributions pointing at a courier, newest first.
func (r *DistributionRepository) ListForCourier(ctx context.Context, courierID int64, limit int) ([]domain.Distribution, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, earning_id, recipient_type, recipient_id, amount, percentage, description, payment_status, paid_at, created_at
		FROM distributions
		WHERE recipient_id = $1 AND recipient_type IN ('courier_self', 'courier_referrer')
		ORDER BY created_at DESC
		LIMIT $2
	`, courierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDistributions(rows)
}

// ListForEarning returns all distributions of one earning.
func (r *DistributionRepository) ListForEarning(ctx context.Context, earningID int64) ([]domain.Distribution, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, earning_id, recipient_type, recipient_id, amount, percentage, description, payment_status, paid_at, created_at
		FROM distributions
		WHERE earning_id = $1
		ORDER BY id
	`, earningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDistributions(rows)
}

// ReferrerSums returns pending and paid totals of referrer-type distributions
// pointing at a courier.
func (r *DistributionRepository) ReferrerSums(ctx context.Context, courierID int64) (pending, paid decimal.Decimal, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE payment_status = 'pending'), 0),
			COALESCE(SUM(amount) FILTER (WHERE payment_status = 'paid'), 0)
		FROM distributions
		WHERE recipient_type = 'courier_referrer' AND recipient_id = $1
	`, courierID).Scan(&pending, &paid)
	return pending, paid, err
}

// TypeStatusSum is one cell of the admin overview matrix.
type TypeStatusSum struct {
	RecipientType domain.RecipientType `json:"recipient_type"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal      `json:"total"`
}

// SumsByTypeAndStatus aggregates distribution amounts across recipient types
// and payment statuses.
func (r *DistributionRepository) SumsByTypeAndStatus(ctx context.Context) ([]TypeStatusSum, error) {
	rows, err := r.db.Query(ctx, `
		SELECT recipient_type, payment_status, COALESCE(SUM(amount), 0)
		FROM distributions
		GROUP BY recipient_type, payment_status
		ORDER BY recipient_type, payment_status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sums []TypeStatusSum
	for rows.Next() {
		var s TypeStatusSum
		if err := rows.Scan(&s.RecipientType, &s.PaymentStatus, &s.Total); err != nil {
			return nil, err
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

// ExpectedForAdmin returns the sum of admin-type distributions assigned to
// one admin, the numerator of the ROI projection.
func (r *DistributionRepository) ExpectedForAdmin(ctx context.Context, adminID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM distributions
		WHERE recipient_type = 'admin' AND recipient_id = $1
	`, adminID).Scan(&total)
	return total, err
}

func scanDistributions(rows pgx.Rows) ([]domain.Distribution, error) {
	var dists []domain.Distribution
	for rows.Next() {
		var d domain.Distribution
		if err := rows.Scan(&d.ID, &d.EarningID, &d.RecipientType, &d.RecipientID, &d.Amount, &d.Percentage, &d.Description, &d.PaymentStatus, &d.PaidAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		dists = append(dists, d)
	}
	return dists, rows.Err()
}
