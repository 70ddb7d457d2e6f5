package repository

import (
	"context"
	"errors"
	"time"

	"courier_platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type EarningRepository struct {
	db *pgxpool.Pool
}

func NewEarningRepository(db *pgxpool.Pool) *EarningRepository {
	return &EarningRepository{db: db}
}

// GetSnapshotWithTx reads the last known cumulative totals for a
// (courier, external id) pair inside the row transaction.
func (r *EarningRepository) GetSnapshotWithTx(ctx context.Context, tx pgx.Tx, courierID int64, externalID string) (*domain.EarningsSnapshot, error) {
	var s domain.EarningsSnapshot
	err := tx.QueryRow(ctx, `
		SELECT courier_id, external_id, last_known_amount, last_known_orders, last_updated
		FROM earnings_snapshots
		WHERE courier_id = $1 AND external_id = $2
	`, courierID, externalID).Scan(&s.CourierID, &s.ExternalID, &s.LastKnownAmount, &s.LastKnownOrders, &s.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpsertSnapshotWithTx writes the new cumulative totals for an accepted row.
func (r *EarningRepository) UpsertSnapshotWithTx(ctx context.Context, tx pgx.Tx, courierID int64, externalID string, amount decimal.Decimal, orders int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO earnings_snapshots (courier_id, external_id, last_known_amount, last_known_orders, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (courier_id, external_id)
		DO UPDATE SET last_known_amount = $3, last_known_orders = $4, last_updated = NOW()
	`, courierID, externalID, amount, orders)
	return err
}

// InsertWithTx creates a new pending earning.
func (r *EarningRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, e *domain.Earning) error {
	return tx.QueryRow(ctx, `
		INSERT INTO earnings (courier_id, external_id, orders_count, total_amount, csv_period_start, csv_period_end, csv_filename, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id, created_at
	`, e.CourierID, e.ExternalID, e.OrdersCount, e.TotalAmount, e.PeriodStart, e.PeriodEnd, e.CSVFilename).Scan(&e.ID, &e.CreatedAt)
}

// GetPendingByCourierWithTx returns the live pending earning for a courier,
// if one exists. There is at most one per courier per batch.
func (r *EarningRepository) GetPendingByCourierWithTx(ctx context.Context, tx pgx.Tx, courierID int64) (*domain.Earning, error) {
	var e domain.Earning
	err := tx.QueryRow(ctx, `
		SELECT id, courier_id, external_id, orders_count, total_amount, csv_period_start, csv_period_end, csv_filename, status, created_at
		FROM earnings
		WHERE courier_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`, courierID).Scan(&e.ID, &e.CourierID, &e.ExternalID, &e.OrdersCount, &e.TotalAmount, &e.PeriodStart, &e.PeriodEnd, &e.CSVFilename, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// UpdateDeltaWithTx replaces the delta values on an existing pending earning
// when a later row of the same batch supersedes it.
func (r *EarningRepository) UpdateDeltaWithTx(ctx context.Context, tx pgx.Tx, earningID int64, ordersCount int, totalAmount decimal.Decimal, externalID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE earnings
		SET orders_count = $2, total_amount = $3, external_id = $4
		WHERE id = $1 AND status = 'pending'
	`, earningID, ordersCount, totalAmount, externalID)
	return err
}

// MarkProcessed flips all pending earnings to processed and returns how many
// rows were affected.
func (r *EarningRepository) MarkProcessed(ctx context.Context) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE earnings SET status = 'processed' WHERE status = 'pending'`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

// EarningFilter narrows payment listings.
type EarningFilter struct {
	CourierID   *int64
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// List returns earnings matching the filter, newest first.
func (r *EarningRepository) List(ctx context.Context, f EarningFilter, limit int) ([]domain.Earning, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, courier_id, external_id, orders_count, total_amount, csv_period_start, csv_period_end, csv_filename, status, created_at
		FROM earnings
		WHERE ($1::bigint IS NULL OR courier_id = $1)
		  AND ($2::date IS NULL OR csv_period_start = $2)
		  AND ($3::date IS NULL OR csv_period_end = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`, f.CourierID, f.PeriodStart, f.PeriodEnd, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var earnings []domain.Earning
	for rows.Next() {
		var e domain.Earning
		if err := rows.Scan(&e.ID, &e.CourierID, &e.ExternalID, &e.OrdersCount, &e.TotalAmount, &e.PeriodStart, &e.PeriodEnd, &e.CSVFilename, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}

// Period is one distinct uploaded CSV period with its row count and sum.
type Period struct {
	PeriodStart *time.Time      `json:"csv_period_start"`
	PeriodEnd   *time.Time      `json:"csv_period_end"`
	CSVFilename string          `json:"csv_filename"`
	Rows        int             `json:"rows"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ListPeriods returns the distinct uploaded periods, newest first.
func (r *EarningRepository) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `
		SELECT csv_period_start, csv_period_end, csv_filename, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM earnings
		GROUP BY csv_period_start, csv_period_end, csv_filename
		ORDER BY csv_period_start DESC NULLS LAST
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.PeriodStart, &p.PeriodEnd, &p.CSVFilename, &p.Rows, &p.TotalAmount); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// TotalUploaded returns the sum of all earning amounts ever accepted.
func (r *EarningRepository) TotalUploaded(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM earnings`).Scan(&total)
	return total, err
}
