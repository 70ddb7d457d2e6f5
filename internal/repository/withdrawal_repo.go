package repository

import (
	"context"
	"errors"

	"courier_platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WithdrawalRepository struct {
	db *pgxpool.Pool
}

func NewWithdrawalRepository(db *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

const withdrawalColumns = `id, courier_id, amount, sbp_phone, sbp_bank_name, status, admin_comment, processed_by, created_at, processed_at`

// CreateWithTx inserts a pending request inside the creation transaction.
func (r *WithdrawalRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (courier_id, amount, sbp_phone, sbp_bank_name, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, created_at
	`, w.CourierID, w.Amount, w.SBPPhone, w.SBPBankName).Scan(&w.ID, &w.CreatedAt)
}

// GetByID retrieves a withdrawal request.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
	return scanWithdrawal(row)
}

// GetForUpdateWithTx locks a request row for a status transition.
func (r *WithdrawalRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.WithdrawalRequest, error) {
	row := tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
	return scanWithdrawal(row)
}

// TransitionWithTx applies a status change with the acting admin and comment.
func (r *WithdrawalRepository) TransitionWithTx(ctx context.Context, tx pgx.Tx, id int64, status domain.WithdrawalStatus, adminID int64, comment string) error {
	_, err := tx.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = $2, processed_by = $3, admin_comment = $4, processed_at = NOW()
		WHERE id = $1
	`, id, status, adminID, comment)
	return err
}

// ListByCourier returns a courier's requests, newest first.
func (r *WithdrawalRepository) ListByCourier(ctx context.Context, courierID int64, limit int) ([]domain.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE courier_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, courierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

// ListByStatus returns requests in a given status, oldest first so the admin
// queue drains in order.
func (r *WithdrawalRepository) ListByStatus(ctx context.Context, status domain.WithdrawalStatus) ([]domain.WithdrawalRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE status = $1
		ORDER BY created_at ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	if err := row.Scan(&w.ID, &w.CourierID, &w.Amount, &w.SBPPhone, &w.SBPBankName, &w.Status, &w.AdminComment, &w.ProcessedBy, &w.CreatedAt, &w.ProcessedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func scanWithdrawals(rows pgx.Rows) ([]domain.WithdrawalRequest, error) {
	var withdrawals []domain.WithdrawalRequest
	for rows.Next() {
		var w domain.WithdrawalRequest
		if err := rows.Scan(&w.ID, &w.CourierID, &w.Amount, &w.SBPPhone, &w.SBPBankName, &w.Status, &w.AdminComment, &w.ProcessedBy, &w.CreatedAt, &w.ProcessedAt); err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}
