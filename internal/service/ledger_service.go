package service

import (
	"context"
	"errors"

	"courier_platform/internal/domain"
	"courier_platform/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCourierNotFound   = errors.New("courier not found")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// LedgerService owns every balance mutation and the distribution bookkeeping
// around earnings. All operations run inside a caller-provided transaction;
// read-then-write paths lock the courier row.
type LedgerService struct {
	db            *pgxpool.Pool
	distributions *repository.DistributionRepository
	selfBonus     *repository.SelfBonusRepository
}

func NewLedgerService(db *pgxpool.Pool) *LedgerService {
	return &LedgerService{
		db:            db,
		distributions: repository.NewDistributionRepository(db),
		selfBonus:     repository.NewSelfBonusRepository(db),
	}
}

// CreditWithTx adds amount to a courier's balance.
func (s *LedgerService) CreditWithTx(ctx context.Context, tx pgx.Tx, courierID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}

	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx,
		`UPDATE couriers SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		amount, courierID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrCourierNotFound
		}
		return decimal.Zero, err
	}
	return newBalance, nil
}

// DebitWithTx locks the courier row, checks coverage and deducts amount.
func (s *LedgerService) DebitWithTx(ctx context.Context, tx pgx.Tx, courierID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `SELECT balance FROM couriers WHERE id = $1 FOR UPDATE`, courierID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrCourierNotFound
		}
		return decimal.Zero, err
	}

	if balance.LessThan(amount) {
		return decimal.Zero, ErrInsufficientFunds
	}

	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx,
		`UPDATE couriers SET balance = balance - $1 WHERE id = $2 RETURNING balance`,
		amount, courierID,
	).Scan(&newBalance)
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// InsertDistributionsWithTx persists distribution descriptors for an earning
// and applies their balance side effects: courier_self and courier_referrer
// slices credit the recipient, and courier_self slices count toward the
// self-bonus cap. Admin slices never touch a balance.
func (s *LedgerService) InsertDistributionsWithTx(ctx context.Context, tx pgx.Tx, earningID int64, descriptors []domain.Distribution) ([]domain.Distribution, error) {
	dists := make([]domain.Distribution, 0, len(descriptors))
	for _, d := range descriptors {
		d.EarningID = earningID
		d.PaymentStatus = domain.PaymentStatusPending
		if err := s.distributions.InsertWithTx(ctx, tx, &d); err != nil {
			return nil, err
		}

		if d.RecipientID != nil {
			switch d.RecipientType {
			case domain.RecipientCourierSelf:
				if _, err := s.CreditWithTx(ctx, tx, *d.RecipientID, d.Amount); err != nil {
					return nil, err
				}
				if err := s.selfBonus.AddEarnedWithTx(ctx, tx, *d.RecipientID, d.Amount); err != nil {
					return nil, err
				}
			case domain.RecipientCourierReferrer:
				if _, err := s.CreditWithTx(ctx, tx, *d.RecipientID, d.Amount); err != nil {
					return nil, err
				}
			}
		}

		dists = append(dists, d)
	}
	return dists, nil
}

// PurgeDistributionsWithTx removes an earning's distributions and reverses
// their side effects, so a superseding batch row starts from a clean slate.
func (s *LedgerService) PurgeDistributionsWithTx(ctx context.Context, tx pgx.Tx, earningID int64) error {
	old, err := listDistributionsWithTx(ctx, tx, earningID)
	if err != nil {
		return err
	}

	for _, d := range old {
		if d.RecipientID == nil {
			continue
		}
		switch d.RecipientType {
		case domain.RecipientCourierSelf:
			if _, err := s.DebitWithTx(ctx, tx, *d.RecipientID, d.Amount); err != nil {
				return err
			}
			if err := s.selfBonus.AddEarnedWithTx(ctx, tx, *d.RecipientID, d.Amount.Neg()); err != nil {
				return err
			}
		case domain.RecipientCourierReferrer:
			if _, err := s.DebitWithTx(ctx, tx, *d.RecipientID, d.Amount); err != nil {
				return err
			}
		}
	}

	return s.distributions.PurgeForEarningWithTx(ctx, tx, earningID)
}

// AdvanceSelfBonusWithTx counts delta orders toward the milestone and, on
// crossing the configured threshold, credits the one-time bonus and marks
// the milestone terminal. Completed milestones only keep counting orders.
func (s *LedgerService) AdvanceSelfBonusWithTx(ctx context.Context, tx pgx.Tx, courierID int64, deltaOrders int, cfg *domain.BotContent) error {
	if err := s.selfBonus.EnsureWithTx(ctx, tx, courierID); err != nil {
		return err
	}

	tracking, err := s.selfBonus.GetForUpdateWithTx(ctx, tx, courierID)
	if err != nil {
		return err
	}
	if tracking == nil {
		return ErrCourierNotFound
	}

	ordersCompleted, err := s.selfBonus.AddOrdersWithTx(ctx, tx, courierID, deltaOrders)
	if err != nil {
		return err
	}

	if tracking.IsCompleted || ordersCompleted < cfg.SelfBonusOrders {
		return nil
	}

	crossed, err := s.selfBonus.CompleteWithTx(ctx, tx, courierID)
	if err != nil {
		return err
	}
	if !crossed {
		return nil
	}

	if _, err := s.CreditWithTx(ctx, tx, courierID, cfg.SelfBonusAmount); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE couriers SET self_bonus_paid = TRUE WHERE id = $1`, courierID)
	return err
}

func listDistributionsWithTx(ctx context.Context, tx pgx.Tx, earningID int64) ([]domain.Distribution, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, earning_id, recipient_type, recipient_id, amount, percentage, description, payment_status, paid_at, created_at
		FROM distributions
		WHERE earning_id = $1
		ORDER BY id
	`, earningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
