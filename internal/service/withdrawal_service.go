package service

import (
	"context"
	"errors"

	"courier_platform/internal/domain"
	"courier_platform/internal/logger"
	"courier_platform/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingSBPDetails  = errors.New("sbp phone and bank name are required")
	ErrBelowMinWithdrawal = errors.New("amount is below the minimum withdrawal")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	ErrInvalidTransition  = errors.New("invalid withdrawal status transition")
)

// WithdrawalNotifyFunc is called after every admin-driven status change so an
// external messenger can tell the courier. Notification is best effort.
type WithdrawalNotifyFunc func(courierID int64, w *domain.WithdrawalRequest)

// WithdrawalService drives the payout request state machine:
// pending → approved → paid, with rejection from pending or approved being
// the only transition that returns funds.
type WithdrawalService struct {
	db          *pgxpool.Pool
	withdrawals *repository.WithdrawalRepository
	couriers    *repository.CourierRepository
	botContent  *repository.BotContentRepository
	ledger      *LedgerService

	OnTransition WithdrawalNotifyFunc
}

func NewWithdrawalService(db *pgxpool.Pool, botContent *repository.BotContentRepository) *WithdrawalService {
	return &WithdrawalService{
		db:          db,
		withdrawals: repository.NewWithdrawalRepository(db),
		couriers:    repository.NewCourierRepository(db),
		botContent:  botContent,
		ledger:      NewLedgerService(db),
	}
}

// Create validates the request, debits the balance under a row lock and
// inserts the pending request. The SBP requisites are persisted on the
// courier profile for the next request.
func (s *WithdrawalService) Create(ctx context.Context, courierID int64, amount decimal.Decimal, sbpPhone, sbpBank string) (*domain.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if sbpPhone == "" || sbpBank == "" {
		return nil, ErrMissingSBPDetails
	}

	cfg, err := s.botContent.Get(ctx)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(cfg.MinWithdrawalAmount) {
		return nil, ErrBelowMinWithdrawal
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.ledger.DebitWithTx(ctx, tx, courierID, amount); err != nil {
		return nil, err
	}

	if err := s.couriers.UpdateSBPDetailsWithTx(ctx, tx, courierID, sbpPhone, sbpBank); err != nil {
		return nil, err
	}

	w := &domain.WithdrawalRequest{
		CourierID:   courierID,
		Amount:      amount,
		SBPPhone:    sbpPhone,
		SBPBankName: sbpBank,
		Status:      domain.WithdrawalStatusPending,
	}
	if err := s.withdrawals.CreateWithTx(ctx, tx, w); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info("withdrawal requested", "courier_id", courierID, "request_id", w.ID, "amount", amount)
	return w, nil
}

// Transition moves a request to a new status. Approval and payment move no
// money; rejection credits the amount back.
func (s *WithdrawalService) Transition(ctx context.Context, requestID int64, newStatus domain.WithdrawalStatus, adminID int64, comment string) (*domain.WithdrawalRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	w, err := s.withdrawals.GetForUpdateWithTx(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWithdrawalNotFound
	}
	if !w.CanTransition(newStatus) {
		return nil, ErrInvalidTransition
	}

	if newStatus == domain.WithdrawalStatusRejected {
		if _, err := s.ledger.CreditWithTx(ctx, tx, w.CourierID, w.Amount); err != nil {
			return nil, err
		}
	}

	if err := s.withdrawals.TransitionWithTx(ctx, tx, requestID, newStatus, adminID, comment); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	w.Status = newStatus
	w.ProcessedBy = &adminID
	w.AdminComment = comment

	logger.Info("withdrawal transitioned", "request_id", requestID, "status", newStatus, "admin_id", adminID)
	if s.OnTransition != nil {
		go s.OnTransition(w.CourierID, w)
	}
	return w, nil
}

// Get returns one request by id.
func (s *WithdrawalService) Get(ctx context.Context, requestID int64) (*domain.WithdrawalRequest, error) {
	w, err := s.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWithdrawalNotFound
	}
	return w, nil
}

// ListByCourier returns a courier's requests.
func (s *WithdrawalService) ListByCourier(ctx context.Context, courierID int64, limit int) ([]domain.WithdrawalRequest, error) {
	return s.withdrawals.ListByCourier(ctx, courierID, limit)
}

// ListByStatus returns the admin queue for one status.
func (s *WithdrawalService) ListByStatus(ctx context.Context, status domain.WithdrawalStatus) ([]domain.WithdrawalRequest, error) {
	return s.withdrawals.ListByStatus(ctx, status)
}
