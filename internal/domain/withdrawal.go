package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest is a courier payout request. The balance is debited when
// the request is created; rejection is the only transition that returns funds.
type WithdrawalRequest struct {
	ID           int64            `db:"id" json:"id"`
	CourierID    int64            `db:"courier_id" json:"courier_id"`
	Amount       decimal.Decimal  `db:"amount" json:"amount"`
	SBPPhone     string           `db:"sbp_phone" json:"sbp_phone"`
	SBPBankName  string           `db:"sbp_bank_name" json:"sbp_bank_name"`
	Status       WithdrawalStatus `db:"status" json:"status"`
	AdminComment string           `db:"admin_comment" json:"admin_comment,omitempty"`
	ProcessedBy  *int64           `db:"processed_by" json:"processed_by,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
}

// CanTransition reports whether a withdrawal may move from its current status
// to the target status.
func (w *WithdrawalRequest) CanTransition(to WithdrawalStatus) bool {
	switch w.Status {
	case WithdrawalStatusPending:
		return to == WithdrawalStatusApproved || to == WithdrawalStatusRejected
	case WithdrawalStatusApproved:
		return to == WithdrawalStatusPaid || to == WithdrawalStatusRejected
	default:
		return false
	}
}
