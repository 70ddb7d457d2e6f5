package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Courier struct {
	ID               int64           `db:"id" json:"id"`
	FullName         string          `db:"full_name" json:"full_name"`
	Phone            string          `db:"phone" json:"phone"`
	City             string          `db:"city" json:"city"`
	Email            string          `db:"email" json:"email,omitempty"`
	ReferralCode     string          `db:"referral_code" json:"referral_code"`
	InvitedBy        *int64          `db:"invited_by_courier_id" json:"invited_by_courier_id,omitempty"`
	ExternalID       *string         `db:"external_id" json:"external_id,omitempty"`
	Balance          decimal.Decimal `db:"balance" json:"balance"`
	TotalOrders      int             `db:"total_orders" json:"total_orders"`
	TotalEarnings    decimal.Decimal `db:"total_earnings" json:"total_earnings"`
	ReferralEarnings decimal.Decimal `db:"referral_earnings" json:"referral_earnings"`
	SelfBonusPaid    bool            `db:"self_bonus_paid" json:"self_bonus_paid"`
	SBPPhone         string          `db:"sbp_phone" json:"sbp_phone,omitempty"`
	SBPBankName      string          `db:"sbp_bank_name" json:"sbp_bank_name,omitempty"`
	ArchivedAt       *time.Time      `db:"archived_at" json:"archived_at,omitempty"`
	RestoreUntil     *time.Time      `db:"restore_until" json:"restore_until,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// ArchiveRestoreWindow is how long an archived courier can still be restored
// before erasure is allowed.
const ArchiveRestoreWindow = 14 * 24 * time.Hour
