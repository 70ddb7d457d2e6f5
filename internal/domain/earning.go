package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningsSnapshot remembers the last cumulative totals seen for a
// (courier, external id) pair. Partner CSVs report running totals, so the
// delta engine needs the previous snapshot to derive this-period amounts.
type EarningsSnapshot struct {
	CourierID       int64           `db:"courier_id" json:"courier_id"`
	ExternalID      string          `db:"external_id" json:"external_id"`
	LastKnownAmount decimal.Decimal `db:"last_known_amount" json:"last_known_amount"`
	LastKnownOrders int             `db:"last_known_orders" json:"last_known_orders"`
	LastUpdated     time.Time       `db:"last_updated" json:"last_updated"`
}

type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "pending"
	EarningStatusProcessed EarningStatus = "processed"
)

// Earning is one accepted non-zero delta for a courier within a CSV period.
type Earning struct {
	ID          int64           `db:"id" json:"id"`
	CourierID   int64           `db:"courier_id" json:"courier_id"`
	ExternalID  string          `db:"external_id" json:"external_id"`
	OrdersCount int             `db:"orders_count" json:"orders_count"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	PeriodStart *time.Time      `db:"csv_period_start" json:"csv_period_start,omitempty"`
	PeriodEnd   *time.Time      `db:"csv_period_end" json:"csv_period_end,omitempty"`
	CSVFilename string          `db:"csv_filename" json:"csv_filename"`
	Status      EarningStatus   `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type RecipientType string

const (
	RecipientCourierSelf     RecipientType = "courier_self"
	RecipientCourierReferrer RecipientType = "courier_referrer"
	RecipientAdmin           RecipientType = "admin"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Distribution is one slice of an earning assigned to a recipient.
// RecipientID is nil only for the "equal split among all admins" fallback.
type Distribution struct {
	ID            int64           `db:"id" json:"id"`
	EarningID     int64           `db:"earning_id" json:"earning_id"`
	RecipientType RecipientType   `db:"recipient_type" json:"recipient_type"`
	RecipientID   *int64          `db:"recipient_id" json:"recipient_id,omitempty"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Percentage    float64         `db:"percentage" json:"percentage"`
	Description   string          `db:"description" json:"description"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	PaidAt        *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// SelfBonusTracking tracks a courier's progress toward the one-time
// order-count bonus. Terminal once IsCompleted is set.
type SelfBonusTracking struct {
	CourierID       int64           `db:"courier_id" json:"courier_id"`
	OrdersCompleted int             `db:"orders_completed" json:"orders_completed"`
	BonusEarned     decimal.Decimal `db:"bonus_earned" json:"bonus_earned"`
	IsCompleted     bool            `db:"is_completed" json:"is_completed"`
}
