package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Admin struct {
	ID             int64           `db:"id" json:"id"`
	Username       string          `db:"username" json:"username"`
	PasswordHash   string          `db:"password_hash" json:"-"`
	AdSpendCurrent decimal.Decimal `db:"ad_spend_current" json:"ad_spend_current"`
	AdSpendTotal   decimal.Decimal `db:"ad_spend_total" json:"ad_spend_total"`
	IsSuperAdmin   bool            `db:"is_super_admin" json:"is_super_admin"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// AdminSpend is the slice of admin state the policy engine reads: who gets a
// cut of the admin pool and at what weight.
type AdminSpend struct {
	AdminID int64           `json:"admin_id"`
	Spend   decimal.Decimal `json:"spend"`
}
