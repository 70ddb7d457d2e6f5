package domain

import "github.com/shopspring/decimal"

// BotContent is the single configuration row read by the policy engine and
// the withdrawal workflow.
type BotContent struct {
	SelfBonusAmount          decimal.Decimal `db:"self_bonus_amount" json:"self_bonus_amount"`
	SelfBonusOrders          int             `db:"self_bonus_orders" json:"self_bonus_orders"`
	ReferralActivationOrders int             `db:"referral_activation_orders" json:"referral_activation_orders"`
	MinWithdrawalAmount      decimal.Decimal `db:"min_withdrawal_amount" json:"min_withdrawal_amount"`
}

// DefaultBotContent returns the configuration used before an admin has saved
// any overrides.
func DefaultBotContent() *BotContent {
	return &BotContent{
		SelfBonusAmount:          decimal.NewFromInt(5000),
		SelfBonusOrders:          50,
		ReferralActivationOrders: 1,
		MinWithdrawalAmount:      decimal.NewFromInt(500),
	}
}
