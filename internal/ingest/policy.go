package ingest

import (
	"errors"
	"fmt"

	"courier_platform/internal/domain"

	"github.com/shopspring/decimal"
)

// ErrNoAdmins is returned when a residual remains to distribute but no admin
// exists to receive it. The orchestrator aborts the row.
var ErrNoAdmins = errors.New("no admins to distribute residual earnings")

// ReferrerShare is the fixed fraction of residual earnings (after the
// self-bonus layer) paid to the courier's referrer.
var ReferrerShare = decimal.NewFromFloat(0.60)

// PolicyInput carries everything the split computation needs; it reads no
// state of its own.
type PolicyInput struct {
	DeltaAmount        decimal.Decimal
	CourierID          int64
	ReferrerID         *int64
	SelfBonusCompleted bool
	SelfBonusLimit     decimal.Decimal
	SelfBonusEarned    decimal.Decimal
	AdminSpends        []domain.AdminSpend // positive spends, descending
	AdminCount         int
}

// Plan is one distribution descriptor produced by the policy engine.
type Plan struct {
	RecipientType domain.RecipientType
	RecipientID   *int64
	Amount        decimal.Decimal
	Percentage    float64
	Description   string
}

// ComputeSplit turns a delta amount into an ordered list of distribution
// plans that sum to the delta exactly. Layers apply in order: the self-bonus
// layer consumes up to the remaining bonus cap, then the residual splits
// 60/40 between referrer and admin pool (or 100% to the pool without a
// referrer), and the pool spreads pro-rata over admin ad spend with the last
// admin absorbing the rounding residue.
func ComputeSplit(in PolicyInput) ([]Plan, error) {
	if !in.DeltaAmount.IsPositive() {
		return nil, nil
	}

	var plans []Plan
	residual := in.DeltaAmount

	if !in.SelfBonusCompleted {
		remainingBonus := in.SelfBonusLimit.Sub(in.SelfBonusEarned)
		if remainingBonus.IsNegative() {
			remainingBonus = decimal.Zero
		}
		selfAmount := decimal.Min(residual, remainingBonus)
		if selfAmount.IsPositive() {
			courierID := in.CourierID
			plans = append(plans, Plan{
				RecipientType: domain.RecipientCourierSelf,
				RecipientID:   &courierID,
				Amount:        selfAmount,
				Percentage:    percentOf(selfAmount, in.DeltaAmount),
				Description:   "self bonus accrual",
			})
			residual = residual.Sub(selfAmount)
		}
	}

	if !residual.IsPositive() {
		return plans, nil
	}

	pool := residual
	if in.ReferrerID != nil {
		referrerAmount := residual.Mul(ReferrerShare).Round(2)
		plans = append(plans, Plan{
			RecipientType: domain.RecipientCourierReferrer,
			RecipientID:   in.ReferrerID,
			Amount:        referrerAmount,
			Percentage:    percentOf(referrerAmount, in.DeltaAmount),
			Description:   "referrer commission",
		})
		pool = residual.Sub(referrerAmount)
	}

	if !pool.IsPositive() {
		return plans, nil
	}

	if len(in.AdminSpends) == 0 {
		if in.AdminCount == 0 {
			return nil, ErrNoAdmins
		}
		// No declared ad spend: a single placeholder row; the concrete
		// equal-share payout is settled in the withdrawal workflow.
		plans = append(plans, Plan{
			RecipientType: domain.RecipientAdmin,
			RecipientID:   nil,
			Amount:        pool,
			Percentage:    percentOf(pool, in.DeltaAmount),
			Description:   fmt.Sprintf("equal split among %d admins", in.AdminCount),
		})
		return plans, nil
	}

	totalSpend := decimal.Zero
	for _, s := range in.AdminSpends {
		totalSpend = totalSpend.Add(s.Spend)
	}

	allocated := decimal.Zero
	for i, s := range in.AdminSpends {
		var amount decimal.Decimal
		if i == len(in.AdminSpends)-1 {
			// last admin absorbs the rounding residue so the sum is exact
			amount = pool.Sub(allocated)
		} else {
			amount = pool.Mul(s.Spend).Div(totalSpend).Round(2)
			allocated = allocated.Add(amount)
		}
		adminID := s.AdminID
		plans = append(plans, Plan{
			RecipientType: domain.RecipientAdmin,
			RecipientID:   &adminID,
			Amount:        amount,
			Percentage:    percentOf(amount, in.DeltaAmount),
			Description:   "ad spend share",
		})
	}

	return plans, nil
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Mul(decimal.NewFromInt(100)).Div(whole).Float64()
	return f
}
