package ingest

import (
	"courier_platform/internal/domain"

	"github.com/shopspring/decimal"
)

// Delta is the per-period amount and order count derived from cumulative CSV
// totals against the last known snapshot.
type Delta struct {
	Amount decimal.Decimal
	Orders int
}

// ComputeDelta compares cumulative CSV totals to the stored snapshot.
// Without a snapshot the cumulative values are the delta. A non-positive
// amount delta means the row repeats or precedes what we already accounted
// for; such rows are reported as duplicates and the snapshot is left
// untouched, so a decreasing partner total can never rewind the ledger.
func ComputeDelta(snap *domain.EarningsSnapshot, cumAmount decimal.Decimal, cumOrders int) (Delta, bool) {
	if snap == nil {
		d := Delta{Amount: cumAmount, Orders: cumOrders}
		return d, !d.Amount.IsPositive()
	}

	amount := cumAmount.Sub(snap.LastKnownAmount)
	orders := cumOrders - snap.LastKnownOrders
	if orders < 0 {
		orders = 0
	}

	if !amount.IsPositive() {
		return Delta{}, true
	}
	return Delta{Amount: amount, Orders: orders}, false
}
