package ingest

import (
	"testing"

	"courier_platform/internal/domain"
)

func TestComputeDelta_FirstUpload(t *testing.T) {
	d, dup := ComputeDelta(nil, dec("1500"), 12)
	if dup {
		t.Fatal("first upload flagged as duplicate")
	}
	if !d.Amount.Equal(dec("1500")) || d.Orders != 12 {
		t.Fatalf("got %s/%d, want 1500/12", d.Amount, d.Orders)
	}
}

func TestComputeDelta_FirstUploadZeroAmount(t *testing.T) {
	if _, dup := ComputeDelta(nil, dec("0"), 3); !dup {
		t.Fatal("zero cumulative amount must be a duplicate")
	}
}

func TestComputeDelta_AgainstSnapshot(t *testing.T) {
	snap := &domain.EarningsSnapshot{LastKnownAmount: dec("1000"), LastKnownOrders: 10}

	d, dup := ComputeDelta(snap, dec("1750.50"), 17)
	if dup {
		t.Fatal("growing totals flagged as duplicate")
	}
	if !d.Amount.Equal(dec("750.50")) || d.Orders != 7 {
		t.Fatalf("got %s/%d, want 750.50/7", d.Amount, d.Orders)
	}
}

func TestComputeDelta_RepeatedRowIsDuplicate(t *testing.T) {
	snap := &domain.EarningsSnapshot{LastKnownAmount: dec("1000"), LastKnownOrders: 10}

	if _, dup := ComputeDelta(snap, dec("1000"), 10); !dup {
		t.Fatal("repeated totals must be a duplicate")
	}
}

func TestComputeDelta_DecreasingTotalsAreDuplicate(t *testing.T) {
	snap := &domain.EarningsSnapshot{LastKnownAmount: dec("1000"), LastKnownOrders: 10}

	if _, dup := ComputeDelta(snap, dec("800"), 8); !dup {
		t.Fatal("decreasing totals must be refused as duplicate")
	}
}

func TestComputeDelta_NegativeOrdersClampToZero(t *testing.T) {
	snap := &domain.EarningsSnapshot{LastKnownAmount: dec("1000"), LastKnownOrders: 10}

	d, dup := ComputeDelta(snap, dec("1100"), 8)
	if dup {
		t.Fatal("positive amount delta flagged as duplicate")
	}
	if d.Orders != 0 {
		t.Fatalf("orders = %d, want 0", d.Orders)
	}
	if !d.Amount.Equal(dec("100")) {
		t.Fatalf("amount = %s, want 100", d.Amount)
	}
}
