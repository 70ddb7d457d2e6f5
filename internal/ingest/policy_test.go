package ingest

import (
	"errors"
	"testing"

	"courier_platform/internal/domain"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func planSum(plans []Plan) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range plans {
		sum = sum.Add(p.Amount)
	}
	return sum
}

func TestComputeSplit_SelfBonusLayerThenReferrerThenAdmins(t *testing.T) {
	referrerID := int64(7)
	adminA, adminB := int64(1), int64(2)

	in := PolicyInput{
		DeltaAmount:        dec("1000"),
		CourierID:          42,
		ReferrerID:         &referrerID,
		SelfBonusCompleted: false,
		SelfBonusLimit:     dec("5000"),
		SelfBonusEarned:    dec("4700"),
		AdminSpends: []domain.AdminSpend{
			{AdminID: adminA, Spend: dec("3000")},
			{AdminID: adminB, Spend: dec("1000")},
		},
		AdminCount: 2,
	}

	plans, err := ComputeSplit(in)
	if err != nil {
		t.Fatalf("ComputeSplit: %v", err)
	}
	if len(plans) != 4 {
		t.Fatalf("got %d plans, want 4", len(plans))
	}

	// self-bonus layer takes only the remaining cap headroom
	if plans[0].RecipientType != domain.RecipientCourierSelf || !plans[0].Amount.Equal(dec("300")) {
		t.Fatalf("self layer = %s %s, want courier_self 300", plans[0].RecipientType, plans[0].Amount)
	}
	// referrer takes 60% of the 700 residual
	if plans[1].RecipientType != domain.RecipientCourierReferrer || !plans[1].Amount.Equal(dec("420")) {
		t.Fatalf("referrer = %s %s, want courier_referrer 420", plans[1].RecipientType, plans[1].Amount)
	}
	// the 280 pool splits 3:1 over ad spend
	if !plans[2].Amount.Equal(dec("210")) || !plans[3].Amount.Equal(dec("70")) {
		t.Fatalf("admin pool = %s + %s, want 210 + 70", plans[2].Amount, plans[3].Amount)
	}

	if !planSum(plans).Equal(in.DeltaAmount) {
		t.Fatalf("plans sum to %s, want %s", planSum(plans), in.DeltaAmount)
	}
}

func TestComputeSplit_ReferrerAfterCompletedBonus(t *testing.T) {
	referrerID := int64(9)
	in := PolicyInput{
		DeltaAmount:        dec("1000"),
		CourierID:          42,
		ReferrerID:         &referrerID,
		SelfBonusCompleted: true,
		AdminSpends: []domain.AdminSpend{
			{AdminID: 1, Spend: dec("3000")},
			{AdminID: 2, Spend: dec("1000")},
		},
		AdminCount: 2,
	}

	plans, err := ComputeSplit(in)
	if err != nil {
		t.Fatalf("ComputeSplit: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("got %d plans, want 3", len(plans))
	}
	if plans[0].RecipientType != domain.RecipientCourierReferrer || !plans[0].Amount.Equal(dec("600")) {
		t.Fatalf("referrer = %s %s, want courier_referrer 600", plans[0].RecipientType, plans[0].Amount)
	}
	if !plans[1].Amount.Equal(dec("300")) || !plans[2].Amount.Equal(dec("100")) {
		t.Fatalf("admin shares = %s/%s, want 300/100", plans[1].Amount, plans[2].Amount)
	}
	if !planSum(plans).Equal(in.DeltaAmount) {
		t.Fatalf("plans sum to %s, want %s", planSum(plans), in.DeltaAmount)
	}
}

func TestComputeSplit_NoReferrerPoolGetsEverything(t *testing.T) {
	adminID := int64(1)
	in := PolicyInput{
		DeltaAmount:        dec("500"),
		CourierID:          42,
		SelfBonusCompleted: true,
		AdminSpends:        []domain.AdminSpend{{AdminID: adminID, Spend: dec("100")}},
		AdminCount:         1,
	}

	plans, err := ComputeSplit(in)
	if err != nil {
		t.Fatalf("ComputeSplit: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(plans))
	}
	if plans[0].RecipientType != domain.RecipientAdmin || !plans[0].Amount.Equal(dec("500")) {
		t.Fatalf("got %s %s, want admin 500", plans[0].RecipientType, plans[0].Amount)
	}
}

func TestComputeSplit_LastAdminAbsorbsRounding(t *testing.T) {
	in := PolicyInput{
		DeltaAmount:        dec("100"),
		CourierID:          42,
		SelfBonusCompleted: true,
		AdminSpends: []domain.AdminSpend{
			{AdminID: 1, Spend: dec("1")},
			{AdminID: 2, Spend: dec("1")},
			{AdminID: 3, Spend: dec("1")},
		},
		AdminCount: 3,
	}

	plans, err := ComputeSplit(in)
	if err != nil {
		t.Fatalf("ComputeSplit: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("got %d plans, want 3", len(plans))
	}
	if !planSum(plans).Equal(in.DeltaAmount) {
		t.Fatalf("plans sum to %s, want %s", planSum(plans), in.DeltaAmount)
	}
	// 33.33 + 33.33 leaves 33.34 to the last admin
	if !plans[2].Amount.Equal(dec("33.34")) {
		t.Fatalf("last admin got %s, want 33.34", plans[2].Amount)
	}
}

func TestComputeSplit_SelfBonusConsumesWholeDelta(t *testing.T) {
	in := PolicyInput{
		DeltaAmount:     dec("200"),
		CourierID:       42,
		SelfBonusLimit:  dec("5000"),
		SelfBonusEarned: dec("0"),
		AdminCount:      1,
	}

	plans, err := ComputeSplit(in)
	if err != nil {
		t.Fatalf("ComputeSplit: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(plans))
	}
	if plans[0].RecipientType != domain.RecipientCourierSelf || !plans[0].Amount.Equal(dec("200")) {
		t.Fatalf("got %s %s, want courier_self 200", plans[0].RecipientType, plans[0].Amount)
	}
}

func TestComputeSplit_NoAdminsErrors(t *testing.T) {
	in := PolicyInput{
		DeltaAmount:        dec("100"),
		CourierID:          42,
		SelfBonusCompleted: true,
		AdminCount:         0,
	}

	if _, err := ComputeSplit(in); !errors.Is(err, ErrNoAdmins) {
		t.Fatalf("got %v, want ErrNoAdmins", err)
	}
}

func TestComputeSplit_NoDeclaredSpendPlaceholder(t *testing.T) {
	in := PolicyInput{
		DeltaAmount:        dec("100"),
		CourierID:          42,
		SelfBonusCompleted: true,
		AdminCount:         4,
	}

	plans, err := ComputeSplit(in)
	if err != nil {
		t.Fatalf("ComputeSplit: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(plans))
	}
	p := plans[0]
	if p.RecipientType != domain.RecipientAdmin || p.RecipientID != nil {
		t.Fatalf("placeholder must be admin-type with nil recipient, got %s %v", p.RecipientType, p.RecipientID)
	}
	if p.Description != "equal split among 4 admins" {
		t.Fatalf("description = %q", p.Description)
	}
	if !p.Amount.Equal(dec("100")) {
		t.Fatalf("placeholder amount = %s, want 100", p.Amount)
	}
}

func TestComputeSplit_NonPositiveDelta(t *testing.T) {
	for _, amount := range []string{"0", "-5"} {
		plans, err := ComputeSplit(PolicyInput{DeltaAmount: dec(amount), AdminCount: 1})
		if err != nil {
			t.Fatalf("ComputeSplit(%s): %v", amount, err)
		}
		if plans != nil {
			t.Fatalf("ComputeSplit(%s) = %v, want nil", amount, plans)
		}
	}
}
