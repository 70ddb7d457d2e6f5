package domain

import "testing"

func TestWithdrawalCanTransition(t *testing.T) {
	cases := []struct {
		from, to WithdrawalStatus
		want     bool
	}{
		{WithdrawalStatusPending, WithdrawalStatusApproved, true},
		{WithdrawalStatusPending, WithdrawalStatusRejected, true},
		{WithdrawalStatusPending, WithdrawalStatusPaid, false},
		{WithdrawalStatusApproved, WithdrawalStatusPaid, true},
		{WithdrawalStatusApproved, WithdrawalStatusRejected, true},
		{WithdrawalStatusApproved, WithdrawalStatusPending, false},
		{WithdrawalStatusPaid, WithdrawalStatusRejected, false},
		{WithdrawalStatusRejected, WithdrawalStatusApproved, false},
	}

	for _, tc := range cases {
		w := WithdrawalRequest{Status: tc.from}
		if got := w.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
