package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:     NewDate(2025, 1, 1),
		Category: "Food",
		Amount:   Money{Cents: 100},
		Kind:     Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zeroAmount := good
	zeroAmount.Amount = Money{}
	if err := zeroAmount.Validate(); err != nil {
		t.Fatalf("zero amount is a valid stored magnitude, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{}, Category: "c", Amount: Money{Cents: 1}, Kind: Expense},
		{Date: NewDate(2025, 1, 1), Category: "", Amount: Money{Cents: 1}, Kind: Expense},
		{Date: NewDate(2025, 1, 1), Category: "c", Amount: Money{Cents: -1}, Kind: Expense},
		{Date: NewDate(2025, 1, 1), Category: "c", Amount: Money{Cents: 1}, Kind: "transfer"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"income": Income, "IN": Income, "expense": Expense, "": Expense, "out": Expense}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q err=%v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("transfer"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestRecordOfDescription(t *testing.T) {
	rec := RecordOf(Transaction{ID: 1, Date: NewDate(2024, 3, 5), Category: "Food", Amount: Money{Cents: 10}, Kind: Income})
	if rec.Description != nil {
		t.Fatalf("expected nil description, got %q", *rec.Description)
	}
	if !rec.IsIncome {
		t.Fatalf("expected income record")
	}

	rec = RecordOf(Transaction{ID: 2, Date: NewDate(2024, 3, 5), Category: "Food", Description: "lunch", Kind: Expense})
	if rec.Description == nil || *rec.Description != "lunch" {
		t.Fatalf("unexpected description: %v", rec.Description)
	}
}
