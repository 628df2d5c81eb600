package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"70", "70.00"},
		{"69.999", "70.00"},
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"33.3333333", "33.33"},
		{"-1.005", "-1.01"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FormatAmount(RoundAmount(d(tt.in)))
			if got != tt.want {
				t.Errorf("RoundAmount(%s): got %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestNonNegative(t *testing.T) {
	if got := NonNegative(d("-5")); !got.IsZero() {
		t.Errorf("expected zero, got %s", got)
	}
	if got := NonNegative(d("5")); !got.Equal(d("5")) {
		t.Errorf("expected 5, got %s", got)
	}
}

func TestApplyCredits(t *testing.T) {
	tests := []struct {
		name        string
		cost        string
		credits     string
		wantOwed    string
		wantApplied string
	}{
		{"no credits", "100", "0", "100.00", "0.00"},
		{"partial", "100", "30", "70.00", "30.00"},
		{"exact", "100", "100", "0.00", "100.00"},
		{"excess credits still cleared", "50", "80", "0.00", "80.00"},
		{"negative credits ignored", "50", "-3", "50.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owed, applied := ApplyCredits(d(tt.cost), d(tt.credits))
			if FormatAmount(owed) != tt.wantOwed {
				t.Errorf("owed: got %s, want %s", FormatAmount(owed), tt.wantOwed)
			}
			if FormatAmount(applied) != tt.wantApplied {
				t.Errorf("applied: got %s, want %s", FormatAmount(applied), tt.wantApplied)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("49.99")
	if err != nil {
		t.Fatalf("ParseAmount failed: %v", err)
	}
	if !got.Equal(d("49.99")) {
		t.Errorf("got %s, want 49.99", got)
	}

	if _, err := ParseAmount("-1"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := ParseAmount("abc"); err == nil {
		t.Error("expected error for malformed amount")
	}
}

func TestEntityTimestamps(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEntity(created)
	if !e.CreatedAt.Equal(created) || !e.UpdatedAt.Equal(created) {
		t.Fatalf("unexpected timestamps: %+v", e)
	}

	later := created.Add(48 * time.Hour)
	if !e.IsStale(later, 24*time.Hour) {
		t.Error("expected entity to be stale after 48h")
	}

	e.Touch(later)
	if !e.UpdatedAt.Equal(later) {
		t.Errorf("Touch: got %v, want %v", e.UpdatedAt, later)
	}
	if e.Age(later) != 48*time.Hour {
		t.Errorf("Age: got %v", e.Age(later))
	}
}
