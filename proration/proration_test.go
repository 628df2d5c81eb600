package proration

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestUpgrade(t *testing.T) {
	tests := []struct {
		name      string
		oldPrice  string
		newPrice  string
		daysUsed  int
		totalDays int
		wantOld   string
		wantNew   string
		wantTotal string
	}{
		{"mid cycle", "50", "80", 15, 30, "25", "40", "65"},
		{"day zero charges the full new plan", "50", "80", 0, 30, "0", "80", "80"},
		{"last day charges the full old plan", "50", "80", 30, 30, "50", "0", "50"},
		{"same price stays flat", "40", "40", 12, 30, "16", "24", "40"},
		{"overrun extrapolates", "30", "60", 40, 30, "40", "-20", "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Upgrade(dec(tt.oldPrice), dec(tt.newPrice), tt.daysUsed, tt.totalDays)
			if err != nil {
				t.Fatalf("Upgrade failed: %v", err)
			}
			if !got.OldPlanCost.Equal(dec(tt.wantOld)) {
				t.Errorf("OldPlanCost: got %s, want %s", got.OldPlanCost, tt.wantOld)
			}
			if !got.NewPlanCost.Equal(dec(tt.wantNew)) {
				t.Errorf("NewPlanCost: got %s, want %s", got.NewPlanCost, tt.wantNew)
			}
			if !got.Total().Equal(dec(tt.wantTotal)) {
				t.Errorf("Total: got %s, want %s", got.Total(), tt.wantTotal)
			}
		})
	}
}

func TestUpgradeMonotonicInDaysUsed(t *testing.T) {
	// With the new plan pricier, every extra day on the old plan lowers the bill.
	prev, err := Upgrade(dec("50"), dec("80"), 0, 30)
	if err != nil {
		t.Fatal(err)
	}
	for used := 1; used <= 30; used++ {
		cur, err := Upgrade(dec("50"), dec("80"), used, 30)
		if err != nil {
			t.Fatal(err)
		}
		if !cur.Total().LessThan(prev.Total()) {
			t.Fatalf("day %d: total %s not below %s", used, cur.Total(), prev.Total())
		}
		prev = cur
	}
}

func TestUpgradeMonotonicInNewPrice(t *testing.T) {
	for _, used := range []int{0, 1, 30} {
		prev, err := Upgrade(dec("50"), dec("0"), used, 30)
		if err != nil {
			t.Fatal(err)
		}
		for price := 10; price <= 200; price += 10 {
			cur, err := Upgrade(dec("50"), decimal.NewFromInt(int64(price)), used, 30)
			if err != nil {
				t.Fatal(err)
			}
			if cur.Total().LessThan(prev.Total()) {
				t.Fatalf("used %d, new price %d: total %s below %s", used, price, cur.Total(), prev.Total())
			}
			prev = cur
		}
	}
}

func TestInvalidCycle(t *testing.T) {
	for _, total := range []int{0, -1} {
		if _, err := Upgrade(dec("10"), dec("20"), 0, total); !errors.Is(err, ErrInvalidCycle) {
			t.Errorf("Upgrade(totalDays=%d): expected ErrInvalidCycle, got %v", total, err)
		}
		if _, err := DowngradeCredit(dec("20"), dec("10"), 0, total); !errors.Is(err, ErrInvalidCycle) {
			t.Errorf("DowngradeCredit(totalDays=%d): expected ErrInvalidCycle, got %v", total, err)
		}
	}
}

func TestDowngradeCredit(t *testing.T) {
	tests := []struct {
		name      string
		oldPrice  string
		newPrice  string
		remaining int
		want      string
	}{
		{"cheaper plan earns credit", "80", "50", 15, "15"},
		{"full cycle remaining", "90", "30", 30, "60"},
		{"nothing remaining", "80", "50", 0, "0"},
		{"pricier plan goes negative", "50", "80", 10, "-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DowngradeCredit(dec(tt.oldPrice), dec(tt.newPrice), tt.remaining, 30)
			if err != nil {
				t.Fatalf("DowngradeCredit failed: %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDaysElapsed(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"same instant", start, 0},
		{"just under a day", start.Add(23*time.Hour + 59*time.Minute), 0},
		{"exactly one day", start.Add(24 * time.Hour), 1},
		{"fifteen and a half days", start.Add(15*24*time.Hour + 12*time.Hour), 15},
		{"an hour before start", start.Add(-time.Hour), -1},
		{"two days before start", start.Add(-48 * time.Hour), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysElapsed(start, tt.now); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
