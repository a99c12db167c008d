package velocity

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"veriledger/internal/access"
	"veriledger/internal/epoch"
)

// Risk factor must be monotonically non-increasing in velocity score and
// turnover rate: improving either measure never makes collateral riskier.
func TestRiskFactor_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		turnover := rapid.Uint64Range(0, 1000).Draw(t, "turnover")
		vLow := rapid.Uint64Range(0, 500).Draw(t, "velocity_low")
		vHigh := rapid.Uint64Range(vLow, 1000).Draw(t, "velocity_high")

		if riskFactor(vHigh, turnover) > riskFactor(vLow, turnover) {
			t.Fatalf("risk rose with velocity: v=%d->%d, turnover=%d", vLow, vHigh, turnover)
		}

		velocity := rapid.Uint64Range(0, 1000).Draw(t, "velocity")
		tLow := rapid.Uint64Range(0, 50).Draw(t, "turnover_low")
		tHigh := rapid.Uint64Range(tLow, 100).Draw(t, "turnover_high")

		if riskFactor(velocity, tHigh) > riskFactor(velocity, tLow) {
			t.Fatalf("risk rose with turnover: t=%d->%d, velocity=%d", tLow, tHigh, velocity)
		}
	})
}

// Category aggregates must equal the plain sums over every recorded sale,
// and the average must be their exact integer quotient.
func TestCategoryAggregates_MatchSaleSums(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clock := epoch.NewClock()
		acl := access.NewController("admin", clock, nil)
		e := New(clock, acl, nil)
		ctx := context.Background()

		if err := e.InitializeTracking(ctx, "alice", 1); err != nil {
			t.Fatalf("init tracking: %v", err)
		}

		n := rapid.IntRange(1, 40).Draw(t, "sales")
		var wantQuantity, wantRevenue uint64
		for i := 0; i < n; i++ {
			quantity := rapid.Uint64Range(1, 1000).Draw(t, "quantity")
			value := rapid.Uint64Range(1, 100000).Draw(t, "value")
			clock.Advance(rapid.Uint64Range(0, 10).Draw(t, "tick"))

			if _, err := e.RecordSale(ctx, "alice", 1, "shoes", quantity, value, "retail"); err != nil {
				t.Fatalf("record sale: %v", err)
			}
			wantQuantity += quantity
			wantRevenue += value
		}

		cat, ok := e.CategoryPerformance(1, "shoes")
		if !ok {
			t.Fatal("category aggregate missing")
		}
		if cat.TotalQuantity != wantQuantity {
			t.Fatalf("total quantity %d, want %d", cat.TotalQuantity, wantQuantity)
		}
		if cat.TotalRevenue != wantRevenue {
			t.Fatalf("total revenue %d, want %d", cat.TotalRevenue, wantRevenue)
		}
		if want := wantRevenue / wantQuantity; cat.AvgSaleValue != want {
			t.Fatalf("avg sale value %d, want %d", cat.AvgSaleValue, want)
		}
		if cat.TrendDirection != TrendUp {
			t.Fatalf("trend direction %q, want %q", cat.TrendDirection, TrendUp)
		}
	})
}
