package harness

import (
	"fmt"

	"veriledger/internal/access"
)

// checkFinalState evaluates one assertion against the finished engines.
// Only the expectation fields present in the assertion are compared.
func checkFinalState(r *Result, a StateAssertion) error {
	switch a.Kind {
	case AssertSensor:
		sensor, ok := r.Ledger.Sensor(a.SensorID)
		if err := checkExists(a.Exists, ok, fmt.Sprintf("sensor %d", a.SensorID)); err != nil || !ok {
			return err
		}
		if err := wantBool("authorized", a.Authorized, sensor.Authorized); err != nil {
			return err
		}

	case AssertInventory:
		inv, ok := r.Ledger.Inventory(a.InventoryID)
		if err := checkExists(a.Exists, ok, fmt.Sprintf("inventory %d", a.InventoryID)); err != nil || !ok {
			return err
		}
		if err := wantString("owner", a.Owner, string(inv.Owner)); err != nil {
			return err
		}
		if err := wantString("status", a.Status, string(inv.Status)); err != nil {
			return err
		}
		if err := wantUint("total_value", a.TotalValue, inv.TotalValue); err != nil {
			return err
		}
		if err := wantUint("item_count", a.ItemCount, inv.ItemCount); err != nil {
			return err
		}

	case AssertValue:
		value, valid := r.Ledger.InventoryValue(a.InventoryID)
		if err := wantBool("valid", a.Valid, valid); err != nil {
			return err
		}
		if valid {
			if err := wantUint("total_value", a.TotalValue, value); err != nil {
				return err
			}
		} else if a.TotalValue != nil {
			return fmt.Errorf("total_value asserted but the verification is missing or stale")
		}

	case AssertValidity:
		if err := wantBool("valid", a.Valid, r.Ledger.IsVerificationValid(a.InventoryID)); err != nil {
			return err
		}

	case AssertItem:
		item, ok := r.Ledger.Item(a.InventoryID, a.ItemID)
		if err := checkExists(a.Exists, ok, fmt.Sprintf("item (%d, %d)", a.InventoryID, a.ItemID)); err != nil || !ok {
			return err
		}
		if err := wantUint("quantity", a.Quantity, item.Quantity); err != nil {
			return err
		}

	case AssertGrant:
		grant, ok := r.ACL.Grant(access.Principal(a.Reporter))
		if err := checkExists(a.Exists, ok, fmt.Sprintf("grant %q", a.Reporter)); err != nil || !ok {
			return err
		}
		if err := wantBool("authorized", a.Authorized, grant.Authorized); err != nil {
			return err
		}

	case AssertMetrics:
		m, ok := r.Engine.Metrics(a.InventoryID)
		if err := checkExists(a.Exists, ok, fmt.Sprintf("metrics %d", a.InventoryID)); err != nil || !ok {
			return err
		}
		if err := wantString("owner", a.Owner, string(m.Owner)); err != nil {
			return err
		}
		if err := wantUint("total_revenue", a.TotalRevenue, m.TotalRevenue); err != nil {
			return err
		}
		if err := wantUint("velocity_score", a.VelocityScore, m.VelocityScore); err != nil {
			return err
		}
		if err := wantUint("turnover_rate", a.TurnoverRate, m.TurnoverRate); err != nil {
			return err
		}
		if err := wantString("trend", a.Trend, string(m.SalesTrend)); err != nil {
			return err
		}

	case AssertCategory:
		cat, ok := r.Engine.CategoryPerformance(a.InventoryID, a.Category)
		if err := checkExists(a.Exists, ok, fmt.Sprintf("category (%d, %q)", a.InventoryID, a.Category)); err != nil || !ok {
			return err
		}
		if err := wantUint("total_quantity", a.TotalQuantity, cat.TotalQuantity); err != nil {
			return err
		}
		if err := wantUint("total_revenue", a.TotalRevenue, cat.TotalRevenue); err != nil {
			return err
		}
		if err := wantUint("avg_sale_value", a.AvgSaleValue, cat.AvgSaleValue); err != nil {
			return err
		}
		if err := wantString("trend", a.Trend, string(cat.TrendDirection)); err != nil {
			return err
		}

	case AssertRisk:
		assessment := r.Engine.RiskAssessment(a.InventoryID)
		if err := wantString("classification", a.Classification, assessment.Classification); err != nil {
			return err
		}
		if err := wantUint("risk_factor", a.RiskFactor, assessment.RiskFactor); err != nil {
			return err
		}

	case AssertHistory:
		snap, ok := r.Engine.HistoryAt(a.InventoryID, a.Epoch)
		if err := checkExists(a.Exists, ok, fmt.Sprintf("history (%d, %d)", a.InventoryID, a.Epoch)); err != nil || !ok {
			return err
		}
		if err := wantUint("velocity_score", a.VelocityScore, snap.VelocityScore); err != nil {
			return err
		}
		if err := wantUint("sales_volume", a.SalesVolume, snap.SalesVolume); err != nil {
			return err
		}
		if err := wantUint("risk_factor", a.RiskFactor, snap.RiskFactor); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}

	return nil
}

// checkExists reconciles an exists expectation with a lookup result.
// Absent records are only acceptable when the assertion says exists: false.
func checkExists(want *bool, got bool, what string) error {
	if want != nil && *want != got {
		return fmt.Errorf("%s: exists = %v, want %v", what, got, *want)
	}
	if want == nil && !got {
		return fmt.Errorf("%s: no record", what)
	}
	return nil
}

func wantUint(field string, want *uint64, got uint64) error {
	if want != nil && *want != got {
		return fmt.Errorf("%s = %d, want %d", field, got, *want)
	}
	return nil
}

func wantBool(field string, want *bool, got bool) error {
	if want != nil && *want != got {
		return fmt.Errorf("%s = %v, want %v", field, got, *want)
	}
	return nil
}

func wantString(field string, want *string, got string) error {
	if want != nil && *want != got {
		return fmt.Errorf("%s = %q, want %q", field, got, *want)
	}
	return nil
}
