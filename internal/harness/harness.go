package harness

import (
	"context"
	"fmt"

	"veriledger/internal/access"
	"veriledger/internal/epoch"
	"veriledger/internal/errs"
	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

// Run executes a scenario against fresh ephemeral engines and returns the
// trace. Execution stops with an error on the first step whose outcome
// differs from its expectation; a scenario that returns nil error behaved
// exactly as scripted.
func Run(scenario *Scenario) (*Result, error) {
	clock := epoch.NewClock()
	acl := access.NewController(access.Principal(scenario.Admin), clock, nil)
	l := ledger.New(clock, acl, nil)
	e := velocity.New(clock, acl, nil)

	result := &Result{
		Scenario: scenario.Name,
		Clock:    clock,
		ACL:      acl,
		Ledger:   l,
		Engine:   e,
	}

	ctx := context.Background()
	seq := 0

	for i, step := range scenario.Setup {
		event, err := execute(ctx, result, step, seq)
		if err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, err)
		}
		if event.Status != "ok" {
			return nil, fmt.Errorf("setup[%d] %s failed: %s", i, step.Op, event.Status)
		}
		result.Trace = append(result.Trace, event)
		seq++
	}

	for i, step := range scenario.Flow {
		event, err := execute(ctx, result, step, seq)
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}

		want := step.ExpectError
		if want == "" && event.Status != "ok" {
			return nil, fmt.Errorf("flow[%d] %s failed unexpectedly: %s", i, step.Op, event.Status)
		}
		if want != "" && event.Status != want {
			return nil, fmt.Errorf("flow[%d] %s: expected error %s, got %s", i, step.Op, want, event.Status)
		}

		result.Trace = append(result.Trace, event)
		seq++
	}

	for i, assertion := range scenario.FinalState {
		if err := checkFinalState(result, assertion); err != nil {
			return nil, fmt.Errorf("final_state[%d] %s: %w", i, assertion.Kind, err)
		}
	}

	return result, nil
}

// execute runs one step. Domain errors become the event's status; anything
// that is not a categorized domain error aborts the run.
func execute(ctx context.Context, r *Result, step Step, seq int) (TraceEvent, error) {
	event := TraceEvent{
		Seq:    seq,
		Op:     step.Op,
		Caller: step.Caller,
		Epoch:  r.Clock.Current(),
	}
	caller := access.Principal(step.Caller)

	var err error
	switch step.Op {
	case "advance_epoch":
		next := r.Clock.Advance(step.Blocks)
		event.Epoch = next
		event.Result = map[string]any{"epoch": next}

	case "register_sensor":
		err = r.Ledger.RegisterSensor(ctx, caller, step.SensorID, step.Location, step.SensorType)

	case "deactivate_sensor":
		err = r.Ledger.DeactivateSensor(ctx, caller, step.SensorID)

	case "register_inventory":
		var id uint64
		id, err = r.Ledger.RegisterInventory(ctx, caller, step.Location, step.SensorIDs)
		if err == nil {
			event.Result = map[string]any{"inventory_id": id}
		}

	case "add_item":
		err = r.Ledger.AddItem(ctx, caller, step.InventoryID, step.ItemID, ledger.ItemInput{
			Name:      step.Name,
			Category:  step.Category,
			Quantity:  step.Quantity,
			UnitValue: step.UnitValue,
			SKU:       step.SKU,
			Condition: step.Condition,
		})

	case "update_quantity":
		err = r.Ledger.UpdateItemQuantity(ctx, caller, step.InventoryID, step.ItemID, step.Quantity)

	case "verify_inventory":
		err = r.Ledger.VerifyInventory(ctx, caller, step.InventoryID, step.VerificationID, ledger.VerificationInput{
			TotalValue: step.TotalValue,
			ItemCount:  step.ItemCount,
			SensorData: step.SensorData,
		})

	case "set_validity_period":
		err = r.Ledger.SetValidityPeriod(ctx, caller, step.Period)

	case "grant_reporter":
		err = r.ACL.GrantReporter(ctx, caller, access.Principal(step.Reporter), step.InventoryIDs)

	case "revoke_reporter":
		err = r.ACL.RevokeReporter(ctx, caller, access.Principal(step.Reporter))

	case "init_tracking":
		err = r.Engine.InitializeTracking(ctx, caller, step.InventoryID)

	case "record_sale":
		var id uint64
		id, err = r.Engine.RecordSale(ctx, caller, step.InventoryID, step.Category, step.Quantity, step.Value, step.Channel)
		if err == nil {
			event.Result = map[string]any{"sales_id": id}
		}

	case "analyze_velocity":
		var snap velocity.VelocitySnapshot
		snap, err = r.Engine.AnalyzeVelocity(ctx, caller, step.InventoryID)
		if err == nil {
			event.Result = map[string]any{
				"velocity_score": snap.VelocityScore,
				"turnover_rate":  snap.TurnoverRate,
				"sales_volume":   snap.SalesVolume,
				"trend_change":   snap.TrendChange,
				"risk_factor":    snap.RiskFactor,
			}
		}

	case "assess_risk":
		assessment := r.Engine.RiskAssessment(step.InventoryID)
		event.Result = map[string]any{
			"classification": assessment.Classification,
			"risk_factor":    assessment.RiskFactor,
		}

	case "set_analysis_window":
		err = r.Engine.SetAnalysisWindow(ctx, caller, step.Window)

	case "query_value":
		value, valid := r.Ledger.InventoryValue(step.InventoryID)
		event.Result = map[string]any{"valid": valid}
		if valid {
			event.Result["total_value"] = value
		}

	case "query_validity":
		event.Result = map[string]any{"valid": r.Ledger.IsVerificationValid(step.InventoryID)}

	default:
		return event, fmt.Errorf("unknown op %q", step.Op)
	}

	if err != nil {
		code := errs.CodeOf(err)
		if code == "" {
			return event, err
		}
		event.Status = string(code)
		return event, nil
	}

	event.Status = "ok"
	return event, nil
}
