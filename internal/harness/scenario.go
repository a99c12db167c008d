package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a scripted operation flow
// against fresh engines, with expected outcomes per step and assertions on
// the final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Admin is the administrator principal. Defaults to "admin".
	Admin string `yaml:"admin,omitempty"`

	// Setup contains steps that establish initial state.
	// Setup steps must succeed; expect_error is not allowed here.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main test flow.
	Flow []Step `yaml:"flow"`

	// FinalState lists assertions evaluated after the flow completes.
	FinalState []StateAssertion `yaml:"final_state,omitempty"`
}

// StateAssertion checks one record of the final engine state. Kind selects
// the record; expectation fields are pointers so absent fields are simply
// not checked.
type StateAssertion struct {
	// Kind is one of: sensor, inventory, value, validity, item, grant,
	// metrics, category, risk, history.
	Kind string `yaml:"kind"`

	SensorID    uint64 `yaml:"sensor_id,omitempty"`
	InventoryID uint64 `yaml:"inventory_id,omitempty"`
	ItemID      uint64 `yaml:"item_id,omitempty"`
	Reporter    string `yaml:"reporter,omitempty"`
	Category    string `yaml:"category,omitempty"`
	Epoch       uint64 `yaml:"epoch,omitempty"`

	Exists         *bool   `yaml:"exists,omitempty"`
	Authorized     *bool   `yaml:"authorized,omitempty"`
	Valid          *bool   `yaml:"valid,omitempty"`
	Status         *string `yaml:"status,omitempty"`
	Owner          *string `yaml:"owner,omitempty"`
	TotalValue     *uint64 `yaml:"total_value,omitempty"`
	ItemCount      *uint64 `yaml:"item_count,omitempty"`
	Quantity       *uint64 `yaml:"quantity,omitempty"`
	TotalQuantity  *uint64 `yaml:"total_quantity,omitempty"`
	TotalRevenue   *uint64 `yaml:"total_revenue,omitempty"`
	AvgSaleValue   *uint64 `yaml:"avg_sale_value,omitempty"`
	VelocityScore  *uint64 `yaml:"velocity_score,omitempty"`
	TurnoverRate   *uint64 `yaml:"turnover_rate,omitempty"`
	SalesVolume    *uint64 `yaml:"sales_volume,omitempty"`
	RiskFactor     *uint64 `yaml:"risk_factor,omitempty"`
	Classification *string `yaml:"classification,omitempty"`
	Trend          *string `yaml:"trend,omitempty"`
}

// Assertion kind constants.
const (
	AssertSensor    = "sensor"
	AssertInventory = "inventory"
	AssertValue     = "value"
	AssertValidity  = "validity"
	AssertItem      = "item"
	AssertGrant     = "grant"
	AssertMetrics   = "metrics"
	AssertCategory  = "category"
	AssertRisk      = "risk"
	AssertHistory   = "history"
)

var knownKinds = map[string]bool{
	AssertSensor:    true,
	AssertInventory: true,
	AssertValue:     true,
	AssertValidity:  true,
	AssertItem:      true,
	AssertGrant:     true,
	AssertMetrics:   true,
	AssertCategory:  true,
	AssertRisk:      true,
	AssertHistory:   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expect_errors:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if s.Admin == "" {
		s.Admin = "admin"
	}

	for i, step := range s.Setup {
		if step.Op == "" {
			return fmt.Errorf("setup[%d]: op is required", i)
		}
		if step.ExpectError != "" {
			return fmt.Errorf("setup[%d]: expect_error is not allowed in setup", i)
		}
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
	}

	for i, a := range s.FinalState {
		if a.Kind == "" {
			return fmt.Errorf("final_state[%d]: kind is required", i)
		}
		if !knownKinds[a.Kind] {
			return fmt.Errorf("final_state[%d]: unknown kind %q", i, a.Kind)
		}
	}

	return nil
}
