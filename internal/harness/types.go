package harness

import (
	"veriledger/internal/access"
	"veriledger/internal/epoch"
	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

// Step is one scripted operation. Op selects the operation; the remaining
// fields carry its arguments and only the relevant ones are read.
type Step struct {
	// Op is the operation name (e.g., "register_sensor", "record_sale").
	Op string `yaml:"op"`

	// Caller is the principal executing the operation.
	Caller string `yaml:"caller,omitempty"`

	// Blocks is the epoch delta for advance_epoch.
	Blocks uint64 `yaml:"blocks,omitempty"`

	SensorID   uint64 `yaml:"sensor_id,omitempty"`
	Location   string `yaml:"location,omitempty"`
	SensorType string `yaml:"sensor_type,omitempty"`

	InventoryID uint64   `yaml:"inventory_id,omitempty"`
	SensorIDs   []uint64 `yaml:"sensor_ids,omitempty"`

	ItemID    uint64 `yaml:"item_id,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Category  string `yaml:"category,omitempty"`
	Quantity  uint64 `yaml:"quantity,omitempty"`
	UnitValue uint64 `yaml:"unit_value,omitempty"`
	SKU       string `yaml:"sku,omitempty"`
	Condition string `yaml:"condition,omitempty"`

	VerificationID uint64 `yaml:"verification_id,omitempty"`
	TotalValue     uint64 `yaml:"total_value,omitempty"`
	ItemCount      uint64 `yaml:"item_count,omitempty"`
	SensorData     string `yaml:"sensor_data,omitempty"`

	Reporter     string   `yaml:"reporter,omitempty"`
	InventoryIDs []uint64 `yaml:"inventory_ids,omitempty"`

	Value   uint64 `yaml:"value,omitempty"`
	Channel string `yaml:"channel,omitempty"`

	Period uint64 `yaml:"period,omitempty"`
	Window uint64 `yaml:"window,omitempty"`

	// ExpectError is the error code the step must fail with. An empty
	// value means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// TraceEvent is one entry of the execution trace. Status is "ok" or the
// error code the step failed with. Result carries operation outputs worth
// pinning in golden files.
type TraceEvent struct {
	Seq    int            `json:"seq"`
	Op     string         `json:"op"`
	Caller string         `json:"caller,omitempty"`
	Epoch  uint64         `json:"epoch"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
}

// Result holds the executed trace and the live engines for final-state
// inspection.
type Result struct {
	Scenario string
	Trace    []TraceEvent

	Clock  *epoch.Clock
	ACL    *access.Controller
	Ledger *ledger.Ledger
	Engine *velocity.Engine
}
