package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"veriledger/internal/access"
)

// VerificationStatus is the verification state of an inventory snapshot.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
)

// MaxSensorsPerInventory bounds the sensor set attached to one inventory.
// Oversized registration attempts are rejected, never truncated.
const MaxSensorsPerInventory = 10

// MaxSensorDataLen bounds the opaque sensor payload stored at verification
// time. The payload is never parsed.
const MaxSensorDataLen = 4096

// DefaultValidityPeriod is the epoch span during which a verification
// remains trusted unless the administrator tunes it.
const DefaultValidityPeriod = 1000

// Digest is a 32-byte authenticity digest. It marshals to lowercase hex.
type Digest [32]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a 64-character hex string into a Digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("parse digest: %w", err)
	}
	if len(raw) != len(d) {
		return d, fmt.Errorf("parse digest: got %d bytes, want %d", len(raw), len(d))
	}
	copy(d[:], raw)
	return d, nil
}

// MarshalJSON implements json.Marshaler.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Sensor is a registered attestation transducer. Deactivation retains the
// record with Authorized=false and descriptive fields blanked.
type Sensor struct {
	ID         uint64 `json:"id"`
	Location   string `json:"location"`
	Type       string `json:"type"`
	Authorized bool   `json:"authorized"`
	LastActive uint64 `json:"last_active"`
}

// Inventory is the latest-value snapshot for one physical inventory.
// Owner is immutable after registration; TotalValue and ItemCount are
// overwritten only by verification (and ItemCount incremented by item adds).
type Inventory struct {
	ID           uint64              `json:"id"`
	Owner        access.Principal    `json:"owner"`
	Location     string              `json:"location"`
	TotalValue   uint64              `json:"total_value"`
	ItemCount    uint64              `json:"item_count"`
	Status       VerificationStatus  `json:"verification_status"`
	LastVerified uint64              `json:"last_verified"`
	SensorIDs    map[uint64]struct{} `json:"-"`
	CreatedAt    uint64              `json:"created_at"`
}

// Sensors returns the sensor id set as a sorted slice copy.
func (inv *Inventory) Sensors() []uint64 {
	out := make([]uint64, 0, len(inv.SensorIDs))
	for id := range inv.SensorIDs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (inv *Inventory) clone() Inventory {
	out := *inv
	out.SensorIDs = make(map[uint64]struct{}, len(inv.SensorIDs))
	for id := range inv.SensorIDs {
		out.SensorIDs[id] = struct{}{}
	}
	return out
}

// Item is an inventory line item keyed by (inventory_id, item_id).
// Adding an item increments the parent's ItemCount but never TotalValue;
// value moves only through verification.
type Item struct {
	InventoryID      uint64 `json:"inventory_id"`
	ItemID           uint64 `json:"item_id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Quantity         uint64 `json:"quantity"`
	UnitValue        uint64 `json:"unit_value"`
	SKU              string `json:"sku"`
	AuthenticityHash Digest `json:"authenticity_hash"`
	Condition        string `json:"condition"`
	VerifiedAt       uint64 `json:"verified_at"`
}

// ItemInput carries the caller-supplied fields of an item upsert.
type ItemInput struct {
	Name             string
	Category         string
	Quantity         uint64
	UnitValue        uint64
	SKU              string
	AuthenticityHash Digest
	Condition        string
}

// VerificationRecord is one append-only entry of an inventory's
// verification history, keyed by (inventory_id, verification_id).
type VerificationRecord struct {
	InventoryID      uint64           `json:"inventory_id"`
	VerificationID   uint64           `json:"verification_id"`
	Verifier         access.Principal `json:"verifier"`
	Timestamp        uint64           `json:"timestamp"`
	TotalValue       uint64           `json:"total_value"`
	ItemCount        uint64           `json:"item_count"`
	VerificationHash Digest           `json:"verification_hash"`
	SensorData       string           `json:"sensor_data"`
}

// VerificationInput carries the caller-supplied fields of a verification.
type VerificationInput struct {
	TotalValue       uint64
	ItemCount        uint64
	VerificationHash Digest
	SensorData       string
}
