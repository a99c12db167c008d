// Package ledger implements the inventory verification ledger: sensor
// registry, inventory records, line items, and the append-only verification
// history with its time-bounded validity window.
//
// The execution environment guarantees serialized, single-writer execution;
// the Ledger preserves that contract under real concurrency with one
// mutex spanning every mutation, so the "history append + snapshot
// overwrite" step of verification is never independently observable.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"veriledger/internal/access"
	"veriledger/internal/epoch"
	"veriledger/internal/errs"
)

type itemKey struct {
	inventoryID uint64
	itemID      uint64
}

type verificationKey struct {
	inventoryID    uint64
	verificationID uint64
}

// Journal persists ledger mutations. Implementations must make
// RecordVerification and RecordItemAdded atomic (history row and snapshot
// row committed together). A nil journal means the ledger runs ephemeral.
type Journal interface {
	RecordSensor(ctx context.Context, sensor Sensor) error
	RecordInventory(ctx context.Context, inv Inventory) error
	RecordItem(ctx context.Context, item Item) error
	RecordItemAdded(ctx context.Context, item Item, inv Inventory) error
	RecordVerification(ctx context.Context, rec VerificationRecord, inv Inventory) error
	RecordValidityPeriod(ctx context.Context, period uint64) error
	RecordNextInventoryID(ctx context.Context, next uint64) error
}

// Ledger owns the verification side of the record stores.
//
// All mutations validate first, then journal, then commit in memory;
// the in-memory commit cannot fail, so every operation is all-or-nothing.
type Ledger struct {
	mu      sync.Mutex
	clock   *epoch.Clock
	acl     *access.Controller
	journal Journal

	validityPeriod  uint64
	nextInventoryID uint64

	sensors       map[uint64]*Sensor
	inventories   map[uint64]*Inventory
	items         map[itemKey]*Item
	verifications map[verificationKey]*VerificationRecord
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithValidityPeriod overrides the default verification validity window.
func WithValidityPeriod(period uint64) Option {
	return func(l *Ledger) {
		if period > 0 {
			l.validityPeriod = period
		}
	}
}

// New creates a Ledger. journal may be nil for ephemeral operation.
func New(clock *epoch.Clock, acl *access.Controller, journal Journal, opts ...Option) *Ledger {
	l := &Ledger{
		clock:           clock,
		acl:             acl,
		journal:         journal,
		validityPeriod:  DefaultValidityPeriod,
		nextInventoryID: 1,
		sensors:         make(map[uint64]*Sensor),
		inventories:     make(map[uint64]*Inventory),
		items:           make(map[itemKey]*Item),
		verifications:   make(map[verificationKey]*VerificationRecord),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterSensor registers an attestation sensor. Administrator-only.
func (l *Ledger) RegisterSensor(ctx context.Context, caller access.Principal, id uint64, location, sensorType string) error {
	if !l.acl.IsAdmin(caller) {
		return errs.Unauthorized("only the administrator registers sensors")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.sensors[id]; ok {
		return errs.AlreadyExists(fmt.Sprintf("sensor %d is already registered", id))
	}

	sensor := &Sensor{
		ID:         id,
		Location:   location,
		Type:       sensorType,
		Authorized: true,
		LastActive: l.clock.Current(),
	}

	if l.journal != nil {
		if err := l.journal.RecordSensor(ctx, *sensor); err != nil {
			return fmt.Errorf("journal sensor: %w", err)
		}
	}

	l.sensors[id] = sensor
	return nil
}

// DeactivateSensor revokes a sensor's authorization. Administrator-only.
// The record is retained with descriptive fields blanked and LastActive
// stamped at the current epoch.
func (l *Ledger) DeactivateSensor(ctx context.Context, caller access.Principal, id uint64) error {
	if !l.acl.IsAdmin(caller) {
		return errs.Unauthorized("only the administrator deactivates sensors")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.sensors[id]; !ok {
		return errs.NotFound(fmt.Sprintf("sensor %d has no record", id))
	}

	deactivated := &Sensor{
		ID:         id,
		Authorized: false,
		LastActive: l.clock.Current(),
	}

	if l.journal != nil {
		if err := l.journal.RecordSensor(ctx, *deactivated); err != nil {
			return fmt.Errorf("journal sensor deactivation: %w", err)
		}
	}

	l.sensors[id] = deactivated
	return nil
}

// RegisterInventory creates an inventory owned by the caller and returns
// its engine-assigned id. The sensor set is filtered to currently-authorized
// sensors; an empty filtered set fails with InvalidSensor.
func (l *Ledger) RegisterInventory(ctx context.Context, caller access.Principal, location string, sensorIDs []uint64) (uint64, error) {
	if len(sensorIDs) > MaxSensorsPerInventory {
		return 0, errs.InvalidData(fmt.Sprintf("sensor set exceeds capacity %d", MaxSensorsPerInventory)).
			WithDetail("got", fmt.Sprintf("%d", len(sensorIDs)))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	authorized := make(map[uint64]struct{})
	for _, id := range sensorIDs {
		if s, ok := l.sensors[id]; ok && s.Authorized {
			authorized[id] = struct{}{}
		}
	}
	if len(authorized) == 0 {
		return 0, errs.InvalidSensor("no authorized sensors in registration set")
	}

	id := l.nextInventoryID
	inv := &Inventory{
		ID:        id,
		Owner:     caller,
		Location:  location,
		Status:    StatusPending,
		SensorIDs: authorized,
		CreatedAt: l.clock.Current(),
	}

	if l.journal != nil {
		if err := l.journal.RecordInventory(ctx, inv.clone()); err != nil {
			return 0, fmt.Errorf("journal inventory: %w", err)
		}
		if err := l.journal.RecordNextInventoryID(ctx, id+1); err != nil {
			return 0, fmt.Errorf("journal inventory counter: %w", err)
		}
	}

	l.inventories[id] = inv
	l.nextInventoryID = id + 1
	return id, nil
}

// AddItem upserts an item under an inventory. Requires a mutation grant on
// the inventory. A fresh item increments the parent's ItemCount; TotalValue
// is untouched (value moves only through verification).
func (l *Ledger) AddItem(ctx context.Context, caller access.Principal, inventoryID, itemID uint64, in ItemInput) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.inventories[inventoryID]
	if !ok {
		return errs.NotFound(fmt.Sprintf("inventory %d has no record", inventoryID))
	}
	if err := l.acl.Authorize(caller, inventoryID, inv.Owner); err != nil {
		return err
	}

	key := itemKey{inventoryID, itemID}
	_, existed := l.items[key]

	item := &Item{
		InventoryID:      inventoryID,
		ItemID:           itemID,
		Name:             in.Name,
		Category:         in.Category,
		Quantity:         in.Quantity,
		UnitValue:        in.UnitValue,
		SKU:              in.SKU,
		AuthenticityHash: in.AuthenticityHash,
		Condition:        in.Condition,
		VerifiedAt:       l.clock.Current(),
	}

	if existed {
		if l.journal != nil {
			if err := l.journal.RecordItem(ctx, *item); err != nil {
				return fmt.Errorf("journal item: %w", err)
			}
		}
		l.items[key] = item
		return nil
	}

	updated := inv.clone()
	updated.ItemCount++

	if l.journal != nil {
		if err := l.journal.RecordItemAdded(ctx, *item, updated); err != nil {
			return fmt.Errorf("journal item add: %w", err)
		}
	}

	l.items[key] = item
	inv.ItemCount = updated.ItemCount
	return nil
}

// VerifyInventory appends a verification record and atomically overwrites
// the inventory's value, count, status, and last-verified epoch. Requires a
// mutation grant on the inventory. The sensor payload is stored opaque and
// unparsed.
func (l *Ledger) VerifyInventory(ctx context.Context, caller access.Principal, inventoryID, verificationID uint64, in VerificationInput) error {
	if len(in.SensorData) > MaxSensorDataLen {
		return errs.InvalidData(fmt.Sprintf("sensor data exceeds %d bytes", MaxSensorDataLen))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.inventories[inventoryID]
	if !ok {
		return errs.NotFound(fmt.Sprintf("inventory %d has no record", inventoryID))
	}
	if err := l.acl.Authorize(caller, inventoryID, inv.Owner); err != nil {
		return err
	}

	key := verificationKey{inventoryID, verificationID}
	if _, ok := l.verifications[key]; ok {
		return errs.AlreadyExists(fmt.Sprintf("verification %d already recorded for inventory %d", verificationID, inventoryID))
	}

	now := l.clock.Current()
	rec := &VerificationRecord{
		InventoryID:      inventoryID,
		VerificationID:   verificationID,
		Verifier:         caller,
		Timestamp:        now,
		TotalValue:       in.TotalValue,
		ItemCount:        in.ItemCount,
		VerificationHash: in.VerificationHash,
		SensorData:       in.SensorData,
	}

	updated := inv.clone()
	updated.TotalValue = in.TotalValue
	updated.ItemCount = in.ItemCount
	updated.Status = StatusVerified
	updated.LastVerified = now

	if l.journal != nil {
		if err := l.journal.RecordVerification(ctx, *rec, updated); err != nil {
			return fmt.Errorf("journal verification: %w", err)
		}
	}

	l.verifications[key] = rec
	inv.TotalValue = updated.TotalValue
	inv.ItemCount = updated.ItemCount
	inv.Status = updated.Status
	inv.LastVerified = updated.LastVerified
	return nil
}

// UpdateItemQuantity updates an item's quantity and re-stamps its
// verification epoch. Owner-only.
func (l *Ledger) UpdateItemQuantity(ctx context.Context, caller access.Principal, inventoryID, itemID, newQuantity uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.inventories[inventoryID]
	if !ok {
		return errs.NotFound(fmt.Sprintf("inventory %d has no record", inventoryID))
	}
	if caller != inv.Owner {
		return errs.Unauthorized(fmt.Sprintf("only the owner updates items of inventory %d", inventoryID))
	}

	key := itemKey{inventoryID, itemID}
	item, ok := l.items[key]
	if !ok {
		return errs.NotFound(fmt.Sprintf("item %d has no record under inventory %d", itemID, inventoryID))
	}

	updated := *item
	updated.Quantity = newQuantity
	updated.VerifiedAt = l.clock.Current()

	if l.journal != nil {
		if err := l.journal.RecordItem(ctx, updated); err != nil {
			return fmt.Errorf("journal item update: %w", err)
		}
	}

	*item = updated
	return nil
}

// SetValidityPeriod tunes the verification validity window.
// Administrator-only; a zero period is rejected.
func (l *Ledger) SetValidityPeriod(ctx context.Context, caller access.Principal, period uint64) error {
	if !l.acl.IsAdmin(caller) {
		return errs.Unauthorized("only the administrator tunes the validity period")
	}
	if period == 0 {
		return errs.InvalidPeriod("validity period must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.journal != nil {
		if err := l.journal.RecordValidityPeriod(ctx, period); err != nil {
			return fmt.Errorf("journal validity period: %w", err)
		}
	}

	l.validityPeriod = period
	return nil
}

// IsVerificationValid reports whether an inventory's latest verification is
// still within the validity window. Staleness is evaluated lazily against
// the current epoch; no background process flips it.
func (l *Ledger) IsVerificationValid(inventoryID uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isValidLocked(inventoryID)
}

func (l *Ledger) isValidLocked(inventoryID uint64) bool {
	inv, ok := l.inventories[inventoryID]
	if !ok {
		return false
	}
	if inv.LastVerified == 0 || inv.Status != StatusVerified {
		return false
	}
	return l.clock.Current()-inv.LastVerified <= l.validityPeriod
}

// InventoryValue returns the verified total value. The boolean is false
// whenever the verification is missing or stale; a zero verified value is
// a real value, distinguishable from absence.
func (l *Ledger) InventoryValue(inventoryID uint64) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isValidLocked(inventoryID) {
		return 0, false
	}
	return l.inventories[inventoryID].TotalValue, true
}

// Inventory returns a copy of an inventory snapshot.
func (l *Ledger) Inventory(inventoryID uint64) (Inventory, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.inventories[inventoryID]
	if !ok {
		return Inventory{}, false
	}
	return inv.clone(), true
}

// Sensor returns a copy of a sensor record.
func (l *Ledger) Sensor(id uint64) (Sensor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sensors[id]
	if !ok {
		return Sensor{}, false
	}
	return *s, true
}

// Item returns a copy of an item record.
func (l *Ledger) Item(inventoryID, itemID uint64) (Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[itemKey{inventoryID, itemID}]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Verification returns a copy of a verification history entry.
func (l *Ledger) Verification(inventoryID, verificationID uint64) (VerificationRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.verifications[verificationKey{inventoryID, verificationID}]
	if !ok {
		return VerificationRecord{}, false
	}
	return *rec, true
}

// ValidityPeriod returns the current validity window.
func (l *Ledger) ValidityPeriod() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.validityPeriod
}

// RestoreState carries persisted ledger state for rebuild-on-open.
type RestoreState struct {
	Sensors         []Sensor
	Inventories     []Inventory
	Items           []Item
	Verifications   []VerificationRecord
	NextInventoryID uint64
	ValidityPeriod  uint64
}

// Restore installs persisted state without journaling. Counters only move
// forward; a restore can never cause an id to be reused.
func (l *Ledger) Restore(state RestoreState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range state.Sensors {
		sensor := s
		l.sensors[s.ID] = &sensor
	}
	for _, i := range state.Inventories {
		inv := i.clone()
		l.inventories[i.ID] = &inv
	}
	for _, it := range state.Items {
		item := it
		l.items[itemKey{it.InventoryID, it.ItemID}] = &item
	}
	for _, v := range state.Verifications {
		rec := v
		l.verifications[verificationKey{v.InventoryID, v.VerificationID}] = &rec
	}
	if state.NextInventoryID > l.nextInventoryID {
		l.nextInventoryID = state.NextInventoryID
	}
	if state.ValidityPeriod > 0 {
		l.validityPeriod = state.ValidityPeriod
	}
}
