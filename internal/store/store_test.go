package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriledger/internal/access"
	"veriledger/internal/epoch"
	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_AppliesPragmasAndSchema(t *testing.T) {
	s, path := openTestStore(t)

	require.NoError(t, s.verifyPragma("journal_mode", "wal"))
	require.NoError(t, s.verifyPragma("foreign_keys", "1"))

	// Reopening the same file is a no-op.
	again, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestEpoch_RoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	got, err := s.LoadEpoch(ctx)
	require.NoError(t, err)
	assert.Zero(t, got, "fresh store starts at epoch 0")

	require.NoError(t, s.SaveEpoch(ctx, 42))
	require.NoError(t, s.SaveEpoch(ctx, 1000))

	got, err = s.LoadEpoch(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got)
}

func TestLedgerState_RoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	sensor := ledger.Sensor{ID: 7, Location: "warehouse-a", Type: "rfid", Authorized: true, LastActive: 5}
	require.NoError(t, s.RecordSensor(ctx, sensor))

	inv := ledger.Inventory{
		ID:        1,
		Owner:     "alice",
		Location:  "warehouse-a",
		Status:    ledger.StatusPending,
		SensorIDs: map[uint64]struct{}{7: {}},
		CreatedAt: 5,
	}
	require.NoError(t, s.RecordInventory(ctx, inv))
	require.NoError(t, s.RecordNextInventoryID(ctx, 2))

	item := ledger.Item{
		InventoryID: 1,
		ItemID:      100,
		Name:        "sneaker",
		Category:    "shoes",
		Quantity:    12,
		UnitValue:   50,
		SKU:         "SNK-100",
		Condition:   "new",
		VerifiedAt:  6,
	}
	withCount := inv
	withCount.ItemCount = 1
	require.NoError(t, s.RecordItemAdded(ctx, item, withCount))

	verified := withCount
	verified.TotalValue = 600
	verified.Status = ledger.StatusVerified
	verified.LastVerified = 10
	rec := ledger.VerificationRecord{
		InventoryID:    1,
		VerificationID: 1,
		Verifier:       "alice",
		Timestamp:      10,
		TotalValue:     600,
		ItemCount:      1,
		SensorData:     `{"temp":21}`,
	}
	require.NoError(t, s.RecordVerification(ctx, rec, verified))
	require.NoError(t, s.RecordValidityPeriod(ctx, 500))

	state, err := s.LoadLedgerState(ctx)
	require.NoError(t, err)

	require.Len(t, state.Sensors, 1)
	assert.Equal(t, sensor, state.Sensors[0])

	require.Len(t, state.Inventories, 1)
	assert.Equal(t, verified, state.Inventories[0])

	require.Len(t, state.Items, 1)
	assert.Equal(t, item, state.Items[0])

	require.Len(t, state.Verifications, 1)
	assert.Equal(t, rec, state.Verifications[0])

	assert.Equal(t, uint64(2), state.NextInventoryID)
	assert.Equal(t, uint64(500), state.ValidityPeriod)
}

func TestLedgerState_LatestValueWins(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSensor(ctx, ledger.Sensor{ID: 1, Location: "dock", Type: "scale", Authorized: true, LastActive: 1}))
	require.NoError(t, s.RecordSensor(ctx, ledger.Sensor{ID: 1, Authorized: false, LastActive: 9}))

	state, err := s.LoadLedgerState(ctx)
	require.NoError(t, err)

	require.Len(t, state.Sensors, 1)
	assert.False(t, state.Sensors[0].Authorized)
	assert.Equal(t, uint64(9), state.Sensors[0].LastActive)
	assert.Empty(t, state.Sensors[0].Location)
}

func TestRecordVerification_DuplicateKeyFails(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	inv := ledger.Inventory{ID: 1, Owner: "alice", SensorIDs: map[uint64]struct{}{}, Status: ledger.StatusVerified, LastVerified: 3}
	rec := ledger.VerificationRecord{InventoryID: 1, VerificationID: 1, Verifier: "alice", Timestamp: 3}

	require.NoError(t, s.RecordVerification(ctx, rec, inv))
	err := s.RecordVerification(ctx, rec, inv)
	require.Error(t, err, "history rows are append-only")
}

func TestVelocityState_RoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	metrics := velocity.InventoryMetrics{InventoryID: 1, Owner: "alice", SalesTrend: velocity.TrendStable}
	require.NoError(t, s.RecordMetrics(ctx, metrics))

	sale := velocity.SaleRecord{
		SalesID:     1,
		InventoryID: 1,
		Seller:      "alice",
		Category:    "shoes",
		Quantity:    10,
		Value:       500,
		SaleDate:    20,
		Channel:     "retail",
		Verified:    true,
	}
	cat := velocity.CategoryPerformance{
		InventoryID:    1,
		Category:       "shoes",
		TotalQuantity:  10,
		TotalRevenue:   500,
		AvgSaleValue:   50,
		VelocityScore:  33,
		TrendDirection: velocity.TrendUp,
		LastSale:       20,
	}
	require.NoError(t, s.RecordSale(ctx, sale, cat, 2))

	snap := velocity.VelocitySnapshot{
		InventoryID:   1,
		AnalysisEpoch: 100,
		VelocityScore: 33,
		TurnoverRate:  1,
		SalesVolume:   10,
		TrendChange:   -1,
		RiskFactor:    75,
	}
	updated := metrics
	updated.TotalSales = 10
	updated.TotalRevenue = 500
	updated.VelocityScore = 33
	updated.LastUpdated = 100
	updated.SalesTrend = velocity.TrendDown
	require.NoError(t, s.RecordAnalysis(ctx, snap, updated))
	require.NoError(t, s.RecordAnalysisWindow(ctx, 2000))

	state, err := s.LoadVelocityState(ctx)
	require.NoError(t, err)

	require.Len(t, state.Sales, 1)
	assert.Equal(t, sale, state.Sales[0])

	require.Len(t, state.Categories, 1)
	assert.Equal(t, cat, state.Categories[0])

	require.Len(t, state.Metrics, 1)
	assert.Equal(t, updated, state.Metrics[0])

	require.Len(t, state.History, 1)
	assert.Equal(t, snap, state.History[0])

	assert.Equal(t, uint64(2), state.NextSalesID)
	assert.Equal(t, uint64(2000), state.AnalysisWindow)
}

func TestReporterGrants_RevocationOverwrites(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	grant := access.ReporterGrant{
		Reporter:    "rita",
		Authorized:  true,
		Inventories: map[uint64]struct{}{1: {}, 2: {}},
	}
	require.NoError(t, s.RecordReporterGrant(ctx, grant))

	revoked := access.ReporterGrant{
		Reporter:    "rita",
		Authorized:  false,
		Inventories: map[uint64]struct{}{},
		LastReport:  33,
	}
	require.NoError(t, s.RecordReporterGrant(ctx, revoked))

	grants, err := s.LoadReporterGrants(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.False(t, grants[0].Authorized)
	assert.Empty(t, grants[0].Inventories)
	assert.Equal(t, uint64(33), grants[0].LastReport)
}

// Full journaled lifecycle: run the engines against the store, reopen the
// database, restore fresh engines, and check the rebuilt state answers the
// same queries.
func TestReopen_RebuildsEngineState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)

	clock := epoch.NewClock()
	acl := access.NewController("admin", clock, s)
	l := ledger.New(clock, acl, s)
	e := velocity.New(clock, acl, s)

	require.NoError(t, l.RegisterSensor(ctx, "admin", 1, "warehouse-a", "rfid"))
	invID, err := l.RegisterInventory(ctx, "alice", "warehouse-a", []uint64{1})
	require.NoError(t, err)
	clock.Advance(1)
	require.NoError(t, l.VerifyInventory(ctx, "alice", invID, 1, ledger.VerificationInput{TotalValue: 900, ItemCount: 3}))

	require.NoError(t, acl.GrantReporter(ctx, "admin", "rita", []uint64{invID}))
	require.NoError(t, e.InitializeTracking(ctx, "alice", invID))
	_, err = e.RecordSale(ctx, "rita", invID, "shoes", 10, 500, "retail")
	require.NoError(t, err)

	clock.Advance(100)
	require.NoError(t, s.SaveEpoch(ctx, clock.Current()))
	require.NoError(t, s.Close())

	// Reopen and rebuild.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	savedEpoch, err := s2.LoadEpoch(ctx)
	require.NoError(t, err)
	clock2 := epoch.NewClockAt(savedEpoch)

	acl2 := access.NewController("admin", clock2, s2)
	grants, err := s2.LoadReporterGrants(ctx)
	require.NoError(t, err)
	for _, g := range grants {
		acl2.RestoreGrant(g)
	}

	l2 := ledger.New(clock2, acl2, s2)
	ledgerState, err := s2.LoadLedgerState(ctx)
	require.NoError(t, err)
	l2.Restore(ledgerState)

	e2 := velocity.New(clock2, acl2, s2)
	velocityState, err := s2.LoadVelocityState(ctx)
	require.NoError(t, err)
	e2.Restore(velocityState)

	assert.Equal(t, uint64(101), clock2.Current())

	value, ok := l2.InventoryValue(invID)
	require.True(t, ok, "verification is still inside the validity window")
	assert.Equal(t, uint64(900), value)

	sale, ok := e2.Sale(1)
	require.True(t, ok)
	assert.Equal(t, access.Principal("rita"), sale.Seller)

	// Counters resume past the persisted high-water marks.
	nextInv, err := l2.RegisterInventory(ctx, "bob", "warehouse-b", []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, invID+1, nextInv)

	nextSale, err := e2.RecordSale(ctx, "alice", invID, "shoes", 1, 50, "online")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nextSale)
}
