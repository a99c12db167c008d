package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriledger/internal/access"
	"veriledger/internal/epoch"
	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

type fixture struct {
	clock  *epoch.Clock
	acl    *access.Controller
	ledger *ledger.Ledger
	engine *velocity.Engine
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := epoch.NewClock()
	acl := access.NewController("admin", clock, nil)
	l := ledger.New(clock, acl, nil)
	e := velocity.New(clock, acl, nil)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(New(log, clock, acl, l, e).Router())
	t.Cleanup(srv.Close)

	return &fixture{clock: clock, acl: acl, ledger: l, engine: e, srv: srv}
}

// get performs a GET and decodes the response envelope.
func (f *fixture) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()

	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func (f *fixture) seedInventory(t *testing.T) uint64 {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.ledger.RegisterSensor(ctx, "admin", 1, "warehouse-a", "rfid"))
	id, err := f.ledger.RegisterInventory(ctx, "alice", "warehouse-a", []uint64{1})
	require.NoError(t, err)
	return id
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(7)

	status, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, float64(7), data["epoch"])
}

func TestInventoryLookup(t *testing.T) {
	f := newFixture(t)
	id := f.seedInventory(t)

	status, body := f.get(t, "/api/v1/inventories/1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	inv := data["inventory"].(map[string]any)
	assert.Equal(t, float64(id), inv["id"])
	assert.Equal(t, "alice", inv["owner"])
	assert.Equal(t, "pending", inv["verification_status"])
	assert.Equal(t, []any{float64(1)}, data["sensors"].([]any))
}

func TestInventoryLookup_Missing(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/api/v1/inventories/99")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])

	errBody := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errBody["code"])
}

func TestInventoryLookup_BadID(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/api/v1/inventories/not-a-number")
	assert.Equal(t, http.StatusBadRequest, status)

	errBody := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_DATA", errBody["code"])
}

func TestInventoryValue_HiddenWhenStale(t *testing.T) {
	f := newFixture(t)
	id := f.seedInventory(t)
	ctx := context.Background()

	f.clock.Advance(1)
	require.NoError(t, f.ledger.VerifyInventory(ctx, "alice", id, 1, ledger.VerificationInput{TotalValue: 900, ItemCount: 3}))

	status, body := f.get(t, "/api/v1/inventories/1/value")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, float64(900), data["total_value"])

	// Push the verification past the validity window.
	f.clock.Advance(ledger.DefaultValidityPeriod + 1)

	status, body = f.get(t, "/api/v1/inventories/1/value")
	require.Equal(t, http.StatusOK, status)
	data = body["data"].(map[string]any)
	assert.Equal(t, false, data["valid"])
	_, present := data["total_value"]
	assert.False(t, present, "stale value must not be exposed")
}

func TestRisk_NoDataForUnanalyzedInventory(t *testing.T) {
	f := newFixture(t)

	status, body := f.get(t, "/api/v1/inventories/5/risk")
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, "no-data", data["classification"])
	assert.Equal(t, float64(100), data["risk_factor"])
}

func TestRisk_ClassifiesCurrentSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.InitializeTracking(ctx, "alice", 1))
	f.clock.Advance(3000)
	_, err := f.engine.RecordSale(ctx, "alice", 1, "shoes", 300, 9000, "retail")
	require.NoError(t, err)
	_, err = f.engine.AnalyzeVelocity(ctx, "alice", 1)
	require.NoError(t, err)

	status, body := f.get(t, "/api/v1/inventories/1/risk")
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, "low-risk", data["classification"])
	assert.Equal(t, float64(7), data["risk_factor"])
}

func TestReporterLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.acl.GrantReporter(ctx, "admin", "rita", []uint64{3, 1, 2}))

	status, body := f.get(t, "/api/v1/reporters/rita")
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.Equal(t, "rita", data["reporter"])
	assert.Equal(t, true, data["authorized"])
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, data["inventories"].([]any))
}

func TestSaleAndCategoryLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.InitializeTracking(ctx, "alice", 1))
	saleID, err := f.engine.RecordSale(ctx, "alice", 1, "shoes", 10, 500, "retail")
	require.NoError(t, err)

	status, body := f.get(t, "/api/v1/sales/1")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(saleID), data["sales_id"])
	assert.Equal(t, "alice", data["seller"])

	status, body = f.get(t, "/api/v1/inventories/1/categories/shoes")
	require.Equal(t, http.StatusOK, status)
	data = body["data"].(map[string]any)
	assert.Equal(t, float64(10), data["total_quantity"])
	assert.Equal(t, float64(50), data["avg_sale_value"])
	assert.Equal(t, "up", data["trend_direction"])
}

func TestRequestIDPropagation(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-me")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "trace-me", resp.Header.Get("X-Request-ID"))
}
