package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every scenario under testdata/scenarios must execute exactly as scripted,
// including its final-state assertions.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			_, err = Run(scenario)
			require.NoError(t, err)
		})
	}
}

func TestRun_UnexpectedFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected-failure",
		Description: "a step failing without expect_error aborts the run",
		Admin:       "admin",
		Flow: []Step{
			{Op: "register_sensor", Caller: "mallory", SensorID: 1, Location: "x", SensorType: "rfid"},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHORIZED")
}

func TestRun_MissingExpectedErrorAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing-expected-error",
		Description: "a step succeeding despite expect_error aborts the run",
		Admin:       "admin",
		Flow: []Step{
			{Op: "register_sensor", Caller: "admin", SensorID: 1, Location: "x", SensorType: "rfid", ExpectError: "ALREADY_EXISTS"},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected error ALREADY_EXISTS")
}

func TestRun_UnknownOpAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "unknown-op",
		Description: "an unrecognized op is a scenario bug",
		Admin:       "admin",
		Flow:        []Step{{Op: "teleport_inventory"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op")
}

func TestRun_FinalStateMismatchAborts(t *testing.T) {
	wrong := uint64(999)
	scenario := &Scenario{
		Name:        "final-state-mismatch",
		Description: "a final-state assertion that does not hold fails the run",
		Admin:       "admin",
		Setup: []Step{
			{Op: "register_sensor", Caller: "admin", SensorID: 1, Location: "x", SensorType: "rfid"},
			{Op: "register_inventory", Caller: "alice", Location: "x", SensorIDs: []uint64{1}},
		},
		Flow: []Step{
			{Op: "advance_epoch", Blocks: 1},
		},
		FinalState: []StateAssertion{
			{Kind: AssertInventory, InventoryID: 1, TotalValue: &wrong},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_value")
}

func TestRun_TraceRecordsEpochAndStatus(t *testing.T) {
	scenario := &Scenario{
		Name:        "trace-shape",
		Description: "trace events carry the epoch of execution and the outcome",
		Admin:       "admin",
		Flow: []Step{
			{Op: "advance_epoch", Blocks: 42},
			{Op: "register_sensor", Caller: "admin", SensorID: 1, Location: "x", SensorType: "rfid"},
			{Op: "deactivate_sensor", Caller: "bob", SensorID: 1, ExpectError: "UNAUTHORIZED"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)

	assert.Equal(t, uint64(42), result.Trace[0].Epoch)
	assert.Equal(t, "ok", result.Trace[1].Status)
	assert.Equal(t, uint64(42), result.Trace[1].Epoch)
	assert.Equal(t, "UNAUTHORIZED", result.Trace[2].Status)
}
