package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Golden traces pin the full observable behavior of the flagship scenarios:
// every step's epoch, outcome, and operation outputs.
func TestGoldenTraces(t *testing.T) {
	for _, name := range []string{
		"verification_lifecycle",
		"velocity_risk",
	} {
		name := name
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}
