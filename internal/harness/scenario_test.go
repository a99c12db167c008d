package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenarioFile(t, `
name: minimal
description: smallest valid scenario
flow:
  - op: advance_epoch
    blocks: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, "admin", scenario.Admin, "admin defaults when omitted")
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, uint64(1), scenario.Flow[0].Blocks)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
description: misspelled key must be rejected
flows:
  - op: advance_epoch
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
}

func TestLoadScenario_RejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nflow:\n  - op: advance_epoch\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nflow:\n  - op: advance_epoch\n",
			want:    "description is required",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\n",
			want:    "flow list is required",
		},
		{
			name:    "setup with expect_error",
			content: "name: n\ndescription: d\nsetup:\n  - op: advance_epoch\n    expect_error: NOT_FOUND\nflow:\n  - op: advance_epoch\n",
			want:    "expect_error is not allowed in setup",
		},
		{
			name:    "unknown assertion kind",
			content: "name: n\ndescription: d\nflow:\n  - op: advance_epoch\nfinal_state:\n  - kind: warp_field\n",
			want:    "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenarioFile(t, tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
