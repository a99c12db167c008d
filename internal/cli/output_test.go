package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriledger/internal/errs"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]uint64{"inventory_id": 7}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("NOT_FOUND", "inventory 9 has no record", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "inventory 9 has no record", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("sensor 7 registered")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sensor 7 registered")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("UNAUTHORIZED", "caller is not the administrator", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [UNAUTHORIZED]")
	assert.Contains(t, buf.String(), "caller is not the administrator")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]any{"sensor_id": uint64(3)}
	err := formatter.Error("INVALID_SENSOR", "sensor 3 is not authorized", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [INVALID_SENSOR]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Report(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	domain := errs.NotFound("inventory 9 has no record")
	err := formatter.Report(domain)
	assert.Same(t, domain, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestOutputFormatter_ReportSkipsPlainErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	plain := errors.New("disk full")
	err := formatter.Report(plain)
	assert.Same(t, plain, err)
	assert.Empty(t, buf.String())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"explicit_exit_error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped_exit_error", WrapExitError(ExitFailure, "verify", errors.New("boom")), ExitFailure},
		{"domain_error", errs.Unauthorized("caller is not the administrator"), ExitFailure},
		{"plain_error", errors.New("something else"), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errs.InvalidData("quantity must be positive")
	wrapped := WrapExitError(ExitFailure, "record sale", inner)
	assert.True(t, errs.IsInvalidData(errors.Unwrap(wrapped)))
	assert.Contains(t, wrapped.Error(), "record sale")
}
