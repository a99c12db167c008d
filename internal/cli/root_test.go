package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "veriledger", cmd.Use)
	assert.Contains(t, cmd.Long, "verification ledger")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"sensor", "inventory", "reporter", "sale", "analyze", "risk", "window", "epoch", "serve"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	callerFlag := cmd.PersistentFlags().Lookup("as")
	require.NotNil(t, callerFlag)
	assert.Equal(t, "", callerFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "epoch", "show"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInventoryRegisterFlags(t *testing.T) {
	cmd := NewRootCommand()
	registerCmd, _, err := cmd.Find([]string{"inventory", "register"})
	require.NoError(t, err)

	locationFlag := registerCmd.Flags().Lookup("location")
	require.NotNil(t, locationFlag)

	sensorsFlag := registerCmd.Flags().Lookup("sensors")
	require.NotNil(t, sensorsFlag)
}

func TestSaleRecordFlags(t *testing.T) {
	cmd := NewRootCommand()
	recordCmd, _, err := cmd.Find([]string{"sale", "record"})
	require.NoError(t, err)

	for _, name := range []string{"category", "quantity", "value", "channel"} {
		flag := recordCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "flag %s should exist", name)
	}
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
