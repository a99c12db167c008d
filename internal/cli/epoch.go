package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewEpochCommand creates the epoch command group. The epoch is the external
// block-height clock every timestamp in the system derives from; it only
// moves when this command advances it.
func NewEpochCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epoch",
		Short: "Inspect and advance the block-height clock",
	}

	advance := &cobra.Command{
		Use:           "advance <blocks>",
		Short:         "Advance the clock by the given number of blocks",
		Example:       `  veriledger epoch advance 100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEpochAdvance(cmd, rootOpts, args[0])
		},
	}

	show := &cobra.Command{
		Use:           "show",
		Short:         "Show the current epoch",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEpochShow(cmd, rootOpts)
		},
	}

	cmd.AddCommand(advance, show)
	return cmd
}

func runEpochAdvance(cmd *cobra.Command, opts *RootOptions, raw string) error {
	blocks, err := parseID("blocks", raw)
	if err != nil {
		return err
	}
	if blocks == 0 {
		return NewExitError(ExitCommandError, "blocks must be positive")
	}

	rt, err := openRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts)
	now := rt.clock.Advance(blocks)
	if err := rt.store.SaveEpoch(cmd.Context(), now); err != nil {
		return WrapExitError(ExitCommandError, "persist epoch", err)
	}
	if opts.Format == "json" {
		return out.Success(map[string]uint64{"epoch": now})
	}
	return out.Success(fmt.Sprintf("epoch advanced to %d", now))
}

func runEpochShow(cmd *cobra.Command, opts *RootOptions) error {
	rt, err := openRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts)
	now := rt.clock.Current()
	if opts.Format == "json" {
		return out.Success(map[string]uint64{"epoch": now})
	}
	return out.Success(fmt.Sprintf("epoch %d", now))
}
