package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWindowCommand creates the window command group for the two tunable
// block-count parameters.
func NewWindowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Tune validity and analysis windows (administrator only)",
	}

	setValidity := &cobra.Command{
		Use:           "set-validity <blocks>",
		Short:         "Set how long a verification stays trusted",
		Example:       `  veriledger window set-validity 2000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetValidity(cmd, rootOpts, args[0])
		},
	}

	setAnalysis := &cobra.Command{
		Use:           "set-analysis <blocks>",
		Short:         "Set the lookback window for velocity analysis",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetAnalysis(cmd, rootOpts, args[0])
		},
	}

	show := &cobra.Command{
		Use:           "show",
		Short:         "Show the current window settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindowShow(cmd, rootOpts)
		},
	}

	cmd.AddCommand(setValidity, setAnalysis, show)
	return cmd
}

func runSetValidity(cmd *cobra.Command, opts *RootOptions, raw string) error {
	blocks, err := parseID("blocks", raw)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts)
	if err := rt.ledger.SetValidityPeriod(cmd.Context(), rt.caller, blocks); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("validity period set to %d blocks", blocks))
}

func runSetAnalysis(cmd *cobra.Command, opts *RootOptions, raw string) error {
	blocks, err := parseID("blocks", raw)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts)
	if err := rt.engine.SetAnalysisWindow(cmd.Context(), rt.caller, blocks); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("analysis window set to %d blocks", blocks))
}

func runWindowShow(cmd *cobra.Command, opts *RootOptions) error {
	rt, err := openRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts)
	validity := rt.ledger.ValidityPeriod()
	analysis := rt.engine.AnalysisWindow()
	if opts.Format == "json" {
		return out.Success(map[string]uint64{
			"validity_period": validity,
			"analysis_window": analysis,
		})
	}
	return out.Success(fmt.Sprintf("validity_period=%d analysis_window=%d", validity, analysis))
}
