package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "analyze <inventory-id>",
		Short:         "Compute and append a velocity snapshot for the current epoch",
		Example:       `  veriledger analyze 1 --as merchant --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, rootOpts, args[0])
		},
	}
}

func runAnalyze(cmd *cobra.Command, opts *RootOptions, rawInv string) error {
	invID, err := parseID("inventory-id", rawInv)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts)
	snap, err := rt.engine.AnalyzeVelocity(cmd.Context(), rt.caller, invID)
	if err != nil {
		return out.Report(err)
	}
	if opts.Format == "json" {
		return out.Success(snap)
	}
	return out.Success(fmt.Sprintf("inventory %d @ epoch %d: velocity=%d turnover=%d volume=%d trend=%+d risk=%d",
		snap.InventoryID, snap.AnalysisEpoch, snap.VelocityScore, snap.TurnoverRate,
		snap.SalesVolume, snap.TrendChange, snap.RiskFactor))
}

// NewRiskCommand creates the risk command.
func NewRiskCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "risk <inventory-id>",
		Short:         "Classify financing risk from the current epoch's snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRisk(cmd, rootOpts, args[0])
		},
	}
}

func runRisk(cmd *cobra.Command, opts *RootOptions, rawInv string) error {
	invID, err := parseID("inventory-id", rawInv)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts)
	assessment := rt.engine.RiskAssessment(invID)
	if opts.Format == "json" {
		return out.Success(assessment)
	}
	return out.Success(fmt.Sprintf("inventory %d: classification=%s risk=%d velocity=%d turnover=%d epoch=%d",
		assessment.InventoryID, assessment.Classification, assessment.RiskFactor,
		assessment.VelocityScore, assessment.TurnoverRate, assessment.AnalysisEpoch))
}
