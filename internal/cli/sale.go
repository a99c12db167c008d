package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SaleOptions holds flags for the sale subcommands.
type SaleOptions struct {
	*RootOptions
	Category string
	Quantity uint64
	Value    uint64
	Channel  string
}

// NewSaleCommand creates the sale command group.
func NewSaleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Record and inspect point-of-sale events",
	}

	record := &cobra.Command{
		Use:           "record <inventory-id>",
		Short:         "Record a sale against a tracked inventory",
		Example:       `  veriledger sale record 1 --as merchant --category shoes --quantity 10 --value 500 --channel retail`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaleRecord(cmd, opts, args[0])
		},
	}
	record.Flags().StringVar(&opts.Category, "category", "", "sale category")
	record.Flags().Uint64Var(&opts.Quantity, "quantity", 0, "units sold (must be positive)")
	record.Flags().Uint64Var(&opts.Value, "value", 0, "sale value (must be positive)")
	record.Flags().StringVar(&opts.Channel, "channel", "", "sales channel (retail, online, ...)")

	track := &cobra.Command{
		Use:           "track <inventory-id>",
		Short:         "Initialize analytics tracking; the caller becomes the tracked owner",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaleTrack(cmd, opts, args[0])
		},
	}

	show := &cobra.Command{
		Use:           "show <sales-id>",
		Short:         "Show a sale record by its global id",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaleShow(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(record, track, show)
	return cmd
}

func runSaleTrack(cmd *cobra.Command, opts *SaleOptions, rawInv string) error {
	invID, err := parseID("inventory-id", rawInv)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	if err := rt.engine.InitializeTracking(cmd.Context(), rt.caller, invID); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("inventory %d tracked for %q", invID, rt.caller))
}

func runSaleRecord(cmd *cobra.Command, opts *SaleOptions, rawInv string) error {
	invID, err := parseID("inventory-id", rawInv)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	salesID, err := rt.engine.RecordSale(cmd.Context(), rt.caller, invID, opts.Category, opts.Quantity, opts.Value, opts.Channel)
	if err != nil {
		return out.Report(err)
	}
	if opts.Format == "json" {
		return out.Success(map[string]uint64{"sales_id": salesID})
	}
	return out.Success(fmt.Sprintf("sale %d recorded", salesID))
}

func runSaleShow(cmd *cobra.Command, opts *SaleOptions, rawID string) error {
	id, err := parseID("sales-id", rawID)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	sale, ok := rt.engine.Sale(id)
	if !ok {
		return out.Report(notFoundf("sale %d has no record", id))
	}
	if opts.Format == "json" {
		return out.Success(sale)
	}
	return out.Success(fmt.Sprintf("sale %d: inventory=%d seller=%q category=%q quantity=%d value=%d epoch=%d channel=%q",
		sale.SalesID, sale.InventoryID, sale.Seller, sale.Category, sale.Quantity, sale.Value, sale.SaleDate, sale.Channel))
}
