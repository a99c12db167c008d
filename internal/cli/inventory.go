package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"veriledger/internal/ledger"
)

// InventoryOptions holds flags for the inventory subcommands.
type InventoryOptions struct {
	*RootOptions
	Location   string
	SensorIDs  []uint
	Name       string
	Category   string
	Quantity   uint64
	UnitValue  uint64
	SKU        string
	Hash       string
	Condition  string
	TotalValue uint64
	ItemCount  uint64
	SensorData string
}

// NewInventoryCommand creates the inventory command group.
func NewInventoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InventoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Manage inventories, items, and verifications",
	}

	register := &cobra.Command{
		Use:           "register",
		Short:         "Register an inventory owned by the caller",
		Example:       `  veriledger inventory register --as alice --location warehouse-a --sensors 1,2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventoryRegister(cmd, opts)
		},
	}
	register.Flags().StringVar(&opts.Location, "location", "", "physical location of the inventory")
	register.Flags().UintSliceVar(&opts.SensorIDs, "sensors", nil, "sensor ids to attach")

	addItem := &cobra.Command{
		Use:           "add-item <inventory-id> <item-id>",
		Short:         "Add or update an item under an inventory",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventoryAddItem(cmd, opts, args[0], args[1])
		},
	}
	addItem.Flags().StringVar(&opts.Name, "name", "", "item name")
	addItem.Flags().StringVar(&opts.Category, "category", "", "item category")
	addItem.Flags().Uint64Var(&opts.Quantity, "quantity", 0, "item quantity")
	addItem.Flags().Uint64Var(&opts.UnitValue, "unit-value", 0, "per-unit value")
	addItem.Flags().StringVar(&opts.SKU, "sku", "", "stock keeping unit")
	addItem.Flags().StringVar(&opts.Hash, "hash", "", "authenticity digest (64 hex chars)")
	addItem.Flags().StringVar(&opts.Condition, "condition", "", "item condition")

	setQuantity := &cobra.Command{
		Use:           "set-quantity <inventory-id> <item-id> <quantity>",
		Short:         "Update an item's quantity (owner only)",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventorySetQuantity(cmd, opts, args)
		},
	}

	verify := &cobra.Command{
		Use:           "verify <inventory-id> <verification-id>",
		Short:         "Record a verification and overwrite the inventory snapshot",
		Example:       `  veriledger inventory verify 1 9001 --as rita --total-value 600 --item-count 12`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventoryVerify(cmd, opts, args[0], args[1])
		},
	}
	verify.Flags().Uint64Var(&opts.TotalValue, "total-value", 0, "attested total value")
	verify.Flags().Uint64Var(&opts.ItemCount, "item-count", 0, "attested item count")
	verify.Flags().StringVar(&opts.Hash, "hash", "", "verification digest (64 hex chars)")
	verify.Flags().StringVar(&opts.SensorData, "sensor-data", "", "opaque sensor payload")

	value := &cobra.Command{
		Use:           "value <inventory-id>",
		Short:         "Show the trusted value of an inventory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventoryValue(cmd, opts, args[0])
		},
	}

	show := &cobra.Command{
		Use:           "show <inventory-id>",
		Short:         "Show an inventory snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventoryShow(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(register, addItem, setQuantity, verify, value, show)
	return cmd
}

// parseDigestFlag parses an optional hex digest flag; empty means the zero
// digest.
func parseDigestFlag(raw string) (ledger.Digest, error) {
	if raw == "" {
		return ledger.Digest{}, nil
	}
	d, err := ledger.ParseDigest(raw)
	if err != nil {
		return ledger.Digest{}, WrapExitError(ExitCommandError, "invalid --hash", err)
	}
	return d, nil
}

func runInventoryRegister(cmd *cobra.Command, opts *InventoryOptions) error {
	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	sensorIDs := make([]uint64, len(opts.SensorIDs))
	for i, id := range opts.SensorIDs {
		sensorIDs[i] = uint64(id)
	}

	out := formatter(cmd, opts.RootOptions)
	id, err := rt.ledger.RegisterInventory(cmd.Context(), rt.caller, opts.Location, sensorIDs)
	if err != nil {
		return out.Report(err)
	}
	if opts.Format == "json" {
		return out.Success(map[string]uint64{"inventory_id": id})
	}
	return out.Success(fmt.Sprintf("inventory %d registered", id))
}

func runInventoryAddItem(cmd *cobra.Command, opts *InventoryOptions, rawInv, rawItem string) error {
	invID, err := parseID("inventory-id", rawInv)
	if err != nil {
		return err
	}
	itemID, err := parseID("item-id", rawItem)
	if err != nil {
		return err
	}
	hash, err := parseDigestFlag(opts.Hash)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	input := ledger.ItemInput{
		Name:             opts.Name,
		Category:         opts.Category,
		Quantity:         opts.Quantity,
		UnitValue:        opts.UnitValue,
		SKU:              opts.SKU,
		AuthenticityHash: hash,
		Condition:        opts.Condition,
	}
	if err := rt.ledger.AddItem(cmd.Context(), rt.caller, invID, itemID, input); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("item %d recorded under inventory %d", itemID, invID))
}

func runInventorySetQuantity(cmd *cobra.Command, opts *InventoryOptions, args []string) error {
	invID, err := parseID("inventory-id", args[0])
	if err != nil {
		return err
	}
	itemID, err := parseID("item-id", args[1])
	if err != nil {
		return err
	}
	quantity, err := parseID("quantity", args[2])
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	if err := rt.ledger.UpdateItemQuantity(cmd.Context(), rt.caller, invID, itemID, quantity); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("item %d quantity set to %d", itemID, quantity))
}

func runInventoryVerify(cmd *cobra.Command, opts *InventoryOptions, rawInv, rawVer string) error {
	invID, err := parseID("inventory-id", rawInv)
	if err != nil {
		return err
	}
	verID, err := parseID("verification-id", rawVer)
	if err != nil {
		return err
	}
	hash, err := parseDigestFlag(opts.Hash)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	input := ledger.VerificationInput{
		TotalValue:       opts.TotalValue,
		ItemCount:        opts.ItemCount,
		VerificationHash: hash,
		SensorData:       opts.SensorData,
	}
	if err := rt.ledger.VerifyInventory(cmd.Context(), rt.caller, invID, verID, input); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("verification %d recorded for inventory %d", verID, invID))
}

func runInventoryValue(cmd *cobra.Command, opts *InventoryOptions, rawInv string) error {
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
	if _, ok := rt.ledger.Inventory(invID); !ok {
		return out.Report(notFoundf("inventory %d has no record", invID))
	}

	value, valid := rt.ledger.InventoryValue(invID)
	if opts.Format == "json" {
		body := map[string]any{"inventory_id": invID, "valid": valid}
		if valid {
			body["total_value"] = value
		}
		return out.Success(body)
	}
	if !valid {
		return out.Success(fmt.Sprintf("inventory %d: verification missing or stale", invID))
	}
	return out.Success(fmt.Sprintf("inventory %d: total value %d", invID, value))
}

func runInventoryShow(cmd *cobra.Command, opts *InventoryOptions, rawInv string) error {
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
	inv, ok := rt.ledger.Inventory(invID)
	if !ok {
		return out.Report(notFoundf("inventory %d has no record", invID))
	}
	if opts.Format == "json" {
		return out.Success(map[string]any{"inventory": inv, "sensors": inv.Sensors()})
	}
	return out.Success(fmt.Sprintf("inventory %d: owner=%q location=%q status=%s value=%d items=%d last_verified=%d sensors=%v",
		inv.ID, inv.Owner, inv.Location, inv.Status, inv.TotalValue, inv.ItemCount, inv.LastVerified, inv.Sensors()))
}
