package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// SensorOptions holds flags for the sensor subcommands.
type SensorOptions struct {
	*RootOptions
	Location string
	Type     string
}

// NewSensorCommand creates the sensor command group.
func NewSensorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SensorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sensor",
		Short: "Manage attestation sensors",
	}

	register := &cobra.Command{
		Use:           "register <sensor-id>",
		Short:         "Register a sensor (administrator only)",
		Example:       `  veriledger sensor register 7 --location warehouse-a --type rfid`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSensorRegister(cmd, opts, args[0])
		},
	}
	register.Flags().StringVar(&opts.Location, "location", "", "physical location of the sensor")
	register.Flags().StringVar(&opts.Type, "type", "", "sensor type (rfid, scale, camera, ...)")

	deactivate := &cobra.Command{
		Use:           "deactivate <sensor-id>",
		Short:         "Revoke a sensor's authorization (administrator only)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSensorDeactivate(cmd, opts, args[0])
		},
	}

	show := &cobra.Command{
		Use:           "show <sensor-id>",
		Short:         "Show a sensor record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSensorShow(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(register, deactivate, show)
	return cmd
}

func runSensorRegister(cmd *cobra.Command, opts *SensorOptions, rawID string) error {
	id, err := parseID("sensor-id", rawID)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	if err := rt.ledger.RegisterSensor(cmd.Context(), rt.caller, id, opts.Location, opts.Type); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("sensor %d registered", id))
}

func runSensorDeactivate(cmd *cobra.Command, opts *SensorOptions, rawID string) error {
	id, err := parseID("sensor-id", rawID)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	if err := rt.ledger.DeactivateSensor(cmd.Context(), rt.caller, id); err != nil {
		return out.Report(err)
	}
	return out.Success(fmt.Sprintf("sensor %d deactivated", id))
}

func runSensorShow(cmd *cobra.Command, opts *SensorOptions, rawID string) error {
	id, err := parseID("sensor-id", rawID)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := formatter(cmd, opts.RootOptions)
	sensor, ok := rt.ledger.Sensor(id)
	if !ok {
		return out.Report(notFoundf("sensor %d has no record", id))
	}
	if opts.Format == "json" {
		return out.Success(sensor)
	}
	return out.Success(fmt.Sprintf("sensor %d: location=%q type=%q authorized=%v last_active=%d",
		sensor.ID, sensor.Location, sensor.Type, sensor.Authorized, sensor.LastActive))
}

// parseID parses a numeric positional argument.
func parseID(name, raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("%s must be a non-negative integer, got %q", name, raw))
	}
	return id, nil
}
