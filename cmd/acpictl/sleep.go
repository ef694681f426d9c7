package main

import (
	"fmt"
	"strconv"

	"github.com/mwg2202/os/device/acpi/power"
	"github.com/mwg2202/os/device/hwio"
	"github.com/mwg2202/os/internal/hostio"
	"github.com/spf13/cobra"
)

var (
	sleepMode   string
	sleepDryRun bool
)

func init() {
	rootCmd.AddCommand(newSleepCmd())
}

func newSleepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sleep <dir> <state>",
		Short: "Compute and optionally perform a sleep state transition",
		Long: `The sleep command runs the sleep state controller against the tables
in a directory. In aml mode the SLP_TYP values come from the \_Sx object and
\_TTS/\_PTS are executed; register mode writes the state number directly.

By default the PM1 control writes are only recorded and printed. With
--dry-run=false they are sent to /dev/port, which on S5 powers the machine
off.

Example:
  acpictl sleep /sys/firmware/acpi/tables 5
  acpictl sleep ./dump 3 --mode register --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSleep(args)
		},
	}

	cmd.Flags().StringVar(&sleepMode, "mode", "aml", "Transition mode: aml or register")
	cmd.Flags().BoolVar(&sleepDryRun, "dry-run", true, "Record the register writes instead of performing them")
	return cmd
}

type sleepReport struct {
	State  uint8            `json:"state"`
	Mode   string           `json:"mode"`
	DryRun bool             `json:"dry_run"`
	Writes []hwio.PortWrite `json:"writes,omitempty"`
}

func runSleep(args []string) error {
	state, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return fmt.Errorf("invalid sleep state %q", args[1])
	}

	var flags power.Flag
	switch sleepMode {
	case "aml":
		flags = power.ModeAML | power.FlagFallback
	case "register":
		flags = power.ModeRegister
	default:
		return fmt.Errorf("unsupported mode %q; expected aml or register", sleepMode)
	}

	ts, err := loadTables(args[0])
	if err != nil {
		return err
	}

	var ns power.Namespace
	if flags&power.ModeAML != 0 {
		amlNS, err := loadNamespace(ts)
		if err != nil {
			return err
		}
		defer amlNS.Close()
		ns = amlNS.ctx
	}

	var (
		rec                    = hwio.NewRecorder(nil)
		ports power.PortWriter = rec
		dev   *hostio.File
	)
	if !sleepDryRun {
		if dev, err = hostio.Open(hostio.DevPort, true); err != nil {
			return err
		}
		defer dev.Close()
		ports = portTee{rec: rec, dev: hostio.Ports{File: dev}}
	}

	ctrl := power.NewController(ts.FADT, ns, ports, kernelLog())
	if kerr := ctrl.EnterSleepState(uint8(state), flags); kerr != nil {
		return fmt.Errorf("sleep state transition failed: %s", kerr.Message)
	}
	if dev != nil && dev.Err() != nil {
		return dev.Err()
	}

	report := sleepReport{State: uint8(state), Mode: sleepMode, DryRun: sleepDryRun, Writes: rec.PortWrites()}
	if jsonOut {
		return printJSON(report)
	}

	verb := "would write"
	if !sleepDryRun {
		verb = "wrote"
	}
	for _, w := range report.Writes {
		printInfo("S%d: %s 0x%04x to port 0x%x (%d bytes)\n", state, verb, w.Value, w.Port, w.Width)
	}
	return nil
}

// portTee records every write before forwarding it to the device.
type portTee struct {
	rec *hwio.Recorder
	dev hostio.Ports
}

func (t portTee) WritePort16(port uint16, v uint16) {
	t.rec.WritePort16(port, v)
	t.dev.WritePort16(port, v)
}
