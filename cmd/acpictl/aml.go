package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/mwg2202/os/device/acpi/aml"
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/device/acpi/power"
	"github.com/spf13/cobra"
)

var amlArgs []string

func init() {
	rootCmd.AddCommand(newAMLCmd())
}

func newAMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aml <dir> [path...]",
		Short: "Build the AML namespace and evaluate objects",
		Long: `The aml command loads the DSDT and SSDTs from a table directory,
builds the AML namespace and runs the device initialization methods. Each
path is then looked up and evaluated; methods receive the values passed with
--arg. Without paths the sleep state objects \_S0 to \_S5 are evaluated.

Operation region accesses are served by an in-memory recorder unless
--dev-mem is set.

Example:
  acpictl aml /sys/firmware/acpi/tables
  acpictl aml ./dump '\_SB.PCI0._ADR' '\_OSI' --arg "Windows 2015"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAML(args)
		},
	}

	cmd.Flags().StringArrayVar(&amlArgs, "arg", nil, "Method argument; integers are parsed with base prefixes, anything else is passed as a string")
	return cmd
}

type amlResult struct {
	Path  string      `json:"path"`
	Kind  string      `json:"kind"`
	Value interface{} `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

func runAML(args []string) error {
	ts, err := loadTables(args[0])
	if err != nil {
		return err
	}

	ns, err := loadNamespace(ts)
	if err != nil {
		return err
	}
	defer ns.Close()

	paths := args[1:]
	explicit := len(paths) != 0
	if !explicit {
		for state := uint8(0); state <= 5; state++ {
			paths = append(paths, power.SleepObjectPath(state))
		}
	}

	var results []amlResult
	for _, path := range paths {
		res := evaluate(ns.ctx, path, parseArgs(amlArgs))
		if !explicit && res.Error == aml.ErrObjectNotFound.Message {
			continue
		}
		results = append(results, res)
	}

	if jsonOut {
		return printJSON(results)
	}

	for _, res := range results {
		switch {
		case res.Error != "":
			printInfo("%s: %s\n", res.Path, res.Error)
		case res.Value == nil:
			printInfo("%s: %s\n", res.Path, res.Kind)
		default:
			printInfo("%s = %s\n", res.Path, formatValue(res.Value))
		}
	}

	if writes := ns.rec.PortWrites(); len(writes) != 0 {
		printVerbose("%d port writes were recorded while evaluating\n", len(writes))
	}
	return nil
}

func evaluate(ctx *aml.Context, path string, args []interface{}) amlResult {
	res := amlResult{Path: path}

	ent, kerr := ctx.Lookup(path)
	if kerr != nil {
		res.Error = kerr.Message
		return res
	}
	res.Kind = ent.Opcode().String()

	switch ent.(type) {
	case *entity.Method, *entity.Name, *entity.FieldUnit, *entity.Alias:
	default:
		return res
	}

	if _, isMethod := ent.(*entity.Method); !isMethod {
		args = nil
	}

	val, vmErr := ctx.Invoke(path, args...)
	if vmErr != nil {
		var buf bytes.Buffer
		vmErr.Fprint(&buf)
		res.Error = strings.TrimSuffix(buf.String(), "\n")
		return res
	}

	res.Value = val
	return res
}

func parseArgs(raw []string) []interface{} {
	args := make([]interface{}, len(raw))
	for i, arg := range raw {
		if v, err := strconv.ParseUint(arg, 0, 64); err == nil {
			args[i] = v
		} else {
			args[i] = arg
		}
	}
	return args
}

// formatValue renders a value returned by Invoke using ASL-like notation.
func formatValue(v interface{}) string {
	switch tv := v.(type) {
	case uint64:
		return fmt.Sprintf("0x%x", tv)
	case string:
		return strconv.Quote(tv)
	case []byte:
		parts := make([]string, len(tv))
		for i, b := range tv {
			parts[i] = fmt.Sprintf("0x%02x", b)
		}
		return "Buffer {" + strings.Join(parts, ", ") + "}"
	case []interface{}:
		parts := make([]string, len(tv))
		for i, elem := range tv {
			parts[i] = formatValue(elem)
		}
		return "Package {" + strings.Join(parts, ", ") + "}"
	case nil:
		return "Uninitialized"
	}

	return fmt.Sprintf("%v", v)
}
