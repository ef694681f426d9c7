package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	jsonOut bool
	devMem  bool

	// stdout and stderr are replaced by tests.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "acpictl",
	Short: "Inspect EFI memory maps, ACPI tables and AML namespaces",
	Long: `acpictl runs the boot core's memory reconciliation, ACPI table
validation, AML interpreter and sleep state controller against dumps taken
from a running system, e.g. /sys/firmware/acpi/tables.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print kernel log output to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&devMem, "dev-mem", false, "Back SystemMemory operation regions with /dev/mem")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		os.Exit(1)
	}
}

// printInfo prints to stdout.
func printInfo(format string, args ...interface{}) {
	fmt.Fprintf(stdout, format, args...)
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(stderr, format, args...)
	}
}

// printJSON outputs data as JSON.
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// kernelLog returns the sink for the log output of the kernel packages.
func kernelLog() io.Writer {
	if verbose {
		return stderr
	}
	return io.Discard
}
