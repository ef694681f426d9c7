package main

import (
	"fmt"

	"github.com/mwg2202/os/device/acpi"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newTablesCmd())
}

func newTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables <dir>",
		Short: "Validate and list the ACPI tables in a directory",
		Long: `The tables command validates every table in a sysfs-style directory
and lists its header together with a summary of the FADT, MADT and MCFG.

Example:
  acpictl tables /sys/firmware/acpi/tables
  acpictl tables ./dump --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(args)
		},
	}
	return cmd
}

type tableInfo struct {
	File        string `json:"file"`
	Signature   string `json:"signature"`
	Length      uint32 `json:"length"`
	Revision    uint8  `json:"revision"`
	OEMID       string `json:"oem_id"`
	OEMTableID  string `json:"oem_table_id"`
	OEMRevision uint32 `json:"oem_revision"`
	Error       string `json:"error,omitempty"`
}

type platformInfo struct {
	PM1aControl uint16   `json:"pm1a_control,omitempty"`
	PM1bControl uint16   `json:"pm1b_control,omitempty"`
	Processors  int      `json:"processors,omitempty"`
	IOAPICs     int      `json:"io_apics,omitempty"`
	LocalAPIC   uint32   `json:"local_apic,omitempty"`
	ECAM        []string `json:"ecam,omitempty"`
}

type tablesReport struct {
	Tables   []tableInfo   `json:"tables"`
	Platform *platformInfo `json:"platform,omitempty"`
}

func runTables(args []string) error {
	files, err := readTableFiles(args[0])
	if err != nil {
		return err
	}

	var (
		report  tablesReport
		invalid int
	)
	for _, f := range files {
		info := tableInfo{File: f.Name}

		header, kerr := table.DecodeSDTHeader(f.Data)
		if kerr != nil {
			info.Error = kerr.Message
			report.Tables = append(report.Tables, info)
			invalid++
			continue
		}

		info.Signature = header.SignatureString()
		info.Length = header.Length
		info.Revision = header.Revision
		info.OEMID = oemString(header.OEMID[:])
		info.OEMTableID = oemString(header.OEMTableID[:])
		info.OEMRevision = header.OEMRevision

		if _, kerr = acpi.FromTables([][]byte{f.Data}); kerr != nil {
			info.Error = kerr.Message
			invalid++
		}
		report.Tables = append(report.Tables, info)
	}

	if invalid == 0 {
		ts, err := loadTables(args[0])
		if err != nil {
			return err
		}
		report.Platform = summarizePlatform(ts)
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printTablesReport(report)
	}

	if invalid != 0 {
		return fmt.Errorf("%d of %d tables failed validation", invalid, len(files))
	}
	return nil
}

func summarizePlatform(ts *acpi.TableSet) *platformInfo {
	info := &platformInfo{}
	if ts.FADT != nil {
		info.PM1aControl = ts.FADT.PM1aControlPort()
		info.PM1bControl = ts.FADT.PM1bControlPort()
	}

	if apic, err := acpi.FindAPIC(ts); err == nil {
		info.Processors = len(apic.Processors)
		info.IOAPICs = len(apic.IOAPICs)
		info.LocalAPIC = apic.LocalControllerAddress
	} else {
		printVerbose("%s\n", err.Message)
	}

	if ts.MCFG != nil {
		for _, alloc := range ts.MCFG.Allocations {
			info.ECAM = append(info.ECAM, fmt.Sprintf("segment %d bus %02x-%02x at 0x%x",
				alloc.Segment, alloc.StartBus, alloc.EndBus, alloc.BaseAddress))
		}
	}

	return info
}

func printTablesReport(report tablesReport) {
	printInfo("%-10s %-4s %8s %3s  %-6s %-8s %8s\n", "FILE", "SIG", "LENGTH", "REV", "OEM", "TABLE", "OEMREV")
	for _, info := range report.Tables {
		printInfo("%-10s %-4s %8d %3d  %-6s %-8s %8x", info.File, info.Signature, info.Length,
			info.Revision, info.OEMID, info.OEMTableID, info.OEMRevision)
		if info.Error != "" {
			printInfo("  INVALID: %s", info.Error)
		}
		printInfo("\n")
	}

	p := report.Platform
	if p == nil {
		return
	}

	printInfo("\nPM1 control ports: a=0x%x b=0x%x\n", p.PM1aControl, p.PM1bControl)
	if p.Processors != 0 {
		printInfo("APIC: %d processors, %d I/O APICs, local APIC at 0x%x\n", p.Processors, p.IOAPICs, p.LocalAPIC)
	}
	for _, ecam := range p.ECAM {
		printInfo("ECAM: %s\n", ecam)
	}
}
