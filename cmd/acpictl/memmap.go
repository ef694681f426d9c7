package main

import (
	"fmt"
	"os"

	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/hal/efi"
	"github.com/mwg2202/os/kernel/mm"
	"github.com/mwg2202/os/kernel/mm/heap"
	"github.com/mwg2202/os/kernel/mm/pmm"
	"github.com/spf13/cobra"
)

var memmapDescSize uint64

func init() {
	rootCmd.AddCommand(newMemmapCmd())
}

func newMemmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memmap <file>",
		Short: "Decode an EFI memory map dump and reconcile its free extents",
		Long: `The memmap command decodes a raw buffer returned by GetMemoryMap,
prints per-type statistics and the free extents the frame allocator would
reclaim.

Example:
  acpictl memmap memmap.bin
  acpictl memmap memmap.bin --desc-size 40 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemmap(args)
		},
	}

	cmd.Flags().Uint64Var(&memmapDescSize, "desc-size", 48, "Descriptor stride reported by the firmware")
	return cmd
}

type memmapDescriptor struct {
	Type      string `json:"type"`
	PhysStart uint64 `json:"phys_start"`
	Pages     uint64 `json:"pages"`
	Attribute uint64 `json:"attribute"`
}

type memmapStat struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Pages uint64 `json:"pages"`
}

type memmapReport struct {
	Descriptors    []memmapDescriptor `json:"descriptors"`
	Stats          []memmapStat       `json:"stats"`
	Extents        []pmm.FreeExtent   `json:"extents"`
	FreeBytes      uint64             `json:"free_bytes"`
	Frames         uint64             `json:"frames"`
	BootstrapFrame uint64             `json:"bootstrap_frame"`
}

func runMemmap(args []string) error {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	descs, kerr := efi.DecodeMemoryMap(buf, memmapDescSize)
	if kerr != nil {
		return fmt.Errorf("failed to decode memory map: %s", kerr.Message)
	}
	printVerbose("Decoded %d descriptors\n", len(descs))

	report := memmapReport{Extents: pmm.Reconcile(descs)}
	for _, desc := range descs {
		report.Descriptors = append(report.Descriptors, memmapDescriptor{
			Type:      desc.Type.String(),
			PhysStart: desc.PhysStart,
			Pages:     desc.Pages,
			Attribute: uint64(desc.Attribute),
		})
	}
	for _, stat := range efi.CountByType(descs) {
		if stat.Count != 0 {
			report.Stats = append(report.Stats, memmapStat{Type: stat.Type.String(), Count: stat.Count, Pages: stat.Pages})
		}
	}
	for _, ext := range report.Extents {
		report.FreeBytes += ext.Pages * mm.PageSize
	}

	// run the extents through a frame allocator to report what the boot
	// core would end up with
	var frames *pmm.FrameAllocator
	regions := heap.NewRegionAllocator(func() (mm.Frame, *kernel.Error) { return frames.AllocFrame() }, kernelLog())
	frames, kerr = pmm.Init(descs, regions.Seed, verbose, kernelLog())
	if kerr != nil {
		return fmt.Errorf("failed to reclaim frames: %s", kerr.Message)
	}
	report.Frames, _ = frames.FrameCount()
	if seed := regions.FreeRegions(); len(seed) != 0 {
		report.BootstrapFrame = seed[0].Start
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("Memory map (%d descriptors):\n", len(report.Descriptors))
	for _, desc := range report.Descriptors {
		printInfo("  [0x%010x - 0x%010x] %8d pages  %-22s attr 0x%x\n",
			desc.PhysStart, desc.PhysStart+desc.Pages*efi.PageSize, desc.Pages, desc.Type, desc.Attribute)
	}

	printInfo("\nBy type:\n")
	for _, stat := range report.Stats {
		printInfo("  %-22s %4d regions %10d pages\n", stat.Type, stat.Count, stat.Pages)
	}

	printInfo("\nFree extents (%d):\n", len(report.Extents))
	for _, ext := range report.Extents {
		printInfo("  [0x%010x - 0x%010x] %8d pages  attr 0x%x\n", ext.Base, ext.End(), ext.Pages, uint64(ext.Attribute))
	}

	printInfo("\nAvailable memory: %d KiB\n", report.FreeBytes/1024)
	printInfo("Allocatable frames: %d (bootstrap frame 0x%x)\n", report.Frames, report.BootstrapFrame)
	return nil
}
