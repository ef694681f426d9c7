package main

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/mwg2202/os/device/acpi"
	"github.com/mwg2202/os/device/acpi/aml"
	"github.com/mwg2202/os/device/hwio"
	"github.com/mwg2202/os/device/pci"
	"github.com/mwg2202/os/internal/hostio"
	"golang.org/x/text/encoding/charmap"
)

type tableFile struct {
	Name string
	Data []byte
}

// readTableFiles reads every regular file in dir in name order.
// Subdirectories such as the sysfs "dynamic" and "data" entries are skipped.
func readTableFiles(dir string) ([]tableFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var files []tableFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read table: %w", err)
		}

		printVerbose("Loaded %s (%d bytes)\n", entry.Name(), len(data))
		files = append(files, tableFile{Name: entry.Name(), Data: data})
	}

	return files, nil
}

// loadTables validates the tables in dir and collects them into a TableSet.
func loadTables(dir string) (*acpi.TableSet, error) {
	files, err := readTableFiles(dir)
	if err != nil {
		return nil, err
	}

	raw := make([][]byte, len(files))
	for i, f := range files {
		raw[i] = f.Data
	}

	ts, kerr := acpi.FromTables(raw)
	if kerr != nil {
		return nil, fmt.Errorf("invalid table set: %s", kerr.Message)
	}

	return ts, nil
}

// namespace bundles an initialized AML context with the accessors backing
// its operation regions.
type namespace struct {
	ctx *aml.Context
	rec *hwio.Recorder
	mem *hostio.File
}

func (ns *namespace) Close() {
	if ns.mem != nil {
		if err := ns.mem.Err(); err != nil {
			printVerbose("Warning: %v\n", err)
		}
		ns.mem.Close()
	}
}

// loadNamespace builds the AML namespace out of the definition blocks in ts.
// Port accesses always go to a recorder; memory accesses go to /dev/mem when
// --dev-mem is set.
func loadNamespace(ts *acpi.TableSet) (*namespace, error) {
	ns := &namespace{rec: hwio.NewRecorder(nil)}

	var mem aml.MemoryHandler = ns.rec
	if devMem {
		f, err := hostio.Open(hostio.DevMem, false)
		if err != nil {
			return nil, err
		}
		ns.mem = f
		mem = hostio.Memory{File: f}
	}

	cfg := pci.NewConfigSpace(pci.NewECAMLocator(ts.MCFG), mem, ns.rec)
	ns.ctx = aml.NewContext(aml.Handlers{MemoryHandler: mem, PortHandler: ns.rec, PCIHandler: cfg}, kernelLog())

	if err := ns.ctx.Init(ts.DefinitionBlocks()); err != nil {
		ns.Close()
		return nil, fmt.Errorf("failed to build AML namespace: %s", err.Message)
	}

	return ns, nil
}

// oemString decodes a fixed-size OEM field. Firmware pads these with spaces
// or NULs; fields that are not valid UTF-8 are decoded as Windows-1252.
func oemString(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || b[end-1] == ' ') {
		end--
	}

	if utf8.Valid(b[:end]) {
		return string(b[:end])
	}

	s, err := charmap.Windows1252.NewDecoder().Bytes(b[:end])
	if err != nil {
		return string(b[:end])
	}
	return string(s)
}
