package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwg2202/os/device/acpi/acpitest"
	"github.com/mwg2202/os/device/acpi/aml/amltest"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default value.
func resetFlags() {
	verbose = false
	jsonOut = false
	devMem = false
	memmapDescSize = 48
	amlArgs = nil
	sleepMode = "aml"
	sleepDryRun = true
}

// captureOutput runs fn with stdout redirected to a buffer.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	origStdout := stdout
	stdout = &buf
	defer func() { stdout = origStdout }()

	err := fn()
	return buf.String(), err
}

// assertJSON checks that output is valid JSON and decodes it into v.
func assertJSON(t *testing.T, output string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), output)
}

// writeTableDir writes each table to a file named after its key and returns
// the directory.
func writeTableDir(t *testing.T, tables map[string][]byte) string {
	t.Helper()

	dir := t.TempDir()
	for name, data := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}

	// sysfs exposes these as directories
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dynamic"), 0o700))
	return dir
}

// testTables returns a FADT with a PM1a control block at 0x604, an MCFG and
// a DSDT with the supplied body.
func testTables(dsdt ...[]byte) map[string][]byte {
	fadt := &table.FADT{
		SDTHeader:        acpitest.Header(table.SignatureFADT, 4),
		PM1aControlBlock: 0x604,
	}
	mcfg := &table.MCFG{
		SDTHeader:   acpitest.Header(table.SignatureMCFG, 1),
		Allocations: []table.MCFGAllocation{{BaseAddress: 0xe0000000, StartBus: 0, EndBus: 0xff}},
	}

	return map[string][]byte{
		"FACP": fadt.Encode(),
		"MCFG": mcfg.Encode(),
		"DSDT": amltest.Table(table.SignatureDSDT, 2, dsdt...),
	}
}
