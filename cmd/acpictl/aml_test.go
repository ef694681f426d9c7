package main

import (
	"testing"

	"github.com/mwg2202/os/device/acpi/aml/amltest"
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNamespaceDir(t *testing.T) string {
	t.Helper()

	return writeTableDir(t, testTables(
		amltest.Name(`\_S3`, amltest.Package(amltest.Int(3))),
		amltest.Name(`\_S5`, amltest.Package(amltest.Int(5), amltest.Int(5))),
		amltest.Name("STR0", amltest.String("gopher")),
		amltest.Name("BUF0", amltest.Buffer(2, 0xde, 0xad)),
		amltest.Device(`\_SB.DEV0`),
		amltest.Method("ADD1", 1, amltest.Return(amltest.Op(entity.OpAdd, amltest.Arg(0), amltest.Int(1), amltest.Null()))),
		amltest.Method("FAIL", 0, amltest.Return(amltest.Op(entity.OpDivide, amltest.Int(1), amltest.Int(0), amltest.Null(), amltest.Null()))),
	))
}

func TestAMLCommand(t *testing.T) {
	dir := testNamespaceDir(t)

	t.Run("sleep objects", func(t *testing.T) {
		resetFlags()

		output, err := captureOutput(t, func() error { return runAML([]string{dir}) })
		require.NoError(t, err)
		assert.Equal(t, "\\_S3_ = Package {0x3}\n\\_S5_ = Package {0x5, 0x5}\n", output)
	})

	t.Run("paths", func(t *testing.T) {
		resetFlags()
		amlArgs = []string{"0x10"}

		output, err := captureOutput(t, func() error {
			return runAML([]string{dir, `\ADD1`, `\STR0`, `\BUF0`, `\_SB.DEV0`, `\NONE`})
		})
		require.NoError(t, err)

		assert.Contains(t, output, "\\ADD1 = 0x11\n")
		assert.Contains(t, output, "\\STR0 = \"gopher\"\n")
		assert.Contains(t, output, "\\BUF0 = Buffer {0xde, 0xad}\n")
		assert.Contains(t, output, "\\_SB.DEV0: Device\n")
		assert.Contains(t, output, "\\NONE: object not found in the AML namespace\n")
	})

	t.Run("execution error", func(t *testing.T) {
		resetFlags()

		output, err := captureOutput(t, func() error { return runAML([]string{dir, `\FAIL`}) })
		require.NoError(t, err)
		assert.Equal(t, "\\FAIL: [acpi_aml_vm] division by zero\n  in \\FAIL (Return)\n", output)
	})

	t.Run("json", func(t *testing.T) {
		resetFlags()
		jsonOut = true

		output, err := captureOutput(t, func() error { return runAML([]string{dir, `\_S5`}) })
		require.NoError(t, err)

		var results []amlResult
		assertJSON(t, output, &results)
		require.Len(t, results, 1)
		assert.Equal(t, "Name", results[0].Kind)
		assert.Equal(t, []interface{}{float64(5), float64(5)}, results[0].Value)
	})
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, []interface{}{uint64(16), uint64(7), "Windows 2015"}, parseArgs([]string{"0x10", "7", "Windows 2015"}))
	assert.Empty(t, parseArgs(nil))
}

func TestFormatValue(t *testing.T) {
	specs := []struct {
		in  interface{}
		exp string
	}{
		{uint64(0xff), "0xff"},
		{"a\"b", `"a\"b"`},
		{[]byte{1, 0x20}, "Buffer {0x01, 0x20}"},
		{[]interface{}{uint64(1), "x", []interface{}{}}, `Package {0x1, "x", Package {}}`},
		{nil, "Uninitialized"},
	}

	for _, spec := range specs {
		assert.Equal(t, spec.exp, formatValue(spec.in))
	}
}
