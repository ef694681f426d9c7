//go:build unix

package hostio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDevice(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mem")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestMemory(t *testing.T) {
	path := tempDevice(t, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa})

	f, err := Open(path, true)
	require.NoError(t, err)
	defer f.Close()

	mem := Memory{f}

	buf := make([]byte, 3)
	require.Nil(t, mem.ReadPhys(1, buf))
	assert.Equal(t, []byte{0x22, 0x33, 0x44}, buf)

	assert.Equal(t, uint8(0x11), mem.ReadMemory8(0))
	assert.Equal(t, uint16(0x3322), mem.ReadMemory16(1))
	assert.Equal(t, uint32(0x88776655), mem.ReadMemory32(4))
	assert.Equal(t, uint64(0xaa99887766554433), mem.ReadMemory64(2))

	mem.WriteMemory16(0, 0xbeef)
	mem.WriteMemory32(4, 0xcafebabe)
	require.NoError(t, f.Err())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xef, 0xbe, 0x33, 0x44, 0xbe, 0xba, 0xfe, 0xca, 0x99, 0xaa}, data)
}

func TestAccessErrors(t *testing.T) {
	path := tempDevice(t, []byte{0x01, 0x02})

	f, err := Open(path, false)
	require.NoError(t, err)
	defer f.Close()

	mem := Memory{f}
	assert.Equal(t, errPhysRead, mem.ReadPhys(1, make([]byte, 4)))
	require.Error(t, f.Err())
	assert.Contains(t, f.Err().Error(), "read "+path+" at 0x1")

	// only the first error is kept
	Ports{f}.WritePort8(0, 0xff)
	assert.Contains(t, f.Err().Error(), "read ")

	assert.Equal(t, uint32(0xffffffff), Ports{f}.ReadPort32(0))
}

func TestPorts(t *testing.T) {
	path := tempDevice(t, make([]byte, 0x10))

	f, err := Open(path, true)
	require.NoError(t, err)
	defer f.Close()

	ports := Ports{f}
	ports.WritePort16(0x4, 0x3400)
	ports.WritePort8(0x8, 0x7f)
	require.NoError(t, f.Err())

	assert.Equal(t, uint16(0x3400), ports.ReadPort16(0x4))
	assert.Equal(t, uint8(0x34), ports.ReadPort8(0x5))
	assert.Equal(t, uint32(0x7f), ports.ReadPort32(0x8))
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open ")
}
