package parser

import (
	"bytes"
	"testing"

	"github.com/mwg2202/os/device/acpi/aml/amltest"
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot() *entity.Scope {
	root := entity.NewScope(entity.OpRoot, 0, `\`)
	root.Append(entity.NewScope(entity.OpScope, 0, "_SB_"))
	return root
}

func lookup(t *testing.T, root entity.Container, path string) entity.Entity {
	t.Helper()
	ent := entity.FindInScope(root, root, path)
	require.NotNil(t, ent, "lookup %s", path)
	return ent
}

func TestParseNamespace(t *testing.T) {
	staBody := amltest.Return(amltest.Int(0x0f))
	dsdt := amltest.Table("DSDT", 2,
		amltest.Scope(`\_SB`,
			amltest.Device("PCI0",
				amltest.Name("_ADR", amltest.Int(0)),
				amltest.Method("_STA", 0, staBody),
				amltest.Region("GPIO", entity.RegionSpaceSystemIO, 0x400, 0x10),
				amltest.Field("GPIO", 0x01,
					amltest.FieldUnit{Name: "CTRL", Bits: 16},
					amltest.FieldUnit{Bits: 8},
					amltest.FieldUnit{Name: "STAT", Bits: 8},
				),
			),
		),
		amltest.Name(`\_S5`, amltest.Package(amltest.Int(5), amltest.Int(5), amltest.Int(0), amltest.Ref(`\_SB.PCI0._ADR`))),
		amltest.Mutex("MTX0", 3),
		amltest.Op(entity.OpEvent, amltest.NameString("EVT0")),
		amltest.Op(entity.OpAlias, amltest.NameString(`\_S5`), amltest.NameString("S5AL")),
		amltest.Op(entity.OpExternal, amltest.NameString(`\_SB.EXT0`), []byte{8, 2}),
		amltest.PkgOp(entity.OpProcessor, amltest.NameString("CPU0"), []byte{1, 0x10, 0x04, 0, 0, 6}),
		amltest.PkgOp(entity.OpPowerRes, amltest.NameString("PWR0"), []byte{0, 1, 0}),
		amltest.Name("BUF0", amltest.Buffer(8, 1, 2, 3)),
		amltest.Name("STR0", amltest.String("gopher")),
		amltest.Name("BIG0", amltest.Int(0x123456789a)),
	)

	var errBuf bytes.Buffer
	root := newRoot()
	p := NewParser(&errBuf, root)
	require.Nil(t, p.ParseAML(1, "DSDT", dsdt), errBuf.String())

	pci := lookup(t, root, `\_SB_.PCI0`)
	assert.Equal(t, entity.OpDevice, pci.Opcode())
	assert.Equal(t, uint8(1), pci.TableHandle())

	adr := lookup(t, root, `\_SB_.PCI0._ADR`).(*entity.Name)
	assert.Equal(t, uint64(0), adr.Value)

	sta := lookup(t, root, `\_SB_.PCI0._STA`).(*entity.Method)
	assert.Equal(t, uint8(0), sta.ArgCount)
	assert.False(t, sta.BodyParsed)
	assert.Equal(t, staBody, sta.Body)
	assert.Equal(t, staBody, dsdt[sta.BodyOffset:sta.BodyOffset+uint32(len(staBody))])

	region := lookup(t, root, `\_SB_.PCI0.GPIO`).(*entity.Region)
	assert.Equal(t, entity.RegionSpaceSystemIO, region.Space)
	assert.Equal(t, uint64(0x400), region.Offset)
	assert.Equal(t, uint64(0x10), region.Len)

	ctrl := lookup(t, root, `\_SB_.PCI0.CTRL`).(*entity.FieldUnit)
	assert.Equal(t, "GPIO", ctrl.Field.RegionName)
	assert.Equal(t, uint32(0), ctrl.BitOffset)
	assert.Equal(t, uint32(16), ctrl.BitWidth)
	assert.Equal(t, entity.FieldAccessTypeByte, ctrl.AccessType)

	stat := lookup(t, root, `\_SB_.PCI0.STAT`).(*entity.FieldUnit)
	assert.Equal(t, uint32(24), stat.BitOffset)
	assert.Equal(t, uint32(8), stat.BitWidth)
	assert.Equal(t, ctrl.Field, stat.Field)

	s5 := lookup(t, root, `\_S5_`).(*entity.Name)
	pkg, ok := s5.Value.(*entity.Package)
	require.True(t, ok)
	assert.Equal(t, uint64(4), pkg.NumElements)
	require.Len(t, pkg.Elements, 4)
	assert.Equal(t, uint64(5), pkg.Elements[0])
	ref, ok := pkg.Elements[3].(*entity.Reference)
	require.True(t, ok)
	assert.Equal(t, `\_SB_.PCI0._ADR`, ref.Target)

	mtx := lookup(t, root, "MTX0").(*entity.Mutex)
	assert.Equal(t, uint8(3), mtx.SyncLevel)
	assert.Equal(t, entity.OpEvent, lookup(t, root, "EVT0").Opcode())
	assert.Equal(t, `\_S5_`, lookup(t, root, "S5AL").(*entity.Alias).Target)
	assert.Nil(t, entity.FindInScope(root, root, `\_SB_.EXT0`))

	cpu := lookup(t, root, "CPU0").(*entity.Processor)
	assert.Equal(t, uint8(1), cpu.ID)
	assert.Equal(t, uint32(0x410), cpu.BlockAddr)
	assert.Equal(t, uint8(6), cpu.BlockLen)

	pwr := lookup(t, root, "PWR0").(*entity.PowerResource)
	assert.Equal(t, uint8(0), pwr.SystemLevel)
	assert.Equal(t, uint16(1), pwr.ResourceOrder)

	buf := lookup(t, root, "BUF0").(*entity.Name).Value.(*entity.Buffer)
	assert.Equal(t, uint64(8), buf.Size)
	assert.Equal(t, []byte{1, 2, 3}, buf.Data)

	assert.Equal(t, "gopher", lookup(t, root, "STR0").(*entity.Name).Value)
	assert.Equal(t, uint64(0x123456789a), lookup(t, root, "BIG0").(*entity.Name).Value)
	assert.Empty(t, errBuf.String())
}

func TestParseMethodBodies(t *testing.T) {
	dsdt := amltest.Table("DSDT", 2,
		amltest.Method("MAIN", 1,
			amltest.Store(amltest.Int(0), amltest.Local(0)),
			amltest.While(amltest.Op(entity.OpLLess, amltest.Local(0), amltest.Arg(0)),
				amltest.Op(entity.OpIncrement, amltest.Local(0)),
			),
			amltest.If(amltest.Op(entity.OpLEqual, amltest.Local(0), amltest.Int(3)),
				amltest.Name("TMP", amltest.Int(7)),
				amltest.Return(amltest.Call(`\_SB.HELP`, amltest.Local(0), amltest.Ref("TMP"))),
			),
			amltest.Else(amltest.Return(amltest.Int(^uint64(0)))),
		),
	)

	// HELP is defined by a table that is loaded after the caller
	ssdt := amltest.Table("SSDT", 2,
		amltest.Method(`\_SB.HELP`, 2,
			amltest.Return(amltest.Op(entity.OpAdd, amltest.Arg(0), amltest.Arg(1), amltest.Null())),
		),
	)

	var errBuf bytes.Buffer
	root := newRoot()
	p := NewParser(&errBuf, root)
	require.Nil(t, p.ParseAML(1, "DSDT", dsdt))
	require.Nil(t, p.ParseAML(2, "SSDT", ssdt))
	require.Equal(t, 0, p.ParseMethodBodies(), errBuf.String())

	help := lookup(t, root, `\_SB_.HELP`).(*entity.Method)
	require.True(t, help.BodyParsed)
	require.Len(t, help.Children(), 1)
	add := help.Children()[0].(*entity.Generic).Args[0].(*entity.Generic)
	assert.Equal(t, entity.OpAdd, add.Opcode())
	assert.Equal(t, entity.OpArg0, add.Args[0].(*entity.Generic).Opcode())
	assert.Nil(t, add.Args[2])

	main := lookup(t, root, "MAIN").(*entity.Method)
	require.True(t, main.BodyParsed)
	stmts := main.Children()
	require.Len(t, stmts, 3)

	store := stmts[0].(*entity.Generic)
	assert.Equal(t, entity.OpStore, store.Opcode())
	assert.Equal(t, uint64(0), store.Args[0])
	assert.Equal(t, entity.OpLocal0, store.Args[1].(*entity.Generic).Opcode())

	while := stmts[1].(*entity.Generic)
	assert.Equal(t, entity.OpWhile, while.Opcode())
	assert.Equal(t, entity.OpLLess, while.Args[0].(*entity.Generic).Opcode())
	whileBody := while.Args[1].(*entity.Scope)
	require.Len(t, whileBody.Children(), 1)
	assert.Equal(t, entity.OpIncrement, whileBody.Children()[0].Opcode())

	ifStmt := stmts[2].(*entity.Generic)
	require.Len(t, ifStmt.Args, 3)
	thenBody := ifStmt.Args[1].(*entity.Scope)
	require.Len(t, thenBody.Children(), 2)
	assert.Equal(t, "TMP_", thenBody.Children()[0].Name())

	call := thenBody.Children()[1].(*entity.Generic).Args[0].(*entity.Invocation)
	assert.Equal(t, help, call.Method)
	require.Len(t, call.Args, 2)
	tmpRef := call.Args[1].(*entity.Reference)
	assert.Equal(t, "TMP_", tmpRef.Target)
	assert.Equal(t, thenBody.Children()[0], entity.FindInScope(tmpRef.Scope, root, tmpRef.Target))

	elseBody := ifStmt.Args[2].(*entity.Scope)
	assert.Equal(t, entity.OpElse, elseBody.Opcode())
	assert.Equal(t, ^uint64(0), elseBody.Children()[0].(*entity.Generic).Args[0])

	// bodies are only parsed once
	assert.Equal(t, 0, p.ParseMethodBodies())
	assert.Len(t, main.Children(), 3)
}

func TestParseMethodBodyFailure(t *testing.T) {
	dsdt := amltest.Table("DSDT", 2,
		amltest.Method("BAD", 0,
			amltest.Store(amltest.Int(1), amltest.Local(0)),
			[]byte{0xcc},
		),
		amltest.Method("GOOD", 0, amltest.Return(amltest.Int(1))),
	)

	var errBuf bytes.Buffer
	root := newRoot()
	p := NewParser(&errBuf, root)
	require.Nil(t, p.ParseAML(1, "DSDT", dsdt))
	require.Equal(t, 1, p.ParseMethodBodies())

	bad := lookup(t, root, "BAD_").(*entity.Method)
	assert.False(t, bad.BodyParsed)
	assert.Empty(t, bad.Children())
	assert.Contains(t, errBuf.String(), `could not parse body of method \BAD_`)
	assert.Contains(t, errBuf.String(), "unsupported opcode: 0xcc")

	assert.True(t, lookup(t, root, "GOOD").(*entity.Method).BodyParsed)
}

func TestParseErrors(t *testing.T) {
	specs := []struct {
		descr  string
		data   []byte
		expLog string
	}{
		{"truncated header", []byte("DSDT"), "definition block is truncated"},
		{"unsupported opcode", amltest.Table("DSDT", 2, []byte{0xcc}), "unsupported opcode"},
		{
			"package length past end of stream",
			amltest.Table("DSDT", 2, []byte{byte(entity.OpScope), 0x20, '_', 'S', 'B', '_'}),
			"exceeds the stream bounds",
		},
		{"undefined scope", amltest.Table("DSDT", 2, amltest.Scope(`\FOO`)), "undefined scope"},
		{
			"scope is not a container",
			amltest.Table("DSDT", 2, amltest.Name("FOO", amltest.Int(1)), amltest.Scope("FOO")),
			"undefined scope",
		},
		{"else without if", amltest.Table("DSDT", 2, amltest.Else()), "without a matching if block"},
		{"bad name segment", amltest.Table("DSDT", 2, amltest.Op(entity.OpName, []byte("1ABC"), amltest.Int(1))), "error parsing"},
		{"missing parent", amltest.Table("DSDT", 2, amltest.Name(`\_XX.FOO`, amltest.Int(1))), "undefined scope target"},
		{
			"connect field",
			amltest.Table("DSDT", 2,
				amltest.Region("REG0", entity.RegionSpaceSystemMemory, 0, 4),
				amltest.PkgOp(entity.OpField, amltest.NameString("REG0"), []byte{0x01, 0x02, 0x01}),
			),
			"connection fields are not supported",
		},
		{"truncated name", amltest.Table("DSDT", 2, []byte{byte(entity.OpName), 'F', 'O'}), "error parsing"},
		{"unterminated string", amltest.Table("DSDT", 2, amltest.Name("STR", []byte{byte(entity.OpStringPrefix), 'a'})), "error parsing"},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			var errBuf bytes.Buffer
			p := NewParser(&errBuf, newRoot())
			assert.Equal(t, errParsingAML, p.ParseAML(1, "DSDT", spec.data))
			assert.Contains(t, errBuf.String(), spec.expLog)
		})
	}
}

func TestParseIndexField(t *testing.T) {
	dsdt := amltest.Table("DSDT", 2,
		amltest.Region("CMOS", entity.RegionSpaceSystemIO, 0x70, 2),
		amltest.Field("CMOS", 0x01, amltest.FieldUnit{Name: "IDX", Bits: 8}, amltest.FieldUnit{Name: "DAT", Bits: 8}),
		amltest.IndexField("IDX", "DAT", 0x01,
			amltest.FieldUnit{Bits: 0x10 * 8},
			amltest.FieldUnit{Name: "SECS", Bits: 8},
			amltest.FieldUnit{Name: "WIDE", Bits: 0x123},
		),
	)

	root := newRoot()
	p := NewParser(nil, root)
	require.Nil(t, p.ParseAML(1, "DSDT", dsdt))

	secs := lookup(t, root, "SECS").(*entity.FieldUnit)
	assert.Equal(t, entity.OpIndexField, secs.Field.Opcode())
	assert.Equal(t, "IDX_", secs.Field.IndexName)
	assert.Equal(t, "DAT_", secs.Field.DataName)
	assert.Equal(t, uint32(0x80), secs.BitOffset)

	wide := lookup(t, root, "WIDE").(*entity.FieldUnit)
	assert.Equal(t, uint32(0x88), wide.BitOffset)
	assert.Equal(t, uint32(0x123), wide.BitWidth)
}

func TestParsePkgLength(t *testing.T) {
	specs := []struct {
		in     []byte
		exp    uint32
		expErr bool
	}{
		{[]byte{0x3f}, 0x3f, false},
		{[]byte{0x4a, 0x12}, 0x12a, false},
		{[]byte{0x85, 0x34, 0x12}, 0x12345, false},
		{[]byte{0xc1, 0x00, 0x00, 0x10}, 0x1000001, false},
		{[]byte{0x41}, 0, true},
		{nil, 0, true},
	}

	p := NewParser(nil, newRoot())
	for specIndex, spec := range specs {
		p.r.Init(spec.in, 0)
		got, ok := p.parsePkgLength()
		assert.Equal(t, !spec.expErr, ok, "spec %d", specIndex)
		assert.Equal(t, spec.exp, got, "spec %d", specIndex)
	}

	// every encoding produced by the assembler decodes to the payload
	// length plus the size of the encoding itself
	for _, payloadLen := range []int{0, 10, 62, 63, 100, 4090, 5000, 70000, 1 << 21} {
		enc := amltest.PkgLength(payloadLen)
		p.r.Init(enc, 0)
		got, ok := p.parsePkgLength()
		require.True(t, ok)
		assert.Equal(t, uint32(payloadLen+len(enc)), got, "payload length %d", payloadLen)
	}
}

func TestParseNameString(t *testing.T) {
	specs := []struct {
		in     []byte
		exp    string
		expErr bool
	}{
		{amltest.NameString(`\`), `\`, false},
		{amltest.NameString(`\_SB.PCI0`), `\_SB_.PCI0`, false},
		{amltest.NameString(`^^FOO`), `^^FOO_`, false},
		{amltest.NameString(`A.B.C`), `A___.B___.C___`, false},
		{amltest.NameString(`\_SB.PCI0.LPCB.EC0`), `\_SB_.PCI0.LPCB.EC0_`, false},
		{[]byte{0x00}, "", true},
		{[]byte{0x2f, 0x00}, "", true},
		{[]byte{'_', 'S', 'B'}, "", true},
		{[]byte{'_', 's', 'b', '_'}, "", true},
		{[]byte{'^', '^'}, "", true},
	}

	p := NewParser(nil, newRoot())
	for specIndex, spec := range specs {
		p.r.Init(spec.in, 0)
		got, ok := p.parseNameString()
		assert.Equal(t, !spec.expErr, ok, "spec %d", specIndex)
		assert.Equal(t, spec.exp, got, "spec %d", specIndex)
	}
}
