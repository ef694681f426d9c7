package power

import (
	"bytes"
	"testing"

	"github.com/mwg2202/os/device/acpi"
	"github.com/mwg2202/os/device/acpi/aml"
	"github.com/mwg2202/os/device/acpi/aml/amltest"
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/device/hwio"
	"github.com/mwg2202/os/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pm1aPort = 0x604
	pm1bPort = 0x608
)

func newNamespace(t *testing.T, rec *hwio.Recorder, body ...[]byte) *aml.Context {
	t.Helper()

	ctx := aml.NewContext(aml.Handlers{MemoryHandler: rec, PortHandler: rec}, nil)
	dsdt := amltest.Block(amltest.Table("DSDT", 2, body...))
	require.Nil(t, ctx.Init([]*acpi.Table{dsdt}))
	return ctx
}

func TestRegisterMode(t *testing.T) {
	rec := hwio.NewRecorder(nil)
	var buf bytes.Buffer
	ctrl := NewController(&table.FADT{PM1aControlBlock: pm1aPort}, nil, rec, &buf)

	require.Nil(t, ctrl.EnterSleepState(5, ModeRegister))
	assert.Equal(t, []hwio.PortWrite{{Port: pm1aPort, Width: 2, Value: 0x3400}}, rec.PortWrites())
	assert.Contains(t, buf.String(), "[acpi_power] entering S5 (SLP_TYPa: 0x5, SLP_TYPb: 0x5)")
}

func TestAMLMode(t *testing.T) {
	rec := hwio.NewRecorder(nil)
	ns := newNamespace(t, rec,
		amltest.Name(`\_S5`, amltest.Package(amltest.Int(7), amltest.Int(3), amltest.Int(0), amltest.Int(0))),
		amltest.Name("TTSV", amltest.Int(0)),
		amltest.Name("PTSV", amltest.Int(0)),
		amltest.Method("_TTS", 1, amltest.Store(amltest.Arg(0), amltest.Ref("TTSV"))),
		amltest.Method("_PTS", 1,
			amltest.Store(
				amltest.Op(entity.OpAdd,
					amltest.Op(entity.OpMultiply, amltest.Ref("TTSV"), amltest.Int(0x10), amltest.Null()),
					amltest.Arg(0),
					amltest.Null(),
				),
				amltest.Ref("PTSV"),
			),
		),
	)

	fadt := &table.FADT{PM1aControlBlock: pm1aPort, PM1bControlBlock: pm1bPort}
	ctrl := NewController(fadt, ns, rec, nil)

	require.Nil(t, ctrl.EnterSleepState(5, ModeAML))
	assert.Equal(t, []hwio.PortWrite{
		{Port: pm1aPort, Width: 2, Value: 0x3c00},
		{Port: pm1bPort, Width: 2, Value: 0x2c00},
	}, rec.PortWrites())

	// _TTS runs before _PTS
	res, err := ns.Invoke(`\PTSV`)
	require.Nil(t, err)
	assert.Equal(t, uint64(0x55), res)
}

func TestAMLModePrepareFailure(t *testing.T) {
	rec := hwio.NewRecorder(nil)
	ns := newNamespace(t, rec,
		amltest.Name(`\_S5`, amltest.Package(amltest.Int(5))),
		amltest.Method("_PTS", 1, amltest.Return(amltest.Op(entity.OpDivide, amltest.Arg(0), amltest.Int(0), amltest.Null(), amltest.Null()))),
	)

	var buf bytes.Buffer
	ctrl := NewController(&table.FADT{PM1aControlBlock: pm1aPort}, ns, rec, &buf)

	require.Nil(t, ctrl.EnterSleepState(5, ModeAML))
	assert.Equal(t, []hwio.PortWrite{{Port: pm1aPort, Width: 2, Value: 0x3400}}, rec.PortWrites())
	assert.Contains(t, buf.String(), `\_PTS(5) failed: [acpi_aml_vm] division by zero`)
}

func TestEnterSleepStateErrors(t *testing.T) {
	fadt := &table.FADT{PM1aControlBlock: pm1aPort}
	uninitialized := aml.NewContext(nil, nil)
	withoutS3 := newNamespace(t, hwio.NewRecorder(nil), amltest.Name(`\_S5`, amltest.Package(amltest.Int(5))))
	badS4 := newNamespace(t, hwio.NewRecorder(nil), amltest.Name(`\_S4`, amltest.Int(4)))

	specs := []struct {
		fadt  *table.FADT
		ns    Namespace
		state uint8
		flags Flag
		exp   *kernel.Error
	}{
		{fadt, nil, 6, ModeRegister, errInvalidSleepState},
		{nil, nil, 5, ModeRegister, ErrNoFADT},
		{&table.FADT{}, nil, 5, ModeRegister, errNoPM1aControl},
		{fadt, nil, 5, ModeAML, ErrNoAMLContext},
		{fadt, uninitialized, 5, ModeAML, ErrNoAMLContext},
		{fadt, withoutS3, 3, ModeAML, aml.ErrObjectNotFound},
		{fadt, badS4, 4, ModeAML, errInvalidSleepObject},
		{fadt, badS4, 4, ModeAML | FlagFallback, errInvalidSleepObject},
	}

	for specIndex, spec := range specs {
		rec := hwio.NewRecorder(nil)
		ctrl := NewController(spec.fadt, spec.ns, rec, nil)

		assert.Equal(t, spec.exp, ctrl.EnterSleepState(spec.state, spec.flags), "spec %d", specIndex)
		assert.Empty(t, rec.PortWrites(), "spec %d", specIndex)
	}
}

func TestFallbackToRegisterMode(t *testing.T) {
	specs := []struct {
		ns    Namespace
		state uint8
	}{
		{nil, 5},
		{newNamespace(t, hwio.NewRecorder(nil)), 5},
	}

	for specIndex, spec := range specs {
		rec := hwio.NewRecorder(nil)
		var buf bytes.Buffer
		ctrl := NewController(&table.FADT{PM1aControlBlock: pm1aPort}, spec.ns, rec, &buf)

		require.Nil(t, ctrl.EnterSleepState(spec.state, ModeAML|FlagFallback), "spec %d", specIndex)
		assert.Equal(t, []hwio.PortWrite{{Port: pm1aPort, Width: 2, Value: 0x3400}}, rec.PortWrites(), "spec %d", specIndex)
		assert.Contains(t, buf.String(), "writing sleep type 5 directly", "spec %d", specIndex)
	}
}

func TestSleepObjectPath(t *testing.T) {
	assert.Equal(t, `\_S0_`, SleepObjectPath(0))
	assert.Equal(t, `\_S5_`, SleepObjectPath(5))
}
