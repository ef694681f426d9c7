package pmm

import (
	"math/rand"
	"testing"

	"github.com/mwg2202/os/kernel/hal/efi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	const (
		attrA = efi.AttrWriteBack
		attrB = efi.AttrWriteBack | efi.AttrRuntime
	)

	specs := []struct {
		name  string
		descs []efi.MemoryDescriptor
		exp   []FreeExtent
	}{
		{
			name: "empty map",
		},
		{
			name: "contiguous regions with the same attributes merge",
			descs: []efi.MemoryDescriptor{
				{Type: efi.MemConventional, PhysStart: 0x1000, Pages: 1, Attribute: attrA},
				{Type: efi.MemConventional, PhysStart: 0x2000, Pages: 1, Attribute: attrA},
			},
			exp: []FreeExtent{{Base: 0x1000, Pages: 2, Attribute: attrA}},
		},
		{
			name: "contiguous regions with different attributes stay apart",
			descs: []efi.MemoryDescriptor{
				{Type: efi.MemConventional, PhysStart: 0x1000, Pages: 1, Attribute: attrA},
				{Type: efi.MemConventional, PhysStart: 0x2000, Pages: 1, Attribute: attrB},
			},
			exp: []FreeExtent{
				{Base: 0x1000, Pages: 1, Attribute: attrA},
				{Base: 0x2000, Pages: 1, Attribute: attrB},
			},
		},
		{
			name: "gap between regions",
			descs: []efi.MemoryDescriptor{
				{Type: efi.MemConventional, PhysStart: 0x1000, Pages: 1},
				{Type: efi.MemConventional, PhysStart: 0x3000, Pages: 1},
			},
			exp: []FreeExtent{
				{Base: 0x1000, Pages: 1},
				{Base: 0x3000, Pages: 1},
			},
		},
		{
			name: "boot services memory is reclaimed",
			descs: []efi.MemoryDescriptor{
				{Type: efi.MemBootServicesCode, PhysStart: 0x0, Pages: 0x10, Attribute: attrA},
				{Type: efi.MemBootServicesData, PhysStart: 0x10000, Pages: 0x10, Attribute: attrA},
				{Type: efi.MemConventional, PhysStart: 0x20000, Pages: 0x60, Attribute: attrA},
			},
			exp: []FreeExtent{{Base: 0x0, Pages: 0x80, Attribute: attrA}},
		},
		{
			name: "non-reusable regions are dropped and break merges",
			descs: []efi.MemoryDescriptor{
				{Type: efi.MemConventional, PhysStart: 0x0, Pages: 0xa0, Attribute: attrA},
				{Type: efi.MemReserved, PhysStart: 0xa0000, Pages: 0x60, Attribute: attrA},
				{Type: efi.MemLoaderData, PhysStart: 0x100000, Pages: 0x100, Attribute: attrA},
				{Type: efi.MemConventional, PhysStart: 0x200000, Pages: 0x100, Attribute: attrA},
				{Type: efi.MemACPIReclaim, PhysStart: 0x300000, Pages: 0x10, Attribute: attrA},
				{Type: efi.MemRuntimeServicesData, PhysStart: 0x310000, Pages: 0x10, Attribute: attrA},
			},
			exp: []FreeExtent{
				{Base: 0x0, Pages: 0xa0, Attribute: attrA},
				{Base: 0x200000, Pages: 0x100, Attribute: attrA},
			},
		},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			require.Equal(t, spec.exp, Reconcile(spec.descs))
		})
	}
}

// randomMemoryMap builds an ascending memory map with occasional gaps and a
// mix of types and attributes.
func randomMemoryMap(rng *rand.Rand, count int) []efi.MemoryDescriptor {
	types := []efi.MemoryType{
		efi.MemConventional, efi.MemConventional, efi.MemBootServicesCode,
		efi.MemBootServicesData, efi.MemReserved, efi.MemLoaderCode,
		efi.MemACPIReclaim, efi.MemMMIO,
	}
	attrs := []efi.MemoryAttribute{efi.AttrWriteBack, efi.AttrWriteBack | efi.AttrRuntime}

	var (
		descs = make([]efi.MemoryDescriptor, 0, count)
		next  uint64
	)
	for i := 0; i < count; i++ {
		if rng.Intn(4) == 0 {
			next += uint64(rng.Intn(8)+1) * efi.PageSize
		}

		desc := efi.MemoryDescriptor{
			Type:      types[rng.Intn(len(types))],
			PhysStart: next,
			Pages:     uint64(rng.Intn(16) + 1),
			Attribute: attrs[rng.Intn(len(attrs))],
		}
		descs = append(descs, desc)
		next = desc.PhysEnd()
	}

	return descs
}

func TestReconcileProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		descs := randomMemoryMap(rng, rng.Intn(40))
		extents := Reconcile(descs)

		// idempotence
		require.Equal(t, extents, ReconcileExtents(extents), "iteration %d", iter)

		for i := 1; i < len(extents); i++ {
			prev, cur := extents[i-1], extents[i]
			mergeable := prev.End() == cur.Base && prev.Attribute == cur.Attribute
			assert.False(t, mergeable, "iteration %d: extents %d and %d can still be merged", iter, i-1, i)
		}

		var reusablePages, extentPages uint64
		for _, ext := range extents {
			extentPages += ext.Pages
		}

		for _, desc := range descs {
			covered := coveredPages(extents, desc.PhysStart, desc.PhysEnd())
			if desc.Type.Reusable() {
				// coverage
				reusablePages += desc.Pages
				assert.Equal(t, desc.Pages, covered, "iteration %d: reusable region 0x%x", iter, desc.PhysStart)
			} else {
				// exclusion
				assert.Zero(t, covered, "iteration %d: reserved region 0x%x", iter, desc.PhysStart)
			}
		}
		assert.Equal(t, reusablePages, extentPages, "iteration %d", iter)
	}
}

func coveredPages(extents []FreeExtent, start, end uint64) uint64 {
	var covered uint64
	for _, ext := range extents {
		lo, hi := ext.Base, ext.End()
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		if lo < hi {
			covered += (hi - lo) / efi.PageSize
		}
	}

	return covered
}
