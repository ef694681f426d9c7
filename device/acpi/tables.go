package acpi

import (
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/kernel"
)

// Table is a validated copy of an ACPI table.
type Table struct {
	Header *table.SDTHeader

	// Addr is the physical address of the table or 0 for tables that were
	// not loaded from physical memory.
	Addr uint64

	// Data holds the entire table including its header.
	Data []byte
}

// TableSet holds the tables reachable from the root pointer.
type TableSet struct {
	// RSDP is nil for table sets built by FromTables.
	RSDP *table.RSDP

	// RejectedRSDP is the validation error of the ACPI 2.0+ root pointer
	// when Locate fell back to the ACPI 1.0 one.
	RejectedRSDP *kernel.Error

	// Root is the RSDT or XSDT.
	Root *Table

	FADT  *table.FADT
	DSDT  *Table
	SSDTs []*Table
	MADT  *table.MADT
	MCFG  *table.MCFG

	// tables lists every table except Root in discovery order.
	tables []*Table
}

// FromTables builds a TableSet out of a list of raw tables, e.g. the
// contents of /sys/firmware/acpi/tables. Each table is validated as if it
// had been reached through the root pointer.
func FromTables(raw [][]byte) (*TableSet, *kernel.Error) {
	ts := &TableSet{}
	for _, data := range raw {
		header, err := table.DecodeSDTHeader(data)
		if err != nil {
			return nil, ErrTableTruncated
		}

		tbl := &Table{Header: header, Data: data}
		if err = validateTable(tbl, ""); err != nil {
			return nil, err
		}

		switch header.SignatureString() {
		case table.SignatureRSDT, table.SignatureXSDT:
			ts.Root = tbl
			continue
		}

		if err = ts.add(tbl); err != nil {
			return nil, err
		}
	}

	return ts, nil
}

// add records a validated table and decodes the tables the boot core
// consumes.
func (ts *TableSet) add(tbl *Table) *kernel.Error {
	var err *kernel.Error

	switch tbl.Header.SignatureString() {
	case table.SignatureFADT:
		ts.FADT, err = table.DecodeFADT(tbl.Data)
	case table.SignatureDSDT:
		ts.DSDT = tbl
	case table.SignatureSSDT:
		ts.SSDTs = append(ts.SSDTs, tbl)
	case table.SignatureMADT:
		ts.MADT, err = table.DecodeMADT(tbl.Data)
	case table.SignatureMCFG:
		ts.MCFG, err = table.DecodeMCFG(tbl.Data)
	}

	if err != nil {
		return ErrTableTruncated
	}

	ts.tables = append(ts.tables, tbl)
	return nil
}

// Tables returns all tables except the RSDT/XSDT in discovery order.
func (ts *TableSet) Tables() []*Table {
	return ts.tables
}

// LookupTable implements table.Resolver. It returns the header of the first
// table with the supplied signature.
func (ts *TableSet) LookupTable(sig string) *table.SDTHeader {
	for _, tbl := range ts.tables {
		if tbl.Header.SignatureString() == sig {
			return tbl.Header
		}
	}

	return nil
}

// DefinitionBlocks returns the DSDT, if present, followed by the SSDTs in
// table order.
func (ts *TableSet) DefinitionBlocks() []*Table {
	var blocks []*Table
	if ts.DSDT != nil {
		blocks = append(blocks, ts.DSDT)
	}

	return append(blocks, ts.SSDTs...)
}
