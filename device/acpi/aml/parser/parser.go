// Package parser decodes AML definition blocks into an entity tree.
package parser

import (
	"io"
	"strings"

	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/device/acpi/table"
	"github.com/mwg2202/os/kernel"
	"github.com/mwg2202/os/kernel/kfmt"
)

var (
	errParsingAML = &kernel.Error{Module: "acpi_aml_parser", Message: "could not parse AML bytecode"}
)

// Prefixes used by the NameString encoding.
const (
	rootChar         = '\\'
	parentPrefixChar = '^'
	dualNamePrefix   = 0x2e
	multiNamePrefix  = 0x2f
	nullName         = 0x00
)

// Parser implements a two-pass AML parser. ParseAML decodes the namespace
// objects of a definition block while recording the raw bytecode of each
// method body; ParseMethodBodies decodes the bodies once every table has
// been loaded so that calls to methods defined in later tables can be
// recognized.
type Parser struct {
	r           amlStreamReader
	errWriter   io.Writer
	root        entity.Container
	scopeStack  []entity.Container
	tableName   string
	tableHandle uint8
	tableNames  map[uint8]string

	// inMethod is set while decoding a method body.
	inMethod bool
}

// NewParser returns a new AML parser instance that appends the decoded
// objects to rootEntity and reports errors to errWriter.
func NewParser(errWriter io.Writer, rootEntity entity.Container) *Parser {
	return &Parser{
		errWriter:  errWriter,
		root:       rootEntity,
		tableNames: make(map[uint8]string),
	}
}

// ParseAML decodes the AML bytecode that follows the SDT header in data and
// tags each new entity with tableHandle.
func (p *Parser) ParseAML(tableHandle uint8, tableName string, data []byte) *kernel.Error {
	if len(data) < table.SDTHeaderLength {
		kfmt.Fprintf(p.errWriter, "[table: %s] definition block is truncated\n", tableName)
		return errParsingAML
	}

	p.tableHandle = tableHandle
	p.tableName = tableName
	p.tableNames[tableHandle] = tableName
	p.inMethod = false
	p.r.Init(data, table.SDTHeaderLength)
	p.scopeStack = p.scopeStack[:0]

	p.scopeEnter(p.root)
	ok := p.parseObjList(p.r.Len())
	p.scopeExit()

	if !ok {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] error parsing AML bytecode\n", p.tableName, p.r.Offset())
		return errParsingAML
	}

	return nil
}

// ParseMethodBodies decodes the bodies of all methods reachable from the
// root entity that have not been decoded yet. Methods whose body cannot be
// decoded are reported and left unparsed; the number of such methods is
// returned.
func (p *Parser) ParseMethodBodies() int {
	var methods []*entity.Method
	entity.Visit(0, p.root, entity.TypeMethod, func(_ int, ent entity.Entity) bool {
		if m, ok := ent.(*entity.Method); ok && !m.BodyParsed && m.Native == nil {
			methods = append(methods, m)
		}
		return false
	})

	var failed int
	for _, m := range methods {
		if !p.parseMethodBody(m) {
			failed++
		}
	}

	return failed
}

func (p *Parser) parseMethodBody(m *entity.Method) bool {
	p.tableHandle = m.TableHandle()
	p.tableName = p.tableNames[p.tableHandle]
	p.inMethod = true
	p.r.Init(m.Body, 0)
	p.scopeStack = p.scopeStack[:0]

	p.scopeEnter(m)
	ok := p.parseObjList(p.r.Len())
	p.scopeExit()
	p.inMethod = false

	if !ok {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] could not parse body of method %s\n",
			p.tableName, m.BodyOffset+p.r.Offset(), entity.Path(m),
		)

		for _, child := range append([]entity.Entity(nil), m.Children()...) {
			m.Remove(child)
		}
		return false
	}

	m.BodyParsed = true
	return true
}

// parseObjList parses a list of terms until maxOffset is reached.
func (p *Parser) parseObjList(maxOffset uint32) bool {
	for !p.r.EOF() && p.r.Offset() < maxOffset {
		if !p.parseObj() {
			return false
		}
	}

	return p.r.Offset() == maxOffset
}

// parseObj parses a single TermObj and attaches it to the current scope.
func (p *Parser) parseObj() bool {
	next, err := p.r.PeekByte()
	if err != nil {
		return false
	}

	if isNameStart(next) {
		arg, ok := p.parseTermArg()
		if !ok {
			return false
		}
		return p.appendStatement(arg)
	}

	startOffset := p.r.Offset()
	op, ok := p.parseOpcode()
	if !ok {
		return false
	}

	switch op {
	case entity.OpScope:
		return p.parseScope()
	case entity.OpDevice, entity.OpThermalZone, entity.OpProcessor, entity.OpPowerRes:
		return p.parseScopedObj(op)
	case entity.OpMethod:
		return p.parseMethod()
	case entity.OpName:
		return p.parseName()
	case entity.OpAlias:
		return p.parseAlias()
	case entity.OpMutex, entity.OpEvent:
		return p.parseSyncObj(op)
	case entity.OpOpRegion:
		return p.parseRegion()
	case entity.OpField, entity.OpIndexField:
		return p.parseField(op)
	case entity.OpExternal:
		return p.parseExternal()
	case entity.OpIf, entity.OpWhile:
		return p.parseBlock(op)
	case entity.OpElse:
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] encountered else block without a matching if block\n", p.tableName, startOffset)
		return false
	}

	// Anything else is an expression used as a statement.
	p.r.SetOffset(startOffset)
	arg, ok := p.parseTermArg()
	if !ok {
		return false
	}

	return p.appendStatement(arg)
}

func (p *Parser) appendStatement(arg interface{}) bool {
	if ent, ok := arg.(entity.Entity); ok {
		p.scopeCurrent().Append(ent)
		return true
	}

	// Bare constants are legal but have no effect.
	return true
}

// parseScope reads a scope name, enters the scope it refers to and parses
// the contained object list.
func (p *Parser) parseScope() bool {
	endOffset, ok := p.parsePkgEnd()
	if !ok {
		return false
	}

	name, ok := p.parseNameString()
	if !ok {
		return false
	}

	target, isContainer := entity.FindInScope(p.scopeCurrent(), p.root, name).(entity.Container)
	if !isContainer {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] undefined scope: %s\n", p.tableName, p.r.Offset(), name)
		return false
	}

	p.scopeEnter(target)
	ok = p.parseObjList(endOffset)
	p.scopeExit()
	return ok
}

// parseScopedObj handles devices, thermal zones, processors and power
// resources.
func (p *Parser) parseScopedObj(op entity.Opcode) bool {
	endOffset, ok := p.parsePkgEnd()
	if !ok {
		return false
	}

	parent, name, ok := p.parseTargetPath()
	if !ok {
		return false
	}

	var obj entity.Container
	switch op {
	case entity.OpProcessor:
		proc := entity.NewProcessor(p.tableHandle, name)
		id, ok1 := p.parseNumConstant(1)
		addr, ok2 := p.parseNumConstant(4)
		blkLen, ok3 := p.parseNumConstant(1)
		if !ok1 || !ok2 || !ok3 {
			return false
		}
		proc.ID, proc.BlockAddr, proc.BlockLen = uint8(id), uint32(addr), uint8(blkLen)
		obj = proc
	case entity.OpPowerRes:
		res := entity.NewPowerResource(p.tableHandle, name)
		level, ok1 := p.parseNumConstant(1)
		order, ok2 := p.parseNumConstant(2)
		if !ok1 || !ok2 {
			return false
		}
		res.SystemLevel, res.ResourceOrder = uint8(level), uint16(order)
		obj = res
	default:
		obj = entity.NewScope(op, p.tableHandle, name)
	}

	parent.Append(obj)
	p.scopeEnter(obj)
	ok = p.parseObjList(endOffset)
	p.scopeExit()
	return ok
}

// parseMethod records the method declaration and its raw body. The body is
// decoded by ParseMethodBodies.
func (p *Parser) parseMethod() bool {
	endOffset, ok := p.parsePkgEnd()
	if !ok {
		return false
	}

	parent, name, ok := p.parseTargetPath()
	if !ok {
		return false
	}

	flags, ok := p.parseNumConstant(1)
	if !ok {
		return false
	}

	method := entity.NewMethod(p.tableHandle, name, uint8(flags))
	bodyOffset := p.r.Offset()
	if method.Body, ok = p.readBytes(endOffset - bodyOffset); !ok {
		return false
	}
	method.BodyOffset = bodyOffset

	if p.inMethod {
		// A method declared inside another method body; decode it right away.
		parent.Append(method)
		savedReader, savedStack, savedHandle := p.r, p.scopeStack, p.tableHandle
		p.scopeStack = nil
		ok = p.parseMethodBody(method)
		p.r, p.scopeStack, p.tableHandle, p.inMethod = savedReader, savedStack, savedHandle, true
		return ok
	}

	parent.Append(method)
	return true
}

func (p *Parser) parseName() bool {
	parent, name, ok := p.parseTargetPath()
	if !ok {
		return false
	}

	value, ok := p.parseTermArg()
	if !ok {
		return false
	}

	parent.Append(entity.NewName(p.tableHandle, name, value))
	return true
}

func (p *Parser) parseAlias() bool {
	target, ok := p.parseNameString()
	if !ok {
		return false
	}

	parent, name, ok := p.parseTargetPath()
	if !ok {
		return false
	}

	parent.Append(entity.NewAlias(p.tableHandle, name, target))
	return true
}

func (p *Parser) parseSyncObj(op entity.Opcode) bool {
	parent, name, ok := p.parseTargetPath()
	if !ok {
		return false
	}

	if op == entity.OpEvent {
		parent.Append(entity.NewNamed(entity.OpEvent, p.tableHandle, name))
		return true
	}

	syncFlags, ok := p.parseNumConstant(1)
	if !ok {
		return false
	}

	parent.Append(entity.NewMutex(p.tableHandle, name, uint8(syncFlags)&0xf))
	return true
}

func (p *Parser) parseRegion() bool {
	parent, name, ok := p.parseTargetPath()
	if !ok {
		return false
	}

	space, ok := p.parseNumConstant(1)
	if !ok {
		return false
	}

	offset, ok := p.parseTermArg()
	if !ok {
		return false
	}

	length, ok := p.parseTermArg()
	if !ok {
		return false
	}

	parent.Append(entity.NewRegion(p.tableHandle, name, entity.RegionSpace(space), offset, length))
	return true
}

// parseField decodes a Field or IndexField block. The generated field units
// are appended to the current scope.
func (p *Parser) parseField(op entity.Opcode) bool {
	endOffset, ok := p.parsePkgEnd()
	if !ok {
		return false
	}

	var names [2]string
	nameCount := 1
	if op == entity.OpIndexField {
		nameCount = 2
	}

	for index := 0; index < nameCount; index++ {
		if names[index], ok = p.parseNameString(); !ok {
			return false
		}
	}

	flags, ok := p.parseNumConstant(1)
	if !ok {
		return false
	}

	field := entity.NewField(op, p.tableHandle, uint8(flags))
	if op == entity.OpIndexField {
		field.IndexName, field.DataName = names[0], names[1]
	} else {
		field.RegionName = names[0]
	}
	field.SetParent(p.scopeCurrent())

	return p.parseFieldList(field, endOffset)
}

// parseFieldList decodes the FieldElement list of a field.
//
// Grammar:
// FieldElement := NamedField | ReservedField | AccessField | ExtendedAccessField | ConnectField
// NamedField := NameSeg PkgLength
// ReservedField := 0x00 PkgLength
// AccessField := 0x01 AccessType AccessAttrib
// ExtendedAccessField := 0x03 AccessType ExtendedAccessAttrib AccessLength
func (p *Parser) parseFieldList(field *entity.Field, endOffset uint32) bool {
	var (
		bitOffset  uint32
		accessType = field.AccessType
	)

	for p.r.Offset() < endOffset {
		next, err := p.r.ReadByte()
		if err != nil {
			return false
		}

		switch next {
		case 0x00:
			width, ok := p.parsePkgLength()
			if !ok {
				return false
			}
			bitOffset += width
		case 0x01, 0x03:
			attribLen := uint32(2)
			if next == 0x03 {
				attribLen = 3
			}

			attrib, err := p.r.ReadBytes(attribLen)
			if err != nil {
				return false
			}
			accessType = entity.FieldAccessType(attrib[0] & 0xf)
		case 0x02:
			kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] connection fields are not supported\n", p.tableName, p.r.Offset())
			return false
		default:
			_ = p.r.UnreadByte()
			name, ok := p.parseNameSeg()
			if !ok {
				return false
			}

			width, ok := p.parsePkgLength()
			if !ok {
				return false
			}

			p.scopeCurrent().Append(entity.NewFieldUnit(p.tableHandle, name, field, bitOffset, width, accessType))
			bitOffset += width
		}
	}

	return p.r.Offset() == endOffset
}

// parseExternal consumes an External declaration. Externals only inform the
// compiler about objects defined in other tables; they do not create
// namespace objects.
func (p *Parser) parseExternal() bool {
	if _, ok := p.parseNameString(); !ok {
		return false
	}

	_, ok := p.readBytes(2)
	return ok
}

// parseBlock decodes an If or While statement. An Else block following an
// If is attached as the third argument of the If entity.
func (p *Parser) parseBlock(op entity.Opcode) bool {
	stmt := entity.NewGeneric(op, p.tableHandle)

	endOffset, ok := p.parsePkgEnd()
	if !ok {
		return false
	}

	predicate, ok := p.parseTermArg()
	if !ok {
		return false
	}

	body, ok := p.parseBody(op, endOffset)
	if !ok {
		return false
	}
	stmt.Args = append(stmt.Args, predicate, body)

	if next, err := p.r.PeekByte(); op == entity.OpIf && err == nil && next == byte(entity.OpElse) {
		_, _ = p.r.ReadByte()
		if endOffset, ok = p.parsePkgEnd(); !ok {
			return false
		}

		elseBody, ok := p.parseBody(entity.OpElse, endOffset)
		if !ok {
			return false
		}
		stmt.Args = append(stmt.Args, elseBody)
	}

	p.scopeCurrent().Append(stmt)
	return true
}

// parseBody parses a term list into an unnamed scope whose parent is the
// current scope.
func (p *Parser) parseBody(op entity.Opcode, endOffset uint32) (*entity.Scope, bool) {
	body := entity.NewScope(op, p.tableHandle, "")
	body.SetParent(p.scopeCurrent())

	p.scopeEnter(body)
	ok := p.parseObjList(endOffset)
	p.scopeExit()

	return body, ok
}

// parseTargetPath reads the name of a new object and resolves the scope it
// should be appended to.
func (p *Parser) parseTargetPath() (entity.Container, string, bool) {
	path, ok := p.parseNameString()
	if !ok {
		return nil, "", false
	}

	parent, name := entity.ResolveScopedPath(p.scopeCurrent(), p.root, path)
	if parent == nil {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] undefined scope target: %s (current scope: %s)\n",
			p.tableName, p.r.Offset(), path, entity.Path(p.scopeCurrent()),
		)
		return nil, "", false
	}

	return parent, name, true
}

// parseOpcode reads a one or two byte opcode.
func (p *Parser) parseOpcode() (entity.Opcode, bool) {
	next, err := p.r.ReadByte()
	if err != nil {
		return 0, false
	}

	if next != entity.ExtOpPrefix {
		return entity.Opcode(next), true
	}

	ext, err := p.r.ReadByte()
	if err != nil {
		return 0, false
	}

	return entity.Opcode(entity.ExtOpPrefix)<<8 | entity.Opcode(ext), true
}

// parsePkgLength decodes a PkgLength value. The top two bits of the lead
// byte specify the number of bytes that follow it; when they are present
// the low nibble of the lead byte holds the least significant bits.
func (p *Parser) parsePkgLength() (uint32, bool) {
	lead, err := p.r.ReadByte()
	if err != nil {
		return 0, false
	}

	extraBytes := lead >> 6
	if extraBytes == 0 {
		return uint32(lead & 0x3f), true
	}

	length := uint32(lead & 0x0f)
	for index := uint8(0); index < extraBytes; index++ {
		next, err := p.r.ReadByte()
		if err != nil {
			return 0, false
		}
		length |= uint32(next) << (4 + 8*index)
	}

	return length, true
}

// parsePkgEnd decodes a PkgLength and returns the stream offset where the
// package ends. The PkgLength encoding includes its own size.
func (p *Parser) parsePkgEnd() (uint32, bool) {
	startOffset := p.r.Offset()
	length, ok := p.parsePkgLength()
	if !ok {
		return 0, false
	}

	endOffset := uint64(startOffset) + uint64(length)
	if endOffset < uint64(p.r.Offset()) || endOffset > uint64(p.r.Len()) {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] package length %d exceeds the stream bounds\n", p.tableName, startOffset, length)
		return 0, false
	}

	return uint32(endOffset), true
}

// parseNumConstant reads a little-endian unsigned integer of numBytes.
func (p *Parser) parseNumConstant(numBytes uint32) (uint64, bool) {
	data, ok := p.readBytes(numBytes)
	if !ok {
		return 0, false
	}

	var res uint64
	for index := len(data) - 1; index >= 0; index-- {
		res = res<<8 | uint64(data[index])
	}

	return res, true
}

// parseString reads a NUL-terminated ASCII string.
func (p *Parser) parseString() (string, bool) {
	var sb strings.Builder
	for {
		next, err := p.r.ReadByte()
		if err != nil {
			return "", false
		}

		if next == 0x00 {
			return sb.String(), true
		}

		if next > 0x7f {
			return "", false
		}
		sb.WriteByte(next)
	}
}

// parseNameString decodes a NameString into its textual representation, e.g.
// `\_SB_.PCI0` or `^^FOO_`.
//
// Grammar:
// NameString := <RootChar NamePath> | <PrefixPath NamePath>
// PrefixPath := Nothing | <'^' PrefixPath>
// NamePath := NameSeg | DualNamePath | MultiNamePath | NullName
func (p *Parser) parseNameString() (string, bool) {
	var sb strings.Builder

	next, err := p.r.ReadByte()
	if err != nil {
		return "", false
	}

	switch next {
	case rootChar:
		sb.WriteByte(rootChar)
		next, err = p.r.ReadByte()
	case parentPrefixChar:
		for next == parentPrefixChar && err == nil {
			sb.WriteByte(parentPrefixChar)
			next, err = p.r.ReadByte()
		}
	}

	if err != nil {
		return "", false
	}

	var segCount uint8
	switch next {
	case nullName:
		return sb.String(), sb.Len() != 0
	case dualNamePrefix:
		segCount = 2
	case multiNamePrefix:
		if segCount, err = p.r.ReadByte(); err != nil || segCount == 0 {
			return "", false
		}
	default:
		_ = p.r.UnreadByte()
		segCount = 1
	}

	for index := uint8(0); index < segCount; index++ {
		seg, ok := p.parseNameSeg()
		if !ok {
			return "", false
		}

		if index != 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}

	return sb.String(), true
}

// parseNameSeg reads a four character NameSeg.
func (p *Parser) parseNameSeg() (string, bool) {
	seg, ok := p.readBytes(4)
	if !ok || !isLeadNameChar(seg[0]) {
		return "", false
	}

	for _, ch := range seg[1:] {
		if !isLeadNameChar(ch) && !isDigitChar(ch) {
			return "", false
		}
	}

	return string(seg), true
}

func (p *Parser) readBytes(count uint32) ([]byte, bool) {
	data, err := p.r.ReadBytes(count)
	return data, err == nil
}

func (p *Parser) scopeCurrent() entity.Container {
	return p.scopeStack[len(p.scopeStack)-1]
}

func (p *Parser) scopeEnter(s entity.Container) {
	p.scopeStack = append(p.scopeStack, s)
}

func (p *Parser) scopeExit() {
	p.scopeStack = p.scopeStack[:len(p.scopeStack)-1]
}

func isLeadNameChar(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigitChar(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isNameStart returns true if ch can start a NameString.
func isNameStart(ch byte) bool {
	return isLeadNameChar(ch) || ch == rootChar || ch == parentPrefixChar ||
		ch == dualNamePrefix || ch == multiNamePrefix
}
