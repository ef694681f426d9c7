package parser

import (
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/kernel/kfmt"
)

// argKind describes the encoding of an operand of an expression opcode.
type argKind uint8

const (
	argTermArg argKind = iota
	argSuperName
	argTarget
	argWord
)

var (
	binaryOpArgs = []argKind{argTermArg, argTermArg, argTarget}
	logicalArgs  = []argKind{argTermArg, argTermArg}

	// exprArgs lists the operands of every supported expression and
	// statement opcode.
	exprArgs = map[entity.Opcode][]argKind{
		entity.OpStore:      {argTermArg, argSuperName},
		entity.OpRefOf:      {argSuperName},
		entity.OpAdd:        binaryOpArgs,
		entity.OpConcat:     binaryOpArgs,
		entity.OpSubtract:   binaryOpArgs,
		entity.OpMultiply:   binaryOpArgs,
		entity.OpShiftLeft:  binaryOpArgs,
		entity.OpShiftRight: binaryOpArgs,
		entity.OpAnd:        binaryOpArgs,
		entity.OpNand:       binaryOpArgs,
		entity.OpOr:         binaryOpArgs,
		entity.OpNor:        binaryOpArgs,
		entity.OpXor:        binaryOpArgs,
		entity.OpMod:        binaryOpArgs,
		entity.OpIndex:      binaryOpArgs,
		entity.OpIncrement:  {argSuperName},
		entity.OpDecrement:  {argSuperName},
		entity.OpDivide:     {argTermArg, argTermArg, argTarget, argTarget},
		entity.OpNot:        {argTermArg, argTarget},
		entity.OpToInteger:  {argTermArg, argTarget},
		entity.OpDerefOf:    {argTermArg},
		entity.OpSizeOf:     {argSuperName},
		entity.OpNotify:     {argSuperName, argTermArg},
		entity.OpLand:       logicalArgs,
		entity.OpLor:        logicalArgs,
		entity.OpLEqual:     logicalArgs,
		entity.OpLGreater:   logicalArgs,
		entity.OpLLess:      logicalArgs,
		entity.OpLnot:       {argTermArg},
		entity.OpReturn:     {argTermArg},
		entity.OpBreak:      nil,
		entity.OpContinue:   nil,
		entity.OpNoop:       nil,
		entity.OpRevision:   nil,
		entity.OpDebug:      nil,
		entity.OpCondRefOf:  {argSuperName, argTarget},
		entity.OpStall:      {argTermArg},
		entity.OpSleep:      {argTermArg},
		entity.OpAcquire:    {argSuperName, argWord},
		entity.OpRelease:    {argSuperName},
		entity.OpSignal:     {argSuperName},
		entity.OpReset:      {argSuperName},
		entity.OpWait:       {argSuperName, argTermArg},
	}
)

// parseTermArg decodes a TermArg. The returned value is one of:
//   - uint64 or string for constants
//   - *entity.Buffer or *entity.Package for data objects
//   - *entity.Reference or *entity.Invocation for names
//   - *entity.Generic for locals, args and expressions
func (p *Parser) parseTermArg() (interface{}, bool) {
	next, err := p.r.PeekByte()
	if err != nil {
		return nil, false
	}

	if isNameStart(next) {
		return p.parseNameOrInvocation()
	}

	startOffset := p.r.Offset()
	op, ok := p.parseOpcode()
	if !ok {
		return nil, false
	}

	switch {
	case op == entity.OpZero:
		return uint64(0), true
	case op == entity.OpOne:
		return uint64(1), true
	case op == entity.OpOnes:
		return ^uint64(0), true
	case op == entity.OpBytePrefix:
		return p.parseNumConstant(1)
	case op == entity.OpWordPrefix:
		return p.parseNumConstant(2)
	case op == entity.OpDwordPrefix:
		return p.parseNumConstant(4)
	case op == entity.OpQwordPrefix:
		return p.parseNumConstant(8)
	case op == entity.OpStringPrefix:
		return p.parseString()
	case op == entity.OpBuffer:
		return p.parseBuffer()
	case op == entity.OpPackage || op == entity.OpVarPackage:
		return p.parsePackage(op)
	case entity.OpIsLocal(op) || entity.OpIsArg(op):
		return entity.NewGeneric(op, p.tableHandle), true
	}

	argKinds, supported := exprArgs[op]
	if !supported {
		kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] unsupported opcode: 0x%x\n", p.tableName, startOffset, uint16(op))
		return nil, false
	}

	expr := entity.NewGeneric(op, p.tableHandle)
	for _, kind := range argKinds {
		var arg interface{}
		switch kind {
		case argTermArg:
			arg, ok = p.parseTermArg()
		case argSuperName:
			arg, ok = p.parseSuperName()
		case argTarget:
			arg, ok = p.parseTarget()
		case argWord:
			arg, ok = p.parseNumConstant(2)
		}

		if !ok {
			return nil, false
		}
		expr.Args = append(expr.Args, arg)
	}

	return expr, true
}

// parseNameOrInvocation decodes a name that appears as a TermArg. If the
// name refers to a method its arguments are decoded as well.
func (p *Parser) parseNameOrInvocation() (interface{}, bool) {
	name, ok := p.parseNameString()
	if !ok {
		return nil, false
	}

	method, isMethod := entity.FindInScope(p.scopeCurrent(), p.root, name).(*entity.Method)
	if !isMethod {
		return entity.NewReference(p.tableHandle, name, p.scopeCurrent()), true
	}

	args := make([]interface{}, 0, method.ArgCount)
	for index := uint8(0); index < method.ArgCount; index++ {
		arg, ok := p.parseTermArg()
		if !ok {
			return nil, false
		}
		args = append(args, arg)
	}

	return entity.NewInvocation(p.tableHandle, name, method, args), true
}

// parseSuperName decodes a SuperName.
//
// Grammar:
// SuperName := SimpleName | DebugObj | Type6Opcode
// SimpleName := NameString | ArgObj | LocalObj
// Type6Opcode := DefRefOf | DefDerefOf | DefIndex | UserTermObj
func (p *Parser) parseSuperName() (interface{}, bool) {
	next, err := p.r.PeekByte()
	if err != nil {
		return nil, false
	}

	if isNameStart(next) {
		name, ok := p.parseNameString()
		if !ok {
			return nil, false
		}
		return entity.NewReference(p.tableHandle, name, p.scopeCurrent()), true
	}

	startOffset := p.r.Offset()
	op, ok := p.parseOpcode()
	if !ok {
		return nil, false
	}

	switch {
	case entity.OpIsLocal(op) || entity.OpIsArg(op), op == entity.OpDebug:
		return entity.NewGeneric(op, p.tableHandle), true
	case op == entity.OpRefOf, op == entity.OpDerefOf, op == entity.OpIndex:
		p.r.SetOffset(startOffset)
		return p.parseTermArg()
	}

	kfmt.Fprintf(p.errWriter, "[table: %s, offset: %d] expected a SuperName; got opcode 0x%x\n", p.tableName, startOffset, uint16(op))
	return nil, false
}

// parseTarget decodes a Target which is either a SuperName or a NullName. A
// NullName is returned as a nil value.
func (p *Parser) parseTarget() (interface{}, bool) {
	next, err := p.r.PeekByte()
	if err != nil {
		return nil, false
	}

	if next == nullName {
		_, _ = p.r.ReadByte()
		return nil, true
	}

	return p.parseSuperName()
}

// parseBuffer decodes a DefBuffer. The buffer size is a TermArg and may be
// larger than the initializer.
func (p *Parser) parseBuffer() (interface{}, bool) {
	endOffset, ok := p.parsePkgEnd()
	if !ok {
		return nil, false
	}

	buf := entity.NewBuffer(p.tableHandle)
	if buf.Size, ok = p.parseTermArg(); !ok || p.r.Offset() > endOffset {
		return nil, false
	}

	data, ok := p.readBytes(endOffset - p.r.Offset())
	if !ok {
		return nil, false
	}

	buf.Data = append([]byte(nil), data...)
	return buf, true
}

// parsePackage decodes a DefPackage or DefVarPackage. Names inside a
// package are references, never method invocations.
func (p *Parser) parsePackage(op entity.Opcode) (interface{}, bool) {
	endOffset, ok := p.parsePkgEnd()
	if !ok {
		return nil, false
	}

	pkg := entity.NewPackage(op, p.tableHandle)
	if op == entity.OpPackage {
		pkg.NumElements, ok = p.parseNumConstant(1)
	} else {
		pkg.NumElements, ok = p.parseTermArg()
	}

	if !ok {
		return nil, false
	}

	for p.r.Offset() < endOffset {
		next, err := p.r.PeekByte()
		if err != nil {
			return nil, false
		}

		var elem interface{}
		if isNameStart(next) {
			name, ok := p.parseNameString()
			if !ok {
				return nil, false
			}
			elem = entity.NewReference(p.tableHandle, name, p.scopeCurrent())
		} else if elem, ok = p.parseTermArg(); !ok {
			return nil, false
		}

		pkg.Elements = append(pkg.Elements, elem)
	}

	return pkg, p.r.Offset() == endOffset
}
