package entity

// Opcode describes an AML opcode. Extended opcodes are encoded as an
// extension prefix (0x5b) followed by a second byte; to map every opcode
// into a single value they are stored as 0x5b00 | second byte.
type Opcode uint16

// ExtOpPrefix introduces a two-byte opcode.
const ExtOpPrefix = 0x5b

// The list of opcodes understood by the parser and the interpreter.
const (
	OpZero         = Opcode(0x00)
	OpOne          = Opcode(0x01)
	OpAlias        = Opcode(0x06)
	OpName         = Opcode(0x08)
	OpBytePrefix   = Opcode(0x0a)
	OpWordPrefix   = Opcode(0x0b)
	OpDwordPrefix  = Opcode(0x0c)
	OpStringPrefix = Opcode(0x0d)
	OpQwordPrefix  = Opcode(0x0e)
	OpScope        = Opcode(0x10)
	OpBuffer       = Opcode(0x11)
	OpPackage      = Opcode(0x12)
	OpVarPackage   = Opcode(0x13)
	OpMethod       = Opcode(0x14)
	OpExternal     = Opcode(0x15)
	OpLocal0       = Opcode(0x60)
	OpLocal7       = Opcode(0x67)
	OpArg0         = Opcode(0x68)
	OpArg6         = Opcode(0x6e)
	OpStore        = Opcode(0x70)
	OpRefOf        = Opcode(0x71)
	OpAdd          = Opcode(0x72)
	OpConcat       = Opcode(0x73)
	OpSubtract     = Opcode(0x74)
	OpIncrement    = Opcode(0x75)
	OpDecrement    = Opcode(0x76)
	OpMultiply     = Opcode(0x77)
	OpDivide       = Opcode(0x78)
	OpShiftLeft    = Opcode(0x79)
	OpShiftRight   = Opcode(0x7a)
	OpAnd          = Opcode(0x7b)
	OpNand         = Opcode(0x7c)
	OpOr           = Opcode(0x7d)
	OpNor          = Opcode(0x7e)
	OpXor          = Opcode(0x7f)
	OpNot          = Opcode(0x80)
	OpDerefOf      = Opcode(0x83)
	OpMod          = Opcode(0x85)
	OpNotify       = Opcode(0x86)
	OpSizeOf       = Opcode(0x87)
	OpIndex        = Opcode(0x88)
	OpLand         = Opcode(0x90)
	OpLor          = Opcode(0x91)
	OpLnot         = Opcode(0x92)
	OpLEqual       = Opcode(0x93)
	OpLGreater     = Opcode(0x94)
	OpLLess        = Opcode(0x95)
	OpToInteger    = Opcode(0x99)
	OpContinue     = Opcode(0x9f)
	OpIf           = Opcode(0xa0)
	OpElse         = Opcode(0xa1)
	OpWhile        = Opcode(0xa2)
	OpNoop         = Opcode(0xa3)
	OpReturn       = Opcode(0xa4)
	OpBreak        = Opcode(0xa5)
	OpOnes         = Opcode(0xff)

	OpMutex       = Opcode(0x5b01)
	OpEvent       = Opcode(0x5b02)
	OpCondRefOf   = Opcode(0x5b12)
	OpStall       = Opcode(0x5b21)
	OpSleep       = Opcode(0x5b22)
	OpAcquire     = Opcode(0x5b23)
	OpSignal      = Opcode(0x5b24)
	OpWait        = Opcode(0x5b25)
	OpReset       = Opcode(0x5b26)
	OpRelease     = Opcode(0x5b27)
	OpRevision    = Opcode(0x5b30)
	OpDebug       = Opcode(0x5b31)
	OpOpRegion    = Opcode(0x5b80)
	OpField       = Opcode(0x5b81)
	OpDevice      = Opcode(0x5b82)
	OpProcessor   = Opcode(0x5b83)
	OpPowerRes    = Opcode(0x5b84)
	OpThermalZone = Opcode(0x5b85)
	OpIndexField  = Opcode(0x5b86)

	// Opcodes that do not appear in the byte stream. They tag entities
	// synthesized by the parser.
	OpRoot       = Opcode(0xff00)
	OpFieldUnit  = Opcode(0xff01)
	OpReference  = Opcode(0xff02)
	OpInvocation = Opcode(0xff03)
)

var opcodeNames = map[Opcode]string{
	OpZero:         "Zero",
	OpOne:          "One",
	OpAlias:        "Alias",
	OpName:         "Name",
	OpBytePrefix:   "BytePrefix",
	OpWordPrefix:   "WordPrefix",
	OpDwordPrefix:  "DwordPrefix",
	OpStringPrefix: "StringPrefix",
	OpQwordPrefix:  "QwordPrefix",
	OpScope:        "Scope",
	OpBuffer:       "Buffer",
	OpPackage:      "Package",
	OpVarPackage:   "VarPackage",
	OpMethod:       "Method",
	OpExternal:     "External",
	OpStore:        "Store",
	OpRefOf:        "RefOf",
	OpAdd:          "Add",
	OpConcat:       "Concat",
	OpSubtract:     "Subtract",
	OpIncrement:    "Increment",
	OpDecrement:    "Decrement",
	OpMultiply:     "Multiply",
	OpDivide:       "Divide",
	OpShiftLeft:    "ShiftLeft",
	OpShiftRight:   "ShiftRight",
	OpAnd:          "And",
	OpNand:         "Nand",
	OpOr:           "Or",
	OpNor:          "Nor",
	OpXor:          "Xor",
	OpNot:          "Not",
	OpDerefOf:      "DerefOf",
	OpMod:          "Mod",
	OpNotify:       "Notify",
	OpSizeOf:       "SizeOf",
	OpIndex:        "Index",
	OpLand:         "LAnd",
	OpLor:          "LOr",
	OpLnot:         "LNot",
	OpLEqual:       "LEqual",
	OpLGreater:     "LGreater",
	OpLLess:        "LLess",
	OpToInteger:    "ToInteger",
	OpContinue:     "Continue",
	OpIf:           "If",
	OpElse:         "Else",
	OpWhile:        "While",
	OpNoop:         "Noop",
	OpReturn:       "Return",
	OpBreak:        "Break",
	OpOnes:         "Ones",
	OpMutex:        "Mutex",
	OpEvent:        "Event",
	OpCondRefOf:    "CondRefOf",
	OpStall:        "Stall",
	OpSleep:        "Sleep",
	OpAcquire:      "Acquire",
	OpSignal:       "Signal",
	OpWait:         "Wait",
	OpReset:        "Reset",
	OpRelease:      "Release",
	OpRevision:     "Revision",
	OpDebug:        "Debug",
	OpOpRegion:     "OpRegion",
	OpField:        "Field",
	OpDevice:       "Device",
	OpProcessor:    "Processor",
	OpPowerRes:     "PowerRes",
	OpThermalZone:  "ThermalZone",
	OpIndexField:   "IndexField",
	OpRoot:         "Root",
	OpFieldUnit:    "FieldUnit",
	OpReference:    "Reference",
	OpInvocation:   "Invocation",
}

// String implements fmt.Stringer for Opcode.
func (op Opcode) String() string {
	switch {
	case OpIsLocal(op):
		return "Local" + string(rune('0'+op-OpLocal0))
	case OpIsArg(op):
		return "Arg" + string(rune('0'+op-OpArg0))
	}

	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}

// OpIsLocal returns true if op refers to one of the method locals 0 to 7.
func OpIsLocal(op Opcode) bool { return op >= OpLocal0 && op <= OpLocal7 }

// OpIsArg returns true if op refers to one of the method args 0 to 6.
func OpIsArg(op Opcode) bool { return op >= OpArg0 && op <= OpArg6 }
