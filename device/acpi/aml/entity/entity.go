// Package entity defines the objects that make up an AML namespace and the
// statements that make up AML method bodies.
package entity

// Entity is an interface implemented by all AML entities.
type Entity interface {
	// Opcode returns the AML op associated with this entity.
	Opcode() Opcode

	// Name returns the entity's name or an empty string if no name is
	// associated with the entity.
	Name() string

	// Parent returns the Container of this entity.
	Parent() Container

	// SetParent updates the parent container reference.
	SetParent(Container)

	// TableHandle returns the handle of the ACPI table where this entity
	// was defined.
	TableHandle() uint8
}

// Container is an interface that is implemented by entities that contain a
// collection of other entities and define an AML scope.
type Container interface {
	Entity

	// Children returns the list of entities that are children of this
	// container.
	Children() []Entity

	// Append adds an entity to a container.
	Append(Entity)

	// Remove searches the child list for an entity and removes it if found.
	Remove(Entity)
}

// Generic describes an unnamed entity such as a method body statement. Its
// operands are stored in Args.
type Generic struct {
	op          Opcode
	tableHandle uint8
	parent      Container

	Args []interface{}
}

// NewGeneric returns a new generic AML entity.
func NewGeneric(op Opcode, tableHandle uint8) *Generic {
	return &Generic{op: op, tableHandle: tableHandle}
}

// Opcode returns the AML op associated with this entity.
func (ent *Generic) Opcode() Opcode { return ent.op }

// Name returns the entity's name. For this type of entity it always returns
// an empty string.
func (ent *Generic) Name() string { return "" }

// Parent returns the Container of this entity.
func (ent *Generic) Parent() Container { return ent.parent }

// SetParent updates the parent container reference.
func (ent *Generic) SetParent(parent Container) { ent.parent = parent }

// TableHandle returns the handle of the ACPI table where this entity was
// defined.
func (ent *Generic) TableHandle() uint8 { return ent.tableHandle }

// Named describes an entity with a name and no other state, e.g. an Event.
type Named struct {
	Generic
	name string
}

// NewNamed returns a new named AML entity.
func NewNamed(op Opcode, tableHandle uint8, name string) *Named {
	return &Named{
		Generic: Generic{op: op, tableHandle: tableHandle},
		name:    name,
	}
}

// Name returns the entity's name.
func (ent *Named) Name() string { return ent.name }

// Scope is an optionally named entity that groups together multiple
// entities. Scopes model the namespace root, Scope blocks, devices and
// thermal zones as well as the bodies of If, Else and While statements.
type Scope struct {
	Named
	children []Entity
}

// NewScope creates a new AML scope entity.
func NewScope(op Opcode, tableHandle uint8, name string) *Scope {
	return &Scope{Named: *NewNamed(op, tableHandle, name)}
}

// Children returns the list of entities that are children of this container.
func (ent *Scope) Children() []Entity { return ent.children }

// Append adds an entity to a container.
func (ent *Scope) Append(child Entity) {
	child.SetParent(ent)
	ent.children = append(ent.children, child)
}

// Remove searches the child list for an entity and removes it if found.
func (ent *Scope) Remove(child Entity) {
	for index, c := range ent.children {
		if c == child {
			ent.children = append(ent.children[:index], ent.children[index+1:]...)
			return
		}
	}
}

// Name associates a value with a name. Value is one of uint64, string,
// []byte, *Package, *Buffer or *Reference.
type Name struct {
	Named
	Value interface{}
}

// NewName creates a new AML name entity.
func NewName(tableHandle uint8, name string, value interface{}) *Name {
	return &Name{Named: *NewNamed(OpName, tableHandle, name), Value: value}
}

// NativeFn implements a method in Go instead of AML.
type NativeFn func(args []interface{}) interface{}

// Method is a control method. Until its body has been parsed, Body holds the
// raw bytecode of the method; afterwards the method's children are the
// statements of the body.
type Method struct {
	Scope

	ArgCount   uint8
	Serialized bool
	SyncLevel  uint8

	// Body is the method bytecode and BodyOffset its offset inside the
	// defining table.
	Body       []byte
	BodyOffset uint32

	// BodyParsed is set once the statements of the body are available.
	BodyParsed bool

	// Native, if set, is called instead of executing the method body.
	Native NativeFn
}

// NewMethod creates a new AML method entity using the MethodFlags byte
// encoding: bits 0-2 hold the arg count, bit 3 the serialize flag and bits
// 4-7 the sync level.
func NewMethod(tableHandle uint8, name string, flags uint8) *Method {
	return &Method{
		Scope:      *NewScope(OpMethod, tableHandle, name),
		ArgCount:   flags & 0x7,
		Serialized: flags&0x8 != 0,
		SyncLevel:  flags >> 4,
	}
}

// Processor is a scope describing a processor. It is only kept for the
// benefit of older tables.
type Processor struct {
	Scope

	ID        uint8
	BlockAddr uint32
	BlockLen  uint8
}

// NewProcessor creates a new AML processor entity.
func NewProcessor(tableHandle uint8, name string) *Processor {
	return &Processor{Scope: *NewScope(OpProcessor, tableHandle, name)}
}

// PowerResource is a scope describing a power resource.
type PowerResource struct {
	Scope

	SystemLevel   uint8
	ResourceOrder uint16
}

// NewPowerResource creates a new AML power resource entity.
func NewPowerResource(tableHandle uint8, name string) *PowerResource {
	return &PowerResource{Scope: *NewScope(OpPowerRes, tableHandle, name)}
}

// RegionSpace describes the address space where a region is located.
type RegionSpace uint8

// The list of RegionSpace values defined by ACPI.
const (
	RegionSpaceSystemMemory RegionSpace = iota
	RegionSpaceSystemIO
	RegionSpacePCIConfig
	RegionSpaceEmbeddedControl
	RegionSpaceSMBus
	RegionSpaceSystemCMOS
	RegionSpacePCIBarTarget
	RegionSpaceIPMI
)

// Region defines an operation region located at a particular address space.
// Offset and Len are evaluated the first time the region is accessed.
type Region struct {
	Named

	Space  RegionSpace
	Offset interface{}
	Len    interface{}

	Resolved   bool
	BaseAddr   uint64
	RegionSize uint64
}

// NewRegion creates a new AML region entity.
func NewRegion(tableHandle uint8, name string, space RegionSpace, offset, length interface{}) *Region {
	return &Region{
		Named:  *NewNamed(OpOpRegion, tableHandle, name),
		Space:  space,
		Offset: offset,
		Len:    length,
	}
}

// FieldAccessType specifies the width of the accesses used to read or write
// a field.
type FieldAccessType uint8

// The list of supported FieldAccessType values.
const (
	FieldAccessTypeAny FieldAccessType = iota
	FieldAccessTypeByte
	FieldAccessTypeWord
	FieldAccessTypeDword
	FieldAccessTypeQword
	FieldAccessTypeBuffer
)

// Bytes returns the access width in bytes.
func (t FieldAccessType) Bytes() uint32 {
	switch t {
	case FieldAccessTypeWord:
		return 2
	case FieldAccessTypeDword:
		return 4
	case FieldAccessTypeQword:
		return 8
	default:
		return 1
	}
}

// FieldLockRule specifies whether the global lock must be held while
// accessing a field.
type FieldLockRule uint8

// The list of supported FieldLockRule values.
const (
	FieldLockRuleNoLock FieldLockRule = iota
	FieldLockRuleLock
)

// FieldUpdateRule specifies how the bits of an access that lie outside a
// field unit are treated when the unit is written.
type FieldUpdateRule uint8

// The list of supported FieldUpdateRule values.
const (
	FieldUpdateRulePreserve FieldUpdateRule = iota
	FieldUpdateRuleWriteAsOnes
	FieldUpdateRuleWriteAsZeros
)

// Field groups the field units declared by a Field or IndexField block.
type Field struct {
	Generic

	// RegionName is set for OpField.
	RegionName string

	// IndexName and DataName are set for OpIndexField.
	IndexName string
	DataName  string

	AccessType FieldAccessType
	LockRule   FieldLockRule
	UpdateRule FieldUpdateRule
}

// NewField creates a new AML field entity using the FieldFlags byte encoding.
func NewField(op Opcode, tableHandle uint8, flags uint8) *Field {
	return &Field{
		Generic:    Generic{op: op, tableHandle: tableHandle},
		AccessType: FieldAccessType(flags & 0xf),
		LockRule:   FieldLockRule((flags >> 4) & 0x1),
		UpdateRule: FieldUpdateRule((flags >> 5) & 0x3),
	}
}

// FieldUnit is a named bit range inside the region a Field refers to.
type FieldUnit struct {
	Named

	Field      *Field
	BitOffset  uint32
	BitWidth   uint32
	AccessType FieldAccessType
}

// NewFieldUnit creates a new AML field unit entity.
func NewFieldUnit(tableHandle uint8, name string, field *Field, bitOffset, bitWidth uint32, accessType FieldAccessType) *FieldUnit {
	return &FieldUnit{
		Named:      *NewNamed(OpFieldUnit, tableHandle, name),
		Field:      field,
		BitOffset:  bitOffset,
		BitWidth:   bitWidth,
		AccessType: accessType,
	}
}

// Mutex is a synchronization object.
type Mutex struct {
	Named

	SyncLevel uint8
	Held      bool
}

// NewMutex creates a new AML mutex entity.
func NewMutex(tableHandle uint8, name string, syncLevel uint8) *Mutex {
	return &Mutex{Named: *NewNamed(OpMutex, tableHandle, name), SyncLevel: syncLevel}
}

// Alias makes an existing object reachable under another name.
type Alias struct {
	Named
	Target string
}

// NewAlias creates a new AML alias entity.
func NewAlias(tableHandle uint8, name, target string) *Alias {
	return &Alias{Named: *NewNamed(OpAlias, tableHandle, name), Target: target}
}

// Package is an ordered list of data objects. For VarPackage NumElements may
// be a term that is evaluated at runtime.
type Package struct {
	Generic

	NumElements interface{}
	Elements    []interface{}
}

// NewPackage creates a new AML package entity.
func NewPackage(op Opcode, tableHandle uint8) *Package {
	return &Package{Generic: Generic{op: op, tableHandle: tableHandle}}
}

// Buffer is a byte array whose Size may be larger than its initializer.
type Buffer struct {
	Generic

	Size interface{}
	Data []byte
}

// NewBuffer creates a new AML buffer entity.
func NewBuffer(tableHandle uint8) *Buffer {
	return &Buffer{Generic: Generic{op: OpBuffer, tableHandle: tableHandle}}
}

// Reference is a symbolic reference to a named object. It is resolved
// relative to Scope when evaluated.
type Reference struct {
	Generic

	Target string
	Scope  Container
}

// NewReference creates a new AML reference entity.
func NewReference(tableHandle uint8, target string, scope Container) *Reference {
	return &Reference{
		Generic: Generic{op: OpReference, tableHandle: tableHandle},
		Target:  target,
		Scope:   scope,
	}
}

// Invocation is a call to a control method.
type Invocation struct {
	Generic

	Target string
	Method *Method
}

// NewInvocation creates a new AML method invocation entity.
func NewInvocation(tableHandle uint8, target string, method *Method, args []interface{}) *Invocation {
	return &Invocation{
		Generic: Generic{op: OpInvocation, tableHandle: tableHandle, Args: args},
		Target:  target,
		Method:  method,
	}
}
