package entity

// Visitor is invoked by Visit for each entity that matches a particular
// type. The return value controls whether the children of the entity are
// also visited.
type Visitor func(depth int, ent Entity) (keepRecursing bool)

// Type selects the entities that a visitor is invoked for.
type Type uint8

// The list of supported Type values. TypeAny matches every entity.
const (
	TypeAny Type = iota
	TypeDevice
	TypeMethod
	TypeName
	TypeRegion
	TypeFieldUnit
)

func (t Type) matches(ent Entity) bool {
	switch t {
	case TypeDevice:
		return ent.Opcode() == OpDevice
	case TypeMethod:
		return ent.Opcode() == OpMethod
	case TypeName:
		return ent.Opcode() == OpName
	case TypeRegion:
		return ent.Opcode() == OpOpRegion
	case TypeFieldUnit:
		return ent.Opcode() == OpFieldUnit
	default:
		return true
	}
}

// Visit descends the namespace rooted at ent depth-first and invokes
// visitorFn for each entity that matches entType. Method bodies are not
// descended into.
func Visit(depth int, ent Entity, entType Type, visitorFn Visitor) {
	if entType.matches(ent) && !visitorFn(depth, ent) {
		return
	}

	if ent.Opcode() == OpMethod {
		return
	}

	if container, ok := ent.(Container); ok {
		for _, child := range container.Children() {
			Visit(depth+1, child, entType, visitorFn)
		}
	}
}
