package entity

import "strings"

// FindInScope looks up name using the ACPI namespace search rules. Absolute
// paths (`\FOO.BAR`) are looked up from rootScope and paths with parent
// prefixes (`^FOO`) from the matching ancestor of curScope. A single
// relative NameSeg is searched for in curScope and then in each of its
// ancestors; relative paths with more than one segment are only looked up
// relative to curScope.
func FindInScope(curScope, rootScope Container, name string) Entity {
	if len(name) == 0 || curScope == nil {
		return nil
	}

	switch {
	case name[0] == '\\':
		if len(name) == 1 {
			return rootScope
		}
		return findRelativeToScope(rootScope, name[1:])
	case name[0] == '^':
		for index := 0; index < len(name); index++ {
			if name[index] != '^' {
				return findRelativeToScope(curScope, name[index:])
			}

			if curScope = curScope.Parent(); curScope == nil {
				return nil
			}
		}

		return curScope
	case strings.IndexByte(name, '.') != -1:
		return findRelativeToScope(curScope, name)
	}

	for s := curScope; s != nil; s = s.Parent() {
		if child := findChild(s, name); child != nil {
			return child
		}
	}

	return nil
}

// ResolveScopedPath splits a path expression into a parent scope and the
// name of a child inside it. The parent is looked up with FindInScope; if it
// cannot be found or is not a Container, ResolveScopedPath returns nil, "".
func ResolveScopedPath(curScope, rootScope Container, expr string) (Container, string) {
	if len(expr) == 0 || expr == `\` {
		return nil, ""
	}

	var parentExpr, name string
	if lastDot := strings.LastIndexByte(expr, '.'); lastDot != -1 {
		parentExpr, name = expr[:lastDot], expr[lastDot+1:]
	} else {
		switch expr[0] {
		case '\\':
			return rootScope, expr[1:]
		case '^':
			lastHat := strings.LastIndexByte(expr, '^')
			parentExpr, name = expr[:lastHat+1], expr[lastHat+1:]
		default:
			return curScope, expr
		}
	}

	if parent, ok := FindInScope(curScope, rootScope, parentExpr).(Container); ok {
		return parent, name
	}

	return nil, ""
}

// NormalizePath converts a user supplied path such as `\_SB.PCI0._S5` into
// the form used inside the namespace by padding each segment to four
// characters with trailing underscores.
func NormalizePath(path string) string {
	var prefix int
	for prefix < len(path) && (path[prefix] == '\\' || path[prefix] == '^') {
		prefix++
	}

	if prefix == len(path) {
		return path
	}

	segments := strings.Split(strings.ToUpper(path[prefix:]), ".")
	for index, seg := range segments {
		if len(seg) < 4 {
			segments[index] = seg + strings.Repeat("_", 4-len(seg))
		}
	}

	return path[:prefix] + strings.Join(segments, ".")
}

// Path returns the absolute path of ent, e.g. `\_SB_.PCI0._INI`.
func Path(ent Entity) string {
	var segments []string
	for cur := ent; cur != nil; cur = cur.Parent() {
		if cur.Parent() == nil {
			break
		}

		if name := cur.Name(); name != "" {
			segments = append(segments, name)
		}
	}

	var sb strings.Builder
	sb.WriteByte('\\')
	for index := len(segments) - 1; index >= 0; index-- {
		sb.WriteString(segments[index])
		if index != 0 {
			sb.WriteByte('.')
		}
	}

	return sb.String()
}

func findRelativeToScope(ns Container, path string) Entity {
	for {
		dot := strings.IndexByte(path, '.')
		if dot == -1 {
			return findChild(ns, path)
		}

		next, ok := findChild(ns, path[:dot]).(Container)
		if !ok {
			return nil
		}

		ns, path = next, path[dot+1:]
	}
}

// findChild returns the most recently declared child called name. Later
// declarations (e.g. from an SSDT) shadow earlier ones.
func findChild(ns Container, name string) Entity {
	children := ns.Children()
	for index := len(children) - 1; index >= 0; index-- {
		if children[index].Name() == name {
			return children[index]
		}
	}

	return nil
}
