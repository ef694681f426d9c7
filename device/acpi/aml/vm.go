package aml

import (
	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/kernel/kfmt"
)

const (
	maxCallDepth      = 32
	maxLoopIterations = 0xffff

	// interpreterRevision is returned by the Revision opcode.
	interpreterRevision = 1
)

type ctrlFlow uint8

const (
	ctrlFlowNext ctrlFlow = iota
	ctrlFlowBreak
	ctrlFlowContinue
	ctrlFlowReturn
)

// execContext holds the state of a single method activation.
type execContext struct {
	method *entity.Method
	depth  int

	locals [8]interface{}
	args   [7]interface{}

	retVal   interface{}
	ctrlFlow ctrlFlow

	// failedOp is the opcode of the innermost statement that returned an
	// error.
	failedOp entity.Opcode
	failed   bool
}

// execMethod runs m with the supplied arguments and returns its result.
func (c *Context) execMethod(m *entity.Method, args []interface{}, depth int) (interface{}, *Error) {
	if depth >= maxCallDepth {
		return nil, newError(errCallDepth).push(entity.Path(m), entity.OpMethod)
	}

	if len(args) != int(m.ArgCount) {
		return nil, newError(errArgCount).push(entity.Path(m), entity.OpMethod)
	}

	if m.Native != nil {
		return m.Native(args), nil
	}

	if !m.BodyParsed {
		return nil, newError(errMethodBodyUnparsed).push(entity.Path(m), entity.OpMethod)
	}

	ctx := &execContext{method: m, depth: depth}
	copy(ctx.args[:], args)

	if err := c.execBlock(ctx, m.Children()); err != nil {
		return nil, err.push(entity.Path(m), ctx.failedOp)
	}

	return ctx.retVal, nil
}

// execBlock executes a list of statements until it runs out of statements
// or a Break, Continue or Return changes the control flow.
func (c *Context) execBlock(ctx *execContext, stmts []entity.Entity) *Error {
	for _, stmt := range stmts {
		var err *Error
		switch op := stmt.Opcode(); op {
		case entity.OpIf:
			err = c.execIf(ctx, stmt.(*entity.Generic))
		case entity.OpWhile:
			err = c.execWhile(ctx, stmt.(*entity.Generic))
		case entity.OpName, entity.OpMethod, entity.OpMutex, entity.OpEvent,
			entity.OpOpRegion, entity.OpFieldUnit, entity.OpAlias,
			entity.OpDevice, entity.OpProcessor, entity.OpPowerRes, entity.OpThermalZone:
			// declarations are handled by the parser
		default:
			_, err = c.evalArg(ctx, stmt)
		}

		if err != nil {
			if !ctx.failed {
				ctx.failed, ctx.failedOp = true, stmt.Opcode()
			}
			return err
		}

		if ctx.ctrlFlow != ctrlFlowNext {
			return nil
		}
	}

	return nil
}

func (c *Context) execIf(ctx *execContext, stmt *entity.Generic) *Error {
	pred, err := c.evalInteger(ctx, stmt.Args[0])
	if err != nil {
		return err
	}

	switch {
	case pred != 0:
		return c.execBlock(ctx, stmt.Args[1].(*entity.Scope).Children())
	case len(stmt.Args) == 3:
		return c.execBlock(ctx, stmt.Args[2].(*entity.Scope).Children())
	}

	return nil
}

func (c *Context) execWhile(ctx *execContext, stmt *entity.Generic) *Error {
	body := stmt.Args[1].(*entity.Scope).Children()
	for iteration := 0; ; iteration++ {
		if iteration == maxLoopIterations {
			return newError(errLoopLimit)
		}

		pred, err := c.evalInteger(ctx, stmt.Args[0])
		if err != nil {
			return err
		}

		if pred == 0 {
			return nil
		}

		if err = c.execBlock(ctx, body); err != nil {
			return err
		}

		switch ctx.ctrlFlow {
		case ctrlFlowBreak:
			ctx.ctrlFlow = ctrlFlowNext
			return nil
		case ctrlFlowContinue:
			ctx.ctrlFlow = ctrlFlowNext
		case ctrlFlowReturn:
			return nil
		}
	}
}

// evalArg evaluates an operand produced by the parser.
func (c *Context) evalArg(ctx *execContext, arg interface{}) (interface{}, *Error) {
	switch v := arg.(type) {
	case uint64:
		return v & c.intMask, nil
	case string, []byte, []interface{}, *objRef, *elemRef:
		return v, nil
	case *entity.Buffer:
		return c.evalBuffer(ctx, v)
	case *entity.Package:
		return c.evalPackage(ctx, v)
	case *entity.Reference:
		ent, err := c.resolve(v)
		if err != nil {
			return nil, err
		}
		return c.readObject(ctx, ent)
	case *entity.Invocation:
		return c.evalInvocation(ctx, v)
	case *entity.Generic:
		return c.evalExpr(ctx, v)
	case nil:
		return nil, newError(errUninitializedValue)
	}

	return nil, newError(errTypeMismatch)
}

func (c *Context) evalInteger(ctx *execContext, arg interface{}) (uint64, *Error) {
	v, err := c.evalArg(ctx, arg)
	if err != nil {
		return 0, err
	}
	return toInteger(v, c.intMask)
}

func (c *Context) evalInvocation(ctx *execContext, inv *entity.Invocation) (interface{}, *Error) {
	args := make([]interface{}, len(inv.Args))
	for index, arg := range inv.Args {
		v, err := c.evalArg(ctx, arg)
		if err != nil {
			return nil, err
		}
		args[index] = copyValue(deref(v))
	}

	return c.execMethod(inv.Method, args, ctx.depth+1)
}

// evalBuffer materializes a buffer whose size may exceed its initializer.
func (c *Context) evalBuffer(ctx *execContext, buf *entity.Buffer) ([]byte, *Error) {
	size, err := c.evalInteger(ctx, buf.Size)
	if err != nil {
		return nil, err
	}

	if size < uint64(len(buf.Data)) {
		size = uint64(len(buf.Data))
	}

	data := make([]byte, size)
	copy(data, buf.Data)
	return data, nil
}

// evalPackage materializes a package. Name references inside the package
// are kept as *entity.Reference values.
func (c *Context) evalPackage(ctx *execContext, pkg *entity.Package) ([]interface{}, *Error) {
	numElements, err := c.evalInteger(ctx, pkg.NumElements)
	if err != nil {
		return nil, err
	}

	if numElements < uint64(len(pkg.Elements)) {
		numElements = uint64(len(pkg.Elements))
	}

	out := make([]interface{}, numElements)
	for index, elem := range pkg.Elements {
		if ref, isRef := elem.(*entity.Reference); isRef {
			out[index] = ref
			continue
		}

		if out[index], err = c.evalArg(ctx, elem); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// resolve looks up the object a reference points to following aliases.
func (c *Context) resolve(ref *entity.Reference) (entity.Entity, *Error) {
	ent := entity.FindInScope(ref.Scope, c.root, ref.Target)
	for hops := 0; ent != nil && hops < maxCallDepth; hops++ {
		alias, isAlias := ent.(*entity.Alias)
		if !isAlias {
			return ent, nil
		}
		ent = entity.FindInScope(alias.Parent(), c.root, alias.Target)
	}

	return nil, newError(errUnresolvedReference)
}

// readObject returns the value of a namespace object.
func (c *Context) readObject(ctx *execContext, ent entity.Entity) (interface{}, *Error) {
	switch obj := ent.(type) {
	case *entity.Name:
		switch v := obj.Value.(type) {
		case *entity.Buffer, *entity.Package:
			val, err := c.evalArg(ctx, v)
			if err != nil {
				return nil, err
			}
			obj.Value = val
		}
		return c.evalArg(ctx, obj.Value)
	case *entity.FieldUnit:
		return c.readField(obj)
	case *entity.Method:
		if obj.ArgCount == 0 {
			return c.execMethod(obj, nil, ctx.depth+1)
		}
	case *entity.Alias:
		target, err := c.resolve(entity.NewReference(obj.TableHandle(), obj.Target, obj.Parent()))
		if err != nil {
			return nil, err
		}
		return c.readObject(ctx, target)
	}

	return &objRef{ent: ent}, nil
}

// writeObject stores v into a namespace object. Stores to named integers,
// strings and buffers convert v to the type of the existing value.
func (c *Context) writeObject(ent entity.Entity, v interface{}) *Error {
	v = deref(v)

	switch obj := ent.(type) {
	case *entity.Name:
		var err *Error
		switch obj.Value.(type) {
		case uint64:
			v, err = toInteger(v, c.intMask)
		case string:
			v, err = toString(v)
		case []byte:
			v, err = toBuffer(v, c.intBytes())
		}

		if err != nil {
			return err
		}
		obj.Value = copyValue(v)
		return nil
	case *entity.FieldUnit:
		iv, err := toInteger(v, ^uint64(0))
		if err != nil {
			return err
		}
		return c.writeField(obj, iv)
	case *entity.Alias:
		target, err := c.resolve(entity.NewReference(obj.TableHandle(), obj.Target, obj.Parent()))
		if err != nil {
			return err
		}
		return c.writeObject(target, v)
	}

	return newError(errInvalidStoreTarget)
}

// store implements the semantics of storing v into a SuperName or Target.
func (c *Context) store(ctx *execContext, v interface{}, target interface{}) *Error {
	switch t := target.(type) {
	case nil:
		return nil
	case *entity.Reference:
		ent, err := c.resolve(t)
		if err != nil {
			return err
		}
		return c.writeObject(ent, v)
	case *entity.Generic:
		op := t.Opcode()
		switch {
		case entity.OpIsLocal(op):
			ctx.locals[op-entity.OpLocal0] = copyValue(v)
			return nil
		case entity.OpIsArg(op):
			index := op - entity.OpArg0
			switch ref := ctx.args[index].(type) {
			case *objRef:
				return c.writeObject(ref.ent, v)
			case *elemRef:
				return ref.set(deref(v))
			}
			ctx.args[index] = copyValue(v)
			return nil
		case op == entity.OpDebug:
			kfmt.Fprintf(c.log, "debug: %s\n", FormatValue(deref(v)))
			return nil
		case op == entity.OpIndex || op == entity.OpRefOf:
			ref, err := c.evalArg(ctx, t)
			if err != nil {
				return err
			}
			return c.storeToRef(ref, v)
		case op == entity.OpDerefOf:
			ref, err := c.evalArg(ctx, t.Args[0])
			if err != nil {
				return err
			}
			return c.storeToRef(ref, v)
		}
	}

	return newError(errInvalidStoreTarget)
}

func (c *Context) storeToRef(ref interface{}, v interface{}) *Error {
	switch r := ref.(type) {
	case *elemRef:
		return r.set(deref(v))
	case *objRef:
		return c.writeObject(r.ent, v)
	}

	return newError(errInvalidStoreTarget)
}

// superNameRef returns the object a SuperName refers to without evaluating
// it.
func (c *Context) superNameRef(ctx *execContext, arg interface{}) (entity.Entity, *Error) {
	if ref, ok := arg.(*entity.Reference); ok {
		return c.resolve(ref)
	}

	v, err := c.evalArg(ctx, arg)
	if err != nil {
		return nil, err
	}

	if ref, ok := v.(*objRef); ok {
		return ref.ent, nil
	}

	return nil, newError(errTypeMismatch)
}

// ones returns the value of the Ones constant for the active integer width.
func (c *Context) ones() uint64 { return c.intMask }

// intBytes returns the size of an integer in bytes.
func (c *Context) intBytes() int {
	if c.intMask == 0xffffffff {
		return 4
	}
	return 8
}

func (c *Context) boolValue(b bool) uint64 {
	if b {
		return c.ones()
	}
	return 0
}
