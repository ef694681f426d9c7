package aml

import (
	"bytes"

	"github.com/mwg2202/os/device/acpi/aml/entity"
	"github.com/mwg2202/os/kernel/kfmt"
)

// evalExpr evaluates a statement or expression entity.
func (c *Context) evalExpr(ctx *execContext, expr *entity.Generic) (interface{}, *Error) {
	op := expr.Opcode()
	args := expr.Args

	switch {
	case entity.OpIsLocal(op):
		if v := ctx.locals[op-entity.OpLocal0]; v != nil {
			return v, nil
		}
		return nil, newError(errUninitializedValue)
	case entity.OpIsArg(op):
		if v := ctx.args[op-entity.OpArg0]; v != nil {
			return v, nil
		}
		return nil, newError(errUninitializedValue)
	}

	switch op {
	case entity.OpStore:
		v, err := c.evalArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return v, c.store(ctx, v, args[1])
	case entity.OpAdd, entity.OpSubtract, entity.OpMultiply, entity.OpShiftLeft,
		entity.OpShiftRight, entity.OpAnd, entity.OpNand, entity.OpOr, entity.OpNor,
		entity.OpXor, entity.OpMod:
		return c.evalBinaryOp(ctx, op, args)
	case entity.OpDivide:
		return c.evalDivide(ctx, args)
	case entity.OpNot, entity.OpToInteger:
		v, err := c.evalInteger(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if op == entity.OpNot {
			v = ^v & c.intMask
		}
		return v, c.store(ctx, v, args[1])
	case entity.OpIncrement, entity.OpDecrement:
		v, err := c.evalInteger(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if op == entity.OpIncrement {
			v++
		} else {
			v--
		}
		v &= c.intMask
		return v, c.store(ctx, v, args[0])
	case entity.OpLand, entity.OpLor:
		a, err := c.evalInteger(ctx, args[0])
		if err != nil {
			return nil, err
		}
		b, err := c.evalInteger(ctx, args[1])
		if err != nil {
			return nil, err
		}
		if op == entity.OpLand {
			return c.boolValue(a != 0 && b != 0), nil
		}
		return c.boolValue(a != 0 || b != 0), nil
	case entity.OpLnot:
		v, err := c.evalInteger(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return c.boolValue(v == 0), nil
	case entity.OpLEqual, entity.OpLGreater, entity.OpLLess:
		return c.evalCompare(ctx, op, args)
	case entity.OpConcat:
		return c.evalConcat(ctx, args)
	case entity.OpSizeOf:
		return c.evalSizeOf(ctx, args[0])
	case entity.OpIndex:
		return c.evalIndex(ctx, args)
	case entity.OpDerefOf:
		return c.evalDerefOf(ctx, args[0])
	case entity.OpRefOf:
		ent, err := c.superNameRef(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return &objRef{ent: ent}, nil
	case entity.OpCondRefOf:
		ent, err := c.superNameRef(ctx, args[0])
		if err != nil {
			return uint64(0), nil
		}
		return c.ones(), c.store(ctx, &objRef{ent: ent}, args[1])
	case entity.OpReturn:
		v, err := c.evalArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		ctx.retVal, ctx.ctrlFlow = deref(v), ctrlFlowReturn
		return v, nil
	case entity.OpBreak:
		ctx.ctrlFlow = ctrlFlowBreak
		return nil, nil
	case entity.OpContinue:
		ctx.ctrlFlow = ctrlFlowContinue
		return nil, nil
	case entity.OpNoop:
		return nil, nil
	case entity.OpRevision:
		return uint64(interpreterRevision), nil
	case entity.OpNotify:
		ent, err := c.superNameRef(ctx, args[0])
		if err != nil {
			return nil, err
		}
		v, err := c.evalInteger(ctx, args[1])
		if err != nil {
			return nil, err
		}
		kfmt.Fprintf(c.log, "notify %s: 0x%x\n", entity.Path(ent), v)
		return nil, nil
	case entity.OpSleep, entity.OpStall:
		// There is no timer during boot; delays are skipped.
		_, err := c.evalInteger(ctx, args[0])
		return nil, err
	case entity.OpAcquire, entity.OpRelease:
		return c.evalMutexOp(ctx, op, args[0])
	case entity.OpSignal, entity.OpReset:
		_, err := c.superNameRef(ctx, args[0])
		return nil, err
	case entity.OpWait:
		if _, err := c.superNameRef(ctx, args[0]); err != nil {
			return nil, err
		}
		return uint64(0), nil
	}

	return nil, newError(errUnsupportedOpcode)
}

func (c *Context) evalBinaryOp(ctx *execContext, op entity.Opcode, args []interface{}) (interface{}, *Error) {
	a, err := c.evalInteger(ctx, args[0])
	if err != nil {
		return nil, err
	}

	b, err := c.evalInteger(ctx, args[1])
	if err != nil {
		return nil, err
	}

	var res uint64
	switch op {
	case entity.OpAdd:
		res = a + b
	case entity.OpSubtract:
		res = a - b
	case entity.OpMultiply:
		res = a * b
	case entity.OpShiftLeft:
		if b < 64 {
			res = a << b
		}
	case entity.OpShiftRight:
		if b < 64 {
			res = a >> b
		}
	case entity.OpAnd:
		res = a & b
	case entity.OpNand:
		res = ^(a & b)
	case entity.OpOr:
		res = a | b
	case entity.OpNor:
		res = ^(a | b)
	case entity.OpXor:
		res = a ^ b
	case entity.OpMod:
		if b == 0 {
			return nil, newError(errDivideByZero)
		}
		res = a % b
	}

	res &= c.intMask
	return res, c.store(ctx, res, args[2])
}

// evalDivide implements Divide(dividend, divisor, remainder, result).
func (c *Context) evalDivide(ctx *execContext, args []interface{}) (interface{}, *Error) {
	a, err := c.evalInteger(ctx, args[0])
	if err != nil {
		return nil, err
	}

	b, err := c.evalInteger(ctx, args[1])
	if err != nil {
		return nil, err
	}

	if b == 0 {
		return nil, newError(errDivideByZero)
	}

	if err = c.store(ctx, a%b, args[2]); err != nil {
		return nil, err
	}

	return a / b, c.store(ctx, a/b, args[3])
}

// evalCompare implements the relational operators. Strings and buffers are
// compared lexicographically; everything else is compared as integers.
func (c *Context) evalCompare(ctx *execContext, op entity.Opcode, args []interface{}) (interface{}, *Error) {
	a, err := c.evalArg(ctx, args[0])
	if err != nil {
		return nil, err
	}

	b, err := c.evalArg(ctx, args[1])
	if err != nil {
		return nil, err
	}

	var cmp int
	switch av := deref(a).(type) {
	case string:
		bv, err := toString(b)
		if err != nil {
			return nil, err
		}
		cmp = bytes.Compare([]byte(av), []byte(bv))
	case []byte:
		bv, err := toBuffer(b, c.intBytes())
		if err != nil {
			return nil, err
		}
		cmp = bytes.Compare(av, bv)
	default:
		ai, err := toInteger(av, c.intMask)
		if err != nil {
			return nil, err
		}
		bi, err := toInteger(b, c.intMask)
		if err != nil {
			return nil, err
		}
		switch {
		case ai < bi:
			cmp = -1
		case ai > bi:
			cmp = 1
		}
	}

	switch op {
	case entity.OpLEqual:
		return c.boolValue(cmp == 0), nil
	case entity.OpLGreater:
		return c.boolValue(cmp > 0), nil
	default:
		return c.boolValue(cmp < 0), nil
	}
}

// evalConcat joins two strings or buffers. Integers are converted to
// buffers.
func (c *Context) evalConcat(ctx *execContext, args []interface{}) (interface{}, *Error) {
	a, err := c.evalArg(ctx, args[0])
	if err != nil {
		return nil, err
	}

	b, err := c.evalArg(ctx, args[1])
	if err != nil {
		return nil, err
	}

	var res interface{}
	if as, ok := deref(a).(string); ok {
		bs, err := toString(b)
		if err != nil {
			return nil, err
		}
		res = as + bs
	} else {
		ab, err := toBuffer(a, c.intBytes())
		if err != nil {
			return nil, err
		}
		bb, err := toBuffer(b, c.intBytes())
		if err != nil {
			return nil, err
		}
		res = append(append([]byte(nil), ab...), bb...)
	}

	return res, c.store(ctx, res, args[2])
}

func (c *Context) evalSizeOf(ctx *execContext, arg interface{}) (interface{}, *Error) {
	v, err := c.evalArg(ctx, arg)
	if err != nil {
		return nil, err
	}

	switch tv := deref(v).(type) {
	case string:
		return uint64(len(tv)), nil
	case []byte:
		return uint64(len(tv)), nil
	case []interface{}:
		return uint64(len(tv)), nil
	}

	return nil, newError(errTypeMismatch)
}

// evalIndex implements Index(source, index, target). The result refers to
// the selected package element or buffer byte.
func (c *Context) evalIndex(ctx *execContext, args []interface{}) (interface{}, *Error) {
	src, err := c.evalArg(ctx, args[0])
	if err != nil {
		return nil, err
	}

	index, err := c.evalInteger(ctx, args[1])
	if err != nil {
		return nil, err
	}

	var ref *elemRef
	switch sv := deref(src).(type) {
	case []interface{}:
		if index >= uint64(len(sv)) {
			return nil, newError(errIndexOutOfBounds)
		}
		ref = &elemRef{pkg: sv, index: int(index)}
	case []byte:
		if index >= uint64(len(sv)) {
			return nil, newError(errIndexOutOfBounds)
		}
		ref = &elemRef{buf: sv, index: int(index)}
	case string:
		if index >= uint64(len(sv)) {
			return nil, newError(errIndexOutOfBounds)
		}
		ref = &elemRef{buf: []byte(sv), index: int(index)}
	default:
		return nil, newError(errTypeMismatch)
	}

	if args[2] != nil {
		if err = c.store(ctx, ref, args[2]); err != nil {
			return nil, err
		}
	}

	return ref, nil
}

// evalDerefOf returns the object a reference points to.
func (c *Context) evalDerefOf(ctx *execContext, arg interface{}) (interface{}, *Error) {
	v, err := c.evalArg(ctx, arg)
	if err != nil {
		return nil, err
	}

	switch ref := v.(type) {
	case *elemRef:
		val := ref.get()
		if pkgRef, isRef := val.(*entity.Reference); isRef {
			return c.evalArg(ctx, pkgRef)
		}
		return val, nil
	case *objRef:
		return c.readObject(ctx, ref.ent)
	case *entity.Reference:
		return c.evalArg(ctx, ref)
	}

	return nil, newError(errTypeMismatch)
}

// evalMutexOp implements Acquire and Release. Acquire returns Ones when the
// mutex is already held, which AML code treats as a timeout.
func (c *Context) evalMutexOp(ctx *execContext, op entity.Opcode, arg interface{}) (interface{}, *Error) {
	ent, err := c.superNameRef(ctx, arg)
	if err != nil {
		return nil, err
	}

	mutex, ok := ent.(*entity.Mutex)
	if !ok {
		return nil, newError(errTypeMismatch)
	}

	if op == entity.OpRelease {
		mutex.Held = false
		return nil, nil
	}

	if mutex.Held {
		return c.ones(), nil
	}

	mutex.Held = true
	return uint64(0), nil
}
