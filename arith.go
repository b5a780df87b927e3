package ilgen

import "github.com/jitil/ilgen/types"

// ArithOp enumerates the binary arithmetic operators. A closed enum plus
// the switch in commonType below replaces a function-pointer table keyed
// by primitive type with a single exhaustive dispatch point.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpShiftL
	OpShiftR
	OpUnsignedShiftR
)

func (op ArithOp) String() string {
	return [...]string{"Add", "Sub", "Mul", "Div", "And", "Or", "Xor", "ShiftL", "ShiftR", "UnsignedShiftR"}[op]
}

// commonType resolves the result type of a two-operand arithmetic op:
// identical types pass through; Add/Sub accept (Address, Int32|Int64)
// with address-arithmetic semantics (the result is the Address type,
// scaled appropriately by the memory layer, not here); every other
// mixed-type combination is a usage error.
func commonType(b identifier, op ArithOp, x, y types.Type) (types.Type, error) {
	if x == y {
		return x, nil
	}
	if op == OpAdd || op == OpSub {
		if x.Kind() == types.Address && y.Kind().IsInteger() {
			return x, nil
		}
		if y.Kind() == types.Address && x.Kind().IsInteger() {
			return y, nil
		}
	}
	return nil, usageErrorf(b, op.String(), "incompatible operand types %s and %s", x, y)
}

// Add emits x + y, widening for address arithmetic.
func (b *Builder) Add(x, y Value) (Value, error) { return b.binArith(OpAdd, x, y) }

// Sub emits x - y.
func (b *Builder) Sub(x, y Value) (Value, error) { return b.binArith(OpSub, x, y) }

// Mul emits x * y.
func (b *Builder) Mul(x, y Value) (Value, error) { return b.binArith(OpMul, x, y) }

// Div emits x / y.
func (b *Builder) Div(x, y Value) (Value, error) { return b.binArith(OpDiv, x, y) }

// And emits x & y.
func (b *Builder) And(x, y Value) (Value, error) { return b.binArith(OpAnd, x, y) }

// Or emits x | y.
func (b *Builder) Or(x, y Value) (Value, error) { return b.binArith(OpOr, x, y) }

// Xor emits x ^ y.
func (b *Builder) Xor(x, y Value) (Value, error) { return b.binArith(OpXor, x, y) }

// ShiftL emits x << y.
func (b *Builder) ShiftL(x, y Value) (Value, error) { return b.binArith(OpShiftL, x, y) }

// ShiftR emits an arithmetic x >> y.
func (b *Builder) ShiftR(x, y Value) (Value, error) { return b.binArith(OpShiftR, x, y) }

// UnsignedShiftR emits a logical x >> y.
func (b *Builder) UnsignedShiftR(x, y Value) (Value, error) {
	return b.binArith(OpUnsignedShiftR, x, y)
}

func (b *Builder) binArith(op ArithOp, x, y Value) (Value, error) {
	t, err := commonType(b, op, x.Type(), y.Type())
	if err != nil {
		return Value{}, err
	}
	n := &node{op: opBinArith, typ: t, args: []*node{x.n, y.n}, arithOp: op}
	result := b.emit(n)
	b.method.observe(op.String(), b.identity(), x, y, result)
	return result, nil
}

// checkedArith backs the AddWithOverflow-style services: it returns the
// arithmetic result and the handler builder (created if nil), not an
// overflow flag. Control transfers to the handler builder along an
// exception edge on overflow.
func (b *Builder) checkedArith(op ArithOp, unsigned bool, x, y Value, handler *Builder) (Value, *Builder, error) {
	t, err := commonType(b, op, x.Type(), y.Type())
	if err != nil {
		return Value{}, nil, err
	}
	if handler == nil {
		handler = b.NewIlBuilder()
	} else if handler.partOfSequence {
		return Value{}, nil, usageErrorf(b, op.String()+"WithOverflow", "handler builder %s is already part of a sequence", handler.identity())
	}
	handler.partOfSequence = true
	n := &node{op: opBinArithOverflow, typ: t, args: []*node{x.n, y.n}, arithOp: op, unsigned: unsigned, overflowTo: handler}
	v := b.emit(n)
	b.currentOpenBlock().addEdgeTo(handler.entryBlock)
	// The handler is spliced into b's own sequence (rather than left
	// dangling off the node) so CountBlocks/Flatten visit its blocks the
	// same way AppendBuilder and the loop builders splice their nested
	// builders.
	b.sequence = append(b.sequence, seqEntry{nested: handler})
	b.method.observe(op.String()+"WithOverflow", b.identity(), x, y, unsigned, handler.identity(), v)
	return v, handler, nil
}

// AddWithOverflow emits a checked add; on overflow, control transfers
// to handler (created if nil) along an exception edge.
func (b *Builder) AddWithOverflow(x, y Value, handler *Builder) (Value, *Builder, error) {
	return b.checkedArith(OpAdd, false, x, y, handler)
}

// AddWithUnsignedOverflow is the unsigned-overflow sibling of AddWithOverflow.
func (b *Builder) AddWithUnsignedOverflow(x, y Value, handler *Builder) (Value, *Builder, error) {
	return b.checkedArith(OpAdd, true, x, y, handler)
}

// SubWithOverflow emits a checked subtract.
func (b *Builder) SubWithOverflow(x, y Value, handler *Builder) (Value, *Builder, error) {
	return b.checkedArith(OpSub, false, x, y, handler)
}

// SubWithUnsignedOverflow is the unsigned-overflow sibling of SubWithOverflow.
func (b *Builder) SubWithUnsignedOverflow(x, y Value, handler *Builder) (Value, *Builder, error) {
	return b.checkedArith(OpSub, true, x, y, handler)
}

// MulWithOverflow emits a checked multiply.
func (b *Builder) MulWithOverflow(x, y Value, handler *Builder) (Value, *Builder, error) {
	return b.checkedArith(OpMul, false, x, y, handler)
}
