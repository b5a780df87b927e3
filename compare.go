package ilgen

import "github.com/jitil/ilgen/types"

// CompareOp enumerates the comparison operators. Every comparison
// yields an Int32 (0 or 1); address operands are widened to the machine
// word first.
type CompareOp int

const (
	OpEqualTo CompareOp = iota
	OpNotEqualTo
	OpLessThan
	OpLessOrEqualTo
	OpGreaterThan
	OpGreaterOrEqualTo
)

func (op CompareOp) String() string {
	return [...]string{"EqualTo", "NotEqualTo", "LessThan", "LessOrEqualTo", "GreaterThan", "GreaterOrEqualTo"}[op]
}

func (b *Builder) compare(op CompareOp, unsigned bool, x, y Value) (Value, error) {
	if x.Type() != y.Type() {
		if x.Type().Kind() != types.Address && y.Type().Kind() != types.Address {
			return Value{}, usageErrorf(b, op.String(), "incomparable operand types %s and %s", x.Type(), y.Type())
		}
	}
	i32 := b.method.dict.Primitive(types.Int32)
	n := &node{op: opCompare, typ: i32, args: []*node{x.n, y.n}, cmpOp: op, unsigned: unsigned}
	result := b.emit(n)
	b.method.observe(op.String(), b.identity(), x, y, unsigned, result)
	return result, nil
}

// EqualTo emits x == y.
func (b *Builder) EqualTo(x, y Value) (Value, error) { return b.compare(OpEqualTo, false, x, y) }

// NotEqualTo emits x != y.
func (b *Builder) NotEqualTo(x, y Value) (Value, error) { return b.compare(OpNotEqualTo, false, x, y) }

// LessThan emits a signed x < y.
func (b *Builder) LessThan(x, y Value) (Value, error) { return b.compare(OpLessThan, false, x, y) }

// LessOrEqualTo emits a signed x <= y.
func (b *Builder) LessOrEqualTo(x, y Value) (Value, error) {
	return b.compare(OpLessOrEqualTo, false, x, y)
}

// GreaterThan emits a signed x > y.
func (b *Builder) GreaterThan(x, y Value) (Value, error) {
	return b.compare(OpGreaterThan, false, x, y)
}

// GreaterOrEqualTo emits a signed x >= y.
func (b *Builder) GreaterOrEqualTo(x, y Value) (Value, error) {
	return b.compare(OpGreaterOrEqualTo, false, x, y)
}

// UnsignedLessThan emits an unsigned x < y.
func (b *Builder) UnsignedLessThan(x, y Value) (Value, error) { return b.compare(OpLessThan, true, x, y) }

// UnsignedLessOrEqualTo emits an unsigned x <= y.
func (b *Builder) UnsignedLessOrEqualTo(x, y Value) (Value, error) {
	return b.compare(OpLessOrEqualTo, true, x, y)
}

// UnsignedGreaterThan emits an unsigned x > y.
func (b *Builder) UnsignedGreaterThan(x, y Value) (Value, error) {
	return b.compare(OpGreaterThan, true, x, y)
}

// UnsignedGreaterOrEqualTo emits an unsigned x >= y.
func (b *Builder) UnsignedGreaterOrEqualTo(x, y Value) (Value, error) {
	return b.compare(OpGreaterOrEqualTo, true, x, y)
}
