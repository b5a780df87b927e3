package ilgen

import "github.com/jitil/ilgen/types"

func (b *Builder) constOf(typ types.Type, v any) Value {
	n := &node{op: opConst, typ: typ, constVal: v}
	result := b.emit(n)
	b.method.observe("Const", b.identity(), typ, v, result)
	return result
}

// ConstInt8 emits a literal Int8.
func (b *Builder) ConstInt8(v int8) Value { return b.constOf(b.method.dict.Primitive(types.Int8), v) }

// ConstInt16 emits a literal Int16.
func (b *Builder) ConstInt16(v int16) Value {
	return b.constOf(b.method.dict.Primitive(types.Int16), v)
}

// ConstInt32 emits a literal Int32.
func (b *Builder) ConstInt32(v int32) Value {
	return b.constOf(b.method.dict.Primitive(types.Int32), v)
}

// ConstInt64 emits a literal Int64.
func (b *Builder) ConstInt64(v int64) Value {
	return b.constOf(b.method.dict.Primitive(types.Int64), v)
}

// ConstFloat emits a literal Float.
func (b *Builder) ConstFloat(v float32) Value {
	return b.constOf(b.method.dict.Primitive(types.Float), v)
}

// ConstDouble emits a literal Double.
func (b *Builder) ConstDouble(v float64) Value {
	return b.constOf(b.method.dict.Primitive(types.Double), v)
}

// ConstString emits a literal string address.
func (b *Builder) ConstString(v string) Value {
	return b.constOf(b.method.dict.Primitive(types.Address), v)
}

// ConstAddress emits a literal address (e.g. a resolved symbol's
// location).
func (b *Builder) ConstAddress(v uintptr) Value {
	return b.constOf(b.method.dict.Primitive(types.Address), v)
}

// NullAddress emits the null address constant.
func (b *Builder) NullAddress() Value {
	return b.constOf(b.method.dict.Primitive(types.Address), uintptr(0))
}

// ConstInteger emits an integer literal of the requested kind,
// dispatching to the matching Const* form; typ must be one of
// Int8/Int16/Int32/Int64.
func (b *Builder) ConstInteger(typ types.Type, v int64) (Value, error) {
	switch typ.Kind() {
	case types.Int8:
		return b.ConstInt8(int8(v)), nil
	case types.Int16:
		return b.ConstInt16(int16(v)), nil
	case types.Int32:
		return b.ConstInt32(int32(v)), nil
	case types.Int64:
		return b.ConstInt64(v), nil
	default:
		return Value{}, usageErrorf(b, "ConstInteger", "not an integer kind: %s", typ)
	}
}
