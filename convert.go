package ilgen

import "github.com/jitil/ilgen/types"

// legalConversion reports whether a conversion from src to dst is
// something the core's IR surface can lower. Vectors only convert to
// same-width vectors; everything else is scalar-to-scalar.
func legalConversion(src, dst types.Type) bool {
	if src.Kind().IsVector() != dst.Kind().IsVector() {
		return false
	}
	if dst.Kind() == types.NoType || src.Kind() == types.NoType {
		return false
	}
	return true
}

// ConvertTo converts v to typ. If v is already of type typ, it is
// returned bit-identical with no IR emitted.
func (b *Builder) ConvertTo(typ types.Type, v Value) (Value, error) {
	return b.convert(typ, v, false)
}

// UnsignedConvertTo is the unsigned-widening sibling of ConvertTo.
func (b *Builder) UnsignedConvertTo(typ types.Type, v Value) (Value, error) {
	return b.convert(typ, v, true)
}

func (b *Builder) convert(typ types.Type, v Value, unsigned bool) (Value, error) {
	if v.Type() == typ {
		return v, nil
	}
	if !legalConversion(v.Type(), typ) {
		return Value{}, usageErrorf(b, "ConvertTo", "illegal conversion from %s to %s", v.Type(), typ)
	}
	n := &node{op: opConvert, typ: typ, args: []*node{v.n}, unsigned: unsigned}
	result := b.emit(n)
	event := "ConvertTo"
	if unsigned {
		event = "UnsignedConvertTo"
	}
	b.method.observe(event, b.identity(), typ, v, result)
	return result, nil
}
