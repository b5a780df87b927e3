package types

// Dictionary interns primitive types, memoizes pointer types by base
// type, and tracks every struct/union it has created so their field
// symbol-reference caches can be invalidated in bulk at the end of a
// compilation. One Dictionary is normally shared (read-only, once
// populated) across several concurrent compilations, each of which
// touches only these immutable, already-interned types.
type Dictionary struct {
	primitives map[Kind]*Primitive
	pointers   map[Type]*Pointer
	structs    []*Struct
	unions     []*Union
}

// NewDictionary returns a Dictionary with every primitive kind interned.
func NewDictionary() *Dictionary {
	d := &Dictionary{
		primitives: make(map[Kind]*Primitive, len(primitiveSizes)),
		pointers:   make(map[Type]*Pointer),
	}
	for k, size := range primitiveSizes {
		d.primitives[k] = &Primitive{kind: k, size: size}
	}
	return d
}

// Primitive returns the interned Type for kind.
func (d *Dictionary) Primitive(kind Kind) Type {
	return d.primitives[kind]
}

// PointerTo returns the (memoized) pointer-to-elem type.
func (d *Dictionary) PointerTo(elem Type) *Pointer {
	if p, ok := d.pointers[elem]; ok {
		return p
	}
	p := &Pointer{elem: elem, size: d.primitives[Address].size}
	d.pointers[elem] = p
	return p
}

// WordSize returns the size in bytes of the Address primitive, i.e. the
// target machine word size (4 or 8).
func (d *Dictionary) WordSize() int64 {
	return d.primitives[Address].size
}

// SetWordSize reconfigures the Address primitive (and therefore every
// pointer type's size) for a 32- or 64-bit target. Must be called, if at
// all, before any pointer types are created.
func (d *Dictionary) SetWordSize(bytes int64) {
	d.primitives[Address] = &Primitive{kind: Address, size: bytes}
}

// InvalidateFieldCaches clears every struct/union field's cached symbol
// reference. The core calls this once, at the end of a compilation.
func (d *Dictionary) InvalidateFieldCaches() {
	for _, s := range d.structs {
		for _, f := range s.fields {
			f.symRef = nil
		}
	}
	for _, u := range d.unions {
		for _, f := range u.fields {
			f.symRef = nil
		}
	}
}
