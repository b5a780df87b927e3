package types

import "fmt"

// Field is a named member of a Struct or Union. Fields may lazily cache
// a symbol reference used by the core when it emits loads/stores against
// the field; the cache is opaque to this package and is invalidated by
// Dictionary.InvalidateFieldCaches at the end of a compilation.
type Field struct {
	Name   string
	Type   Type
	Offset int64

	symRef any
}

// SymRef returns the field's cached symbol reference, or nil if none has
// been set yet.
func (f *Field) SymRef() any { return f.symRef }

// SetSymRef caches a symbol reference for later loads/stores against
// this field. The core calls this the first time it emits a
// LoadIndirect/StoreIndirect against the field.
func (f *Field) SetSymRef(ref any) { f.symRef = ref }

// aggregate is the shared representation behind Struct and Union: both
// are ordered field lists with a total size and a closed flag. A union
// differs only in how offsets and size are computed (see Union.AddField
// and Union.Close).
type aggregate struct {
	name   string
	fields []*Field
	size   int64
	closed bool
}

func (a *aggregate) NumFields() int { return len(a.fields) }
func (a *aggregate) Field(i int) *Field {
	return a.fields[i]
}

// FieldNamed returns the field named name, or nil if no such field
// exists.
func (a *aggregate) FieldNamed(name string) *Field {
	for _, f := range a.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (a *aggregate) String() string { return a.name }

func align(offset, alignment int64) int64 {
	if alignment <= 1 {
		return offset
	}
	if r := offset % alignment; r != 0 {
		return offset + (alignment - r)
	}
	return offset
}

// Struct is an ordered list of named fields with explicit or
// auto-computed offsets, a total size, and a closed flag that forbids
// further additions once set.
type Struct struct {
	aggregate
}

// NewStruct declares a new, empty, non-closed struct type named name.
func (d *Dictionary) NewStruct(name string) *Struct {
	s := &Struct{aggregate{name: name}}
	d.structs = append(d.structs, s)
	return s
}

func (s *Struct) Kind() Kind       { return NoType }
func (s *Struct) Size() int64      { return s.size }
func (s *Struct) Alignment() int64 { return 8 }

// AddField adds a field named name of type typ to the struct. If
// offset is negative, the field is placed at the next naturally-aligned
// offset after the current size. An explicit non-negative offset must
// be >= the struct's current size. AddField on a closed struct is a
// silent no-op.
func (s *Struct) AddField(name string, typ Type, offset int64) error {
	if s.closed {
		return nil
	}
	if offset < 0 {
		offset = align(s.size, typ.Alignment())
	} else if offset < s.size {
		return fmt.Errorf("types: field %q of %q at offset %d precedes current size %d", name, s.name, offset, s.size)
	}
	s.fields = append(s.fields, &Field{Name: name, Type: typ, Offset: offset})
	if end := offset + typ.Size(); end > s.size {
		s.size = end
	}
	return nil
}

// Close finalizes the struct's layout. size is a hint; the final size
// is max(size, the computed minimum from fields). Closing an
// already-closed struct is a silent no-op.
func (s *Struct) Close(size int64) {
	if s.closed {
		return
	}
	if size > s.size {
		s.size = size
	}
	s.closed = true
}

// Closed reports whether the struct has been closed.
func (s *Struct) Closed() bool { return s.closed }

// Union is an aggregate whose fields all sit at offset 0, with a total
// size equal to the largest field's size.
type Union struct {
	aggregate
}

// NewUnion declares a new, empty, non-closed union type named name.
func (d *Dictionary) NewUnion(name string) *Union {
	u := &Union{aggregate{name: name}}
	d.unions = append(d.unions, u)
	return u
}

func (u *Union) Kind() Kind       { return NoType }
func (u *Union) Size() int64      { return u.size }
func (u *Union) Alignment() int64 { return 8 }

// AddField adds a field named name of type typ at offset 0. A closed
// union silently ignores further additions, mirroring Struct.AddField.
func (u *Union) AddField(name string, typ Type) error {
	if u.closed {
		return nil
	}
	u.fields = append(u.fields, &Field{Name: name, Type: typ, Offset: 0})
	if typ.Size() > u.size {
		u.size = typ.Size()
	}
	return nil
}

// Close finalizes the union's layout; see Struct.Close.
func (u *Union) Close(size int64) {
	if u.closed {
		return
	}
	if size > u.size {
		u.size = size
	}
	u.closed = true
}

// Closed reports whether the union has been closed.
func (u *Union) Closed() bool { return u.closed }
