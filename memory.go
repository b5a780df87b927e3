package ilgen

import "github.com/jitil/ilgen/types"

// Load reads the current value of named local name. Loading a name that
// was never declared or stored to is a usage error.
func (b *Builder) Load(name string) (Value, error) {
	typ := b.method.LocalType(name)
	if typ == nil {
		return Value{}, usageErrorf(b, "Load", "unknown local %q", name)
	}
	n := &node{op: opLoad, typ: typ, slotName: name, name: name}
	result := b.emit(n)
	b.method.observe("Load", b.identity(), name, result)
	return result, nil
}

// Store writes v into named local name, auto-declaring name with v's
// type if this is the first reference to it.
func (b *Builder) Store(name string, v Value) error {
	if err := b.method.defineSymbol(name, v.Type(), false); err != nil {
		return err
	}
	n := &node{op: opStore, typ: v.Type(), slotName: name, args: []*node{v.n}}
	b.method.observe("Store", b.identity(), name, v)
	b.emit(n)
	return nil
}

// StoreOver overwrites the local slot already bound to dest with v,
// without going through a name (used when the host already holds the
// destination Value, e.g. re-storing a loop induction variable).
func (b *Builder) StoreOver(dest, v Value) error {
	if dest.n == nil || dest.n.slotName == "" {
		return usageErrorf(b, "StoreOver", "destination is not a named local")
	}
	return b.Store(dest.n.slotName, v)
}

// LoadAt loads a value of type typ from address addr.
func (b *Builder) LoadAt(typ types.Type, addr Value) (Value, error) {
	if addr.Type().Kind() != types.Address {
		return Value{}, usageErrorf(b, "LoadAt", "address operand required, got %s", addr.Type())
	}
	n := &node{op: opLoadAt, typ: typ, args: []*node{addr.n}}
	return b.emit(n), nil
}

// StoreAt stores v at address addr.
func (b *Builder) StoreAt(addr, v Value) error {
	if addr.Type().Kind() != types.Address {
		return usageErrorf(b, "StoreAt", "address operand required, got %s", addr.Type())
	}
	n := &node{op: opStoreAt, typ: v.Type(), args: []*node{addr.n, v.n}}
	b.emit(n)
	return nil
}

// fieldOf resolves fieldName on typ (which must be *types.Struct or
// *types.Union), caching the symbol reference on first access.
func fieldOf(b identifier, typ types.Type, fieldName string) (*types.Field, error) {
	type fielder interface {
		FieldNamed(string) *types.Field
	}
	f, ok := typ.(fielder)
	if !ok {
		return nil, usageErrorf(b, "LoadIndirect", "type %s has no fields", typ)
	}
	fld := f.FieldNamed(fieldName)
	if fld == nil {
		return nil, usageErrorf(b, "LoadIndirect", "type %s has no field %q", typ, fieldName)
	}
	if fld.SymRef() == nil {
		fld.SetSymRef(fld) // cache: first access materializes the (here, trivial) symbol reference
	}
	return fld, nil
}

// LoadIndirect loads the field named fieldName of the struct/union type
// typ through obj (an address).
func (b *Builder) LoadIndirect(typ types.Type, fieldName string, obj Value) (Value, error) {
	fld, err := fieldOf(b, typ, fieldName)
	if err != nil {
		return Value{}, err
	}
	n := &node{op: opLoadIndirect, typ: fld.Type, args: []*node{obj.n}, slotName: fieldName, field: fld}
	return b.emit(n), nil
}

// StoreIndirect stores v into the field named fieldName of the
// struct/union type typ through obj.
func (b *Builder) StoreIndirect(typ types.Type, fieldName string, obj Value, v Value) error {
	fld, err := fieldOf(b, typ, fieldName)
	if err != nil {
		return err
	}
	n := &node{op: opStoreIndirect, typ: v.Type(), args: []*node{obj.n, v.n}, slotName: fieldName, field: fld}
	b.emit(n)
	return nil
}

// IndexAt computes base + i*sizeof(typ), choosing 32- or 64-bit address
// arithmetic according to the method's configured target word size.
func (b *Builder) IndexAt(typ types.Type, base, i Value) (Value, error) {
	if base.Type().Kind() != types.Address {
		return Value{}, usageErrorf(b, "IndexAt", "base must be an address, got %s", base.Type())
	}
	n := &node{op: opIndexAt, typ: b.method.dict.PointerTo(typ), args: []*node{base.n, i.n}}
	n.vector = b.method.opts.WordSize == 8
	return b.emit(n), nil
}

// CreateLocalArray creates a local array of n elements of type typ and
// returns its address, recording the name as an array for the symbol
// table's array-name set.
func (b *Builder) CreateLocalArray(name string, n int32, typ types.Type) (Value, error) {
	arrType := b.method.dict.PointerTo(typ)
	if err := b.method.defineSymbol(name, arrType, true); err != nil {
		return Value{}, err
	}
	nd := &node{op: opLocalArray, typ: arrType, slotName: name, constVal: n}
	return b.emit(nd), nil
}

// CreateLocalStruct creates a local instance of struct/union type typ
// and returns its address.
func (b *Builder) CreateLocalStruct(name string, typ types.Type) (Value, error) {
	ptr := b.method.dict.PointerTo(typ)
	if err := b.method.defineSymbol(name, ptr, false); err != nil {
		return Value{}, err
	}
	nd := &node{op: opLocalStruct, typ: ptr, slotName: name}
	return b.emit(nd), nil
}
