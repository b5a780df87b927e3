// Package types implements the concrete type dictionary the ilgen core
// is built against. The core treats a dictionary as an external
// collaborator: it looks up primitives, follows pointers, and computes
// field offsets, but does not own the design of the type system itself.
// This package is one reasonable, self-contained implementation of that
// contract, modeled on the way go/types builds Basic, Pointer and
// Struct. A host with its own type system can supply an equivalent
// Dictionary instead.
package types

import "fmt"

// Kind enumerates the primitive types the core's IR surface recognizes.
// Vector kinds carry the same element kinds as their scalar counterparts.
type Kind int

const (
	NoType Kind = iota
	Int8
	Int16
	Int32
	Int64
	Float
	Double
	Address

	VectorInt8
	VectorInt16
	VectorInt32
	VectorInt64
	VectorFloat
	VectorDouble
)

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var kindNames = map[Kind]string{
	NoType:       "NoType",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Float:        "Float",
	Double:       "Double",
	Address:      "Address",
	VectorInt8:   "VectorInt8",
	VectorInt16:  "VectorInt16",
	VectorInt32:  "VectorInt32",
	VectorInt64:  "VectorInt64",
	VectorFloat:  "VectorFloat",
	VectorDouble: "VectorDouble",
}

// IsVector reports whether k is one of the Vector{Int8,...,Double} kinds.
func (k Kind) IsVector() bool {
	return k >= VectorInt8 && k <= VectorDouble
}

// IsInteger reports whether k is a scalar (non-vector, non-float) integer kind.
func (k Kind) IsInteger() bool {
	switch k {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsFloat reports whether k is Float or Double.
func (k Kind) IsFloat() bool {
	return k == Float || k == Double
}

// Type is the common interface satisfied by every type known to a
// Dictionary: primitives, pointers, structs and unions.
type Type interface {
	// Kind is NoType for every struct and union, Address for every
	// pointer type; primitives report their own scalar/vector kind.
	Kind() Kind
	// Size is the size in bytes of a value of this type.
	Size() int64
	// Alignment is the natural alignment in bytes of this type; used
	// when auto-computing struct field offsets.
	Alignment() int64
	String() string
}

// Primitive is a fixed-size, fixed-alignment scalar or vector type.
type Primitive struct {
	kind Kind
	size int64
}

func (p *Primitive) Kind() Kind       { return p.kind }
func (p *Primitive) Size() int64      { return p.size }
func (p *Primitive) Alignment() int64 { return p.size }
func (p *Primitive) String() string   { return p.kind.String() }

// primitiveSizes gives the byte size of every interned primitive kind.
// Every vector kind is given a fixed 16-byte (128-bit) size; a real
// target description would size them per the platform's native vector
// width, which is outside this dictionary's concern.
var primitiveSizes = map[Kind]int64{
	NoType:       0,
	Int8:         1,
	Int16:        2,
	Int32:        4,
	Int64:        8,
	Float:        4,
	Double:       8,
	Address:      8,
	VectorInt8:   16,
	VectorInt16:  16,
	VectorInt32:  16,
	VectorInt64:  16,
	VectorFloat:  16,
	VectorDouble: 16,
}

// Pointer is a pointer to another Type. All pointers are one machine
// word; the base type is recoverable via Elem.
type Pointer struct {
	elem Type
	size int64
}

func (p *Pointer) Kind() Kind       { return Address }
func (p *Pointer) Size() int64      { return p.size }
func (p *Pointer) Alignment() int64 { return p.size }
func (p *Pointer) Elem() Type       { return p.elem }
func (p *Pointer) String() string   { return p.elem.String() + "*" }
