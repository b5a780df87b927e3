package ilgen

import (
	"fmt"

	"github.com/jitil/ilgen/types"
)

// opcode enumerates every kind of node the core's IR surface can hold:
// a single closed enum with a match-on-enum lookup, rather than
// function-pointer maps keyed on primitive type.
type opcode int

const (
	opConst opcode = iota
	opParam
	opLocalAddr // address of a named local / synthesized slot
	opLoad
	opStore
	opLoadAt
	opStoreAt
	opLoadIndirect
	opStoreIndirect
	opIndexAt
	opLocalArray
	opLocalStruct
	opBinArith
	opBinArithOverflow
	opCompare
	opConvert
	opCall
	opAtomicAdd
	opGoto
	opIf
	opReturn
	opSwitch
	opTransactionAbort
)

// node is the core's internal representation of a single IR operation:
// it is both an Instruction (it belongs to a block and may have
// operands) and, when it produces a result, a Value. These concerns
// live in one tagged struct rather than an inheritance hierarchy.
type node struct {
	id      int
	op      opcode
	typ     types.Type
	args    []*node // operand values, in operand order
	block   *Block
	name    string // set for named locals / parameters; synthetic otherwise

	// op-specific payload.
	constVal   any // for opConst
	slotName   string // for opLoad/opStore/opLocalAddr/opLocalArray/opLocalStruct: local name
	field      *types.Field
	arithOp    ArithOp
	cmpOp      CompareOp
	unsigned   bool
	overflowTo *Builder // handler for overflow-checked arithmetic
	callee     *Function
	args2      []*node // secondary operand list; no op sets it (Call keeps all its arguments in args)
	targets    []*Block
	vector     bool
	caseValues []int32 // for opSwitch: selector values matching targets[:len-1], in order
}

// String names every opcode for introspection by consumers outside this
// package (a disassembler, the reference interpreter in package interp)
// that only ever need to read IR, never construct it.
func (o opcode) String() string {
	names := [...]string{
		"Const", "Param", "LocalAddr", "Load", "Store", "LoadAt", "StoreAt",
		"LoadIndirect", "StoreIndirect", "IndexAt", "LocalArray", "LocalStruct",
		"BinArith", "BinArithOverflow", "Compare", "Convert", "Call", "AtomicAdd",
		"Goto", "If", "Return", "Switch", "TransactionAbort",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "Unknown"
}

// Instruction is the read-only view of a single IR node, the unit
// package interp's reference interpreter evaluates. Modeled on go/ssa's
// exported Instruction/Value interfaces, which let go/ssa/interp walk a
// function's IR using only the public API.
type Instruction struct{ n *node }

// Op reports the instruction's opcode name (e.g. "BinArith", "If").
func (i Instruction) Op() string { return i.n.op.String() }

// Operands returns the instruction's operand values in order.
func (i Instruction) Operands() []Value {
	out := make([]Value, len(i.n.args))
	for idx, a := range i.n.args {
		out[idx] = Value{n: a}
	}
	return out
}

// Result returns the Value this instruction produces, or the invalid
// Value if it produces none (e.g. Store, Goto, Return).
func (i Instruction) Result() Value {
	switch i.n.op {
	case opStore, opStoreAt, opStoreIndirect, opGoto, opIf, opReturn, opSwitch, opTransactionAbort:
		return Value{}
	}
	return Value{n: i.n}
}

// ConstValue returns the Go value backing an opConst instruction.
func (i Instruction) ConstValue() any { return i.n.constVal }

// SlotName returns the named-local slot an opLoad/opStore instruction
// reads or writes.
func (i Instruction) SlotName() string { return i.n.slotName }

// ArithOp returns the operator of a BinArith/BinArithOverflow instruction.
func (i Instruction) ArithOp() ArithOp { return i.n.arithOp }

// CompareOp returns the operator of a Compare/If instruction.
func (i Instruction) CompareOp() CompareOp { return i.n.cmpOp }

// Unsigned reports whether a Compare/If/Convert instruction is the
// unsigned variant of its operation.
func (i Instruction) Unsigned() bool { return i.n.unsigned }

// Targets returns the block(s) a Goto/If/Switch instruction transfers
// control to.
func (i Instruction) Targets() []*Block { return i.n.targets }

// Callee returns the resolved Function a Call instruction invokes.
func (i Instruction) Callee() *Function { return i.n.callee }

// CaseValues returns the selector values a Switch instruction matches
// against, in the same order as Targets()[:len(Targets())-1]; the final
// target is always the default.
func (i Instruction) CaseValues() []int32 { return i.n.caseValues }

// Field returns the struct/union field a LoadIndirect/StoreIndirect
// instruction accesses.
func (i Instruction) Field() *types.Field { return i.n.field }

// Instructions returns b's instructions as the read-only Instruction
// view.
func (b *Block) Instructions() []Instruction {
	out := make([]Instruction, len(b.Instrs))
	for i, n := range b.Instrs {
		out[i] = Instruction{n: n}
	}
	return out
}

// Value is an opaque, typed handle to a computed or loaded intermediate
// result. Its identity is the producing node; once created, its type
// never changes.
type Value struct {
	n *node
}

// IsValid reports whether v refers to a real node (the zero Value does not).
func (v Value) IsValid() bool { return v.n != nil }

// Type returns v's primitive or aggregate type.
func (v Value) Type() types.Type {
	if v.n == nil {
		return nil
	}
	return v.n.typ
}

// Name returns the name under which v would appear as an operand:
// the declared name for parameters and named locals, a synthesized
// "tN" for everything else.
func (v Value) Name() string {
	if v.n == nil {
		return "<invalid>"
	}
	if v.n.name != "" {
		return v.n.name
	}
	return fmt.Sprintf("t%d", v.n.id)
}

func (v Value) String() string {
	return fmt.Sprintf("%s:%s", v.Name(), v.Type())
}

// equal reports whether two Values denote the same node, i.e. the same
// stable identity.
func (v Value) equal(o Value) bool { return v.n == o.n }
