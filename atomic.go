package ilgen

import (
	"github.com/jitil/ilgen/platform"
	"github.com/jitil/ilgen/types"
)

func checkAtomicOperand(b identifier, op string, addr, increment Value) error {
	if addr.Type().Kind() != types.Address {
		return usageErrorf(b, op, "address operand required, got %s", addr.Type())
	}
	switch increment.Type().Kind() {
	case types.Int32, types.Int64:
	default:
		return usageErrorf(b, op, "increment must be Int32 or Int64, got %s", increment.Type())
	}
	return nil
}

// AtomicAdd atomically adds increment to the value at addr and returns
// the prior value. Only Int32 and Int64 increments are supported; on a
// target that does not report atomic-add support this is a host-contract
// error, not a silent fallback.
func (b *Builder) AtomicAdd(addr, increment Value) (Value, error) {
	if err := checkAtomicOperand(b, "AtomicAdd", addr, increment); err != nil {
		return Value{}, err
	}
	if !b.method.opts.AtomicAddSupported || !platform.Host().AtomicAdd {
		return Value{}, hostContractErrorf(b, "AtomicAdd", "target does not support atomic add")
	}
	n := &node{op: opAtomicAdd, typ: increment.Type(), args: []*node{addr.n, increment.n}}
	return b.emit(n), nil
}

// AtomicAddWithOffset is the sibling of AtomicAdd that first computes
// addr + offset (an Int32/Int64 byte offset) before the atomic add.
func (b *Builder) AtomicAddWithOffset(addr, offset, increment Value) (Value, error) {
	target, err := b.Add(addr, offset)
	if err != nil {
		return Value{}, err
	}
	return b.AtomicAdd(target, increment)
}

// Transaction wires a hardware transactional-memory region: body runs
// speculatively; persistFail is entered if the host reports no TM
// support at all (the transaction can never succeed on this target);
// transientFail is the handler a TransactionAbort inside body transfers
// control to. Requesting a transaction with no TM evaluator configured
// at all is a usage error; a target that merely lacks runtime TM support
// degrades straight to persistFail instead.
func (b *Builder) Transaction(persistFail, transientFail, body *Builder) error {
	if !b.method.opts.TMSupported {
		return usageErrorf(b, "Transaction", "no transactional-memory evaluator available for this compilation")
	}
	if persistFail == nil || transientFail == nil || body == nil {
		return usageErrorf(b, "Transaction", "persistFail, transientFail and body builders must all be non-nil")
	}
	if !platform.Host().TransactionalMemory {
		return b.AppendBuilder(persistFail)
	}
	if body.partOfSequence || persistFail.partOfSequence || transientFail.partOfSequence {
		return usageErrorf(b, "Transaction", "a transaction builder is already part of a sequence")
	}
	cur := b.currentOpenBlock()
	body.partOfSequence = true
	body.transientFailBlock = transientFail.entryBlock
	merge := newBlock(b.name + ".transaction.merge")

	// The real edge out of cur is always into the speculative body;
	// transientFail is only ever entered from within body via
	// TransactionAbort's own terminator. The extra edge recorded here is
	// conservative CFG metadata, not a second terminator on cur.
	emitGotoTerminator(b.method, cur, body.entryBlock)
	b.sequence = append(b.sequence, seqEntry{nested: body})
	cur.addEdgeTo(transientFail.entryBlock)
	if body.comesBack {
		emitGotoTerminator(b.method, body.exitBlock, merge)
	}

	transientFail.partOfSequence = true
	b.sequence = append(b.sequence, seqEntry{nested: transientFail})
	if transientFail.comesBack {
		emitGotoTerminator(b.method, transientFail.exitBlock, merge)
	}

	b.sequence = append(b.sequence, seqEntry{block: merge})
	b.currentBlock = merge
	return nil
}

// TransactionAbort explicitly aborts the enclosing transaction body,
// transferring control to its transientFail handler. Calling it outside
// a Transaction body is a usage error.
func (b *Builder) TransactionAbort() error {
	if b.transientFailBlock == nil {
		return usageErrorf(b, "TransactionAbort", "not inside a Transaction body")
	}
	cur := b.currentOpenBlock()
	n := &node{id: b.method.nextNodeID(), op: opTransactionAbort, targets: []*Block{b.transientFailBlock}}
	cur.emit(n)
	cur.addEdgeTo(b.transientFailBlock)
	b.setTerminated()
	return nil
}
