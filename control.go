package ilgen

import "github.com/jitil/ilgen/types"

// Goto emits an unconditional branch to target's entry and terminates
// b's current block: Goto is one of the terminators that clears the
// come-back flag.
func (b *Builder) Goto(target *Builder) error {
	cur := b.currentOpenBlock()
	n := &node{id: b.method.nextNodeID(), op: opGoto, targets: []*Block{target.entryBlock}}
	cur.emit(n)
	cur.addEdgeTo(target.entryBlock)
	b.method.observe("Goto", b.identity(), target.identity())
	b.setTerminated()
	return nil
}

// Return emits a void return and terminates b.
func (b *Builder) Return() error {
	cur := b.currentOpenBlock()
	n := &node{id: b.method.nextNodeID(), op: opReturn}
	cur.emit(n)
	cur.addEdgeTo(b.method.exitBlockOfMethod())
	b.method.observe("Return", b.identity())
	b.setTerminated()
	return nil
}

// ReturnValue emits a return of v and terminates b.
func (b *Builder) ReturnValue(v Value) error {
	cur := b.currentOpenBlock()
	n := &node{id: b.method.nextNodeID(), op: opReturn, args: []*node{v.n}}
	cur.emit(n)
	cur.addEdgeTo(b.method.exitBlockOfMethod())
	b.method.observe("ReturnValue", b.identity(), v)
	b.setTerminated()
	return nil
}

// exitBlockOfMethod returns the method root's fixed special exit block.
func (m *MethodBuilder) exitBlockOfMethod() *Block {
	return m.Builder.exitBlock
}

func requireTarget(b identifier, op string, target *Builder) error {
	if target == nil {
		return usageErrorf(b, op, "target builder must not be nil")
	}
	return nil
}

// ifCmp is the single dispatcher behind every IfCmp* service. Requiring
// a non-nil target here, uniformly, closes a gap where IfCmpGreaterThan
// and its unsigned sibling could otherwise skip the null-target check
// present on every other IfCmp*.
func (b *Builder) ifCmp(op CompareOp, unsigned bool, target *Builder, x, y Value) error {
	if err := requireTarget(b, "IfCmp"+op.String(), target); err != nil {
		return err
	}
	if _, err := commonCompareType(b, x.Type(), y.Type()); err != nil {
		return err
	}
	cur := b.currentOpenBlock()
	cont := newBlock(b.name + ".ifcmp.cont")
	n := &node{id: b.method.nextNodeID(), op: opIf, args: []*node{x.n, y.n}, cmpOp: op, unsigned: unsigned, targets: []*Block{target.entryBlock, cont}}
	cur.emit(n)
	cur.addEdgeTo(target.entryBlock)
	cur.addEdgeTo(cont)
	b.method.observe("IfCmp"+op.String(), b.identity(), target.identity(), x, y, unsigned)
	b.sequence = append(b.sequence, seqEntry{block: cont})
	b.currentBlock = cont
	return nil
}

func commonCompareType(b identifier, x, y types.Type) (types.Type, error) {
	if x == y {
		return x, nil
	}
	if x.Kind() == types.Address || y.Kind() == types.Address {
		return x, nil // widened to machine word by the memory layer
	}
	return nil, usageErrorf(b, "IfCmp", "incomparable operand types %s and %s", x, y)
}

// IfCmpEqual branches to target if x == y, else falls through.
func (b *Builder) IfCmpEqual(target *Builder, x, y Value) error {
	return b.ifCmp(OpEqualTo, false, target, x, y)
}

// IfCmpNotEqual branches to target if x != y, else falls through.
func (b *Builder) IfCmpNotEqual(target *Builder, x, y Value) error {
	return b.ifCmp(OpNotEqualTo, false, target, x, y)
}

// IfCmpLessThan branches to target if x < y (signed), else falls through.
func (b *Builder) IfCmpLessThan(target *Builder, x, y Value) error {
	return b.ifCmp(OpLessThan, false, target, x, y)
}

// IfCmpLessOrEqualTo branches to target if x <= y (signed).
func (b *Builder) IfCmpLessOrEqualTo(target *Builder, x, y Value) error {
	return b.ifCmp(OpLessOrEqualTo, false, target, x, y)
}

// IfCmpGreaterThan branches to target if x > y (signed).
func (b *Builder) IfCmpGreaterThan(target *Builder, x, y Value) error {
	return b.ifCmp(OpGreaterThan, false, target, x, y)
}

// IfCmpGreaterOrEqualTo branches to target if x >= y (signed).
func (b *Builder) IfCmpGreaterOrEqualTo(target *Builder, x, y Value) error {
	return b.ifCmp(OpGreaterOrEqualTo, false, target, x, y)
}

// IfCmpUnsignedLessThan is the unsigned sibling of IfCmpLessThan.
func (b *Builder) IfCmpUnsignedLessThan(target *Builder, x, y Value) error {
	return b.ifCmp(OpLessThan, true, target, x, y)
}

// IfCmpUnsignedLessOrEqualTo is the unsigned sibling of IfCmpLessOrEqualTo.
func (b *Builder) IfCmpUnsignedLessOrEqualTo(target *Builder, x, y Value) error {
	return b.ifCmp(OpLessOrEqualTo, true, target, x, y)
}

// IfCmpUnsignedGreaterThan is the unsigned sibling of IfCmpGreaterThan.
func (b *Builder) IfCmpUnsignedGreaterThan(target *Builder, x, y Value) error {
	return b.ifCmp(OpGreaterThan, true, target, x, y)
}

// IfCmpUnsignedGreaterOrEqualTo is the unsigned sibling of IfCmpGreaterOrEqualTo.
func (b *Builder) IfCmpUnsignedGreaterOrEqualTo(target *Builder, x, y Value) error {
	return b.ifCmp(OpGreaterOrEqualTo, true, target, x, y)
}

// IfThen appends thenB conditionally: control enters thenB iff cond is
// non-zero, otherwise the merge block is reached directly. If thenB
// comes back, its exit joins the same merge block.
func (b *Builder) IfThen(cond Value, thenB *Builder) error {
	if thenB.partOfSequence {
		return usageErrorf(b, "IfThen", "builder %s is already part of a sequence", thenB.identity())
	}
	cur := b.currentOpenBlock()
	thenB.partOfSequence = true
	merge := newBlock(b.name + ".merge")
	n := &node{id: b.method.nextNodeID(), op: opIf, args: []*node{cond.n}, targets: []*Block{thenB.entryBlock, merge}}
	cur.emit(n)
	cur.addEdgeTo(thenB.entryBlock)
	cur.addEdgeTo(merge)
	b.method.observe("IfThen", b.identity(), thenB.identity(), cond)
	b.sequence = append(b.sequence, seqEntry{nested: thenB})
	if thenB.comesBack {
		emitGotoTerminator(b.method, thenB.exitBlock, merge)
	}
	b.sequence = append(b.sequence, seqEntry{block: merge})
	b.currentBlock = merge
	return nil
}

// IfThenElse appends thenB when cond is non-zero and elseB otherwise;
// both converge on a shared merge block (for whichever branches come
// back).
func (b *Builder) IfThenElse(cond Value, thenB, elseB *Builder) error {
	if thenB.partOfSequence || elseB.partOfSequence {
		return usageErrorf(b, "IfThenElse", "a branch builder is already part of a sequence")
	}
	cur := b.currentOpenBlock()
	thenB.partOfSequence = true
	elseB.partOfSequence = true
	merge := newBlock(b.name + ".merge")
	n := &node{id: b.method.nextNodeID(), op: opIf, args: []*node{cond.n}, targets: []*Block{thenB.entryBlock, elseB.entryBlock}}
	cur.emit(n)
	cur.addEdgeTo(thenB.entryBlock)
	cur.addEdgeTo(elseB.entryBlock)
	b.method.observe("IfThenElse", b.identity(), thenB.identity(), elseB.identity(), cond)
	b.sequence = append(b.sequence, seqEntry{nested: thenB})
	b.sequence = append(b.sequence, seqEntry{nested: elseB})
	if thenB.comesBack {
		emitGotoTerminator(b.method, thenB.exitBlock, merge)
	}
	if elseB.comesBack {
		emitGotoTerminator(b.method, elseB.exitBlock, merge)
	}
	b.sequence = append(b.sequence, seqEntry{block: merge})
	b.currentBlock = merge
	return nil
}

// IfAnd branches to thenB iff every condition in conds is non-zero.
func (b *Builder) IfAnd(conds []Value, thenB *Builder) error {
	return b.ifFold(conds, OpAnd, thenB)
}

// IfOr branches to thenB iff any condition in conds is non-zero.
func (b *Builder) IfOr(conds []Value, thenB *Builder) error {
	return b.ifFold(conds, OpOr, thenB)
}

func (b *Builder) ifFold(conds []Value, fold ArithOp, thenB *Builder) error {
	if len(conds) == 0 {
		return usageErrorf(b, "IfAnd/IfOr", "at least one condition required")
	}
	acc := conds[0]
	for _, c := range conds[1:] {
		v, err := b.binArith(fold, acc, c)
		if err != nil {
			return err
		}
		acc = v
	}
	return b.IfThen(acc, thenB)
}

// SwitchCase is one arm of a Switch: selector == Value branches to
// Target.
type SwitchCase struct {
	Value   int32
	Target  *Builder
}

// Switch branches to the case whose Value matches selector, or to
// defaultBuilder if none match. selector must be Int32; any other kind
// is a usage error.
func (b *Builder) Switch(selector Value, cases []SwitchCase, defaultBuilder *Builder) error {
	if selector.Type().Kind() != types.Int32 {
		return usageErrorf(b, "Switch", "selector must be Int32, got %s", selector.Type())
	}
	cur := b.currentOpenBlock()
	targets := make([]*Block, 0, len(cases)+1)
	for _, c := range cases {
		if c.Target.partOfSequence {
			return usageErrorf(b, "Switch", "case target %s already part of a sequence", c.Target.identity())
		}
		targets = append(targets, c.Target.entryBlock)
	}
	targets = append(targets, defaultBuilder.entryBlock)
	caseValues := make([]int32, len(cases))
	for i, c := range cases {
		caseValues[i] = c.Value
	}
	n := &node{id: b.method.nextNodeID(), op: opSwitch, args: []*node{selector.n}, targets: targets, caseValues: caseValues}
	cur.emit(n)
	merge := newBlock(b.name + ".switch.merge")
	for _, c := range cases {
		c.Target.partOfSequence = true
		cur.addEdgeTo(c.Target.entryBlock)
		b.sequence = append(b.sequence, seqEntry{nested: c.Target})
		if c.Target.comesBack {
			emitGotoTerminator(b.method, c.Target.exitBlock, merge)
		}
	}
	defaultBuilder.partOfSequence = true
	cur.addEdgeTo(defaultBuilder.entryBlock)
	b.sequence = append(b.sequence, seqEntry{nested: defaultBuilder})
	if defaultBuilder.comesBack {
		emitGotoTerminator(b.method, defaultBuilder.exitBlock, merge)
	}
	b.sequence = append(b.sequence, seqEntry{block: merge})
	b.currentBlock = merge
	return nil
}
