package ilgen

import "fmt"

// seqEntry is a tagged union: either a Block or a nested Builder.
type seqEntry struct {
	block  *Block
	nested *Builder
}

// Builder is the core's IlBuilder: a scoped, ordered sequence of
// entries modeling one contiguous region of control flow.
// BytecodeBuilder and MethodBuilder both embed a *Builder and extend
// it; Go has no class inheritance, so a deep IlInjector/IlBuilder/
// BytecodeBuilder hierarchy collapses to embedding plus the capability
// methods defined here, one record type shared across every builder
// kind.
type Builder struct {
	method *MethodBuilder
	name   string
	id     int

	sequence []seqEntry

	entryBlock   *Block
	exitBlock    *Block
	currentBlock *Block // open block; nil once the builder has branched away with no fallthrough

	comesBack      bool
	partOfSequence bool
	isMethodRoot   bool

	// transientFailBlock is set on a Transaction body builder so a
	// TransactionAbort call inside it knows where to branch.
	transientFailBlock *Block

	count     int // -1 until CountBlocks memoizes it
	connected bool // true once Flatten has run; Flatten is one-shot
}

func newBuilder(m *MethodBuilder, name string) *Builder {
	b := &Builder{
		method:    m,
		name:      name,
		comesBack: true,
		count:     -1,
	}
	b.entryBlock = newBlock(name + ".entry")
	b.exitBlock = newBlock(name + ".exit")
	b.currentBlock = b.entryBlock
	b.sequence = append(b.sequence, seqEntry{block: b.entryBlock})
	if m != nil {
		b.id = m.nextBuilderID()
		m.allBuilders = append(m.allBuilders, b)
	}
	return b
}

func (b *Builder) identity() string {
	if b.name != "" {
		return fmt.Sprintf("%s#%d", b.name, b.id)
	}
	return fmt.Sprintf("builder#%d", b.id)
}

// Method returns the MethodBuilder that owns b.
func (b *Builder) Method() *MethodBuilder { return b.method }

// ComesBack reports whether control may fall through past the end of b.
func (b *Builder) ComesBack() bool { return b.comesBack }

func (b *Builder) setTerminated() {
	b.comesBack = false
	if b.currentBlock != nil {
		b.currentBlock.terminated = true
	}
	b.currentBlock = nil
}

// emit appends instr to the currently open block, opening a fresh
// successor block first if none is open (e.g. after a terminator).
func (b *Builder) emit(n *node) Value {
	if b.currentBlock == nil {
		b.openFreshBlock()
	}
	n.id = b.method.nextNodeID()
	b.currentBlock.emit(n)
	return Value{n: n}
}

func (b *Builder) openFreshBlock() {
	nb := newBlock(fmt.Sprintf("%s.cont", b.name))
	b.sequence = append(b.sequence, seqEntry{block: nb})
	b.currentBlock = nb
}

// emitGotoTerminator appends a synthetic unconditional Goto node to the
// end of from and wires the corresponding CFG edge, the same way
// go/ssa's emitJump appends an explicit jump instruction at the end of
// every block instead of leaving a fall-through edge implicit. Every
// block the flattener emits must end in a terminator instruction for
// the reference interpreter (and any real downstream code generator) to
// know where control goes next — addEdgeTo alone only records CFG
// metadata, it does not make the block's instruction stream end.
func emitGotoTerminator(m *MethodBuilder, from, to *Block) {
	n := &node{id: m.nextNodeID(), op: opGoto, targets: []*Block{to}}
	from.emit(n)
	from.addEdgeTo(to)
}

// NewIlBuilder creates a nested, not-yet-appended IlBuilder scoped to
// the same method as b. The caller must AppendBuilder it (or a
// derivative such as IfThen's then-builder) before it contributes any
// blocks to the final CFG. This is the single chokepoint every nested
// builder (IfThen/IfThenElse/Switch/Transaction arms, ForLoop/WhileDoLoop/
// DoWhileLoop internals) passes through, so recording its (parent, child)
// identity pair here is enough for Replay to resolve every later
// builder-identity reference without a dedicated verb per construct.
func (b *Builder) NewIlBuilder() *Builder {
	child := newBuilder(b.method, fmt.Sprintf("%s.child%d", b.name, len(b.sequence)))
	b.method.observe("NewIlBuilder", b.identity(), child.identity())
	return child
}

// AppendBuilder splices child into b's sequence and adds a CFG edge
// from b's currently open block to child's entry. After the call b has
// no open block; a fresh successor block is opened so the host can keep
// emitting code that runs after child returns control. Appending a
// builder that is already part of a sequence is a usage error.
func (b *Builder) AppendBuilder(child *Builder) error {
	if child.partOfSequence {
		return usageErrorf(b, "AppendBuilder", "builder %s is already part of a sequence", child.identity())
	}
	if b.currentBlock == nil {
		b.openFreshBlock()
	}
	cur := b.currentBlock
	child.partOfSequence = true
	emitGotoTerminator(b.method, cur, child.entryBlock)
	b.sequence = append(b.sequence, seqEntry{nested: child})
	b.method.observe("AppendBuilder", b.identity(), child.identity())

	// The parent has no open block until we open a fresh one below;
	// appending a child that does not come back leaves the
	// post-append region unreachable, which is expected, not an error.
	b.openFreshBlock()
	if child.comesBack {
		emitGotoTerminator(b.method, child.exitBlock, b.currentBlock)
	}
	return nil
}

// CountBlocks returns the total number of basic blocks b will contribute
// once flattened, recursing into nested builders. The result is
// memoized; calling it more than once returns the same count without
// recomputing.
func (b *Builder) CountBlocks() int {
	if b.count >= 0 {
		return b.count
	}
	n := 0
	for _, e := range b.sequence {
		if e.block != nil {
			n++
		} else {
			n += e.nested.CountBlocks()
		}
	}
	if !b.isMethodRoot {
		n++ // exit block
	}
	b.count = n
	return n
}

// Flatten performs the one-shot tree-connect pass: it walks b's
// sequence, appends every block (recursing into nested builders) to
// blocks in execution order, and appends b's own exit block last unless
// b is the method root (whose exit is the method's fixed special block).
// If b comes back and its open block does not already end in a
// terminator, that block is ended with a Goto to b's exit block.
// Flattening an already-flattened builder is a no-op.
func (b *Builder) Flatten(blocks *[]*Block) {
	if b.connected {
		return
	}
	b.connected = true
	for _, e := range b.sequence {
		if e.block != nil {
			e.block.Index = len(*blocks)
			*blocks = append(*blocks, e.block)
		} else {
			e.nested.Flatten(blocks)
		}
	}
	if cur := b.currentBlock; !b.isMethodRoot && b.comesBack && cur != nil {
		needsGoto := true
		if k := len(cur.Instrs); k > 0 {
			switch cur.Instrs[k-1].op {
			case opGoto, opIf, opReturn, opSwitch, opTransactionAbort:
				needsGoto = false
			}
		}
		if needsGoto {
			emitGotoTerminator(b.method, cur, b.exitBlock)
		}
	}
	if !b.isMethodRoot {
		b.exitBlock.Index = len(*blocks)
		*blocks = append(*blocks, b.exitBlock)
	}
}

// currentOpenBlock exposes the block currently receiving emitted
// instructions; used by control-flow services that need to branch out
// of b's current position.
func (b *Builder) currentOpenBlock() *Block {
	if b.currentBlock == nil {
		b.openFreshBlock()
	}
	return b.currentBlock
}
