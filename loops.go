package ilgen

// ForLoop declares indexName, initializes it to initial, and returns a
// body Builder the host fills with per-iteration code. Iteration
// continues while indexName < end (up) or > end (down); indexName is
// advanced by increment at the end of each iteration.
//
// Internally this is built entirely from the same primitives a host
// could use directly (Store, Load, a test builder, IfThen-style
// wiring and Goto) — there is no special-cased loop lowering path.
func (b *Builder) ForLoop(up bool, indexName string, initial, end, increment Value) (*Builder, error) {
	if err := b.Store(indexName, initial); err != nil {
		return nil, err
	}
	cur := b.currentOpenBlock()

	testB := b.NewIlBuilder()
	testB.partOfSequence = true
	emitGotoTerminator(b.method, cur, testB.entryBlock)
	b.sequence = append(b.sequence, seqEntry{nested: testB})

	idx, err := testB.Load(indexName)
	if err != nil {
		return nil, err
	}
	var cond Value
	if up {
		cond, err = testB.LessThan(idx, end)
	} else {
		cond, err = testB.GreaterThan(idx, end)
	}
	if err != nil {
		return nil, err
	}

	bodyB := b.NewIlBuilder()
	bodyB.partOfSequence = true
	incB := b.NewIlBuilder()
	incB.partOfSequence = true
	merge := newBlock(b.name + ".forloop.merge")

	testCur := testB.currentOpenBlock()
	n := &node{id: b.method.nextNodeID(), op: opIf, args: []*node{cond.n}, targets: []*Block{bodyB.entryBlock, merge}}
	testCur.emit(n)
	testCur.addEdgeTo(bodyB.entryBlock)
	testCur.addEdgeTo(merge)

	b.sequence = append(b.sequence, seqEntry{nested: bodyB})
	b.sequence = append(b.sequence, seqEntry{nested: incB})
	if bodyB.comesBack {
		emitGotoTerminator(b.method, bodyB.exitBlock, incB.entryBlock)
	}

	idx2, err := incB.Load(indexName)
	if err != nil {
		return nil, err
	}
	var next Value
	if up {
		next, err = incB.Add(idx2, increment)
	} else {
		next, err = incB.Sub(idx2, increment)
	}
	if err != nil {
		return nil, err
	}
	if err := incB.Store(indexName, next); err != nil {
		return nil, err
	}
	if err := incB.Goto(testB); err != nil {
		return nil, err
	}

	b.sequence = append(b.sequence, seqEntry{block: merge})
	b.currentBlock = merge
	return bodyB, nil
}

// WhileDoLoop evaluates cond (emitted into a fresh test builder passed
// to the callback) before every iteration, including the first, and
// returns a body Builder the host fills with per-iteration code.
func (b *Builder) WhileDoLoop(cond func(test *Builder) (Value, error)) (*Builder, error) {
	cur := b.currentOpenBlock()
	testB := b.NewIlBuilder()
	testB.partOfSequence = true
	emitGotoTerminator(b.method, cur, testB.entryBlock)
	b.sequence = append(b.sequence, seqEntry{nested: testB})

	condVal, err := cond(testB)
	if err != nil {
		return nil, err
	}

	bodyB := b.NewIlBuilder()
	bodyB.partOfSequence = true
	merge := newBlock(b.name + ".whiledo.merge")

	testCur := testB.currentOpenBlock()
	n := &node{id: b.method.nextNodeID(), op: opIf, args: []*node{condVal.n}, targets: []*Block{bodyB.entryBlock, merge}}
	testCur.emit(n)
	testCur.addEdgeTo(bodyB.entryBlock)
	testCur.addEdgeTo(merge)

	b.sequence = append(b.sequence, seqEntry{nested: bodyB})
	if bodyB.comesBack {
		emitGotoTerminator(b.method, bodyB.exitBlock, testB.entryBlock)
	}

	b.sequence = append(b.sequence, seqEntry{block: merge})
	b.currentBlock = merge
	return bodyB, nil
}

// DoWhileLoop returns a body Builder appended into b's sequence, with
// control entering it unconditionally. The host is responsible for
// ending the body with an IfCmp* call that targets the body itself
// (looping back to its own entry) to continue, falling through
// otherwise — exactly as it would wire any other self-referential
// back edge, with no special-cased loop API beneath it.
func (b *Builder) DoWhileLoop() (*Builder, error) {
	cur := b.currentOpenBlock()
	bodyB := b.NewIlBuilder()
	bodyB.partOfSequence = true
	emitGotoTerminator(b.method, cur, bodyB.entryBlock)
	b.sequence = append(b.sequence, seqEntry{nested: bodyB})

	merge := newBlock(b.name + ".dowhile.merge")
	if bodyB.comesBack {
		emitGotoTerminator(b.method, bodyB.exitBlock, merge)
	}
	b.sequence = append(b.sequence, seqEntry{block: merge})
	b.currentBlock = merge
	return bodyB, nil
}
