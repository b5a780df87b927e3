package ilgen

import "fmt"

// Block is a basic block: a maximal straight-line region of nodes with
// a single entry and (once terminated) a single exit terminator. Blocks
// are owned by the MethodBuilder's arena; cross-block references are
// plain pointers into that arena rather than owning handles.
type Block struct {
	Index int // position in the method's final flattened block list; -1 until flattening
	Comment string

	Instrs []*node
	Preds  []*Block
	Succs  []*Block

	terminated bool
}

func newBlock(comment string) *Block {
	return &Block{Index: -1, Comment: comment}
}

func (b *Block) String() string {
	if b.Comment != "" {
		return fmt.Sprintf("block%d<%s>", b.Index, b.Comment)
	}
	return fmt.Sprintf("block%d", b.Index)
}

// addEdgeTo links b to succ as a control-flow successor/predecessor
// pair. Idempotent: re-adding an edge that already exists is a no-op,
// since several of the core's services (state propagation, fallthrough)
// may attempt to (re)establish the same edge.
func (b *Block) addEdgeTo(succ *Block) {
	for _, s := range b.Succs {
		if s == succ {
			return
		}
	}
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// removeEdgeTo undoes a prior addEdgeTo, used when a synchronization
// builder is spliced into an edge after the fact.
func (b *Block) removeEdgeTo(succ *Block) {
	out := b.Succs[:0]
	for _, s := range b.Succs {
		if s != succ {
			out = append(out, s)
		}
	}
	b.Succs = out
	predOut := succ.Preds[:0]
	for _, p := range succ.Preds {
		if p != b {
			predOut = append(predOut, p)
		}
	}
	succ.Preds = predOut
}

func (b *Block) emit(n *node) {
	n.block = b
	b.Instrs = append(b.Instrs, n)
}
