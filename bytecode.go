package ilgen

import (
	"fmt"

	"github.com/jitil/ilgen/types"
)

// HandlerInfo describes the exception-handling metadata attached to a
// BytecodeBuilder reached along a catch edge: a cold flag, a catch
// type, an inline depth, and the resolved method that owns the
// handler.
type HandlerInfo struct {
	Cold        bool
	CatchType   types.Type
	InlineDepth int
	Owner       *Function
}

// BytecodeBuilder is an IlBuilder tagged with the bytecode index it
// represents, plus the machinery that propagates host-defined VM state
// across successor edges as the worklist-driven translation discovers
// them. Go has no class inheritance, so BytecodeBuilder embeds *Builder
// rather than extending it.
type BytecodeBuilder struct {
	*Builder

	BytecodeIndex int32
	BytecodeName  string

	initialState VMState
	currentState VMState
	arrived      bool // true once any state has propagated in

	fallThrough *BytecodeBuilder
	successors  []*BytecodeBuilder

	handler *HandlerInfo // non-nil if this builder is an exception handler entry
}

// NewBytecodeBuilder creates and registers a BytecodeBuilder for
// bytecode index at m, with the given initial VM state (which may be
// nil if the host's VM model carries no per-builder state). A bytecode
// index identifies its builder uniquely, so creating two
// BytecodeBuilders for the same index is a usage error.
func (m *MethodBuilder) NewBytecodeBuilder(index int32, name string, initial VMState) (*BytecodeBuilder, error) {
	if _, exists := m.bytecodeByIndex[index]; exists {
		return nil, usageErrorf(m, "NewBytecodeBuilder", "bytecode index %d already has a builder", index)
	}
	bb := &BytecodeBuilder{
		Builder:       newBuilder(m, fmt.Sprintf("bc#%d:%s", index, name)),
		BytecodeIndex: index,
		BytecodeName:  name,
		initialState:  initial,
	}
	if initial != nil {
		bb.currentState = initial.Copy()
	}
	m.registerBytecodeBuilder(bb)
	m.observe("NewBytecodeBuilder", bb.identity(), index, name)
	return bb, nil
}

// CurrentState returns bb's current VM state: a copy of the initial
// state bb was created with, replaced by a copy of the incoming state on
// the first arrival along an edge; nil if there is neither.
func (bb *BytecodeBuilder) CurrentState() VMState { return bb.currentState }

// arrive propagates state onto bb: the first arrival simply copies
// from (or uses) incoming; every subsequent arrival merges, splicing in
// a synchronization builder between from and bb so both paths agree on
// state before continuing.
func (bb *BytecodeBuilder) arrive(from *Builder, incoming VMState) error {
	if !bb.arrived {
		bb.arrived = true
		if incoming != nil {
			bb.currentState = incoming.Copy()
		} else if bb.initialState != nil {
			bb.currentState = bb.initialState.Copy()
		}
		return nil
	}
	if bb.currentState == nil || incoming == nil {
		return nil
	}
	syncBuilder := newBuilder(bb.method, bb.name+".sync")
	if err := bb.currentState.Merge(incoming, syncBuilder); err != nil {
		return wrapf(bb, "AddSuccessorBuilders", err)
	}
	from.currentOpenBlock().removeEdgeTo(bb.entryBlock)
	from.currentOpenBlock().addEdgeTo(syncBuilder.entryBlock)
	syncBuilder.exitBlock.addEdgeTo(bb.entryBlock)
	from.sequence = append(from.sequence, seqEntry{nested: syncBuilder})
	return nil
}

// AddFallThroughBuilder wires bb's fallthrough successor to target,
// propagating VM state, and enqueues target's bytecode index for
// translation if it has not been seen before.
func (bb *BytecodeBuilder) AddFallThroughBuilder(target *BytecodeBuilder) error {
	if target == nil {
		return usageErrorf(bb, "AddFallThroughBuilder", "target must not be nil")
	}
	bb.fallThrough = target
	cur := bb.currentOpenBlock()
	cur.addEdgeTo(target.entryBlock)
	if target.BytecodeIndex < bb.BytecodeIndex {
		bb.method.mayHaveLoops = true
	}
	if err := target.arrive(bb.Builder, bb.currentState); err != nil {
		return err
	}
	bb.method.EnqueueBytecode(target.BytecodeIndex)
	return nil
}

// AddSuccessorBuilders wires each of targets as a (non-fallthrough)
// successor of bb, e.g. the arms of a bytecode branch or switch,
// propagating state and enqueuing each target for translation.
func (bb *BytecodeBuilder) AddSuccessorBuilders(targets ...*BytecodeBuilder) error {
	for _, target := range targets {
		if target == nil {
			return usageErrorf(bb, "AddSuccessorBuilders", "target must not be nil")
		}
		bb.successors = append(bb.successors, target)
		cur := bb.currentOpenBlock()
		cur.addEdgeTo(target.entryBlock)
		if target.BytecodeIndex < bb.BytecodeIndex {
			bb.method.mayHaveLoops = true
		}
		if err := target.arrive(bb.Builder, bb.currentState); err != nil {
			return err
		}
		bb.method.EnqueueBytecode(target.BytecodeIndex)
	}
	return nil
}

// AddExceptionBuilder wires target as an exception-handler successor of
// bb, attaching info to target so downstream consumers (e.g. the
// disassembler, or a recorder) can describe the catch edge.
func (bb *BytecodeBuilder) AddExceptionBuilder(target *BytecodeBuilder, info HandlerInfo) error {
	if target == nil {
		return usageErrorf(bb, "AddExceptionBuilder", "target must not be nil")
	}
	target.handler = &info
	bb.successors = append(bb.successors, target)
	bb.currentOpenBlock().addEdgeTo(target.entryBlock)
	if err := target.arrive(bb.Builder, bb.currentState); err != nil {
		return err
	}
	bb.method.EnqueueBytecode(target.BytecodeIndex)
	return nil
}
