package ilgen

import (
	"fmt"

	"github.com/jitil/ilgen/types"
)

// Parameter describes one formal parameter of a method, in declaration
// order.
type Parameter struct {
	Name string
	Type types.Type
	slot int
}

// Function is a resolved callable: either a method defined by a sibling
// MethodBuilder compilation or an external function the host described
// via DefineFunction/RequestFunction.
type Function struct {
	Name       string
	ReturnType types.Type
	ParamTypes []types.Type
	EntryPoint any // opaque host-supplied entry point/descriptor
}

// localInfo is the symbol-table entry for a named local or parameter:
// its declared type, whether the name denotes an array, and, for a
// parameter, its fixed slot.
type localInfo struct {
	typ     types.Type
	isArray bool
	isParam bool
	slot    int
}

// Options configures a MethodBuilder at construction time: an explicit
// struct in place of thread-local compilation-singleton globals. The
// two recorder paths are not acted on by NewMethodBuilder; setting one
// attaches no recorder until the host calls record.Attach.
type Options struct {
	TextRecorderPath   string
	BinaryRecorderPath string
	WordSize           int64 // 4 or 8; defaults to 8 if zero
	AtomicAddSupported bool
	TMSupported        bool
}

// MethodBuilder is the root IlBuilder: it owns the global symbol table,
// the function table, every BytecodeBuilder ever created, the two
// flattening worklists, and the bytecode worklist.
type MethodBuilder struct {
	*Builder

	Name       string
	File       string
	Line       int
	ReturnType types.Type
	Params     []*Parameter

	dict *types.Dictionary
	opts Options

	locals     map[string]*localInfo
	functions  map[string]*Function
	requestFn  func(name string) (*Function, bool)

	allBuilders      []*Builder
	bytecodeBuilders []*BytecodeBuilder

	treeConnectWork []*BytecodeBuilder
	blockCountWork  []*BytecodeBuilder

	bytecodeByIndex  map[int32]*BytecodeBuilder
	bytecodeQueued   map[int32]bool
	bytecodePending  map[int32]bool

	mayHaveLoops bool

	nodeSeq    int
	builderSeq int

	recorder recorderHook // nil unless SetRecorder attached one
}

// recorderHook lets the record package observe every API call without
// this package importing it.
type recorderHook interface {
	Observe(event string, args ...any)
}

// NewMethodBuilder creates the root scope for one method compilation.
// dict is the (typically shared, read-only) type dictionary; opts
// carries the target capabilities and the recorder paths (the latter
// read by record.Attach, not here).
func NewMethodBuilder(dict *types.Dictionary, name string, returnType types.Type, opts Options) *MethodBuilder {
	if opts.WordSize == 0 {
		opts.WordSize = 8
	}
	m := &MethodBuilder{
		Name:            name,
		ReturnType:      returnType,
		dict:            dict,
		opts:            opts,
		locals:          make(map[string]*localInfo),
		functions:       make(map[string]*Function),
		bytecodeByIndex: make(map[int32]*BytecodeBuilder),
		bytecodeQueued:  make(map[int32]bool),
		bytecodePending: make(map[int32]bool),
	}
	m.Builder = newBuilder(m, "method:"+name)
	m.Builder.isMethodRoot = true
	return m
}

func (m *MethodBuilder) nextNodeID() int    { m.nodeSeq++; return m.nodeSeq }
func (m *MethodBuilder) nextBuilderID() int { m.builderSeq++; return m.builderSeq }

// SetRecorder attaches a pure observer of every API call made against m
// and its builders. r is typically a *record.Recorder; the parameter is
// typed as the package-private recorderHook so this package need not
// import record, avoiding the import cycle record.Recorder -> ilgen
// would otherwise create.
func (m *MethodBuilder) SetRecorder(r recorderHook) { m.recorder = r }

// observe forwards event to the attached recorder, if any. Every public
// API method that the Recorder/Replay round trip must reproduce calls
// this after validating its arguments and before (or alongside) mutating
// state, so a replayed transcript reconstructs the same IL.
func (m *MethodBuilder) observe(event string, args ...any) {
	if m.recorder != nil {
		m.recorder.Observe(event, args...)
	}
}

// Dictionary returns the type dictionary this method was built against.
func (m *MethodBuilder) Dictionary() *types.Dictionary { return m.dict }

// RecorderOptions returns the Options this method was constructed with,
// for a host-side helper (e.g. package record's Attach) that wants to
// act on TextRecorderPath/BinaryRecorderPath without this package
// importing record.
func (m *MethodBuilder) RecorderOptions() Options { return m.opts }

// SetFileAndLine records the source file/line the method originates
// from, for diagnostics and for the Recorder/Replay transcript.
func (m *MethodBuilder) SetFileAndLine(file string, line int) {
	m.File = file
	m.Line = line
	m.observe("DefineFile", file)
	m.observe("DefineLine", line)
}

// DefineParameter records a new formal parameter in declaration order
// and returns a Value denoting it, assigned a fixed slot in that order.
func (m *MethodBuilder) DefineParameter(name string, typ types.Type) Value {
	slot := len(m.Params)
	p := &Parameter{Name: name, Type: typ, slot: slot}
	m.Params = append(m.Params, p)
	m.locals[name] = &localInfo{typ: typ, isParam: true, slot: slot}
	n := &node{id: m.nextNodeID(), op: opParam, typ: typ, name: name, slotName: name}
	result := Value{n: n}
	m.observe("DefineParameter", name, typ, result)
	return result
}

// DefineLocal inserts name into the symbol table with the declared
// type. Declaring the same name twice with an inconsistent type is a
// usage error.
func (m *MethodBuilder) DefineLocal(name string, typ types.Type) error {
	return m.defineSymbol(name, typ, false)
}

// DefineMemory pins a named slot to a static memory location. The
// address itself is opaque to the core; it is recorded for the
// Recorder/Replay round trip and for the host's own bookkeeping, but
// the core only ever loads/stores through the name.
func (m *MethodBuilder) DefineMemory(name string, typ types.Type, addr uintptr) error {
	if err := m.defineSymbol(name, typ, false); err != nil {
		return err
	}
	m.observe("DefineMemory", name, typ, addr)
	return nil
}

func (m *MethodBuilder) defineSymbol(name string, typ types.Type, isArray bool) error {
	if existing, ok := m.locals[name]; ok {
		if existing.typ != typ {
			return usageErrorf(m, "DefineLocal", "local %q redeclared with type %s, was %s", name, typ, existing.typ)
		}
		return nil
	}
	m.locals[name] = &localInfo{typ: typ, isArray: isArray}
	m.observe("DefineLocal", name, typ)
	return nil
}

// DefineFunction registers a callable external function the host has
// fully described up front (as opposed to resolving it lazily via
// RequestFunction).
func (m *MethodBuilder) DefineFunction(name string, returnType types.Type, paramTypes []types.Type, entry any) {
	m.functions[name] = &Function{Name: name, ReturnType: returnType, ParamTypes: paramTypes, EntryPoint: entry}
}

// SetRequestFunctionHook installs the host callback invoked at most
// once per missing name before a Call fails. ComputedCall does not
// consult it.
func (m *MethodBuilder) SetRequestFunctionHook(hook func(name string) (*Function, bool)) {
	m.requestFn = hook
}

func (m *MethodBuilder) resolveFunction(b identifier, name string) (*Function, error) {
	fn, known := m.functions[name]
	if fn != nil {
		return fn, nil
	}
	// A nil entry marks a name the hook already failed to resolve, so the
	// hook is asked at most once per name.
	if !known && m.requestFn != nil {
		if fn, ok := m.requestFn(name); ok {
			m.functions[name] = fn
			return fn, nil
		}
		m.functions[name] = nil
	}
	return nil, hostContractErrorf(b, "Call", "function %q could not be resolved", name)
}

// registerBytecodeBuilder records a newly-created BytecodeBuilder in
// the method's global tables and both flattening worklists: a nested
// BytecodeBuilder that has not yet flattened is enqueued to the
// tree-connect worklist, and likewise for block counting.
func (m *MethodBuilder) registerBytecodeBuilder(bb *BytecodeBuilder) {
	m.bytecodeBuilders = append(m.bytecodeBuilders, bb)
	m.bytecodeByIndex[bb.BytecodeIndex] = bb
	m.treeConnectWork = append(m.treeConnectWork, bb)
	m.blockCountWork = append(m.blockCountWork, bb)
}

// MayHaveLoops reports whether any successor edge created so far points
// to a strictly smaller bytecode index: such an edge marks the
// enclosing method as possibly containing loops.
func (m *MethodBuilder) MayHaveLoops() bool { return m.mayHaveLoops }

// EnqueueBytecode marks index as pending translation if it has never
// been queued before.
func (m *MethodBuilder) EnqueueBytecode(index int32) {
	if m.bytecodeQueued[index] {
		return
	}
	m.bytecodeQueued[index] = true
	m.bytecodePending[index] = true
}

// GetNextBytecodeFromWorklist returns the lowest still-pending bytecode
// index and clears it, or -1 if none remain. The guarantee that no
// bytecode is returned before at least one predecessor has been
// processed follows from AddFallThroughBuilder, AddSuccessorBuilders and
// AddExceptionBuilder enqueuing a target only after propagating state
// into it; a host calling EnqueueBytecode directly bypasses that order.
func (m *MethodBuilder) GetNextBytecodeFromWorklist() int32 {
	best := int32(-1)
	for idx, pending := range m.bytecodePending {
		if pending && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best == -1 {
		return -1
	}
	delete(m.bytecodePending, best)
	return best
}

// BuildIL drives the full post-construction pipeline: the host's
// callback has already run (appending entries to builders); BuildIL
// counts blocks, connects trees, and returns the flattened basic block
// sequence.
func (m *MethodBuilder) BuildIL() ([]*Block, error) {
	m.Builder.CountBlocks()
	for _, bb := range m.blockCountWork {
		bb.Builder.CountBlocks()
	}
	var blocks []*Block
	m.Builder.Flatten(&blocks)
	for _, bb := range m.treeConnectWork {
		bb.Builder.Flatten(&blocks)
	}
	for i, b := range blocks {
		b.Index = i
	}
	m.dict.InvalidateFieldCaches()
	return blocks, nil
}

func (m *MethodBuilder) identity() string { return fmt.Sprintf("method:%s", m.Name) }

// LocalType returns the declared type of a named local or parameter, or
// nil if no such name has been declared.
func (m *MethodBuilder) LocalType(name string) types.Type {
	if li, ok := m.locals[name]; ok {
		return li.typ
	}
	return nil
}
