package ilgen_test

import (
	"testing"

	"github.com/jitil/ilgen"
	"github.com/jitil/ilgen/interp"
	"github.com/jitil/ilgen/types"
)

func newDict() *types.Dictionary { return types.NewDictionary() }

// identity builds increment(value: Int32) -> Int32 = Return(Add(Load("value"), Const(1))),
// the minimal end-to-end scenario (spec §8, Scenario 1).
func buildIdentity(t *testing.T, dict *types.Dictionary) (*ilgen.MethodBuilder, []*ilgen.Block) {
	t.Helper()
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "increment", i32, ilgen.Options{})
	m.DefineParameter("value", i32)
	if err := m.DefineLocal("value", i32); err != nil {
		t.Fatalf("DefineLocal: %v", err)
	}
	loaded, err := m.Load("value")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	one := m.ConstInt32(1)
	sum, err := m.Add(loaded, one)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.ReturnValue(sum); err != nil {
		t.Fatalf("ReturnValue: %v", err)
	}
	blocks, err := m.BuildIL()
	if err != nil {
		t.Fatalf("BuildIL: %v", err)
	}
	return m, blocks
}

func TestIdentityMethod(t *testing.T) {
	m, blocks := buildIdentity(t, newDict())
	got, err := interp.Run(m, blocks, []any{int32(41)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != int32(42) {
		t.Fatalf("increment(41) = %v, want 42", got)
	}
}

// buildIterativeFib builds fib(n: Int32) -> Int32 using ForLoop (spec §8,
// Scenario 2).
func buildIterativeFib(t *testing.T, dict *types.Dictionary) (*ilgen.MethodBuilder, []*ilgen.Block) {
	t.Helper()
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "fibIter", i32, ilgen.Options{})
	n := m.DefineParameter("n", i32)
	for _, name := range []string{"a", "b", "i"} {
		if err := m.DefineLocal(name, i32); err != nil {
			t.Fatalf("DefineLocal %s: %v", name, err)
		}
	}
	if err := m.Store("a", m.ConstInt32(0)); err != nil {
		t.Fatalf("Store a: %v", err)
	}
	if err := m.Store("b", m.ConstInt32(1)); err != nil {
		t.Fatalf("Store b: %v", err)
	}

	body, err := m.ForLoop(true, "i", m.ConstInt32(0), n, m.ConstInt32(1))
	if err != nil {
		t.Fatalf("ForLoop: %v", err)
	}
	a, err := body.Load("a")
	if err != nil {
		t.Fatalf("Load a: %v", err)
	}
	b, err := body.Load("b")
	if err != nil {
		t.Fatalf("Load b: %v", err)
	}
	next, err := body.Add(a, b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := body.Store("a", b); err != nil {
		t.Fatalf("Store a<-b: %v", err)
	}
	if err := body.Store("b", next); err != nil {
		t.Fatalf("Store b<-next: %v", err)
	}

	result, err := m.Load("a")
	if err != nil {
		t.Fatalf("final Load a: %v", err)
	}
	if err := m.ReturnValue(result); err != nil {
		t.Fatalf("ReturnValue: %v", err)
	}
	blocks, err := m.BuildIL()
	if err != nil {
		t.Fatalf("BuildIL: %v", err)
	}
	return m, blocks
}

func TestIterativeFibonacci(t *testing.T) {
	cases := []struct {
		n, want int32
	}{
		{0, 0},
		{1, 1},
		{10, 55},
		{19, 4181},
	}
	for _, c := range cases {
		m, blocks := buildIterativeFib(t, newDict())
		got, err := interp.Run(m, blocks, []any{c.n})
		if err != nil {
			t.Fatalf("fib(%d): %v", c.n, err)
		}
		if got != c.want {
			t.Errorf("fib(%d) = %v, want %d", c.n, got, c.want)
		}
	}
}

// buildRecursiveFib builds fib(n: Int32) -> Int32 using IfThenElse and a
// self Call (spec §8, Scenario 3).
func buildRecursiveFib(dict *types.Dictionary) (*ilgen.MethodBuilder, error) {
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "fibRec", i32, ilgen.Options{})
	m.DefineFunction("fibRec", i32, []types.Type{i32}, nil)
	n := m.DefineParameter("n", i32)
	if err := m.DefineLocal("n", i32); err != nil {
		return nil, err
	}
	if err := m.Store("n", n); err != nil {
		return nil, err
	}

	two := m.ConstInt32(2)
	nv, err := m.Load("n")
	if err != nil {
		return nil, err
	}
	cond, err := m.LessThan(nv, two)
	if err != nil {
		return nil, err
	}

	baseCase := m.NewIlBuilder()
	baseN, err := baseCase.Load("n")
	if err != nil {
		return nil, err
	}
	if err := baseCase.ReturnValue(baseN); err != nil {
		return nil, err
	}

	recCase := m.NewIlBuilder()
	rn, err := recCase.Load("n")
	if err != nil {
		return nil, err
	}
	one := recCase.ConstInt32(1)
	nMinus1, err := recCase.Sub(rn, one)
	if err != nil {
		return nil, err
	}
	nMinus2, err := recCase.Sub(rn, two)
	if err != nil {
		return nil, err
	}
	fib1, err := recCase.Call("fibRec", nMinus1)
	if err != nil {
		return nil, err
	}
	fib2, err := recCase.Call("fibRec", nMinus2)
	if err != nil {
		return nil, err
	}
	sum, err := recCase.Add(fib1, fib2)
	if err != nil {
		return nil, err
	}
	if err := recCase.ReturnValue(sum); err != nil {
		return nil, err
	}

	if err := m.IfThenElse(cond, baseCase, recCase); err != nil {
		return nil, err
	}
	return m, nil
}

func TestRecursiveFibonacciMatchesIterative(t *testing.T) {
	dict := newDict()
	recM, err := buildRecursiveFib(dict)
	if err != nil {
		t.Fatalf("buildRecursiveFib: %v", err)
	}
	recBlocks, err := recM.BuildIL()
	if err != nil {
		t.Fatalf("BuildIL: %v", err)
	}

	var call interp.Resolver
	call = func(name string, args []any) (any, error) {
		return interp.RunWithCalls(recM, recBlocks, args, call)
	}

	for _, n := range []int32{0, 1, 2, 3, 5, 10, 15} {
		got, err := interp.RunWithCalls(recM, recBlocks, []any{n}, call)
		if err != nil {
			t.Fatalf("fibRec(%d): %v", n, err)
		}

		iterM, iterBlocks := buildIterativeFib(t, newDict())
		want, err := interp.Run(iterM, iterBlocks, []any{n})
		if err != nil {
			t.Fatalf("fibIter(%d): %v", n, err)
		}
		if got != want {
			t.Errorf("fibRec(%d) = %v, fibIter(%d) = %v; want equal", n, got, n, want)
		}
	}
}

// syncState is a minimal VMState used to exercise BytecodeBuilder's
// merge-on-second-arrival behavior (spec §8, Scenario 5).
type syncState struct {
	stackDepth int
	merged     bool
}

func (s *syncState) Copy() ilgen.VMState {
	cp := *s
	return &cp
}

func (s *syncState) Merge(other ilgen.VMState, into *ilgen.Builder) error {
	o := other.(*syncState)
	if o.stackDepth != s.stackDepth {
		// A real host would emit adjusting code into `into`; recording
		// that the merge point was reached is enough to assert on here.
		s.stackDepth = o.stackDepth
	}
	s.merged = true
	return nil
}

func TestBytecodeStateMergeInsertsSyncBuilder(t *testing.T) {
	dict := newDict()
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "merge", i32, ilgen.Options{})
	m.DefineParameter("x", i32)

	bb10, err := m.NewBytecodeBuilder(10, "bc10", &syncState{stackDepth: 1})
	if err != nil {
		t.Fatalf("NewBytecodeBuilder(10): %v", err)
	}
	bb20, err := m.NewBytecodeBuilder(20, "bc20", &syncState{stackDepth: 2})
	if err != nil {
		t.Fatalf("NewBytecodeBuilder(20): %v", err)
	}
	bb30, err := m.NewBytecodeBuilder(30, "bc30", nil)
	if err != nil {
		t.Fatalf("NewBytecodeBuilder(30): %v", err)
	}
	if err := bb10.Return(); err != nil {
		t.Fatalf("bb10.Return: %v", err)
	}
	if err := bb20.Return(); err != nil {
		t.Fatalf("bb20.Return: %v", err)
	}
	if err := bb10.AddSuccessorBuilders(bb30); err != nil {
		t.Fatalf("AddSuccessorBuilders(bb10->bb30): %v", err)
	}
	if err := bb20.AddSuccessorBuilders(bb30); err != nil {
		t.Fatalf("AddSuccessorBuilders(bb20->bb30): %v", err)
	}

	st, ok := bb30.CurrentState().(*syncState)
	if !ok || st == nil {
		t.Fatalf("bb30 has no merged VM state")
	}
	if !st.merged {
		t.Fatalf("bb30's state was never merged despite two arrivals with differing stack depths")
	}
}

func TestClosedStructRejectsFurtherFields(t *testing.T) {
	dict := newDict()
	i32 := dict.Primitive(types.Int32)
	pair := dict.NewStruct("Pair")
	if err := pair.AddField("a", i32, -1); err != nil {
		t.Fatalf("AddField a: %v", err)
	}
	if err := pair.AddField("b", i32, -1); err != nil {
		t.Fatalf("AddField b: %v", err)
	}
	pair.Close(8)

	if err := pair.AddField("c", i32, -1); err != nil {
		t.Fatalf("AddField on closed struct returned an error instead of a silent no-op: %v", err)
	}
	if pair.NumFields() != 2 {
		t.Fatalf("closed struct gained a field: NumFields() = %d, want 2", pair.NumFields())
	}
	if pair.FieldNamed("c") != nil {
		t.Fatalf("closed struct accepted field %q", "c")
	}
}

func TestFlattenIsIdempotent(t *testing.T) {
	// buildIdentity already drives BuildIL, which flattens the method
	// root; exercise idempotence against that already-flattened builder
	// rather than re-flattening from scratch.
	m, first := buildIdentity(t, newDict())
	if len(first) == 0 {
		t.Fatalf("BuildIL produced no blocks")
	}
	var second []*ilgen.Block
	m.Flatten(&second)
	if len(second) != 0 {
		t.Fatalf("Flatten call after BuildIL appended %d more blocks; Flatten must be a one-shot no-op once connected", len(second))
	}
}

func TestCountBlocksIsMemoized(t *testing.T) {
	m, _ := buildIdentity(t, newDict())
	first := m.CountBlocks()
	second := m.CountBlocks()
	if first != second {
		t.Fatalf("CountBlocks is not stable across calls: %d then %d", first, second)
	}
}

func TestIfCmpGreaterThanRejectsNilTarget(t *testing.T) {
	dict := newDict()
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "m", i32, ilgen.Options{})
	x := m.ConstInt32(1)
	y := m.ConstInt32(2)
	if err := m.IfCmpGreaterThan(nil, x, y); err == nil {
		t.Fatalf("IfCmpGreaterThan(nil, ...) should be a usage error, not succeed silently")
	}
}

func TestConvertToSameTypeIsValid(t *testing.T) {
	dict := newDict()
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "m", i32, ilgen.Options{})
	v := m.ConstInt32(7)
	out, err := m.ConvertTo(i32, v)
	if err != nil {
		t.Fatalf("ConvertTo(same type): %v", err)
	}
	if out.Type() != i32 {
		t.Fatalf("ConvertTo(same type) changed the type to %s", out.Type())
	}
}
