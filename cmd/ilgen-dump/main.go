// Command ilgen-dump builds a handful of example methods and disassembles
// each to stdout. It exists as a worked example of the concurrency model
// described in spec §5 ("independent compilations share only immutable
// inputs"): every method is built by its own goroutine against a single,
// read-only *types.Dictionary, coordinated with golang.org/x/sync/errgroup
// the way ssa/builder_test.go coordinates concurrent package builds.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jitil/ilgen"
	"github.com/jitil/ilgen/types"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: ilgen-dump")
		fmt.Fprintln(os.Stderr, "builds a few example methods concurrently and prints their flattened IL")
	}
	flag.Parse()

	if err := run(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// builders is the set of independent method builds this command
// demonstrates running concurrently; each entry is self-contained and
// touches only the shared, read-only dictionary passed to it.
var builders = map[string]func(dict *types.Dictionary) (*ilgen.MethodBuilder, error){
	"increment": buildIncrement,
	"fibIter":   buildFibIter,
	"clampI32":  buildClamp,
}

func run(w *os.File) error {
	dict := types.NewDictionary()

	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)

	dumps := make([]string, len(names))
	g, _ := errgroup.WithContext(context.Background())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			m, err := builders[name](dict)
			if err != nil {
				return fmt.Errorf("building %s: %w", name, err)
			}
			blocks, err := m.BuildIL()
			if err != nil {
				return fmt.Errorf("BuildIL %s: %w", name, err)
			}
			dumps[i] = disassemble(m, blocks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, d := range dumps {
		if _, err := fmt.Fprint(w, d); err != nil {
			return err
		}
	}
	return nil
}

// disassemble renders m's flattened blocks in a compact, go/ssa-style
// textual form: one line per instruction, blocks separated by a header
// naming each block's index.
func disassemble(m *ilgen.MethodBuilder, blocks []*ilgen.Block) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", m.Name)
	for _, b := range blocks {
		fmt.Fprintf(&buf, "%d:\n", b.Index)
		for _, instr := range b.Instructions() {
			if instr.Result().IsValid() {
				fmt.Fprintf(&buf, "\t%s = %s\n", instr.Result().Name(), instr.Op())
			} else {
				fmt.Fprintf(&buf, "\t%s\n", instr.Op())
			}
		}
	}
	return buf.String()
}

func buildIncrement(dict *types.Dictionary) (*ilgen.MethodBuilder, error) {
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "increment", i32, ilgen.Options{})
	m.DefineParameter("value", i32)
	if err := m.DefineLocal("value", i32); err != nil {
		return nil, err
	}
	loaded, err := m.Load("value")
	if err != nil {
		return nil, err
	}
	sum, err := m.Add(loaded, m.ConstInt32(1))
	if err != nil {
		return nil, err
	}
	return m, m.ReturnValue(sum)
}

func buildFibIter(dict *types.Dictionary) (*ilgen.MethodBuilder, error) {
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "fibIter", i32, ilgen.Options{})
	n := m.DefineParameter("n", i32)
	for _, name := range []string{"a", "b", "i"} {
		if err := m.DefineLocal(name, i32); err != nil {
			return nil, err
		}
	}
	if err := m.Store("a", m.ConstInt32(0)); err != nil {
		return nil, err
	}
	if err := m.Store("b", m.ConstInt32(1)); err != nil {
		return nil, err
	}
	body, err := m.ForLoop(true, "i", m.ConstInt32(0), n, m.ConstInt32(1))
	if err != nil {
		return nil, err
	}
	a, err := body.Load("a")
	if err != nil {
		return nil, err
	}
	b, err := body.Load("b")
	if err != nil {
		return nil, err
	}
	next, err := body.Add(a, b)
	if err != nil {
		return nil, err
	}
	if err := body.Store("a", b); err != nil {
		return nil, err
	}
	if err := body.Store("b", next); err != nil {
		return nil, err
	}
	result, err := m.Load("a")
	if err != nil {
		return nil, err
	}
	return m, m.ReturnValue(result)
}

// buildClamp builds clampI32(x, lo, hi) -> Int32, demonstrating nested
// IfThenElse usage independent of the other two methods.
func buildClamp(dict *types.Dictionary) (*ilgen.MethodBuilder, error) {
	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "clampI32", i32, ilgen.Options{})
	x := m.DefineParameter("x", i32)
	lo := m.DefineParameter("lo", i32)
	hi := m.DefineParameter("hi", i32)
	for _, name := range []string{"x", "lo", "hi"} {
		if err := m.DefineLocal(name, i32); err != nil {
			return nil, err
		}
	}
	if err := m.Store("x", x); err != nil {
		return nil, err
	}
	if err := m.Store("lo", lo); err != nil {
		return nil, err
	}
	if err := m.Store("hi", hi); err != nil {
		return nil, err
	}

	xv, err := m.Load("x")
	if err != nil {
		return nil, err
	}
	lov, err := m.Load("lo")
	if err != nil {
		return nil, err
	}
	tooLow, err := m.LessThan(xv, lov)
	if err != nil {
		return nil, err
	}

	lowCase := m.NewIlBuilder()
	loVal, err := lowCase.Load("lo")
	if err != nil {
		return nil, err
	}
	if err := lowCase.ReturnValue(loVal); err != nil {
		return nil, err
	}

	rest := m.NewIlBuilder()
	rx, err := rest.Load("x")
	if err != nil {
		return nil, err
	}
	rhi, err := rest.Load("hi")
	if err != nil {
		return nil, err
	}
	tooHigh, err := rest.GreaterThan(rx, rhi)
	if err != nil {
		return nil, err
	}

	highCase := rest.NewIlBuilder()
	hiVal, err := highCase.Load("hi")
	if err != nil {
		return nil, err
	}
	if err := highCase.ReturnValue(hiVal); err != nil {
		return nil, err
	}

	midCase := rest.NewIlBuilder()
	midVal, err := midCase.Load("x")
	if err != nil {
		return nil, err
	}
	if err := midCase.ReturnValue(midVal); err != nil {
		return nil, err
	}

	if err := rest.IfThenElse(tooHigh, highCase, midCase); err != nil {
		return nil, err
	}

	return m, m.IfThenElse(tooLow, lowCase, rest)
}
