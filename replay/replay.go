// Package replay parses a record.Recorder transcript and drives an
// ilgen.MethodBuilder through the identical sequence of API calls that
// produced it. Unlike the Recorder side, which never errors the host's
// build, a transcript is untrusted input: malformed statements are
// reported as ParseError values distinct from ilgen's own *ilgen.Error
// taxonomy, and are recoverable at parse time.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jitil/ilgen"
	"github.com/jitil/ilgen/types"
)

// ParseError reports a malformed or unrecognized transcript statement.
// It is always returned alongside the statements successfully parsed so
// far.
type ParseError struct {
	Line   int
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("replay: line %d: %s", e.Line, e.Detail)
}

// statementKind is the closed enum a parsed statement dispatches on,
// used in place of duck-typed string dispatch: an unrecognized event
// name is rejected at parse time instead of silently falling through to
// a default case.
type statementKind int

const (
	kindDefineParameter statementKind = iota
	kindDefineLocal
	kindDefineMemory
	kindDefineFile
	kindDefineLine
	kindNewIlBuilder
	kindConst
	kindLoad
	kindStore
	kindAdd
	kindSub
	kindMul
	kindDiv
	kindAnd
	kindOr
	kindXor
	kindLessThan
	kindNotEqualTo
	kindAppendBuilder
	kindGoto
	kindReturn
	kindReturnValue
	kindIfThen
	kindIfThenElse
	kindIfCmpEqual
	kindIfCmpNotEqual
	kindIfCmpLessThan
	kindIfCmpGreaterThan
	kindCall
	kindDone
)

var statementNames = map[string]statementKind{
	"DefineParameter":  kindDefineParameter,
	"DefineLocal":      kindDefineLocal,
	"DefineMemory":     kindDefineMemory,
	"DefineFile":       kindDefineFile,
	"DefineLine":       kindDefineLine,
	"NewIlBuilder":     kindNewIlBuilder,
	"Const":            kindConst,
	"Load":             kindLoad,
	"Store":            kindStore,
	"Add":              kindAdd,
	"Sub":              kindSub,
	"Mul":              kindMul,
	"Div":              kindDiv,
	"And":              kindAnd,
	"Or":               kindOr,
	"Xor":              kindXor,
	"LessThan":         kindLessThan,
	"NotEqualTo":       kindNotEqualTo,
	"AppendBuilder":    kindAppendBuilder,
	"Goto":             kindGoto,
	"Return":           kindReturn,
	"ReturnValue":      kindReturnValue,
	"IfThen":           kindIfThen,
	"IfThenElse":       kindIfThenElse,
	"IfCmpEqualTo":     kindIfCmpEqual,
	"IfCmpNotEqualTo":  kindIfCmpNotEqual,
	"IfCmpLessThan":    kindIfCmpLessThan,
	"IfCmpGreaterThan": kindIfCmpGreaterThan,
	"Call":             kindCall,
	"Done":             kindDone,
}

// statement is one parsed line of the text wire format: an event kind,
// a list of referenced IDs (builders/values, 0 meaning "Def"/null), and
// the inline extras (strings, numbers, bools) that followed them.
type statement struct {
	line   int
	kind   statementKind
	ids    []uint32
	extras []string
}

// Replay drives an *ilgen.MethodBuilder through a previously recorded
// transcript. Construction is a two-phase protocol: Parse reads and
// validates every statement up to and including Done; Apply then
// issues the corresponding ilgen API calls in order, covering the
// constructor phase the transcript records (BuildIL itself is the
// caller's job afterward).
//
// ID resolution mirrors record.Recorder's own allocation discipline:
// every node- or builder-producing statement carries its own result as
// the LAST id in its id list (see the observe call sites in package
// ilgen), so Apply can bind a fresh numeric id to the concrete
// Value/Builder it just produced the moment that statement executes,
// rather than guessing which of several earlier, still-unbound results
// a later reference must mean.
type Replay struct {
	dict     *types.Dictionary
	values   map[uint32]ilgen.Value
	builders map[uint32]*ilgen.Builder
	stmts    []statement
}

// NewReplay returns a Replay that will resolve primitive/aggregate
// types against dict.
func NewReplay(dict *types.Dictionary) *Replay {
	return &Replay{
		dict:     dict,
		values:   make(map[uint32]ilgen.Value),
		builders: make(map[uint32]*ilgen.Builder),
	}
}

// Parse reads a text-format transcript from r, stopping at (and
// including) the Done statement. It does not touch any MethodBuilder;
// that happens in Apply, so a transcript can be validated independently
// of a compilation.
func (p *Replay) Parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	sawHeader := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			sawHeader = true
			if !strings.HasPrefix(line, "JBIL") {
				return &ParseError{Line: lineNo, Detail: "missing JBIL header"}
			}
			continue
		}
		if line == "ID16BIT" || line == "ID32BIT" {
			continue // widening markers carry no host-visible meaning during replay
		}
		st, err := parseLine(lineNo, line)
		if err != nil {
			return err
		}
		p.stmts = append(p.stmts, st)
		if st.kind == kindDone {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return &ParseError{Line: lineNo, Detail: "transcript ended before Done"}
}

func parseLine(lineNo int, line string) (statement, error) {
	fields := tokenize(line)
	if len(fields) == 0 {
		return statement{}, &ParseError{Line: lineNo, Detail: "empty statement"}
	}
	kind, ok := statementNames[fields[0]]
	if !ok {
		return statement{}, &ParseError{Line: lineNo, Detail: fmt.Sprintf("unrecognized statement %q", fields[0])}
	}
	st := statement{line: lineNo, kind: kind}
	for _, f := range fields[1:] {
		switch {
		case f == "Def":
			st.ids = append(st.ids, 0)
		case strings.HasPrefix(f, "ID"):
			n, err := strconv.ParseUint(f[2:], 10, 32)
			if err != nil {
				return statement{}, &ParseError{Line: lineNo, Detail: fmt.Sprintf("bad ID token %q", f)}
			}
			st.ids = append(st.ids, uint32(n))
		default:
			st.extras = append(st.extras, f)
		}
	}
	return st, nil
}

// tokenize splits a statement line on whitespace, re-joining bracketed
// string literals ("<len> [<bytes>]") back into a single extras token.
func tokenize(line string) []string {
	var out []string
	fields := strings.Fields(line)
	for i := 0; i < len(fields); i++ {
		if i+1 < len(fields) && strings.HasPrefix(fields[i+1], "[") {
			rest := strings.Join(fields[i+1:], " ")
			end := strings.Index(rest, "]")
			if end >= 0 {
				out = append(out, rest[1:end])
				for end >= 0 && i < len(fields) {
					consumed := strings.Count(rest[:end+1], " ") + 1
					i += consumed
					break
				}
				continue
			}
		}
		out = append(out, fields[i])
	}
	return out
}

// Apply issues the parsed transcript's API calls against m, in order,
// stopping at the first ilgen error (a usage or host-contract error
// from the replayed call itself, not a *ParseError since Parse already
// validated statement shape). The method's own root builder is bound to
// whichever builder id first appears in the transcript.
func (p *Replay) Apply(m *ilgen.MethodBuilder) error {
	for _, st := range p.stmts {
		if err := p.applyOne(m, st); err != nil {
			return fmt.Errorf("replay: line %d: %w", st.line, err)
		}
	}
	return nil
}

// builderFor resolves id to a live Builder, binding it to m's root the
// first time any id is seen (every transcript's first builder reference
// is always the method root, since every nested builder is introduced
// explicitly via a prior NewIlBuilder statement before anything
// references it).
func (p *Replay) builderFor(m *ilgen.MethodBuilder, id uint32) *ilgen.Builder {
	if id == 0 {
		return nil
	}
	if b, ok := p.builders[id]; ok {
		return b
	}
	p.builders[id] = m.Builder
	return m.Builder
}

func (p *Replay) applyOne(m *ilgen.MethodBuilder, st statement) error {
	switch st.kind {
	case kindDone:
		return nil

	case kindDefineFile:
		if len(st.extras) > 0 {
			m.SetFileAndLine(st.extras[0], m.Line)
		}
		return nil

	case kindDefineLine:
		if len(st.extras) > 0 {
			n, _ := strconv.Atoi(st.extras[0])
			m.SetFileAndLine(m.File, n)
		}
		return nil

	case kindDefineParameter:
		if len(st.extras) < 2 {
			return fmt.Errorf("DefineParameter requires a name and a type")
		}
		typ, err := p.resolveType(st.extras[1])
		if err != nil {
			return err
		}
		v := m.DefineParameter(st.extras[0], typ)
		if len(st.ids) > 0 {
			p.values[st.ids[0]] = v
		}
		return nil

	case kindDefineLocal:
		if len(st.extras) < 2 {
			return fmt.Errorf("DefineLocal requires a name and a type")
		}
		typ, err := p.resolveType(st.extras[1])
		if err != nil {
			return err
		}
		return m.DefineLocal(st.extras[0], typ)

	case kindDefineMemory:
		if len(st.extras) < 2 {
			return fmt.Errorf("DefineMemory requires a name and a type")
		}
		typ, err := p.resolveType(st.extras[1])
		if err != nil {
			return err
		}
		var addr uint64
		if len(st.extras) > 2 {
			addr, _ = strconv.ParseUint(st.extras[2], 10, 64)
		}
		return m.DefineMemory(st.extras[0], typ, uintptr(addr))

	case kindNewIlBuilder:
		if len(st.ids) < 2 {
			return fmt.Errorf("NewIlBuilder requires a parent and a child id")
		}
		parent := p.builderFor(m, st.ids[0])
		child := parent.NewIlBuilder()
		p.builders[st.ids[1]] = child
		return nil

	case kindConst:
		if len(st.ids) < 2 || len(st.extras) < 2 {
			return fmt.Errorf("Const requires a builder, a type, a literal and a result id")
		}
		b := p.builderFor(m, st.ids[0])
		typ, err := p.resolveType(st.extras[0])
		if err != nil {
			return err
		}
		v, err := constFromLiteral(b, typ, st.extras[1])
		if err != nil {
			return err
		}
		p.values[st.ids[len(st.ids)-1]] = v
		return nil

	case kindLoad:
		if len(st.ids) < 2 || len(st.extras) == 0 {
			return fmt.Errorf("Load requires a builder, a name and a result id")
		}
		b := p.builderFor(m, st.ids[0])
		v, err := b.Load(st.extras[0])
		if err != nil {
			return err
		}
		p.values[st.ids[len(st.ids)-1]] = v
		return nil

	case kindStore:
		if len(st.ids) < 2 || len(st.extras) == 0 {
			return fmt.Errorf("Store requires a builder, a name and a value id")
		}
		b := p.builderFor(m, st.ids[0])
		v, ok := p.values[st.ids[1]]
		if !ok {
			return fmt.Errorf("Store: unknown value id %d", st.ids[1])
		}
		return b.Store(st.extras[0], v)

	case kindAdd, kindSub, kindMul, kindDiv, kindAnd, kindOr, kindXor:
		return p.applyArith(m, st)

	case kindLessThan, kindNotEqualTo:
		return p.applyCompare(m, st)

	case kindAppendBuilder:
		if len(st.ids) < 2 {
			return fmt.Errorf("AppendBuilder requires a parent and a child id")
		}
		parent := p.builderFor(m, st.ids[0])
		child := p.builderFor(m, st.ids[1])
		return parent.AppendBuilder(child)

	case kindGoto:
		if len(st.ids) < 2 {
			return fmt.Errorf("Goto requires a builder and a target id")
		}
		b := p.builderFor(m, st.ids[0])
		target := p.builderFor(m, st.ids[1])
		return b.Goto(target)

	case kindReturn:
		if len(st.ids) < 1 {
			return fmt.Errorf("Return requires a builder id")
		}
		return p.builderFor(m, st.ids[0]).Return()

	case kindReturnValue:
		if len(st.ids) < 2 {
			return fmt.Errorf("ReturnValue requires a builder and a value id")
		}
		b := p.builderFor(m, st.ids[0])
		v, ok := p.values[st.ids[1]]
		if !ok {
			return fmt.Errorf("ReturnValue: unknown value id %d", st.ids[1])
		}
		return b.ReturnValue(v)

	case kindIfThen:
		if len(st.ids) < 3 {
			return fmt.Errorf("IfThen requires a builder, a then-builder and a condition id")
		}
		b := p.builderFor(m, st.ids[0])
		thenB := p.builderFor(m, st.ids[1])
		cond, ok := p.values[st.ids[2]]
		if !ok {
			return fmt.Errorf("IfThen: unknown condition id %d", st.ids[2])
		}
		return b.IfThen(cond, thenB)

	case kindIfThenElse:
		if len(st.ids) < 4 {
			return fmt.Errorf("IfThenElse requires a builder, a then, an else and a condition id")
		}
		b := p.builderFor(m, st.ids[0])
		thenB := p.builderFor(m, st.ids[1])
		elseB := p.builderFor(m, st.ids[2])
		cond, ok := p.values[st.ids[3]]
		if !ok {
			return fmt.Errorf("IfThenElse: unknown condition id %d", st.ids[3])
		}
		return b.IfThenElse(cond, thenB, elseB)

	case kindIfCmpEqual, kindIfCmpNotEqual, kindIfCmpLessThan, kindIfCmpGreaterThan:
		return p.applyIfCmp(m, st)

	case kindCall:
		if len(st.ids) < 2 || len(st.extras) == 0 {
			return fmt.Errorf("Call requires a builder, a function name and a result id")
		}
		b := p.builderFor(m, st.ids[0])
		args := make([]ilgen.Value, 0, len(st.ids)-2)
		for _, id := range st.ids[1 : len(st.ids)-1] {
			v, ok := p.values[id]
			if !ok {
				return fmt.Errorf("Call: unknown argument id %d", id)
			}
			args = append(args, v)
		}
		v, err := b.Call(st.extras[0], args...)
		if err != nil {
			return err
		}
		if n := len(st.ids); n > 1 {
			p.values[st.ids[n-1]] = v
		}
		return nil

	default:
		return fmt.Errorf("statement kind %d not wired to an Apply handler", st.kind)
	}
}

func (p *Replay) applyArith(m *ilgen.MethodBuilder, st statement) error {
	if len(st.ids) < 3 {
		return fmt.Errorf("%v requires a builder and two operand ids", st.kind)
	}
	b := p.builderFor(m, st.ids[0])
	x, ok := p.values[st.ids[1]]
	if !ok {
		return fmt.Errorf("arithmetic: unknown operand id %d", st.ids[1])
	}
	y, ok := p.values[st.ids[2]]
	if !ok {
		return fmt.Errorf("arithmetic: unknown operand id %d", st.ids[2])
	}
	var v ilgen.Value
	var err error
	switch st.kind {
	case kindAdd:
		v, err = b.Add(x, y)
	case kindSub:
		v, err = b.Sub(x, y)
	case kindMul:
		v, err = b.Mul(x, y)
	case kindDiv:
		v, err = b.Div(x, y)
	case kindAnd:
		v, err = b.And(x, y)
	case kindOr:
		v, err = b.Or(x, y)
	case kindXor:
		v, err = b.Xor(x, y)
	}
	if err != nil {
		return err
	}
	if n := len(st.ids); n > 3 {
		p.values[st.ids[n-1]] = v
	}
	return nil
}

func (p *Replay) applyCompare(m *ilgen.MethodBuilder, st statement) error {
	if len(st.ids) < 3 {
		return fmt.Errorf("%v requires a builder and two operand ids", st.kind)
	}
	b := p.builderFor(m, st.ids[0])
	x, ok := p.values[st.ids[1]]
	if !ok {
		return fmt.Errorf("compare: unknown operand id %d", st.ids[1])
	}
	y, ok := p.values[st.ids[2]]
	if !ok {
		return fmt.Errorf("compare: unknown operand id %d", st.ids[2])
	}
	var v ilgen.Value
	var err error
	switch st.kind {
	case kindLessThan:
		v, err = b.LessThan(x, y)
	case kindNotEqualTo:
		v, err = b.NotEqualTo(x, y)
	}
	if err != nil {
		return err
	}
	if n := len(st.ids); n > 3 {
		p.values[st.ids[n-1]] = v
	}
	return nil
}

func (p *Replay) applyIfCmp(m *ilgen.MethodBuilder, st statement) error {
	if len(st.ids) < 4 {
		return fmt.Errorf("%v requires a builder, a target and two operand ids", st.kind)
	}
	b := p.builderFor(m, st.ids[0])
	target := p.builderFor(m, st.ids[1])
	x, ok := p.values[st.ids[2]]
	if !ok {
		return fmt.Errorf("IfCmp: unknown operand id %d", st.ids[2])
	}
	var y ilgen.Value
	if len(st.ids) > 3 {
		y, ok = p.values[st.ids[3]]
		if !ok {
			return fmt.Errorf("IfCmp: unknown operand id %d", st.ids[3])
		}
	}
	switch st.kind {
	case kindIfCmpEqual:
		return b.IfCmpEqual(target, x, y)
	case kindIfCmpNotEqual:
		return b.IfCmpNotEqual(target, x, y)
	case kindIfCmpLessThan:
		return b.IfCmpLessThan(target, x, y)
	case kindIfCmpGreaterThan:
		return b.IfCmpGreaterThan(target, x, y)
	}
	return nil
}

// constFromLiteral parses a text-wire numeric literal back into the
// matching Const* call for typ.
func constFromLiteral(b *ilgen.Builder, typ types.Type, literal string) (ilgen.Value, error) {
	switch typ.Kind() {
	case types.Int8:
		n, err := strconv.ParseInt(literal, 10, 8)
		return b.ConstInt8(int8(n)), err
	case types.Int16:
		n, err := strconv.ParseInt(literal, 10, 16)
		return b.ConstInt16(int16(n)), err
	case types.Int32:
		n, err := strconv.ParseInt(literal, 10, 32)
		return b.ConstInt32(int32(n)), err
	case types.Int64:
		n, err := strconv.ParseInt(literal, 10, 64)
		return b.ConstInt64(n), err
	case types.Float:
		f, err := strconv.ParseFloat(literal, 32)
		return b.ConstFloat(float32(f)), err
	case types.Double:
		f, err := strconv.ParseFloat(literal, 64)
		return b.ConstDouble(f), err
	case types.Address:
		n, err := strconv.ParseUint(literal, 10, 64)
		return b.ConstAddress(uintptr(n)), err
	default:
		return ilgen.Value{}, fmt.Errorf("Const: unsupported literal kind %s", typ)
	}
}

// resolveType maps a transcript's type token (a primitive kind name) to
// the matching Type in p.dict; struct/union/pointer tokens are a
// documented extension point, not yet needed by any scalar-only
// transcript this package has had to replay.
func (p *Replay) resolveType(token string) (types.Type, error) {
	kinds := map[string]types.Kind{
		"Int8": types.Int8, "Int16": types.Int16, "Int32": types.Int32,
		"Int64": types.Int64, "Float": types.Float, "Double": types.Double,
		"Address": types.Address,
	}
	k, ok := kinds[token]
	if !ok {
		return nil, fmt.Errorf("unknown type token %q", token)
	}
	return p.dict.Primitive(k), nil
}
