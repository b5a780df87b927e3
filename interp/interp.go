// Package interp is a reference, tree-walking evaluator for a built
// ilgen method: given the flattened block list BuildIL returns and a
// set of argument values, it walks the CFG block by block, evaluating
// each Instruction against a map of named locals. It exists purely to
// let package-level tests assert IL semantics without a real code
// generator, mirroring the role go/ssa/interp plays for go/ssa. It is
// never part of a downstream compilation pipeline and makes no claim to
// be one.
package interp

import (
	"fmt"

	"github.com/jitil/ilgen"
	"github.com/jitil/ilgen/types"
)

// Resolver evaluates a Call to a function the interpreter itself cannot
// see the body of, typically another MethodBuilder's own flattened
// blocks, re-entered through Run by the caller. This mirrors the way a
// host's real code generator would resolve calls, through whatever
// table the host maintains.
type Resolver func(name string, args []any) (any, error)

// frame is the interpreter's evaluation state for one call: the named
// locals (and saved instruction results) it has seen, and the resolver
// for Call instructions.
type frame struct {
	locals map[string]any
	calls  Resolver
}

// Run interprets method's flattened blocks starting at the entry
// block, binding m.Params in order to args. It returns the value
// passed to Return/ReturnValue, or the invalid zero value for a void
// method. A method whose body contains a Call cannot be interpreted
// this way; use RunWithCalls instead.
func Run(m *ilgen.MethodBuilder, blocks []*ilgen.Block, args []any) (any, error) {
	return RunWithCalls(m, blocks, args, nil)
}

// RunWithCalls is Run, but resolves any Call instruction encountered by
// invoking resolve with the callee's name and already-evaluated
// arguments, e.g. a closure that looks up a sibling MethodBuilder's own
// flattened blocks and recurses into Run, the shape needed for a
// recursive method to call itself.
func RunWithCalls(m *ilgen.MethodBuilder, blocks []*ilgen.Block, args []any, resolve Resolver) (any, error) {
	if len(args) != len(m.Params) {
		return nil, fmt.Errorf("interp: %s expects %d arguments, got %d", m.Name, len(m.Params), len(args))
	}
	fr := &frame{locals: make(map[string]any), calls: resolve}
	for i, p := range m.Params {
		fr.locals[p.Name] = args[i]
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("interp: %s has no blocks; BuildIL must run first", m.Name)
	}
	cur := blocks[0]
	visited := 0
	for cur != nil {
		visited++
		if visited > 1_000_000 {
			return nil, fmt.Errorf("interp: %s did not terminate (possible infinite loop)", m.Name)
		}
		next, result, done, err := fr.execBlock(cur)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
		cur = next
	}
	return nil, fmt.Errorf("interp: %s fell off the end of its blocks without a Return", m.Name)
}

// execBlock evaluates every instruction in b in order and returns the
// single successor to continue at, or signals that b ended in a
// Return.
func (fr *frame) execBlock(b *ilgen.Block) (next *ilgen.Block, result any, done bool, err error) {
	env := make(map[int]any) // per-instruction synthetic results, keyed by slice position
	instrs := b.Instructions()
	for idx, instr := range instrs {
		switch instr.Op() {
		case "Const":
			env[idx] = instr.ConstValue()
		case "Param":
			env[idx] = fr.locals[instr.SlotName()]
		case "Load":
			env[idx] = fr.locals[instr.SlotName()]
		case "Store":
			fr.locals[instr.SlotName()] = fr.operand(env, instrs, instr, 0)
		case "BinArith":
			x := fr.operand(env, instrs, instr, 0)
			y := fr.operand(env, instrs, instr, 1)
			v, err := evalArith(instr.ArithOp(), x, y)
			if err != nil {
				return nil, nil, false, err
			}
			env[idx] = v
		case "BinArithOverflow":
			x := fr.operand(env, instrs, instr, 0)
			y := fr.operand(env, instrs, instr, 1)
			v, overflowed := evalArithChecked(instr.ArithOp(), x, y)
			if overflowed {
				return instr.Targets()[0], nil, false, nil
			}
			env[idx] = v
		case "Compare":
			x := fr.operand(env, instrs, instr, 0)
			y := fr.operand(env, instrs, instr, 1)
			env[idx] = boolToInt32(evalCompare(instr.CompareOp(), instr.Unsigned(), x, y))
		case "Convert":
			env[idx] = evalConvert(instr.Result().Type(), fr.operand(env, instrs, instr, 0))
		case "Call":
			if fr.calls == nil {
				return nil, nil, false, fmt.Errorf("interp: Call is not evaluated by the reference interpreter (use RunWithCalls)")
			}
			ops := instr.Operands()
			callArgs := make([]any, len(ops))
			for i := range ops {
				callArgs[i] = fr.operand(env, instrs, instr, i)
			}
			v, err := fr.calls(instr.Callee().Name, callArgs)
			if err != nil {
				return nil, nil, false, err
			}
			env[idx] = v
		case "Goto":
			return instr.Targets()[0], nil, false, nil
		case "If":
			cond := fr.operand(env, instrs, instr, 0)
			targets := instr.Targets()
			if len(instr.Operands()) == 2 {
				y := fr.operand(env, instrs, instr, 1)
				if evalCompare(instr.CompareOp(), instr.Unsigned(), cond, y) {
					return targets[0], nil, false, nil
				}
				return targets[1], nil, false, nil
			}
			if truthy(cond) {
				return targets[0], nil, false, nil
			}
			return targets[1], nil, false, nil
		case "Switch":
			sel := fr.operand(env, instrs, instr, 0)
			targets := instr.Targets()
			selI32, _ := sel.(int32)
			matched := targets[len(targets)-1] // default
			for i, cv := range instr.CaseValues() {
				if cv == selI32 {
					matched = targets[i]
					break
				}
			}
			return matched, nil, false, nil
		case "Return":
			if ops := instr.Operands(); len(ops) > 0 {
				return nil, fr.operand(env, instrs, instr, 0), true, nil
			}
			return nil, nil, true, nil
		default:
			return nil, nil, false, fmt.Errorf("interp: opcode %q not supported by the reference interpreter", instr.Op())
		}
		// Save the result under its operand name so later blocks can
		// resolve it through operand's locals fallback.
		if v, ok := env[idx]; ok {
			fr.locals[instr.Result().Name()] = v
		}
	}
	return nil, nil, false, fmt.Errorf("interp: block fell through without a terminator")
}

// operand resolves operand index of instr: either a previously computed
// synthetic value from this block's env, or (if produced by an earlier
// block, or a parameter) the value held in locals under the operand's
// Name(): the local's name for loads and parameters, the synthesized
// "tN" name under which execBlock saved any other result.
func (fr *frame) operand(env map[int]any, instrs []ilgen.Instruction, instr ilgen.Instruction, index int) any {
	target := instr.Operands()[index]
	for i, other := range instrs {
		if other.Result() == target {
			if v, ok := env[i]; ok {
				return v
			}
		}
	}
	if target.Name() != "" {
		if v, ok := fr.locals[target.Name()]; ok {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case int32:
		return x != 0
	case int64:
		return x != 0
	case int8:
		return x != 0
	case int16:
		return x != 0
	default:
		return false
	}
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uintptr:
		return int64(x)
	default:
		return 0
	}
}

func evalArith(op ilgen.ArithOp, x, y any) (any, error) {
	if fx, ok := x.(float64); ok {
		fy, _ := y.(float64)
		return evalFloatArith(op, fx, fy)
	}
	xi, yi := asInt64(x), asInt64(y)
	switch op {
	case ilgen.OpAdd:
		return narrow(x, xi+yi), nil
	case ilgen.OpSub:
		return narrow(x, xi-yi), nil
	case ilgen.OpMul:
		return narrow(x, xi*yi), nil
	case ilgen.OpDiv:
		if yi == 0 {
			return nil, fmt.Errorf("interp: division by zero")
		}
		return narrow(x, xi/yi), nil
	case ilgen.OpAnd:
		return narrow(x, xi&yi), nil
	case ilgen.OpOr:
		return narrow(x, xi|yi), nil
	case ilgen.OpXor:
		return narrow(x, xi^yi), nil
	case ilgen.OpShiftL:
		return narrow(x, xi<<uint(yi)), nil
	case ilgen.OpShiftR:
		return narrow(x, xi>>uint(yi)), nil
	case ilgen.OpUnsignedShiftR:
		return narrow(x, int64(uint64(xi)>>uint(yi))), nil
	default:
		return nil, fmt.Errorf("interp: unsupported arithmetic op %v", op)
	}
}

func evalFloatArith(op ilgen.ArithOp, x, y float64) (any, error) {
	switch op {
	case ilgen.OpAdd:
		return x + y, nil
	case ilgen.OpSub:
		return x - y, nil
	case ilgen.OpMul:
		return x * y, nil
	case ilgen.OpDiv:
		return x / y, nil
	default:
		return nil, fmt.Errorf("interp: unsupported floating-point op %v", op)
	}
}

func narrow(like any, v int64) any {
	switch like.(type) {
	case int8:
		return int8(v)
	case int16:
		return int16(v)
	case int32:
		return int32(v)
	default:
		return v
	}
}

func evalArithChecked(op ilgen.ArithOp, x, y any) (any, bool) {
	xi, yi := asInt64(x), asInt64(y)
	switch op {
	case ilgen.OpAdd:
		sum := xi + yi
		if (yi > 0 && sum < xi) || (yi < 0 && sum > xi) {
			return nil, true
		}
		return narrow(x, sum), false
	case ilgen.OpSub:
		diff := xi - yi
		if (yi < 0 && diff < xi) || (yi > 0 && diff > xi) {
			return nil, true
		}
		return narrow(x, diff), false
	case ilgen.OpMul:
		if xi != 0 && (xi*yi)/xi != yi {
			return nil, true
		}
		return narrow(x, xi*yi), false
	default:
		return nil, true
	}
}

func evalCompare(op ilgen.CompareOp, unsigned bool, x, y any) bool {
	if fx, ok := x.(float64); ok {
		fy, _ := y.(float64)
		return compareOrdered(op, fx, fy)
	}
	if unsigned {
		return compareOrdered(op, uint64(asInt64(x)), uint64(asInt64(y)))
	}
	return compareOrdered(op, asInt64(x), asInt64(y))
}

func compareOrdered[T int64 | uint64 | float64](op ilgen.CompareOp, x, y T) bool {
	switch op {
	case ilgen.OpEqualTo:
		return x == y
	case ilgen.OpNotEqualTo:
		return x != y
	case ilgen.OpLessThan:
		return x < y
	case ilgen.OpLessOrEqualTo:
		return x <= y
	case ilgen.OpGreaterThan:
		return x > y
	case ilgen.OpGreaterOrEqualTo:
		return x >= y
	default:
		return false
	}
}

func evalConvert(dst types.Type, v any) any {
	switch dst.Kind() {
	case types.Int8:
		return int8(asInt64(v))
	case types.Int16:
		return int16(asInt64(v))
	case types.Int32:
		return int32(asInt64(v))
	case types.Int64:
		return asInt64(v)
	case types.Float:
		return float32(toFloat(v))
	case types.Double:
		return toFloat(v)
	default:
		return v
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return float64(asInt64(v))
	}
}
