package ilgen

import "github.com/jitil/ilgen/types"

// Call invokes the function named name with args and returns its
// result. If name has not been described via DefineFunction, the
// method's RequestFunction hook is consulted (once per name) before
// resolution fails as a host-contract error. A void function (nil
// ReturnType) is called for effect only; its Value is invalid.
func (b *Builder) Call(name string, args ...Value) (Value, error) {
	fn, err := b.method.resolveFunction(b, name)
	if err != nil {
		return Value{}, err
	}
	if err := checkCallArity(b, fn, args); err != nil {
		return Value{}, err
	}
	argNodes := make([]*node, len(args))
	for i, a := range args {
		argNodes[i] = a.n
	}
	n := &node{op: opCall, typ: fn.ReturnType, args: argNodes, callee: fn, name: name}
	result := b.emit(n)
	b.method.observe("Call", b.identity(), name, args, result)
	if fn.ReturnType == nil {
		return Value{}, nil
	}
	return result, nil
}

// ComputedCall invokes the callee described by target, an address
// Value (e.g. a function pointer resolved at runtime), with args. The
// host supplies the callee's signature via sig since there is no
// symbolic name to resolve.
func (b *Builder) ComputedCall(target Value, sig *Function, args ...Value) (Value, error) {
	if target.Type().Kind() != types.Address {
		return Value{}, usageErrorf(b, "ComputedCall", "callee must be an address, got %s", target.Type())
	}
	if sig == nil {
		return Value{}, usageErrorf(b, "ComputedCall", "callee signature required")
	}
	if err := checkCallArity(b, sig, args); err != nil {
		return Value{}, err
	}
	argNodes := make([]*node, 0, len(args)+1)
	argNodes = append(argNodes, target.n)
	for _, a := range args {
		argNodes = append(argNodes, a.n)
	}
	n := &node{op: opCall, typ: sig.ReturnType, args: argNodes, callee: sig}
	return b.emit(n), nil
}

func checkCallArity(b identifier, fn *Function, args []Value) error {
	if len(args) != len(fn.ParamTypes) {
		return usageErrorf(b, "Call", "function %q expects %d arguments, got %d", fn.Name, len(fn.ParamTypes), len(args))
	}
	for i, a := range args {
		if a.Type() != fn.ParamTypes[i] {
			return usageErrorf(b, "Call", "function %q argument %d: expected %s, got %s", fn.Name, i, fn.ParamTypes[i], a.Type())
		}
	}
	return nil
}
