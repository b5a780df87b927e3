package ilgen

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrorKind classifies a failure: usage errors and host-contract errors
// are both fail-fast with no retry; transcript errors (package replay)
// are recoverable at parse time and are reported as replay.ParseError
// instead of Error.
type ErrorKind int

const (
	// UsageError covers malformed host input: type mismatches, unknown
	// symbol names, duplicate appends, writes to closed aggregates.
	UsageError ErrorKind = iota
	// HostContractError covers violated assumptions about the host's
	// environment: an unresolved function after RequestFunction, an
	// unsupported platform capability.
	HostContractError
)

func (k ErrorKind) String() string {
	switch k {
	case UsageError:
		return "usage error"
	case HostContractError:
		return "host-contract error"
	default:
		return "error"
	}
}

// Error is the core's single fail-fast diagnostic type. It always names
// the operation and the builder that issued it.
type Error struct {
	Kind    ErrorKind
	Op      string // e.g. "Add", "Store", "RequestFunction"
	Builder string // identity of the issuing builder
	Detail  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s in %s: %s: %v", e.Kind, e.Op, e.Builder, e.Detail, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s in %s: %s", e.Kind, e.Op, e.Builder, e.Detail)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// usageErrorf builds a *Error of kind UsageError with no wrapped cause;
// wrapf is the variant that wraps one.
func usageErrorf(b identifier, op, format string, args ...any) *Error {
	return &Error{
		Kind:    UsageError,
		Op:      op,
		Builder: b.identity(),
		Detail:  fmt.Sprintf(format, args...),
	}
}

func hostContractErrorf(b identifier, op, format string, args ...any) *Error {
	return &Error{
		Kind:    HostContractError,
		Op:      op,
		Builder: b.identity(),
		Detail:  fmt.Sprintf(format, args...),
	}
}

// wrapf wraps err with additional context using golang.org/x/xerrors,
// preserving it for errors.Is/errors.As down the chain.
func wrapf(b identifier, op string, err error) *Error {
	return &Error{
		Kind:    UsageError,
		Op:      op,
		Builder: b.identity(),
		Detail:  "wrapped failure",
		Wrapped: xerrors.Errorf("%s: %w", op, err),
	}
}

// identifier is implemented by anything that can name itself in a
// diagnostic: Builder, BytecodeBuilder, MethodBuilder.
type identifier interface {
	identity() string
}
