// Package platform answers the handful of target-capability questions
// the ilgen core needs in order to decide whether an operation can be
// lowered directly or must degrade to a fallback path: atomic-add
// support, transactional-memory support, and the target word size.
//
// Capability queries are backed by golang.org/x/sys/cpu's real feature
// detection rather than a hand-rolled syscall table.
package platform

import "golang.org/x/sys/cpu"

// WordSize reports the target's native pointer width in bytes, used to
// choose between 32- and 64-bit address arithmetic.
type WordSize int

const (
	Word32 WordSize = 4
	Word64 WordSize = 8
)

// Capabilities describes what a target CPU supports. The zero value
// reports no atomics and no TM; its Word is 0, which names no word size.
type Capabilities struct {
	AtomicAdd           bool
	TransactionalMemory bool
	Word                WordSize
}

// Host returns the capabilities of the CPU this process is running on.
func Host() Capabilities {
	return Capabilities{
		AtomicAdd:           hostSupportsAtomicAdd(),
		TransactionalMemory: hostSupportsTM(),
		Word:                Word64,
	}
}

// hostSupportsAtomicAdd reports whether the host CPU has the compare-
// and-swap primitives the core's AtomicAdd/AtomicAddWithOffset services
// require to lower directly.
func hostSupportsAtomicAdd() bool {
	switch {
	case cpu.X86.HasCX8:
		return true
	case cpu.ARM64.HasATOMICS:
		return true
	default:
		return false
	}
}

// hostSupportsTM reports whether the host CPU supports hardware
// transactional memory. x86's RTM (part of TSX) is the concrete case
// checked here; on a host without it, Transaction degrades to the
// persistent-failure path rather than erroring.
func hostSupportsTM() bool {
	return cpu.X86.HasRTM
}
