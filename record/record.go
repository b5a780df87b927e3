// Package record observes every public API call made against an
// ilgen.MethodBuilder and its builders and serializes it to a
// transcript, so a later process can rebuild the identical IL without
// re-running the host's original construction logic. Recorder
// implements ilgen's unexported recorderHook interface by structural
// typing; ilgen never imports this package, so there is no import
// cycle. The recorder never influences construction, only watches it.
package record

import (
	"fmt"
	"io"

	"github.com/jitil/ilgen"
)

// idNull and idPending are the two reserved identifiers: 0 denotes the
// null builder/value, 1 is reserved for the method builder binding and
// is never allocated; the root builder receives an ordinary ID the first
// time it is observed.
const (
	idNull    = 0
	idPending = 1
)

// Widening markers: an ID below 254 is written as a single byte; at the
// 254th and 65534th allocation a widening marker statement is emitted
// before switching to a wider encoding.
const (
	id8BitMax  = 254
	id16BitMax = 65534
)

// Sink is the wire-format-specific half of a Recorder: it knows how to
// serialize one observed event, but not the ID allocation or widening
// policy above it.
type Sink interface {
	// Header is called once, before any statement, to write the
	// sink's framing preamble.
	Header() error
	// Statement writes one observed event with its already-resolved
	// argument encoding.
	Statement(event string, ids []uint32, extras []any) error
	// Widen records a transition to a wider ID encoding at the given
	// threshold, via an "ID16BIT"/"ID32BIT" marker statement.
	Widen(bits int) error
	// Trailer writes the closing "Done" statement.
	Trailer() error
	io.Closer
}

// Recorder allocates monotonic IDs for every builder/value it observes
// and forwards each event to a Sink. One Recorder serves exactly one
// MethodBuilder compilation; recorders are not shared across concurrent
// compilations.
type Recorder struct {
	sink Sink

	nextID   uint32
	ids      map[any]uint32
	bitWidth int // 8, 16, or 32

	headerWritten bool
	closed        bool
	err           error
}

// NewRecorder returns a Recorder writing through sink. The two reserved
// IDs (null, pending) are allocated immediately.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{
		sink:     sink,
		nextID:   2,
		ids:      make(map[any]uint32),
		bitWidth: 8,
	}
}

func (r *Recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Err returns the first error encountered while writing, if any.
func (r *Recorder) Err() error { return r.err }

// idFor returns the stable ID for key (a builder or value identity
// string), allocating a fresh one and widening the encoding if a
// threshold was just crossed.
func (r *Recorder) idFor(key any) uint32 {
	if key == nil {
		return idNull
	}
	if id, ok := r.ids[key]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.ids[key] = id
	switch {
	case id == id8BitMax && r.bitWidth == 8:
		r.bitWidth = 16
		if err := r.sink.Widen(16); err != nil {
			r.fail(err)
		}
	case id == id16BitMax && r.bitWidth == 16:
		r.bitWidth = 32
		if err := r.sink.Widen(32); err != nil {
			r.fail(err)
		}
	}
	return id
}

// Observe implements ilgen's recorderHook: it is called once per
// public API method the host invokes, with args in that method's
// parameter order. String args that name a builder or Value are
// resolved to stable IDs; everything else (types, constants, bools) is
// passed through to the sink verbatim.
func (r *Recorder) Observe(event string, args ...any) {
	if r.err != nil {
		return
	}
	if !r.headerWritten {
		r.headerWritten = true
		if err := r.sink.Header(); err != nil {
			r.fail(err)
			return
		}
	}
	ids := make([]uint32, 0, len(args))
	extras := make([]any, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case string:
			if looksLikeIdentity(v) {
				ids = append(ids, r.idFor(v))
				continue
			}
			extras = append(extras, v)
		case ilgen.Value:
			ids = append(ids, r.idFor(v.Name()))
		case []ilgen.Value:
			for _, e := range v {
				ids = append(ids, r.idFor(e.Name()))
			}
		default:
			extras = append(extras, a)
		}
	}
	if err := r.sink.Statement(event, ids, extras); err != nil {
		r.fail(err)
	}
}

// looksLikeIdentity reports whether s is a builder identity string (the
// "name#N" shape every Builder.identity() produces, including the method
// root's) as opposed to an ordinary host-supplied name string (a local
// name, a function name). This heuristic is sufficient because the
// builder identity strings passed to Observe always end in "#<digits>".
func looksLikeIdentity(s string) bool {
	i := len(s) - 1
	if i < 0 || s[i] < '0' || s[i] > '9' {
		return false
	}
	for i >= 0 && s[i] >= '0' && s[i] <= '9' {
		i--
	}
	return i >= 0 && s[i] == '#'
}

// Close finalizes the transcript, writing the trailer and closing the
// underlying sink.
func (r *Recorder) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	if err := r.sink.Trailer(); err != nil {
		r.fail(err)
	}
	if err := r.sink.Close(); err != nil {
		r.fail(err)
	}
	return r.err
}

func formatExtra(a any) string {
	switch v := a.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
