package record

import (
	"fmt"
	"os"

	"github.com/jitil/ilgen"
)

// Attach opens whichever transcript path m's Options names
// (TextRecorderPath takes precedence over BinaryRecorderPath if both are
// set, since a host debugging a single compilation usually wants the
// readable form) and attaches a Recorder writing through it, returning
// the Recorder so the caller can Close it once the method is fully
// built. It returns a nil Recorder, doing nothing, if neither path is
// set (spec §6: "two environment/option hooks... recognized at
// MethodBuilder construction").
func Attach(m *ilgen.MethodBuilder) (*Recorder, error) {
	opts := m.RecorderOptions()
	switch {
	case opts.TextRecorderPath != "":
		f, err := os.Create(opts.TextRecorderPath)
		if err != nil {
			return nil, fmt.Errorf("record: opening text transcript: %w", err)
		}
		rec := NewRecorder(NewTextSink(f))
		m.SetRecorder(rec)
		return rec, nil
	case opts.BinaryRecorderPath != "":
		f, err := os.Create(opts.BinaryRecorderPath)
		if err != nil {
			return nil, fmt.Errorf("record: opening binary transcript: %w", err)
		}
		rec := NewRecorder(NewBinarySink(f))
		m.SetRecorder(rec)
		return rec, nil
	default:
		return nil, nil
	}
}
