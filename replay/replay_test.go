package replay_test

import (
	"bytes"
	"testing"

	"github.com/jitil/ilgen"
	"github.com/jitil/ilgen/interp"
	"github.com/jitil/ilgen/record"
	"github.com/jitil/ilgen/replay"
	"github.com/jitil/ilgen/types"
)

// buildRecordedIdentity builds the same increment(value) method as the
// core package's own identity test, with a Recorder attached, and
// returns the finished method alongside its text transcript (spec §8,
// Scenario 4: "record-then-replay equivalence").
func buildRecordedIdentity(t *testing.T, dict *types.Dictionary) (*ilgen.MethodBuilder, []*ilgen.Block, []byte) {
	t.Helper()
	var buf bytes.Buffer
	rec := record.NewRecorder(record.NewTextSink(&buf))

	i32 := dict.Primitive(types.Int32)
	m := ilgen.NewMethodBuilder(dict, "increment", i32, ilgen.Options{})
	m.SetRecorder(rec)

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
	if err := rec.Close(); err != nil {
		t.Fatalf("Recorder.Close: %v", err)
	}

	blocks, err := m.BuildIL()
	if err != nil {
		t.Fatalf("BuildIL: %v", err)
	}
	return m, blocks, buf.Bytes()
}

func TestRecordThenReplayReproducesTranscript(t *testing.T) {
	dict := types.NewDictionary()
	i32 := dict.Primitive(types.Int32)
	origM, origBlocks, transcript := buildRecordedIdentity(t, dict)

	want, err := interp.Run(origM, origBlocks, []any{int32(41)})
	if err != nil {
		t.Fatalf("interp.Run(original): %v", err)
	}

	// Replay against a fresh MethodBuilder, with its own Recorder
	// attached so the replayed transcript can be compared byte-for-byte
	// against the original (spec §8: "R and R' decode to identical
	// statement sequences").
	var replayedBuf bytes.Buffer
	replayedRec := record.NewRecorder(record.NewTextSink(&replayedBuf))

	replayM := ilgen.NewMethodBuilder(dict, "increment", i32, ilgen.Options{})
	replayM.SetRecorder(replayedRec)

	rep := replay.NewReplay(dict)
	if err := rep.Parse(bytes.NewReader(transcript)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := rep.Apply(replayM); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := replayedRec.Close(); err != nil {
		t.Fatalf("replayed Recorder.Close: %v", err)
	}

	replayedBlocks, err := replayM.BuildIL()
	if err != nil {
		t.Fatalf("BuildIL(replayed): %v", err)
	}

	got, err := interp.Run(replayM, replayedBlocks, []any{int32(41)})
	if err != nil {
		t.Fatalf("interp.Run(replayed): %v", err)
	}
	if got != want {
		t.Fatalf("replayed increment(41) = %v, want %v (original)", got, want)
	}

	if !bytes.Equal(transcript, replayedBuf.Bytes()) {
		t.Fatalf("replayed transcript differs from the original:\noriginal:\n%s\nreplayed:\n%s", transcript, replayedBuf.Bytes())
	}
}

func TestParseRejectsUnknownStatement(t *testing.T) {
	bad := "JBIL 1 0 0\nFrobnicate ID2\nDone\n"
	rep := replay.NewReplay(types.NewDictionary())
	if err := rep.Parse(bytes.NewReader([]byte(bad))); err == nil {
		t.Fatalf("Parse accepted an unrecognized statement name")
	}
}

func TestParseRejectsMissingHeader(t *testing.T) {
	bad := "Return ID1\nDone\n"
	rep := replay.NewReplay(types.NewDictionary())
	if err := rep.Parse(bytes.NewReader([]byte(bad))); err == nil {
		t.Fatalf("Parse accepted a transcript missing the JBIL header")
	}
}
