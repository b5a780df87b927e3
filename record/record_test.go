package record

import (
	"bytes"
	"strings"
	"testing"
)

func TestLooksLikeIdentity(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"method:increment#1", true},
		{"bc#10:dispatch#7", true},
		{"value", false},
		{"fibRec", false},
		{"", false},
		{"#3", true},
		{"builder#", false},
	}
	for _, tt := range tests {
		if got := looksLikeIdentity(tt.s); got != tt.want {
			t.Errorf("looksLikeIdentity(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestIDWideningAt8BitThreshold(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(NewTextSink(&buf))
	for i := 0; i < id8BitMax-2; i++ {
		rec.Observe("Load", "b#1", "localName", 0)
		// force a fresh key each time so every call allocates a new ID
		rec.idFor(i)
	}
	if rec.bitWidth != 16 {
		t.Fatalf("bitWidth after crossing id8BitMax = %d, want 16", rec.bitWidth)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(buf.String(), "ID16BIT") {
		t.Fatalf("transcript missing ID16BIT widening marker:\n%s", buf.String())
	}
}

func TestObserveWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(NewTextSink(&buf))
	rec.Observe("Return", "b#1")
	rec.Observe("Return", "b#1")
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := strings.Count(buf.String(), "JBIL"); n != 1 {
		t.Fatalf("header written %d times, want 1", n)
	}
}
