package record

import (
	"bufio"
	"fmt"
	"io"
)

// TextSink writes a human-readable, whitespace-tokenized transcript:
// one statement per line, "ID<n>" tokens for resolved references,
// "<len> [<bytes>]" length-prefixed strings for text data, and a "Def" token in
// place of ID0 (the null builder).
type TextSink struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewTextSink wraps w (closed by Close if it also implements io.Closer).
func NewTextSink(w io.Writer) *TextSink {
	ts := &TextSink{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		ts.closer = c
	}
	return ts
}

func (t *TextSink) Header() error {
	_, err := fmt.Fprintln(t.w, "JBIL 1 0 0")
	return err
}

func (t *TextSink) Statement(event string, ids []uint32, extras []any) error {
	if _, err := fmt.Fprintf(t.w, "%s", event); err != nil {
		return err
	}
	for _, id := range ids {
		tok := "Def"
		if id != idNull {
			tok = fmt.Sprintf("ID%d", id)
		}
		if _, err := fmt.Fprintf(t.w, " %s", tok); err != nil {
			return err
		}
	}
	for _, e := range extras {
		if _, err := fmt.Fprintf(t.w, " %s", formatTextExtra(e)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(t.w)
	return err
}

func formatTextExtra(a any) string {
	switch v := a.(type) {
	case string:
		return fmt.Sprintf("%d [%s]", len(v), v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return formatExtra(a)
	}
}

func (t *TextSink) Widen(bits int) error {
	tag := "ID16BIT"
	if bits == 32 {
		tag = "ID32BIT"
	}
	_, err := fmt.Fprintln(t.w, tag)
	return err
}

func (t *TextSink) Trailer() error {
	_, err := fmt.Fprintln(t.w, "Done")
	return err
}

func (t *TextSink) Close() error {
	if err := t.w.Flush(); err != nil {
		return err
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
