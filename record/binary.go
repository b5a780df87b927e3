package record

import (
	"encoding/binary"
	"fmt"
	"io"
)

// binaryMagic and the three int16 version fields are the fixed header
// every binary transcript opens with: magic "JBIL" followed by a
// 3-component version.
var binaryMagic = [4]byte{'J', 'B', 'I', 'L'}

const (
	extraString = iota
	extraInt64
	extraFloat64
	extraBool
)

// BinarySink writes a little-endian fixed-width encoding: each statement
// is a length-prefixed event name, an ID count and ID list sized to the
// current bit width, and a tagged extras list.
type BinarySink struct {
	w        io.Writer
	bitWidth int
}

// NewBinarySink wraps w.
func NewBinarySink(w io.Writer) *BinarySink {
	return &BinarySink{w: w, bitWidth: 8}
}

func (s *BinarySink) Header() error {
	if _, err := s.w.Write(binaryMagic[:]); err != nil {
		return err
	}
	version := [3]int16{1, 0, 0}
	for _, v := range version {
		if err := binary.Write(s.w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *BinarySink) writeID(id uint32) error {
	switch s.bitWidth {
	case 8:
		return binary.Write(s.w, binary.LittleEndian, uint8(id))
	case 16:
		return binary.Write(s.w, binary.LittleEndian, uint16(id))
	default:
		return binary.Write(s.w, binary.LittleEndian, id)
	}
}

func (s *BinarySink) Statement(event string, ids []uint32, extras []any) error {
	if len(event) > 255 {
		return fmt.Errorf("record: event name %q exceeds 255 bytes", event)
	}
	if err := binary.Write(s.w, binary.LittleEndian, uint8(len(event))); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, event); err != nil {
		return err
	}
	if err := binary.Write(s.w, binary.LittleEndian, uint8(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.writeID(id); err != nil {
			return err
		}
	}
	if err := binary.Write(s.w, binary.LittleEndian, uint8(len(extras))); err != nil {
		return err
	}
	for _, e := range extras {
		if err := s.writeExtra(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *BinarySink) writeExtra(a any) error {
	switch v := a.(type) {
	case string:
		if err := binary.Write(s.w, binary.LittleEndian, uint8(extraString)); err != nil {
			return err
		}
		if err := binary.Write(s.w, binary.LittleEndian, uint32(len(v))); err != nil {
			return err
		}
		_, err := io.WriteString(s.w, v)
		return err
	case bool:
		if err := binary.Write(s.w, binary.LittleEndian, uint8(extraBool)); err != nil {
			return err
		}
		var b uint8
		if v {
			b = 1
		}
		return binary.Write(s.w, binary.LittleEndian, b)
	case float32:
		return s.writeExtra(float64(v))
	case float64:
		if err := binary.Write(s.w, binary.LittleEndian, uint8(extraFloat64)); err != nil {
			return err
		}
		return binary.Write(s.w, binary.LittleEndian, v)
	case fmt.Stringer:
		// types.Type and similar carry no fixed-width representation;
		// round-trip them through their String() form like any other
		// extraString (e.g. "Int32", "Int32*").
		return s.writeExtra(v.String())
	default:
		if err := binary.Write(s.w, binary.LittleEndian, uint8(extraInt64)); err != nil {
			return err
		}
		return binary.Write(s.w, binary.LittleEndian, toInt64(v))
	}
}

func toInt64(a any) int64 {
	switch v := a.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uintptr:
		return int64(v)
	default:
		return 0
	}
}

func (s *BinarySink) Widen(bits int) error {
	s.bitWidth = bits
	tag := uint8(1)
	if bits == 32 {
		tag = 2
	}
	return binary.Write(s.w, binary.LittleEndian, tag)
}

func (s *BinarySink) Trailer() error {
	return s.Statement("Done", nil, nil)
}

func (s *BinarySink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
