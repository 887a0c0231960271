package schema

import (
	"fmt"
	"math"

	"codeberg.org/mutker/amdmetrics/internal/layout"
)

// Width is the byte width of an unsigned field. WidthNone marks an
// unpopulated slot.
type Width uint8

const (
	WidthNone Width = 0
	Width8    Width = 1
	Width16   Width = 2
	Width32   Width = 4
	Width64   Width = 8
)

// Bytes returns the number of bytes the width covers.
func (w Width) Bytes() int {
	return int(w)
}

// Sentinel is the all-ones value that means "not measured".
func (w Width) Sentinel() uint64 {
	switch w {
	case Width8:
		return math.MaxUint8
	case Width16:
		return math.MaxUint16
	case Width32:
		return math.MaxUint32
	case Width64:
		return math.MaxUint64
	default:
		return 0
	}
}

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return true
	default:
		return false
	}
}

func (w Width) String() string {
	if w == WidthNone {
		return "none"
	}

	return fmt.Sprintf("u%d", int(w)*8)
}

// Field addresses one unsigned value inside a snapshot.
type Field struct {
	Offset uint16
	Width  Width
}

// End is the first byte after the field.
func (f Field) End() int {
	return int(f.Offset) + f.Width.Bytes()
}

// ChannelDescriptor locates one channel and its optional fallback.
type ChannelDescriptor struct {
	Field
	Fallback *Field
}

// IsNull reports whether the slot is unpopulated for this revision.
func (d ChannelDescriptor) IsNull() bool {
	return d.Width == WidthNone
}

// Table is the descriptor set of one (format, content) revision.
type Table struct {
	Revision layout.Revision
	Struct   string
	Size     uint16
	Temp     [TempSlots]ChannelDescriptor
	Power    [PowerSlots]ChannelDescriptor
	Freq     [FreqSlots]ChannelDescriptor
}

// Descriptors returns the slot array of a category.
func (t *Table) Descriptors(c Category) []ChannelDescriptor {
	switch c {
	case Temperature:
		return t.Temp[:]
	case Power:
		return t.Power[:]
	case Frequency:
		return t.Freq[:]
	default:
		return nil
	}
}

// Descriptor returns the descriptor of one slot.
func (t *Table) Descriptor(c Category, slot int) (ChannelDescriptor, bool) {
	descs := t.Descriptors(c)
	if slot < 0 || slot >= len(descs) {
		return ChannelDescriptor{}, false
	}

	return descs[slot], true
}
