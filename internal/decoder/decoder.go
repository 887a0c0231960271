// Package decoder reads channel values and the snapshot header out of a
// raw gpu_metrics buffer.
package decoder

import (
	"encoding/binary"
	"math"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/layout"
	"codeberg.org/mutker/amdmetrics/internal/schema"
)

// Header is the leading region every gpu_metrics revision shares. Fields
// keep the full value read at the width the layout declares.
type Header struct {
	StructureSize   uint64
	FormatRevision  uint64
	ContentRevision uint64
}

// Revision returns the (format, content) pair of the header. Revisions that
// do not fit a layout revision are unsupported.
func (h Header) Revision() (layout.Revision, error) {
	if h.FormatRevision > math.MaxUint8 || h.ContentRevision > math.MaxUint8 {
		return layout.Revision{}, errors.New().WithData(schema.ErrUnsupported, struct {
			Format  uint64
			Content uint64
		}{
			Format:  h.FormatRevision,
			Content: h.ContentRevision,
		})
	}

	return layout.Revision{Format: uint8(h.FormatRevision), Content: uint8(h.ContentRevision)}, nil
}

// Decode reads the channel described by desc. A sentinel primary is
// retried once against the fallback.
func Decode(buf []byte, desc schema.ChannelDescriptor) (uint64, error) {
	errFactory := errors.New()

	if desc.IsNull() {
		return 0, errFactory.New(ErrChannelUnavailable)
	}

	v, err := ReadUint(buf, desc.Field)
	if err != nil {
		return 0, err
	}
	if v != desc.Width.Sentinel() {
		return v, nil
	}

	if desc.Fallback == nil || desc.Fallback.Width == schema.WidthNone {
		return 0, errFactory.WithMessage(ErrChannelUnavailable, "field reads as not measured")
	}

	v, err = ReadUint(buf, *desc.Fallback)
	if err != nil {
		return 0, err
	}
	if v == desc.Fallback.Width.Sentinel() {
		return 0, errFactory.WithMessage(ErrChannelUnavailable, "field and fallback read as not measured")
	}

	return v, nil
}

// ReadUint reads a little-endian unsigned field without sentinel handling.
func ReadUint(buf []byte, f schema.Field) (uint64, error) {
	if !f.Width.Valid() || f.End() > len(buf) {
		return 0, errors.New().WithData(ErrMalformedDescriptor, struct {
			Offset uint16
			Width  string
			Buffer int
		}{
			Offset: f.Offset,
			Width:  f.Width.String(),
			Buffer: len(buf),
		})
	}

	p := buf[f.Offset:f.End()]
	switch f.Width {
	case schema.Width8:
		return uint64(p[0]), nil
	case schema.Width16:
		return uint64(binary.LittleEndian.Uint16(p)), nil
	case schema.Width32:
		return uint64(binary.LittleEndian.Uint32(p)), nil
	default:
		return binary.LittleEndian.Uint64(p), nil
	}
}

// ReadHeader parses the header using the vendor header definition.
func ReadHeader(buf []byte, def *layout.Struct) (Header, error) {
	errFactory := errors.New()

	if len(buf) < def.Size {
		return Header{}, errFactory.WithData(ErrSizeMismatch, struct {
			Want int
			Got  int
		}{
			Want: def.Size,
			Got:  len(buf),
		})
	}

	read := func(name string) (uint64, error) {
		lf, err := def.Field(name)
		if err != nil {
			return 0, errFactory.Wrap(ErrMalformedDescriptor, err)
		}

		return ReadUint(buf, schema.Field{Offset: uint16(lf.Offset), Width: schema.Width(lf.Size)})
	}

	size, err := read(layout.FieldStructureSize)
	if err != nil {
		return Header{}, err
	}
	format, err := read(layout.FieldFormatRevision)
	if err != nil {
		return Header{}, err
	}
	content, err := read(layout.FieldContentRevision)
	if err != nil {
		return Header{}, err
	}

	return Header{
		StructureSize:   size,
		FormatRevision:  format,
		ContentRevision: content,
	}, nil
}

// Leaf is one raw layout field with its decoded value.
type Leaf struct {
	Name  string `json:"name" yaml:"name" cbor:"name"`
	Value uint64 `json:"value" yaml:"value" cbor:"value"`
}

// Dump decodes every scalar of a struct without validation.
func Dump(buf []byte, s *layout.Struct) ([]Leaf, error) {
	leaves := s.Leaves()
	out := make([]Leaf, 0, len(leaves))

	for _, lf := range leaves {
		v, err := ReadUint(buf, schema.Field{Offset: uint16(lf.Offset), Width: schema.Width(lf.Size)})
		if err != nil {
			return nil, err
		}
		out = append(out, Leaf{Name: lf.Name, Value: v})
	}

	return out, nil
}
