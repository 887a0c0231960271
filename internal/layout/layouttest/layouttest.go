// Package layouttest builds gpu_metrics blobs for tests.
package layouttest

import (
	"encoding/binary"
	"testing"

	"codeberg.org/mutker/amdmetrics/internal/layout"
)

// Blob is a zeroed gpu_metrics table with a filled-in header.
type Blob struct {
	t    testing.TB
	s    *layout.Struct
	data []byte
}

// Defaults returns the built-in definitions or fails the test.
func Defaults(t testing.TB) *layout.Definitions {
	t.Helper()

	defs, err := layout.Default()
	if err != nil {
		t.Fatalf("load default layout: %v", err)
	}

	return defs
}

// New returns a blob for rev with the header set to the struct size.
func New(t testing.TB, defs *layout.Definitions, rev layout.Revision) *Blob {
	t.Helper()

	s, ok := defs.Struct(rev)
	if !ok {
		t.Fatalf("no layout for %s", rev)
	}

	b := &Blob{t: t, s: s, data: make([]byte, s.Size)}
	b.header(defs.Header, uint64(s.Size), rev)

	return b
}

func (b *Blob) header(h *layout.Struct, size uint64, rev layout.Revision) {
	b.put(h, layout.FieldStructureSize, size)
	b.put(h, layout.FieldFormatRevision, uint64(rev.Format))
	b.put(h, layout.FieldContentRevision, uint64(rev.Content))
}

// Set writes v into the named field.
func (b *Blob) Set(name string, v uint64) *Blob {
	b.t.Helper()
	b.put(b.s, name, v)

	return b
}

// Fill sets every byte after the header to v.
func (b *Blob) Fill(v byte) *Blob {
	for i := 4; i < len(b.data); i++ {
		b.data[i] = v
	}

	return b
}

// Bytes returns the blob.
func (b *Blob) Bytes() []byte {
	return b.data
}

func (b *Blob) put(s *layout.Struct, name string, v uint64) {
	b.t.Helper()

	f, err := s.Field(name)
	if err != nil {
		b.t.Fatalf("field %s: %v", name, err)
	}

	buf := b.data[f.Offset : f.Offset+f.Size]
	switch f.Size {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	}
}
