package schema

import (
	"fmt"
	"math"
	"sort"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/layout"
)

// Registry maps (format, content) revisions to descriptor tables.
// It is immutable once built and safe for concurrent use.
type Registry struct {
	header *layout.Struct
	lines  map[uint8][]*Table
}

// NewRegistry binds every supported revision to the vendor layout.
// Revisions the layout does not declare are left out.
func NewRegistry(defs *layout.Definitions) (*Registry, error) {
	r := &Registry{
		header: defs.Header,
		lines:  make(map[uint8][]*Table, len(lines)),
	}

	for format, fams := range lines {
		tables := make([]*Table, len(fams))
		for content, fam := range fams {
			rev := layout.Revision{Format: format, Content: uint8(content)}
			s, ok := defs.Struct(rev)
			if !ok {
				continue
			}

			t, err := build(rev, s, fam)
			if err != nil {
				return nil, err
			}
			tables[content] = t
		}
		r.lines[format] = tables
	}

	return r, nil
}

// Header returns the vendor definition of the snapshot header.
func (r *Registry) Header() *layout.Struct {
	return r.header
}

// Lookup returns the table for a revision.
func (r *Registry) Lookup(format, content uint8) (*Table, error) {
	tables := r.lines[format]
	if int(content) < len(tables) && tables[content] != nil {
		return tables[content], nil
	}

	return nil, errors.New().WithData(ErrUnsupported, struct {
		Format  uint8
		Content uint8
	}{
		Format:  format,
		Content: content,
	})
}

// Tables lists the registered tables ordered by revision.
func (r *Registry) Tables() []*Table {
	formats := make([]int, 0, len(r.lines))
	for f := range r.lines {
		formats = append(formats, int(f))
	}
	sort.Ints(formats)

	var out []*Table
	for _, f := range formats {
		for _, t := range r.lines[uint8(f)] {
			if t != nil {
				out = append(out, t)
			}
		}
	}

	return out
}

func build(rev layout.Revision, s *layout.Struct, fam family) (*Table, error) {
	if s.Size > math.MaxUint16 {
		return nil, malformed(rev, s.Name, fmt.Sprintf("struct size %d exceeds u16", s.Size))
	}

	t := &Table{
		Revision: rev,
		Struct:   s.Name,
		Size:     uint16(s.Size),
	}

	for _, c := range Categories {
		descs := t.Descriptors(c)
		for _, b := range fam.bindings(c) {
			primary, err := bind(rev, s, b.field)
			if err != nil {
				return nil, err
			}

			desc := ChannelDescriptor{Field: primary}
			if b.fallback != "" {
				fb, err := bind(rev, s, b.fallback)
				if err != nil {
					return nil, err
				}
				desc.Fallback = &fb
			}
			descs[b.slot] = desc
		}
	}

	return t, nil
}

func bind(rev layout.Revision, s *layout.Struct, name string) (Field, error) {
	f, err := s.Field(name)
	if err != nil {
		return Field{}, errors.New().Wrap(ErrMalformedDescriptor, err)
	}

	w := Width(f.Size)
	if !w.Valid() {
		return Field{}, malformed(rev, name, fmt.Sprintf("unsupported width %d", f.Size))
	}
	if f.Offset+f.Size > s.Size || f.Offset > math.MaxUint16 {
		return Field{}, malformed(rev, name, fmt.Sprintf("offset %d past struct size %d", f.Offset, s.Size))
	}

	return Field{Offset: uint16(f.Offset), Width: w}, nil
}

func malformed(rev layout.Revision, field, reason string) error {
	return errors.New().WithData(ErrMalformedDescriptor, struct {
		Revision string
		Field    string
		Reason   string
	}{
		Revision: rev.String(),
		Field:    field,
		Reason:   reason,
	})
}
