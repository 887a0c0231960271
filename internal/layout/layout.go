package layout

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed gpu_metrics.yaml
var defaultDefinitions []byte

// Names of the header fields every revision starts with.
const (
	FieldStructureSize   = "structure_size"
	FieldFormatRevision  = "format_revision"
	FieldContentRevision = "content_revision"
)

var scalarSizes = map[string]int{
	"u8":  1,
	"u16": 2,
	"u32": 4,
	"u64": 8,
}

// Revision identifies a gpu_metrics layout by its (format, content) pair.
type Revision struct {
	Format  uint8
	Content uint8
}

func (r Revision) String() string {
	return fmt.Sprintf("v%d.%d", r.Format, r.Content)
}

// Field is one scalar of a struct after flattening.
type Field struct {
	Name   string
	Offset int
	Size   int
}

// Struct is a laid-out C struct.
type Struct struct {
	Name   string
	Size   int
	Align  int
	leaves []Field
	index  map[string]Field
}

// Field resolves a flattened field name.
func (s *Struct) Field(name string) (Field, error) {
	f, ok := s.index[name]
	if !ok {
		return Field{}, errors.New().WithData(ErrUnknownField, struct {
			Struct string
			Field  string
		}{
			Struct: s.Name,
			Field:  name,
		})
	}

	return f, nil
}

// Leaves returns every scalar of the struct in memory order.
func (s *Struct) Leaves() []Field {
	leaves := make([]Field, len(s.leaves))
	copy(leaves, s.leaves)

	return leaves
}

// Definitions is the parsed vendor definition document.
type Definitions struct {
	Header    *Struct
	structs   map[Revision]*Struct
	revisions []Revision
}

// Struct returns the struct declared for a revision.
func (d *Definitions) Struct(rev Revision) (*Struct, bool) {
	s, ok := d.structs[rev]
	return s, ok
}

// Revisions lists the declared revisions in document order.
func (d *Definitions) Revisions() []Revision {
	revs := make([]Revision, len(d.revisions))
	copy(revs, d.revisions)

	return revs
}

type rawField struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

type rawRevision struct {
	Format  uint8      `yaml:"format"`
	Content uint8      `yaml:"content"`
	Struct  string     `yaml:"struct"`
	Fields  []rawField `yaml:"fields"`
}

type rawDocument struct {
	Header    []rawField            `yaml:"header"`
	Types     map[string][]rawField `yaml:"types"`
	Revisions []rawRevision         `yaml:"revisions"`
}

// Default returns the definitions compiled into the binary.
func Default() (*Definitions, error) {
	return Parse(defaultDefinitions)
}

// Load reads definitions from a YAML file.
func Load(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New().Wrap(ErrReadDefinition, err)
	}

	return Parse(data)
}

// Parse builds definitions from a YAML document.
func Parse(data []byte) (*Definitions, error) {
	errFactory := errors.New()

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errFactory.Wrap(ErrInvalidDefinition, err)
	}

	b := &builder{
		types: doc.Types,
		done:  make(map[string]*Struct),
		busy:  make(map[string]bool),
	}

	header, err := b.layout("metrics_table_header", doc.Header)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{FieldStructureSize, FieldFormatRevision, FieldContentRevision} {
		if _, err := header.Field(name); err != nil {
			return nil, errFactory.Wrap(ErrInvalidDefinition, err)
		}
	}
	b.done[header.Name] = header

	defs := &Definitions{
		Header:  header,
		structs: make(map[Revision]*Struct, len(doc.Revisions)),
	}

	for _, raw := range doc.Revisions {
		rev := Revision{Format: raw.Format, Content: raw.Content}
		if _, dup := defs.structs[rev]; dup {
			return nil, errFactory.WithMessage(ErrInvalidDefinition,
				fmt.Sprintf("duplicate revision %s", rev))
		}

		name := raw.Struct
		if name == "" {
			name = fmt.Sprintf("gpu_metrics_v%d_%d", raw.Format, raw.Content)
		}

		s, err := b.layout(name, raw.Fields)
		if err != nil {
			return nil, err
		}

		defs.structs[rev] = s
		defs.revisions = append(defs.revisions, rev)
	}

	return defs, nil
}

type builder struct {
	types map[string][]rawField
	done  map[string]*Struct
	busy  map[string]bool
}

// named lays out a struct type referenced from another struct.
func (b *builder) named(name string) (*Struct, error) {
	if s, ok := b.done[name]; ok {
		return s, nil
	}

	fields, ok := b.types[name]
	if !ok {
		return nil, errors.New().WithMessage(ErrInvalidDefinition,
			fmt.Sprintf("unknown type %q", name))
	}
	if b.busy[name] {
		return nil, errors.New().WithMessage(ErrInvalidDefinition,
			fmt.Sprintf("type %q contains itself", name))
	}

	b.busy[name] = true
	defer delete(b.busy, name)

	s, err := b.layout(name, fields)
	if err != nil {
		return nil, err
	}
	b.done[name] = s

	return s, nil
}

func (b *builder) layout(name string, fields []rawField) (*Struct, error) {
	errFactory := errors.New()

	if len(fields) == 0 {
		return nil, errFactory.WithMessage(ErrInvalidDefinition,
			fmt.Sprintf("struct %q has no fields", name))
	}

	s := &Struct{
		Name:  name,
		Align: 1,
		index: make(map[string]Field),
	}
	seen := make(map[string]bool, len(fields))
	offset := 0

	for _, f := range fields {
		if f.Name == "" || strings.ContainsAny(f.Name, "[].") {
			return nil, errFactory.WithMessage(ErrInvalidDefinition,
				fmt.Sprintf("struct %q: invalid field name %q", name, f.Name))
		}
		if seen[f.Name] {
			return nil, errFactory.WithMessage(ErrInvalidDefinition,
				fmt.Sprintf("struct %q: duplicate field %q", name, f.Name))
		}
		seen[f.Name] = true

		count := f.Count
		if count < 0 {
			return nil, errFactory.WithMessage(ErrInvalidDefinition,
				fmt.Sprintf("struct %q: field %q has negative count", name, f.Name))
		}

		var (
			size, align int
			nested      *Struct
		)
		if scalar, ok := scalarSizes[f.Type]; ok {
			size, align = scalar, scalar
		} else {
			var err error
			if nested, err = b.named(f.Type); err != nil {
				return nil, err
			}
			size, align = nested.Size, nested.Align
		}

		offset = alignUp(offset, align)
		s.Align = max(s.Align, align)

		elems := max(count, 1)
		for i := 0; i < elems; i++ {
			prefix := f.Name
			if count > 0 {
				prefix = fmt.Sprintf("%s[%d]", f.Name, i)
			}
			base := offset + i*size

			if nested == nil {
				s.add(Field{Name: prefix, Offset: base, Size: size})
				continue
			}
			for _, leaf := range nested.leaves {
				s.add(Field{Name: prefix + "." + leaf.Name, Offset: base + leaf.Offset, Size: leaf.Size})
			}
		}

		offset += elems * size
	}

	s.Size = alignUp(offset, s.Align)

	return s, nil
}

func (s *Struct) add(f Field) {
	s.leaves = append(s.leaves, f)
	s.index[f.Name] = f
}

func alignUp(offset, align int) int {
	return (offset + align - 1) / align * align
}
