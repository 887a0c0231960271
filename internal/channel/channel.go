// Package channel decides which channels of a snapshot are exposed and
// how they are labelled.
package channel

import (
	"codeberg.org/mutker/amdmetrics/internal/schema"
)

// Entry is the validity and label of one slot.
type Entry struct {
	Valid bool
	// External entries are served by the separate per-core device.
	External bool
	Label    uint8
}

// Visible reports whether the entry belongs on the main device.
func (e Entry) Visible() bool {
	return e.Valid && !e.External
}

// Remap covers every slot of one category.
type Remap []Entry

// Core returns the per-core window of the remap.
func (r Remap) Core(c schema.Category) Remap {
	off := c.CoreOffset()
	return r[off : off+schema.MaxCores]
}

// Set is the validated channel state derived from one snapshot.
type Set struct {
	Temp  Remap
	Power Remap
	Freq  Remap

	HasPerCore bool
	Functional int

	// PerCore maps per-core device channels to physical cores. Only
	// populated when per-core placement is enabled.
	PerCore [schema.MaxCores]Entry
}

// Remap returns the remap of a category.
func (s *Set) Remap(c schema.Category) Remap {
	switch c {
	case schema.Temperature:
		return s.Temp
	case schema.Power:
		return s.Power
	case schema.Frequency:
		return s.Freq
	default:
		return nil
	}
}

func (s *Set) setRemap(c schema.Category, r Remap) {
	switch c {
	case schema.Temperature:
		s.Temp = r
	case schema.Power:
		s.Power = r
	case schema.Frequency:
		s.Freq = r
	}
}

// LabelOf returns the presentation label of a slot.
func (s *Set) LabelOf(c schema.Category, slot int) string {
	return c.Label(int(s.Remap(c)[slot].Label))
}

// anyValid reports whether physical core k has a valid entry in any category.
func (s *Set) anyValid(core int) bool {
	for _, c := range schema.Categories {
		if s.Remap(c).Core(c)[core].Valid {
			return true
		}
	}

	return false
}

// SplitPerCore moves the per-core channels of functional cores to a
// separate device. The placement map lists physical cores densely.
func SplitPerCore(s *Set) {
	s.PerCore = [schema.MaxCores]Entry{}
	if !s.HasPerCore {
		return
	}

	next := 0
	for core := 0; core < schema.MaxCores; core++ {
		if !s.anyValid(core) {
			continue
		}

		for _, c := range schema.Categories {
			s.Remap(c).Core(c)[core].External = true
		}
		s.PerCore[next] = Entry{Valid: true, Label: uint8(core)}
		next++
	}
}
