package channel

import (
	"codeberg.org/mutker/amdmetrics/internal/decoder"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/schema"
)

// Validator builds channel sets from snapshots.
type Validator struct {
	log logger.Logger
}

// NewValidator returns a validator that reports hidden channels at debug level.
func NewValidator(log logger.Logger) *Validator {
	if log == nil {
		log = logger.Nop()
	}

	return &Validator{log: log}
}

// Build validates all categories and classifies cores.
func (v *Validator) Build(buf []byte, table *schema.Table) *Set {
	s := &Set{}
	for _, c := range schema.Categories {
		s.setRemap(c, v.Validate(buf, table, c))
	}

	n, err := v.DetectCores(buf, table, s)
	if err != nil {
		v.log.Debug().Msg("Per-core channels unavailable")
	}
	s.HasPerCore = err == nil
	s.Functional = n

	return s
}

// Validate produces the remap of one category. The result always covers
// every slot.
func (v *Validator) Validate(buf []byte, table *schema.Table, c schema.Category) Remap {
	descs := table.Descriptors(c)
	remap := make(Remap, c.Slots())

	for i := range remap {
		remap[i] = Entry{Label: uint8(i)}

		d := descs[i]
		if d.IsNull() {
			continue
		}

		val, err := decoder.Decode(buf, d)
		if err != nil {
			v.log.Debug().
				Str("category", c.String()).
				Str("channel", c.Label(i)).
				Str("reason", string(errors.CodeOf(err))).
				Msg("Channel unavailable")
			continue
		}
		if c.ZeroIsInvalid() && val == 0 {
			v.log.Debug().
				Str("category", c.String()).
				Str("channel", c.Label(i)).
				Msg("Channel unavailable: value is 0")
			continue
		}

		remap[i].Valid = true
	}

	return remap
}

// DetectCores hides factory-disabled cores, which report 0 W and 0 MHz,
// and renumbers the labels of functional cores densely.
func (v *Validator) DetectCores(buf []byte, table *schema.Table, s *Set) (int, error) {
	temp := s.Temp.Core(schema.Temperature)
	power := s.Power.Core(schema.Power)
	freq := s.Freq.Core(schema.Frequency)

	tempLabel := uint8(schema.Temperature.CoreOffset())
	powerLabel := uint8(schema.Power.CoreOffset())
	freqLabel := uint8(schema.Frequency.CoreOffset())

	functional, dummy := 0, 0

	for core := 0; core < schema.MaxCores; core++ {
		if !temp[core].Valid && !power[core].Valid && !freq[core].Valid {
			continue
		}

		p, pu := v.coreValue(buf, table, schema.Power, core, power[core])
		f, fu := v.coreValue(buf, table, schema.Frequency, core, freq[core])

		isFunctional := (p > 0 && f > 0) ||
			(p > 0 && fu) ||
			(pu && f > 0) ||
			(pu && fu)

		if !isFunctional {
			temp[core].Valid = false
			power[core].Valid = false
			freq[core].Valid = false
			dummy++
			continue
		}

		temp[core].Label = tempLabel
		power[core].Label = powerLabel
		freq[core].Label = freqLabel
		tempLabel++
		powerLabel++
		freqLabel++
		functional++
	}

	if functional > 0 || dummy > 0 {
		v.log.Debug().
			Int("functional", functional).
			Int("dummy", dummy).
			Msg("Detected CPU cores")
	}

	if functional == 0 {
		return 0, errors.New().New(ErrNoFunctionalCores)
	}

	return functional, nil
}

// coreValue re-decodes a per-core slot. unavailable is true when the slot
// is invalid or its field is not measured.
func (v *Validator) coreValue(buf []byte, table *schema.Table, c schema.Category, core int, e Entry) (value uint64, unavailable bool) {
	if !e.Valid {
		return 0, true
	}

	d, _ := table.Descriptor(c, c.CoreSlot(core))
	val, err := decoder.Decode(buf, d)
	if err != nil {
		return 0, true
	}

	return val, false
}
