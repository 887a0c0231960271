package schema

import "fmt"

// MaxCores is the number of per-core slots in every category.
const MaxCores = 16

// Category is one of the three channel groups.
type Category int

const (
	Temperature Category = iota
	Power
	Frequency
)

// Categories lists every category in decode order.
var Categories = []Category{Temperature, Power, Frequency}

type categoryInfo struct {
	name          string
	labels        []string
	coreOffset    int
	zeroIsInvalid bool
}

var categories = [...]categoryInfo{
	Temperature: {
		name:       "temperature",
		labels:     temperatureLabels[:],
		coreOffset: TempCore0,
		// 0 is how firmware reports an unmeasured temperature.
		zeroIsInvalid: true,
	},
	Power: {
		name:       "power",
		labels:     powerLabels[:],
		coreOffset: PowerCore0,
	},
	Frequency: {
		name:       "frequency",
		labels:     frequencyLabels[:],
		coreOffset: FreqCoreCLK0,
	},
}

func (c Category) info() categoryInfo {
	if c < Temperature || c > Frequency {
		panic(fmt.Sprintf("schema: invalid category %d", int(c)))
	}

	return categories[c]
}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	return c >= Temperature && c <= Frequency
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}

	return c.info().name
}

// Slots is the fixed number of slots of the category.
func (c Category) Slots() int {
	return len(c.info().labels)
}

// Label returns the presentation label of a slot.
func (c Category) Label(slot int) string {
	return c.info().labels[slot]
}

// Labels returns a copy of the category's label array.
func (c Category) Labels() []string {
	labels := c.info().labels
	out := make([]string, len(labels))
	copy(out, labels)

	return out
}

// CoreOffset is the slot of core 0.
func (c Category) CoreOffset() int {
	return c.info().coreOffset
}

// CoreSlot maps a physical core index to its slot.
func (c Category) CoreSlot(core int) int {
	return c.info().coreOffset + core
}

// IsCoreSlot reports whether slot lies in the per-core window.
func (c Category) IsCoreSlot(slot int) bool {
	off := c.info().coreOffset
	return slot >= off && slot < off+MaxCores
}

// ZeroIsInvalid reports whether a decoded 0 hides the channel.
func (c Category) ZeroIsInvalid() bool {
	return c.info().zeroIsInvalid
}

// ParseCategory resolves a category by name.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if c.String() == name {
			return c, true
		}
	}

	return 0, false
}
