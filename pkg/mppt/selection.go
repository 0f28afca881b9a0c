package mppt

import (
	"github.com/heliometric/heliometric/pkg/types"
)

// MaxQuantity is the most units of one inverter model in a selection.
const MaxQuantity = 10

// Selection is the ordered list of distinct inverter models chosen for a
// project. Entries are identified by ID, or by Model when ID is empty.
// Inverters with neither are never merged and cannot be addressed by
// Remove or SetQuantity. It is not safe for concurrent use.
type Selection struct {
	items []types.InverterSelection
}

// NewSelection builds a selection by adding every inverter in order.
func NewSelection(inverters ...types.InverterSelection) *Selection {
	s := &Selection{}
	for _, inv := range inverters {
		s.Add(inv)
	}
	return s
}

func key(inv types.InverterSelection) string {
	if inv.ID != "" {
		return inv.ID
	}
	return inv.Model
}

func clampQuantity(q int) int {
	return max(1, min(q, MaxQuantity))
}

func (s *Selection) index(id string) int {
	if id == "" {
		return -1
	}
	for i, inv := range s.items {
		if key(inv) == id {
			return i
		}
	}
	return -1
}

// Add appends an inverter. Adding a model that is already selected adds the
// incoming quantity (at least 1) to the existing entry instead, keeping the
// specs of the first entry.
func (s *Selection) Add(inv types.InverterSelection) {
	if i := s.index(key(inv)); i >= 0 {
		s.items[i].Quantity = clampQuantity(s.items[i].Quantity + max(1, inv.Quantity))
		return
	}
	inv.Quantity = clampQuantity(inv.Quantity)
	s.items = append(s.items, inv)
}

// Remove drops the entry and reports whether it was present.
func (s *Selection) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// SetQuantity sets the quantity of an entry. A quantity of zero or less
// removes it, anything else is clamped to [1, MaxQuantity].
func (s *Selection) SetQuantity(id string, q int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	if q <= 0 {
		return s.Remove(id)
	}
	s.items[i].Quantity = clampQuantity(q)
	return true
}

// Items returns a copy of the entries in insertion order.
func (s *Selection) Items() []types.InverterSelection {
	out := make([]types.InverterSelection, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct models.
func (s *Selection) Len() int {
	return len(s.items)
}
