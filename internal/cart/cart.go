// Package cart implements the order line set: the in-progress collection of
// order lines built by a customer's table session, a waiter taking an order,
// or an admin editing a persisted order. All three surfaces share the same
// mutation rules; only the decrement policy differs between them.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustPolicy selects what happens when a quantity adjustment would drive a
// line to zero or below.
type AdjustPolicy int

const (
	// ClampAtOne floors the quantity at 1 and never removes the line.
	// Used by the waiter console and the admin edit modal.
	ClampAtOne AdjustPolicy = iota

	// AutoRemove deletes the line when the adjusted quantity is <= 0.
	// Used by the customer cart.
	AutoRemove
)

// Item is the menu snapshot consumed by Add. Price, name, category and image
// are copied onto the line at add time and never refreshed afterwards.
type Item struct {
	ID       uuid.UUID
	Name     string
	Price    decimal.Decimal
	Category string
	ImageURL string
}

// Line is one entry in a line set. Quantity is always >= 1 while the line
// exists; Note defaults to "" and is never omitted on the wire so payloads
// round-trip through storage back into the same shape.
type Line struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	ImageURL string          `json:"image_url"`
	Quantity int32           `json:"quantity"`
	Note     string          `json:"note"`
}

// LineSet is an ordered sequence of lines, unique by item ID. Insertion order
// is preserved for display but carries no other meaning. The zero value is an
// empty, usable set.
type LineSet struct {
	lines []Line
}

// New returns an empty line set.
func New() *LineSet {
	return &LineSet{}
}

// FromLines returns a line set seeded from a persisted items array.
func FromLines(lines []Line) *LineSet {
	s := &LineSet{}
	s.ReplaceFrom(lines)
	return s
}

// Add appends a new line for item with quantity max(1, delta), or increments
// the existing line's quantity by delta. An existing line keeps its note and
// its price/name/category/image snapshot; only the quantity changes. Existing
// lines never move, new lines always append.
func (s *LineSet) Add(item Item, delta int32, note string) {
	for i := range s.lines {
		if s.lines[i].ItemID == item.ID {
			s.lines[i].Quantity += delta
			return
		}
	}

	qty := delta
	if qty < 1 {
		qty = 1
	}
	s.lines = append(s.lines, Line{
		ItemID:   item.ID,
		Name:     item.Name,
		Price:    item.Price,
		Category: item.Category,
		ImageURL: item.ImageURL,
		Quantity: qty,
		Note:     note,
	})
}

// Adjust changes the quantity of the line with itemID by delta according to
// policy. A no-op if the item is not in the set.
func (s *LineSet) Adjust(itemID uuid.UUID, delta int32, policy AdjustPolicy) {
	for i := range s.lines {
		if s.lines[i].ItemID != itemID {
			continue
		}
		qty := s.lines[i].Quantity + delta
		switch policy {
		case AutoRemove:
			if qty <= 0 {
				s.lines = append(s.lines[:i], s.lines[i+1:]...)
				return
			}
		default:
			if qty < 1 {
				qty = 1
			}
		}
		s.lines[i].Quantity = qty
		return
	}
}

// Remove deletes the line with itemID. Idempotent.
func (s *LineSet) Remove(itemID uuid.UUID) {
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

// SetNote overwrites the note on the line with itemID. A no-op if absent.
func (s *LineSet) SetNote(itemID uuid.UUID, note string) {
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			s.lines[i].Note = note
			return
		}
	}
}

// ReplaceFrom discards the current contents and installs a defensive copy of
// lines. Used when seeding an edit session from a persisted order; despite
// what callers informally call a "merge", no reconciliation with previous
// contents happens.
func (s *LineSet) ReplaceFrom(lines []Line) {
	s.lines = make([]Line, len(lines))
	copy(s.lines, lines)
}

// Total returns the sum of price * max(1, quantity) over all lines. The
// result is exact; rounding to 2 places happens only at render/serialize
// time. Commutative over line order.
func (s *LineSet) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		total = total.Add(l.Price.Mul(decimal.NewFromInt32(qty)))
	}
	return total
}

// ItemCount returns the sum of max(1, quantity) over all lines, the cart
// badge count. Distinct from Len, which counts lines.
func (s *LineSet) ItemCount() int32 {
	var n int32
	for _, l := range s.lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		n += qty
	}
	return n
}

// Len returns the number of distinct lines.
func (s *LineSet) Len() int {
	return len(s.lines)
}

// Empty reports whether the set has no lines. An empty set blocks submission
// before any network call is made.
func (s *LineSet) Empty() bool {
	return len(s.lines) == 0
}

// Lines returns a defensive copy of the lines in insertion order. This is the
// payload serialized into order create/update requests; feeding it back
// through ReplaceFrom reproduces an equivalent set.
func (s *LineSet) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Get returns the line for itemID and whether it exists.
func (s *LineSet) Get(itemID uuid.UUID) (Line, bool) {
	for _, l := range s.lines {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return Line{}, false
}
