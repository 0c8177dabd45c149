package entity

import "sync"

// ItemStack is one occupied bag slot.
type ItemStack struct {
	TemplateID int
	Qty        int
}

// Bag is the inventory behaviour: a fixed number of slots, filled first-free
// first. Grants are attempted before any currency moves, so a full bag can
// never cost the player anything.
type Bag struct {
	mu    sync.Mutex
	slots []*ItemStack
}

// NewBag creates a Bag with the given slot count.
func NewBag(capacity int) *Bag {
	return &Bag{slots: make([]*ItemStack, capacity)}
}

// Capabilities implements Behaviour.
func (b *Bag) Capabilities() []Capability { return []Capability{CapBag} }

// Capacity returns the total slot count.
func (b *Bag) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// HasFreeSlot reports whether at least one slot is empty.
func (b *Bag) HasFreeSlot() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freeSlotLocked() >= 0
}

func (b *Bag) freeSlotLocked() int {
	for i, s := range b.slots {
		if s == nil {
			return i
		}
	}
	return -1
}

// TryAdd places a stack into the first free slot and returns its index.
// Returns (-1, false) when the bag is full.
func (b *Bag) TryAdd(templateID, qty int) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.freeSlotLocked()
	if i < 0 {
		return -1, false
	}
	b.slots[i] = &ItemStack{TemplateID: templateID, Qty: qty}
	return i, true
}

// SetSlot force-places a stack (used when loading from the ledger).
func (b *Bag) SetSlot(slot int, templateID, qty int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if slot >= 0 && slot < len(b.slots) {
		b.slots[slot] = &ItemStack{TemplateID: templateID, Qty: qty}
	}
}

// Slot returns the stack at slot, or nil if empty or out of range.
func (b *Bag) Slot(slot int) *ItemStack {
	b.mu.Lock()
	defer b.mu.Unlock()
	if slot < 0 || slot >= len(b.slots) {
		return nil
	}
	return b.slots[slot]
}

// Clear empties a slot.
func (b *Bag) Clear(slot int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if slot >= 0 && slot < len(b.slots) {
		b.slots[slot] = nil
	}
}

// Used returns the number of occupied slots.
func (b *Bag) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.slots {
		if s != nil {
			n++
		}
	}
	return n
}
