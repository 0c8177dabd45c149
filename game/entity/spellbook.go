package entity

import "sync"

// CraftedAbility is a base template combined with the event templates baked
// in at craft time.
type CraftedAbility struct {
	TemplateID int
	EventIDs   []int
}

// Spellbook is the ability behaviour. "Known" templates have been unlocked
// (purchased or granted); "crafted" abilities have been assembled at an
// ability crafter. Crafting is a one-time unlock per base template.
type Spellbook struct {
	mu      sync.Mutex
	known   map[int]bool
	crafted map[int]*CraftedAbility // base template ID → crafted ability
}

// NewSpellbook creates an empty Spellbook.
func NewSpellbook() *Spellbook {
	return &Spellbook{
		known:   make(map[int]bool),
		crafted: make(map[int]*CraftedAbility),
	}
}

// Capabilities implements Behaviour.
func (sb *Spellbook) Capabilities() []Capability { return []Capability{CapSpellbook} }

// Knows reports whether the template (ability or event) is unlocked.
func (sb *Spellbook) Knows(templateID int) bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.known[templateID]
}

// LearnBase unlocks a template.
func (sb *Spellbook) LearnBase(templateID int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.known[templateID] = true
}

// KnowsCrafted reports whether the base template has already been crafted.
func (sb *Spellbook) KnowsCrafted(templateID int) bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	_, ok := sb.crafted[templateID]
	return ok
}

// LearnCrafted records a crafted ability.
func (sb *Spellbook) LearnCrafted(a *CraftedAbility) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.crafted[a.TemplateID] = a
}

// KnownCount returns the number of unlocked templates.
func (sb *Spellbook) KnownCount() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.known)
}

// CraftedCount returns the number of crafted abilities.
func (sb *Spellbook) CraftedCount() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.crafted)
}
