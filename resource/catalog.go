package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Template catalogs are static game content keyed by integer ID. They are
// loaded once at startup and never mutated afterwards, so lookups are safe
// from any goroutine without locking.

// ItemTemplate describes a purchasable/droppable item.
type ItemTemplate struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Stackable bool   `json:"stackable"`
	MaxStack  int    `json:"max_stack"`
}

// AbilityTemplate is a base ability that can be purchased (to "know" it)
// and later crafted into a usable ability.
type AbilityTemplate struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// AbilityEventTemplate modifies a crafted ability. TypeOverride events are
// mutually exclusive: at most one per crafted ability.
type AbilityEventTemplate struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	TypeOverride bool   `json:"type_override"`
}

// MerchantTemplate is a merchant station's offering. Clients reference
// entries by tab + index; indices outside these slices are tampering.
type MerchantTemplate struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Items         []int  `json:"items"`          // item template IDs
	Abilities     []int  `json:"abilities"`      // ability template IDs
	AbilityEvents []int  `json:"ability_events"` // ability event template IDs
}

// StationTemplate places one interactable station in the world at startup.
// Kind is one of "merchant", "ability_crafter", "bindstone". TemplateID
// refers to a merchant template and is ignored for the other kinds.
type StationTemplate struct {
	Kind        string  `json:"kind"`
	TemplateID  int     `json:"template_id"`
	SceneName   string  `json:"scene_name"`
	SceneHandle int     `json:"scene_handle"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

// Catalog holds all loaded template tables.
type Catalog struct {
	DataPath string

	items     map[int]*ItemTemplate
	abilities map[int]*AbilityTemplate
	events    map[int]*AbilityEventTemplate
	merchants map[int]*MerchantTemplate
	stations  []*StationTemplate
}

// NewCatalog creates an empty Catalog rooted at dataPath.
func NewCatalog(dataPath string) *Catalog {
	return &Catalog{
		DataPath:  dataPath,
		items:     make(map[int]*ItemTemplate),
		abilities: make(map[int]*AbilityTemplate),
		events:    make(map[int]*AbilityEventTemplate),
		merchants: make(map[int]*MerchantTemplate),
	}
}

// Load reads all template JSON files from DataPath.
func (c *Catalog) Load() error {
	items, err := loadJSONArray[ItemTemplate](c.path("items.json"))
	if err != nil {
		return err
	}
	for _, t := range items {
		c.items[t.ID] = t
	}

	abilities, err := loadJSONArray[AbilityTemplate](c.path("abilities.json"))
	if err != nil {
		return err
	}
	for _, t := range abilities {
		c.abilities[t.ID] = t
	}

	events, err := loadJSONArray[AbilityEventTemplate](c.path("ability_events.json"))
	if err != nil {
		return err
	}
	for _, t := range events {
		c.events[t.ID] = t
	}

	merchants, err := loadJSONArray[MerchantTemplate](c.path("merchants.json"))
	if err != nil {
		return err
	}
	for _, t := range merchants {
		c.merchants[t.ID] = t
	}

	// Station placements are optional: a fresh deployment may run with no
	// stations until content is authored.
	stations, err := loadJSONArray[StationTemplate](c.path("stations.json"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	} else {
		c.stations = stations
	}
	return nil
}

func (c *Catalog) path(file string) string {
	return filepath.Join(c.DataPath, file)
}

func loadJSONArray[T any](path string) ([]*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	var arr []*T
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return arr, nil
}

// Item returns the item template for id, or (nil, false).
func (c *Catalog) Item(id int) (*ItemTemplate, bool) {
	t, ok := c.items[id]
	return t, ok
}

// Ability returns the ability template for id, or (nil, false).
func (c *Catalog) Ability(id int) (*AbilityTemplate, bool) {
	t, ok := c.abilities[id]
	return t, ok
}

// AbilityEvent returns the ability event template for id, or (nil, false).
func (c *Catalog) AbilityEvent(id int) (*AbilityEventTemplate, bool) {
	t, ok := c.events[id]
	return t, ok
}

// Merchant returns the merchant template for id, or (nil, false).
func (c *Catalog) Merchant(id int) (*MerchantTemplate, bool) {
	t, ok := c.merchants[id]
	return t, ok
}

// Stations returns the station placements for this shard's world.
func (c *Catalog) Stations() []*StationTemplate {
	return c.stations
}

// AddItem registers an item template directly. Intended for tests and
// embedded fixtures; production content comes from Load.
func (c *Catalog) AddItem(t *ItemTemplate) { c.items[t.ID] = t }

// AddAbility registers an ability template directly.
func (c *Catalog) AddAbility(t *AbilityTemplate) { c.abilities[t.ID] = t }

// AddAbilityEvent registers an ability event template directly.
func (c *Catalog) AddAbilityEvent(t *AbilityEventTemplate) { c.events[t.ID] = t }

// AddMerchant registers a merchant template directly.
func (c *Catalog) AddMerchant(t *MerchantTemplate) { c.merchants[t.ID] = t }
