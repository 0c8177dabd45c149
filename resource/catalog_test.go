package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_AllTables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "items.json", `[{"id":1,"name":"Health Potion","price":60,"stackable":true,"max_stack":20}]`)
	writeFile(t, dir, "abilities.json", `[{"id":100,"name":"Fireball","price":50}]`)
	writeFile(t, dir, "ability_events.json", `[{"id":200,"name":"Quicken","price":25},{"id":201,"name":"Frost Brand","price":40,"type_override":true}]`)
	writeFile(t, dir, "merchants.json", `[{"id":10,"name":"Town Merchant","items":[1],"abilities":[100],"ability_events":[200,201]}]`)

	c := NewCatalog(dir)
	require.NoError(t, c.Load())

	item, ok := c.Item(1)
	require.True(t, ok)
	assert.Equal(t, int64(60), item.Price)

	ability, ok := c.Ability(100)
	require.True(t, ok)
	assert.Equal(t, "Fireball", ability.Name)

	ev, ok := c.AbilityEvent(201)
	require.True(t, ok)
	assert.True(t, ev.TypeOverride)

	m, ok := c.Merchant(10)
	require.True(t, ok)
	assert.Equal(t, []int{1}, m.Items)
}

func TestLookup_UnknownIDReturnsFalse(t *testing.T) {
	c := NewCatalog("")
	_, ok := c.Item(999)
	assert.False(t, ok)
	_, ok = c.Ability(999)
	assert.False(t, ok)
	_, ok = c.AbilityEvent(999)
	assert.False(t, ok)
	_, ok = c.Merchant(999)
	assert.False(t, ok)
}

func TestLoad_MissingFileFails(t *testing.T) {
	c := NewCatalog(t.TempDir())
	assert.Error(t, c.Load())
}
