// Package catalog holds the local mirror of machines, inventory and search
// results, and the orchestration that keeps it fed.
package catalog

import (
	"slices"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

// Cache is the plain session state. It is not safe for concurrent use; the
// Hub goroutine is its only owner.
type Cache struct {
	machines         []models.Machine
	inventory        []models.Product
	inventoryMachine int64
	search           []models.Product
	searchQuery      string
	view             models.ViewState
	position         models.Resolution
	version          uint64
}

// Snapshot is an immutable copy of the cache handed to readers.
type Snapshot struct {
	Machines           []models.Machine
	Inventory          []models.Product
	InventoryMachineID int64
	SearchResults      []models.Product
	SearchQuery        string
	View               models.ViewState
	Position           models.Resolution
	Version            uint64
}

// NewCache returns an empty cache in the machines view with a pending position.
func NewCache() *Cache {
	return &Cache{
		view:     models.ViewState{View: models.ViewMachines},
		position: models.Resolution{Status: models.ResolutionPending},
	}
}

func (c *Cache) ReplaceMachines(machines []models.Machine) {
	c.machines = slices.Clone(machines)
	c.version++
}

func (c *Cache) ReplaceInventory(machineID int64, products []models.Product) {
	c.inventory = slices.Clone(products)
	c.inventoryMachine = machineID
	c.version++
}

func (c *Cache) ReplaceSearch(query string, products []models.Product) {
	c.search = slices.Clone(products)
	c.searchQuery = query
	c.version++
}

func (c *Cache) ClearSearch() {
	c.search = nil
	c.searchQuery = ""
	c.version++
}

// ApplyDelta decrements every record matching the delta's product in both the
// inventory and the search snapshot. Records already at zero stay at zero.
// It returns the number of records changed.
func (c *Cache) ApplyDelta(delta models.StockDelta) int {
	changed := decrement(c.inventory, delta.ProductID) + decrement(c.search, delta.ProductID)
	if changed > 0 {
		c.version++
	}
	return changed
}

func decrement(products []models.Product, productID int64) int {
	changed := 0
	for i := range products {
		if products[i].ID == productID && products[i].Stock > 0 {
			products[i].Stock--
			changed++
		}
	}
	return changed
}

func (c *Cache) SetPosition(res models.Resolution) {
	c.position = res
	c.version++
}

func (c *Cache) SetView(view models.ViewState) {
	c.view = copyView(view)
	c.version++
}

// Snapshot copies the current state.
func (c *Cache) Snapshot() Snapshot {
	return Snapshot{
		Machines:           slices.Clone(c.machines),
		Inventory:          slices.Clone(c.inventory),
		InventoryMachineID: c.inventoryMachine,
		SearchResults:      slices.Clone(c.search),
		SearchQuery:        c.searchQuery,
		View:               copyView(c.view),
		Position:           copyResolution(c.position),
		Version:            c.version,
	}
}

func copyView(v models.ViewState) models.ViewState {
	if v.SelectedMachine != nil {
		m := *v.SelectedMachine
		v.SelectedMachine = &m
	}
	return v
}

func copyResolution(r models.Resolution) models.Resolution {
	if r.Coordinate != nil {
		c := *r.Coordinate
		r.Coordinate = &c
	}
	return r
}
