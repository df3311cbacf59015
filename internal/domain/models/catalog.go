package models

import "github.com/shopspring/decimal"

// Machine is a vending machine as returned by the catalog service.
type Machine struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Product is a stocked item. Machine fields are populated for cross-machine
// search results and left empty for per-machine inventory listings.
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	MachineID       int64           `json:"machine_id,omitempty"`
	MachineName     string          `json:"machine_name,omitempty"`
	MachineLocation string          `json:"location,omitempty"`
	Latitude        float64         `json:"latitude,omitempty"`
	Longitude       float64         `json:"longitude,omitempty"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}
