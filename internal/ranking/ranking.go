// Package ranking derives the ordered views shown to the client from a cache
// snapshot and the current position. Every function is pure: inputs are
// copied, never reordered in place, and ties keep their input order.
package ranking

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/geo"
)

// CoLocatedMeters is the distance difference under which two search results
// are considered to be at the same place and are ordered by stock instead.
const CoLocatedMeters = 50

// RankedMachine is a machine with its distance from the client, when known.
type RankedMachine struct {
	models.Machine
	DistanceMeters *int64 `json:"distance_meters,omitempty"`
}

// RankedProduct is a search result with its distance from the client, when known.
type RankedProduct struct {
	models.Product
	DistanceMeters *int64 `json:"distance_meters,omitempty"`
}

// MachinesByProximity orders machines by ascending distance. Machines whose
// distance cannot be computed, including every machine when pos is nil, sort
// last in their original order.
func MachinesByProximity(machines []models.Machine, pos *models.Coordinate) []RankedMachine {
	rows := make([]RankedMachine, len(machines))
	for i, m := range machines {
		rows[i] = RankedMachine{Machine: m, DistanceMeters: distanceFrom(pos, m.Latitude, m.Longitude)}
	}

	slices.SortStableFunc(rows, func(a, b RankedMachine) int {
		return cmp.Compare(sortKey(a.DistanceMeters), sortKey(b.DistanceMeters))
	})
	return rows
}

// Nearest returns the closest machine with a known distance.
func Nearest(machines []models.Machine, pos *models.Coordinate) (RankedMachine, bool) {
	ranked := MachinesByProximity(machines, pos)
	if len(ranked) == 0 || ranked[0].DistanceMeters == nil {
		return RankedMachine{}, false
	}
	return ranked[0], true
}

// SearchResults orders cross-machine search results by distance, preferring
// the higher stock among results less than CoLocatedMeters apart. Without a
// position the order is stock descending.
func SearchResults(products []models.Product, pos *models.Coordinate) []RankedProduct {
	rows := make([]RankedProduct, len(products))
	for i, p := range products {
		rows[i] = RankedProduct{Product: p, DistanceMeters: distanceFrom(pos, p.Latitude, p.Longitude)}
	}

	slices.SortStableFunc(rows, func(a, b RankedProduct) int {
		if pos == nil {
			return cmp.Compare(b.Stock, a.Stock)
		}
		da, db := sortKey(a.DistanceMeters), sortKey(b.DistanceMeters)
		if math.IsInf(da, 1) && math.IsInf(db, 1) {
			return 0
		}
		if math.Abs(da-db) < CoLocatedMeters {
			return cmp.Compare(b.Stock, a.Stock)
		}
		return cmp.Compare(da, db)
	})
	return rows
}

// Inventory filters a machine's products by a case-insensitive substring of
// the search text and orders them by stock descending.
func Inventory(products []models.Product, searchText string) []models.Product {
	needle := strings.ToLower(searchText)

	rows := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			rows = append(rows, p)
		}
	}

	slices.SortStableFunc(rows, func(a, b models.Product) int {
		return cmp.Compare(b.Stock, a.Stock)
	})
	return rows
}

func distanceFrom(pos *models.Coordinate, lat, lon float64) *int64 {
	if pos == nil {
		return nil
	}
	d, ok := geo.Distance(geo.Point{Lat: pos.Lat, Lon: pos.Lon}, geo.Point{Lat: lat, Lon: lon})
	if !ok {
		return nil
	}
	return &d
}

func sortKey(d *int64) float64 {
	if d == nil {
		return math.Inf(1)
	}
	return float64(*d)
}
