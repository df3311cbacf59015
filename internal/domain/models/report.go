package models

import (
	"errors"
	"time"
)

// ErrNoSyncReports is returned when no sync report has been stored yet.
var ErrNoSyncReports = errors.New("no sync reports stored")

// SyncReport is a periodic summary of the engine's cache and push channel.
type SyncReport struct {
	ID              string    `bson:"_id" json:"id"`
	GeneratedAt     time.Time `bson:"generated_at" json:"generated_at"`
	PositionStatus  string    `bson:"position_status" json:"position_status"`
	PositionSource  string    `bson:"position_source,omitempty" json:"position_source,omitempty"`
	Machines        int       `bson:"machines" json:"machines"`
	InventoryItems  int       `bson:"inventory_items" json:"inventory_items"`
	SearchResults   int       `bson:"search_results" json:"search_results"`
	OutOfStock      int       `bson:"out_of_stock" json:"out_of_stock"`
	ChannelState    string    `bson:"channel_state" json:"channel_state"`
	ConnectAttempts uint64    `bson:"connect_attempts" json:"connect_attempts"`
	Connects        uint64    `bson:"connects" json:"connects"`
	DeltasReceived  uint64    `bson:"deltas_received" json:"deltas_received"`
	CacheVersion    uint64    `bson:"cache_version" json:"cache_version"`
}

