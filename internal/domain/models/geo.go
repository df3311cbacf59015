package models

// CoordinateSource identifies which position provider produced a Coordinate.
type CoordinateSource string

const (
	SourceGPS CoordinateSource = "GPS"
	SourceIP  CoordinateSource = "IP"
)

// Coordinate is a resolved client position. A new resolution replaces it wholesale.
type Coordinate struct {
	Lat    float64          `json:"lat"`
	Lon    float64          `json:"lon"`
	Source CoordinateSource `json:"source"`
}

// ResolutionStatus tracks the lifecycle of a position resolution attempt.
type ResolutionStatus string

const (
	ResolutionPending    ResolutionStatus = "pending"
	ResolutionResolved   ResolutionStatus = "resolved"
	ResolutionUnresolved ResolutionStatus = "unresolved"
)

// Resolution is the outcome of the position fallback chain.
type Resolution struct {
	Status     ResolutionStatus `json:"status"`
	Coordinate *Coordinate      `json:"coordinate,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// Resolved reports whether a coordinate is available.
func (r Resolution) Resolved() bool {
	return r.Status == ResolutionResolved && r.Coordinate != nil
}
