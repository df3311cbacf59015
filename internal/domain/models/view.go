package models

import "strings"

// ViewType enumerates the dashboard views a client can be in.
type ViewType string

const (
	ViewMachines  ViewType = "machines"
	ViewInventory ViewType = "inventory"
	ViewNearest   ViewType = "nearest"
)

// ViewState is the navigation state shared by the ranking views.
type ViewState struct {
	View            ViewType `json:"view"`
	SelectedMachine *Machine `json:"selected_machine,omitempty"`
	SearchText      string   `json:"search_text"`
}

// ParseView normalises free-form input into a ViewType. Unknown values map to
// the machines view.
func ParseView(value string) ViewType {
	switch ViewType(strings.TrimSpace(strings.ToLower(value))) {
	case ViewInventory:
		return ViewInventory
	case ViewNearest:
		return ViewNearest
	default:
		return ViewMachines
	}
}
