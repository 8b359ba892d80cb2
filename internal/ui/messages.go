// Package ui is the Bubble Tea host for an autocomplete Engine.
package ui

import (
	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/store"
)

// FeaturesChanged carries the engine's new result list.
type FeaturesChanged struct {
	Features []geocode.Feature
}

// StateChanged is sent when loading or the menu changes.
type StateChanged struct {
	State autocomplete.State
}

// Selected is sent after the user commits a row. The engine has already
// replaced its input with the feature label.
type Selected struct {
	Feature geocode.Feature
}

// SearchFailed carries a search or configuration error.
type SearchFailed struct {
	Err error
}

// RecentLoaded is the result of loading selection history.
type RecentLoaded struct {
	Selections []store.Selection
	Err        error
}

// SelectionSaved is sent once a committed feature has been persisted.
type SelectionSaved struct {
	Feature geocode.Feature
	Err     error
}

// ConfigReloaded is sent when the config file changes on disk.
type ConfigReloaded struct {
	Settings Settings
	Err      error
}
