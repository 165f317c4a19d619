// pkg/core/profile.go
package core

import "encoding/json"

// Profile is the static viewer configuration: time origin, zoom table and layer catalog.
// It is read-only once handed to a navigator, except for layer refs being resolved in place.
type Profile struct {
	// Origin is the index-zero reference point. Origin[0] is an epoch in milliseconds.
	Origin [2]float64 `json:"origin" yaml:"origin"`
	// Zoom maps zoom level to its index-unit width. JSON keys are stringified integers.
	Zoom map[int]ZoomLevel `json:"zoom" yaml:"zoom"`
	Layers map[string]*Layer `json:"layers" yaml:"layers"`
	// Prefix is prepended to layer refs when fetching: Prefix + "/" + ref.
	Prefix string `json:"prefix" yaml:"prefix"`
}

// ZoomLevel describes one temporal resolution.
type ZoomLevel struct {
	// Width is the number of milliseconds covered by one availability-index unit.
	Width float64 `json:"width" yaml:"width"`
}

// Colormap is an opaque colormap table. Interpretation belongs to the renderer.
type Colormap = json.RawMessage

// AvailabilityTable maps a zoom level to the ranges for which data exists at that zoom.
type AvailabilityTable map[int][]Range

// Layer is a named data source whose colormap and availability tables are fetched lazily.
type Layer struct {
	Colormap     Ref[Colormap]          `json:"colormap" yaml:"colormap"`
	Availability Ref[AvailabilityTable] `json:"availability" yaml:"availability"`
}

// OriginMs returns the profile's time origin in epoch milliseconds.
func (p *Profile) OriginMs() float64 {
	return p.Origin[0]
}

// ZoomWidth returns the index-unit width for zoom z and whether z is defined.
func (p *Profile) ZoomWidth(z int) (float64, bool) {
	lvl, ok := p.Zoom[z]
	if !ok {
		return 0, false
	}
	return lvl.Width, true
}
