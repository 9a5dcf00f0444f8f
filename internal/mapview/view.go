// Package mapview is the presentation layer: it derives what the map shows
// from the shared state and renders the page and route previews.
package mapview

import (
	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/state"
)

// fitPadding is added around the route when fitting the viewport.
const fitPadding = 0.1

// View is the map view model.
type View struct {
	Route       *geo.Route      `json:"route,omitempty"`
	RouteID     uint64          `json:"route_id,omitempty"`
	Fit         *geo.Region     `json:"fit,omitempty"`
	Destination *geo.Coordinate `json:"destination,omitempty"`

	Title       string      `json:"title"`
	Region      geo.Region  `json:"region"`
	ETA         string      `json:"eta"`
	WeatherHint string      `json:"weather_hint"`
	Phase       state.Phase `json:"phase"`
	Query       string      `json:"query,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	Version     uint64      `json:"version"`
}

// Build derives the view model from a snapshot. The fitted viewport is
// recomputed from the whole polyline every time.
func Build(snap state.Snapshot, title string) View {
	v := View{
		Route:       snap.Route,
		RouteID:     snap.RouteID,
		Destination: snap.Destination,
		Title:       title,
		Region:      snap.Region,
		ETA:         snap.ETA,
		WeatherHint: snap.WeatherHint,
		Phase:       snap.Phase,
		Query:       snap.Query,
		LastError:   snap.LastError,
		Version:     snap.Version,
	}

	if snap.Route != nil {
		if b, ok := geo.BoundsOf(snap.Route.Polyline); ok {
			fit := b.Region(fitPadding)
			v.Fit = &fit
		}
	}

	return v
}
