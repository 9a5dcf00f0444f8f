package provider

import (
	"context"
	"strings"

	"github.com/woozymasta/rfegps/internal/geo"
)

// matchRadius is how close a destination must be to a table entry, in meters.
const matchRadius = 50.0

// StaticRoute is a canned directions result for a destination.
type StaticRoute struct {
	Destination geo.Coordinate
	Route       geo.Route
}

// Static answers geocoding and directions from fixed tables.
// It serves offline runs and tests.
type Static struct {
	places map[string][]Place
	routes []StaticRoute
}

// NewStatic builds a static provider. Place queries match case-insensitively.
func NewStatic(places map[string][]Place, routes []StaticRoute) *Static {
	norm := make(map[string][]Place, len(places))
	for q, p := range places {
		key := normalizeQuery(q)
		norm[key] = append(norm[key], p...)
	}
	return &Static{places: norm, routes: routes}
}

// Name returns the provider name.
func (s *Static) Name() string { return "static" }

// Geocode looks the query up in the place table.
func (s *Static) Geocode(ctx context.Context, query string) ([]Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Provider: s.Name(), Op: "geocode", Kind: ErrGeocodeProvider, Err: err}
	}

	places := s.places[normalizeQuery(query)]
	if len(places) == 0 {
		return nil, &Error{Provider: s.Name(), Op: "geocode", Kind: ErrGeocodeNotFound}
	}

	return append([]Place(nil), places...), nil
}

// Directions returns every table route ending near destination, in table order.
// A route without a polyline is drawn as a straight line from origin.
func (s *Static) Directions(ctx context.Context, origin, destination geo.Coordinate, _ TransportMode) ([]geo.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Provider: s.Name(), Op: "route", Kind: ErrRouteProvider, Err: err}
	}

	var out []geo.Route
	for _, sr := range s.routes {
		if geo.Haversine(sr.Destination, destination) > matchRadius {
			continue
		}

		r := sr.Route.Clone()
		if len(r.Polyline) == 0 {
			r.Polyline = []geo.Coordinate{origin, destination}
		}
		if r.Distance == 0 {
			r.Distance = geo.Length(r.Polyline)
		}
		out = append(out, r)
	}

	if len(out) == 0 {
		return nil, &Error{Provider: s.Name(), Op: "route", Kind: ErrRouteNotFound}
	}

	return out, nil
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
