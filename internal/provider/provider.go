// Package provider implements the external geocoding and directions services.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/woozymasta/rfegps/internal/geo"
)

// Error kinds reported by providers.
var (
	ErrGeocodeNotFound = errors.New("no matching location found")
	ErrGeocodeProvider = errors.New("geocoding provider error")
	ErrRouteNotFound   = errors.New("no route between the points")
	ErrRouteProvider   = errors.New("directions provider error")
)

// TransportMode selects the directions profile.
type TransportMode string

// Supported transport modes.
const (
	Automobile TransportMode = "automobile"
	Walking    TransportMode = "walking"
	Cycling    TransportMode = "cycling"
)

// Place is a single geocoding candidate.
type Place struct {
	Name       string         `json:"name"`
	Coordinate geo.Coordinate `json:"coordinate"`
}

// Geocoder resolves free text to ranked candidate places.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) ([]Place, error)
}

// Directions computes ranked candidate routes between two coordinates.
type Directions interface {
	Name() string
	Directions(ctx context.Context, origin, destination geo.Coordinate, mode TransportMode) ([]geo.Route, error)
}

// Error describes a failed provider call. It unwraps to both the kind
// sentinel and the underlying cause.
type Error struct {
	Err        error
	Kind       error
	Provider   string
	Op         string
	StatusCode int
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
