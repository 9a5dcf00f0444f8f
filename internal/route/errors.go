package route

import (
	"errors"
	"fmt"

	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/location"
	"github.com/woozymasta/rfegps/internal/provider"
)

// ErrSuperseded is returned when a newer submission replaced the request.
var ErrSuperseded = errors.New("request superseded by a newer destination")

// GeocodeError is a failed destination lookup.
type GeocodeError struct {
	Err   error
	Query string
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("geocode %q: %v", e.Query, e.Err)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// RouteError is a failed directions lookup.
type RouteError struct {
	Err         error
	Origin      geo.Coordinate
	Destination geo.Coordinate
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route %s -> %s: %v", e.Origin, e.Destination, e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

// Error kind names reported in logs and the API.
const (
	KindPermissionDenied     = "PermissionDenied"
	KindSensorFailure        = "SensorFailure"
	KindGeocodeNotFound      = "GeocodeNotFound"
	KindGeocodeProviderError = "GeocodeProviderError"
	KindRouteNotFound        = "RouteNotFound"
	KindRouteProviderError   = "RouteProviderError"
	KindSuperseded           = "Superseded"
	KindUnknown              = "Unknown"
)

// Kind classifies err into one of the error kind names.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSuperseded):
		return KindSuperseded
	case errors.Is(err, provider.ErrGeocodeNotFound):
		return KindGeocodeNotFound
	case errors.Is(err, provider.ErrGeocodeProvider):
		return KindGeocodeProviderError
	case errors.Is(err, provider.ErrRouteNotFound):
		return KindRouteNotFound
	case errors.Is(err, provider.ErrRouteProvider):
		return KindRouteProviderError
	case errors.Is(err, location.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, location.ErrSensorFailure):
		return KindSensorFailure
	default:
		return KindUnknown
	}
}
