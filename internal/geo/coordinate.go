// Package geo holds the geographic value types shared by the routing service.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidSpan is returned when a region span has a non-positive delta.
var ErrInvalidSpan = errors.New("region span deltas must be positive")

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether the coordinate is a finite position on the globe.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', 6, 64) + "," +
		strconv.FormatFloat(c.Longitude, 'f', 6, 64)
}

// ParseCoordinate parses "lat,lon".
func ParseCoordinate(s string) (Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("coordinate %q: expected \"lat,lon\"", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: longitude: %w", s, err)
	}

	c := Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate %q: out of range", s)
	}

	return c, nil
}

// Span is the visible extent of a region in degrees.
type Span struct {
	LatitudeDelta  float64 `json:"latitude_delta" yaml:"latitude_delta"`
	LongitudeDelta float64 `json:"longitude_delta" yaml:"longitude_delta"`
}

// Region describes a map viewport.
type Region struct {
	Center Coordinate `json:"center" yaml:"center"`
	Span   Span       `json:"span" yaml:"span"`
}

// DefaultRegion is centered on Houston with a city-level zoom.
var DefaultRegion = Region{
	Center: Coordinate{Latitude: 29.7604, Longitude: -95.3698},
	Span:   Span{LatitudeDelta: 0.05, LongitudeDelta: 0.05},
}

// Validate checks the region invariants.
func (r Region) Validate() error {
	if !(r.Span.LatitudeDelta > 0) || !(r.Span.LongitudeDelta > 0) {
		return ErrInvalidSpan
	}
	if !r.Center.Valid() {
		return fmt.Errorf("region center %s out of range", r.Center)
	}
	return nil
}

// Route is a single driving result.
type Route struct {
	Polyline []Coordinate `json:"polyline" yaml:"polyline"`

	// ExpectedTravelTime is in seconds.
	ExpectedTravelTime float64 `json:"expected_travel_time" yaml:"expected_travel_time"`
	// Distance is in meters, zero when the provider does not report it.
	Distance float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

// Clone returns a deep copy so callers can share routes across goroutines.
func (r Route) Clone() Route {
	out := r
	out.Polyline = append([]Coordinate(nil), r.Polyline...)
	return out
}
