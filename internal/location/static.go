package location

import (
	"context"

	"github.com/woozymasta/rfegps/internal/geo"
)

// StaticSensor reports one fixed position.
type StaticSensor struct {
	at geo.Coordinate
}

// NewStaticSensor creates a sensor pinned at c.
func NewStaticSensor(c geo.Coordinate) *StaticSensor {
	return &StaticSensor{at: c}
}

// Name returns the sensor name.
func (s *StaticSensor) Name() string { return "static" }

// RequestAuthorization always grants.
func (s *StaticSensor) RequestAuthorization(context.Context) (Authorization, error) {
	return Authorized, nil
}

// Updates emits the position once and stays open until ctx is done.
func (s *StaticSensor) Updates(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event, 1)
	out <- Event{Locations: []geo.Coordinate{s.at}}

	go func() {
		<-ctx.Done()
		close(out)
	}()

	return out, nil
}

// DisabledSensor stands in when location services are turned off.
type DisabledSensor struct{}

// Name returns the sensor name.
func (DisabledSensor) Name() string { return "none" }

// RequestAuthorization reports that services are disabled.
func (DisabledSensor) RequestAuthorization(context.Context) (Authorization, error) {
	return NotDetermined, ErrServicesDisabled
}

// Updates is never reached for a disabled sensor.
func (DisabledSensor) Updates(context.Context) (<-chan Event, error) {
	return nil, ErrServicesDisabled
}
