// Package location turns a position sensor into region center updates.
package location

import (
	"context"
	"errors"

	"github.com/woozymasta/rfegps/internal/geo"
)

// Location error kinds.
var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrSensorFailure    = errors.New("location sensor failure")
	ErrServicesDisabled = errors.New("location services are not enabled")
	ErrAlreadyConsumed  = errors.New("sensor updates already consumed")
)

// Authorization is the sensor permission state.
type Authorization int

// Authorization states.
const (
	NotDetermined Authorization = iota
	Authorized
	Denied
)

func (a Authorization) String() string {
	switch a {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "not_determined"
	}
}

// Event is one notification from a sensor: a batch of fixes, a failure,
// or an authorization change.
type Event struct {
	Authorization *Authorization
	Err           error
	Locations     []geo.Coordinate
}

// Sensor is a platform position source.
type Sensor interface {
	Name() string
	// RequestAuthorization asks for permission and returns the current state.
	RequestAuthorization(ctx context.Context) (Authorization, error)
	// Updates starts the update stream. The channel closes when ctx is done
	// or the sensor has nothing more to report.
	Updates(ctx context.Context) (<-chan Event, error)
}

// AuthorizationEvent builds an authorization change event.
func AuthorizationEvent(a Authorization) Event {
	return Event{Authorization: &a}
}
