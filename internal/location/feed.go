package location

import (
	"context"
	"sync"

	"github.com/woozymasta/rfegps/internal/geo"
)

// FeedSensor is fed by a client that pushes its own fixes, for example a
// phone or browser posting to the HTTP API.
type FeedSensor struct {
	events chan Event

	mu       sync.Mutex
	auth     Authorization
	consumed bool
}

// NewFeedSensor creates a feed. With authorized set, permission is granted
// up front; otherwise the first client report decides.
func NewFeedSensor(buffer int, authorized bool) *FeedSensor {
	if buffer <= 0 {
		buffer = 16
	}
	f := &FeedSensor{events: make(chan Event, buffer)}
	if authorized {
		f.auth = Authorized
	}
	return f
}

// Name returns the sensor name.
func (f *FeedSensor) Name() string { return "feed" }

// RequestAuthorization returns the current permission state.
func (f *FeedSensor) RequestAuthorization(context.Context) (Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth, nil
}

// Authorization returns the current permission state.
func (f *FeedSensor) Authorization() Authorization {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth
}

// Updates returns the event stream. It can be consumed once.
func (f *FeedSensor) Updates(ctx context.Context) (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumed {
		return nil, ErrAlreadyConsumed
	}
	f.consumed = true

	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-f.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// SetAuthorization records a permission decision reported by the client.
func (f *FeedSensor) SetAuthorization(ctx context.Context, a Authorization) error {
	f.mu.Lock()
	changed := f.auth != a
	f.auth = a
	f.mu.Unlock()

	if !changed {
		return nil
	}
	return f.send(ctx, AuthorizationEvent(a))
}

// Push delivers a batch of fixes. A first fix while permission is
// undetermined counts as a grant; fixes after a denial are rejected.
func (f *FeedSensor) Push(ctx context.Context, locations []geo.Coordinate) error {
	if len(locations) == 0 {
		return nil
	}

	switch f.Authorization() {
	case Denied:
		return ErrPermissionDenied
	case NotDetermined:
		// the grant only counts once its event is queued
		if err := f.send(ctx, AuthorizationEvent(Authorized)); err != nil {
			return err
		}
		f.mu.Lock()
		if f.auth == NotDetermined {
			f.auth = Authorized
		}
		f.mu.Unlock()
	}

	batch := append([]geo.Coordinate(nil), locations...)
	return f.send(ctx, Event{Locations: batch})
}

// Fail reports a sensor error from the client.
func (f *FeedSensor) Fail(ctx context.Context, err error) error {
	return f.send(ctx, Event{Err: err})
}

func (f *FeedSensor) send(ctx context.Context, ev Event) error {
	select {
	case f.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
