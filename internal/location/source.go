package location

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/state"
)

// Source feeds sensor fixes into the shared region.
type Source struct {
	sensor Sensor
	store  *state.Store

	mu        sync.Mutex
	started   bool
	observers map[int]func(geo.Coordinate)
	nextID    int
}

// NewSource binds a sensor to the store.
func NewSource(sensor Sensor, store *state.Store) *Source {
	return &Source{
		sensor:    sensor,
		store:     store,
		observers: make(map[int]func(geo.Coordinate)),
	}
}

// Start requests permission and begins consuming updates in the background.
// Calling it again after the first attempt is a no-op. Failures are logged,
// leave the region untouched and are not retried.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	logger := log.With().Str("sensor", s.sensor.Name()).Logger()

	auth, err := s.sensor.RequestAuthorization(ctx)
	if err != nil {
		if errors.Is(err, ErrServicesDisabled) {
			logger.Warn().Msg("Location services are not enabled")
		} else {
			logger.Error().Err(err).Msg("Location authorization failed")
		}
		return err
	}
	if auth == Denied {
		logger.Warn().Err(ErrPermissionDenied).Msg("Location permission denied")
		return ErrPermissionDenied
	}

	updates, err := s.sensor.Updates(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSensorFailure, err)
		logger.Error().Err(err).Msg("Failed to start location updates")
		return err
	}

	logger.Info().Str("authorization", auth.String()).Msg("Location updates started")

	go s.consume(ctx, updates)
	return nil
}

// Subscribe registers fn to be called on the state loop with every new center.
func (s *Source) Subscribe(fn func(geo.Coordinate)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Source) consume(ctx context.Context, updates <-chan Event) {
	logger := log.With().Str("sensor", s.sensor.Name()).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				logger.Info().Msg("Location updates ended")
				return
			}
			s.handle(ev)
		}
	}
}

func (s *Source) handle(ev Event) {
	logger := log.With().Str("sensor", s.sensor.Name()).Logger()

	if ev.Authorization != nil {
		if *ev.Authorization == Denied {
			logger.Warn().Err(ErrPermissionDenied).Msg("Location permission denied")
		} else {
			logger.Debug().Str("authorization", ev.Authorization.String()).Msg("Location authorization changed")
		}
	}

	if ev.Err != nil {
		logger.Error().Err(fmt.Errorf("%w: %w", ErrSensorFailure, ev.Err)).Msg("Location error")
	}

	if len(ev.Locations) == 0 {
		return
	}

	// most recent fix in the batch wins
	c := ev.Locations[len(ev.Locations)-1]
	if !c.Valid() {
		logger.Warn().
			Float64("lat", c.Latitude).
			Float64("lon", c.Longitude).
			Msg("Dropping invalid location fix")
		return
	}

	logger.Trace().
		Float64("lat", c.Latitude).
		Float64("lon", c.Longitude).
		Int("batch", len(ev.Locations)).
		Msg("Location update")

	err := s.store.Update(func(st *state.State) bool {
		if st.Region.Center == c {
			return false
		}
		st.Region.Center = c
		s.notify(c)
		return true
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Location update dropped, state loop stopped")
	}
}

func (s *Source) notify(c geo.Coordinate) {
	s.mu.Lock()
	observers := make([]func(geo.Coordinate), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(c)
	}
}
