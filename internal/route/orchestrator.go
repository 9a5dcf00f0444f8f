// Package route turns a destination string into an installed route and ETA.
package route

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/provider"
	"github.com/woozymasta/rfegps/internal/state"
)

// DefaultTimeout bounds each provider call.
const DefaultTimeout = 10 * time.Second

// FormatETA renders travel time as whole minutes, truncated toward zero.
func FormatETA(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	minutes := math.Floor(seconds / 60)
	if minutes >= math.MaxInt64 {
		return fmt.Sprintf("ETA: %d min", int64(math.MaxInt64))
	}
	return fmt.Sprintf("ETA: %d min", int64(minutes))
}

// Orchestrator runs the destination pipeline: geocode, route, install.
// A newer submission cancels the one in flight; stale results are discarded.
type Orchestrator struct {
	store      *state.Store
	geocoder   provider.Geocoder
	directions provider.Directions
	timeout    time.Duration
	base       context.Context

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds each geocoding and directions call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithContext sets the parent context of asynchronous submissions.
func WithContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.base = ctx }
}

// New creates an orchestrator writing into store.
func New(store *state.Store, geocoder provider.Geocoder, directions provider.Directions, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		geocoder:   geocoder,
		directions: directions,
		timeout:    DefaultTimeout,
		base:       context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Geocode resolves text to the first ranked candidate.
func (o *Orchestrator) Geocode(ctx context.Context, text string) (geo.Coordinate, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return geo.Coordinate{}, &GeocodeError{Query: text, Err: provider.ErrGeocodeNotFound}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	places, err := o.geocoder.Geocode(ctx, query)
	if err != nil {
		if !errors.Is(err, provider.ErrGeocodeNotFound) && !errors.Is(err, provider.ErrGeocodeProvider) {
			err = fmt.Errorf("%w: %w", provider.ErrGeocodeProvider, err)
		}
		return geo.Coordinate{}, &GeocodeError{Query: query, Err: err}
	}
	if len(places) == 0 {
		return geo.Coordinate{}, &GeocodeError{Query: query, Err: provider.ErrGeocodeNotFound}
	}

	log.Debug().
		Str("query", query).
		Str("match", places[0].Name).
		Float64("lat", places[0].Coordinate.Latitude).
		Float64("lon", places[0].Coordinate.Longitude).
		Int("candidates", len(places)).
		Msg("Destination geocoded")

	return places[0].Coordinate, nil
}

// Route returns the first driving route between origin and destination.
func (o *Orchestrator) Route(ctx context.Context, origin, destination geo.Coordinate) (geo.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	routes, err := o.directions.Directions(ctx, origin, destination, provider.Automobile)
	if err != nil {
		if !errors.Is(err, provider.ErrRouteNotFound) && !errors.Is(err, provider.ErrRouteProvider) {
			err = fmt.Errorf("%w: %w", provider.ErrRouteProvider, err)
		}
		return geo.Route{}, &RouteError{Origin: origin, Destination: destination, Err: err}
	}
	if len(routes) == 0 {
		return geo.Route{}, &RouteError{Origin: origin, Destination: destination, Err: provider.ErrRouteNotFound}
	}

	r := routes[0].Clone()
	if len(r.Polyline) == 0 {
		return geo.Route{}, &RouteError{Origin: origin, Destination: destination, Err: provider.ErrRouteNotFound}
	}
	if math.IsInf(r.ExpectedTravelTime, 0) {
		return geo.Route{}, &RouteError{Origin: origin, Destination: destination,
			Err: fmt.Errorf("%w: travel time is not finite", provider.ErrRouteProvider)}
	}
	if math.IsNaN(r.ExpectedTravelTime) || r.ExpectedTravelTime < 0 {
		r.ExpectedTravelTime = 0
	}

	log.Debug().
		Float64("travel_time", r.ExpectedTravelTime).
		Float64("distance", r.Distance).
		Int("points", len(r.Polyline)).
		Int("candidates", len(routes)).
		Msg("Route calculated")

	return r, nil
}

// SubmitDestination geocodes text, routes from the current region center and
// installs the result. On failure the previous route and ETA stay in place.
func (o *Orchestrator) SubmitDestination(ctx context.Context, text string) (geo.Route, error) {
	gen, ctx, done := o.begin(ctx)
	defer done()

	logger := log.With().Uint64("request", gen).Str("destination", text).Logger()
	logger.Info().Msg("Destination submitted")

	started := make(chan bool, 1)
	err := o.store.UpdateWait(ctx, func(st *state.State) bool {
		// a newer request may already own the state
		if gen <= st.Generation || !o.current(gen) {
			started <- false
			return false
		}
		st.Generation = gen
		st.Phase = state.PhaseGeocoding
		st.Query = text
		st.LastError = ""
		started <- true
		return true
	})
	if err != nil {
		return geo.Route{}, o.fail(gen, err)
	}
	if !<-started {
		return geo.Route{}, ErrSuperseded
	}

	dest, err := o.Geocode(ctx, text)
	if err != nil {
		return geo.Route{}, o.fail(gen, err)
	}

	origins := make(chan geo.Coordinate, 1)
	err = o.store.UpdateWait(ctx, func(st *state.State) bool {
		if st.Generation != gen || !o.current(gen) {
			close(origins)
			return false
		}
		origins <- st.Region.Center
		st.Phase = state.PhaseRouting
		return true
	})
	if err != nil {
		return geo.Route{}, o.fail(gen, err)
	}
	origin, ok := <-origins
	if !ok {
		logger.Debug().Msg("Request superseded before routing")
		return geo.Route{}, ErrSuperseded
	}

	r, err := o.Route(ctx, origin, dest)
	if err != nil {
		return geo.Route{}, o.fail(gen, err)
	}

	installed := make(chan bool, 1)
	err = o.store.UpdateWait(ctx, func(st *state.State) bool {
		if st.Generation != gen || !o.current(gen) {
			installed <- false
			return false
		}
		route := r.Clone()
		st.Route = &route
		st.RouteID = gen
		st.Destination = &dest
		st.ETA = FormatETA(r.ExpectedTravelTime)
		st.Phase = state.PhaseIdle
		st.LastError = ""
		installed <- true
		return true
	})
	if err != nil {
		return geo.Route{}, o.fail(gen, err)
	}
	if !<-installed {
		logger.Debug().Msg("Discarding stale route")
		return geo.Route{}, ErrSuperseded
	}

	logger.Info().
		Str("eta", FormatETA(r.ExpectedTravelTime)).
		Float64("distance", r.Distance).
		Msg("Route installed")

	return r, nil
}

// SubmitAsync runs SubmitDestination in the background, as the "Go" action does.
func (o *Orchestrator) SubmitAsync(text string) {
	go func() {
		_, _ = o.SubmitDestination(o.base, text)
	}()
}

// Cancel aborts the request in flight, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// begin starts a new generation and cancels the previous request.
func (o *Orchestrator) begin(parent context.Context) (uint64, context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.generation++
	gen := o.generation
	o.cancel = cancel
	o.mu.Unlock()

	done := func() {
		o.mu.Lock()
		if o.generation == gen {
			o.cancel = nil
		}
		o.mu.Unlock()
		cancel()
	}

	return gen, ctx, done
}

// fail logs err and records it as the transient error of generation gen.
// Route and ETA are left untouched.
func (o *Orchestrator) fail(gen uint64, err error) error {
	if !o.current(gen) {
		log.Debug().Uint64("request", gen).Err(err).Msg("Superseded request failed")
		return ErrSuperseded
	}

	kind := Kind(err)
	log.Error().
		Uint64("request", gen).
		Str("kind", kind).
		Err(err).
		Msg("Destination request failed")

	msg := kind + ": " + err.Error()
	if uerr := o.store.Update(func(st *state.State) bool {
		if st.Generation != gen || !o.current(gen) {
			return false
		}
		st.Phase = state.PhaseIdle
		st.LastError = msg
		return true
	}); uerr != nil {
		log.Debug().Err(uerr).Msg("Failure not recorded, state loop stopped")
	}

	return err
}

// current reports whether gen is the newest submission.
func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation == gen
}
