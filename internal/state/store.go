package state

import (
	"context"
	"sync"

	"github.com/woozymasta/rfegps/internal/geo"
)

// DefaultETA is displayed while no route exists.
const DefaultETA = "ETA: --"

// Phase is the route pipeline stage.
type Phase string

// Pipeline phases.
const (
	PhaseIdle      Phase = "idle"
	PhaseGeocoding Phase = "geocoding"
	PhaseRouting   Phase = "routing"
)

// State is the mutable view state. It is only touched on the loop.
type State struct {
	Route       *geo.Route
	Destination *geo.Coordinate

	Region      geo.Region
	ETA         string
	Phase       Phase
	Query       string // last submitted destination text
	LastError   string
	Generation  uint64
	RouteID     uint64 // generation that installed Route
	WeatherHint string
}

// Snapshot is an immutable copy of State published to readers.
type Snapshot struct {
	Route       *geo.Route      `json:"route,omitempty"`
	RouteID     uint64          `json:"route_id,omitempty"`
	Destination *geo.Coordinate `json:"destination,omitempty"`

	Region      geo.Region `json:"region"`
	ETA         string     `json:"eta"`
	Phase       Phase      `json:"phase"`
	Query       string     `json:"query,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	WeatherHint string     `json:"weather_hint"`
	Version     uint64     `json:"version"`
}

// Store is the observable state container.
type Store struct {
	loop  *Loop
	state State

	version uint64

	mu        sync.Mutex
	observers map[int]func(Snapshot)
	nextID    int
}

// NewStore creates a store with the initial region and status hint.
func NewStore(loop *Loop, region geo.Region, weatherHint string) *Store {
	return &Store{
		loop: loop,
		state: State{
			Region:      region,
			ETA:         DefaultETA,
			Phase:       PhaseIdle,
			WeatherHint: weatherHint,
		},
		observers: make(map[int]func(Snapshot)),
	}
}

// Loop returns the loop that owns the store.
func (s *Store) Loop() *Loop {
	return s.loop
}

// Update queues a mutation. Observers are notified when fn reports a change.
func (s *Store) Update(fn func(*State) bool) error {
	return s.loop.Dispatch(func() { s.apply(fn) })
}

// UpdateWait runs a mutation and waits for it.
func (s *Store) UpdateWait(ctx context.Context, fn func(*State) bool) error {
	return s.loop.Do(ctx, func() { s.apply(fn) })
}

// SetCenter moves the region center.
func (s *Store) SetCenter(c geo.Coordinate) error {
	return s.Update(func(st *State) bool {
		if st.Region.Center == c {
			return false
		}
		st.Region.Center = c
		return true
	})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	out := make(chan Snapshot, 1)
	if err := s.loop.Do(ctx, func() { out <- s.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return <-out, nil
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs on the loop and must not block.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
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

func (s *Store) apply(fn func(*State) bool) {
	if !fn(&s.state) {
		return
	}
	s.version++
	s.notify(s.snapshot())
}

func (s *Store) snapshot() Snapshot {
	st := s.state
	snap := Snapshot{
		Region:      st.Region,
		ETA:         st.ETA,
		Phase:       st.Phase,
		Query:       st.Query,
		LastError:   st.LastError,
		WeatherHint: st.WeatherHint,
		Version:     s.version,
	}
	if st.Route != nil {
		r := st.Route.Clone()
		snap.Route = &r
		snap.RouteID = st.RouteID
	}
	if st.Destination != nil {
		d := *st.Destination
		snap.Destination = &d
	}
	return snap
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
