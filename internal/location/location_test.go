package location

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/rfegps/internal/config"
	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/state"
)

func newStore(t *testing.T) (context.Context, *state.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := state.NewLoop(16)
	go loop.Run(ctx)
	return ctx, state.NewStore(loop, geo.DefaultRegion, "")
}

func center(s *state.Store) geo.Coordinate {
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		return geo.Coordinate{}
	}
	return snap.Region.Center
}

func TestSourceLastFixInBatchWins(t *testing.T) {
	ctx, store := newStore(t)
	feed := NewFeedSensor(4, true)
	src := NewSource(feed, store)
	require.NoError(t, src.Start(ctx))

	seen := make(chan geo.Coordinate, 4)
	src.Subscribe(func(c geo.Coordinate) { seen <- c })

	last := geo.Coordinate{Latitude: 30.2672, Longitude: -97.7431}
	require.NoError(t, feed.Push(ctx, []geo.Coordinate{
		{Latitude: 29.0, Longitude: -95.0},
		{Latitude: 29.5, Longitude: -96.0},
		last,
	}))

	select {
	case c := <-seen:
		assert.Equal(t, last, c)
	case <-time.After(time.Second):
		t.Fatal("no center update")
	}
	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, last, snap.Region.Center)
	assert.Equal(t, geo.DefaultRegion.Span, snap.Region.Span)
}

func TestSourceLastReceivedWins(t *testing.T) {
	ctx, store := newStore(t)
	feed := NewFeedSensor(4, true)
	src := NewSource(feed, store)
	require.NoError(t, src.Start(ctx))

	seen := make(chan geo.Coordinate, 4)
	src.Subscribe(func(c geo.Coordinate) { seen <- c })

	// the fix sampled later arrives first; arrival order decides
	newer := geo.Coordinate{Latitude: 2, Longitude: 2}
	older := geo.Coordinate{Latitude: 1, Longitude: 1}
	require.NoError(t, feed.Push(ctx, []geo.Coordinate{newer}))
	require.NoError(t, feed.Push(ctx, []geo.Coordinate{older}))

	for range 2 {
		select {
		case <-seen:
		case <-time.After(time.Second):
			t.Fatal("missing update")
		}
	}
	assert.Equal(t, older, center(store))
}

func TestSourceDropsInvalidFix(t *testing.T) {
	ctx, store := newStore(t)
	feed := NewFeedSensor(4, true)
	src := NewSource(feed, store)
	require.NoError(t, src.Start(ctx))

	seen := make(chan geo.Coordinate, 4)
	src.Subscribe(func(c geo.Coordinate) { seen <- c })

	require.NoError(t, feed.Push(ctx, []geo.Coordinate{{Latitude: math.NaN(), Longitude: 0}}))
	valid := geo.Coordinate{Latitude: 3, Longitude: 3}
	require.NoError(t, feed.Push(ctx, []geo.Coordinate{valid}))

	select {
	case c := <-seen:
		assert.Equal(t, valid, c)
	case <-time.After(time.Second):
		t.Fatal("no center update")
	}
}

func TestSourceSensorFailureKeepsRegion(t *testing.T) {
	ctx, store := newStore(t)
	feed := NewFeedSensor(4, true)
	require.NoError(t, NewSource(feed, store).Start(ctx))

	require.NoError(t, feed.Fail(ctx, errors.New("gps lost")))

	assert.Eventually(t, func() bool { return len(feed.events) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, geo.DefaultRegion.Center, center(store))
}

func TestSourceStartIsIdempotent(t *testing.T) {
	ctx, store := newStore(t)
	feed := NewFeedSensor(4, true)
	src := NewSource(feed, store)

	require.NoError(t, src.Start(ctx))
	// a second Updates call on the feed would fail
	require.NoError(t, src.Start(ctx))
}

func TestSourcePermissionDenied(t *testing.T) {
	ctx, store := newStore(t)
	feed := NewFeedSensor(4, false)
	require.NoError(t, feed.SetAuthorization(ctx, Denied))

	src := NewSource(feed, store)
	assert.ErrorIs(t, src.Start(ctx), ErrPermissionDenied)
	assert.NoError(t, src.Start(ctx))

	assert.ErrorIs(t, feed.Push(ctx, []geo.Coordinate{{Latitude: 1, Longitude: 1}}), ErrPermissionDenied)
	assert.Equal(t, geo.DefaultRegion.Center, center(store))
}

func TestSourceServicesDisabled(t *testing.T) {
	ctx, store := newStore(t)
	err := NewSource(DisabledSensor{}, store).Start(ctx)
	assert.ErrorIs(t, err, ErrServicesDisabled)
	assert.Equal(t, geo.DefaultRegion.Center, center(store))
}

func TestFeedFirstFixGrants(t *testing.T) {
	ctx := context.Background()
	feed := NewFeedSensor(4, false)
	assert.Equal(t, NotDetermined, feed.Authorization())

	require.NoError(t, feed.Push(ctx, []geo.Coordinate{{Latitude: 1, Longitude: 1}}))
	assert.Equal(t, Authorized, feed.Authorization())

	ev := <-feed.events
	require.NotNil(t, ev.Authorization)
	assert.Equal(t, Authorized, *ev.Authorization)
	ev = <-feed.events
	assert.Len(t, ev.Locations, 1)

	_, err := feed.Updates(ctx)
	require.NoError(t, err)
	_, err = feed.Updates(ctx)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestFeedGrantNeedsQueuedEvent(t *testing.T) {
	feed := NewFeedSensor(1, false)
	require.NoError(t, feed.Fail(context.Background(), errors.New("gps glitch")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := feed.Push(ctx, []geo.Coordinate{{Latitude: 1, Longitude: 1}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, NotDetermined, feed.Authorization())

	ev := <-feed.events
	assert.Error(t, ev.Err)
	assert.Empty(t, feed.events)
}

func TestStaticSensor(t *testing.T) {
	ctx, store := newStore(t)
	at := geo.Coordinate{Latitude: 29.7, Longitude: -95.3}
	src := NewSource(NewStaticSensor(at), store)
	require.NoError(t, src.Start(ctx))

	assert.Eventually(t, func() bool { return center(store) == at }, time.Second, 5*time.Millisecond)
}

func TestReplaySensor(t *testing.T) {
	track := &Track{Points: []geo.Coordinate{
		{Latitude: 1, Longitude: 1},
		{Latitude: 2, Longitude: 2},
		{Latitude: 3, Longitude: 3},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := NewReplaySensor(track, time.Millisecond, false).Updates(ctx)
	require.NoError(t, err)

	var got []geo.Coordinate
	for ev := range updates {
		got = append(got, ev.Locations...)
	}
	assert.Equal(t, track.Points, got)
}

func TestParseTrack(t *testing.T) {
	native, err := ParseTrack([]byte(`
name: commute
points:
  - {latitude: 29.76, longitude: -95.37}
  - {latitude: 29.80, longitude: -95.40}
`))
	require.NoError(t, err)
	assert.Equal(t, "commute", native.Name)
	assert.Len(t, native.Points, 2)

	gj, err := ParseTrack([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[-95.37,29.76],[-95.40,29.80]]},"properties":{}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-95.5,29.9]},"properties":{}}
	]}`))
	require.NoError(t, err)
	require.Len(t, gj.Points, 3)
	assert.Equal(t, geo.Coordinate{Latitude: 29.76, Longitude: -95.37}, gj.Points[0])
	assert.Equal(t, geo.Coordinate{Latitude: 29.9, Longitude: -95.5}, gj.Points[2])

	_, err = ParseTrack([]byte(`points: []`))
	assert.Error(t, err)

	fc := native.FeatureCollection()
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Equal(t, "commute", fc.Features[0].Properties["name"])
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(config.Location{Sensor: config.SensorFeed})
	require.NoError(t, err)
	assert.IsType(t, &FeedSensor{}, s)

	s, err = FromConfig(config.Location{Sensor: config.SensorNone})
	require.NoError(t, err)
	assert.Equal(t, "none", s.Name())

	path := filepath.Join(t.TempDir(), "track.yaml")
	require.NoError(t, os.WriteFile(path, []byte("points:\n  - {latitude: 1, longitude: 2}\n"), 0o644))
	s, err = FromConfig(config.Location{Sensor: config.SensorReplay, Track: path})
	require.NoError(t, err)
	assert.Equal(t, "replay", s.Name())

	_, err = FromConfig(config.Location{Sensor: config.SensorStatic})
	assert.Error(t, err)
}
