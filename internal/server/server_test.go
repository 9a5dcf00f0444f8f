package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/rfegps/internal/geo"
	"github.com/woozymasta/rfegps/internal/location"
	"github.com/woozymasta/rfegps/internal/mapview"
	"github.com/woozymasta/rfegps/internal/provider"
	"github.com/woozymasta/rfegps/internal/route"
	"github.com/woozymasta/rfegps/internal/state"
)

var (
	houston = geo.Coordinate{Latitude: 29.7604, Longitude: -95.3698}
	austin  = geo.Coordinate{Latitude: 30.2672, Longitude: -97.7431}
	dallas  = geo.Coordinate{Latitude: 32.7767, Longitude: -96.7970}
)

type fixture struct {
	srv   *ServerContext
	store *state.Store
	feed  *location.FeedSensor
}

func newFixture(t *testing.T, withFeed bool) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := state.NewLoop(16)
	go loop.Run(ctx)
	store := state.NewStore(loop, geo.DefaultRegion, "Rain expected in 15 min")

	static := provider.NewStatic(
		map[string][]provider.Place{"Austin, TX": {{Name: "Austin", Coordinate: austin}}},
		[]provider.StaticRoute{{Destination: austin, Route: geo.Route{ExpectedTravelTime: 9000}}},
	)
	orch := route.New(store, static, static, route.WithContext(ctx))

	var feed *location.FeedSensor
	if withFeed {
		feed = location.NewFeedSensor(4, false)
		require.NoError(t, location.NewSource(feed, store).Start(ctx))
	}

	srv, err := NewServerContext("Ride Forecast", store, orch, feed)
	require.NoError(t, err)
	srv.Preview = mapview.PreviewOptions{Size: 64}

	return &fixture{srv: srv, store: store, feed: feed}
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) view(t *testing.T) mapview.View {
	t.Helper()
	rec := f.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v mapview.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleStateInitial(t *testing.T) {
	f := newFixture(t, false)

	v := f.view(t)
	assert.Equal(t, state.DefaultETA, v.ETA)
	assert.Equal(t, "Ride Forecast", v.Title)
	assert.Equal(t, "Rain expected in 15 min", v.WeatherHint)
	assert.Equal(t, houston, v.Region.Center)
	assert.Nil(t, v.Route)
	assert.Nil(t, v.Fit)
}

func TestHandleDestinationWait(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/api/destination?wait=true", `{"destination":"Austin, TX"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var v mapview.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "ETA: 150 min", v.ETA)
	require.NotNil(t, v.Route)
	assert.Equal(t, []geo.Coordinate{houston, austin}, v.Route.Polyline)
	require.NotNil(t, v.Fit)
	assert.InDelta(t, (houston.Latitude+austin.Latitude)/2, v.Fit.Center.Latitude, 1e-9)
}

func TestHandleDestinationNotFound(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/api/destination?wait=true", `{"destination":"zzzzinvalid"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, route.KindGeocodeNotFound, resp.Kind)

	v := f.view(t)
	assert.Equal(t, state.DefaultETA, v.ETA)
	assert.Nil(t, v.Route)
}

func TestHandleDestinationBadRequest(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/destination", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/destination", `{"destination":"  "}`).Code)
}

func TestHandleDestinationAsync(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/api/destination", `{"destination":"Austin, TX"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		return f.view(t).ETA == "ETA: 150 min"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouteEndpointsWithoutRoute(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/route.geojson", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/route.webp", "").Code)
}

func TestRouteEndpoints(t *testing.T) {
	f := newFixture(t, false)
	require.Equal(t, http.StatusOK,
		f.do(http.MethodPost, "/api/destination?wait=true", `{"destination":"Austin, TX"}`).Code)

	rec := f.do(http.MethodGet, "/api/route.geojson", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc geo.GeoJSONFeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.NotEmpty(t, fc.Features)

	rec = f.do(http.MethodGet, "/api/route.webp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", string(rec.Body.Bytes()[:4]))

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, http.StatusNotModified,
		f.do(http.MethodGet, "/api/route.webp", "", "If-None-Match", etag).Code)
}

func TestHandleLocationMovesRegion(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(http.MethodPost, "/api/location",
		`{"locations":[{"latitude":1,"longitude":1},{"latitude":32.7767,"longitude":-96.797}]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Eventually(t, func() bool {
		return f.view(t).Region.Center == dallas
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, location.Authorized, f.feed.Authorization())
}

func TestHandleLocationDenied(t *testing.T) {
	f := newFixture(t, true)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/location", `{"authorized":false}`).Code)

	rec := f.do(http.MethodPost, "/api/location", `{"locations":[{"latitude":32.7767,"longitude":-96.797}]}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, route.KindPermissionDenied, resp.Kind)
	assert.Equal(t, houston, f.view(t).Region.Center)
}

func TestHandleLocationWithoutFeed(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodPost, "/api/location", `{"locations":[{"latitude":1,"longitude":1}]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleIndex(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Ride Forecast")

	etag := rec.Header().Get("ETag")
	assert.Equal(t, http.StatusNotModified, f.do(http.MethodGet, "/", "", "If-None-Match", etag).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/missing", "").Code)

	rec = f.do(http.MethodGet, "/favicon.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
}

func TestHandleEvents(t *testing.T) {
	f := newFixture(t, false)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() mapview.View {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var v mapview.View
				require.NoError(t, json.Unmarshal([]byte(data), &v))
				return v
			}
		}
	}

	assert.Equal(t, state.DefaultETA, next().ETA)

	f.srv.Submitter.SubmitAsync("Austin, TX")

	var last mapview.View
	for last.ETA != "ETA: 150 min" {
		last = next()
	}
	require.NotNil(t, last.Route)
}
