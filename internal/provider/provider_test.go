package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/rfegps/internal/config"
	"github.com/woozymasta/rfegps/internal/geo"
)

const austinPolyline6 = "_xlww@nc|{tD_~rMnl~cA_{hOv|zjA"

var (
	houston = geo.Coordinate{Latitude: 29.7604, Longitude: -95.3698}
	austin  = geo.Coordinate{Latitude: 30.2672, Longitude: -97.7431}
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestNominatimGeocode(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Austin, TX", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "rfegps-test", r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`[
			{"lat":"30.2672","lon":"-97.7431","display_name":"Austin, Travis County, Texas"},
			{"lat":"bad","lon":"0","display_name":"broken"},
			{"lat":"30.5","lon":"-97.5","display_name":"Austin area"}
		]`))
	})

	g := NewNominatim(NewHTTPClient(time.Second), srv.URL+"/", "rfegps-test", "")
	places, err := g.Geocode(context.Background(), "Austin, TX")
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, austin, places[0].Coordinate)
	assert.Equal(t, "Austin, Travis County, Texas", places[0].Name)
}

func TestNominatimNotFound(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := NewNominatim(NewHTTPClient(time.Second), srv.URL, "", "").Geocode(context.Background(), "zzzzinvalid")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeocodeNotFound)
	assert.NotErrorIs(t, err, ErrGeocodeProvider)
}

func TestNominatimProviderErrors(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := NewNominatim(NewHTTPClient(time.Second), srv.URL, "", "").Geocode(context.Background(), "Austin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeocodeProvider)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, "nominatim", perr.Provider)

	garbage := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	_, err = NewNominatim(NewHTTPClient(time.Second), garbage.URL, "", "").Geocode(context.Background(), "Austin")
	assert.ErrorIs(t, err, ErrGeocodeProvider)
}

func TestNominatimHonoursContext(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewNominatim(NewHTTPClient(0), srv.URL, "", "").Geocode(ctx, "Austin")
	assert.ErrorIs(t, err, ErrGeocodeProvider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOSRMDirections(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-95.369800,29.760400;-97.743100,30.267200", r.URL.Path)
		assert.Equal(t, "polyline6", r.URL.Query().Get("geometries"))

		_, _ = w.Write([]byte(`{"code":"Ok","routes":[
			{"geometry":"` + austinPolyline6 + `","duration":9000,"distance":266000},
			{"geometry":"","duration":8000,"distance":300000}
		]}`))
	})

	routes, err := NewOSRM(NewHTTPClient(time.Second), srv.URL, "").Directions(context.Background(), houston, austin, Automobile)
	require.NoError(t, err)
	require.Len(t, routes, 1)

	assert.Equal(t, 9000.0, routes[0].ExpectedTravelTime)
	assert.Equal(t, 266000.0, routes[0].Distance)
	require.Len(t, routes[0].Polyline, 3)
	assert.InDelta(t, houston.Latitude, routes[0].Polyline[0].Latitude, 1e-9)
	assert.InDelta(t, austin.Longitude, routes[0].Polyline[2].Longitude, 1e-9)
}

func TestOSRMEmptyGeometry(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":"","duration":60}]}`))
	})

	routes, err := NewOSRM(NewHTTPClient(time.Second), srv.URL, "").Directions(context.Background(), houston, austin, Automobile)
	assert.Empty(t, routes)
	assert.ErrorIs(t, err, ErrRouteProvider)
}

func TestOSRMNoRoute(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	})

	_, err := NewOSRM(NewHTTPClient(time.Second), srv.URL, "").Directions(context.Background(), houston, austin, Automobile)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRouteNotFound)
	assert.Contains(t, err.Error(), "Impossible route")
}

func TestOSRMProviderErrors(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"InvalidQuery","message":"Query string malformed"}`))
	})

	_, err := NewOSRM(NewHTTPClient(time.Second), srv.URL, "").Directions(context.Background(), houston, austin, Automobile)
	assert.ErrorIs(t, err, ErrRouteProvider)

	html := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	})
	_, err = NewOSRM(NewHTTPClient(time.Second), html.URL, "").Directions(context.Background(), houston, austin, Automobile)
	assert.ErrorIs(t, err, ErrRouteProvider)

	_, err = NewOSRM(NewHTTPClient(time.Second), html.URL, "").Directions(context.Background(), houston, austin, TransportMode("boat"))
	assert.ErrorIs(t, err, ErrRouteProvider)
}

func TestStatic(t *testing.T) {
	s := NewStatic(
		map[string][]Place{"Austin, TX": {{Name: "Austin", Coordinate: austin}}},
		[]StaticRoute{{Destination: austin, Route: geo.Route{ExpectedTravelTime: 9000}}},
	)

	places, err := s.Geocode(context.Background(), "  austin,   tx ")
	require.NoError(t, err)
	assert.Equal(t, austin, places[0].Coordinate)

	_, err = s.Geocode(context.Background(), "zzzzinvalid")
	assert.ErrorIs(t, err, ErrGeocodeNotFound)

	routes, err := s.Directions(context.Background(), houston, austin, Automobile)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, []geo.Coordinate{houston, austin}, routes[0].Polyline)
	assert.Equal(t, 9000.0, routes[0].ExpectedTravelTime)
	assert.Greater(t, routes[0].Distance, 0.0)

	_, err = s.Directions(context.Background(), austin, houston, Automobile)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Config{}
	cfg.Defaults()

	g, d, err := FromConfig(cfg.Providers, NewHTTPClient(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "nominatim", g.Name())
	assert.Equal(t, "osrm", d.Name())

	cfg.Providers.Geocoder.Kind = config.KindStatic
	_, _, err = FromConfig(cfg.Providers, nil)
	assert.Error(t, err)

	cfg.Providers.Static = &config.StaticTable{
		Places: []config.StaticPlace{{Query: "Austin, TX", Coordinate: austin}},
	}
	g, _, err = FromConfig(cfg.Providers, nil)
	require.NoError(t, err)
	places, err := g.Geocode(context.Background(), "austin, tx")
	require.NoError(t, err)
	assert.Equal(t, "Austin, TX", places[0].Name)
}
