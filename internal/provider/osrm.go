package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/woozymasta/rfegps/internal/geo"
)

// Internal structures for JSON parsing
type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// osrmProfiles maps transport modes to OSRM profiles.
var osrmProfiles = map[TransportMode]string{
	Automobile: "driving",
	Walking:    "foot",
	Cycling:    "bike",
}

// OSRM is a directions provider backed by an OSRM HTTP server.
type OSRM struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewOSRM creates a directions provider for the given server base URL.
func NewOSRM(client *http.Client, baseURL, userAgent string) *OSRM {
	return &OSRM{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Name returns the provider name.
func (o *OSRM) Name() string { return "osrm" }

// Directions returns the candidate routes in provider order.
func (o *OSRM) Directions(ctx context.Context, origin, destination geo.Coordinate, mode TransportMode) ([]geo.Route, error) {
	profile, ok := osrmProfiles[mode]
	if !ok {
		return nil, &Error{Provider: o.Name(), Op: "route", Kind: ErrRouteProvider, Err: fmt.Errorf("unsupported transport mode %q", mode)}
	}

	params := url.Values{}
	params.Set("overview", "full")
	params.Set("geometries", "polyline6")
	params.Set("alternatives", "true")

	u := fmt.Sprintf("%s/route/v1/%s/%s;%s?%s",
		o.baseURL, profile, osrmCoordinate(origin), osrmCoordinate(destination), params.Encode())

	var resp osrmResponse
	status, err := getJSON(ctx, o.client, u, o.userAgent, &resp, true)
	if err != nil {
		return nil, &Error{Provider: o.Name(), Op: "route", Kind: ErrRouteProvider, StatusCode: status, Err: err}
	}

	switch resp.Code {
	case "Ok":
	case "NoRoute", "NoSegment":
		var cause error
		if resp.Message != "" {
			cause = errors.New(resp.Message)
		}
		return nil, &Error{Provider: o.Name(), Op: "route", Kind: ErrRouteNotFound, StatusCode: status, Err: cause}
	default:
		return nil, &Error{Provider: o.Name(), Op: "route", Kind: ErrRouteProvider, StatusCode: status,
			Err: fmt.Errorf("%s: %s", resp.Code, resp.Message)}
	}

	if len(resp.Routes) == 0 {
		return nil, &Error{Provider: o.Name(), Op: "route", Kind: ErrRouteNotFound, StatusCode: status}
	}

	routes := make([]geo.Route, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		line, err := geo.DecodePolyline(r.Geometry, 6)
		if err != nil {
			return nil, &Error{Provider: o.Name(), Op: "route", Kind: ErrRouteProvider, StatusCode: status, Err: err}
		}
		// routes without geometry cannot be drawn
		if len(line) == 0 {
			continue
		}
		routes = append(routes, geo.Route{
			Polyline:           line,
			ExpectedTravelTime: r.Duration,
			Distance:           r.Distance,
		})
	}
	if len(routes) == 0 {
		return nil, &Error{Provider: o.Name(), Op: "route", Kind: ErrRouteProvider, StatusCode: status,
			Err: errors.New("routes have no geometry")}
	}

	return routes, nil
}

// osrmCoordinate formats lon,lat as OSRM expects.
func osrmCoordinate(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Longitude, 'f', 6, 64) + "," + strconv.FormatFloat(c.Latitude, 'f', 6, 64)
}
