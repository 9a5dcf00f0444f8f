package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/woozymasta/rfegps/internal/geo"
)

// Internal structures for JSON parsing
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Nominatim is an OpenStreetMap Nominatim forward geocoder.
type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
	apiKey    string
	limit     int
}

// NewNominatim creates a geocoder for the given search endpoint base URL.
func NewNominatim(client *http.Client, baseURL, userAgent, apiKey string) *Nominatim {
	return &Nominatim{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		apiKey:    apiKey,
		limit:     5,
	}
}

// Name returns the provider name.
func (n *Nominatim) Name() string { return "nominatim" }

// Geocode resolves query into candidates in provider rank order.
func (n *Nominatim) Geocode(ctx context.Context, query string) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(n.limit))
	if n.apiKey != "" {
		params.Set("key", n.apiKey)
	}

	var found []nominatimPlace
	status, err := getJSON(ctx, n.client, n.baseURL+"/search?"+params.Encode(), n.userAgent, &found, false)
	if err != nil {
		return nil, &Error{Provider: n.Name(), Op: "geocode", Kind: ErrGeocodeProvider, StatusCode: status, Err: err}
	}

	places := make([]Place, 0, len(found))
	for _, p := range found {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		c := geo.Coordinate{Latitude: lat, Longitude: lon}
		if !c.Valid() {
			continue
		}
		places = append(places, Place{Name: p.DisplayName, Coordinate: c})
	}

	if len(places) == 0 {
		return nil, &Error{Provider: n.Name(), Op: "geocode", Kind: ErrGeocodeNotFound}
	}

	return places, nil
}
