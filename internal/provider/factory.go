package provider

import (
	"fmt"
	"net/http"

	"github.com/woozymasta/rfegps/internal/config"
	"github.com/woozymasta/rfegps/internal/geo"
)

// FromConfig builds the configured geocoder and directions providers.
func FromConfig(cfg config.Providers, client *http.Client) (Geocoder, Directions, error) {
	var static *Static
	if cfg.Static != nil {
		static = staticFromConfig(cfg.Static)
	}

	var geocoder Geocoder
	switch cfg.Geocoder.Kind {
	case config.KindNominatim:
		geocoder = NewNominatim(client, cfg.Geocoder.BaseURL, cfg.UserAgent, cfg.Geocoder.APIKey)
	case config.KindStatic:
		if static == nil {
			return nil, nil, fmt.Errorf("static geocoder requires a static table")
		}
		geocoder = static
	default:
		return nil, nil, fmt.Errorf("unknown geocoder kind %q", cfg.Geocoder.Kind)
	}

	var directions Directions
	switch cfg.Directions.Kind {
	case config.KindOSRM:
		directions = NewOSRM(client, cfg.Directions.BaseURL, cfg.UserAgent)
	case config.KindStatic:
		if static == nil {
			return nil, nil, fmt.Errorf("static directions requires a static table")
		}
		directions = static
	default:
		return nil, nil, fmt.Errorf("unknown directions kind %q", cfg.Directions.Kind)
	}

	return geocoder, directions, nil
}

func staticFromConfig(t *config.StaticTable) *Static {
	places := make(map[string][]Place, len(t.Places))
	for _, p := range t.Places {
		name := p.Name
		if name == "" {
			name = p.Query
		}
		places[p.Query] = append(places[p.Query], Place{Name: name, Coordinate: p.Coordinate})
	}

	routes := make([]StaticRoute, 0, len(t.Routes))
	for _, r := range t.Routes {
		routes = append(routes, StaticRoute{
			Destination: r.Destination,
			Route: geo.Route{
				Polyline:           r.Polyline,
				ExpectedTravelTime: r.TravelTime,
				Distance:           r.Distance,
			},
		})
	}

	return NewStatic(places, routes)
}
