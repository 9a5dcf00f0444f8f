// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/rfegps/internal/geo"

	"gopkg.in/yaml.v3"
)

// Provider kinds.
const (
	KindNominatim = "nominatim"
	KindOSRM      = "osrm"
	KindStatic    = "static"
)

// Location sensor kinds.
const (
	SensorFeed   = "feed"
	SensorReplay = "replay"
	SensorStatic = "static"
	SensorNone   = "none"
)

// DefaultWeatherHint is shown in the status panel.
const DefaultWeatherHint = "Rain expected in 15 min"

// DefaultTimeout bounds each geocoding and directions call.
const DefaultTimeout = 10 * time.Second

// Config represents the root configuration file structure.
type Config struct {
	Region      *geo.Region `yaml:"region,omitempty"`
	Title       string      `yaml:"title,omitempty"`
	WeatherHint string      `yaml:"weather_hint,omitempty"`
	Location    Location    `yaml:"location"`
	Providers   Providers   `yaml:"providers"`
}

// Location configures the position sensor.
type Location struct {
	Static *geo.Coordinate `yaml:"static,omitempty"`

	Sensor     string        `yaml:"sensor,omitempty"`
	Track      string        `yaml:"track,omitempty"` // replay track file
	Interval   time.Duration `yaml:"interval,omitempty"`
	Authorized bool          `yaml:"authorized,omitempty"`
	Loop       bool          `yaml:"loop,omitempty"`
}

// Providers configures the external geocoding and directions services.
type Providers struct {
	Static     *StaticTable  `yaml:"static,omitempty"`
	Geocoder   Endpoint      `yaml:"geocoder"`
	Directions Endpoint      `yaml:"directions"`
	UserAgent  string        `yaml:"user_agent,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// Endpoint is a single HTTP provider.
type Endpoint struct {
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// StaticTable is a fixed provider table for offline runs.
type StaticTable struct {
	Places []StaticPlace `yaml:"places"`
	Routes []StaticRoute `yaml:"routes"`
}

// StaticPlace maps a query to a coordinate.
type StaticPlace struct {
	Query      string         `yaml:"query"`
	Name       string         `yaml:"name,omitempty"`
	Coordinate geo.Coordinate `yaml:"coordinate"`
}

// StaticRoute is returned for any origin when the destination matches.
type StaticRoute struct {
	Destination geo.Coordinate   `yaml:"destination"`
	Polyline    []geo.Coordinate `yaml:"polyline,omitempty"`
	TravelTime  float64          `yaml:"travel_time"` // seconds
	Distance    float64          `yaml:"distance,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

// Defaults fills unset values.
func (c *Config) Defaults() {
	if c.Region == nil {
		r := geo.DefaultRegion
		c.Region = &r
	}
	if c.Title == "" {
		c.Title = "Ride Forecast"
	}
	if c.WeatherHint == "" {
		c.WeatherHint = DefaultWeatherHint
	}

	if c.Location.Sensor == "" {
		c.Location.Sensor = SensorFeed
	}
	if c.Location.Interval <= 0 {
		c.Location.Interval = time.Second
	}

	p := &c.Providers
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.UserAgent == "" {
		p.UserAgent = "rfegps/1.0"
	}
	if p.Geocoder.Kind == "" {
		p.Geocoder.Kind = KindNominatim
	}
	if p.Directions.Kind == "" {
		p.Directions.Kind = KindOSRM
	}
	if p.Geocoder.Kind == KindNominatim && p.Geocoder.BaseURL == "" {
		p.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if p.Directions.Kind == KindOSRM && p.Directions.BaseURL == "" {
		p.Directions.BaseURL = "https://router.project-osrm.org"
	}
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if err := c.Region.Validate(); err != nil {
		return err
	}

	switch c.Location.Sensor {
	case SensorFeed, SensorNone:
	case SensorReplay:
		if c.Location.Track == "" {
			return fmt.Errorf("location.track is required for the replay sensor")
		}
	case SensorStatic:
		if c.Location.Static == nil || !c.Location.Static.Valid() {
			return fmt.Errorf("location.static must be a valid coordinate")
		}
	default:
		return fmt.Errorf("unknown location sensor %q", c.Location.Sensor)
	}

	if k := c.Providers.Geocoder.Kind; k != KindNominatim && k != KindStatic {
		return fmt.Errorf("unknown geocoder kind %q", k)
	}
	if k := c.Providers.Directions.Kind; k != KindOSRM && k != KindStatic {
		return fmt.Errorf("unknown directions kind %q", k)
	}
	if (c.Providers.Geocoder.Kind == KindStatic || c.Providers.Directions.Kind == KindStatic) &&
		c.Providers.Static == nil {
		return fmt.Errorf("providers.static table is required for static providers")
	}

	return nil
}
