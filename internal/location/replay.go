package location

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/rfegps/internal/geo"

	"gopkg.in/yaml.v3"
)

// Track is a recorded sequence of fixes.
type Track struct {
	Name   string           `yaml:"name,omitempty" json:"name,omitempty"`
	Points []geo.Coordinate `yaml:"points" json:"points"`
}

// LoadTrack reads a track file. Both the native YAML layout and GeoJSON
// (LineString or Point features) are accepted.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTrack(data)
}

// ParseTrack decodes a track from YAML or GeoJSON bytes.
func ParseTrack(data []byte) (*Track, error) {
	var probe struct {
		Type string `yaml:"type"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse track: %w", err)
	}

	var t Track
	if probe.Type == "FeatureCollection" {
		var fc struct {
			Features []struct {
				Geometry struct {
					Type        string    `yaml:"type"`
					Coordinates yaml.Node `yaml:"coordinates"`
				} `yaml:"geometry"`
			} `yaml:"features"`
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse track: %w", err)
		}

		for _, f := range fc.Features {
			switch f.Geometry.Type {
			case "LineString":
				var coords [][]float64
				if err := f.Geometry.Coordinates.Decode(&coords); err != nil {
					return nil, fmt.Errorf("parse track: %w", err)
				}
				for _, c := range coords {
					if len(c) < 2 {
						continue
					}
					t.Points = append(t.Points, geo.Coordinate{Latitude: c[1], Longitude: c[0]})
				}
			case "Point":
				var c []float64
				if err := f.Geometry.Coordinates.Decode(&c); err != nil {
					return nil, fmt.Errorf("parse track: %w", err)
				}
				if len(c) >= 2 {
					t.Points = append(t.Points, geo.Coordinate{Latitude: c[1], Longitude: c[0]})
				}
			}
		}
	} else if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse track: %w", err)
	}

	if len(t.Points) == 0 {
		return nil, fmt.Errorf("track has no points")
	}

	return &t, nil
}

// FeatureCollection renders the track as GeoJSON.
func (t *Track) FeatureCollection() geo.GeoJSONFeatureCollection {
	props := map[string]any{"type": "track"}
	if t.Name != "" {
		props["name"] = t.Name
	}
	return geo.GeoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: []geo.GeoJSONFeature{geo.LineFeature(t.Points, props)},
	}
}

// ReplaySensor replays a track, one fix per interval.
type ReplaySensor struct {
	track    *Track
	interval time.Duration
	loop     bool
}

// NewReplaySensor creates a replay of track. With loop set it restarts
// from the first point after the last one.
func NewReplaySensor(track *Track, interval time.Duration, loop bool) *ReplaySensor {
	if interval <= 0 {
		interval = time.Second
	}
	return &ReplaySensor{track: track, interval: interval, loop: loop}
}

// Name returns the sensor name.
func (r *ReplaySensor) Name() string { return "replay" }

// RequestAuthorization always grants.
func (r *ReplaySensor) RequestAuthorization(context.Context) (Authorization, error) {
	return Authorized, nil
}

// Updates starts the replay.
func (r *ReplaySensor) Updates(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)

	go func() {
		defer close(out)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			for _, p := range r.track.Points {
				select {
				case out <- Event{Locations: []geo.Coordinate{p}}:
				case <-ctx.Done():
					return
				}

				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
			if !r.loop {
				return
			}
		}
	}()

	return out, nil
}
