package location

import (
	"fmt"

	"github.com/woozymasta/rfegps/internal/config"
)

// FromConfig builds the configured sensor.
func FromConfig(cfg config.Location) (Sensor, error) {
	switch cfg.Sensor {
	case config.SensorFeed:
		return NewFeedSensor(0, cfg.Authorized), nil
	case config.SensorReplay:
		track, err := LoadTrack(cfg.Track)
		if err != nil {
			return nil, fmt.Errorf("load track %s: %w", cfg.Track, err)
		}
		return NewReplaySensor(track, cfg.Interval, cfg.Loop), nil
	case config.SensorStatic:
		if cfg.Static == nil {
			return nil, fmt.Errorf("static sensor requires a coordinate")
		}
		return NewStaticSensor(*cfg.Static), nil
	case config.SensorNone:
		return DisabledSensor{}, nil
	default:
		return nil, fmt.Errorf("unknown location sensor %q", cfg.Sensor)
	}
}
