package geo

import "math"

// MaxLat is the latitude limit of the Web Mercator projection.
const MaxLat = 85.05112878

// Project maps a coordinate to normalized Web Mercator space.
// x grows eastwards and y grows southwards, both in [0..1].
func Project(c Coordinate) (x, y float64) {
	lat := c.Latitude
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	// lon: [-180..180] -> x: [0..1]
	x = (c.Longitude + 180.0) / 360.0

	// Forward Mercator projection, mercatorY: [-PI..PI] -> y: [1..0]
	latRad := lat * (math.Pi / 180.0)
	mercatorY := math.Log(math.Tan(math.Pi/4 + latRad/2))
	y = 0.5 - mercatorY/(2.0*math.Pi)

	return x, y
}

// Unproject is the inverse of Project.
func Unproject(x, y float64) Coordinate {
	lon := x*360.0 - 180.0

	mercatorY := (0.5 - y) * 2.0 * math.Pi
	latRad := (2.0 * math.Atan(math.Exp(mercatorY))) - (math.Pi * 0.5)

	lat := latRad * (180.0 / math.Pi)
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	return Coordinate{Latitude: lat, Longitude: lon}
}
