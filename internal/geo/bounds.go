package geo

// minSpan keeps a fitted region valid for single-point or axis-aligned lines.
const minSpan = 0.005

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	Min Coordinate `json:"min"`
	Max Coordinate `json:"max"`
}

// BoundsOf returns the bounding box of a polyline.
// ok is false for an empty polyline.
func BoundsOf(line []Coordinate) (b Bounds, ok bool) {
	if len(line) == 0 {
		return Bounds{}, false
	}

	b = Bounds{Min: line[0], Max: line[0]}
	for _, c := range line[1:] {
		b.Min.Latitude = min(b.Min.Latitude, c.Latitude)
		b.Min.Longitude = min(b.Min.Longitude, c.Longitude)
		b.Max.Latitude = max(b.Max.Latitude, c.Latitude)
		b.Max.Longitude = max(b.Max.Longitude, c.Longitude)
	}

	return b, true
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Coordinate {
	return Coordinate{
		Latitude:  (b.Min.Latitude + b.Max.Latitude) / 2,
		Longitude: (b.Min.Longitude + b.Max.Longitude) / 2,
	}
}

// Region returns the viewport that shows the whole box.
// padding is a fraction of the box size added on every side (0.1 = 10%).
func (b Bounds) Region(padding float64) Region {
	latDelta := (b.Max.Latitude - b.Min.Latitude) * (1 + 2*padding)
	lonDelta := (b.Max.Longitude - b.Min.Longitude) * (1 + 2*padding)

	return Region{
		Center: b.Center(),
		Span: Span{
			LatitudeDelta:  max(latDelta, minSpan),
			LongitudeDelta: max(lonDelta, minSpan),
		},
	}
}
