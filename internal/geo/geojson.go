package geo

// GeoJSONFeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type" yaml:"type"`
	Features []GeoJSONFeature `json:"features" yaml:"features"`
}

// GeoJSONFeature represents a single geographic feature with geometry and properties.
type GeoJSONFeature struct {
	Properties map[string]any  `json:"properties" yaml:"properties"`
	Type       string          `json:"type" yaml:"type"`
	Geometry   GeoJSONGeometry `json:"geometry" yaml:"geometry"`
}

// GeoJSONGeometry represents the geometry of a feature.
// Coordinates is [lon, lat] for a Point and [][lon, lat] for a LineString.
type GeoJSONGeometry struct {
	Type        string `json:"type" yaml:"type"`
	Coordinates any    `json:"coordinates" yaml:"coordinates"`
}

// PointFeature builds a Point feature.
func PointFeature(c Coordinate, props map[string]any) GeoJSONFeature {
	return GeoJSONFeature{
		Type: "Feature",
		Geometry: GeoJSONGeometry{
			Type:        "Point",
			Coordinates: []float64{c.Longitude, c.Latitude},
		},
		Properties: props,
	}
}

// LineFeature builds a LineString feature.
func LineFeature(line []Coordinate, props map[string]any) GeoJSONFeature {
	coords := make([][]float64, 0, len(line))
	for _, c := range line {
		coords = append(coords, []float64{c.Longitude, c.Latitude})
	}

	return GeoJSONFeature{
		Type: "Feature",
		Geometry: GeoJSONGeometry{
			Type:        "LineString",
			Coordinates: coords,
		},
		Properties: props,
	}
}

// RouteFeatureCollection renders a route with its endpoints.
func RouteFeatureCollection(r Route, origin, destination Coordinate) GeoJSONFeatureCollection {
	return GeoJSONFeatureCollection{
		Type: "FeatureCollection",
		Features: []GeoJSONFeature{
			LineFeature(r.Polyline, map[string]any{
				"type":                 "route",
				"expected_travel_time": r.ExpectedTravelTime,
				"distance":             r.Distance,
			}),
			PointFeature(origin, map[string]any{"type": "origin"}),
			PointFeature(destination, map[string]any{"type": "destination"}),
		},
	}
}
