package geo

import (
	"fmt"
	"math"
)

// DecodePolyline decodes an encoded polyline string (Google polyline algorithm).
// precision is the number of decimal digits: 5 for "polyline", 6 for "polyline6".
func DecodePolyline(encoded string, precision int) ([]Coordinate, error) {
	factor := math.Pow10(precision)
	line := make([]Coordinate, 0, len(encoded)/4)

	var lat, lon int64
	for i := 0; i < len(encoded); {
		dLat, next, err := decodeValue(encoded, i)
		if err != nil {
			return nil, err
		}
		dLon, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dLat
		lon += dLon
		line = append(line, Coordinate{
			Latitude:  float64(lat) / factor,
			Longitude: float64(lon) / factor,
		})
	}

	return line, nil
}

func decodeValue(s string, i int) (int64, int, error) {
	var result int64
	var shift uint

	for {
		if i >= len(s) {
			return 0, i, fmt.Errorf("polyline truncated at offset %d", i)
		}
		b := int64(s[i]) - 63
		if b < 0 || b > 0x3f {
			return 0, i, fmt.Errorf("polyline invalid byte %q at offset %d", s[i], i)
		}
		i++

		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
