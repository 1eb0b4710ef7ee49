// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geo provides the distance and polyline primitives used for map matching.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	EarthRadius    = 6371000.0 // meters
	TruncPrecision = 6
)

// Coordinate represents a WGS84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// ParseCoordinate parses a "lat,lng" string into a Coordinate.
func ParseCoordinate(input string) (Coordinate, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid coordinate: %q", input)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid latitude in %q: %w", input, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid longitude in %q: %w", input, err)
	}
	coord := Coordinate{Lat: lat, Lng: lng}
	if !coord.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate out of range: %q", input)
	}
	return coord, nil
}

// HaversineMeters returns the great-circle distance between a and b in meters.
func HaversineMeters(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// NearestVertexIndex returns the index of the polyline vertex closest to point. This
// matches vertices only, no projection onto segments is performed. It returns -1 for
// an empty polyline.
func NearestVertexIndex(polyline []Coordinate, point Coordinate) int {
	idx := -1
	best := math.Inf(1)
	for i, vertex := range polyline {
		if d := HaversineMeters(vertex, point); d < best {
			best = d
			idx = i
		}
	}
	return idx
}

// PolylineLength sums the distances between consecutive vertices starting at the
// vertex with index from.
func PolylineLength(polyline []Coordinate, from int) float64 {
	if from < 0 {
		from = 0
	}
	total := 0.0
	for i := from; i+1 < len(polyline); i++ {
		total += HaversineMeters(polyline[i], polyline[i+1])
	}
	return total
}

// Truncate cuts x down to the given number of decimal places.
func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
