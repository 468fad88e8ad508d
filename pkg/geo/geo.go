// Package geo holds the plain coordinate values exchanged with the
// remote map: geographic positions, pixel points and bounding boxes.
// No projection math lives here; the remote counterpart owns that.
package geo

import "fmt"

// LatLng is a geographic position in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
	Alt float64 `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// NewLatLng returns a LatLng without altitude.
func NewLatLng(lat, lng float64) LatLng {
	return LatLng{Lat: lat, Lng: lng}
}

// Valid reports whether the coordinate is within the WGS84 ranges.
func (l LatLng) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

func (l LatLng) String() string {
	return fmt.Sprintf("LatLng(%g, %g)", l.Lat, l.Lng)
}

// Point is a pixel coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("Point(%g, %g)", p.X, p.Y)
}

// Bounds is a rectangular geographic area.
type Bounds struct {
	SouthWest LatLng `json:"southWest" yaml:"southWest"`
	NorthEast LatLng `json:"northEast" yaml:"northEast"`
}

// BoundsOf returns the smallest Bounds containing every position.
// An empty input yields the zero Bounds.
func BoundsOf(points ...LatLng) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b
}

// Extend returns b grown to include p.
func (b Bounds) Extend(p LatLng) Bounds {
	b.SouthWest.Lat = min(b.SouthWest.Lat, p.Lat)
	b.SouthWest.Lng = min(b.SouthWest.Lng, p.Lng)
	b.NorthEast.Lat = max(b.NorthEast.Lat, p.Lat)
	b.NorthEast.Lng = max(b.NorthEast.Lng, p.Lng)
	return b
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Center returns the arithmetic midpoint of b.
func (b Bounds) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}
