package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundsOf(t *testing.T) {
	b := BoundsOf(NewLatLng(10, 20), NewLatLng(-5, 30), NewLatLng(2, -1))

	assert.Equal(t, NewLatLng(-5, -1), b.SouthWest)
	assert.Equal(t, NewLatLng(10, 30), b.NorthEast)
	assert.True(t, b.Contains(NewLatLng(0, 0)))
	assert.False(t, b.Contains(NewLatLng(11, 0)))
	assert.Equal(t, NewLatLng(2.5, 14.5), b.Center())

	assert.Equal(t, Bounds{}, BoundsOf())
}

func TestLatLngValid(t *testing.T) {
	tests := []struct {
		name string
		in   LatLng
		want bool
	}{
		{"origin", NewLatLng(0, 0), true},
		{"corner", NewLatLng(-90, 180), true},
		{"lat too high", NewLatLng(91, 0), false},
		{"lng too low", NewLatLng(0, -181), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Valid())
		})
	}
}
