// internal/models/location_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoint(t *testing.T) {
	p := NewPoint(7.4916, 5.5320)

	require.NotNil(t, p)
	assert.Equal(t, "Point", p.Type)
	// GeoJSON order: longitude first.
	assert.Equal(t, []float64{7.4916, 5.5320}, p.Coordinates)
}
