package utils

import (
	"testing"

	"abiahub/internal/models"

	"github.com/stretchr/testify/assert"
)

func point(lng, lat float64) models.Location {
	return models.Location{Type: "Point", Coordinates: []float64{lng, lat}}
}

func TestCalculateDistance(t *testing.T) {
	// Umuahia to Aba is roughly 48 km as the crow flies.
	umuahia := point(7.4906, 5.5320)
	aba := point(7.3667, 5.1167)

	d := CalculateDistance(umuahia, aba)
	assert.InDelta(t, 48, d, 3)

	// Symmetric.
	assert.InDelta(t, d, CalculateDistance(aba, umuahia), 0.0001)
}

func TestCalculateDistanceSamePoint(t *testing.T) {
	p := point(7.4906, 5.5320)
	assert.InDelta(t, 0, CalculateDistance(p, p), 0.0001)
}

func TestCalculateDistanceShortRange(t *testing.T) {
	// Two points ~0.01 degrees of latitude apart: about 1.11 km.
	a := point(7.49, 5.53)
	b := point(7.49, 5.54)
	assert.InDelta(t, 1.11, CalculateDistance(a, b), 0.05)
}
