package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	// One degree of longitude at the equator.
	assert.InDelta(t, 111195, Distance(0, 0, 0, 1), 200)
	assert.InDelta(t, 0, Distance(12.97, 77.59, 12.97, 77.59), 0.001)
}

func TestWithinProximity(t *testing.T) {
	instructorLat, instructorLon := 12.9716, 77.5946

	ok, dist := WithinProximity(instructorLat+0.0005, instructorLon, instructorLat, instructorLon, 100)
	assert.True(t, ok, "55m away should pass a 100m bound (got %.0fm)", dist)

	ok, dist = WithinProximity(instructorLat+0.002, instructorLon, instructorLat, instructorLon, 100)
	assert.False(t, ok, "220m away should fail a 100m bound (got %.0fm)", dist)
}
