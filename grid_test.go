package microsim

import (
	"testing"

	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridNetwork(t *testing.T) {
	net, err := NewGridNetwork(2, 3, 250, 1, testOrigin)
	require.NoError(t, err)
	assert.Len(t, net.Junctions(), 6)
	assert.Equal(t, 2*(2*(3-1)+3*(2-1)), net.NumRoads())

	first, _ := net.Junction(1)
	east, ok := net.Junction(3)
	require.True(t, ok)
	north, ok := net.Junction(4)
	require.True(t, ok)
	assert.InDelta(t, 500, geo.DistanceHaversine(first.Coordinate(), east.Coordinate()), 1.0)
	assert.InDelta(t, 250, geo.DistanceHaversine(first.Coordinate(), north.Coordinate()), 1.0)
	assert.Equal(t, []RoadID{1, 3}, first.OutcomingRoads())

	road, ok := net.Road(1)
	require.True(t, ok)
	assert.Equal(t, JunctionID(1), road.Source())
	assert.Equal(t, JunctionID(2), road.Target())
	assert.InDelta(t, 250, road.Length(), 1.0)
	back, _ := net.Road(2)
	assert.Equal(t, road.Source(), back.Target())
	assert.Equal(t, road.Target(), back.Source())
	assert.NotEmpty(t, road.DownstreamRoads())

	_, err = NewGridNetwork(1, 1, 100, 1, testOrigin)
	assert.Error(t, err)
	_, err = NewGridNetwork(2, 2, 0, 1, testOrigin)
	assert.Error(t, err)
}
