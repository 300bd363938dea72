package microsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shadowCounts(net *RoadNetwork) []int64 {
	counts := make([]int64, 0, net.NumRoads())
	for _, road := range net.Roads() {
		counts = append(counts, road.ShadowCount())
	}
	return counts
}

func TestShadowImpact(t *testing.T) {
	net := newTestCorridor(t, 6, 300, 1)
	sim := newTestSimulation(t, net, []func(*Config){WithShadowRoads(3)})
	first, _ := net.Road(1)
	second, _ := net.Road(2)
	last, _ := net.Road(6)

	v := placeVehicle(t, sim, first.Lane(0), 100, 0)
	v.atOrigin = true
	v.destRoad = last
	v.setNextRoad()
	require.Equal(t, []RoadID{1, 2, 3, 4, 5, 6}, v.Path())
	assert.Equal(t, second, v.NextRoad())
	assert.Equal(t, []int64{1, 1, 1, 0, 0, 0}, shadowCounts(net))

	v.detachFromRoad()
	v.changeRoad(second.Lane(0), 1)
	assert.Equal(t, []int64{0, 1, 1, 0, 0, 0}, shadowCounts(net))
	assert.Equal(t, 2, v.nShadow)

	v.clearShadowImpact()
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 0}, shadowCounts(net))
	assert.Equal(t, 0, v.nShadow)
}

func TestShadowImpactHorizon(t *testing.T) {
	net := newTestCorridor(t, 6, 300, 1)
	// Partition refresh of 100 ticks covers 30 seconds: one road and a half at free speed
	sim := newTestSimulation(t, net, []func(*Config){WithShadowRoads(3), WithRefreshIntervals(50, 100)})
	first, _ := net.Road(1)
	last, _ := net.Road(6)

	v := placeVehicle(t, sim, first.Lane(0), 100, 0)
	v.atOrigin = true
	v.destRoad = last
	v.setNextRoad()
	assert.Equal(t, []int64{1, 0, 0, 0, 0, 0}, shadowCounts(net))

	// Network refresh of 50 ticks is 15 seconds: re-routing happens on the first two roads
	futures := make([]int64, 0)
	for _, road := range net.Roads() {
		futures = append(futures, road.FutureRoutingCount())
	}
	assert.Equal(t, []int64{1, 1, 0, 0, 0, 0}, futures)

	v.clearShadowImpact()
	for _, road := range net.Roads() {
		assert.Equal(t, int64(0), road.ShadowCount())
		assert.Equal(t, int64(0), road.FutureRoutingCount())
	}
}

func TestShadowImpactMarksCurrentRoad(t *testing.T) {
	net := newTestCorridor(t, 4, 300, 1)
	// Partition refresh of 20 ticks is 6 seconds, shorter than travel time of any road
	sim := newTestSimulation(t, net, []func(*Config){WithShadowRoads(3), WithRefreshIntervals(10, 20)})
	first, _ := net.Road(1)
	last, _ := net.Road(4)
	require.Greater(t, first.TravelTime(), 6.0)

	v := placeVehicle(t, sim, first.Lane(0), 100, 0)
	v.atOrigin = true
	v.destRoad = last
	v.setNextRoad()
	assert.Equal(t, []int64{1, 0, 0, 0}, shadowCounts(net))
	assert.Equal(t, 1, v.nShadow)

	v.clearShadowImpact()
	assert.Equal(t, []int64{0, 0, 0, 0}, shadowCounts(net))
}
