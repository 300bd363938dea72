package microsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaneOrdering(t *testing.T) {
	net := newTestCorridor(t, 2, 300, 2)
	sim := newTestSimulation(t, net, nil)
	road, _ := net.Road(1)
	lane := road.Lane(0)

	far := placeVehicle(t, sim, lane, 250, 0)
	near := placeVehicle(t, sim, lane, 20, 0)
	middle := placeVehicle(t, sim, lane, 120, 0)

	assert.Equal(t, []VehicleID{near.ID, middle.ID, far.ID}, laneOrder(sim, lane))
	assert.Equal(t, 3, lane.NumVehicles())
	assert.Equal(t, near.ID, lane.FirstVehicle())
	assert.Equal(t, far.ID, lane.LastVehicle())
	assert.Equal(t, near.ID, middle.leading)
	assert.Equal(t, far.ID, middle.trailing)

	order := sim.fleet.macroOrder(road, nil)
	require.Len(t, order, 3)
	assert.Equal(t, near.ID, order[0].ID)
	assert.Equal(t, far.ID, order[2].ID)

	sim.fleet.removeFromLane(middle)
	assert.Equal(t, []VehicleID{near.ID, far.ID}, laneOrder(sim, lane))
	assert.Equal(t, far.ID, near.trailing)
	assert.Equal(t, near.ID, far.leading)
	assert.Nil(t, middle.lane)
	assert.Equal(t, 2, lane.NumVehicles())
}

func TestLanePositionHint(t *testing.T) {
	net := newTestCorridor(t, 2, 300, 1)
	sim := newTestSimulation(t, net, nil)
	road, _ := net.Road(1)
	lane := road.Lane(0)

	a := placeVehicle(t, sim, lane, 50, 0)
	b := placeVehicle(t, sim, lane, 150, 0)

	lead, lag := sim.fleet.lanePosition(lane, 100, a.ID, b.ID)
	assert.Equal(t, a.ID, lead)
	assert.Equal(t, b.ID, lag)

	// Wrong hint is ignored
	lead, lag = sim.fleet.lanePosition(lane, 200, a.ID, b.ID)
	assert.Equal(t, b.ID, lead)
	assert.Equal(t, NoVehicle, lag)
}

func TestMacroListAdvance(t *testing.T) {
	net := newTestCorridor(t, 2, 300, 2)
	sim := newTestSimulation(t, net, nil)
	road, _ := net.Road(1)

	front := placeVehicle(t, sim, road.Lane(0), 100, 0)
	back := placeVehicle(t, sim, road.Lane(1), 150, 0)
	assert.Equal(t, front.ID, road.FirstVehicle())

	back.distance = 50
	sim.fleet.advanceInMacroList(back)
	assert.Equal(t, back.ID, road.FirstVehicle())
	assert.Equal(t, front.ID, road.LastVehicle())
	assert.Equal(t, front.ID, back.macroTrailing)
	assert.Equal(t, back.ID, front.macroLeading)
}

func TestClaimEntry(t *testing.T) {
	net := newTestCorridor(t, 2, 300, 1)
	road, _ := net.Road(1)
	lane := road.Lane(0)

	assert.True(t, lane.claimEntry(5))
	assert.False(t, lane.claimEntry(5))
	assert.False(t, lane.claimEntry(4))
	assert.True(t, lane.claimEntry(6))
	assert.Equal(t, int64(6), lane.LastEnterTick())
	assert.Equal(t, int64(6), lane.GetAndSetLastEnterTick(7))
}
