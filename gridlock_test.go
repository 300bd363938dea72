package microsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prepareStuckVehicle puts vehicle at the end of road 1 of diamond, heading to road 6, with its next lane blocked
func prepareStuckVehicle(t *testing.T, sim *Simulation, stuckTicks int) (*Vehicle, *Road) {
	t.Helper()
	first, _ := sim.net.Road(1)
	last, _ := sim.net.Road(6)

	v := placeVehicle(t, sim, first.Lane(0), 0, 0)
	v.atOrigin = true
	v.destRoad = last
	v.setNextRoad()
	v.assignNextLane()
	require.NotNil(t, v.nextLane)
	v.motion = MOTION_AT_JUNCTION
	v.stuckTicks = stuckTicks
	v.commit()

	placeVehicle(t, sim, v.nextLane, v.nextLane.length-1, 0)

	branch, _ := sim.net.Road(2)
	if v.nextRoad == branch {
		branch, _ = sim.net.Road(3)
	}
	return v, branch
}

func TestCrossingRequestWithoutGridlock(t *testing.T) {
	sim := newTestSimulation(t, newTestDiamond(t), nil)
	v, _ := prepareStuckVehicle(t, sim, 0)

	req := v.crossingRequest(1)
	require.NotNil(t, req)
	assert.False(t, req.gridlock)
	assert.Equal(t, v.nextLane, req.lane)
}

func TestEscapeRequest(t *testing.T) {
	sim := newTestSimulation(t, newTestDiamond(t), nil)
	v, escape := prepareStuckVehicle(t, sim, sim.cfg.maxStuckTicks())

	req := v.crossingRequest(1)
	require.NotNil(t, req)
	assert.True(t, req.gridlock)
	assert.Equal(t, escape, req.lane.Road())
	require.Len(t, req.path, 4)
	assert.Equal(t, RoadID(1), req.path[0].ID)
	assert.Equal(t, escape, req.path[1])
	assert.Equal(t, RoadID(6), req.path[3].ID)
}

func TestGridlockEscapeOnStep(t *testing.T) {
	sim := newTestSimulation(t, newTestDiamond(t), nil)
	v, escape := prepareStuckVehicle(t, sim, sim.cfg.maxStuckTicks())

	require.NoError(t, sim.Step(context.Background()))
	assert.Equal(t, escape, v.Road())
	assert.Equal(t, MOTION_ON_LANE, v.Motion())
	assert.Equal(t, 0, v.stuckTicks)
	require.NotNil(t, v.NextRoad())
	assert.Equal(t, escape.Target(), v.NextRoad().Source())
	assert.Equal(t, RoadID(6), v.Path()[len(v.Path())-1])
}

func TestNoEscapeWhenEveryLaneIsBlocked(t *testing.T) {
	sim := newTestSimulation(t, newTestDiamond(t), nil)
	v, escape := prepareStuckVehicle(t, sim, sim.cfg.maxStuckTicks())
	placeVehicle(t, sim, escape.Lane(0), escape.Lane(0).length-1, 0)

	req := v.crossingRequest(1)
	require.NotNil(t, req)
	assert.False(t, req.gridlock)
	assert.Equal(t, v.nextLane, req.lane)
}
