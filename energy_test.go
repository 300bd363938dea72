package microsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnergyConsumption(t *testing.T) {
	p := energyParams(VEHICLE_TAXI)
	idle := p.Consumption(taxiMass, 0, 0, 1)
	assert.InDelta(t, p.AuxiliaryPower/(p.MotorEfficiency*p.DrivelineEff)/3.6e6, idle, 1e-12)

	cruise := p.Consumption(taxiMass, 15, 0, 1)
	accelerating := p.Consumption(taxiMass, 15, 2, 1)
	braking := p.Consumption(taxiMass, 15, -2, 1)
	assert.Greater(t, cruise, idle)
	assert.Greater(t, accelerating, cruise)
	assert.Less(t, braking, 0.0, "braking regenerates energy")

	assert.Greater(t, energyParams(VEHICLE_BUS).Consumption(busMass, 15, 0, 1), cruise)
}

func TestBatteryUpdateOnRoad(t *testing.T) {
	sim := newTestSimulation(t, newTestCorridor(t, 2, 300, 1), nil)
	first, _ := sim.net.Road(1)
	v := placeVehicle(t, sim, first.Lane(0), 200, 10)
	before := v.BatteryLevel()
	v.updateBatteryLevel()
	assert.Less(t, v.BatteryLevel(), before)
	assert.Greater(t, v.tripEnergy, 0.0)

	v.motion = MOTION_OFF_ROAD
	level := v.BatteryLevel()
	v.updateBatteryLevel()
	assert.Equal(t, level, v.BatteryLevel())
}
