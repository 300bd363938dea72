package microsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonlinearCharging(t *testing.T) {
	prev := 0.1
	for _, hours := range []float64{0.05, 0.1, 0.2, 0.4, 0.8} {
		soc := nonlinearCharging(0.1, 50, 50, hours)
		assert.Greater(t, soc, prev, "state of charge grows with charging time")
		assert.LessOrEqual(t, soc, 1.0)
		prev = soc
	}
	assert.Equal(t, 1.0, nonlinearCharging(0.1, 50, 50, 10))
	assert.InDelta(t, 0.5, nonlinearCharging(0.5, 50, 50, 0), 0.05)

	// Slower charger gives less energy for the same time
	assert.Less(t, nonlinearCharging(0.2, 50, 10, 0.5), nonlinearCharging(0.2, 50, 50, 0.5))
}

func newChargingWorld(t *testing.T) *Simulation {
	t.Helper()
	return newTestSimulation(t, newTestCorridor(t, 2, 300, 1), nil)
}

func newChargingVehicle(sim *Simulation, class VehicleClass, level float64) *Vehicle {
	v := newVehicle(&sim.world, class, int64(sim.fleet.Len()+1))
	sim.fleet.add(v)
	v.battery = level * v.batteryCapacity
	return v
}

func TestChargingStationQueue(t *testing.T) {
	sim := newChargingWorld(t)
	station := NewSimpleChargingStation(1, testOrigin, 0, 1, 1)
	assert.Equal(t, 1, station.Capacity())
	assert.Equal(t, 1, station.CapacityBus())

	first := newChargingVehicle(sim, VEHICLE_TAXI, 0.1)
	second := newChargingVehicle(sim, VEHICLE_TAXI, 0.1)
	bus := newChargingVehicle(sim, VEHICLE_BUS, 0.5)
	station.Receive(first, 1)
	station.Receive(second, 1)
	station.Receive(bus, 1)
	assert.Equal(t, 3, station.NumWaiting())
	assert.Equal(t, testOrigin, first.Coordinate())

	dt := sim.cfg.stepSize
	finished := station.Step(1, dt)
	assert.Empty(t, finished)
	assert.Equal(t, 2, station.NumCharging())
	assert.Equal(t, 1, station.NumWaiting())

	// Bus charger is twice as powerful and the bus is half full, so it leaves first
	released := make(map[VehicleID]int64)
	byVehicle := make(map[VehicleID]ChargeResult)
	for tick := int64(2); tick < 100000; tick++ {
		for _, res := range station.Step(tick, dt) {
			released[res.Vehicle.ID] = tick
			byVehicle[res.Vehicle.ID] = res
			assert.InDelta(t, res.Vehicle.BatteryCapacity(), res.Vehicle.BatteryLevel(), 1e-9)
		}
		if _, ok := released[first.ID]; ok {
			break
		}
	}
	require.Contains(t, released, bus.ID)
	require.Contains(t, released, first.ID)
	assert.Less(t, released[bus.ID], released[first.ID])
	assert.NotContains(t, released, second.ID, "second taxi waits for the only fast charger")
	assert.Less(t, second.BatteryLevel(), second.BatteryCapacity())

	busRes := byVehicle[bus.ID]
	assert.Equal(t, CHARGER_BUS, busRes.Charger)
	assert.Equal(t, int64(0), busRes.WaitTicks)

	res := byVehicle[first.ID]
	assert.Equal(t, CHARGER_L3, res.Charger)
	assert.Equal(t, int64(0), res.WaitTicks)
	assert.Greater(t, res.ChargeTicks, int64(0))
	assert.InDelta(t, 0.1*first.BatteryCapacity(), res.InitialLevel, 1e-9)

	// The waiting taxi takes the charger freed on the same tick
	assert.Equal(t, 0, station.NumWaiting())
	assert.Equal(t, 1, station.NumCharging())

	var secondRes []ChargeResult
	for tick := released[first.ID] + 1; tick < 100000 && len(secondRes) == 0; tick++ {
		secondRes = station.Step(tick, dt)
	}
	require.Len(t, secondRes, 1)
	assert.Equal(t, second.ID, secondRes[0].Vehicle.ID)
	assert.Equal(t, released[first.ID]-1, secondRes[0].WaitTicks)
	assert.Equal(t, 0, station.NumCharging())
}

func TestTaxiGoesChargingWhenBatteryIsLow(t *testing.T) {
	collector := NewMemoryCollector()
	net := newTestGrid(t, 3)
	sim := newTestSimulation(t, net, nil, WithCollector(collector))
	home, _ := net.Junction(1)
	stationSite, _ := net.Junction(9)
	require.NoError(t, sim.AddZone(NewParkingZone(1, home.geom, 5, WithNeighboringLinks(home.outcomingRoads...))))
	require.NoError(t, sim.AddChargingStation(NewSimpleChargingStation(1, stationSite.geom, 0, 2, 0)))
	assert.ErrorIs(t, sim.AddChargingStation(NewSimpleChargingStation(1, stationSite.geom, 0, 2, 0)), ErrDuplicateID)

	taxi, err := sim.AddTaxi(1)
	require.NoError(t, err)
	zone, _ := sim.Zone(1)
	require.True(t, zone.RemoveParkedTaxi(taxi.ID))
	taxi.battery = 0.1 * taxi.batteryCapacity
	require.True(t, taxi.goCharging(0))
	assert.Equal(t, TRIP_CHARGING, taxi.State())

	stepUntil(t, sim, 20000, func() bool { return len(collector.Chargings()) > 0 })
	rec := collector.Chargings()[0]
	assert.Equal(t, taxi.ID, rec.Vehicle)
	assert.Equal(t, StationID(1), rec.Station)
	assert.Equal(t, CHARGER_L3, rec.Charger)
	assert.InDelta(t, taxi.BatteryCapacity(), rec.FinalLevel, 1e-9)
	assert.Equal(t, TRIP_RELOCATION_INACCESSIBLE, taxi.State())

	stepUntil(t, sim, 4000, func() bool { return taxi.State() == TRIP_PARKING })
	parked, ok := zone.PopParkedTaxi()
	require.True(t, ok)
	assert.Equal(t, taxi.ID, parked)
	require.NoError(t, sim.Step(context.Background()))
}
