package microsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newZonedGrid builds 3x3 grid with zones at the given junctions
func newZonedGrid(t *testing.T, capacity map[ZoneID]int, collector DataCollector, zoneOptions map[ZoneID][]func(*ParkingZone)) *Simulation {
	t.Helper()
	net := newTestGrid(t, 3)
	sim := newTestSimulation(t, net,
		[]func(*Config){WithRechargeLevels(0.0, 0.5)},
		WithCollector(collector),
	)
	for id, places := range capacity {
		junction, ok := net.Junction(JunctionID(id))
		require.True(t, ok)
		options := append([]func(*ParkingZone){WithNeighboringLinks(junction.outcomingRoads...)}, zoneOptions[id]...)
		require.NoError(t, sim.AddZone(NewParkingZone(id, junction.geom, places, options...)))
	}
	return sim
}

func stepUntil(t *testing.T, sim *Simulation, maxTicks int, done func() bool) {
	t.Helper()
	for i := 0; i < maxTicks && !done(); i++ {
		require.NoError(t, sim.Step(context.Background()))
	}
	require.True(t, done(), "condition is not met after %d ticks", maxTicks)
}

func TestTaxiServesPassengerAndParks(t *testing.T) {
	collector := NewMemoryCollector()
	sim := newZonedGrid(t, map[ZoneID]int{1: 5, 9: 5}, collector, nil)
	taxi, err := sim.AddTaxi(1)
	require.NoError(t, err)
	assert.Equal(t, TRIP_PARKING, taxi.State())

	require.NoError(t, sim.AddRequest(NewRequest(1, 9, 0, 0)))
	require.NoError(t, sim.Step(context.Background()))
	assert.Equal(t, TRIP_OCCUPIED, taxi.State())
	assert.Equal(t, 1, taxi.Passengers())

	origin, _ := sim.Zone(1)
	dest, _ := sim.Zone(9)
	assert.False(t, origin.HasEnoughTaxi(0))
	assert.True(t, dest.HasEnoughTaxi(0), "taxi on the way is counted as future supply")

	stepUntil(t, sim, 4000, func() bool { return taxi.State() != TRIP_OCCUPIED })
	assert.Equal(t, TRIP_PARKING, taxi.State())
	assert.Equal(t, MOTION_OFF_ROAD, taxi.Motion())
	assert.Equal(t, 0, taxi.Passengers())
	assert.Equal(t, dest.Coordinate(), taxi.Coordinate())

	parked, ok := dest.PopParkedTaxi()
	require.True(t, ok)
	assert.Equal(t, taxi.ID, parked)

	servedByTaxi, servedByBus, left := origin.(*ParkingZone).Stats()
	assert.Equal(t, 1, servedByTaxi)
	assert.Equal(t, 0, servedByBus)
	assert.Equal(t, 0, left)

	trips := collector.Trips()
	require.NotEmpty(t, trips)
	trip := trips[len(trips)-1]
	assert.Equal(t, TRIP_OCCUPIED, trip.State)
	assert.Equal(t, ZoneID(1), trip.Origin)
	assert.Equal(t, ZoneID(9), trip.Destination)
	assert.Equal(t, 1, trip.Passengers)
	assert.Greater(t, trip.Distance, 0.0)
}

func TestTaxiCruisesWithoutParkingSpace(t *testing.T) {
	sim := newZonedGrid(t, map[ZoneID]int{1: 5, 9: 0}, NewMemoryCollector(), nil)
	taxi, err := sim.AddTaxi(1)
	require.NoError(t, err)
	require.NoError(t, sim.AddRequest(NewRequest(1, 9, 0, 0)))

	stepUntil(t, sim, 4000, func() bool {
		return taxi.State() != TRIP_OCCUPIED && taxi.State() != TRIP_PARKING
	})
	assert.Equal(t, TRIP_CRUISING, taxi.State())
	dest, _ := sim.Zone(9)
	assert.True(t, dest.HasEnoughTaxi(0))

	require.NoError(t, sim.AddRequest(NewRequest(9, 1, sim.Tick(), 0)))
	require.NoError(t, sim.Step(context.Background()))
	assert.Equal(t, TRIP_PICKUP, taxi.State())
	assert.Equal(t, 1, taxi.Passengers())
	assert.Equal(t, 0, dest.PendingTaxiRequests())
	assert.False(t, dest.HasEnoughTaxi(0))
}

func TestUnknownZoneRequest(t *testing.T) {
	sim := newZonedGrid(t, map[ZoneID]int{1: 5}, NewMemoryCollector(), nil)
	err := sim.AddRequest(NewRequest(1, 42, 0, 0))
	assert.ErrorIs(t, err, ErrUnknownZone)
	err = sim.AddRequest(NewRequest(42, 1, 0, 0))
	assert.ErrorIs(t, err, ErrUnknownZone)

	_, err = sim.AddTaxi(42)
	assert.ErrorIs(t, err, ErrUnknownZone)
	assert.ErrorIs(t, sim.AddZone(NewParkingZone(1, testOrigin, 1)), ErrDuplicateID)
}

func TestBusCycle(t *testing.T) {
	collector := NewMemoryCollector()
	sim := newZonedGrid(t,
		map[ZoneID]int{1: 5, 3: 5, 9: 5},
		collector,
		map[ZoneID][]func(*ParkingZone){1: {WithBusReachable(3, 9)}},
	)
	require.NoError(t, sim.AddRequest(NewRequest(1, 3, 0, 0)))
	first, _ := sim.Zone(1)
	assert.Equal(t, 0, first.PendingTaxiRequests(), "bus passenger does not wait for taxi")

	bus, err := sim.AddBus(7, []ZoneID{1, 3, 9}, []int64{0})
	require.NoError(t, err)
	assert.Equal(t, TRIP_BUS, bus.State())
	assert.Equal(t, 1, bus.Passengers(), "passenger boards at the first stop")

	stepUntil(t, sim, 6000, func() bool { return bus.nextStop != 1 })
	assert.Equal(t, 0, bus.Passengers(), "passenger alights at the second stop")

	stepUntil(t, sim, 12000, func() bool { return bus.State() == TRIP_NONE })
	assert.Equal(t, MOTION_OFF_ROAD, bus.Motion())

	_, servedByBus, _ := first.(*ParkingZone).Stats()
	assert.Equal(t, 1, servedByBus)

	legs := 0
	for _, trip := range collector.Trips() {
		if trip.Vehicle == bus.ID {
			assert.Equal(t, VEHICLE_BUS, trip.Class)
			legs++
		}
	}
	assert.Equal(t, 3, legs)
}

func TestBusNeedsTwoStops(t *testing.T) {
	sim := newZonedGrid(t, map[ZoneID]int{1: 5}, NewMemoryCollector(), nil)
	_, err := sim.AddBus(1, []ZoneID{1}, []int64{0})
	assert.Error(t, err)
	_, err = sim.AddBus(1, []ZoneID{1, 5}, []int64{0})
	assert.ErrorIs(t, err, ErrUnknownZone)
}
