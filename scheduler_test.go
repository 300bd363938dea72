package microsim

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPartitioner map[RoadID]int

func (p fixedPartitioner) Partition(net *RoadNetwork, n int) map[RoadID]int {
	return p
}

// newTestMerge builds roads 1 and 2 merging into road 3 which continues as road 4
func newTestMerge(t *testing.T) *RoadNetwork {
	t.Helper()
	net := NewRoadNetwork()
	points := []orb.Point{offsetPoint(0, 200), offsetPoint(0, -200), offsetPoint(300, 0), offsetPoint(600, 0), offsetPoint(900, 0)}
	for i, pt := range points {
		_, err := net.AddJunction(JunctionID(i+1), pt)
		require.NoError(t, err)
	}
	specs := []RoadSpec{
		{ID: 1, Source: 1, Target: 3, Lanes: 1},
		{ID: 2, Source: 2, Target: 3, Lanes: 1},
		{ID: 3, Source: 3, Target: 4, Lanes: 1},
		{ID: 4, Source: 4, Target: 5, Lanes: 1},
	}
	for _, spec := range specs {
		spec.LinkType = LINK_SECONDARY
		_, err := net.AddRoad(spec)
		require.NoError(t, err)
	}
	net.ConnectIntersections()
	return net
}

func vehicleAtJunction(t *testing.T, sim *Simulation, road *Road, dest *Road) *Vehicle {
	t.Helper()
	v := placeVehicle(t, sim, road.Lane(0), 0, 0)
	v.atOrigin = true
	v.destRoad = dest
	v.setNextRoad()
	v.assignNextLane()
	require.NotNil(t, v.nextLane)
	v.motion = MOTION_AT_JUNCTION
	v.commit()
	return v
}

func TestEntranceContentionAcrossPartitions(t *testing.T) {
	net := newTestMerge(t)
	sim := newTestSimulation(t, net,
		[]func(*Config){WithPartitions(2)},
		WithPartitioner(fixedPartitioner{1: 0, 2: 1, 3: 0, 4: 1}),
	)
	first, _ := net.Road(1)
	second, _ := net.Road(2)
	merged, _ := net.Road(3)
	last, _ := net.Road(4)
	require.Equal(t, 1, second.Partition())

	a := vehicleAtJunction(t, sim, first, last)
	b := vehicleAtJunction(t, sim, second, last)
	require.Equal(t, a.nextLane, b.nextLane)

	require.NoError(t, sim.Step(context.Background()))
	assert.Equal(t, 1, merged.NumVehicles())
	assert.Equal(t, merged, a.Road())
	assert.Equal(t, second, b.Road())
	assert.Equal(t, MOTION_AT_JUNCTION, b.Motion())
	assert.Equal(t, 1, b.stuckTicks)

	for i := 0; i < 40 && b.Road() != merged; i++ {
		require.NoError(t, sim.Step(context.Background()))
	}
	require.Equal(t, merged, b.Road())
	assert.Equal(t, a.ID, b.leading)
	assert.Greater(t, b.Distance()-a.Distance(), a.Length())
}

// addCorridorTraffic queues vehicles driving from the beginning of corridor to its last road
func addCorridorTraffic(t *testing.T, sim *Simulation, n int, roads int) {
	t.Helper()
	dest := offsetPoint(float64(roads-1)*300, 0)
	for i := 0; i < n; i++ {
		_, err := sim.AddVehicle(VEHICLE_TAXI, offsetPoint(0, 0), ZonePlan(NoZone, dest, int64(i)))
		require.NoError(t, err)
	}
}

func assertNoOverlap(t *testing.T, sim *Simulation) {
	t.Helper()
	for _, road := range sim.net.Roads() {
		for _, lane := range road.Lanes() {
			for id := lane.firstVehicle; id != NoVehicle; id = sim.fleet.vehicles[id].trailing {
				v := sim.fleet.vehicles[id]
				if v.trailing == NoVehicle {
					continue
				}
				back := sim.fleet.vehicles[v.trailing]
				require.GreaterOrEqual(t, back.distance-v.distance, v.length-1e-6, "vehicles %d and %d overlap on lane %d", v.ID, back.ID, lane.ID)
			}
		}
	}
}

func TestConservationAndSafety(t *testing.T) {
	const roads = 4
	net := newTestCorridor(t, roads, 300, 2)
	sim := newTestSimulation(t, net, nil)
	addCorridorTraffic(t, sim, 30, roads)

	for tick := 0; tick < 2000; tick++ {
		require.NoError(t, sim.Step(context.Background()))
		entered, left := sim.Counters()
		onRoad := 0
		for _, v := range sim.fleet.Vehicles() {
			if v.Motion().OnRoad() {
				onRoad++
			}
		}
		require.Equal(t, entered-left, int64(onRoad), "tick %d", sim.Tick())
		assertNoOverlap(t, sim)
	}
	entered, left := sim.Counters()
	assert.Equal(t, int64(30), entered)
	assert.Equal(t, int64(30), left)
	assert.Empty(t, sim.Snapshot())
	for _, v := range sim.fleet.Vehicles() {
		assert.Equal(t, MOTION_OFF_ROAD, v.Motion())
	}
}

func TestTripRecordsOnArrival(t *testing.T) {
	const roads = 3
	collector := NewMemoryCollector()
	sim := newTestSimulation(t, newTestCorridor(t, roads, 300, 1), nil, WithCollector(collector), WithTickRecordInterval(10))
	addCorridorTraffic(t, sim, 3, roads)

	require.NoError(t, sim.Run(context.Background(), 1000))
	trips := collector.Trips()
	require.Len(t, trips, 3)
	for _, trip := range trips {
		assert.Equal(t, sim.RunID(), trip.RunID)
		assert.Equal(t, VEHICLE_TAXI, trip.Class)
		assert.Greater(t, trip.Distance, 500.0)
		assert.Greater(t, trip.Energy, 0.0)
	}
	ticks := collector.Ticks()
	require.Len(t, ticks, 100)
	assert.Equal(t, int64(10), ticks[0].Tick)
	assert.Equal(t, int64(3), ticks[len(ticks)-1].Entered)
	assert.Equal(t, int64(3), ticks[len(ticks)-1].Left)
}

func runGridScenario(t *testing.T, partitions int, ticks int64) *Simulation {
	t.Helper()
	net := newTestGrid(t, 4)
	sim := newTestSimulation(t, net, []func(*Config){WithPartitions(partitions), WithSeed(7)})
	junctions := net.Junctions()
	for i := 0; i < 40; i++ {
		from := junctions[(i*5)%len(junctions)]
		to := junctions[(i*7+3)%len(junctions)]
		if from == to {
			continue
		}
		_, err := sim.AddVehicle(VEHICLE_TAXI, from.geom, ZonePlan(NoZone, to.geom, int64(i*3)))
		require.NoError(t, err)
	}
	require.NoError(t, sim.Run(context.Background(), ticks))
	return sim
}

func TestDeterministicRuns(t *testing.T) {
	first := runGridScenario(t, 2, 300)
	second := runGridScenario(t, 2, 300)
	assert.Equal(t, first.Snapshot(), second.Snapshot())

	e1, l1 := first.Counters()
	e2, l2 := second.Counters()
	assert.Equal(t, e1, e2)
	assert.Equal(t, l1, l2)
}

func TestPartitionCountDoesNotChangeResult(t *testing.T) {
	single := runGridScenario(t, 1, 300)
	multi := runGridScenario(t, 3, 300)
	assert.Equal(t, single.Snapshot(), multi.Snapshot())

	e1, l1 := single.Counters()
	e2, l2 := multi.Counters()
	assert.Equal(t, e1, e2)
	assert.Equal(t, l1, l2)
}

func TestStepHonorsContext(t *testing.T) {
	sim := newTestSimulation(t, newTestCorridor(t, 2, 300, 1), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sim.Step(ctx))
	assert.Equal(t, int64(0), sim.Tick())
}
