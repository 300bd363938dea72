package microsim

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

var testOrigin = orb.Point{37.6, 55.7}

// offsetPoint shifts testOrigin by given number of meters to the east and north
func offsetPoint(east, north float64) orb.Point {
	dLat := north / metersPerDegree
	dLon := east / (metersPerDegree * math.Cos(testOrigin.Lat()*math.Pi/180.0))
	return orb.Point{testOrigin.Lon() + dLon, testOrigin.Lat() + dLat}
}

// newTestCorridor builds chain of one-way roads heading east. Road i goes from junction i to junction i+1.
func newTestCorridor(t *testing.T, roads int, length float64, lanes int) *RoadNetwork {
	t.Helper()
	net := NewRoadNetwork()
	for i := 0; i <= roads; i++ {
		_, err := net.AddJunction(JunctionID(i+1), offsetPoint(float64(i)*length, 0))
		require.NoError(t, err)
	}
	for i := 0; i < roads; i++ {
		_, err := net.AddRoad(RoadSpec{
			ID:       RoadID(i + 1),
			Source:   JunctionID(i + 1),
			Target:   JunctionID(i + 2),
			LinkType: LINK_SECONDARY,
			Lanes:    lanes,
		})
		require.NoError(t, err)
	}
	net.ConnectIntersections()
	return net
}

// newTestDiamond builds road 1 splitting into two parallel branches (2->4 and 3->5) which merge into road 6
func newTestDiamond(t *testing.T) *RoadNetwork {
	t.Helper()
	net := NewRoadNetwork()
	points := map[JunctionID]orb.Point{
		1: offsetPoint(0, 0),
		2: offsetPoint(300, 0),
		3: offsetPoint(600, 200),
		4: offsetPoint(600, -200),
		5: offsetPoint(900, 0),
		6: offsetPoint(1200, 0),
	}
	for id := JunctionID(1); id <= 6; id++ {
		_, err := net.AddJunction(id, points[id])
		require.NoError(t, err)
	}
	specs := []RoadSpec{
		{ID: 1, Source: 1, Target: 2, Lanes: 1},
		{ID: 2, Source: 2, Target: 3, Lanes: 1},
		{ID: 3, Source: 2, Target: 4, Lanes: 1},
		{ID: 4, Source: 3, Target: 5, Lanes: 1},
		{ID: 5, Source: 4, Target: 5, Lanes: 1},
		{ID: 6, Source: 5, Target: 6, Lanes: 1},
	}
	for _, spec := range specs {
		spec.LinkType = LINK_SECONDARY
		_, err := net.AddRoad(spec)
		require.NoError(t, err)
	}
	net.ConnectIntersections()
	return net
}

func newTestGrid(t *testing.T, size int) *RoadNetwork {
	t.Helper()
	net, err := NewGridNetwork(size, size, 300, 2, testOrigin)
	require.NoError(t, err)
	return net
}

func newTestSimulation(t *testing.T, net *RoadNetwork, cfgOptions []func(*Config), options ...func(*Simulation)) *Simulation {
	t.Helper()
	cfg, err := NewConfig(cfgOptions...)
	require.NoError(t, err)
	sim, err := NewSimulation(cfg, net, nil, options...)
	require.NoError(t, err)
	return sim
}

// placeVehicle puts new vehicle on lane at given distance from its downstream end, keeping lane order
func placeVehicle(t *testing.T, sim *Simulation, lane *Lane, distance, speed float64) *Vehicle {
	t.Helper()
	v := newVehicle(&sim.world, VEHICLE_TAXI, int64(sim.fleet.Len()+1))
	sim.fleet.add(v)
	v.distance = distance
	lead, lag := sim.fleet.lanePosition(lane, distance, NoVehicle, NoVehicle)
	sim.fleet.insertToLane(v, lane, lead, lag)
	placeInMacroList(sim.fleet, v, lane.road)
	v.motion = MOTION_ON_LANE
	v.speed = speed
	v.atOrigin = false
	v.commit()
	return v
}

// placeInMacroList inserts vehicle into road's macro list ordered by distance
func placeInMacroList(fleet *Fleet, v *Vehicle, road *Road) {
	v.road = road
	lead := NoVehicle
	lag := road.firstVehicle
	for lag != NoVehicle && fleet.vehicles[lag].distance <= v.distance {
		lead = lag
		lag = fleet.vehicles[lag].macroTrailing
	}
	v.macroLeading = lead
	v.macroTrailing = lag
	if lead != NoVehicle {
		fleet.vehicles[lead].macroTrailing = v.ID
	} else {
		road.firstVehicle = v.ID
	}
	if lag != NoVehicle {
		fleet.vehicles[lag].macroLeading = v.ID
	} else {
		road.lastVehicle = v.ID
	}
	road.nVehicles++
}

// laneOrder walks lane from head to tail
func laneOrder(sim *Simulation, lane *Lane) []VehicleID {
	ids := make([]VehicleID, 0)
	for id := lane.firstVehicle; id != NoVehicle; id = sim.fleet.vehicles[id].trailing {
		ids = append(ids, id)
	}
	return ids
}
