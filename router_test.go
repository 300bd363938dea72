package microsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteToRoad(t *testing.T) {
	net := newTestDiamond(t)
	router, err := NewCHRouter(net)
	require.NoError(t, err)

	route, ok := router.RouteToRoad(1, 6)
	require.True(t, ok)
	require.Len(t, route, 4)
	assert.Equal(t, RoadID(1), route[0])
	assert.Contains(t, []RoadID{2, 3}, route[1])
	assert.Equal(t, RoadID(6), route[3])

	route, ok = router.RouteToRoad(4, 4)
	require.True(t, ok)
	assert.Equal(t, []RoadID{4}, route)

	_, ok = router.RouteToRoad(6, 1)
	assert.False(t, ok)

	route, ok = router.Route(2, offsetPoint(900, 0))
	require.True(t, ok)
	assert.Equal(t, []RoadID{2, 4, 6}, route)
}

func TestRouteOnGrid(t *testing.T) {
	net := newTestGrid(t, 3)
	router, err := NewCHRouter(net)
	require.NoError(t, err)
	for _, from := range net.Roads() {
		for _, to := range net.Roads() {
			route, ok := router.RouteToRoad(from.ID, to.ID)
			require.True(t, ok, "%d -> %d", from.ID, to.ID)
			assert.Equal(t, from.ID, route[0])
			assert.Equal(t, to.ID, route[len(route)-1])
			for i := 1; i < len(route); i++ {
				prev, _ := net.Road(route[i-1])
				next, _ := net.Road(route[i])
				assert.Equal(t, prev.Target(), next.Source())
			}
		}
	}
}

func TestCandidateRoutes(t *testing.T) {
	net := newTestDiamond(t)
	router, err := NewCHRouter(net)
	require.NoError(t, err)

	routes := router.CandidateRoutes(1, 6, 5)
	require.Len(t, routes, 2)
	assert.ElementsMatch(t, [][]RoadID{{1, 2, 4, 6}, {1, 3, 5, 6}}, routes)

	assert.Len(t, router.CandidateRoutes(1, 6, 1), 1)
	assert.Empty(t, router.CandidateRoutes(6, 1, 5))
	assert.Empty(t, router.CandidateRoutes(1, 42, 5))
}

func TestRouteTableAndEcoRoute(t *testing.T) {
	net := newTestDiamond(t)
	router, err := NewCHRouter(net, WithRouterCandidates(3))
	require.NoError(t, err)

	// Zone 2 is located at the start of road 6
	zones := map[ZoneID]Zone{
		1: NewParkingZone(1, offsetPoint(0, 0), 1),
		2: NewParkingZone(2, offsetPoint(900, 0), 1),
	}
	assert.Equal(t, 1, router.BuildRouteTable(zones))
	table := router.RouteTable()
	require.Len(t, table, 1)
	assert.Equal(t, ODPair{Origin: 1, Destination: 2}, table[0].ODPair)
	require.Len(t, table[0].Routes, 2)

	_, _, ok := router.EcoRoute(1, 1, 2)
	assert.False(t, ok, "no choice has been made yet")

	assert.ErrorIs(t, router.SetRouteResult(2, 1, 0), ErrNoPath)
	assert.Error(t, router.SetRouteResult(1, 2, 2))
	assert.Error(t, router.SetRouteResult(1, 2, -1))
	require.NoError(t, router.SetRouteResult(1, 2, 1))

	route, choice, ok := router.EcoRoute(1, 1, 2)
	require.True(t, ok)
	assert.Equal(t, 1, choice)
	assert.Equal(t, table[0].Routes[1], route)

	route[0] = 42
	assert.Equal(t, RoadID(1), router.RouteTable()[0].Routes[1][0], "returned route is a copy")

	_, _, ok = router.EcoRoute(2, 1, 2)
	assert.False(t, ok, "chosen route starts elsewhere")
}

func TestSimulationRouteTable(t *testing.T) {
	sim := newZonedGrid(t, map[ZoneID]int{1: 1, 5: 1, 9: 1}, NewMemoryCollector(), nil)
	assert.Equal(t, 6, sim.BuildRouteTable())
	tables := sim.RouteTables()
	require.Len(t, tables, 6)
	for i := 1; i < len(tables); i++ {
		prev, next := tables[i-1].ODPair, tables[i].ODPair
		assert.True(t, prev.Origin < next.Origin || (prev.Origin == next.Origin && prev.Destination < next.Destination))
	}
	for _, entry := range tables {
		assert.NotEmpty(t, entry.Routes)
		assert.LessOrEqual(t, len(entry.Routes), sim.cfg.routeCandidates)
	}
	require.NoError(t, sim.SetRouteResult(1, 9, 0))
	assert.ErrorIs(t, sim.SetRouteResult(1, 42, 0), ErrNoPath)
}
