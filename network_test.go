package microsim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoadNetworkBuilder(t *testing.T) {
	net := NewRoadNetwork()
	_, err := net.AddJunction(1, offsetPoint(0, 0))
	require.NoError(t, err)
	_, err = net.AddJunction(1, offsetPoint(0, 0))
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, err = net.AddJunction(2, offsetPoint(100, 0))
	require.NoError(t, err)

	_, err = net.AddRoad(RoadSpec{ID: 1, Source: 1, Target: 3})
	assert.ErrorIs(t, err, ErrUnknownJunction)
	road, err := net.AddRoad(RoadSpec{ID: 1, Source: 1, Target: 2})
	require.NoError(t, err)
	assert.Equal(t, LINK_UNCLASSIFIED, road.linkType)
	assert.Len(t, road.Lanes(), defaultLanes(LINK_UNCLASSIFIED))
	assert.InDelta(t, 100, road.Length(), 1.0)
	assert.InDelta(t, road.Length()/road.FreeSpeed(), road.TravelTime(), 1e-9)
	_, err = net.AddRoad(RoadSpec{ID: 1, Source: 2, Target: 1})
	assert.ErrorIs(t, err, ErrDuplicateID)

	found, ok := net.FindRoadAtCoordinates(offsetPoint(10, 5))
	require.True(t, ok)
	assert.Equal(t, road, found)
}

func TestExportToCSV(t *testing.T) {
	net := newTestDiamond(t)
	base := filepath.Join(t.TempDir(), "network.csv")
	require.NoError(t, net.ExportToCSV(base))

	roads := readCSV(t, filepath.Join(filepath.Dir(base), "network_roads.csv"))
	assert.Len(t, roads, net.NumRoads()+1)
	junctions := readCSV(t, filepath.Join(filepath.Dir(base), "network_junctions.csv"))
	assert.Len(t, junctions, len(net.Junctions())+1)
	assert.Equal(t, "control", junctions[0][2])
	assert.Equal(t, "none", junctions[1][2])
	lanes := readCSV(t, filepath.Join(filepath.Dir(base), "network_lanes.csv"))
	assert.Len(t, lanes, 7)
	movements := readCSV(t, filepath.Join(filepath.Dir(base), "network_movement.csv"))
	assert.Len(t, movements, len(net.Movements())+1)
}
