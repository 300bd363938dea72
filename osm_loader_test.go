package microsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="handmade">
 <node id="1" lat="55.700" lon="37.600"/>
 <node id="2" lat="55.700" lon="37.603"/>
 <node id="3" lat="55.700" lon="37.606">
  <tag k="highway" v="traffic_signals"/>
 </node>
 <node id="4" lat="55.702" lon="37.603"/>
 <node id="5" lat="55.704" lon="37.603"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <nd ref="3"/>
  <tag k="highway" v="secondary"/>
  <tag k="lanes" v="2"/>
  <tag k="name" v="Main street"/>
 </way>
 <way id="11">
  <nd ref="2"/>
  <nd ref="4"/>
  <tag k="highway" v="residential"/>
  <tag k="oneway" v="yes"/>
 </way>
 <way id="12">
  <nd ref="4"/>
  <nd ref="5"/>
  <tag k="highway" v="tertiary"/>
  <tag k="oneway" v="-1"/>
  <tag k="maxspeed" v="30 mph"/>
 </way>
 <way id="13">
  <nd ref="3"/>
  <nd ref="5"/>
  <tag k="highway" v="footway"/>
 </way>
 <way id="14">
  <nd ref="1"/>
  <nd ref="4"/>
  <tag k="highway" v="service"/>
  <tag k="access" v="private"/>
 </way>
</osm>
`

func writeSampleOSM(t *testing.T) string {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), "sample.osm")
	require.NoError(t, os.WriteFile(fileName, []byte(sampleOSM), 0644))
	return fileName
}

func TestImportFromOSMFile(t *testing.T) {
	cfg := DefaultOsmConfiguration()
	cfg.FirstJunctionID = 1
	cfg.FirstRoadID = 1
	net, err := ImportFromOSMFile(writeSampleOSM(t), cfg, false)
	require.NoError(t, err)

	// Main street is split at node 2 and gives a road in each direction; footway and private service road are skipped
	require.Equal(t, 6, net.NumRoads())
	assert.Len(t, net.Junctions(), 5)

	first, ok := net.Road(1)
	require.True(t, ok)
	assert.Equal(t, "Main street", first.Name())
	assert.Len(t, first.Lanes(), 1)
	assert.InDelta(t, 60/3.6, first.FreeSpeed(), 1e-9)
	back, _ := net.Road(2)
	assert.Equal(t, first.Source(), back.Target())
	assert.Equal(t, first.Target(), back.Source())

	residential, _ := net.Road(5)
	assert.Len(t, residential.Lanes(), 1)

	// oneway=-1 runs against node order
	reversed, _ := net.Road(6)
	assert.Equal(t, residential.Target(), reversed.Target())
	assert.InDelta(t, 55.704, reversed.Geom()[0].Lat(), 1e-9)
	assert.InDelta(t, 30*1.609344/3.6, reversed.FreeSpeed(), 1e-9)
	assert.Len(t, reversed.Lanes(), 2)

	controls := make(map[osm.NodeID]JunctionControl)
	for _, junction := range net.Junctions() {
		controls[junction.osmNodeID] = junction.Control()
	}
	assert.Equal(t, CONTROL_SIGNAL, controls[3])
	assert.Equal(t, CONTROL_NONE, controls[1])

	// Lanes are connected at junction where roads meet
	assert.NotEmpty(t, first.DownstreamRoads())
	assert.NotEmpty(t, net.Movements())

	router, err := NewCHRouter(net)
	require.NoError(t, err)
	route, ok := router.RouteToRoad(1, 5)
	require.True(t, ok)
	assert.Equal(t, []RoadID{1, 5}, route)
}

func TestImportFromOSMFileErrors(t *testing.T) {
	_, err := ImportFromOSMFile(filepath.Join(t.TempDir(), "missing.osm"), nil, false)
	assert.Error(t, err)

	fileName := filepath.Join(t.TempDir(), "sample.json")
	require.NoError(t, os.WriteFile(fileName, []byte("{}"), 0644))
	_, err = ImportFromOSMFile(fileName, nil, false)
	assert.Error(t, err)
}

func TestOsmWayTags(t *testing.T) {
	way := newOsmWay(&osm.Way{
		ID:    1,
		Nodes: osm.WayNodes{{ID: 1}, {ID: 2}},
		Tags: osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "-1"},
			{Key: "maxspeed", Value: "50"},
			{Key: "lanes:forward", Value: "3"},
		},
	})
	assert.True(t, way.Oneway)
	assert.True(t, way.IsReversed)
	assert.Equal(t, 50.0, way.maxSpeed)
	assert.Equal(t, []osm.NodeID{1, 2}, way.Nodes)
	forward, backward := way.directionLanes()
	assert.Equal(t, 3, forward)
	assert.Equal(t, 0, backward)
	assert.True(t, way.isAutoAllowed())

	roundabout := newOsmWay(&osm.Way{ID: 2, Tags: osm.Tags{{Key: "highway", Value: "primary"}, {Key: "junction", Value: "roundabout"}}})
	assert.True(t, roundabout.Oneway)
	assert.False(t, roundabout.OnewayDefault)

	twoWay := newOsmWay(&osm.Way{ID: 3, Tags: osm.Tags{{Key: "highway", Value: "secondary"}, {Key: "lanes", Value: "5"}}})
	assert.True(t, twoWay.OnewayDefault)
	twoWay.linkType = LINK_SECONDARY
	forward, backward = twoWay.directionLanes()
	assert.Equal(t, 2, forward)
	assert.Equal(t, 3, backward)

	private := newOsmWay(&osm.Way{ID: 4, Tags: osm.Tags{{Key: "highway", Value: "service"}, {Key: "access", Value: "no"}}})
	assert.False(t, private.isAutoAllowed())
	allowed := newOsmWay(&osm.Way{ID: 5, Tags: osm.Tags{{Key: "highway", Value: "service"}, {Key: "access", Value: "no"}, {Key: "motor_vehicle", Value: "yes"}}})
	assert.True(t, allowed.isAutoAllowed())

	negligible := newOsmWay(&osm.Way{ID: 6, Tags: osm.Tags{{Key: "highway", Value: "construction"}}})
	assert.True(t, negligible.isHighwayNegligible())
}
