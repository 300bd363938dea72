package microsim

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Junction is a node of road graph where roads meet
type Junction struct {
	incomingRoads  []RoadID
	outcomingRoads []RoadID
	ID             JunctionID
	osmNodeID      osm.NodeID
	control        JunctionControl
	geom           orb.Point
	geomEuclidean  orb.Point
}

// Coordinate returns WGS84 position of junction
func (junction *Junction) Coordinate() orb.Point {
	return junction.geom
}

// IncomingRoads returns identifiers of roads which end at junction
func (junction *Junction) IncomingRoads() []RoadID {
	return junction.incomingRoads
}

// OutcomingRoads returns identifiers of roads which start at junction
func (junction *Junction) OutcomingRoads() []RoadID {
	return junction.outcomingRoads
}

// Control returns traffic control at junction. Junctions built by hand are uncontrolled.
func (junction *Junction) Control() JunctionControl {
	if junction.control == 0 {
		return CONTROL_NONE
	}
	return junction.control
}
