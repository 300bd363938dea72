package microsim

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// osmNode is a vertex of imported ways. Vertices shared by several ways, way ends
// and traffic lights are where ways are cut into roads.
type osmNode struct {
	geom       orb.Point
	name       string
	ID         osm.NodeID
	useCount   int
	control    JunctionControl
	isJunction bool
}

// JunctionControl is the way vehicles are let through a junction
type JunctionControl uint16

const (
	CONTROL_NONE = JunctionControl(iota + 1)
	CONTROL_SIGNAL
)

func (iotaIdx JunctionControl) String() string {
	return [...]string{"none", "signal"}[iotaIdx-1]
}
