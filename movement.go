package microsim

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

type MovementID int

// Movement is a road-to-road turn at junction together with lane ranges it connects
type Movement struct {
	geom             orb.LineString
	ID               MovementID
	JunctionID       JunctionID
	IncomingRoadID   RoadID
	OutcomingRoadID  RoadID
	turnType         TurnType
	incomeLaneStart  int
	incomeLaneEnd    int
	outcomeLaneStart int
	outcomeLaneEnd   int
}

type TurnType uint16

const (
	TURN_THRU = TurnType(iota + 1)
	TURN_RIGHT
	TURN_LEFT
	TURN_U_TURN
)

func (iotaIdx TurnType) String() string {
	return [...]string{"thru", "right", "left", "u_turn"}[iotaIdx-1]
}

// turnBetweenLines classifies turn from l1 to l2 (Euclidean lines)
//
// Note: panics if number of points in any line is less than 2
func turnBetweenLines(l1 orb.LineString, l2 orb.LineString) TurnType {
	angleDiff := angleBetweenLines(l1, l2)
	switch {
	case -0.25*math.Pi <= angleDiff && angleDiff <= 0.25*math.Pi:
		return TURN_THRU
	case angleDiff < -0.25*math.Pi && angleDiff >= -0.9*math.Pi:
		return TURN_RIGHT
	case angleDiff > 0.25*math.Pi && angleDiff <= 0.9*math.Pi:
		return TURN_LEFT
	default:
		return TURN_U_TURN
	}
}

const (
	indentationThreshold = 8.0
)

// movementGeomBetweenLines returns movement geometry for given WGS84 lines pair
//
// Note: panics if number of points in any line is less than 2
func movementGeomBetweenLines(l1 orb.LineString, l2 orb.LineString) orb.LineString {
	indent1 := indentationThreshold
	length1 := geo.LengthHaversine(l1)
	if length1 <= indent1 {
		indent1 = length1 / 2.0
	}
	point1, _ := geo.PointAtDistanceAlongLine(l1, length1-indent1)

	indent2 := indentationThreshold
	length2 := geo.LengthHaversine(l2)
	if length2 <= indent2 {
		indent2 = length2 / 2.0
	}
	point2, _ := geo.PointAtDistanceAlongLine(l2, indent2)
	return orb.LineString{point1, point2}
}
