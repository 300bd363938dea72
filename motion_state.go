package microsim

// MotionState is the single tagged motion state of a vehicle.
// Exactly one holds at any instant.
type MotionState uint16

const (
	MOTION_OFF_ROAD = MotionState(iota + 1)
	MOTION_PENDING
	MOTION_ON_LANE
	MOTION_NOSING
	MOTION_YIELDING
	MOTION_AT_JUNCTION
)

func (iotaIdx MotionState) String() string {
	return [...]string{"off_road", "pending", "on_lane", "nosing", "yielding", "at_junction"}[iotaIdx-1]
}

// OnLane reports whether vehicle is tracked by a lane occupancy list and moves along it
func (iotaIdx MotionState) OnLane() bool {
	return iotaIdx == MOTION_ON_LANE || iotaIdx == MOTION_NOSING || iotaIdx == MOTION_YIELDING
}

// OnRoad reports whether vehicle belongs to some road's macro list
func (iotaIdx MotionState) OnRoad() bool {
	return iotaIdx.OnLane() || iotaIdx == MOTION_AT_JUNCTION
}
