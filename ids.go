package microsim

// RoadID identifies a directed road
type RoadID int

// LaneID identifies a lane
type LaneID int

// JunctionID identifies a junction (node of the road graph)
type JunctionID int

// VehicleID is a stable index into the vehicle arena
type VehicleID int

// ZoneID identifies a zone
type ZoneID int

// StationID identifies a charging station
type StationID int

const (
	// NoVehicle marks an empty head/tail/neighbour slot
	NoVehicle = VehicleID(-1)
	// NoZone marks a plan destination which is not a zone
	NoZone = ZoneID(-1)
	// NoStation marks a plan destination which is not a charging station
	NoStation = StationID(-1)
)
