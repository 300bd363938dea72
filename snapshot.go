package microsim

import (
	"github.com/paulmach/orb"
)

// VehicleSnapshot is state of on-road vehicle exposed to visualization and control clients
type VehicleSnapshot struct {
	ID           VehicleID    `json:"id"`
	Class        VehicleClass `json:"-"`
	State        TripState    `json:"-"`
	Motion       MotionState  `json:"-"`
	Road         RoadID       `json:"road"`
	Lane         LaneID       `json:"lane"`
	Distance     float64      `json:"distance"`
	Speed        float64      `json:"speed"`
	Acceleration float64      `json:"acc"`
	Coordinate   orb.Point    `json:"coordinate"`
	Bearing      float64      `json:"bearing"`
	Battery      float64      `json:"battery"`
	Passengers   int          `json:"passengers"`
}

func (v *Vehicle) snapshot() VehicleSnapshot {
	snap := VehicleSnapshot{
		ID:           v.ID,
		Class:        v.class,
		State:        v.state,
		Motion:       v.motion,
		Road:         -1,
		Lane:         -1,
		Distance:     v.distance,
		Speed:        v.speed,
		Acceleration: v.acc,
		Coordinate:   v.coord,
		Bearing:      v.bearing,
		Battery:      v.battery,
		Passengers:   v.Passengers(),
	}
	if v.road != nil {
		snap.Road = v.road.ID
	}
	if v.lane != nil {
		snap.Lane = v.lane.ID
	}
	return snap
}
