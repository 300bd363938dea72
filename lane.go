package microsim

import (
	"sync/atomic"

	"github.com/paulmach/orb"
)

// Lane is a single lane of road. Lane index 0 is the leftmost one.
type Lane struct {
	road          *Road
	geom          orb.LineString
	upLanes       []*Lane
	dnLanes       []*Lane
	length        float64
	ID            LaneID
	index         int
	firstVehicle  VehicleID
	lastVehicle   VehicleID
	nVehicles     int
	lastEnterTick atomic.Int64
}

func newLane(id LaneID, road *Road, index int) *Lane {
	lane := &Lane{
		ID:           id,
		road:         road,
		index:        index,
		length:       road.length,
		firstVehicle: NoVehicle,
		lastVehicle:  NoVehicle,
	}
	lane.lastEnterTick.Store(-1)
	return lane
}

// Road returns parent road
func (lane *Lane) Road() *Road {
	return lane.road
}

// Index returns position of lane on its road (0 is the leftmost)
func (lane *Lane) Index() int {
	return lane.index
}

// Length returns lane length in meters
func (lane *Lane) Length() float64 {
	return lane.length
}

// Geom returns WGS84 centre line
func (lane *Lane) Geom() orb.LineString {
	return lane.geom
}

// DownstreamLanes returns lanes which could be entered from the end of this lane
func (lane *Lane) DownstreamLanes() []*Lane {
	return lane.dnLanes
}

// UpstreamLanes returns lanes which lead into this lane
func (lane *Lane) UpstreamLanes() []*Lane {
	return lane.upLanes
}

// NumVehicles returns live vehicle count
func (lane *Lane) NumVehicles() int {
	return lane.nVehicles
}

// FirstVehicle returns the vehicle closest to downstream junction
func (lane *Lane) FirstVehicle() VehicleID {
	return lane.firstVehicle
}

// LastVehicle returns the vehicle closest to upstream junction
func (lane *Lane) LastVehicle() VehicleID {
	return lane.lastVehicle
}

// IsConnectedTo reports whether other lane is downstream of this one
func (lane *Lane) IsConnectedTo(other *Lane) bool {
	if other == nil {
		return false
	}
	for _, dn := range lane.dnLanes {
		if dn == other {
			return true
		}
	}
	return false
}

// GetAndSetLastEnterTick stores tick and returns previous value
func (lane *Lane) GetAndSetLastEnterTick(tick int64) int64 {
	return lane.lastEnterTick.Swap(tick)
}

// LastEnterTick returns last tick some vehicle entered the lane
func (lane *Lane) LastEnterTick() int64 {
	return lane.lastEnterTick.Load()
}

// claimEntry marks lane as entered at given tick. It fails when somebody has already claimed the same (or a later) tick.
func (lane *Lane) claimEntry(tick int64) bool {
	for {
		last := lane.lastEnterTick.Load()
		if last >= tick {
			return false
		}
		if lane.lastEnterTick.CompareAndSwap(last, tick) {
			return true
		}
	}
}

func (lane *Lane) connect(dn *Lane) {
	if lane.IsConnectedTo(dn) {
		return
	}
	lane.dnLanes = append(lane.dnLanes, dn)
	dn.upLanes = append(dn.upLanes, lane)
	lane.road.addDownstream(dn.road)
}
