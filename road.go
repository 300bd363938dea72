package microsim

import (
	"math"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
)

// RoadSpec describes road to be added into network
type RoadSpec struct {
	Name         string
	Geom         orb.LineString
	ID           RoadID
	Source       JunctionID
	Target       JunctionID
	LinkType     LinkType
	Lanes        int
	FreeSpeed    float64 // m/s, default by link type when non-positive
	FreeSpeedStd float64 // m/s
	Length       float64 // meters, haversine length of geometry when non-positive
	OSMWayID     osm.WayID
}

// Road is directed road made of one or more parallel lanes
type Road struct {
	name          string
	geom          orb.LineString
	geomEuclidean orb.LineString
	lanes         []*Lane
	dnRoads       []*Road
	upRoads       []*Road
	pending       []VehicleID

	length       float64
	freeSpeed    float64
	freeSpeedStd float64
	travelTime   float64
	speedSum     float64
	speedSamples int

	ID           RoadID
	source       JunctionID
	target       JunctionID
	linkType     LinkType
	osmWayID     osm.WayID
	partition    int
	firstVehicle VehicleID
	lastVehicle  VehicleID
	nVehicles    int

	shadowCount        atomic.Int64
	futureRoutingCount atomic.Int64
}

// Name returns human readable name
func (road *Road) Name() string {
	return road.name
}

// Length returns road length in meters
func (road *Road) Length() float64 {
	return road.length
}

// Geom returns WGS84 axis of road
func (road *Road) Geom() orb.LineString {
	return road.geom
}

// Lanes returns lanes from left to right
func (road *Road) Lanes() []*Lane {
	return road.lanes
}

// Lane returns lane by index or nil
func (road *Road) Lane(index int) *Lane {
	if index < 0 || index >= len(road.lanes) {
		return nil
	}
	return road.lanes[index]
}

// Source returns upstream junction
func (road *Road) Source() JunctionID {
	return road.source
}

// Target returns downstream junction
func (road *Road) Target() JunctionID {
	return road.target
}

// FreeSpeed returns mean free-flow speed (m/s)
func (road *Road) FreeSpeed() float64 {
	return road.freeSpeed
}

// TravelTime returns current travel time estimation (seconds)
func (road *Road) TravelTime() float64 {
	return road.travelTime
}

// NumVehicles returns live number of vehicles on road
func (road *Road) NumVehicles() int {
	return road.nVehicles
}

// ShadowCount returns number of shadow vehicles placed on road
func (road *Road) ShadowCount() int64 {
	return road.shadowCount.Load()
}

// FutureRoutingCount returns number of vehicles which will re-route on this road
func (road *Road) FutureRoutingCount() int64 {
	return road.futureRoutingCount.Load()
}

// Partition returns index of partition which owns the road
func (road *Road) Partition() int {
	return road.partition
}

// DownstreamRoads returns roads reachable from this road through lane connections
func (road *Road) DownstreamRoads() []*Road {
	return road.dnRoads
}

// UpstreamRoads returns roads leading into this road through lane connections
func (road *Road) UpstreamRoads() []*Road {
	return road.upRoads
}

// FirstVehicle returns the most advanced vehicle of macro list
func (road *Road) FirstVehicle() VehicleID {
	return road.firstVehicle
}

// LastVehicle returns the least advanced vehicle of macro list
func (road *Road) LastVehicle() VehicleID {
	return road.lastVehicle
}

// RandomFreeSpeed samples free-flow speed for standard normal deviate z
func (road *Road) RandomFreeSpeed(z float64) float64 {
	return math.Max(0.1*road.freeSpeed, road.freeSpeed+z*road.freeSpeedStd)
}

// load is used for partition balancing: live vehicles, shadow and future routing vehicles
func (road *Road) load() float64 {
	return float64(road.nVehicles) + float64(road.shadowCount.Load()) + float64(road.futureRoutingCount.Load()) + 1.0
}

func (road *Road) addDownstream(dn *Road) {
	for _, r := range road.dnRoads {
		if r == dn {
			return
		}
	}
	road.dnRoads = append(road.dnRoads, dn)
	dn.upRoads = append(dn.upRoads, road)
}

// recordSpeed accumulates observed speed sample
func (road *Road) recordSpeed(speed float64) {
	road.speedSum += speed
	road.speedSamples++
}

// estimatedSpeed returns mean observed speed since last refresh. When nothing has been observed
// the speed is derived from density of live and shadow vehicles.
func (road *Road) estimatedSpeed(vehicleLength float64) float64 {
	minSpeed := 0.1 * road.freeSpeed
	if road.speedSamples > 0 {
		return math.Max(minSpeed, road.speedSum/float64(road.speedSamples))
	}
	jamDensity := float64(len(road.lanes)) / (vehicleLength + 2.0)
	density := (float64(road.nVehicles) + float64(road.shadowCount.Load())) / math.Max(road.length, 1.0)
	return math.Max(minSpeed, road.freeSpeed*(1.0-density/jamDensity))
}

// refreshTravelTime recomputes travel time from flow and resets speed samples
func (road *Road) refreshTravelTime(vehicleLength float64) {
	road.travelTime = road.length / road.estimatedSpeed(vehicleLength)
	road.speedSum = 0
	road.speedSamples = 0
}

func roadLength(spec RoadSpec) float64 {
	if spec.Length > 0 {
		return spec.Length
	}
	if len(spec.Geom) < 2 {
		return 0
	}
	return geo.LengthHaversine(spec.Geom)
}

// addPending queues vehicle which waits to enter the network at this road
func (road *Road) addPending(id VehicleID) {
	road.pending = append(road.pending, id)
}

// removePending drops vehicle from departure queue
func (road *Road) removePending(id VehicleID) bool {
	for i, pending := range road.pending {
		if pending == id {
			road.pending = append(road.pending[:i], road.pending[i+1:]...)
			return true
		}
	}
	return false
}

// NumPending returns number of vehicles waiting to enter the road
func (road *Road) NumPending() int {
	return len(road.pending)
}
