package microsim

import (
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// committedState is kinematic state published at the end of previous tick.
// Vehicles of other partitions read only this part.
type committedState struct {
	distance float64
	speed    float64
	acc      float64
	motion   MotionState
}

// Vehicle is a moving agent: either taxi-like or bus-like
type Vehicle struct {
	w   *world
	rng *rand.Rand

	ID     VehicleID
	class  VehicleClass
	length float64
	mass   float64

	// motion
	motion        MotionState
	regime        Regime
	lane          *Lane
	road          *Road
	nextRoad      *Road
	nextLane      *Lane
	nosingLane    *Lane
	leading       VehicleID
	trailing      VehicleID
	macroLeading  VehicleID
	macroTrailing VehicleID
	distance      float64
	speed         float64
	acc           float64
	desiredSpeed  float64
	lastStepMove  float64
	stuckTicks    int
	enteredTick   int64
	coord         orb.Point
	bearing       float64
	committed     committedState

	// routing
	path        []*Road
	atOrigin    bool
	nShadow     int
	futureRoads []*Road
	routeChoice int
	destRoad    *Road

	// trip
	state        TripState
	origin       Plan
	dest         Plan
	plans        []Plan
	passengers   int
	tripDistance float64
	tripEnergy   float64
	tripStart    int64
	cruisingZone ZoneID
	cruisingTime int64
	parkZone     ZoneID

	// energy
	battery         float64
	batteryCapacity float64
	totalEnergy     float64
	station         StationID

	// bus
	busRoute       int
	stops          []ZoneID
	nextStop       int
	departures     []int64
	cycle          int
	onboard        map[ZoneID][]Request
	busPassengers  int
	servedRequests int
}

func newVehicle(w *world, class VehicleClass, seed int64) *Vehicle {
	v := &Vehicle{
		w:             w,
		rng:           rand.New(rand.NewSource(seed)),
		class:         class,
		length:        w.cfg.vehicleLength,
		motion:        MOTION_OFF_ROAD,
		regime:        REGIME_FREE_FLOW,
		leading:       NoVehicle,
		trailing:      NoVehicle,
		macroLeading:  NoVehicle,
		macroTrailing: NoVehicle,
		atOrigin:      true,
		state:         TRIP_NONE,
		origin:        Plan{Zone: NoZone, Station: NoStation},
		dest:          Plan{Zone: NoZone, Station: NoStation},
		cruisingZone:  NoZone,
		parkZone:      NoZone,
		station:       NoStation,
		busRoute:      -1,
		routeChoice:   -1,
	}
	switch class {
	case VEHICLE_BUS:
		v.mass = busMass
		v.batteryCapacity = w.cfg.busBatteryCapacity
		v.onboard = make(map[ZoneID][]Request)
	default:
		v.mass = taxiMass
		v.batteryCapacity = w.cfg.evBatteryCapacity
	}
	v.battery = v.batteryCapacity
	v.committed.motion = MOTION_OFF_ROAD
	return v
}

// Class returns vehicle class
func (v *Vehicle) Class() VehicleClass {
	return v.class
}

// Length returns vehicle length (meters)
func (v *Vehicle) Length() float64 {
	return v.length
}

// Motion returns current motion state
func (v *Vehicle) Motion() MotionState {
	return v.motion
}

// Regime returns acceleration regime chosen at the last decision
func (v *Vehicle) Regime() Regime {
	return v.regime
}

// State returns trip state
func (v *Vehicle) State() TripState {
	return v.state
}

// Road returns current road or nil when vehicle is off road
func (v *Vehicle) Road() *Road {
	return v.road
}

// Lane returns current lane or nil
func (v *Vehicle) Lane() *Lane {
	return v.lane
}

// NextRoad returns next road of route or nil
func (v *Vehicle) NextRoad() *Road {
	return v.nextRoad
}

// Distance returns distance to downstream end of lane (meters)
func (v *Vehicle) Distance() float64 {
	return v.distance
}

// Speed returns current speed (m/s)
func (v *Vehicle) Speed() float64 {
	return v.speed
}

// Acceleration returns current acceleration (m/s^2)
func (v *Vehicle) Acceleration() float64 {
	return v.acc
}

// Coordinate returns WGS84 position interpolated along lane geometry
func (v *Vehicle) Coordinate() orb.Point {
	return v.coord
}

// Bearing returns heading in degrees
func (v *Vehicle) Bearing() float64 {
	return v.bearing
}

// Passengers returns number of passengers on board
func (v *Vehicle) Passengers() int {
	if v.class == VEHICLE_BUS {
		return v.busPassengers
	}
	return v.passengers
}

// BatteryLevel returns state of charge in kWh
func (v *Vehicle) BatteryLevel() float64 {
	return v.battery
}

// BatteryCapacity returns battery capacity in kWh
func (v *Vehicle) BatteryCapacity() float64 {
	return v.batteryCapacity
}

// Charge adds energy (kWh) to battery without exceeding its capacity
func (v *Vehicle) Charge(energy float64) {
	v.battery += energy
	if v.battery > v.batteryCapacity {
		v.battery = v.batteryCapacity
	}
}

// Path returns remaining route starting from current road
func (v *Vehicle) Path() []RoadID {
	ids := make([]RoadID, len(v.path))
	for i, road := range v.path {
		ids[i] = road.ID
	}
	return ids
}

// distFraction is distance to downstream junction relative to lane length
func (v *Vehicle) distFraction() float64 {
	if v.lane == nil || v.distance <= 0 {
		return 0
	}
	return v.distance / v.lane.length
}

// commit publishes live kinematic state
func (v *Vehicle) commit() {
	v.committed = committedState{
		distance: v.distance,
		speed:    v.speed,
		acc:      v.acc,
		motion:   v.motion,
	}
}

// updateCoordinate interpolates position along lane geometry
func (v *Vehicle) updateCoordinate() {
	if v.lane == nil {
		return
	}
	along := (1.0 - v.distFraction()) * geo.LengthHaversine(v.lane.geom)
	v.coord, v.bearing = positionAlongLine(v.lane.geom, along)
}
