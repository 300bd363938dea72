package microsim

import (
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
)

// Plan is a single activity of vehicle: where to go and when to start
type Plan struct {
	Location      orb.Point
	DepartureTick int64
	Zone          ZoneID
	Station       StationID
}

// ZonePlan is plan heading to zone
func ZonePlan(zone ZoneID, location orb.Point, departure int64) Plan {
	return Plan{Zone: zone, Station: NoStation, Location: location, DepartureTick: departure}
}

// StationPlan is plan heading to charging station
func StationPlan(station StationID, location orb.Point, departure int64) Plan {
	return Plan{Zone: NoZone, Station: station, Location: location, DepartureTick: departure}
}

// addPlan appends activity to the queue
func (v *Vehicle) addPlan(plan Plan) {
	v.plans = append(v.plans, plan)
}

// setNextPlan makes the first queued activity the current destination.
// Current destination becomes the origin and the vehicle is routed again on the next road change.
func (v *Vehicle) setNextPlan() bool {
	if len(v.plans) == 0 {
		return false
	}
	next := v.plans[0]
	v.plans = v.plans[1:]
	v.origin = v.dest
	v.dest = next
	v.tripStart = next.DepartureTick
	v.destRoad = nil
	if road, ok := v.w.net.FindRoadAtCoordinates(next.Location); ok {
		v.destRoad = road
	}
	v.atOrigin = true
	return true
}

// modifyPlan redirects vehicle to a new destination. Vehicle already on road is rerouted immediately.
func (v *Vehicle) modifyPlan(plan Plan) bool {
	if !v.motion.OnRoad() {
		v.plans = append([]Plan{plan}, v.plans...)
		return false
	}
	if len(v.plans) > 0 {
		log.WithFields(v.logFields()).Warnf("Modifying vehicle with %d queued plans, queue is dropped", len(v.plans))
	}
	v.plans = v.plans[:0]
	v.dest = plan
	v.destRoad = nil
	if road, ok := v.w.net.FindRoadAtCoordinates(plan.Location); ok {
		v.destRoad = road
	}
	v.atOrigin = true
	v.setNextRoad()
	v.assignNextLane()
	v.w.checkArrival(v)
	return true
}

// departure queues off-road vehicle at the nearest road or reroutes on-road vehicle
func (v *Vehicle) departure() {
	if v.motion.OnRoad() {
		v.setNextRoad()
		v.assignNextLane()
		v.w.checkArrival(v)
		return
	}
	if v.motion == MOTION_PENDING {
		return
	}
	road, ok := v.w.net.FindRoadAtCoordinates(v.coord)
	if !ok {
		log.WithFields(v.logFields()).Errorf("Can't find road to depart from")
		return
	}
	v.road = road
	v.motion = MOTION_PENDING
	v.committed.motion = MOTION_PENDING
	v.atOrigin = true
	road.addPending(v.ID)
}
