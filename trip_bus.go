package microsim

import (
	log "github.com/sirupsen/logrus"
)

// busStopPlan is plan heading to i-th stop of bus route
func (v *Vehicle) busStopPlan(i int, departure int64) Plan {
	stop := v.stops[i]
	zone := v.w.zone(stop)
	if zone == nil {
		return ZonePlan(stop, v.coord, departure)
	}
	return ZonePlan(stop, zone.Coordinate(), departure)
}

// updateSchedule assigns bus to route. Bus stays at the first stop until the first departure.
func (v *Vehicle) updateSchedule(routeID int, stops []ZoneID, departures []int64) {
	v.busRoute = routeID
	v.stops = append(v.stops[:0], stops...)
	v.departures = append(v.departures[:0], departures...)
	v.cycle = 0
	v.state = TRIP_BUS
	if len(v.departures) == 0 {
		v.state = TRIP_NONE
		log.Warnf("Bus %d of route %d has no departures", v.ID, routeID)
		return
	}
	v.startCycle(v.departures[0])
}

// startCycle boards passengers of the first stop and heads to the second one
func (v *Vehicle) startCycle(departure int64) {
	v.nextStop = 0
	v.board()
	v.nextStop = 1
	v.plans = v.plans[:0]
	v.addPlan(v.busStopPlan(1, departure))
	v.setNextPlan()
	v.departure()
}

// board takes waiting passengers of current stop heading to one of the following stops
func (v *Vehicle) board() {
	zone := v.w.zone(v.stops[v.nextStop])
	if zone == nil {
		return
	}
	seats := v.w.cfg.busCapacity - v.busPassengers
	for _, req := range zone.ServePassengerByBus(seats, v.stops[v.nextStop+1:]) {
		v.onboard[req.Destination] = append(v.onboard[req.Destination], req)
		v.busPassengers++
		v.servedRequests++
	}
}

// alight drops passengers of current stop. Passengers with a further leg wait for taxi there.
func (v *Vehicle) alight(now int64) int {
	stop := v.stops[v.nextStop]
	riders := v.onboard[stop]
	delete(v.onboard, stop)
	v.busPassengers -= len(riders)
	zone := v.w.zone(stop)
	for _, req := range riders {
		if req.Next == nil || zone == nil {
			continue
		}
		next := *req.Next
		next.CreatedTick = now
		zone.InsertTaxiPass(next)
	}
	return len(riders)
}

// reachStop handles bus arriving at the stop it was heading to
func (v *Vehicle) reachStop(now int64) {
	if v.state != TRIP_BUS {
		log.WithFields(v.logFields()).Errorf("Bus reached stop in unexpected state")
		v.leaveNetwork()
		return
	}
	v.recordTrip(now)
	n := v.alight(now)
	log.Debugf("Bus %d of route %d: %d passengers alighted at stop %d", v.ID, v.busRoute, n, v.stops[v.nextStop])

	last := len(v.stops) - 1
	switch {
	case v.nextStop == 0:
		v.leaveNetwork()
		v.cycle++
		if v.cycle >= len(v.departures) {
			v.state = TRIP_NONE
			log.Debugf("Bus %d of route %d finished its schedule", v.ID, v.busRoute)
			return
		}
		departure := v.departures[v.cycle]
		if departure <= now {
			departure = now + 1
		}
		v.startCycle(departure)
	case v.nextStop == last:
		if v.needsCharging(v.w.zone(v.stops[last])) && v.goCharging(now) {
			v.nextStop = 0
			return
		}
		v.nextStop = 0
		v.addPlan(v.busStopPlan(0, now))
		v.setNextPlan()
		v.departure()
	default:
		v.board()
		v.nextStop++
		v.addPlan(v.busStopPlan(v.nextStop, now))
		v.setNextPlan()
		v.departure()
	}
}
