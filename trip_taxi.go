package microsim

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	log "github.com/sirupsen/logrus"
)

// reachDest handles vehicle which has just reached the road of its destination
func (sim *Simulation) reachDest(v *Vehicle, now int64) {
	if v.dest.Location != (orb.Point{}) {
		v.coord = v.dest.Location
	}
	switch {
	case v.state == TRIP_CHARGING && v.dest.Station != NoStation:
		v.reachStation(now)
	case v.class == VEHICLE_BUS:
		v.reachStop(now)
	case v.state == TRIP_NONE:
		v.recordTrip(now)
		v.leaveNetwork()
		log.Debugf("Vehicle %d finished its trip at tick %d", v.ID, now)
	default:
		v.reachDestTaxi(now)
	}
}

// reachStation puts vehicle into charging station queue
func (v *Vehicle) reachStation(now int64) {
	v.recordTrip(now)
	v.leaveNetwork()
	station, ok := v.w.stations[v.dest.Station]
	if !ok {
		log.WithFields(v.logFields()).Errorf("Unknown charging station %d", v.dest.Station)
		v.finishCharging(ChargeResult{Vehicle: v, Station: v.dest.Station}, now)
		return
	}
	v.station = station.ID()
	station.Receive(v, now)
	log.Debugf("Vehicle %d arrived at charging station %d", v.ID, station.ID())
}

// needsCharging checks battery against recharge levels. Proactive charging starts earlier
// when the zone has plenty of taxis.
func (v *Vehicle) needsCharging(zone Zone) bool {
	cfg := v.w.cfg
	ratio := v.batteryRatio()
	if ratio <= cfg.rechargeLevelLow {
		return true
	}
	return cfg.proactiveCharging && ratio <= cfg.rechargeLevelHigh && zone != nil && zone.HasEnoughTaxi(5)
}

func (v *Vehicle) reachDestTaxi(now int64) {
	w := v.w
	zone := w.zone(v.dest.Zone)
	v.recordTrip(now)
	switch v.state {
	case TRIP_OCCUPIED:
		v.passengers--
		if zone != nil {
			zone.RemoveFutureSupply()
		}
		if v.passengers > 0 {
			v.leaveNetwork()
			v.setNextPlan()
			if next := w.zone(v.dest.Zone); next != nil {
				next.AddFutureSupply()
			}
			v.departure()
			return
		}
		v.joinZone(zone, now)
	case TRIP_PICKUP:
		v.state = TRIP_OCCUPIED
		v.leaveNetwork()
		v.setNextPlan()
		if next := w.zone(v.dest.Zone); next != nil {
			next.AddFutureSupply()
		}
		v.departure()
	case TRIP_CRUISING:
		if zone == nil {
			log.WithFields(v.logFields()).Errorf("Cruising vehicle has no zone")
			v.leaveNetwork()
			return
		}
		if v.cruisingTime > w.cfg.maxCruisingTicks() {
			v.cruisingTime = 0
			v.goParking(zone, now)
			return
		}
		if v.needsCharging(zone) {
			zone.RemoveCruisingTaxi(v.ID)
			v.goCharging(now)
			return
		}
		if zone.HasCapacity() {
			zone.RemoveCruisingTaxi(v.ID)
			v.cruisingTime = 0
			v.getParked(zone)
			return
		}
		v.cruisingTime += now - v.tripStart
		v.goCruising(zone, now)
	case TRIP_RELOCATION_ACCESSIBLE, TRIP_RELOCATION_INACCESSIBLE:
		if zone != nil {
			zone.RemoveFutureSupply()
		}
		v.joinZone(zone, now)
	default:
		log.WithFields(v.logFields()).Errorf("Vehicle reached destination in unexpected state")
		v.leaveNetwork()
	}
}

// joinZone parks, cruises or goes charging after service in zone
func (v *Vehicle) joinZone(zone Zone, now int64) {
	if v.needsCharging(zone) {
		v.goCharging(now)
		return
	}
	if zone == nil {
		log.WithFields(v.logFields()).Errorf("Vehicle has no zone to join")
		v.leaveNetwork()
		v.state = TRIP_NONE
		return
	}
	if zone.HasCapacity() {
		v.getParked(zone)
		return
	}
	v.cruisingTime = 0
	v.goCruising(zone, now)
}

// nearestStation returns charging station closest to vehicle
func (w *world) nearestStation(pt orb.Point) ChargingStation {
	var best ChargingStation
	bestDist := math.MaxFloat64
	for _, id := range sortedStationIDs(w.stations) {
		station := w.stations[id]
		dist := geo.DistanceHaversine(station.Coordinate(), pt)
		if dist < bestDist {
			best = station
			bestDist = dist
		}
	}
	return best
}

// goCharging sends vehicle to the nearest charging station and queues return to current destination zone
func (v *Vehicle) goCharging(now int64) bool {
	station := v.w.nearestStation(v.coord)
	if station == nil {
		log.WithFields(v.logFields()).Errorf("No charging station available")
		return false
	}
	back := v.dest
	v.plans = append([]Plan{StationPlan(station.ID(), station.Coordinate(), now)}, v.plans...)
	v.setNextPlan()
	if v.class == VEHICLE_BUS {
		back = v.busStopPlan(0, now)
		v.plans = append(v.plans[:0], back)
	} else if back.Zone != NoZone {
		back.DepartureTick = now
		v.addPlan(back)
	}
	v.state = TRIP_CHARGING
	v.departure()
	log.Debugf("Vehicle %d is on route to charging station %d", v.ID, station.ID())
	return true
}

// goCruising drives taxi towards the end of a random neighbouring link of zone
func (v *Vehicle) goCruising(zone Zone, now int64) {
	links := zone.NeighboringLinks()
	var current *Road
	if v.road != nil {
		current = v.road
	} else if road, ok := v.w.net.FindRoadAtCoordinates(v.coord); ok {
		current = road
	}
	candidates := make([]*Road, 0, len(links))
	for _, id := range links {
		road, ok := v.w.net.Road(id)
		if !ok || road == current {
			continue
		}
		candidates = append(candidates, road)
	}
	if len(candidates) == 0 {
		log.WithFields(v.logFields()).Warnf("Zone %d has no links for cruising, vehicle parks anyway", zone.ID())
		v.getParked(zone)
		return
	}
	road := candidates[v.rng.Intn(len(candidates))]
	v.addPlan(ZonePlan(zone.ID(), road.geom[len(road.geom)-1], now))
	v.setNextPlan()
	if v.state != TRIP_CRUISING {
		zone.AddCruisingTaxi(v.ID)
	}
	v.state = TRIP_CRUISING
	v.parkZone = NoZone
	v.departure()
}

// stopCruising records cruising trip. Vehicle waiting at junction leaves the network to be rerouted.
func (v *Vehicle) stopCruising(now int64) {
	v.recordTrip(now)
	if v.motion == MOTION_AT_JUNCTION {
		v.leaveNetwork()
	}
	v.cruisingTime = 0
	v.state = TRIP_NONE
}

// goParking relocates taxi which has cruised for too long to the first neighbouring zone with free space
func (v *Vehicle) goParking(zone Zone, now int64) {
	zone.RemoveCruisingTaxi(v.ID)
	for _, id := range zone.NeighboringZones() {
		neighbor := v.w.zone(id)
		if neighbor == nil || !neighbor.HasCapacity() {
			continue
		}
		neighbor.AddFutureSupply()
		v.relocate(neighbor, false, now)
		return
	}
	log.Debugf("Vehicle %d found no neighbouring zone with free space, keeps cruising", v.ID)
	zone.AddCruisingTaxi(v.ID)
	v.goCruising(zone, now)
}

// getParked takes vehicle off road into zone's parking lot
func (v *Vehicle) getParked(zone Zone) {
	v.leaveNetwork()
	v.coord = zone.Coordinate()
	v.state = TRIP_PARKING
	v.parkZone = zone.ID()
	zone.AddParkedTaxi(v.ID)
}

// relocate drives vehicle to another zone. Accessible relocation lets the vehicle be dispatched on its way.
func (v *Vehicle) relocate(zone Zone, accessible bool, now int64) {
	if v.state == TRIP_CRUISING {
		v.stopCruising(now)
	}
	v.addPlan(ZonePlan(zone.ID(), zone.Coordinate(), now))
	v.setNextPlan()
	v.departure()
	if accessible {
		v.state = TRIP_RELOCATION_ACCESSIBLE
	} else {
		v.state = TRIP_RELOCATION_INACCESSIBLE
	}
}

// servePassengers takes passengers of zone: parked taxi leaves at once, cruising one comes back to pick them up
func (v *Vehicle) servePassengers(requests []Request, now int64) {
	if len(requests) == 0 {
		return
	}
	w := v.w
	pickup := requests[0].Origin
	switch v.state {
	case TRIP_CRUISING:
		if zone := w.zone(v.dest.Zone); zone != nil {
			zone.RemoveCruisingTaxi(v.ID)
		}
		v.stopCruising(now)
		zone := w.zone(pickup)
		if zone == nil {
			log.WithFields(v.logFields()).Errorf("Unknown pickup zone %d", pickup)
			return
		}
		v.addPlan(ZonePlan(pickup, zone.Coordinate(), now))
		v.state = TRIP_PICKUP
	case TRIP_PARKING:
		if zone := w.zone(v.parkZone); zone != nil {
			zone.RemoveParkedTaxi(v.ID)
		}
		v.parkZone = NoZone
		v.state = TRIP_OCCUPIED
	default:
		log.WithFields(v.logFields()).Errorf("Vehicle is neither cruising nor parking but serves passengers")
		return
	}
	for _, req := range requests {
		zone := w.zone(req.Destination)
		if zone == nil {
			log.Errorf("Request %s has unknown destination zone %d", req.ID, req.Destination)
			continue
		}
		v.addPlan(ZonePlan(req.Destination, zone.Coordinate(), now))
		v.passengers++
	}
	v.servedRequests += len(requests)
	v.setNextPlan()
	if v.state == TRIP_OCCUPIED {
		if zone := w.zone(v.dest.Zone); zone != nil {
			zone.AddFutureSupply()
		}
	}
	v.departure()
}

// finishCharging sends vehicle back to work after charging session
func (v *Vehicle) finishCharging(result ChargeResult, now int64) {
	v.w.collector.RecordCharging(ChargingRecord{
		RunID:        v.w.runID,
		Tick:         now,
		Vehicle:      v.ID,
		Class:        v.class,
		Station:      result.Station,
		Charger:      result.Charger,
		WaitTicks:    result.WaitTicks,
		ChargeTicks:  result.ChargeTicks,
		InitialLevel: result.InitialLevel,
		FinalLevel:   v.battery,
	})
	v.station = NoStation
	if v.class == VEHICLE_BUS {
		v.state = TRIP_BUS
	} else {
		v.state = TRIP_RELOCATION_INACCESSIBLE
	}
	if !v.setNextPlan() {
		v.state = TRIP_NONE
		log.WithFields(v.logFields()).Warnf("Vehicle has nothing to do after charging")
		return
	}
	if v.state == TRIP_RELOCATION_INACCESSIBLE {
		if zone := v.w.zone(v.dest.Zone); zone != nil {
			zone.AddFutureSupply()
		}
	}
	v.departure()
	log.Debugf("Vehicle %d finished charging with %.2f kWh", v.ID, v.battery)
}

// dispatch serves waiting taxi passengers of zone with parked taxis first, cruising ones next
func (sim *Simulation) dispatch(zone Zone, now int64) {
	for zone.PendingTaxiRequests() > 0 {
		id, ok := zone.PopParkedTaxi()
		if !ok {
			id, ok = zone.PopCruisingTaxi()
		}
		if !ok {
			return
		}
		sim.fleet.vehicles[id].servePassengers(zone.TakeTaxiRequests(1), now)
	}
}

// recordTrip reports finished trip and resets trip counters
func (v *Vehicle) recordTrip(now int64) {
	v.w.collector.RecordTrip(TripRecord{
		RunID:         v.w.runID,
		Tick:          now,
		Vehicle:       v.ID,
		Class:         v.class,
		State:         v.state,
		Origin:        v.origin.Zone,
		Destination:   v.dest.Zone,
		Station:       v.dest.Station,
		DepartureTick: v.tripStart,
		Distance:      v.tripDistance,
		Energy:        v.tripEnergy,
		RouteChoice:   v.routeChoice,
		Passengers:    v.Passengers(),
	})
	v.tripDistance = 0
	v.tripEnergy = 0
	v.routeChoice = -1
}
