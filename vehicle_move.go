package microsim

import (
	"math"

	log "github.com/sirupsen/logrus"
)

const (
	entranceGapFactor = 1.2
	stuckMove         = 0.001
)

// move integrates kinematics over one step. The move never exceeds the gap to front vehicle.
// Vehicle reaching the end of lane with somewhere to go stops at the junction.
func (v *Vehicle) move() {
	cfg := v.w.cfg
	dt := cfg.stepSize
	if !v.motion.OnLane() {
		v.speed = 0
		v.acc = 0
		v.lastStepMove = 0
		return
	}
	gap := v.gapDistance(v.vehicleAhead())
	dv := math.Max(v.acc*dt, -v.speed)
	var dx float64
	if dv+v.speed > 0 {
		dx = v.speed*dt + 0.5*dv*dt
	} else {
		dx = 0.5 * v.speed * dt
	}
	if dx > gap {
		dx = gap
	}
	if dx < 0 {
		if gap < 0 && v.leading != NoVehicle {
			log.WithFields(v.logFields()).Warnf("Negative gap %f to vehicle %d", gap, v.leading)
		}
		dx = 0
	}
	if math.IsNaN(dx) {
		log.WithFields(v.logFields()).Errorf("Move is NaN, vehicle is stopped")
		dx = 0
	}
	v.acc = math.Max(cfg.maxDeceleration, 2.0*(dx-v.speed*dt)/(dt*dt))
	v.speed = math.Max(v.speed+v.acc*dt, 0)
	if math.IsNaN(v.speed) {
		log.WithFields(v.logFields()).Errorf("Speed is NaN, vehicle is stopped")
		v.speed = 0
		v.acc = 0
	}
	if dx >= v.distance {
		dx = v.distance
		v.distance = 0
		if v.nextRoad != nil {
			v.motion = MOTION_AT_JUNCTION
			v.regime = REGIME_AT_JUNCTION
		}
	} else {
		v.distance -= dx
	}
	v.lastStepMove = dx
	v.tripDistance += dx
	if dx <= stuckMove {
		v.stuckTicks++
	} else {
		v.stuckTicks = 0
	}
	v.w.fleet.advanceInMacroList(v)
	v.updateCoordinate()
}

// entranceGap is free space at the upstream end of lane
func (w *world) entranceGap(lane *Lane) float64 {
	if lane == nil {
		return 0
	}
	last := w.fleet.lastVehicle(lane)
	if last == nil {
		return math.MaxFloat64
	}
	return lane.length - last.distance - last.length
}

// committedEntranceGap is entranceGap computed from published state only.
// It is safe to use from partitions which do not own the lane.
func (w *world) committedEntranceGap(lane *Lane) float64 {
	if lane == nil {
		return 0
	}
	last := w.fleet.lastVehicle(lane)
	if last == nil {
		return math.MaxFloat64
	}
	return lane.length - last.committed.distance - last.length
}

func (v *Vehicle) entranceGap(lane *Lane) float64 {
	return v.w.entranceGap(lane)
}

// hasEntrance reports whether lane could accept vehicle at given tick
func (v *Vehicle) hasEntrance(lane *Lane, tick int64) bool {
	return lane != nil && v.entranceGap(lane) >= entranceGapFactor*v.length && lane.LastEnterTick() < tick
}

// enterNetwork puts pending vehicle at the upstream end of the rightmost lane of its origin road
func (v *Vehicle) enterNetwork(road *Road, tick int64) bool {
	lane := road.lanes[len(road.lanes)-1]
	if v.entranceGap(lane) < entranceGapFactor*v.length {
		return false
	}
	if !lane.claimEntry(tick) {
		return false
	}
	fleet := v.w.fleet
	fleet.appendToLane(v, lane)
	fleet.appendToMacroList(v, road)
	v.motion = MOTION_ON_LANE
	v.regime = REGIME_FREE_FLOW
	v.speed = 0
	v.acc = 0
	v.stuckTicks = 0
	v.enteredTick = tick
	v.tripDistance = 0
	v.setNextRoad()
	v.assignNextLane()
	v.updateCoordinate()
	v.commit()
	log.Debugf("Vehicle %d entered network on road %d at tick %d", v.ID, road.ID, tick)
	return true
}

// detachFromRoad removes vehicle from its lane and road lists
func (v *Vehicle) detachFromRoad() {
	fleet := v.w.fleet
	if v.lane != nil {
		fleet.removeFromLane(v)
	}
	if v.road != nil {
		fleet.removeFromMacroList(v)
	}
}

// changeRoad appends vehicle into granted lane and advances its route.
// Vehicle has already been detached from the previous road.
func (v *Vehicle) changeRoad(lane *Lane, tick int64) {
	fleet := v.w.fleet
	fleet.appendToLane(v, lane)
	fleet.appendToMacroList(v, lane.road)
	v.motion = MOTION_ON_LANE
	v.stuckTicks = 0
	v.enteredTick = tick
	v.setNextRoad()
	v.assignNextLane()
	v.updateCoordinate()
}

// setNextRoad advances route by one road. Vehicle at origin is routed first.
func (v *Vehicle) setNextRoad() {
	if !v.atOrigin {
		if len(v.path) > 0 {
			v.removeShadowCount(v.path[0])
			v.path = v.path[1:]
		}
		for len(v.path) > 0 && v.path[0] != v.road {
			log.WithFields(v.logFields()).Warnf("Route is out of sync with current road, dropping road %d", v.path[0].ID)
			v.removeShadowCount(v.path[0])
			v.path = v.path[1:]
		}
		if v.road == v.destRoad || len(v.path) < 2 {
			v.nextRoad = nil
			return
		}
		v.nextRoad = v.path[1]
		return
	}
	v.clearShadowImpact()
	path, choice, ok := v.route()
	if !ok {
		log.WithFields(v.logFields()).Errorf("Can't find route to destination, vehicle stays at origin")
		v.path = nil
		v.nextRoad = nil
		return
	}
	v.path = path
	v.routeChoice = choice
	v.setShadowImpact()
	v.atOrigin = false
	if len(path) < 2 {
		v.nextRoad = nil
		return
	}
	v.nextRoad = path[1]
}

// route asks router for path starting at current road. Eco routing is preferred between zones.
func (v *Vehicle) route() ([]*Road, int, bool) {
	w := v.w
	if v.road == nil {
		return nil, -1, false
	}
	if eco, ok := w.router.(EcoRouter); ok && v.origin.Zone != NoZone && v.dest.Zone != NoZone {
		if ids, choice, found := eco.EcoRoute(v.road.ID, v.origin.Zone, v.dest.Zone); found && len(ids) > 0 && ids[0] == v.road.ID {
			if path, ok := w.roadsByIDs(ids); ok {
				return path, choice, true
			}
		}
	}
	var ids []RoadID
	var found bool
	if v.destRoad != nil {
		ids, found = w.router.RouteToRoad(v.road.ID, v.destRoad.ID)
	} else {
		ids, found = w.router.Route(v.road.ID, v.dest.Location)
	}
	if !found || len(ids) == 0 || ids[0] != v.road.ID {
		return nil, -1, false
	}
	path, ok := w.roadsByIDs(ids)
	if !ok {
		return nil, -1, false
	}
	if v.destRoad == nil {
		v.destRoad = path[len(path)-1]
	}
	return path, -1, true
}

// assignNextLane picks lane of next road. Connected lane of the current lane is preferred,
// otherwise the one reachable from the nearest lane of current road.
func (v *Vehicle) assignNextLane() {
	if v.nextRoad == nil || v.lane == nil {
		v.nextLane = nil
		return
	}
	for _, dn := range v.lane.dnLanes {
		if dn.road == v.nextRoad {
			v.nextLane = dn
			return
		}
	}
	for offset := 1; offset < len(v.road.lanes); offset++ {
		for _, idx := range []int{v.lane.index + offset, v.lane.index - offset} {
			lane := v.road.Lane(idx)
			if lane == nil {
				continue
			}
			for _, dn := range lane.dnLanes {
				if dn.road == v.nextRoad {
					v.nextLane = dn
					return
				}
			}
		}
	}
	log.WithFields(v.logFields()).Warnf("Road %d is not reachable from road %d through lanes", v.nextRoad.ID, v.road.ID)
	v.nextLane = v.nextRoad.lanes[0]
}

// isCorrectLane reports whether current lane leads into next lane
func (v *Vehicle) isCorrectLane() bool {
	if v.nextRoad == nil || v.nextLane == nil {
		return true
	}
	return v.lane.IsConnectedTo(v.nextLane)
}

// tempLane is the lane of current road which leads into next lane, nearest to the current one
func (v *Vehicle) tempLane() *Lane {
	if v.nextLane == nil {
		return nil
	}
	var best *Lane
	bestOffset := math.MaxInt32
	for _, up := range v.nextLane.upLanes {
		if up.road != v.road {
			continue
		}
		offset := up.index - v.lane.index
		if offset < 0 {
			offset = -offset
		}
		if offset < bestOffset {
			best = up
			bestOffset = offset
		}
	}
	return best
}

// leaveNetwork removes vehicle from every structure of the road network
func (v *Vehicle) leaveNetwork() {
	if v.motion.OnRoad() {
		v.w.left.Add(1)
	}
	v.clearShadowImpact()
	if v.motion == MOTION_PENDING && v.road != nil {
		v.road.removePending(v.ID)
		v.road = nil
	} else {
		v.detachFromRoad()
	}
	v.lane = nil
	v.road = nil
	v.nextRoad = nil
	v.nextLane = nil
	v.nosingLane = nil
	v.path = nil
	v.atOrigin = true
	v.motion = MOTION_OFF_ROAD
	v.speed = 0
	v.acc = 0
	v.distance = 0
	v.stuckTicks = 0
	v.commit()
}
