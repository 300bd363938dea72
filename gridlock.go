package microsim

import (
	log "github.com/sirupsen/logrus"
)

// crossingRequest builds request to enter the next road. Vehicle which has been stuck for too long
// in front of a full lane asks for any other downstream lane having both space and a route to destination.
func (v *Vehicle) crossingRequest(now int64) *crossingRequest {
	if v.nextRoad == nil || v.nextLane == nil {
		v.motion = MOTION_ON_LANE
		return nil
	}
	cfg := v.w.cfg
	if v.stuckTicks >= cfg.maxStuckTicks() && v.w.committedEntranceGap(v.nextLane) < entranceGapFactor*v.length {
		if req := v.escapeRequest(now); req != nil {
			return req
		}
	}
	return &crossingRequest{vehicle: v, lane: v.nextLane}
}

// escapeRequest scans lanes of current road in order and their downstream lanes in order
func (v *Vehicle) escapeRequest(now int64) *crossingRequest {
	w := v.w
	if v.destRoad == nil {
		return nil
	}
	for _, lane := range v.road.lanes {
		for _, dn := range lane.dnLanes {
			if dn == v.nextLane {
				continue
			}
			if w.committedEntranceGap(dn) < entranceGapFactor*v.length || dn.LastEnterTick() >= now {
				continue
			}
			ids, ok := w.router.RouteToRoad(dn.road.ID, v.destRoad.ID)
			if !ok {
				continue
			}
			route, ok := w.roadsByIDs(ids)
			if !ok {
				continue
			}
			path := make([]*Road, 0, len(route)+1)
			path = append(path, v.road)
			path = append(path, route...)
			log.Debugf("Vehicle %d stuck for %d ticks asks for escape lane %d", v.ID, v.stuckTicks, dn.ID)
			return &crossingRequest{vehicle: v, lane: dn, path: path, gridlock: true}
		}
	}
	if v.stuckTicks == w.cfg.maxStuckTicks() {
		log.Warnf("Vehicle %d stuck for %d ticks on road %d has no escape lane", v.ID, v.stuckTicks, v.road.ID)
	}
	return nil
}
