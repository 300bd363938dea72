package microsim

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// crossingRequest is a vehicle's request to enter lane of the next road.
// Granted flag is written by the partition owning the lane and read after barrier.
type crossingRequest struct {
	vehicle  *Vehicle
	lane     *Lane
	path     []*Road
	gridlock bool
	granted  bool
}

// partition is a set of roads processed by one goroutine within each phase
type partition struct {
	roads    []*Road
	outgoing []*crossingRequest
	inbox    []*crossingRequest
	arrivals []*Vehicle
	buf      []*Vehicle
	idx      int
}

// parallel runs fn for every partition and waits for all of them
func (sim *Simulation) parallel(fn func(p *partition)) {
	if len(sim.partitions) == 1 {
		fn(sim.partitions[0])
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(sim.partitions))
	for _, p := range sim.partitions {
		go func(p *partition) {
			defer wg.Done()
			fn(p)
		}(p)
	}
	wg.Wait()
}

// runTick executes all phases of a single tick
func (sim *Simulation) runTick(now int64) {
	for _, p := range sim.partitions {
		p.outgoing = p.outgoing[:0]
		p.inbox = p.inbox[:0]
		p.arrivals = p.arrivals[:0]
		for dst := range sim.outbox[p.idx] {
			sim.outbox[p.idx][dst] = sim.outbox[p.idx][dst][:0]
		}
	}
	sim.parallel(sim.decide)
	sim.parallel(sim.changeLanes)
	sim.parallel(func(p *partition) { sim.moveVehicles(p, now) })
	sim.parallel(func(p *partition) { sim.claimLanes(p, now) })
	sim.parallel(sim.detachGranted)
	sim.parallel(func(p *partition) { sim.attachGranted(p, now) })
	sim.parallel(func(p *partition) { sim.commitState(p, now) })
	sim.sequential(now)
}

// decide makes acceleration decisions of every vehicle, front to back on each road
func (sim *Simulation) decide(p *partition) {
	for _, road := range p.roads {
		p.buf = sim.fleet.macroOrder(road, p.buf)
		for _, v := range p.buf {
			v.calcState()
		}
	}
}

// changeLanes makes lane-changing decisions. Only lists of own roads are modified.
func (sim *Simulation) changeLanes(p *partition) {
	for _, road := range p.roads {
		if len(road.lanes) < 2 {
			continue
		}
		p.buf = sim.fleet.macroOrder(road, p.buf)
		for _, v := range p.buf {
			v.makeLaneChangingDecision()
		}
	}
}

// moveVehicles integrates motion and posts crossing requests of vehicles waiting at junctions
func (sim *Simulation) moveVehicles(p *partition, now int64) {
	for _, road := range p.roads {
		p.buf = sim.fleet.macroOrder(road, p.buf)
		for _, v := range p.buf {
			v.move()
			if v.motion != MOTION_AT_JUNCTION {
				continue
			}
			req := v.crossingRequest(now)
			if req == nil {
				continue
			}
			p.outgoing = append(p.outgoing, req)
			dst := req.lane.road.partition
			sim.outbox[p.idx][dst] = append(sim.outbox[p.idx][dst], req)
		}
	}
}

// claimLanes resolves requests for lanes of own roads. Plain crossings go before gridlock escapes,
// ties are broken by vehicle id. Each lane admits at most one vehicle per tick.
func (sim *Simulation) claimLanes(p *partition, now int64) {
	for src := range sim.outbox {
		p.inbox = append(p.inbox, sim.outbox[src][p.idx]...)
	}
	sort.Slice(p.inbox, func(i, j int) bool {
		if p.inbox[i].gridlock != p.inbox[j].gridlock {
			return !p.inbox[i].gridlock
		}
		return p.inbox[i].vehicle.ID < p.inbox[j].vehicle.ID
	})
	for _, req := range p.inbox {
		if sim.entranceGap(req.lane) < entranceGapFactor*req.vehicle.length {
			continue
		}
		if !req.lane.claimEntry(now) {
			continue
		}
		req.granted = true
	}
}

// detachGranted removes granted vehicles from their old roads; the rest keep waiting
func (sim *Simulation) detachGranted(p *partition) {
	for _, req := range p.outgoing {
		v := req.vehicle
		if req.granted {
			v.detachFromRoad()
			continue
		}
		v.speed = 0
		v.acc = 0
		v.lastStepMove = 0
		v.stuckTicks++
	}
}

// attachGranted appends granted vehicles to their new lanes and admits pending departures
func (sim *Simulation) attachGranted(p *partition, now int64) {
	for _, req := range p.inbox {
		if !req.granted {
			continue
		}
		v := req.vehicle
		if req.gridlock {
			v.clearShadowImpact()
			v.path = req.path
			v.setShadowImpact()
			log.Infof("Vehicle %d escaped gridlock into lane %d of road %d", v.ID, req.lane.ID, req.lane.road.ID)
		}
		v.changeRoad(req.lane, now)
		if isArrived(v) {
			p.arrivals = append(p.arrivals, v)
		}
	}
	for _, road := range p.roads {
		if len(road.pending) == 0 {
			continue
		}
		kept := road.pending[:0]
		blocked := false
		for _, id := range road.pending {
			v := sim.fleet.vehicles[id]
			if blocked || v.tripStart > now {
				kept = append(kept, id)
				continue
			}
			if !v.enterNetwork(road, now) {
				blocked = true
				kept = append(kept, id)
				continue
			}
			sim.entered.Add(1)
			if isArrived(v) {
				p.arrivals = append(p.arrivals, v)
			}
		}
		road.pending = kept
	}
}

// commitState publishes kinematic state, spends energy, samples speeds and retries failed routing
func (sim *Simulation) commitState(p *partition, now int64) {
	for _, road := range p.roads {
		p.buf = sim.fleet.macroOrder(road, p.buf)
		for _, v := range p.buf {
			v.commit()
			v.updateBatteryLevel()
			if v.motion.OnLane() {
				road.recordSpeed(v.speed)
			}
			if v.atOrigin && v.enteredTick != now && v.motion.OnLane() {
				v.setNextRoad()
				v.assignNextLane()
				if isArrived(v) {
					p.arrivals = append(p.arrivals, v)
				}
			}
		}
	}
}

// sequential runs the part of tick which touches shared non-partitioned state
func (sim *Simulation) sequential(now int64) {
	arrivals := sim.deferred
	sim.deferred = nil
	for _, p := range sim.partitions {
		arrivals = append(arrivals, p.arrivals...)
	}
	sort.Slice(arrivals, func(i, j int) bool { return arrivals[i].ID < arrivals[j].ID })
	var last *Vehicle
	for _, v := range arrivals {
		if v == last {
			continue
		}
		last = v
		if !isArrived(v) {
			continue
		}
		sim.reachDest(v, now)
	}

	for _, id := range sortedStationIDs(sim.stations) {
		for _, result := range sim.stations[id].Step(now, sim.cfg.stepSize) {
			result.Vehicle.finishCharging(result, now)
		}
	}

	if sim.demand != nil {
		for _, req := range sim.demand.Generate(now) {
			if err := sim.insertRequest(req); err != nil {
				log.Warnf("Request %s is dropped: %s", req.ID, err.Error())
			}
		}
	}

	for _, id := range sortedZoneIDs(sim.zones) {
		zone := sim.zones[id]
		for _, req := range zone.Step(1) {
			log.Debugf("Passenger %s left zone %d after %d ticks", req.ID, id, req.WaitTicks)
		}
		sim.dispatch(zone, now)
	}

	if sim.tickRecords > 0 && now%sim.tickRecords == 0 {
		sim.collector.RecordTick(sim.tickRecord(now))
	}

	if sim.cfg.networkRefresh > 0 && now%sim.cfg.networkRefresh == 0 {
		sim.net.refreshTravelTimes(sim.cfg.vehicleLength)
		if refresher, ok := sim.router.(interface{ Refresh() error }); ok {
			if err := refresher.Refresh(); err != nil {
				log.Errorf("Can't refresh router: %s", err.Error())
			}
		}
	}
	if len(sim.partitions) > 1 && sim.cfg.partitionRefresh > 0 && now%sim.cfg.partitionRefresh == 0 {
		sim.repartition()
	}
}

func sortedStationIDs(stations map[StationID]ChargingStation) []StationID {
	ids := make([]StationID, 0, len(stations))
	for id := range stations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
