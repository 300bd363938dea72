package microsim

import (
	"math"

	log "github.com/sirupsen/logrus"
)

// makeLaneChangingDecision runs mandatory lane changing in the downstream half of lane
// and discretionary one elsewhere
func (v *Vehicle) makeLaneChangingDecision() {
	cfg := v.w.cfg
	if v.motion != MOTION_ON_LANE || v.lane == nil || len(v.road.lanes) < 2 {
		return
	}
	if v.lane.length-v.distance < cfg.noLaneChangingLength {
		return
	}
	frac := v.distFraction()
	switch {
	case frac < 0.5:
		if v.isCorrectLane() {
			return
		}
		target := v.tempLane()
		if target == nil {
			return
		}
		v.mandatoryLC(v.adjacentLaneTowards(target))
	case frac > 0.75:
		if v.rng.Float64() < cfg.laneChangingProbPart1 {
			if plane := v.findBetterLane(); plane != nil {
				v.discretionaryLC(plane)
			}
		}
	default:
		if v.rng.Float64() < cfg.laneChangingProbPart2 {
			if plane := v.findBetterCorrectLane(); plane != nil {
				v.discretionaryLC(plane)
			}
		}
	}
}

// adjacentLaneTowards returns neighbouring lane in direction of target lane
func (v *Vehicle) adjacentLaneTowards(target *Lane) *Lane {
	switch {
	case target.index > v.lane.index:
		return v.road.Lane(v.lane.index + 1)
	case target.index < v.lane.index:
		return v.road.Lane(v.lane.index - 1)
	}
	return target
}

// mandatoryLC changes lane when both gaps are acceptable, otherwise starts nosing
func (v *Vehicle) mandatoryLC(plane *Lane) {
	if plane == nil || plane == v.lane {
		return
	}
	lead := v.leadVehicle(plane)
	lag := v.lagVehicle(plane)
	leadOK := lead == nil || v.leadGap(lead, plane) >= v.critLeadGapMLC(lead)
	lagOK := lag == nil || v.lagGap(lag, plane) >= v.critLagGapMLC(lag)
	if leadOK && lagOK {
		v.changeLane(plane, lead, lag)
		return
	}
	if v.distFraction() < v.w.cfg.critDisFraction {
		v.motion = MOTION_NOSING
		v.nosingLane = plane
		log.Debugf("Vehicle %d starts nosing towards lane %d", v.ID, plane.ID)
	}
}

// discretionaryLC changes lane when both gaps exceed critical ones
func (v *Vehicle) discretionaryLC(plane *Lane) {
	if plane == nil || plane == v.lane {
		return
	}
	lead := v.leadVehicle(plane)
	lag := v.lagVehicle(plane)
	if v.leadGap(lead, plane) > v.criticalLeadDLC(lead) && v.lagGap(lag, plane) > v.criticalLagDLC(lag) {
		v.changeLane(plane, lead, lag)
	}
}

// nosing forces deceleration while waiting for gap in target lane and pushes lag vehicle there to yield
func (v *Vehicle) nosing() float64 {
	cfg := v.w.cfg
	plane := v.nosingLane
	v.motion = MOTION_ON_LANE
	v.nosingLane = nil
	v.regime = REGIME_NOSING
	if plane == nil || plane.road != v.road {
		return v.calcCarFollowingRate(v.vehicleAhead())
	}
	lead := v.leadVehicle(plane)
	lag := v.lagVehicle(plane)
	if lag != nil && lag.motion == MOTION_ON_LANE && v.lagGap(lag, plane) < cfg.minLagMLC {
		lag.motion = MOTION_YIELDING
	}
	if lead != nil && v.leadGap(lead, plane) < v.critLeadGapMLC(lead) {
		return forcedDeceleration(v.speed)
	}
	acc := v.calcCarFollowingRate(v.vehicleAhead())
	v.regime = REGIME_NOSING
	return acc
}

// yielding decelerates to let nosing vehicle in
func (v *Vehicle) yielding() float64 {
	v.motion = MOTION_ON_LANE
	v.regime = REGIME_YIELDING
	return yieldingDeceleration(v.speed)
}

func forcedDeceleration(speed float64) float64 {
	switch {
	case speed > 12.2:
		return -1.47
	case speed > 6.1:
		return -2.04
	}
	return -2.4
}

// yieldingDeceleration is harder than forced one: lag vehicle has to open the gap quickly
func yieldingDeceleration(speed float64) float64 {
	switch {
	case speed > 24.3:
		return -2.44
	case speed > 18.3:
		return -2.6
	case speed > 12.2:
		return -2.74
	case speed > 6.1:
		return -2.9
	}
	return -3.05
}

func (v *Vehicle) mlcShrink() float64 {
	return 1.0 - math.Exp(-v.w.cfg.gammaMLC*v.distFraction()*v.lane.length)
}

// critLeadGapMLC shrinks to its minimum when vehicle approaches the junction
func (v *Vehicle) critLeadGapMLC(lead *Vehicle) float64 {
	cfg := v.w.cfg
	dv := 0.0
	if lead != nil {
		dv = v.speed - lead.committed.speed
	}
	return math.Max(cfg.minLeadMLC, cfg.minLeadMLC+(cfg.betaLeadMLC[0]*v.speed+cfg.betaLeadMLC[1]*dv)*v.mlcShrink())
}

func (v *Vehicle) critLagGapMLC(lag *Vehicle) float64 {
	cfg := v.w.cfg
	dv := 0.0
	if lag != nil {
		dv = lag.committed.speed - v.speed
	}
	return math.Max(cfg.minLagMLC, cfg.minLagMLC+(cfg.betaLagMLC[0]*v.speed+cfg.betaLagMLC[1]*dv)*v.mlcShrink())
}

func (v *Vehicle) criticalLeadDLC(lead *Vehicle) float64 {
	cfg := v.w.cfg
	dv := 0.0
	if lead != nil {
		dv = v.speed - lead.committed.speed
	}
	return math.Max(cfg.minLeadDLC, cfg.minLeadDLC+cfg.betaLeadDLC[0]*v.speed+cfg.betaLeadDLC[1]*dv)
}

func (v *Vehicle) criticalLagDLC(lag *Vehicle) float64 {
	cfg := v.w.cfg
	dv := 0.0
	if lag != nil {
		dv = lag.committed.speed - v.speed
	}
	return math.Max(cfg.minLagDLC, cfg.minLagDLC+cfg.betaLagDLC[0]*v.speed+cfg.betaLagDLC[1]*dv)
}

// leadGap is the gap to leader in target lane at the same relative position
func (v *Vehicle) leadGap(lead *Vehicle, plane *Lane) float64 {
	pos := v.distFraction() * plane.length
	if lead == nil {
		return pos
	}
	return pos - lead.distance - lead.length
}

// lagGap is the gap to follower in target lane at the same relative position
func (v *Vehicle) lagGap(lag *Vehicle, plane *Lane) float64 {
	pos := v.distFraction() * plane.length
	if lag == nil {
		return plane.length - pos
	}
	return lag.distance - pos - v.length
}

// leadVehicle walks macro list forward to the first vehicle in target lane
func (v *Vehicle) leadVehicle(plane *Lane) *Vehicle {
	fleet := v.w.fleet
	for id := v.macroLeading; id != NoVehicle; id = fleet.vehicles[id].macroLeading {
		if fleet.vehicles[id].lane == plane {
			return fleet.vehicles[id]
		}
	}
	return nil
}

// lagVehicle walks macro list backward to the first vehicle in target lane
func (v *Vehicle) lagVehicle(plane *Lane) *Vehicle {
	fleet := v.w.fleet
	for id := v.macroTrailing; id != NoVehicle; id = fleet.vehicles[id].macroTrailing {
		if fleet.vehicles[id].lane == plane {
			return fleet.vehicles[id]
		}
	}
	return nil
}

// betterLane prefers lane with fewer vehicles. Ties are broken by faster tail vehicle.
func (w *world) betterLane(a, b *Lane) *Lane {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.nVehicles < b.nVehicles:
		return a
	case b.nVehicles < a.nVehicles:
		return b
	}
	tailA, tailB := w.fleet.lastVehicle(a), w.fleet.lastVehicle(b)
	if tailA == nil {
		return a
	}
	if tailB == nil {
		return b
	}
	if tailB.speed > tailA.speed {
		return b
	}
	return a
}

// BetterLane compares two lanes for discretionary lane changing
func (sim *Simulation) BetterLane(a, b *Lane) *Lane {
	return sim.world.betterLane(a, b)
}

// findBetterLane looks for a faster neighbouring lane when own leader is slow.
// Neighbour has to beat the current lane.
func (v *Vehicle) findBetterLane() *Lane {
	if v.lane.firstVehicle == v.ID {
		return nil
	}
	target := v.w.betterLane(v.road.Lane(v.lane.index-1), v.road.Lane(v.lane.index+1))
	if target == nil {
		return nil
	}
	return v.acceptBetterLane(v.w.betterLane(v.lane, target))
}

// findBetterCorrectLane is findBetterLane restricted to lanes which keep the route
func (v *Vehicle) findBetterCorrectLane() *Lane {
	if v.lane.firstVehicle == v.ID {
		return nil
	}
	var target *Lane
	for _, idx := range []int{v.lane.index - 1, v.lane.index + 1} {
		plane := v.road.Lane(idx)
		if plane == nil {
			continue
		}
		if v.nextLane != nil && !plane.IsConnectedTo(v.nextLane) {
			continue
		}
		target = v.w.betterLane(target, plane)
	}
	if target == nil {
		return nil
	}
	return v.acceptBetterLane(v.w.betterLane(v.lane, target))
}

func (v *Vehicle) acceptBetterLane(target *Lane) *Lane {
	if target == nil || target == v.lane {
		return nil
	}
	front := v.leadVehicle(target)
	if front == nil {
		return target
	}
	leading := v.w.fleet.Vehicle(v.leading)
	if leading != nil && leading.speed < v.desiredSpeed && v.speed < v.desiredSpeed && front.speed > v.speed && front.committed.acc > 0 {
		return target
	}
	return nil
}

// changeLane re-splices vehicle into target lane preserving order
func (v *Vehicle) changeLane(plane *Lane, lead, lag *Vehicle) {
	fleet := v.w.fleet
	leadID, lagID := NoVehicle, NoVehicle
	if lead != nil {
		leadID = lead.ID
	}
	if lag != nil {
		lagID = lag.ID
	}
	from := v.lane
	fleet.removeFromLane(v)
	leadID, lagID = fleet.lanePosition(plane, v.distance, leadID, lagID)
	fleet.insertToLane(v, plane, leadID, lagID)
	v.assignNextLane()
	log.Debugf("Vehicle %d changed lane %d -> %d on road %d", v.ID, from.ID, plane.ID, v.road.ID)
}
