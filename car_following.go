package microsim

import (
	"math"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	minSpeedSum = 1e-5
	minSpace    = 0.01
)

// calcState resamples desired speed and makes acceleration decision
func (v *Vehicle) calcState() {
	if v.road == nil {
		return
	}
	v.desiredSpeed = v.road.RandomFreeSpeed(v.rng.NormFloat64())
	v.makeAcceleratingDecision()
}

// makeAcceleratingDecision picks acceleration for the next move. Nosing and yielding flags
// are consumed here and vehicle returns to plain lane following.
func (v *Vehicle) makeAcceleratingDecision() {
	cfg := v.w.cfg
	if !v.motion.OnLane() {
		v.acc = 0
		v.regime = REGIME_AT_JUNCTION
		return
	}
	var acc float64
	switch v.motion {
	case MOTION_NOSING:
		acc = v.nosing()
	case MOTION_YIELDING:
		acc = v.yielding()
	default:
		acc = v.calcCarFollowingRate(v.vehicleAhead())
	}
	if math.IsNaN(acc) {
		log.WithFields(v.logFields()).Errorf("Acceleration is NaN, falling back to normal deceleration")
		acc = cfg.normalDeceleration
	}
	v.acc = lo.Clamp(acc, cfg.maxDeceleration, cfg.maxAcceleration)
}

// calcCarFollowingRate selects regime by time headway to front vehicle
func (v *Vehicle) calcCarFollowingRate(front *Vehicle) float64 {
	cfg := v.w.cfg
	if front == nil {
		v.regime = REGIME_FREE_FLOW
		return v.calcFreeFlowRate()
	}
	gap := v.gapDistance(front)
	frontSpeed := front.committed.speed
	speedSum := math.Max(v.speed+frontSpeed, minSpeedSum)
	headway := 2.0 * gap / speedSum
	switch {
	case headway < cfg.hLower:
		v.regime = REGIME_EMERGENCY
		var acc float64
		dv := v.speed - frontSpeed
		if dv < 0 {
			acc = front.committed.acc + 0.25*cfg.normalDeceleration
		} else {
			acc = front.committed.acc - 0.5*dv*dv/math.Max(gap, minSpace)
		}
		return math.Min(cfg.normalDeceleration, acc)
	case headway > cfg.hUpper:
		v.regime = REGIME_FREE_FLOW
		return v.calcFreeFlowRate()
	default:
		v.regime = REGIME_CAR_FOLLOWING
		dv := frontSpeed - v.speed
		space := math.Max(gap, minSpace)
		switch {
		case dv < 0:
			p := cfg.hermanDec
			return dv * p.Alpha * math.Pow(v.speed, p.Beta) / math.Pow(space, p.Gamma)
		case dv > 0:
			p := cfg.hermanAcc
			return dv * p.Alpha * math.Pow(v.speed, p.Beta) / math.Pow(space, p.Gamma)
		}
		return 0
	}
}

// calcFreeFlowRate accelerates to desired speed. Vehicle slows down in advance
// when next road is slower than the current speed.
func (v *Vehicle) calcFreeFlowRate() float64 {
	cfg := v.w.cfg
	if v.nextRoad != nil {
		nextSpeed := v.nextRoad.freeSpeed
		if nextSpeed < v.speed {
			decTime := (v.speed - nextSpeed) / math.Abs(cfg.normalDeceleration)
			if v.distance <= 0.5*(v.speed+nextSpeed)*decTime {
				return math.Max(cfg.maxDeceleration, -0.5*(v.speed*v.speed-nextSpeed*nextSpeed)/math.Max(v.distance, minSpace))
			}
		}
	}
	switch {
	case v.speed < v.desiredSpeed:
		return math.Min(cfg.maxAcceleration, (v.desiredSpeed-v.speed)/cfg.stepSize)
	case v.speed > v.desiredSpeed:
		return cfg.normalDeceleration
	}
	return 0
}

// vehicleAhead returns same-lane leader or, for the first vehicle of lane, the last vehicle of next lane
func (v *Vehicle) vehicleAhead() *Vehicle {
	fleet := v.w.fleet
	if v.leading != NoVehicle {
		return fleet.vehicles[v.leading]
	}
	if v.nextLane != nil && v.nextLane.lastVehicle != NoVehicle {
		front := fleet.vehicles[v.nextLane.lastVehicle]
		if front.committed.motion.OnLane() {
			return front
		}
	}
	return nil
}

// gapDistance is bumper-to-bumper distance to front vehicle computed from its committed state
func (v *Vehicle) gapDistance(front *Vehicle) float64 {
	if front == nil {
		return math.MaxFloat64
	}
	if front.lane == v.lane {
		if front.committed.motion.OnLane() {
			return v.distance - front.committed.distance - front.length
		}
		return v.distance - front.length
	}
	return v.distance + front.lane.length - front.committed.distance - front.length
}

func (v *Vehicle) logFields() log.Fields {
	fields := log.Fields{
		"vehicle":  v.ID,
		"class":    v.class,
		"state":    v.state,
		"motion":   v.motion,
		"regime":   v.regime,
		"distance": v.distance,
		"speed":    v.speed,
		"acc":      v.acc,
		"desired":  v.desiredSpeed,
	}
	if v.road != nil {
		fields["road"] = v.road.ID
	}
	if v.lane != nil {
		fields["lane"] = v.lane.ID
	}
	if v.nextRoad != nil {
		fields["next_road"] = v.nextRoad.ID
	}
	return fields
}
