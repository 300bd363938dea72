package microsim

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
)

// ChargerType is kind of charger at station
type ChargerType uint16

const (
	CHARGER_L2 = ChargerType(iota + 1)
	CHARGER_L3
	CHARGER_BUS
)

func (iotaIdx ChargerType) String() string {
	return [...]string{"L2", "L3", "bus"}[iotaIdx-1]
}

// Default charging power, kW
const (
	chargingRateL2  = 10.0
	chargingRateL3  = 50.0
	chargingRateBus = 100.0
)

// ChargeResult describes finished charging session
type ChargeResult struct {
	Vehicle      *Vehicle
	Station      StationID
	Charger      ChargerType
	WaitTicks    int64
	ChargeTicks  int64
	InitialLevel float64
}

// ChargingStation is a place where vehicles wait for a free charger and charge
type ChargingStation interface {
	ID() StationID
	Coordinate() orb.Point
	Capacity() int
	CapacityBus() int
	Receive(v *Vehicle, tick int64)
	// Step charges vehicles for dt seconds and returns finished sessions ordered by vehicle id
	Step(tick int64, dt float64) []ChargeResult
}

type chargingSession struct {
	vehicle      *Vehicle
	arrivedTick  int64
	startTick    int64
	initialLevel float64
}

type chargerPool struct {
	queue    []*chargingSession
	active   []*chargingSession
	chargers int
	power    float64
	kind     ChargerType
}

// SimpleChargingStation keeps FIFO queues for L2, L3 and bus chargers
type SimpleChargingStation struct {
	coord orb.Point
	l2    chargerPool
	l3    chargerPool
	bus   chargerPool
	id    StationID
}

// NewSimpleChargingStation creates station with given number of chargers of each kind
func NewSimpleChargingStation(id StationID, coord orb.Point, numL2, numL3, numBus int) *SimpleChargingStation {
	return &SimpleChargingStation{
		id:    id,
		coord: coord,
		l2:    chargerPool{chargers: numL2, power: chargingRateL2, kind: CHARGER_L2},
		l3:    chargerPool{chargers: numL3, power: chargingRateL3, kind: CHARGER_L3},
		bus:   chargerPool{chargers: numBus, power: chargingRateBus, kind: CHARGER_BUS},
	}
}

func (cs *SimpleChargingStation) ID() StationID {
	return cs.id
}

func (cs *SimpleChargingStation) Coordinate() orb.Point {
	return cs.coord
}

// Capacity returns number of chargers for taxis
func (cs *SimpleChargingStation) Capacity() int {
	return cs.l2.chargers + cs.l3.chargers
}

// CapacityBus returns number of chargers for buses
func (cs *SimpleChargingStation) CapacityBus() int {
	return cs.bus.chargers
}

// Receive puts vehicle into the queue of suitable chargers. Taxis prefer fast chargers.
func (cs *SimpleChargingStation) Receive(v *Vehicle, tick int64) {
	session := &chargingSession{vehicle: v, arrivedTick: tick, initialLevel: v.battery}
	v.coord = cs.coord
	switch {
	case v.class == VEHICLE_BUS:
		cs.bus.queue = append(cs.bus.queue, session)
	case cs.l3.chargers > 0:
		cs.l3.queue = append(cs.l3.queue, session)
	case cs.l2.chargers > 0:
		cs.l2.queue = append(cs.l2.queue, session)
	default:
		log.Errorf("Station %d has no chargers for vehicle %d", cs.id, v.ID)
		cs.l2.queue = append(cs.l2.queue, session)
	}
}

// NumWaiting returns number of vehicles in queues
func (cs *SimpleChargingStation) NumWaiting() int {
	return len(cs.l2.queue) + len(cs.l3.queue) + len(cs.bus.queue)
}

// NumCharging returns number of vehicles at chargers
func (cs *SimpleChargingStation) NumCharging() int {
	return len(cs.l2.active) + len(cs.l3.active) + len(cs.bus.active)
}

func (cs *SimpleChargingStation) Step(tick int64, dt float64) []ChargeResult {
	finished := make([]ChargeResult, 0)
	for _, pool := range []*chargerPool{&cs.l2, &cs.l3, &cs.bus} {
		finished = append(finished, pool.step(cs.id, tick, dt)...)
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].Vehicle.ID < finished[j].Vehicle.ID })
	return finished
}

// step charges active sessions, releases every completed one and admits queued vehicles
func (pool *chargerPool) step(station StationID, tick int64, dt float64) []ChargeResult {
	var finished []ChargeResult
	hours := dt / 3600.0
	active := pool.active[:0]
	for _, session := range pool.active {
		v := session.vehicle
		demand := v.batteryCapacity - v.battery
		soc := v.batteryRatio()
		supply := (nonlinearCharging(soc, v.batteryCapacity, pool.power, hours) - soc) * v.batteryCapacity
		if math.IsNaN(supply) || supply < 0 {
			supply = 0
		}
		if demand > supply {
			v.Charge(supply)
			active = append(active, session)
			continue
		}
		v.Charge(demand)
		finished = append(finished, ChargeResult{
			Vehicle:      v,
			Station:      station,
			Charger:      pool.kind,
			WaitTicks:    session.startTick - session.arrivedTick,
			ChargeTicks:  tick - session.startTick,
			InitialLevel: session.initialLevel,
		})
	}
	pool.active = active
	for len(pool.active) < pool.chargers && len(pool.queue) > 0 {
		session := pool.queue[0]
		pool.queue = pool.queue[1:]
		session.startTick = tick
		pool.active = append(pool.active, session)
	}
	return finished
}

// nonlinearCharging returns state of charge after charging for t hours with power p (kW),
// starting from soc with battery capacity c (kWh). Charging slows down as battery fills.
func nonlinearCharging(soc, c, p, t float64) float64 {
	y := soc
	beta := p / c
	a := (64*math.Pow(y, 3)/27 - 5*y/2) / math.Pow(beta, 3)
	b := math.Sqrt((320*math.Pow(y, 4)/9 - 1525*y*y/12 + 125) / math.Pow(beta, 6))
	tStar := math.Cbrt(a+b) + math.Cbrt(a-b) + 4*y/(3*beta)
	t2 := tStar + t
	return math.Min(1.0, beta*t2*(beta*beta*t2*t2+15)/(2*beta*beta*t2*t2+15))
}
