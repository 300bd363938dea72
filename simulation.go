package microsim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// world is state shared by every vehicle of simulation
type world struct {
	cfg       *Config
	net       *RoadNetwork
	fleet     *Fleet
	router    Router
	zones     map[ZoneID]Zone
	stations  map[StationID]ChargingStation
	collector DataCollector
	runID     string
	tick      int64
	deferred  []*Vehicle
	entered   atomic.Int64
	left      atomic.Int64
}

func (w *world) roadsByIDs(ids []RoadID) ([]*Road, bool) {
	roads := make([]*Road, len(ids))
	for i, id := range ids {
		road, ok := w.net.Road(id)
		if !ok {
			log.Errorf("Router returned unknown road %d", id)
			return nil, false
		}
		roads[i] = road
	}
	return roads, true
}

func (w *world) zone(id ZoneID) Zone {
	return w.zones[id]
}

// isArrived reports whether on-road vehicle has reached the road of its destination
func isArrived(v *Vehicle) bool {
	return v.motion.OnRoad() && v.nextRoad == nil && !v.atOrigin
}

// checkArrival defers arrival detected outside of tick phases to the next tick
func (w *world) checkArrival(v *Vehicle) {
	if isArrived(v) {
		w.deferred = append(w.deferred, v)
	}
}

// Simulation advances vehicles over road network tick by tick. Roads are split into partitions
// which are processed by separate goroutines.
type Simulation struct {
	world
	mu          sync.Mutex
	partitioner Partitioner
	partitions  []*partition
	outbox      [][][]*crossingRequest
	demand      DemandSource
	verbose     bool
	tickRecords int64
}

// WithCollector sets sink for trip, charging and tick records
func WithCollector(collector DataCollector) func(*Simulation) {
	return func(sim *Simulation) {
		sim.collector = collector
	}
}

// WithPartitioner sets road partitioning algorithm
func WithPartitioner(partitioner Partitioner) func(*Simulation) {
	return func(sim *Simulation) {
		sim.partitioner = partitioner
	}
}

// WithVerbose enables progress output
func WithVerbose(verbose bool) func(*Simulation) {
	return func(sim *Simulation) {
		sim.verbose = verbose
	}
}

// WithTickRecordInterval sets how often (ticks) network-wide records are collected. Zero disables them.
func WithTickRecordInterval(ticks int64) func(*Simulation) {
	return func(sim *Simulation) {
		sim.tickRecords = ticks
	}
}

// NewSimulation prepares simulation. Network must be complete: it is locked for modifications.
// CHRouter is used when router is nil.
func NewSimulation(cfg *Config, net *RoadNetwork, router Router, options ...func(*Simulation)) (*Simulation, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't create simulation")
	}
	if net.NumRoads() == 0 {
		return nil, errors.Wrap(ErrUnknownRoad, "Can't create simulation for empty network")
	}
	net.lock()
	if router == nil {
		chRouter, err := NewCHRouter(net, WithRouterCandidates(cfg.routeCandidates))
		if err != nil {
			return nil, errors.Wrap(err, "Can't create simulation")
		}
		router = chRouter
	}
	sim := &Simulation{
		world: world{
			cfg:       cfg,
			net:       net,
			fleet:     newFleet(),
			router:    router,
			zones:     make(map[ZoneID]Zone),
			stations:  make(map[StationID]ChargingStation),
			collector: discardCollector{},
			runID:     uuid.New().String(),
		},
		partitioner: BFSPartitioner{},
		tickRecords: 1,
	}
	for _, o := range options {
		o(sim)
	}
	sim.partitions = make([]*partition, cfg.nPartitions)
	sim.outbox = make([][][]*crossingRequest, cfg.nPartitions)
	for i := range sim.partitions {
		sim.partitions[i] = &partition{idx: i}
		sim.outbox[i] = make([][]*crossingRequest, cfg.nPartitions)
	}
	sim.repartition()
	log.Infof("Simulation %s is ready: %d roads, %d partitions", sim.runID, net.NumRoads(), cfg.nPartitions)
	return sim, nil
}

// Config returns simulation parameters
func (sim *Simulation) Config() *Config {
	return sim.cfg
}

// Network returns road network
func (sim *Simulation) Network() *RoadNetwork {
	return sim.net
}

// Fleet returns vehicle arena
func (sim *Simulation) Fleet() *Fleet {
	return sim.fleet
}

// Router returns router in use
func (sim *Simulation) Router() Router {
	return sim.router
}

// RunID returns identifier stamped on records of this run
func (sim *Simulation) RunID() string {
	return sim.runID
}

// Tick returns number of completed ticks
func (sim *Simulation) Tick() int64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.tick
}

// Counters returns number of network entries and exits so far
func (sim *Simulation) Counters() (entered, left int64) {
	return sim.entered.Load(), sim.left.Load()
}

// AddZone registers zone
func (sim *Simulation) AddZone(zone Zone) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if _, ok := sim.zones[zone.ID()]; ok {
		return errors.Wrapf(ErrDuplicateID, "Zone %d", zone.ID())
	}
	sim.zones[zone.ID()] = zone
	return nil
}

// Zone returns zone by identifier
func (sim *Simulation) Zone(id ZoneID) (Zone, bool) {
	zone, ok := sim.zones[id]
	return zone, ok
}

// AddChargingStation registers charging station
func (sim *Simulation) AddChargingStation(station ChargingStation) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if _, ok := sim.stations[station.ID()]; ok {
		return errors.Wrapf(ErrDuplicateID, "Charging station %d", station.ID())
	}
	sim.stations[station.ID()] = station
	return nil
}

// BuildRouteTable prepares candidate routes between zones when router supports it
func (sim *Simulation) BuildRouteTable() int {
	builder, ok := sim.router.(interface {
		BuildRouteTable(map[ZoneID]Zone) int
	})
	if !ok {
		return 0
	}
	return builder.BuildRouteTable(sim.zones)
}

// RouteTables returns candidate routes between zones, if router provides them
func (sim *Simulation) RouteTables() []RouteCandidates {
	table, ok := sim.router.(interface{ RouteTable() []RouteCandidates })
	if !ok {
		return nil
	}
	return table.RouteTable()
}

// SetRouteResult forwards controller's route choice to eco router
func (sim *Simulation) SetRouteResult(origin, dest ZoneID, choice int) error {
	setter, ok := sim.router.(interface {
		SetRouteResult(ZoneID, ZoneID, int) error
	})
	if !ok {
		return errors.New("Router does not accept route results")
	}
	return setter.SetRouteResult(origin, dest, choice)
}

func (sim *Simulation) vehicleSeed() int64 {
	return sim.cfg.randomSeed*1000003 + int64(sim.fleet.Len())*7919
}

// AddVehicle creates vehicle at given point which departs to destination at plan's departure tick.
// The vehicle leaves network on arrival.
func (sim *Simulation) AddVehicle(class VehicleClass, origin orb.Point, dest Plan) (*Vehicle, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if _, ok := sim.net.FindRoadAtCoordinates(dest.Location); !ok {
		return nil, errors.Wrap(ErrUnknownRoad, "Can't add vehicle")
	}
	v := newVehicle(&sim.world, class, sim.vehicleSeed())
	sim.fleet.add(v)
	v.coord = origin
	v.addPlan(dest)
	v.setNextPlan()
	v.departure()
	return v, nil
}

// AddTaxi creates taxi parked in zone
func (sim *Simulation) AddTaxi(zoneID ZoneID) (*Vehicle, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	zone, ok := sim.zones[zoneID]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownZone, "Zone %d", zoneID)
	}
	v := newVehicle(&sim.world, VEHICLE_TAXI, sim.vehicleSeed())
	sim.fleet.add(v)
	low := sim.cfg.rechargeLevelLow
	v.battery = v.batteryCapacity * (low + v.rng.Float64()*(1.0-low))
	v.coord = zone.Coordinate()
	v.dest = ZonePlan(zoneID, zone.Coordinate(), 0)
	v.state = TRIP_PARKING
	v.parkZone = zoneID
	zone.AddParkedTaxi(v.ID)
	return v, nil
}

// AddBus creates bus serving given stops. Departures are ticks of each cycle start.
func (sim *Simulation) AddBus(routeID int, stops []ZoneID, departures []int64) (*Vehicle, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if len(stops) < 2 {
		return nil, errors.Errorf("Bus route %d needs at least two stops", routeID)
	}
	for _, stop := range stops {
		if _, ok := sim.zones[stop]; !ok {
			return nil, errors.Wrapf(ErrUnknownZone, "Stop %d of bus route %d", stop, routeID)
		}
	}
	v := newVehicle(&sim.world, VEHICLE_BUS, sim.vehicleSeed())
	sim.fleet.add(v)
	first := sim.zones[stops[0]]
	v.coord = first.Coordinate()
	v.dest = ZonePlan(stops[0], first.Coordinate(), 0)
	v.updateSchedule(routeID, stops, departures)
	return v, nil
}

// Run advances simulation for given number of ticks
func (sim *Simulation) Run(ctx context.Context, ticks int64) error {
	st := time.Now()
	for i := int64(0); i < ticks; i++ {
		if err := sim.Step(ctx); err != nil {
			return err
		}
		if sim.verbose && sim.cfg.networkRefresh > 0 && sim.tick%sim.cfg.networkRefresh == 0 {
			fmt.Printf("Tick %d done in %v\n", sim.tick, time.Since(st))
		}
	}
	if sim.verbose {
		fmt.Printf("Done in %v\n", time.Since(st))
	}
	return nil
}

// Step advances simulation by one tick
func (sim *Simulation) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "Can't step simulation")
	}
	sim.mu.Lock()
	defer sim.mu.Unlock()
	now := sim.tick + 1
	sim.runTick(now)
	sim.tick = now
	return nil
}

// repartition splits roads between partitions
func (sim *Simulation) repartition() {
	n := len(sim.partitions)
	assignment := sim.partitioner.Partition(sim.net, n)
	groups := applyPartitions(sim.net, assignment, n)
	for i, p := range sim.partitions {
		p.roads = groups[i]
		log.Debugf("Partition %d owns %d roads", i, len(p.roads))
	}
}

// Snapshot returns state of every vehicle which is currently on road
func (sim *Simulation) Snapshot() []VehicleSnapshot {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	snapshot := make([]VehicleSnapshot, 0)
	for _, v := range sim.fleet.vehicles {
		if !v.motion.OnRoad() {
			continue
		}
		snapshot = append(snapshot, v.snapshot())
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
	return snapshot
}
