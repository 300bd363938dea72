package microsim

import (
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Request is a passenger trip request between zones
type Request struct {
	ID          uuid.UUID
	Origin      ZoneID
	Destination ZoneID
	CreatedTick int64
	WaitTicks   int64
	MaxWait     int64
	Share       bool
	// Next is the following leg of multi-modal trip, if any
	Next *Request
}

// NewRequest creates request with fresh identifier. Zero maxWait means passenger never gives up.
func NewRequest(origin, destination ZoneID, tick, maxWait int64) Request {
	return Request{
		ID:          uuid.New(),
		Origin:      origin,
		Destination: destination,
		CreatedTick: tick,
		MaxWait:     maxWait,
	}
}

// expired reports whether passenger has waited longer than allowed
func (req *Request) expired() bool {
	return req.MaxWait > 0 && req.WaitTicks > req.MaxWait
}

// Zone is an area where passengers appear and taxis park or cruise
type Zone interface {
	ID() ZoneID
	Coordinate() orb.Point
	NeighboringLink(i int) RoadID
	NeighboringLinks() []RoadID
	NeighboringZones() []ZoneID
	HasCapacity() bool
	HasEnoughTaxi(n int) bool
	AddParkedTaxi(id VehicleID)
	RemoveParkedTaxi(id VehicleID) bool
	PopParkedTaxi() (VehicleID, bool)
	AddCruisingTaxi(id VehicleID)
	RemoveCruisingTaxi(id VehicleID) bool
	PopCruisingTaxi() (VehicleID, bool)
	AddFutureSupply()
	RemoveFutureSupply()
	InsertTaxiPass(req Request)
	InsertBusPass(req Request)
	BusReachable(dest ZoneID) bool
	ServePassengerByBus(seats int, stops []ZoneID) []Request
	TakeTaxiRequests(n int) []Request
	PendingTaxiRequests() int
	// Step ages waiting passengers and returns the ones who gave up
	Step(ticks int64) []Request
}

// ParkingZone is Zone with limited parking lot and FIFO passenger queues
type ParkingZone struct {
	coord         orb.Point
	links         []RoadID
	neighbors     []ZoneID
	parked        []VehicleID
	cruising      []VehicleID
	taxiQueue     []Request
	busQueue      []Request
	busReachable  map[ZoneID]struct{}
	id            ZoneID
	capacity      int
	futureSupply  int
	servedByTaxi  int
	servedByBus   int
	leftPassenger int
}

// NewParkingZone creates zone at given point
func NewParkingZone(id ZoneID, coord orb.Point, capacity int, options ...func(*ParkingZone)) *ParkingZone {
	zone := &ParkingZone{
		id:           id,
		coord:        coord,
		capacity:     capacity,
		busReachable: make(map[ZoneID]struct{}),
	}
	for _, o := range options {
		o(zone)
	}
	return zone
}

// WithNeighboringLinks sets roads used for cruising
func WithNeighboringLinks(links ...RoadID) func(*ParkingZone) {
	return func(zone *ParkingZone) {
		zone.links = append(zone.links, links...)
	}
}

// WithNeighboringZones sets zones used for relocation
func WithNeighboringZones(zones ...ZoneID) func(*ParkingZone) {
	return func(zone *ParkingZone) {
		zone.neighbors = append(zone.neighbors, zones...)
	}
}

// WithBusReachable sets zones reachable by bus from this one
func WithBusReachable(zones ...ZoneID) func(*ParkingZone) {
	return func(zone *ParkingZone) {
		for _, z := range zones {
			zone.busReachable[z] = struct{}{}
		}
	}
}

func (zone *ParkingZone) ID() ZoneID {
	return zone.id
}

func (zone *ParkingZone) Coordinate() orb.Point {
	return zone.coord
}

func (zone *ParkingZone) NeighboringLink(i int) RoadID {
	return zone.links[i]
}

func (zone *ParkingZone) NeighboringLinks() []RoadID {
	return zone.links
}

func (zone *ParkingZone) NeighboringZones() []ZoneID {
	return zone.neighbors
}

// HasCapacity reports whether there is a free parking place
func (zone *ParkingZone) HasCapacity() bool {
	return len(zone.parked) < zone.capacity
}

// HasEnoughTaxi reports whether more than n taxis are available or coming
func (zone *ParkingZone) HasEnoughTaxi(n int) bool {
	return len(zone.parked)+len(zone.cruising)+zone.futureSupply > n
}

func (zone *ParkingZone) AddParkedTaxi(id VehicleID) {
	zone.parked = append(zone.parked, id)
}

func (zone *ParkingZone) RemoveParkedTaxi(id VehicleID) bool {
	var ok bool
	zone.parked, ok = removeVehicleID(zone.parked, id)
	return ok
}

// PopParkedTaxi returns taxi which has been parked for the longest time
func (zone *ParkingZone) PopParkedTaxi() (VehicleID, bool) {
	if len(zone.parked) == 0 {
		return NoVehicle, false
	}
	id := zone.parked[0]
	zone.parked = zone.parked[1:]
	return id, true
}

func (zone *ParkingZone) AddCruisingTaxi(id VehicleID) {
	zone.cruising = append(zone.cruising, id)
}

func (zone *ParkingZone) RemoveCruisingTaxi(id VehicleID) bool {
	var ok bool
	zone.cruising, ok = removeVehicleID(zone.cruising, id)
	return ok
}

// PopCruisingTaxi returns taxi which has been cruising for the longest time
func (zone *ParkingZone) PopCruisingTaxi() (VehicleID, bool) {
	if len(zone.cruising) == 0 {
		return NoVehicle, false
	}
	id := zone.cruising[0]
	zone.cruising = zone.cruising[1:]
	return id, true
}

func (zone *ParkingZone) AddFutureSupply() {
	zone.futureSupply++
}

func (zone *ParkingZone) RemoveFutureSupply() {
	if zone.futureSupply > 0 {
		zone.futureSupply--
	}
}

func (zone *ParkingZone) InsertTaxiPass(req Request) {
	zone.taxiQueue = append(zone.taxiQueue, req)
}

func (zone *ParkingZone) InsertBusPass(req Request) {
	zone.busQueue = append(zone.busQueue, req)
}

func (zone *ParkingZone) BusReachable(dest ZoneID) bool {
	_, ok := zone.busReachable[dest]
	return ok
}

// ServePassengerByBus boards waiting passengers whose destination is one of given stops
func (zone *ParkingZone) ServePassengerByBus(seats int, stops []ZoneID) []Request {
	if seats <= 0 || len(zone.busQueue) == 0 {
		return nil
	}
	served := make([]Request, 0)
	remaining := zone.busQueue[:0]
	for _, req := range zone.busQueue {
		if len(served) < seats && lo.Contains(stops, req.Destination) {
			served = append(served, req)
			continue
		}
		remaining = append(remaining, req)
	}
	zone.busQueue = remaining
	zone.servedByBus += len(served)
	return served
}

// TakeTaxiRequests pops up to n requests in arrival order
func (zone *ParkingZone) TakeTaxiRequests(n int) []Request {
	n = lo.Clamp(n, 0, len(zone.taxiQueue))
	if n == 0 {
		return nil
	}
	taken := make([]Request, n)
	copy(taken, zone.taxiQueue[:n])
	zone.taxiQueue = zone.taxiQueue[n:]
	zone.servedByTaxi += n
	return taken
}

func (zone *ParkingZone) PendingTaxiRequests() int {
	return len(zone.taxiQueue)
}

func (zone *ParkingZone) Step(ticks int64) []Request {
	var left []Request
	age := func(queue []Request) []Request {
		kept := queue[:0]
		for _, req := range queue {
			req.WaitTicks += ticks
			if req.expired() {
				left = append(left, req)
				continue
			}
			kept = append(kept, req)
		}
		return kept
	}
	zone.taxiQueue = age(zone.taxiQueue)
	zone.busQueue = age(zone.busQueue)
	zone.leftPassenger += len(left)
	return left
}

// Stats returns served and abandoned passengers counters
func (zone *ParkingZone) Stats() (servedByTaxi, servedByBus, left int) {
	return zone.servedByTaxi, zone.servedByBus, zone.leftPassenger
}

func removeVehicleID(ids []VehicleID, id VehicleID) ([]VehicleID, bool) {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...), true
		}
	}
	return ids, false
}

func sortedZoneIDs(zones map[ZoneID]Zone) []ZoneID {
	ids := lo.Keys(zones)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
