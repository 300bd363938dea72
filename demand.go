package microsim

import (
	"sort"

	"github.com/paulmach/orb/geo"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// DemandSource produces passenger requests appearing at given tick
type DemandSource interface {
	Generate(tick int64) []Request
}

// RandomDemand generates passenger requests between zones. Number of requests per tick in every
// zone follows Poisson distribution; destination is picked uniformly among other zones.
type RandomDemand struct {
	zones   []ZoneID
	arrival distuv.Poisson
	rng     *rand.Rand
	maxWait int64
}

// NewRandomDemand creates generator. Rate is the mean number of requests per zone per tick.
func NewRandomDemand(zones []ZoneID, rate float64, maxWait int64, seed int64) *RandomDemand {
	src := rand.NewSource(uint64(seed))
	sorted := make([]ZoneID, len(zones))
	copy(sorted, zones)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &RandomDemand{
		zones:   sorted,
		arrival: distuv.Poisson{Lambda: rate, Src: src},
		rng:     rand.New(src),
		maxWait: maxWait,
	}
}

// Generate returns requests appeared at given tick ordered by origin zone
func (d *RandomDemand) Generate(tick int64) []Request {
	if len(d.zones) < 2 || d.arrival.Lambda <= 0 {
		return nil
	}
	requests := make([]Request, 0)
	for i, origin := range d.zones {
		n := int(d.arrival.Rand())
		for k := 0; k < n; k++ {
			j := d.rng.Intn(len(d.zones) - 1)
			if j >= i {
				j++
			}
			requests = append(requests, NewRequest(origin, d.zones[j], tick, d.maxWait))
		}
	}
	return requests
}

// AddRequest queues passenger at origin zone. Passengers whose destination is served by bus
// from origin wait for the bus.
func (sim *Simulation) AddRequest(req Request) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.insertRequest(req)
}

func (sim *Simulation) insertRequest(req Request) error {
	zone, ok := sim.zones[req.Origin]
	if !ok {
		return errors.Wrapf(ErrUnknownZone, "Origin zone %d", req.Origin)
	}
	if _, ok := sim.zones[req.Destination]; !ok {
		return errors.Wrapf(ErrUnknownZone, "Destination zone %d", req.Destination)
	}
	if zone.BusReachable(req.Destination) {
		zone.InsertBusPass(req)
		return nil
	}
	zone.InsertTaxiPass(req)
	return nil
}

// WithDemand sets generator of passenger requests polled every tick
func WithDemand(demand DemandSource) func(*Simulation) {
	return func(sim *Simulation) {
		sim.demand = demand
	}
}

// ZonesAtJunctions places parking zone at every step-th junction having outgoing roads.
// Outgoing roads become cruising links; the nearest zones are used for relocation.
func ZonesAtJunctions(net *RoadNetwork, step, capacity, neighbors int) []*ParkingZone {
	if step < 1 {
		step = 1
	}
	candidates := make([]*Junction, 0)
	for _, junction := range net.Junctions() {
		if len(junction.outcomingRoads) == 0 || len(junction.incomingRoads) == 0 {
			continue
		}
		candidates = append(candidates, junction)
	}
	selected := make([]*Junction, 0, len(candidates)/step+1)
	for i := 0; i < len(candidates); i += step {
		selected = append(selected, candidates[i])
	}
	zones := make([]*ParkingZone, 0, len(selected))
	for i, junction := range selected {
		others := make([]int, 0, len(selected)-1)
		for j := range selected {
			if j != i {
				others = append(others, j)
			}
		}
		sort.SliceStable(others, func(a, b int) bool {
			return geo.DistanceHaversine(junction.geom, selected[others[a]].geom) < geo.DistanceHaversine(junction.geom, selected[others[b]].geom)
		})
		if len(others) > neighbors {
			others = others[:neighbors]
		}
		neighborIDs := make([]ZoneID, len(others))
		for k, j := range others {
			neighborIDs[k] = ZoneID(selected[j].ID)
		}
		links := make([]RoadID, len(junction.outcomingRoads))
		copy(links, junction.outcomingRoads)
		zones = append(zones, NewParkingZone(
			ZoneID(junction.ID),
			junction.geom,
			capacity,
			WithNeighboringLinks(links...),
			WithNeighboringZones(neighborIDs...),
		))
	}
	return zones
}
