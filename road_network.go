package microsim

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/pkg/errors"
)

// RoadNetwork is static topology: junctions, roads, lanes and lane-to-lane connectivity
type RoadNetwork struct {
	junctions   map[JunctionID]*Junction
	roads       map[RoadID]*Road
	lanes       map[LaneID]*Lane
	movements   []*Movement
	roadsSorted []*Road
	nextLaneID  LaneID
	locked      bool
}

// NewRoadNetwork returns empty network
func NewRoadNetwork() *RoadNetwork {
	return &RoadNetwork{
		junctions: make(map[JunctionID]*Junction),
		roads:     make(map[RoadID]*Road),
		lanes:     make(map[LaneID]*Lane),
	}
}

// AddJunction registers junction with WGS84 position
func (net *RoadNetwork) AddJunction(id JunctionID, pt orb.Point) (*Junction, error) {
	if net.locked {
		return nil, ErrSimulationLocked
	}
	if _, ok := net.junctions[id]; ok {
		return nil, errors.Wrapf(ErrDuplicateID, "Junction %d", id)
	}
	junction := &Junction{
		ID:             id,
		geom:           pt,
		geomEuclidean:  pointToEuclidean(pt),
		incomingRoads:  make([]RoadID, 0),
		outcomingRoads: make([]RoadID, 0),
	}
	net.junctions[id] = junction
	return junction, nil
}

// AddRoad registers road and creates its lanes. Geometry defaults to straight segment between junctions.
func (net *RoadNetwork) AddRoad(spec RoadSpec) (*Road, error) {
	if net.locked {
		return nil, ErrSimulationLocked
	}
	if _, ok := net.roads[spec.ID]; ok {
		return nil, errors.Wrapf(ErrDuplicateID, "Road %d", spec.ID)
	}
	source, ok := net.junctions[spec.Source]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownJunction, "Source %d of road %d", spec.Source, spec.ID)
	}
	target, ok := net.junctions[spec.Target]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownJunction, "Target %d of road %d", spec.Target, spec.ID)
	}
	if spec.LinkType == 0 {
		spec.LinkType = LINK_UNCLASSIFIED
	}
	if len(spec.Geom) < 2 {
		spec.Geom = orb.LineString{source.geom, target.geom}
	}
	if spec.Lanes <= 0 {
		spec.Lanes = defaultLanes(spec.LinkType)
	}
	if spec.FreeSpeed <= 0 {
		spec.FreeSpeed = defaultFreeSpeed(spec.LinkType)
	}
	length := roadLength(spec)
	if length <= 0 {
		return nil, errors.Errorf("Road %d has zero length", spec.ID)
	}
	road := &Road{
		name:          spec.Name,
		geom:          spec.Geom,
		geomEuclidean: lineToEuclidean(spec.Geom),
		length:        length,
		freeSpeed:     spec.FreeSpeed,
		freeSpeedStd:  spec.FreeSpeedStd,
		travelTime:    length / spec.FreeSpeed,
		ID:            spec.ID,
		source:        spec.Source,
		target:        spec.Target,
		linkType:      spec.LinkType,
		osmWayID:      spec.OSMWayID,
		firstVehicle:  NoVehicle,
		lastVehicle:   NoVehicle,
	}
	road.lanes = make([]*Lane, spec.Lanes)
	for i := range road.lanes {
		lane := newLane(net.nextLaneID, road, i)
		lane.geom = laneCenterLine(spec.Geom, i, spec.Lanes)
		net.lanes[lane.ID] = lane
		road.lanes[i] = lane
		net.nextLaneID++
	}
	source.outcomingRoads = append(source.outcomingRoads, road.ID)
	target.incomingRoads = append(target.incomingRoads, road.ID)
	net.roads[road.ID] = road
	net.roadsSorted = nil
	return road, nil
}

// ConnectLanes connects end of lane 'from' to the start of lane 'to'. Roads must share junction.
func (net *RoadNetwork) ConnectLanes(from, to LaneID) error {
	if net.locked {
		return ErrSimulationLocked
	}
	fromLane, ok := net.lanes[from]
	if !ok {
		return errors.Wrapf(ErrUnknownLane, "Lane %d", from)
	}
	toLane, ok := net.lanes[to]
	if !ok {
		return errors.Wrapf(ErrUnknownLane, "Lane %d", to)
	}
	if fromLane.road.target != toLane.road.source {
		return errors.Errorf("Can't connect lane %d to lane %d: roads %d and %d do not share junction", from, to, fromLane.road.ID, toLane.road.ID)
	}
	fromLane.connect(toLane)
	return nil
}

func (net *RoadNetwork) addMovement(junction *Junction, in, out *Road, inRange, outRange connectionPair) {
	net.movements = append(net.movements, &Movement{
		geom:             movementGeomBetweenLines(in.geom, out.geom),
		ID:               MovementID(len(net.movements)),
		JunctionID:       junction.ID,
		IncomingRoadID:   in.ID,
		OutcomingRoadID:  out.ID,
		turnType:         turnBetweenLines(in.geomEuclidean, out.geomEuclidean),
		incomeLaneStart:  inRange.first,
		incomeLaneEnd:    inRange.second,
		outcomeLaneStart: outRange.first,
		outcomeLaneEnd:   outRange.second,
	})
}

// Road returns road by identifier
func (net *RoadNetwork) Road(id RoadID) (*Road, bool) {
	road, ok := net.roads[id]
	return road, ok
}

// Lane returns lane by identifier
func (net *RoadNetwork) Lane(id LaneID) (*Lane, bool) {
	lane, ok := net.lanes[id]
	return lane, ok
}

// Junction returns junction by identifier
func (net *RoadNetwork) Junction(id JunctionID) (*Junction, bool) {
	junction, ok := net.junctions[id]
	return junction, ok
}

// Junctions returns all junctions sorted by identifier
func (net *RoadNetwork) Junctions() []*Junction {
	junctions := make([]*Junction, 0, len(net.junctions))
	for _, junction := range net.junctions {
		junctions = append(junctions, junction)
	}
	sort.Slice(junctions, func(i, j int) bool { return junctions[i].ID < junctions[j].ID })
	return junctions
}

// Roads returns all roads sorted by identifier
func (net *RoadNetwork) Roads() []*Road {
	if net.roadsSorted == nil || len(net.roadsSorted) != len(net.roads) {
		net.roadsSorted = make([]*Road, 0, len(net.roads))
		for _, road := range net.roads {
			net.roadsSorted = append(net.roadsSorted, road)
		}
		sort.Slice(net.roadsSorted, func(i, j int) bool { return net.roadsSorted[i].ID < net.roadsSorted[j].ID })
	}
	return net.roadsSorted
}

// NumRoads returns number of roads
func (net *RoadNetwork) NumRoads() int {
	return len(net.roads)
}

// Movements returns generated turns
func (net *RoadNetwork) Movements() []*Movement {
	return net.movements
}

// FindRoadAtCoordinates returns road whose start is the nearest one to given point
func (net *RoadNetwork) FindRoadAtCoordinates(pt orb.Point) (*Road, bool) {
	var best *Road
	bestDist := math.MaxFloat64
	for _, road := range net.Roads() {
		dist := geo.DistanceHaversine(road.geom[0], pt)
		if dist < bestDist {
			best = road
			bestDist = dist
		}
	}
	return best, best != nil
}

// lock forbids further topology changes
func (net *RoadNetwork) lock() {
	net.Roads()
	net.locked = true
}

// refreshTravelTimes recomputes travel times of every road
func (net *RoadNetwork) refreshTravelTimes(vehicleLength float64) {
	for _, road := range net.Roads() {
		road.refreshTravelTime(vehicleLength)
	}
}
