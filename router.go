package microsim

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/LdDl/ch"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Router computes routes as sequences of roads. Route must start with origin road.
type Router interface {
	Route(origin RoadID, dest orb.Point) ([]RoadID, bool)
	RouteToRoad(origin, dest RoadID) ([]RoadID, bool)
}

// EcoRouter additionally serves routes chosen by external controller for zone pairs
type EcoRouter interface {
	Router
	EcoRoute(origin RoadID, originZone, destZone ZoneID) ([]RoadID, int, bool)
}

// ODPair is origin-destination pair of zones
type ODPair struct {
	Origin      ZoneID `json:"origin"`
	Destination ZoneID `json:"destination"`
}

// RouteCandidates is an entry of route table
type RouteCandidates struct {
	ODPair
	Routes [][]RoadID `json:"routes"`
}

// CHRouter routes over road graph (vertex per road, edge per lane-level turn) with
// contraction hierarchies. Edge weight is travel time of the road being left.
type CHRouter struct {
	mu         sync.Mutex
	net        *RoadNetwork
	graph      *ch.Graph
	weighted   *simple.WeightedDirectedGraph
	candidates map[ODPair][][]RoadID
	results    map[ODPair]int
	k          int
	verbose    bool
}

// NewCHRouter builds router for given network
func NewCHRouter(net *RoadNetwork, options ...func(*CHRouter)) (*CHRouter, error) {
	router := &CHRouter{
		net:        net,
		candidates: make(map[ODPair][][]RoadID),
		results:    make(map[ODPair]int),
		k:          5,
	}
	for _, o := range options {
		o(router)
	}
	err := router.Refresh()
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare router")
	}
	return router, nil
}

// WithRouterCandidates sets number of alternatives per OD pair in route table
func WithRouterCandidates(k int) func(*CHRouter) {
	return func(router *CHRouter) {
		router.k = k
	}
}

// WithRouterVerbose prints contraction timings
func WithRouterVerbose(verbose bool) func(*CHRouter) {
	return func(router *CHRouter) {
		router.verbose = verbose
	}
}

// Refresh rebuilds hierarchy with current travel times
func (router *CHRouter) Refresh() error {
	st := time.Now()
	graphCH := ch.Graph{}
	weighted := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	roads := router.net.Roads()
	for _, road := range roads {
		err := graphCH.CreateVertex(int64(road.ID))
		if err != nil {
			return errors.Wrapf(err, "Can't create vertex for road %d", road.ID)
		}
		weighted.AddNode(simple.Node(road.ID))
	}
	for _, road := range roads {
		cost := math.Max(road.travelTime, 1e-3)
		for _, dn := range road.dnRoads {
			err := graphCH.AddEdge(int64(road.ID), int64(dn.ID), cost)
			if err != nil {
				return errors.Wrapf(err, "Can't add edge %d -> %d", road.ID, dn.ID)
			}
			weighted.SetWeightedEdge(weighted.NewWeightedEdge(simple.Node(road.ID), simple.Node(dn.ID), cost))
		}
	}
	graphCH.PrepareContractionHierarchies()
	router.mu.Lock()
	router.graph = &graphCH
	router.weighted = weighted
	router.mu.Unlock()
	if router.verbose {
		fmt.Printf("Done contraction process in %v\n", time.Since(st))
	}
	log.Infof("Router has been refreshed for %d roads in %v", len(roads), time.Since(st))
	return nil
}

// RouteToRoad returns fastest route between two roads, both included
func (router *CHRouter) RouteToRoad(origin, dest RoadID) ([]RoadID, bool) {
	if origin == dest {
		return []RoadID{origin}, true
	}
	router.mu.Lock()
	cost, vertices := router.graph.ShortestPath(int64(origin), int64(dest))
	router.mu.Unlock()
	if cost < 0 || len(vertices) == 0 {
		return nil, false
	}
	route := make([]RoadID, len(vertices))
	for i, vertex := range vertices {
		route[i] = RoadID(vertex)
	}
	return route, true
}

// Route returns fastest route from origin road to the road nearest to given point
func (router *CHRouter) Route(origin RoadID, dest orb.Point) ([]RoadID, bool) {
	destRoad, ok := router.net.FindRoadAtCoordinates(dest)
	if !ok {
		return nil, false
	}
	return router.RouteToRoad(origin, destRoad.ID)
}

// CandidateRoutes returns up to k loopless alternatives ordered by travel time
func (router *CHRouter) CandidateRoutes(origin, dest RoadID, k int) [][]RoadID {
	router.mu.Lock()
	weighted := router.weighted
	router.mu.Unlock()
	if weighted.Node(int64(origin)) == nil || weighted.Node(int64(dest)) == nil {
		return nil
	}
	paths := path.YenKShortestPaths(weighted, k, math.Inf(1), simple.Node(origin), simple.Node(dest))
	routes := make([][]RoadID, 0, len(paths))
	for _, p := range paths {
		routes = append(routes, nodesToRoads(p))
	}
	return routes
}

func nodesToRoads(nodes []graph.Node) []RoadID {
	route := make([]RoadID, len(nodes))
	for i, node := range nodes {
		route[i] = RoadID(node.ID())
	}
	return route
}

// BuildRouteTable prepares candidate routes between every pair of zones
func (router *CHRouter) BuildRouteTable(zones map[ZoneID]Zone) int {
	ids := sortedZoneIDs(zones)
	table := make(map[ODPair][][]RoadID)
	for _, o := range ids {
		originRoad, ok := router.net.FindRoadAtCoordinates(zones[o].Coordinate())
		if !ok {
			continue
		}
		for _, d := range ids {
			if o == d {
				continue
			}
			destRoad, ok := router.net.FindRoadAtCoordinates(zones[d].Coordinate())
			if !ok {
				continue
			}
			routes := router.CandidateRoutes(originRoad.ID, destRoad.ID, router.k)
			if len(routes) == 0 {
				log.Warnf("No candidate routes between zones %d and %d", o, d)
				continue
			}
			table[ODPair{Origin: o, Destination: d}] = routes
		}
	}
	router.mu.Lock()
	router.candidates = table
	router.mu.Unlock()
	return len(table)
}

// RouteTable returns candidate routes ordered by OD pair
func (router *CHRouter) RouteTable() []RouteCandidates {
	router.mu.Lock()
	defer router.mu.Unlock()
	table := make([]RouteCandidates, 0, len(router.candidates))
	for od, routes := range router.candidates {
		table = append(table, RouteCandidates{ODPair: od, Routes: routes})
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].Origin != table[j].Origin {
			return table[i].Origin < table[j].Origin
		}
		return table[i].Destination < table[j].Destination
	})
	return table
}

// SetRouteResult stores route choice made by external controller
func (router *CHRouter) SetRouteResult(origin, dest ZoneID, choice int) error {
	router.mu.Lock()
	defer router.mu.Unlock()
	od := ODPair{Origin: origin, Destination: dest}
	routes, ok := router.candidates[od]
	if !ok {
		return errors.Wrapf(ErrNoPath, "No candidates for zones %d -> %d", origin, dest)
	}
	if choice < 0 || choice >= len(routes) {
		return errors.Errorf("Route choice %d is out of range [0, %d) for zones %d -> %d", choice, len(routes), origin, dest)
	}
	router.results[od] = choice
	return nil
}

// EcoRoute returns route chosen by controller for zone pair. It fails when controller has not
// decided yet or chosen route does not start at origin road.
func (router *CHRouter) EcoRoute(origin RoadID, originZone, destZone ZoneID) ([]RoadID, int, bool) {
	router.mu.Lock()
	defer router.mu.Unlock()
	od := ODPair{Origin: originZone, Destination: destZone}
	choice, ok := router.results[od]
	if !ok {
		return nil, -1, false
	}
	routes := router.candidates[od]
	if choice >= len(routes) || len(routes[choice]) == 0 || routes[choice][0] != origin {
		return nil, -1, false
	}
	route := make([]RoadID, len(routes[choice]))
	copy(route, routes[choice])
	return route, choice, true
}
