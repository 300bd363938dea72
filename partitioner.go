package microsim

import (
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Partitioner splits roads into disjoint partitions. Result maps every road to partition index in [0, n).
type Partitioner interface {
	Partition(net *RoadNetwork, n int) map[RoadID]int
}

// BFSPartitioner grows contiguous partitions breadth-first from the lowest unassigned road
// until each partition carries its share of the load (live, shadow and future-routing vehicles).
type BFSPartitioner struct{}

// orderedGraph iterates neighbours in ascending order so partitions are reproducible
type orderedGraph struct {
	*simple.UndirectedGraph
}

func (g orderedGraph) From(id int64) graph.Nodes {
	nodes := graph.NodesOf(g.UndirectedGraph.From(id))
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}

func roadAdjacency(net *RoadNetwork) orderedGraph {
	g := simple.NewUndirectedGraph()
	for _, road := range net.Roads() {
		g.AddNode(simple.Node(road.ID))
	}
	for _, road := range net.Roads() {
		for _, dn := range road.dnRoads {
			if dn.ID == road.ID {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(road.ID), simple.Node(dn.ID)))
		}
	}
	return orderedGraph{g}
}

func (p BFSPartitioner) Partition(net *RoadNetwork, n int) map[RoadID]int {
	roads := net.Roads()
	result := make(map[RoadID]int, len(roads))
	if n <= 1 {
		for _, road := range roads {
			result[road.ID] = 0
		}
		return result
	}
	total := 0.0
	for _, road := range roads {
		total += road.load()
	}
	target := total / float64(n)
	g := roadAdjacency(net)

	part := 0
	partLoad := 0.0
	for _, seed := range roads {
		if _, ok := result[seed.ID]; ok {
			continue
		}
		bfs := traverse.BreadthFirst{
			Traverse: func(e graph.Edge) bool {
				_, assigned := result[RoadID(e.To().ID())]
				return !assigned
			},
		}
		bfs.Walk(g, simple.Node(seed.ID), func(node graph.Node, _ int) bool {
			id := RoadID(node.ID())
			if _, ok := result[id]; ok {
				return false
			}
			road, _ := net.Road(id)
			result[id] = part
			partLoad += road.load()
			if part < n-1 && partLoad >= target {
				part++
				partLoad = 0
				return true
			}
			return false
		})
	}
	log.Infof("Network has been split into %d partitions (target load %.1f)", part+1, target)
	return result
}

// applyPartitions stores partition index on roads and groups roads by partition in id order
func applyPartitions(net *RoadNetwork, assignment map[RoadID]int, n int) [][]*Road {
	groups := make([][]*Road, n)
	for _, road := range net.Roads() {
		idx, ok := assignment[road.ID]
		if !ok || idx < 0 || idx >= n {
			idx = 0
		}
		road.partition = idx
		groups[idx] = append(groups[idx], road)
	}
	return groups
}
