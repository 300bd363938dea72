package microsim

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// osmSegment is part of way between two junction nodes
type osmSegment struct {
	way    *osmWay
	nodes  []osm.NodeID
	source osm.NodeID
	target osm.NodeID
}

// ImportFromOSMFile builds road network from OSM file (*.osm, *.xml or *.pbf).
// Ways are split at nodes shared by several ways; two-way ways give a road in each direction.
func ImportFromOSMFile(fileName string, cfg *OsmConfiguration, verbose bool) (*RoadNetwork, error) {
	if cfg == nil {
		cfg = DefaultOsmConfiguration()
	}
	data, err := readOSM(fileName, cfg, verbose)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse OSM data")
	}
	if err := data.prepareWays(verbose); err != nil {
		return nil, errors.Wrap(err, "Can't prepare ways")
	}
	segments := data.splitWays()
	net, err := data.buildNetwork(segments, cfg, verbose)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare road network")
	}
	return net, nil
}

// prepareWays resolves link types and counts how many times every node is used
func (data *osmData) prepareWays(verbose bool) error {
	if verbose {
		fmt.Printf("Prepare ways...")
	}
	st := time.Now()
	prepared := make([]*osmWay, 0, len(data.ways))
	for _, way := range data.ways {
		linkType, ok := linkTypeByHighway[way.highway]
		if !ok {
			log.Debugf("Unhandled `highway` tag value: '%s'. Way ID: '%d'", way.highway, way.ID)
			continue
		}
		way.linkType = linkType
		if way.OnewayDefault {
			way.Oneway = onewayDefaultByLinkType[linkType]
		}
		missing := false
		for _, nodeID := range way.Nodes {
			if _, ok := data.nodes[nodeID]; !ok {
				missing = true
				break
			}
		}
		if missing {
			log.Warnf("Way %d references node which is absent in file, way is skipped", way.ID)
			continue
		}
		for i, nodeID := range way.Nodes {
			node := data.nodes[nodeID]
			if i == 0 || i == len(way.Nodes)-1 {
				node.useCount += 2
				node.isJunction = true
			} else {
				node.useCount++
			}
		}
		prepared = append(prepared, way)
	}
	data.ways = prepared
	for _, node := range data.nodes {
		if node.useCount >= 2 || node.control == CONTROL_SIGNAL {
			node.isJunction = true
		}
	}
	if verbose {
		fmt.Printf("Done in %v\n\tWays: %d\n", time.Since(st), len(data.ways))
	}
	return nil
}

// splitWays cuts ways at junction nodes
func (data *osmData) splitWays() []osmSegment {
	segments := make([]osmSegment, 0, len(data.ways))
	for _, way := range data.ways {
		nodes := []osm.NodeID{way.Nodes[0]}
		for i := 1; i < len(way.Nodes); i++ {
			nodeID := way.Nodes[i]
			nodes = append(nodes, nodeID)
			if !data.nodes[nodeID].isJunction && i != len(way.Nodes)-1 {
				continue
			}
			segments = append(segments, osmSegment{
				way:    way,
				nodes:  nodes,
				source: nodes[0],
				target: nodeID,
			})
			nodes = []osm.NodeID{nodeID}
		}
	}
	return segments
}

func (data *osmData) segmentGeom(nodes []osm.NodeID, reversed bool) orb.LineString {
	geom := make(orb.LineString, len(nodes))
	for i, nodeID := range nodes {
		idx := i
		if reversed {
			idx = len(nodes) - 1 - i
		}
		geom[idx] = data.nodes[nodeID].geom
	}
	return geom
}

func (data *osmData) buildNetwork(segments []osmSegment, cfg *OsmConfiguration, verbose bool) (*RoadNetwork, error) {
	if verbose {
		fmt.Printf("Building road network...")
	}
	st := time.Now()
	net := NewRoadNetwork()
	junctions := make(map[osm.NodeID]JunctionID)
	junctionOf := func(nodeID osm.NodeID) (JunctionID, error) {
		if id, ok := junctions[nodeID]; ok {
			return id, nil
		}
		id := cfg.FirstJunctionID + JunctionID(len(junctions))
		junction, err := net.AddJunction(id, data.nodes[nodeID].geom)
		if err != nil {
			return 0, err
		}
		junction.osmNodeID = nodeID
		junction.control = data.nodes[nodeID].control
		junctions[nodeID] = id
		return id, nil
	}
	nextRoadID := cfg.FirstRoadID
	addRoad := func(seg osmSegment, from, to osm.NodeID, lanes int, reversed bool) error {
		source, err := junctionOf(from)
		if err != nil {
			return err
		}
		target, err := junctionOf(to)
		if err != nil {
			return err
		}
		freeSpeed := -1.0
		if seg.way.maxSpeed > 0 {
			freeSpeed = seg.way.maxSpeed / 3.6
		}
		_, err = net.AddRoad(RoadSpec{
			Name:      seg.way.name,
			Geom:      data.segmentGeom(seg.nodes, reversed),
			ID:        nextRoadID,
			Source:    source,
			Target:    target,
			LinkType:  seg.way.linkType,
			Lanes:     lanes,
			FreeSpeed: freeSpeed,
			OSMWayID:  seg.way.ID,
		})
		if err != nil {
			log.Debugf("Segment of way %d is skipped: %s", seg.way.ID, err.Error())
			return nil
		}
		nextRoadID++
		return nil
	}
	skipped := 0
	for _, seg := range segments {
		if seg.source == seg.target {
			skipped++
			continue
		}
		forward, backward := seg.way.directionLanes()
		from, to := seg.source, seg.target
		if seg.way.IsReversed {
			from, to = to, from
		}
		if err := addRoad(seg, from, to, forward, seg.way.IsReversed); err != nil {
			return nil, err
		}
		if seg.way.Oneway {
			continue
		}
		if err := addRoad(seg, to, from, backward, !seg.way.IsReversed); err != nil {
			return nil, err
		}
	}
	if skipped > 0 {
		log.Debugf("%d closed segments have been skipped", skipped)
	}
	if verbose {
		fmt.Printf("Done in %v\n\tJunctions: %d\n\tRoads: %d\n", time.Since(st), len(junctions), net.NumRoads())
	}
	if cfg.ConnectIntersections {
		st = time.Now()
		movements := net.ConnectIntersections()
		if verbose {
			fmt.Printf("Connected intersections in %v\n\tMovements: %d\n", time.Since(st), movements)
		}
	}
	return net, nil
}
