package microsim

import (
	"sort"
)

const (
	defaultRightMostLanes = 1
	defaultLeftMostLanes  = 1
)

type connectionPair struct {
	first  int
	second int
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func total(slice []int) int {
	sum := 0
	for _, val := range slice {
		sum += val
	}
	return sum
}

// getIntersectionsConnections evaluates lane ranges for every outcoming road.
// Result is indexed the same way as outcomingRoads; each element is [incoming range, outcoming range].
// Lanes are counted from the left.
func getIntersectionsConnections(incomingRoad *Road, outcomingRoads []*Road) [][]connectionPair {
	// Sort outcoming roads by angle in descending order (left to right)
	angles := make([]float64, len(outcomingRoads))
	for i, outRoad := range outcomingRoads {
		angles[i] = angleBetweenLines(incomingRoad.geomEuclidean, outRoad.geomEuclidean)
	}
	indices := make([]int, len(outcomingRoads))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return angles[indices[i]] > angles[indices[j]]
	})
	sorted := make([]*Road, len(outcomingRoads))
	for i := range sorted {
		sorted[i] = outcomingRoads[indices[i]]
	}
	connections := make([][]connectionPair, len(outcomingRoads))
	set := func(sortedIdx int, in, out connectionPair) {
		connections[indices[sortedIdx]] = []connectionPair{in, out}
	}

	inLanes := len(incomingRoad.lanes)
	if inLanes == 1 {
		set(0, connectionPair{0, 0}, connectionPair{0, 0})
		for i := 1; i < len(sorted); i++ {
			last := len(sorted[i].lanes) - 1
			set(i, connectionPair{0, 0}, connectionPair{last, last})
		}
		return connections
	}

	switch {
	case len(sorted) == 1: // Full connection
		n := minInt(inLanes, len(sorted[0].lanes))
		set(0, connectionPair{0, n - 1}, connectionPair{0, n - 1})
	case len(sorted) == 2: // Default right, remaining left
		leftRoad := sorted[0]
		n := minInt(inLanes-defaultLeftMostLanes, len(leftRoad.lanes))
		set(0, connectionPair{0, n - 1}, connectionPair{0, n - 1})
		rightRoad := sorted[1]
		rightLanes := len(rightRoad.lanes)
		set(1, connectionPair{inLanes - defaultRightMostLanes, inLanes - 1}, connectionPair{rightLanes - defaultRightMostLanes, rightLanes - 1})
	default: // >= 3: default left, default right, remaining middle
		set(0, connectionPair{0, defaultLeftMostLanes - 1}, connectionPair{0, defaultLeftMostLanes - 1})
		middleRoads := sorted[1 : len(sorted)-1]
		remaining := inLanes - defaultLeftMostLanes - defaultRightMostLanes
		if remaining >= len(middleRoads) {
			// Distribute remaining lanes round-robin
			assigned := make([]int, len(middleRoads))
			capacity := make([]int, len(middleRoads))
			for i, midRoad := range middleRoads {
				capacity[i] = len(midRoad.lanes)
			}
			for remaining > 0 && total(capacity) > 0 {
				for idx := range middleRoads {
					if capacity[idx] == 0 || remaining == 0 {
						continue
					}
					capacity[idx]--
					assigned[idx]++
					remaining--
				}
			}
			start := defaultLeftMostLanes
			for idx, midRoad := range middleRoads {
				if assigned[idx] == 0 {
					continue
				}
				midLanes := len(midRoad.lanes)
				set(idx+1, connectionPair{start, start + assigned[idx] - 1}, connectionPair{midLanes - assigned[idx], midLanes - 1})
				start += assigned[idx]
			}
		} else {
			// Not enough lanes: middle roads share lanes, shifted to the left when needed
			start := defaultLeftMostLanes
			if inLanes-defaultLeftMostLanes < len(middleRoads) {
				start = 0
			}
			for idx, midRoad := range middleRoads {
				laneNumber := minInt(start+idx, inLanes-1)
				last := len(midRoad.lanes) - 1
				set(idx+1, connectionPair{laneNumber, laneNumber}, connectionPair{last, last})
			}
		}
		rightRoad := sorted[len(sorted)-1]
		rightLanes := len(rightRoad.lanes)
		set(len(sorted)-1, connectionPair{inLanes - defaultRightMostLanes, inLanes - 1}, connectionPair{rightLanes - defaultRightMostLanes, rightLanes - 1})
	}
	return connections
}

// lanePairs expands lane ranges into explicit lane-to-lane pairs so that every lane of both ranges is connected
func lanePairs(in, out connectionPair) [][2]int {
	nIn := in.second - in.first + 1
	nOut := out.second - out.first + 1
	if nIn <= 0 || nOut <= 0 {
		return nil
	}
	n := nIn
	if nOut > n {
		n = nOut
	}
	pairs := make([][2]int, 0, n)
	for k := 0; k < n; k++ {
		pairs = append(pairs, [2]int{in.first + minInt(k, nIn-1), out.first + minInt(k, nOut-1)})
	}
	return pairs
}

// ConnectIntersections builds lane-to-lane connections at every junction. U-turns are used only
// when a road has no other way out. Returns number of generated movements.
func (net *RoadNetwork) ConnectIntersections() int {
	junctionsIDs := make([]JunctionID, 0, len(net.junctions))
	for id := range net.junctions {
		junctionsIDs = append(junctionsIDs, id)
	}
	sort.Slice(junctionsIDs, func(i, j int) bool { return junctionsIDs[i] < junctionsIDs[j] })

	generated := 0
	for _, junctionID := range junctionsIDs {
		junction := net.junctions[junctionID]
		for _, inID := range junction.incomingRoads {
			incomingRoad := net.roads[inID]
			outcoming := make([]*Road, 0, len(junction.outcomingRoads))
			var uTurns []*Road
			for _, outID := range junction.outcomingRoads {
				outRoad := net.roads[outID]
				if outRoad.target == incomingRoad.source || turnBetweenLines(incomingRoad.geomEuclidean, outRoad.geomEuclidean) == TURN_U_TURN {
					uTurns = append(uTurns, outRoad)
					continue
				}
				outcoming = append(outcoming, outRoad)
			}
			if len(outcoming) == 0 {
				outcoming = uTurns
			}
			if len(outcoming) == 0 {
				continue
			}
			connections := getIntersectionsConnections(incomingRoad, outcoming)
			for i, outRoad := range outcoming {
				if len(connections[i]) != 2 || connections[i][0].second < connections[i][0].first || connections[i][1].second < connections[i][1].first {
					continue
				}
				in, out := clampPair(connections[i][0], len(incomingRoad.lanes)), clampPair(connections[i][1], len(outRoad.lanes))
				pairs := lanePairs(in, out)
				if len(pairs) == 0 {
					continue
				}
				for _, pair := range pairs {
					incomingRoad.lanes[pair[0]].connect(outRoad.lanes[pair[1]])
				}
				net.addMovement(junction, incomingRoad, outRoad, in, out)
				generated++
			}
		}
	}
	return generated
}

func clampPair(pair connectionPair, lanesNum int) connectionPair {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > lanesNum-1 {
			return lanesNum - 1
		}
		return v
	}
	return connectionPair{clamp(pair.first), clamp(pair.second)}
}
