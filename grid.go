package microsim

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const metersPerDegree = 111320.0

// NewGridNetwork builds rows x cols lattice of two-way roads with given spacing (meters) between
// junctions. Junction at row r and column c gets identifier r*cols+c+1; lanes are connected at every junction.
func NewGridNetwork(rows, cols int, spacing float64, lanes int, origin orb.Point) (*RoadNetwork, error) {
	if rows < 1 || cols < 1 || rows*cols < 2 {
		return nil, errors.Errorf("Grid %dx%d has no roads", rows, cols)
	}
	if spacing <= 0 {
		return nil, errors.Errorf("Grid spacing must be positive, got %f", spacing)
	}
	dLat := spacing / metersPerDegree
	dLon := spacing / (metersPerDegree * math.Cos(origin.Lat()*math.Pi/180.0))
	net := NewRoadNetwork()
	junctionID := func(r, c int) JunctionID {
		return JunctionID(r*cols + c + 1)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pt := orb.Point{origin.Lon() + float64(c)*dLon, origin.Lat() + float64(r)*dLat}
			if _, err := net.AddJunction(junctionID(r, c), pt); err != nil {
				return nil, errors.Wrap(err, "Can't add grid junction")
			}
		}
	}
	nextRoadID := RoadID(1)
	addRoad := func(from, to JunctionID) error {
		source, _ := net.Junction(from)
		target, _ := net.Junction(to)
		_, err := net.AddRoad(RoadSpec{
			Geom:     orb.LineString{source.geom, target.geom},
			ID:       nextRoadID,
			Source:   from,
			Target:   to,
			LinkType: LINK_SECONDARY,
			Lanes:    lanes,
		})
		if err != nil {
			return errors.Wrapf(err, "Can't add grid road %d -> %d", from, to)
		}
		nextRoadID++
		return nil
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				if err := addRoad(junctionID(r, c), junctionID(r, c+1)); err != nil {
					return nil, err
				}
				if err := addRoad(junctionID(r, c+1), junctionID(r, c)); err != nil {
					return nil, err
				}
			}
			if r+1 < rows {
				if err := addRoad(junctionID(r, c), junctionID(r+1, c)); err != nil {
					return nil, err
				}
				if err := addRoad(junctionID(r+1, c), junctionID(r, c)); err != nil {
					return nil, err
				}
			}
		}
	}
	net.ConnectIntersections()
	return net, nil
}
