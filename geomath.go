package microsim

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var errParallel = errors.New("The lines are parallel")

// Check if two segments intersects and returns intersections Point
// p1, p2 - first segment
// p3, p4 - second segment
// Note: Euclidean space
func intersect(p1, p2, p3, p4 orb.Point) (orb.Point, error) {
	a1 := p2[1] - p1[1]
	b1 := p1[0] - p2[0]
	c1 := a1*p1[0] + b1*p1[1]
	a2 := p4[1] - p3[1]
	b2 := p3[0] - p4[0]
	c2 := a2*p3[0] + b2*p3[1]

	det := a1*b2 - a2*b1
	if det == 0 {
		return orb.Point{}, errParallel
	}
	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return orb.Point{x, y}, nil
}

// offsetCurve shifts Euclidean line by given distance: positive values go to the left side, negative to the right one.
// Zero-length segments are skipped.
func offsetCurve(line orb.LineString, distance float64) orb.LineString {
	segments := make([][2]orb.Point, 0, len(line))
	for i := 1; i < len(line); i++ {
		p1 := line[i-1]
		p2 := line[i]
		dx, dy := p2[0]-p1[0], p2[1]-p1[1]
		vecLen := math.Sqrt(dx*dx + dy*dy)
		if vecLen == 0 {
			continue
		}
		// Normal to the left
		nx, ny := -dy/vecLen*distance, dx/vecLen*distance
		segments = append(segments, [2]orb.Point{
			{p1[0] + nx, p1[1] + ny},
			{p2[0] + nx, p2[1] + ny},
		})
	}
	if len(segments) == 0 {
		result := make(orb.LineString, len(line))
		copy(result, line)
		return result
	}
	result := make(orb.LineString, 0, len(segments)+1)
	result = append(result, segments[0][0])
	for i := 1; i < len(segments); i++ {
		intersection, err := intersect(segments[i-1][0], segments[i-1][1], segments[i][0], segments[i][1])
		if err != nil {
			continue
		}
		result = append(result, intersection)
	}
	result = append(result, segments[len(segments)-1][1])
	return result
}

// laneCenterLine returns WGS84 centre line of lane with given index (0 is the leftmost one) for road with given WGS84 geometry
func laneCenterLine(roadGeom orb.LineString, index, lanesNum int) orb.LineString {
	if len(roadGeom) < 2 || lanesNum <= 1 {
		result := make(orb.LineString, len(roadGeom))
		copy(result, roadGeom)
		return result
	}
	shift := laneWidth * (float64(lanesNum-1)/2.0 - float64(index))
	return lineFromEuclidean(offsetCurve(lineToEuclidean(roadGeom), shift))
}
