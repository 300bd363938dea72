package microsim

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportToCSV writes junctions, roads, lanes and movements into separate files next to fname:
// <name>_junctions.csv, <name>_roads.csv, <name>_lanes.csv and <name>_movement.csv
func (net *RoadNetwork) ExportToCSV(fname string) error {

	fnameParts := strings.Split(fname, ".csv")
	fnameJunctions := fnameParts[0] + "_junctions.csv"
	fnameRoads := fnameParts[0] + "_roads.csv"
	fnameLanes := fnameParts[0] + "_lanes.csv"
	fnameMovement := fnameParts[0] + "_movement.csv"

	err := net.exportJunctionsToCSV(fnameJunctions)
	if err != nil {
		return errors.Wrap(err, "Can't export junctions")
	}

	err = net.exportRoadsToCSV(fnameRoads)
	if err != nil {
		return errors.Wrap(err, "Can't export roads")
	}

	err = net.exportLanesToCSV(fnameLanes)
	if err != nil {
		return errors.Wrap(err, "Can't export lanes")
	}

	err = net.exportMovementToCSV(fnameMovement)
	if err != nil {
		return errors.Wrap(err, "Can't export movement")
	}

	return nil
}

func createCSV(fname string) (*os.File, *csv.Writer, error) {
	file, err := os.Create(fname)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't create file")
	}
	writer := csv.NewWriter(file)
	writer.Comma = ';'
	return file, writer, nil
}

func (net *RoadNetwork) exportRoadsToCSV(fname string) error {
	file, writer, err := createCSV(fname)
	if err != nil {
		return err
	}
	defer file.Close()
	defer writer.Flush()

	err = writer.Write([]string{"id", "source_junction", "target_junction", "osm_way_id", "link_type", "lanes", "free_speed", "travel_time", "length_meters", "partition", "name", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, road := range net.Roads() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", road.ID),
			fmt.Sprintf("%d", road.source),
			fmt.Sprintf("%d", road.target),
			fmt.Sprintf("%d", road.osmWayID),
			road.linkType.String(),
			fmt.Sprintf("%d", len(road.lanes)),
			fmt.Sprintf("%f", road.freeSpeed),
			fmt.Sprintf("%f", road.travelTime),
			fmt.Sprintf("%f", road.length),
			fmt.Sprintf("%d", road.partition),
			road.name,
			wkt.MarshalString(road.geom),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write road")
		}
	}
	return nil
}

func (net *RoadNetwork) exportLanesToCSV(fname string) error {
	file, writer, err := createCSV(fname)
	if err != nil {
		return err
	}
	defer file.Close()
	defer writer.Flush()

	err = writer.Write([]string{"id", "road_id", "index", "length_meters", "downstream_lanes", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, road := range net.Roads() {
		for _, lane := range road.lanes {
			dn := make([]string, len(lane.dnLanes))
			for i, dnLane := range lane.dnLanes {
				dn[i] = fmt.Sprintf("%d", dnLane.ID)
			}
			err = writer.Write([]string{
				fmt.Sprintf("%d", lane.ID),
				fmt.Sprintf("%d", road.ID),
				fmt.Sprintf("%d", lane.index),
				fmt.Sprintf("%f", lane.length),
				strings.Join(dn, ","),
				wkt.MarshalString(lane.geom),
			})
			if err != nil {
				return errors.Wrap(err, "Can't write lane")
			}
		}
	}
	return nil
}

func (net *RoadNetwork) exportJunctionsToCSV(fname string) error {
	file, writer, err := createCSV(fname)
	if err != nil {
		return err
	}
	defer file.Close()
	defer writer.Flush()

	err = writer.Write([]string{"id", "osm_node_id", "control", "incoming_roads", "outcoming_roads", "longitude", "latitude"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, junction := range net.Junctions() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", junction.ID),
			fmt.Sprintf("%d", junction.osmNodeID),
			junction.Control().String(),
			fmt.Sprintf("%d", len(junction.incomingRoads)),
			fmt.Sprintf("%d", len(junction.outcomingRoads)),
			fmt.Sprintf("%f", junction.geom[0]),
			fmt.Sprintf("%f", junction.geom[1]),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write junction")
		}
	}
	return nil
}

func (net *RoadNetwork) exportMovementToCSV(fname string) error {
	file, writer, err := createCSV(fname)
	if err != nil {
		return err
	}
	defer file.Close()
	defer writer.Flush()

	err = writer.Write([]string{"id", "junction_id", "in_road_id", "in_lane_start", "in_lane_end", "out_road_id", "out_lane_start", "out_lane_end", "type", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, mvmt := range net.movements {
		err = writer.Write([]string{
			fmt.Sprintf("%d", mvmt.ID),
			fmt.Sprintf("%d", mvmt.JunctionID),
			fmt.Sprintf("%d", mvmt.IncomingRoadID),
			fmt.Sprintf("%d", mvmt.incomeLaneStart),
			fmt.Sprintf("%d", mvmt.incomeLaneEnd),
			fmt.Sprintf("%d", mvmt.OutcomingRoadID),
			fmt.Sprintf("%d", mvmt.outcomeLaneStart),
			fmt.Sprintf("%d", mvmt.outcomeLaneEnd),
			mvmt.turnType.String(),
			wkt.MarshalString(mvmt.geom),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write movement")
		}
	}
	return nil
}
