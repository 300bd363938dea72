package microsim

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// WriteSnapshotCSV writes vehicle snapshot with WKT point geometry
func WriteSnapshotCSV(w io.Writer, snapshot []VehicleSnapshot) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	err := writer.Write([]string{"id", "class", "state", "motion", "road", "lane", "distance", "speed", "acc", "bearing", "battery", "passengers", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, snap := range snapshot {
		err = writer.Write([]string{
			fmt.Sprintf("%d", snap.ID),
			snap.Class.String(),
			snap.State.String(),
			snap.Motion.String(),
			fmt.Sprintf("%d", snap.Road),
			fmt.Sprintf("%d", snap.Lane),
			fmt.Sprintf("%f", snap.Distance),
			fmt.Sprintf("%f", snap.Speed),
			fmt.Sprintf("%f", snap.Acceleration),
			fmt.Sprintf("%f", snap.Bearing),
			fmt.Sprintf("%f", snap.Battery),
			fmt.Sprintf("%d", snap.Passengers),
			wkt.MarshalString(snap.Coordinate),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write vehicle")
		}
	}
	writer.Flush()
	return writer.Error()
}
