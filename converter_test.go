package microsim

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotConverters(t *testing.T) {
	snapshot := []VehicleSnapshot{{
		ID:         3,
		Class:      VEHICLE_TAXI,
		State:      TRIP_OCCUPIED,
		Motion:     MOTION_ON_LANE,
		Road:       1,
		Lane:       2,
		Speed:      10,
		Coordinate: testOrigin,
		Passengers: 1,
	}}

	fc := SnapshotToGeoJSON(snapshot)
	require.Len(t, fc.Features, 1)
	feature := fc.Features[0]
	assert.Equal(t, []float64{testOrigin.Lon(), testOrigin.Lat()}, feature.Geometry.Point)
	assert.Equal(t, VEHICLE_TAXI.String(), feature.Properties["class"])
	assert.Equal(t, 10.0, feature.Properties["speed"])

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshotCSV(&buf, snapshot))
	reader := csv.NewReader(&buf)
	reader.Comma = ';'
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "geom", rows[0][12])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "POINT(37.6 55.7)", rows[1][12])
}

func TestRoadsToGeoJSON(t *testing.T) {
	net := newTestCorridor(t, 2, 300, 2)
	fc := RoadsToGeoJSON(net)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, 2, fc.Features[0].Properties["lanes"])
	assert.Len(t, fc.Features[0].Geometry.LineString, 2)
}
