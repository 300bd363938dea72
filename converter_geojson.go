package microsim

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
)

// PrepareGeoJSONLinestring returns GeoJSON geometry of LineString
func PrepareGeoJSONLinestring(line orb.LineString) *geojson.Geometry {
	pts2d := make([][]float64, len(line))
	for i := range line {
		pts2d[i] = []float64{line[i].Lon(), line[i].Lat()}
	}
	return geojson.NewLineStringGeometry(pts2d)
}

// SnapshotToGeoJSON returns FeatureCollection with point feature per vehicle
func SnapshotToGeoJSON(snapshot []VehicleSnapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, snap := range snapshot {
		feature := geojson.NewPointFeature([]float64{snap.Coordinate.Lon(), snap.Coordinate.Lat()})
		feature.ID = snap.ID
		feature.SetProperty("class", snap.Class.String())
		feature.SetProperty("state", snap.State.String())
		feature.SetProperty("motion", snap.Motion.String())
		feature.SetProperty("road", snap.Road)
		feature.SetProperty("lane", snap.Lane)
		feature.SetProperty("speed", snap.Speed)
		feature.SetProperty("bearing", snap.Bearing)
		feature.SetProperty("battery", snap.Battery)
		feature.SetProperty("passengers", snap.Passengers)
		fc.AddFeature(feature)
	}
	return fc
}

// RoadsToGeoJSON returns FeatureCollection with line feature per road
func RoadsToGeoJSON(net *RoadNetwork) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, road := range net.Roads() {
		feature := geojson.NewFeature(PrepareGeoJSONLinestring(road.geom))
		feature.ID = road.ID
		feature.SetProperty("name", road.name)
		feature.SetProperty("lanes", len(road.lanes))
		feature.SetProperty("link_type", road.linkType.String())
		feature.SetProperty("travel_time", road.travelTime)
		feature.SetProperty("vehicles", road.nVehicles)
		fc.AddFeature(feature)
	}
	return fc
}
