package microsim

// OsmConfiguration allows to filter ways by certain tags from OSM data
type OsmConfiguration struct {
	EntityName string // Currently 'highway' only
	Tags       []string
	// FirstJunctionID and FirstRoadID are identifiers of the first imported junction and road
	FirstJunctionID JunctionID
	FirstRoadID     RoadID
	// ConnectIntersections generates lane connections at every junction
	ConnectIntersections bool
}

// DefaultOsmConfiguration keeps every highway kind which cars are allowed to use
func DefaultOsmConfiguration() *OsmConfiguration {
	return &OsmConfiguration{
		EntityName: "highway",
		Tags: []string{
			"motorway", "motorway_link",
			"trunk", "trunk_link",
			"primary", "primary_link",
			"secondary", "secondary_link",
			"tertiary", "tertiary_link",
			"residential", "living_street", "service", "unclassified", "road",
		},
		ConnectIntersections: true,
	}
}

// CheckTag checks if incoming tag is represented in configuration. Empty tags list allows everything.
func (cfg *OsmConfiguration) CheckTag(tag string) bool {
	if len(cfg.Tags) == 0 {
		return true
	}
	for i := range cfg.Tags {
		if cfg.Tags[i] == tag {
			return true
		}
	}
	return false
}
