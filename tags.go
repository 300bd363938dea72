package microsim

var (
	autoAccessInclude = map[AccessType]map[string]struct{}{
		ACCESS_MOTOR_VEHICLE: {
			"yes": struct{}{},
		},
		ACCESS_MOTORCAR: {
			"yes": struct{}{},
		},
	}

	autoAccessExclude = map[AccessType]map[string]struct{}{
		ACCESS_HIGHWAY: {
			"cycleway":   struct{}{},
			"footway":    struct{}{},
			"pedestrian": struct{}{},
			"steps":      struct{}{},
			"track":      struct{}{},
			"corridor":   struct{}{},
			"elevator":   struct{}{},
			"escalator":  struct{}{},
			"bus_stop":   struct{}{},
			"platform":   struct{}{},
		},
		ACCESS_MOTOR_VEHICLE: {
			"no": struct{}{},
		},
		ACCESS_MOTORCAR: {
			"no": struct{}{},
		},
		ACCESS_OSM_ACCESS: {
			"private": struct{}{},
			"no":      struct{}{},
		},
		ACCESS_SERVICE: {
			"parking":          struct{}{},
			"parking_aisle":    struct{}{},
			"driveway":         struct{}{},
			"private":          struct{}{},
			"emergency_access": struct{}{},
		},
	}

	junctionTypes = map[string]struct{}{
		"circular":   {},
		"roundabout": {},
	}

	negligibleHighwayTags = map[string]struct{}{
		"path":         {},
		"construction": {},
		"proposed":     {},
		"raceway":      {},
		"bridleway":    {},
		"rest_area":    {},
		"su":           {},
		"abandoned":    {},
		"planned":      {},
		"trailhead":    {},
		"stairs":       {},
		"dismantled":   {},
		"disused":      {},
		"razed":        {},
		"access":       {},
		"corridor":     {},
		"stop":         {},
	}

	// See ref.: https://wiki.openstreetmap.org/wiki/Tag:oneway%3Dreversible
	onewayReversible = map[string]struct{}{
		"reversible":  {},
		"alternating": {},
	}

	onewayDefaultByLinkType = map[LinkType]bool{
		LINK_MOTORWAY:      false,
		LINK_TRUNK:         false,
		LINK_PRIMARY:       false,
		LINK_SECONDARY:     false,
		LINK_TERTIARY:      false,
		LINK_RESIDENTIAL:   false,
		LINK_LIVING_STREET: false,
		LINK_SERVICE:       false,
		LINK_UNCLASSIFIED:  false,
		LINK_CONNECTOR:     true,
	}
)
