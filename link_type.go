package microsim

type LinkType uint16

const (
	LINK_MOTORWAY = LinkType(iota + 1)
	LINK_TRUNK
	LINK_PRIMARY
	LINK_SECONDARY
	LINK_TERTIARY
	LINK_RESIDENTIAL
	LINK_LIVING_STREET
	LINK_SERVICE
	LINK_UNCLASSIFIED
	LINK_CONNECTOR
)

func (iotaIdx LinkType) String() string {
	return [...]string{"motorway", "trunk", "primary", "secondary", "tertiary", "residential", "living_street", "service", "unclassified", "connector"}[iotaIdx-1]
}

var (
	linkTypeByHighway = map[string]LinkType{
		"motorway":       LINK_MOTORWAY,
		"motorway_link":  LINK_MOTORWAY,
		"trunk":          LINK_TRUNK,
		"trunk_link":     LINK_TRUNK,
		"primary":        LINK_PRIMARY,
		"primary_link":   LINK_PRIMARY,
		"secondary":      LINK_SECONDARY,
		"secondary_link": LINK_SECONDARY,
		"tertiary":       LINK_TERTIARY,
		"tertiary_link":  LINK_TERTIARY,
		"residential":    LINK_RESIDENTIAL,
		"living_street":  LINK_LIVING_STREET,
		"service":        LINK_SERVICE,
		"unclassified":   LINK_UNCLASSIFIED,
		"road":           LINK_UNCLASSIFIED,
	}
	defaultLanesByLinkType = map[LinkType]int{
		LINK_MOTORWAY:      4,
		LINK_TRUNK:         3,
		LINK_PRIMARY:       3,
		LINK_SECONDARY:     2,
		LINK_TERTIARY:      2,
		LINK_RESIDENTIAL:   1,
		LINK_LIVING_STREET: 1,
		LINK_SERVICE:       1,
		LINK_UNCLASSIFIED:  1,
		LINK_CONNECTOR:     2,
	}
	// km/h
	defaultSpeedByLinkType = map[LinkType]float64{
		LINK_MOTORWAY:      120,
		LINK_TRUNK:         100,
		LINK_PRIMARY:       80,
		LINK_SECONDARY:     60,
		LINK_TERTIARY:      40,
		LINK_RESIDENTIAL:   30,
		LINK_LIVING_STREET: 20,
		LINK_SERVICE:       30,
		LINK_UNCLASSIFIED:  30,
		LINK_CONNECTOR:     120,
	}
)

// defaultLanes returns number of lanes for link type when nothing else is known
func defaultLanes(linkType LinkType) int {
	if lanes, ok := defaultLanesByLinkType[linkType]; ok {
		return lanes
	}
	return 1
}

// defaultFreeSpeed returns free-flow speed (m/s) for link type when nothing else is known
func defaultFreeSpeed(linkType LinkType) float64 {
	if speed, ok := defaultSpeedByLinkType[linkType]; ok {
		return speed / 3.6
	}
	return 30.0 / 3.6
}
