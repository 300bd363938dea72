package microsim

import (
	"regexp"
	"strconv"

	"github.com/paulmach/osm"
	log "github.com/sirupsen/logrus"
)

type osmWay struct {
	name          string
	highway       string
	junction      string
	area          string
	motorVehicle  string
	access        string
	motorcar      string
	service       string
	TagMap        osm.Tags
	Nodes         []osm.NodeID
	lanesBackward int
	lanesForward  int
	lanes         int
	maxSpeed      float64 // km/h
	ID            osm.WayID
	linkType      LinkType
	Oneway        bool
	OnewayDefault bool
	IsReversed    bool
}

var (
	mphRegExp   = regexp.MustCompile(`\d+\.?\d*\s*mph`)
	kmhRegExp   = regexp.MustCompile(`^\d+\.?\d*`)
	lanesRegExp = regexp.MustCompile(`\d+`)
	numRegExp   = regexp.MustCompile(`\d+\.?\d*`)
)

func newOsmWay(way *osm.Way) *osmWay {
	prepared := &osmWay{
		ID:            way.ID,
		Nodes:         make([]osm.NodeID, 0, len(way.Nodes)),
		TagMap:        make(osm.Tags, len(way.Tags)),
		maxSpeed:      -1.0,
		lanes:         -1,
		lanesForward:  -1,
		lanesBackward: -1,
	}
	copy(prepared.TagMap, way.Tags)
	for _, node := range way.Nodes {
		prepared.Nodes = append(prepared.Nodes, node.ID)
	}
	prepared.processOneway()
	prepared.processTags()
	return prepared
}

func (way *osmWay) processOneway() {
	onewayText := way.TagMap.Find("oneway")
	switch onewayText {
	case "yes", "1", "true":
		way.Oneway = true
	case "no", "0", "false":
		way.Oneway = false
	case "-1":
		way.Oneway = true
		way.IsReversed = true
	case "":
		if _, ok := junctionTypes[way.TagMap.Find("junction")]; ok {
			way.Oneway = true
		} else {
			way.OnewayDefault = true
		}
	default:
		// Reversible and alternating ways depend on time conditions
		if _, found := onewayReversible[onewayText]; !found {
			log.Warnf("Unhandled `oneway` tag value has been met: '%s'. Way ID: '%d'", onewayText, way.ID)
		}
	}
}

func parseLanes(text string, wayID osm.WayID, tag string) int {
	if text == "" {
		return -1
	}
	num := lanesRegExp.FindString(text)
	if num == "" {
		return -1
	}
	lanes, err := strconv.Atoi(num)
	if err != nil {
		log.Debugf("Provided `%s` tag value should be an integer. Got '%s'. Way ID: '%d'", tag, text, wayID)
		return -1
	}
	return lanes
}

func (way *osmWay) processTags() {
	way.name = way.TagMap.Find("name")
	way.highway = way.TagMap.Find("highway")
	way.junction = way.TagMap.Find("junction")
	way.area = way.TagMap.Find("area")
	way.motorVehicle = way.TagMap.Find("motor_vehicle")
	way.access = way.TagMap.Find("access")
	way.motorcar = way.TagMap.Find("motorcar")
	way.service = way.TagMap.Find("service")

	way.lanes = parseLanes(way.TagMap.Find("lanes"), way.ID, "lanes")
	way.lanesForward = parseLanes(way.TagMap.Find("lanes:forward"), way.ID, "lanes:forward")
	way.lanesBackward = parseLanes(way.TagMap.Find("lanes:backward"), way.ID, "lanes:backward")

	maxSpeed := way.TagMap.Find("maxspeed")
	if maxSpeed == "" {
		return
	}
	if mph := mphRegExp.FindString(maxSpeed); mph != "" {
		value, err := strconv.ParseFloat(numRegExp.FindString(mph), 64)
		if err == nil {
			way.maxSpeed = value * 1.609344
		}
		return
	}
	if kmh := kmhRegExp.FindString(maxSpeed); kmh != "" {
		value, err := strconv.ParseFloat(kmh, 64)
		if err == nil {
			way.maxSpeed = value
		}
		return
	}
	log.Debugf("Provided `maxspeed` tag value can't be parsed. Got '%s'. Way ID: '%d'", maxSpeed, way.ID)
}

func (way *osmWay) isHighwayNegligible() bool {
	_, ok := negligibleHighwayTags[way.highway]
	return ok
}

// isAutoAllowed checks explicit permissions first, then restrictions
func (way *osmWay) isAutoAllowed() bool {
	if _, ok := autoAccessInclude[ACCESS_MOTOR_VEHICLE][way.motorVehicle]; ok {
		return true
	}
	if _, ok := autoAccessInclude[ACCESS_MOTORCAR][way.motorcar]; ok {
		return true
	}
	checks := map[AccessType]string{
		ACCESS_HIGHWAY:       way.highway,
		ACCESS_MOTOR_VEHICLE: way.motorVehicle,
		ACCESS_MOTORCAR:      way.motorcar,
		ACCESS_OSM_ACCESS:    way.access,
		ACCESS_SERVICE:       way.service,
	}
	for accessType, value := range checks {
		if _, ok := autoAccessExclude[accessType][value]; ok {
			return false
		}
	}
	return true
}

// directionLanes splits lanes between forward and backward directions of way
func (way *osmWay) directionLanes() (forward, backward int) {
	def := defaultLanes(way.linkType)
	if way.Oneway {
		forward = way.lanes
		if way.lanesForward > 0 {
			forward = way.lanesForward
		}
		if forward <= 0 {
			forward = def
		}
		return forward, 0
	}
	forward, backward = way.lanesForward, way.lanesBackward
	switch {
	case forward > 0 && backward > 0:
	case forward > 0 && way.lanes > forward:
		backward = way.lanes - forward
	case backward > 0 && way.lanes > backward:
		forward = way.lanes - backward
	case way.lanes > 1:
		forward = way.lanes / 2
		backward = way.lanes - forward
	default:
		forward = (def + 1) / 2
		backward = forward
	}
	if forward <= 0 {
		forward = 1
	}
	if backward <= 0 {
		backward = 1
	}
	return forward, backward
}
