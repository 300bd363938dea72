package microsim

// Fleet is an arena of vehicles. Lanes and roads keep only identifiers of their head and tail,
// vehicles keep identifiers of their neighbours.
type Fleet struct {
	vehicles []*Vehicle
}

func newFleet() *Fleet {
	return &Fleet{vehicles: make([]*Vehicle, 0)}
}

// Len returns number of vehicles in arena
func (fleet *Fleet) Len() int {
	return len(fleet.vehicles)
}

// Vehicle returns vehicle by identifier or nil
func (fleet *Fleet) Vehicle(id VehicleID) *Vehicle {
	if id < 0 || int(id) >= len(fleet.vehicles) {
		return nil
	}
	return fleet.vehicles[id]
}

// Vehicles returns all vehicles ordered by identifier
func (fleet *Fleet) Vehicles() []*Vehicle {
	return fleet.vehicles
}

func (fleet *Fleet) add(v *Vehicle) {
	v.ID = VehicleID(len(fleet.vehicles))
	fleet.vehicles = append(fleet.vehicles, v)
}

// insertToLane splices vehicle between lead and lag. Both could be NoVehicle.
func (fleet *Fleet) insertToLane(v *Vehicle, lane *Lane, lead, lag VehicleID) {
	v.lane = lane
	v.leading = lead
	v.trailing = lag
	if lead != NoVehicle {
		fleet.vehicles[lead].trailing = v.ID
	} else {
		lane.firstVehicle = v.ID
	}
	if lag != NoVehicle {
		fleet.vehicles[lag].leading = v.ID
	} else {
		lane.lastVehicle = v.ID
	}
	lane.nVehicles++
}

// appendToLane puts vehicle at the upstream end of lane
func (fleet *Fleet) appendToLane(v *Vehicle, lane *Lane) {
	v.distance = lane.length
	fleet.insertToLane(v, lane, lane.lastVehicle, NoVehicle)
}

// removeFromLane unlinks vehicle from its lane
func (fleet *Fleet) removeFromLane(v *Vehicle) {
	lane := v.lane
	if lane == nil {
		return
	}
	if v.leading != NoVehicle {
		fleet.vehicles[v.leading].trailing = v.trailing
	} else {
		lane.firstVehicle = v.trailing
	}
	if v.trailing != NoVehicle {
		fleet.vehicles[v.trailing].leading = v.leading
	} else {
		lane.lastVehicle = v.leading
	}
	lane.nVehicles--
	v.leading = NoVehicle
	v.trailing = NoVehicle
	v.lane = nil
}

// lanePosition finds neighbours for vehicle at given distance in lane.
// Hinted pair is used when it is consistent with order of lane.
func (fleet *Fleet) lanePosition(lane *Lane, distance float64, leadHint, lagHint VehicleID) (VehicleID, VehicleID) {
	if fleet.consistentPosition(lane, distance, leadHint, lagHint) {
		return leadHint, lagHint
	}
	lag := NoVehicle
	lead := lane.lastVehicle
	for lead != NoVehicle && fleet.vehicles[lead].distance > distance {
		lag = lead
		lead = fleet.vehicles[lead].leading
	}
	return lead, lag
}

func (fleet *Fleet) consistentPosition(lane *Lane, distance float64, lead, lag VehicleID) bool {
	if lead == NoVehicle {
		if lane.firstVehicle != lag {
			return false
		}
	} else {
		front := fleet.vehicles[lead]
		if front.lane != lane || front.trailing != lag || front.distance > distance {
			return false
		}
	}
	if lag == NoVehicle {
		return lane.lastVehicle == lead
	}
	back := fleet.vehicles[lag]
	return back.lane == lane && back.distance >= distance
}

// appendToMacroList puts vehicle at the tail of road's macro list
func (fleet *Fleet) appendToMacroList(v *Vehicle, road *Road) {
	v.road = road
	v.macroLeading = road.lastVehicle
	v.macroTrailing = NoVehicle
	if road.lastVehicle != NoVehicle {
		fleet.vehicles[road.lastVehicle].macroTrailing = v.ID
	} else {
		road.firstVehicle = v.ID
	}
	road.lastVehicle = v.ID
	road.nVehicles++
}

func (fleet *Fleet) unlinkMacro(v *Vehicle) {
	road := v.road
	if v.macroLeading != NoVehicle {
		fleet.vehicles[v.macroLeading].macroTrailing = v.macroTrailing
	} else {
		road.firstVehicle = v.macroTrailing
	}
	if v.macroTrailing != NoVehicle {
		fleet.vehicles[v.macroTrailing].macroLeading = v.macroLeading
	} else {
		road.lastVehicle = v.macroLeading
	}
	v.macroLeading = NoVehicle
	v.macroTrailing = NoVehicle
}

// removeFromMacroList unlinks vehicle from its road's macro list
func (fleet *Fleet) removeFromMacroList(v *Vehicle) {
	if v.road == nil {
		return
	}
	fleet.unlinkMacro(v)
	v.road.nVehicles--
	v.road = nil
}

// advanceInMacroList restores macro ordering after vehicle has moved.
// Only the part of list the vehicle has overtaken is walked.
func (fleet *Fleet) advanceInMacroList(v *Vehicle) {
	if v.macroLeading == NoVehicle {
		return
	}
	frac := v.distFraction()
	if frac >= fleet.vehicles[v.macroLeading].distFraction() {
		return
	}
	front := v.macroLeading
	for front != NoVehicle && frac < fleet.vehicles[front].distFraction() {
		front = fleet.vehicles[front].macroLeading
	}
	road := v.road
	fleet.unlinkMacro(v)
	if front == NoVehicle {
		v.macroTrailing = road.firstVehicle
		fleet.vehicles[road.firstVehicle].macroLeading = v.ID
		road.firstVehicle = v.ID
		return
	}
	frontVehicle := fleet.vehicles[front]
	v.macroLeading = front
	v.macroTrailing = frontVehicle.macroTrailing
	if frontVehicle.macroTrailing != NoVehicle {
		fleet.vehicles[frontVehicle.macroTrailing].macroLeading = v.ID
	} else {
		road.lastVehicle = v.ID
	}
	frontVehicle.macroTrailing = v.ID
}

// firstVehicle returns vehicle closest to downstream end of lane or nil
func (fleet *Fleet) firstVehicle(lane *Lane) *Vehicle {
	return fleet.Vehicle(lane.firstVehicle)
}

// lastVehicle returns vehicle closest to upstream end of lane or nil
func (fleet *Fleet) lastVehicle(lane *Lane) *Vehicle {
	return fleet.Vehicle(lane.lastVehicle)
}

// macroOrder returns vehicles of road from the most advanced to the least advanced one
func (fleet *Fleet) macroOrder(road *Road, buf []*Vehicle) []*Vehicle {
	buf = buf[:0]
	for id := road.firstVehicle; id != NoVehicle; id = fleet.vehicles[id].macroTrailing {
		buf = append(buf, fleet.vehicles[id])
	}
	return buf
}
