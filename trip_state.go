package microsim

// TripState is trip-level state of a vehicle
type TripState uint16

const (
	TRIP_NONE = TripState(iota + 1)
	TRIP_PARKING
	TRIP_OCCUPIED
	TRIP_RELOCATION_INACCESSIBLE
	TRIP_BUS
	TRIP_CHARGING
	TRIP_CRUISING
	TRIP_PICKUP
	TRIP_RELOCATION_ACCESSIBLE
)

func (iotaIdx TripState) String() string {
	return [...]string{"none", "parking", "occupied", "relocation_inaccessible", "bus_trip", "charging", "cruising", "pickup", "relocation_accessible"}[iotaIdx-1]
}

// Relocating reports whether state is one of relocation variants
func (iotaIdx TripState) Relocating() bool {
	return iotaIdx == TRIP_RELOCATION_ACCESSIBLE || iotaIdx == TRIP_RELOCATION_INACCESSIBLE
}

// VehicleClass distinguishes taxi-like and bus-like agents
type VehicleClass uint16

const (
	VEHICLE_TAXI = VehicleClass(iota + 1)
	VEHICLE_BUS
)

func (iotaIdx VehicleClass) String() string {
	return [...]string{"taxi", "bus"}[iotaIdx-1]
}

// Regime is acceleration regime chosen by car-following
type Regime uint16

const (
	REGIME_FREE_FLOW = Regime(iota + 1)
	REGIME_CAR_FOLLOWING
	REGIME_EMERGENCY
	REGIME_NOSING
	REGIME_YIELDING
	REGIME_AT_JUNCTION
)

func (iotaIdx Regime) String() string {
	return [...]string{"free_flow", "car_following", "emergency", "nosing", "yielding", "at_junction"}[iotaIdx-1]
}
