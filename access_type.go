package microsim

// AccessType names the OSM key checked when deciding whether taxis and buses may drive the way
type AccessType uint16

const (
	ACCESS_HIGHWAY = AccessType(iota + 1)
	ACCESS_MOTOR_VEHICLE
	ACCESS_MOTORCAR
	ACCESS_OSM_ACCESS
	ACCESS_SERVICE
	// Key is not checked
	ACCESS_UNDEFINED = AccessType(0)
)

// String returns OSM key
func (iotaIdx AccessType) String() string {
	return [...]string{"undefined", "highway", "motor_vehicle", "motorcar", "access", "service"}[iotaIdx]
}
