package microsim

import (
	"math"
)

const (
	taxiMass      = 1521.0
	busMass       = 18000.0
	avgPersonMass = 60.0
)

// EnergyParams describes power-based consumption model of electric vehicle
type EnergyParams struct {
	Gravity           float64 // m/s^2
	AirDensity        float64 // kg/m^3
	FrontalArea       float64 // m^2
	DragCoefficient   float64
	RollingResistance float64
	C1                float64
	C2                float64
	MotorEfficiency   float64
	DrivelineEff      float64
	AuxiliaryPower    float64 // W
}

var (
	taxiEnergyParams = EnergyParams{
		Gravity:           9.8,
		AirDensity:        1.2256,
		FrontalArea:       2.3316,
		DragCoefficient:   0.28,
		RollingResistance: 1.75,
		C1:                0.0328,
		C2:                4.575,
		MotorEfficiency:   0.92,
		DrivelineEff:      0.91,
		AuxiliaryPower:    1500.0,
	}
	busEnergyParams = EnergyParams{
		Gravity:           9.8,
		AirDensity:        1.2256,
		FrontalArea:       8.0,
		DragCoefficient:   0.65,
		RollingResistance: 1.75,
		C1:                0.0328,
		C2:                4.575,
		MotorEfficiency:   0.92,
		DrivelineEff:      0.91,
		AuxiliaryPower:    6000.0,
	}
)

// energyParams returns model parameters for vehicle class
func energyParams(class VehicleClass) EnergyParams {
	if class == VEHICLE_BUS {
		return busEnergyParams
	}
	return taxiEnergyParams
}

// Consumption returns battery energy (kWh) used during dt seconds at given speed and acceleration.
// Negative value means regenerated energy.
func (p EnergyParams) Consumption(mass, speed, acc, dt float64) float64 {
	force := mass*acc +
		mass*p.Gravity*p.RollingResistance/1000.0*(p.C1*speed+p.C2) +
		0.5*p.AirDensity*p.FrontalArea*p.DragCoefficient*speed*speed
	wheelPower := force * speed
	var batteryPower float64
	if acc >= 0 {
		batteryPower = (wheelPower + p.AuxiliaryPower) / (p.MotorEfficiency * p.DrivelineEff)
	} else {
		batteryPower = (wheelPower + p.AuxiliaryPower) * (1.0 / math.Exp(0.0411/math.Abs(acc)))
	}
	return batteryPower * dt / 3.6e6
}

// effectiveMass includes rotating parts and passengers
func (v *Vehicle) effectiveMass() float64 {
	return 1.05*v.mass + float64(v.Passengers())*avgPersonMass
}

// updateBatteryLevel spends energy of the last step
func (v *Vehicle) updateBatteryLevel() {
	if !v.motion.OnRoad() {
		return
	}
	used := energyParams(v.class).Consumption(v.effectiveMass(), v.speed, v.acc, v.w.cfg.stepSize)
	if math.IsNaN(used) || math.IsInf(used, 0) {
		return
	}
	v.battery -= used
	if v.battery < 0 {
		v.battery = 0
	}
	if v.battery > v.batteryCapacity {
		v.battery = v.batteryCapacity
	}
	v.tripEnergy += used
	v.totalEnergy += used
}

// batteryRatio is state of charge in [0, 1]
func (v *Vehicle) batteryRatio() float64 {
	if v.batteryCapacity <= 0 {
		return 0
	}
	return v.battery / v.batteryCapacity
}
