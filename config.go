package microsim

import (
	"fmt"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// HermanParams is (alpha, beta, gamma) triple of reactive car-following model
type HermanParams struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

// Config holds simulation parameters. It is built once and must not be mutated afterwards.
type Config struct {
	stepSize              float64
	maxAcceleration       float64
	maxDeceleration       float64
	normalDeceleration    float64
	vehicleLength         float64
	hLower                float64
	hUpper                float64
	hermanAcc             HermanParams
	hermanDec             HermanParams
	nShadow               int
	noLaneChangingLength  float64
	laneChangingProbPart1 float64
	laneChangingProbPart2 float64
	minLeadMLC            float64
	minLagMLC             float64
	betaLeadMLC           [2]float64
	betaLagMLC            [2]float64
	betaLeadDLC           [2]float64
	betaLagDLC            [2]float64
	gammaMLC              float64
	critDisFraction       float64
	minLeadDLC            float64
	minLagDLC             float64
	maxStuckTime          float64
	maxCruisingTime       float64
	rechargeLevelLow      float64
	rechargeLevelHigh     float64
	proactiveCharging     bool
	networkRefresh        int64
	partitionRefresh      int64
	nPartitions           int
	randomSeed            int64
	evBatteryCapacity     float64
	busBatteryCapacity    float64
	busCapacity           int
	routeCandidates       int
}

func (cfg *Config) String() string {
	return fmt.Sprintf(`
Simulation parameters:
	step_size: %f
	max_acceleration: %f
	max_deceleration: %f
	normal_deceleration: %f
	vehicle_length: %f
	headway_thresholds: [%f, %f]
	herman_acc: %+v
	herman_dec: %+v
	n_shadow: %d
	no_lane_changing_length: %f
	lane_changing_prob: %f / %f
	max_stuck_time (min): %f
	max_cruising_time (min): %f
	recharge_levels: %f / %f
	proactive_charging: %t
	network_refresh (ticks): %d
	partition_refresh (ticks): %d
	partitions: %d
	random_seed: %d
	battery_capacity (kWh): ev=%f bus=%f
	bus_capacity: %d
	route_candidates: %d
	`,
		cfg.stepSize,
		cfg.maxAcceleration,
		cfg.maxDeceleration,
		cfg.normalDeceleration,
		cfg.vehicleLength,
		cfg.hLower, cfg.hUpper,
		cfg.hermanAcc,
		cfg.hermanDec,
		cfg.nShadow,
		cfg.noLaneChangingLength,
		cfg.laneChangingProbPart1, cfg.laneChangingProbPart2,
		cfg.maxStuckTime,
		cfg.maxCruisingTime,
		cfg.rechargeLevelLow, cfg.rechargeLevelHigh,
		cfg.proactiveCharging,
		cfg.networkRefresh,
		cfg.partitionRefresh,
		cfg.nPartitions,
		cfg.randomSeed,
		cfg.evBatteryCapacity, cfg.busBatteryCapacity,
		cfg.busCapacity,
		cfg.routeCandidates,
	)
}

func defaultConfig() *Config {
	return &Config{
		stepSize:              0.3,
		maxAcceleration:       3.0,
		maxDeceleration:       -3.0,
		normalDeceleration:    -0.5,
		vehicleLength:         5.5,
		hLower:                0.5,
		hUpper:                1.36,
		hermanAcc:             HermanParams{Alpha: 2.15, Beta: -1.67, Gamma: -0.89},
		hermanDec:             HermanParams{Alpha: 1.55, Beta: 1.08, Gamma: 1.65},
		nShadow:               10,
		noLaneChangingLength:  10.0,
		laneChangingProbPart1: 0.5,
		laneChangingProbPart2: 0.5,
		minLeadMLC:            3.0,
		minLagMLC:             5.0,
		betaLeadMLC:           [2]float64{0.05, 0.15},
		betaLagMLC:            [2]float64{0.15, 0.40},
		betaLeadDLC:           [2]float64{0.05, 0.15},
		betaLagDLC:            [2]float64{0.15, 0.40},
		gammaMLC:              2.5e-5,
		critDisFraction:       0.6,
		minLeadDLC:            0.05,
		minLagDLC:             0.05,
		maxStuckTime:          1.0,
		maxCruisingTime:       30.0,
		rechargeLevelLow:      0.2,
		rechargeLevelHigh:     0.8,
		proactiveCharging:     false,
		networkRefresh:        1000,
		partitionRefresh:      10000,
		nPartitions:           1,
		randomSeed:            42,
		evBatteryCapacity:     50.0,
		busBatteryCapacity:    250.0,
		busCapacity:           40,
		routeCandidates:       5,
	}
}

// NewConfig returns default configuration modified by given options
func NewConfig(options ...func(*Config)) (*Config, error) {
	cfg := defaultConfig()
	for _, option := range options {
		option(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks parameters consistency
func (cfg *Config) Validate() error {
	switch {
	case cfg.stepSize <= 0:
		return errors.Wrapf(ErrBadConfig, "Step size must be positive, got %f", cfg.stepSize)
	case cfg.maxAcceleration <= 0:
		return errors.Wrapf(ErrBadConfig, "Max acceleration must be positive, got %f", cfg.maxAcceleration)
	case cfg.maxDeceleration >= 0:
		return errors.Wrapf(ErrBadConfig, "Max deceleration must be negative, got %f", cfg.maxDeceleration)
	case cfg.normalDeceleration >= 0 || cfg.normalDeceleration < cfg.maxDeceleration:
		return errors.Wrapf(ErrBadConfig, "Normal deceleration must be in [%f, 0), got %f", cfg.maxDeceleration, cfg.normalDeceleration)
	case cfg.vehicleLength <= 0:
		return errors.Wrapf(ErrBadConfig, "Vehicle length must be positive, got %f", cfg.vehicleLength)
	case cfg.hLower < 0 || cfg.hLower > cfg.hUpper:
		return errors.Wrapf(ErrBadConfig, "Headway thresholds must satisfy 0 <= lower <= upper, got [%f, %f]", cfg.hLower, cfg.hUpper)
	case cfg.nShadow < 0:
		return errors.Wrapf(ErrBadConfig, "Number of shadow roads can't be negative, got %d", cfg.nShadow)
	case cfg.laneChangingProbPart1 < 0 || cfg.laneChangingProbPart1 > 1 || cfg.laneChangingProbPart2 < 0 || cfg.laneChangingProbPart2 > 1:
		return errors.Wrapf(ErrBadConfig, "Lane changing probabilities must be in [0, 1], got %f / %f", cfg.laneChangingProbPart1, cfg.laneChangingProbPart2)
	case cfg.rechargeLevelLow < 0 || cfg.rechargeLevelLow > cfg.rechargeLevelHigh || cfg.rechargeLevelHigh > 1:
		return errors.Wrapf(ErrBadConfig, "Recharge levels must satisfy 0 <= low <= high <= 1, got %f / %f", cfg.rechargeLevelLow, cfg.rechargeLevelHigh)
	case cfg.networkRefresh <= 0 || cfg.partitionRefresh <= 0:
		return errors.Wrapf(ErrBadConfig, "Refresh intervals must be positive, got %d / %d", cfg.networkRefresh, cfg.partitionRefresh)
	case cfg.partitionRefresh < cfg.networkRefresh:
		return errors.Wrapf(ErrBadConfig, "Partition refresh (%d) can't be shorter than network refresh (%d)", cfg.partitionRefresh, cfg.networkRefresh)
	case cfg.nPartitions <= 0:
		return errors.Wrapf(ErrBadConfig, "Number of partitions must be positive, got %d", cfg.nPartitions)
	case cfg.evBatteryCapacity <= 0 || cfg.busBatteryCapacity <= 0:
		return errors.Wrapf(ErrBadConfig, "Battery capacities must be positive, got %f / %f", cfg.evBatteryCapacity, cfg.busBatteryCapacity)
	case cfg.busCapacity <= 0:
		return errors.Wrapf(ErrBadConfig, "Bus capacity must be positive, got %d", cfg.busCapacity)
	}
	return nil
}

// maxStuckTicks is number of ticks without progress after which gridlock recovery starts
func (cfg *Config) maxStuckTicks() int {
	return int(cfg.maxStuckTime * 60.0 / cfg.stepSize)
}

func (cfg *Config) maxCruisingTicks() int64 {
	return int64(cfg.maxCruisingTime * 60.0 / cfg.stepSize)
}

// partRefreshMultiplier is number of network refreshes per one partition refresh
func (cfg *Config) partRefreshMultiplier() int {
	return int(cfg.partitionRefresh / cfg.networkRefresh)
}

// StepSize returns tick length in seconds
func (cfg *Config) StepSize() float64 {
	return cfg.stepSize
}

// Seed returns base seed of every random generator of simulation
func (cfg *Config) Seed() int64 {
	return cfg.randomSeed
}

// Partitions returns number of partitions (and worker goroutines)
func (cfg *Config) Partitions() int {
	return cfg.nPartitions
}

func WithStepSize(stepSize float64) func(*Config) {
	return func(cfg *Config) {
		cfg.stepSize = stepSize
	}
}

func WithAccelerationBounds(maxAcceleration, maxDeceleration float64) func(*Config) {
	return func(cfg *Config) {
		cfg.maxAcceleration = maxAcceleration
		cfg.maxDeceleration = maxDeceleration
	}
}

func WithNormalDeceleration(normalDeceleration float64) func(*Config) {
	return func(cfg *Config) {
		cfg.normalDeceleration = normalDeceleration
	}
}

func WithVehicleLength(vehicleLength float64) func(*Config) {
	return func(cfg *Config) {
		cfg.vehicleLength = vehicleLength
	}
}

func WithHeadwayThresholds(lower, upper float64) func(*Config) {
	return func(cfg *Config) {
		cfg.hLower = lower
		cfg.hUpper = upper
	}
}

func WithHermanParams(acc, dec HermanParams) func(*Config) {
	return func(cfg *Config) {
		cfg.hermanAcc = acc
		cfg.hermanDec = dec
	}
}

func WithShadowRoads(nShadow int) func(*Config) {
	return func(cfg *Config) {
		cfg.nShadow = nShadow
	}
}

func WithNoLaneChangingLength(length float64) func(*Config) {
	return func(cfg *Config) {
		cfg.noLaneChangingLength = length
	}
}

func WithLaneChangingProbabilities(part1, part2 float64) func(*Config) {
	return func(cfg *Config) {
		cfg.laneChangingProbPart1 = part1
		cfg.laneChangingProbPart2 = part2
	}
}

// WithDiscretionaryGapBetas sets speed and relative speed coefficients of critical gaps
// used by discretionary lane changing
func WithDiscretionaryGapBetas(lead, lag [2]float64) func(*Config) {
	return func(cfg *Config) {
		cfg.betaLeadDLC = lead
		cfg.betaLagDLC = lag
	}
}

// WithMaxStuckTime sets gridlock threshold in minutes
func WithMaxStuckTime(minutes float64) func(*Config) {
	return func(cfg *Config) {
		cfg.maxStuckTime = minutes
	}
}

// WithMaxCruisingTime sets cruising budget in minutes
func WithMaxCruisingTime(minutes float64) func(*Config) {
	return func(cfg *Config) {
		cfg.maxCruisingTime = minutes
	}
}

func WithRechargeLevels(low, high float64) func(*Config) {
	return func(cfg *Config) {
		cfg.rechargeLevelLow = low
		cfg.rechargeLevelHigh = high
	}
}

func WithProactiveCharging(proactive bool) func(*Config) {
	return func(cfg *Config) {
		cfg.proactiveCharging = proactive
	}
}

// WithRefreshIntervals sets network (travel times, routing) and partition refresh intervals in ticks
func WithRefreshIntervals(network, partition int64) func(*Config) {
	return func(cfg *Config) {
		cfg.networkRefresh = network
		cfg.partitionRefresh = partition
	}
}

func WithPartitions(nPartitions int) func(*Config) {
	return func(cfg *Config) {
		cfg.nPartitions = nPartitions
	}
}

func WithSeed(seed int64) func(*Config) {
	return func(cfg *Config) {
		cfg.randomSeed = seed
	}
}

func WithBatteryCapacities(ev, bus float64) func(*Config) {
	return func(cfg *Config) {
		cfg.evBatteryCapacity = ev
		cfg.busBatteryCapacity = bus
	}
}

func WithBusCapacity(seats int) func(*Config) {
	return func(cfg *Config) {
		cfg.busCapacity = seats
	}
}

func WithRouteCandidates(k int) func(*Config) {
	return func(cfg *Config) {
		cfg.routeCandidates = k
	}
}

// LoadConfig reads KEY=VALUE properties file and applies it on top of defaults.
// Options are applied after the file, so they take precedence.
func LoadConfig(fileName string, options ...func(*Config)) (*Config, error) {
	props, err := godotenv.Read(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read properties file '%s'", fileName)
	}
	cfg := defaultConfig()
	for key, value := range props {
		err = cfg.setProperty(key, value)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't apply property '%s'", key)
		}
	}
	for _, option := range options {
		option(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) setProperty(key, value string) error {
	floatTargets := map[string]*float64{
		"SIMULATION_STEP_SIZE":      &cfg.stepSize,
		"MAX_ACCELERATION":          &cfg.maxAcceleration,
		"MAX_DECELERATION":          &cfg.maxDeceleration,
		"NORMAL_DECELERATION":       &cfg.normalDeceleration,
		"DEFAULT_VEHICLE_LENGTH":    &cfg.vehicleLength,
		"H_LOWER":                   &cfg.hLower,
		"H_UPPER":                   &cfg.hUpper,
		"ALPHA_ACC":                 &cfg.hermanAcc.Alpha,
		"BETA_ACC":                  &cfg.hermanAcc.Beta,
		"GAMMA_ACC":                 &cfg.hermanAcc.Gamma,
		"ALPHA_DEC":                 &cfg.hermanDec.Alpha,
		"BETA_DEC":                  &cfg.hermanDec.Beta,
		"GAMMA_DEC":                 &cfg.hermanDec.Gamma,
		"NO_LANECHANGING_LENGTH":    &cfg.noLaneChangingLength,
		"LANE_CHANGING_PROB_PART1":  &cfg.laneChangingProbPart1,
		"LANE_CHANGING_PROB_PART2":  &cfg.laneChangingProbPart2,
		"MIN_LEAD":                  &cfg.minLeadMLC,
		"MIN_LAG":                   &cfg.minLagMLC,
		"BETA_LEAD_MLC_1":           &cfg.betaLeadMLC[0],
		"BETA_LEAD_MLC_2":           &cfg.betaLeadMLC[1],
		"BETA_LAG_MLC_1":            &cfg.betaLagMLC[0],
		"BETA_LAG_MLC_2":            &cfg.betaLagMLC[1],
		"BETA_LEAD_DLC_1":           &cfg.betaLeadDLC[0],
		"BETA_LEAD_DLC_2":           &cfg.betaLeadDLC[1],
		"BETA_LAG_DLC_1":            &cfg.betaLagDLC[0],
		"BETA_LAG_DLC_2":            &cfg.betaLagDLC[1],
		"GAMMA_MLC":                 &cfg.gammaMLC,
		"CRIT_DIS_FRACTION":         &cfg.critDisFraction,
		"MIN_LEAD_DLC":              &cfg.minLeadDLC,
		"MIN_LAG_DLC":               &cfg.minLagDLC,
		"MAX_STUCK_TIME":            &cfg.maxStuckTime,
		"MAX_CRUISING_TIME":         &cfg.maxCruisingTime,
		"RECHARGE_LEVEL_LOW":        &cfg.rechargeLevelLow,
		"RECHARGE_LEVEL_HIGH":       &cfg.rechargeLevelHigh,
		"EV_BATTERY":                &cfg.evBatteryCapacity,
		"BUS_BATTERY":               &cfg.busBatteryCapacity,
	}
	intTargets := map[string]*int{
		"N_SHADOW":         &cfg.nShadow,
		"N_PARTITION":      &cfg.nPartitions,
		"BUS_CAPACITY":     &cfg.busCapacity,
		"ROUTE_CANDIDATES": &cfg.routeCandidates,
	}
	int64Targets := map[string]*int64{
		"SIMULATION_NETWORK_REFRESH_INTERVAL":   &cfg.networkRefresh,
		"SIMULATION_PARTITION_REFRESH_INTERVAL": &cfg.partitionRefresh,
		"RANDOM_SEED":                           &cfg.randomSeed,
	}
	if target, ok := floatTargets[key]; ok {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*target = v
		return nil
	}
	if target, ok := intTargets[key]; ok {
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*target = v
		return nil
	}
	if target, ok := int64Targets[key]; ok {
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		*target = v
		return nil
	}
	if key == "PROACTIVE_CHARGING" {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cfg.proactiveCharging = v
		return nil
	}
	log.Debugf("Unknown property '%s' has been skipped", key)
	return nil
}
