package microsim

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// TripRecord describes finished trip of a vehicle
type TripRecord struct {
	RunID         string       `json:"run_id"`
	Tick          int64        `json:"tick"`
	Vehicle       VehicleID    `json:"vehicle"`
	Class         VehicleClass `json:"class"`
	State         TripState    `json:"state"`
	Origin        ZoneID       `json:"origin"`
	Destination   ZoneID       `json:"destination"`
	Station       StationID    `json:"station"`
	DepartureTick int64        `json:"departure_tick"`
	Distance      float64      `json:"distance"`
	Energy        float64      `json:"energy"`
	RouteChoice   int          `json:"route_choice"`
	Passengers    int          `json:"passengers"`
}

// ChargingRecord describes finished charging session
type ChargingRecord struct {
	RunID        string       `json:"run_id"`
	Tick         int64        `json:"tick"`
	Vehicle      VehicleID    `json:"vehicle"`
	Class        VehicleClass `json:"class"`
	Station      StationID    `json:"station"`
	Charger      ChargerType  `json:"charger"`
	WaitTicks    int64        `json:"wait_ticks"`
	ChargeTicks  int64        `json:"charge_ticks"`
	InitialLevel float64      `json:"initial_level"`
	FinalLevel   float64      `json:"final_level"`
}

// TickRecord is network-wide state after a tick
type TickRecord struct {
	RunID     string  `json:"run_id"`
	Tick      int64   `json:"tick"`
	OnRoad    int     `json:"on_road"`
	Pending   int     `json:"pending"`
	Stuck     int     `json:"stuck"`
	Entered   int64   `json:"entered"`
	Left      int64   `json:"left"`
	MeanSpeed float64 `json:"mean_speed"`
	Energy    float64 `json:"energy"`
}

// DataCollector is append-only sink of simulation records. Implementations must not block the caller for long.
type DataCollector interface {
	RecordTrip(rec TripRecord)
	RecordCharging(rec ChargingRecord)
	RecordTick(rec TickRecord)
	Close() error
}

type discardCollector struct{}

func (discardCollector) RecordTrip(TripRecord)         {}
func (discardCollector) RecordCharging(ChargingRecord) {}
func (discardCollector) RecordTick(TickRecord)         {}
func (discardCollector) Close() error                  { return nil }

// MultiCollector fans records out to several collectors
type MultiCollector []DataCollector

func (m MultiCollector) RecordTrip(rec TripRecord) {
	for _, c := range m {
		c.RecordTrip(rec)
	}
}

func (m MultiCollector) RecordCharging(rec ChargingRecord) {
	for _, c := range m {
		c.RecordCharging(rec)
	}
}

func (m MultiCollector) RecordTick(rec TickRecord) {
	for _, c := range m {
		c.RecordTick(rec)
	}
}

// Close closes every collector and returns the first error
func (m MultiCollector) Close() error {
	var result error
	for _, c := range m {
		if err := c.Close(); err != nil && result == nil {
			result = err
		}
	}
	return result
}

// tickRecord summarizes vehicles of the fleet
func (sim *Simulation) tickRecord(now int64) TickRecord {
	rec := TickRecord{
		RunID:   sim.runID,
		Tick:    now,
		Entered: sim.entered.Load(),
		Left:    sim.left.Load(),
	}
	maxStuck := sim.cfg.maxStuckTicks()
	speedSum := 0.0
	for _, v := range sim.fleet.vehicles {
		rec.Energy += v.totalEnergy
		switch {
		case v.motion == MOTION_PENDING:
			rec.Pending++
		case v.motion.OnRoad():
			rec.OnRoad++
			speedSum += v.speed
			if v.stuckTicks >= maxStuck {
				rec.Stuck++
			}
		}
	}
	if rec.OnRoad > 0 {
		rec.MeanSpeed = speedSum / float64(rec.OnRoad)
	}
	return rec
}

// MemoryCollector keeps every record in memory
type MemoryCollector struct {
	mu        sync.Mutex
	trips     []TripRecord
	chargings []ChargingRecord
	ticks     []TickRecord
}

// NewMemoryCollector creates empty in-memory sink
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

func (c *MemoryCollector) RecordTrip(rec TripRecord) {
	c.mu.Lock()
	c.trips = append(c.trips, rec)
	c.mu.Unlock()
}

func (c *MemoryCollector) RecordCharging(rec ChargingRecord) {
	c.mu.Lock()
	c.chargings = append(c.chargings, rec)
	c.mu.Unlock()
}

func (c *MemoryCollector) RecordTick(rec TickRecord) {
	c.mu.Lock()
	c.ticks = append(c.ticks, rec)
	c.mu.Unlock()
}

func (c *MemoryCollector) Close() error {
	return nil
}

// Trips returns copy of collected trip records
func (c *MemoryCollector) Trips() []TripRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TripRecord(nil), c.trips...)
}

// Chargings returns copy of collected charging records
func (c *MemoryCollector) Chargings() []ChargingRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChargingRecord(nil), c.chargings...)
}

// Ticks returns copy of collected tick records
func (c *MemoryCollector) Ticks() []TickRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TickRecord(nil), c.ticks...)
}

type csvRow struct {
	file   int
	fields []string
}

const (
	csvTrips = iota
	csvChargings
	csvTicks
)

// CSVCollector writes records into trips.csv, charging.csv and ticks.csv of output directory.
// Rows are queued and written by background goroutine; rows are dropped when the queue is full.
type CSVCollector struct {
	rows    chan csvRow
	done    chan struct{}
	files   [3]*os.File
	writers [3]*csv.Writer
	dropped int64
	mu      sync.Mutex
	closed  bool
}

// NewCSVCollector creates output files and starts writer goroutine. Buffer is queue length in rows.
func NewCSVCollector(dir string, buffer int) (*CSVCollector, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "Can't create output directory")
	}
	c := &CSVCollector{
		rows: make(chan csvRow, buffer),
		done: make(chan struct{}),
	}
	names := [3]string{"trips.csv", "charging.csv", "ticks.csv"}
	headers := [3][]string{
		{"run_id", "tick", "vehicle", "class", "state", "origin", "destination", "station", "departure_tick", "distance", "energy", "route_choice", "passengers"},
		{"run_id", "tick", "vehicle", "class", "station", "charger", "wait_ticks", "charge_ticks", "initial_level", "final_level"},
		{"run_id", "tick", "on_road", "pending", "stuck", "entered", "left", "mean_speed", "energy"},
	}
	for i, name := range names {
		file, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			c.closeFiles()
			return nil, errors.Wrapf(err, "Can't create file '%s'", name)
		}
		c.files[i] = file
		writer := csv.NewWriter(file)
		writer.Comma = ';'
		if err := writer.Write(headers[i]); err != nil {
			c.closeFiles()
			return nil, errors.Wrapf(err, "Can't write header to '%s'", name)
		}
		c.writers[i] = writer
	}
	go c.loop()
	return c, nil
}

func (c *CSVCollector) loop() {
	defer close(c.done)
	for row := range c.rows {
		if err := c.writers[row.file].Write(row.fields); err != nil {
			log.Errorf("Can't write record: %s", err.Error())
		}
	}
}

func (c *CSVCollector) enqueue(file int, fields []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.rows <- csvRow{file: file, fields: fields}:
	default:
		c.dropped++
		if c.dropped == 1 || c.dropped%1000 == 0 {
			log.Warnf("Output queue is full, %d records dropped so far", c.dropped)
		}
	}
}

func (c *CSVCollector) RecordTrip(rec TripRecord) {
	c.enqueue(csvTrips, []string{
		rec.RunID,
		fmt.Sprintf("%d", rec.Tick),
		fmt.Sprintf("%d", rec.Vehicle),
		rec.Class.String(),
		rec.State.String(),
		fmt.Sprintf("%d", rec.Origin),
		fmt.Sprintf("%d", rec.Destination),
		fmt.Sprintf("%d", rec.Station),
		fmt.Sprintf("%d", rec.DepartureTick),
		fmt.Sprintf("%f", rec.Distance),
		fmt.Sprintf("%f", rec.Energy),
		fmt.Sprintf("%d", rec.RouteChoice),
		fmt.Sprintf("%d", rec.Passengers),
	})
}

func (c *CSVCollector) RecordCharging(rec ChargingRecord) {
	c.enqueue(csvChargings, []string{
		rec.RunID,
		fmt.Sprintf("%d", rec.Tick),
		fmt.Sprintf("%d", rec.Vehicle),
		rec.Class.String(),
		fmt.Sprintf("%d", rec.Station),
		chargerName(rec.Charger),
		fmt.Sprintf("%d", rec.WaitTicks),
		fmt.Sprintf("%d", rec.ChargeTicks),
		fmt.Sprintf("%f", rec.InitialLevel),
		fmt.Sprintf("%f", rec.FinalLevel),
	})
}

func (c *CSVCollector) RecordTick(rec TickRecord) {
	c.enqueue(csvTicks, []string{
		rec.RunID,
		fmt.Sprintf("%d", rec.Tick),
		fmt.Sprintf("%d", rec.OnRoad),
		fmt.Sprintf("%d", rec.Pending),
		fmt.Sprintf("%d", rec.Stuck),
		fmt.Sprintf("%d", rec.Entered),
		fmt.Sprintf("%d", rec.Left),
		fmt.Sprintf("%f", rec.MeanSpeed),
		fmt.Sprintf("%f", rec.Energy),
	})
}

// Dropped returns number of records lost because of full queue
func (c *CSVCollector) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close drains the queue, flushes and closes files
func (c *CSVCollector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.rows)
	c.mu.Unlock()
	<-c.done
	var result error
	for i, writer := range c.writers {
		writer.Flush()
		if err := writer.Error(); err != nil && result == nil {
			result = errors.Wrapf(err, "Can't flush file '%s'", c.files[i].Name())
		}
	}
	if err := c.closeFiles(); err != nil && result == nil {
		result = err
	}
	return result
}

func (c *CSVCollector) closeFiles() error {
	var result error
	for _, file := range c.files {
		if file == nil {
			continue
		}
		if err := file.Close(); err != nil && result == nil {
			result = errors.Wrapf(err, "Can't close file '%s'", file.Name())
		}
	}
	return result
}

// chargerName is empty for sessions which never got a charger
func chargerName(kind ChargerType) string {
	if kind == 0 {
		return ""
	}
	return kind.String()
}
