package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/LdDl/microsim"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
)

var (
	tagStr         = flag.String("tags", "motorway,motorway_link,trunk,trunk_link,primary,primary_link,secondary,secondary_link,tertiary,tertiary_link,residential,living_street,service,unclassified,road", "Set of needed tags (separated by commas)")
	osmFileName    = flag.String("file", "", "Filename of *.osm, *.xml or *.osm.pbf file. Synthetic grid is used when empty")
	gridSize       = flag.Int("grid", 6, "Number of rows and columns of synthetic grid")
	configFileName = flag.String("config", "", "Filename of KEY=VALUE properties file with simulation parameters")
	taxis          = flag.Int("taxis", 50, "Number of taxis")
	buses          = flag.Int("buses", 0, "Number of bus routes (one bus per route)")
	stations       = flag.Int("stations", 1, "Number of charging stations")
	ticks          = flag.Int64("ticks", 3600, "Number of ticks to simulate (ignored when controlled over websocket)")
	partitions     = flag.Int("partitions", 0, "Number of partitions, value from config is used when zero")
	zoneStep       = flag.Int("zone-step", 1, "Place zone at every N-th junction")
	zoneCapacity   = flag.Int("zone-capacity", 20, "Parking capacity of every zone")
	demandRate     = flag.Float64("demand", 0.002, "Mean number of passenger requests per zone per tick")
	maxWait        = flag.Int64("max-wait", 600, "Ticks passenger waits before leaving, zero means forever")
	tickRecords    = flag.Int64("tick-records", 60, "Interval (ticks) of network-wide records")
	logLevel       = flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	logFormat      = flag.String("log-format", "text", "Log format: text or json")
	outDir         = flag.String("out", "output", "Directory for CSV outputs")
	wsAddr         = flag.String("ws", "", "Address of control server (e.g. ':8080'). Simulation is stepped by controller when set")
	natsURL        = flag.String("nats", "", "NATS server URL for publishing records")
	natsPrefix     = flag.String("nats-prefix", "microsim", "Subject prefix for NATS records")
	verbose        = flag.Bool("verbose", false, "Print progress")
)

func main() {

	flag.Parse()

	if err := microsim.SetLogLevel(*logLevel); err != nil {
		fmt.Println(err)
		return
	}
	if err := microsim.SetLogFormat(*logFormat); err != nil {
		fmt.Println(err)
		return
	}

	options := []func(*microsim.Config){}
	if *partitions > 0 {
		options = append(options, microsim.WithPartitions(*partitions))
	}
	var cfg *microsim.Config
	var err error
	if *configFileName != "" {
		cfg, err = microsim.LoadConfig(*configFileName, options...)
	} else {
		cfg, err = microsim.NewConfig(options...)
	}
	if err != nil {
		log.Fatalln(err)
	}
	if *verbose {
		fmt.Println(cfg)
	}

	net, err := loadNetwork()
	if err != nil {
		log.Fatalln(err)
	}

	err = os.MkdirAll(*outDir, 0755)
	if err != nil {
		log.Fatalln(err)
	}
	err = net.ExportToCSV(filepath.Join(*outDir, "network.csv"))
	if err != nil {
		log.Fatalln(err)
	}

	csvCollector, err := microsim.NewCSVCollector(*outDir, 4096)
	if err != nil {
		log.Fatalln(err)
	}
	collectors := microsim.MultiCollector{csvCollector}
	if *natsURL != "" {
		natsCollector, err := microsim.NewNatsCollector(*natsURL, *natsPrefix)
		if err != nil {
			log.Fatalln(err)
		}
		collectors = append(collectors, natsCollector)
	}
	defer func() {
		if err := collectors.Close(); err != nil {
			log.Errorf("Can't close collectors: %s", err.Error())
		}
	}()

	zones := microsim.ZonesAtJunctions(net, *zoneStep, *zoneCapacity, 3)
	if len(zones) < 2 {
		log.Fatalln("Network is too small to place zones")
	}
	zoneIDs := make([]microsim.ZoneID, len(zones))
	for i, zone := range zones {
		zoneIDs[i] = zone.ID()
	}
	if *buses > 0 {
		attachBusReachability(zones, *buses)
	}

	sim, err := microsim.NewSimulation(cfg, net, nil,
		microsim.WithCollector(collectors),
		microsim.WithVerbose(*verbose),
		microsim.WithTickRecordInterval(*tickRecords),
		microsim.WithDemand(microsim.NewRandomDemand(zoneIDs, *demandRate, *maxWait, cfg.Seed())),
	)
	if err != nil {
		log.Fatalln(err)
	}
	log.WithFields(log.Fields{"run_id": sim.RunID(), "roads": net.NumRoads(), "zones": len(zones)}).Info("Simulation is ready")

	for _, zone := range zones {
		if err := sim.AddZone(zone); err != nil {
			log.Fatalln(err)
		}
	}
	for i := 0; i < *stations; i++ {
		zone := zones[(i*len(zones))/(*stations)]
		station := microsim.NewSimpleChargingStation(microsim.StationID(i+1), zone.Coordinate(), 4, 2, 2)
		if err := sim.AddChargingStation(station); err != nil {
			log.Fatalln(err)
		}
	}
	routes := sim.BuildRouteTable()
	log.Infof("Route table has %d zone pairs", routes)
	for i := 0; i < *taxis; i++ {
		if _, err := sim.AddTaxi(zoneIDs[i%len(zoneIDs)]); err != nil {
			log.Fatalln(err)
		}
	}
	for i := 0; i < *buses; i++ {
		stops := busStops(zoneIDs, i)
		departures := make([]int64, 0)
		for dep := int64(1); dep < *ticks; dep += 900 {
			departures = append(departures, dep)
		}
		if _, err := sim.AddBus(i+1, stops, departures); err != nil {
			log.Fatalln(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *wsAddr != "" {
		log.Infof("Control server is listening on %s", *wsAddr)
		err = microsim.NewControlServer(sim).ListenAndServe(ctx, *wsAddr)
	} else {
		err = sim.Run(ctx, *ticks)
	}
	if err != nil {
		log.Errorln(err)
	}

	err = writeSnapshot(sim, filepath.Join(*outDir, "vehicles.csv"))
	if err != nil {
		log.Errorln(err)
	}
	entered, left := sim.Counters()
	log.WithFields(log.Fields{"tick": sim.Tick(), "entered": entered, "left": left}).Info("Simulation is finished")
}

func loadNetwork() (*microsim.RoadNetwork, error) {
	if *osmFileName == "" {
		return microsim.NewGridNetwork(*gridSize, *gridSize, 300, 2, orb.Point{37.6, 55.7})
	}
	osmCfg := microsim.DefaultOsmConfiguration()
	osmCfg.Tags = strings.Split(*tagStr, ",")
	return microsim.ImportFromOSMFile(*osmFileName, osmCfg, *verbose)
}

// busStops picks up to four evenly spaced zones starting from route index
func busStops(zoneIDs []microsim.ZoneID, route int) []microsim.ZoneID {
	step := len(zoneIDs) / 4
	if step < 1 {
		step = 1
	}
	n := 4
	if len(zoneIDs) < n {
		n = len(zoneIDs)
	}
	stops := make([]microsim.ZoneID, n)
	for k := range stops {
		stops[k] = zoneIDs[(route+k*step)%len(zoneIDs)]
	}
	return stops
}

// attachBusReachability marks stops of every bus route as reachable by bus from each other
func attachBusReachability(zones []*microsim.ParkingZone, n int) {
	zoneIDs := make([]microsim.ZoneID, len(zones))
	byID := make(map[microsim.ZoneID]*microsim.ParkingZone, len(zones))
	for i, zone := range zones {
		zoneIDs[i] = zone.ID()
		byID[zone.ID()] = zone
	}
	for route := 0; route < n; route++ {
		stops := busStops(zoneIDs, route)
		for _, stop := range stops {
			microsim.WithBusReachable(stops...)(byID[stop])
		}
	}
}

func writeSnapshot(sim *microsim.Simulation, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer file.Close()
	return microsim.WriteSnapshotCSV(file, sim.Snapshot())
}
