package microsim

import (
	log "github.com/sirupsen/logrus"
)

// setShadowImpact marks the head of route as reserved by this vehicle: shadow vehicles on roads
// it will reach before the next repartitioning and future-routing marks on roads where it
// will re-route after each network refresh. Marks are used by partitioner to balance load.
func (v *Vehicle) setShadowImpact() {
	cfg := v.w.cfg
	v.nShadow = 0
	v.futureRoads = v.futureRoads[:0]
	if len(v.path) == 0 {
		return
	}
	horizon := float64(cfg.partitionRefresh) * cfg.stepSize
	refresh := float64(cfg.networkRefresh) * cfg.stepSize
	elapsed := 0.0
	for i := 0; i < cfg.nShadow && i < len(v.path); i++ {
		elapsed += v.path[i].travelTime
		// Road the vehicle is about to use is always marked
		if i > 0 && elapsed > horizon {
			break
		}
		v.path[i].shadowCount.Add(1)
		v.nShadow++
	}
	limit := cfg.partRefreshMultiplier()
	elapsed = 0.0
	nextRefresh := refresh
	for _, road := range v.path {
		if len(v.futureRoads) >= limit {
			break
		}
		elapsed += road.travelTime
		if elapsed >= nextRefresh {
			road.futureRoutingCount.Add(1)
			v.futureRoads = append(v.futureRoads, road)
			nextRefresh += refresh
		}
	}
}

// removeShadowCount drops marks of road the vehicle is leaving. Road must be the head of route.
func (v *Vehicle) removeShadowCount(road *Road) {
	if v.nShadow > 0 {
		if road.shadowCount.Add(-1) < 0 {
			log.WithFields(v.logFields()).Errorf("Shadow count of road %d became negative", road.ID)
			road.shadowCount.Store(0)
		}
		v.nShadow--
	}
	if len(v.futureRoads) > 0 && v.futureRoads[0] == road {
		road.futureRoutingCount.Add(-1)
		v.futureRoads = v.futureRoads[1:]
	}
}

// clearShadowImpact releases every mark placed by setShadowImpact and not yet removed
func (v *Vehicle) clearShadowImpact() {
	for i := 0; i < v.nShadow && i < len(v.path); i++ {
		if v.path[i].shadowCount.Add(-1) < 0 {
			log.WithFields(v.logFields()).Errorf("Shadow count of road %d became negative", v.path[i].ID)
			v.path[i].shadowCount.Store(0)
		}
	}
	v.nShadow = 0
	for _, road := range v.futureRoads {
		road.futureRoutingCount.Add(-1)
	}
	v.futureRoads = nil
}
