package score

import "fmt"

// insert prices v behind its current predecessor on vehicle's chain and
// subtracts the travel and tardiness costs from the soft total. The
// predecessor must hold a valid completion time.
func (s *Session) insert(v, vehicle VisitID) error {
	if s.scored[v] {
		return fmt.Errorf("insert visit %d: already scored: %w", v, ErrInvariant)
	}
	prev := s.sched.prev[v]
	if prev == None {
		return fmt.Errorf("insert visit %d: no predecessor: %w", v, ErrInvariant)
	}
	veh := s.sched.Vehicle(vehicle)
	pv := s.sched.ParcelVisit(v)

	currentTime := s.sched.StartTime
	if prev != vehicle {
		currentTime = s.doneTimes[prev]
	}

	tt := veh.travel(s.sched.Position(prev), pv.Position)
	currentTime += tt
	s.soft -= tt
	s.travelTimes[v] = tt

	currentTime = pv.ServiceStartTime(currentTime)
	tard := pv.Tardiness(currentTime)
	s.soft -= tard
	s.tardiness[v] = tard

	s.doneTimes[v] = currentTime + pv.ServiceDuration
	s.scored[v] = true
	s.markPlanned(v)
	s.stats.Inserts++
	return nil
}

// remove restores the soft total as if v had never been priced. The caches
// of v are left stale.
func (s *Session) remove(v VisitID) error {
	if !s.scored[v] {
		return fmt.Errorf("remove visit %d: not scored: %w", v, ErrInvariant)
	}
	s.soft += s.travelTimes[v]
	s.soft += s.tardiness[v]
	s.scored[v] = false
	s.stats.Removes++
	return nil
}

// reprice removes v if it is priced and inserts it again.
func (s *Session) reprice(v, vehicle VisitID) error {
	if s.scored[v] {
		if err := s.remove(v); err != nil {
			return err
		}
	}
	return s.insert(v, vehicle)
}

// updateDepotScore replaces the depot leg contribution of vehicle, priced
// from its last visit (or its position at the start time when idle).
func (s *Session) updateDepotScore(vehicle, last VisitID) {
	s.soft += s.tardiness[vehicle]
	s.soft += s.travelTimes[vehicle]

	veh := s.sched.Vehicle(vehicle)
	fromPos := veh.Position
	currentTime := s.sched.StartTime
	if last != None {
		fromPos = s.sched.ParcelVisit(last).Position
		currentTime = s.doneTimes[last]
	}

	depotTT := veh.travel(fromPos, veh.Depot)
	currentTime += depotTT
	s.soft -= depotTT
	s.travelTimes[vehicle] = depotTT
	s.depotArrival[vehicle] = currentTime

	depotTardiness := veh.DepotTardiness(currentTime)
	s.soft -= depotTardiness
	s.tardiness[vehicle] = depotTardiness
}
