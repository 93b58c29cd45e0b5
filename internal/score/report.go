package score

import "fmt"

type StopReport struct {
	Visit      VisitID
	TravelTime int64
	DoneTime   int64
	Tardiness  int64
}

// RouteReport is the cached pricing of one vehicle chain.
type RouteReport struct {
	Vehicle        VisitID
	Stops          []StopReport
	DepotTravel    int64
	DepotArrival   int64
	DepotTardiness int64
	Violations     int64
}

// Route reports the cached quantities of vehicle's chain. Pending edits must
// have been flushed by Score first.
func (s *Session) Route(vehicle VisitID) (RouteReport, error) {
	if err := s.usable(); err != nil {
		return RouteReport{}, err
	}
	if !s.sched.IsVehicle(vehicle) {
		return RouteReport{}, fmt.Errorf("route of %d: %w", vehicle, ErrUnknownVisit)
	}
	if s.edit != nil || len(s.anchors) > 0 || len(s.pending) > 0 {
		return RouteReport{}, fmt.Errorf("route of %d: unflushed edits: %w", vehicle, ErrEditPending)
	}
	r := RouteReport{
		Vehicle:        vehicle,
		DepotTravel:    s.travelTimes[vehicle],
		DepotArrival:   s.depotArrival[vehicle],
		DepotTardiness: s.tardiness[vehicle],
		Violations:     s.hardByVehicle[vehicle],
	}
	for cur := s.sched.next[vehicle]; cur != None; cur = s.sched.next[cur] {
		r.Stops = append(r.Stops, StopReport{
			Visit:      cur,
			TravelTime: s.travelTimes[cur],
			DoneTime:   s.doneTimes[cur],
			Tardiness:  s.tardiness[cur],
		})
	}
	return r, nil
}
