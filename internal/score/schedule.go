package score

import "fmt"

// Schedule is the visit graph: an arena of vehicles and parcel visits with one
// singly linked chain per vehicle threaded through index-valued links.
//
// The host search loop owns all mutation. Between the halves of a move the
// graph may hold detached fragments, parcel visits without predecessor; those
// are unreachable from every vehicle.
type Schedule struct {
	StartTime int64

	vehicles []Vehicle
	visits   []ParcelVisit
	next     []VisitID
	prev     []VisitID

	version     uint64
	lastMutated VisitID
}

// NewSchedule builds a schedule with every parcel visit detached.
func NewSchedule(startTime int64, vehicles []Vehicle, visits []ParcelVisit) *Schedule {
	n := len(vehicles) + len(visits)
	s := &Schedule{
		StartTime:   startTime,
		vehicles:    append([]Vehicle(nil), vehicles...),
		visits:      append([]ParcelVisit(nil), visits...),
		next:        make([]VisitID, n),
		prev:        make([]VisitID, n),
		lastMutated: None,
	}
	for i := range s.next {
		s.next[i] = None
		s.prev[i] = None
	}
	return s
}

func (s *Schedule) NumVehicles() int { return len(s.vehicles) }
func (s *Schedule) NumVisits() int   { return len(s.visits) }
func (s *Schedule) Len() int         { return len(s.next) }

// Version increments on every successful SetSuccessor.
func (s *Schedule) Version() uint64 { return s.version }

func (s *Schedule) Contains(v VisitID) bool { return v >= 0 && int(v) < len(s.next) }

func (s *Schedule) IsVehicle(v VisitID) bool { return v >= 0 && int(v) < len(s.vehicles) }

// VisitOf returns the id of parcel visit j.
func (s *Schedule) VisitOf(j int) VisitID { return VisitID(len(s.vehicles) + j) }

// VehicleOf returns the id of vehicle i.
func (s *Schedule) VehicleOf(i int) VisitID { return VisitID(i) }

// Vehicle returns the vehicle rooted at v; v must be a vehicle id.
func (s *Schedule) Vehicle(v VisitID) *Vehicle { return &s.vehicles[v] }

// ParcelVisit returns the parcel visit v; v must not be a vehicle id.
func (s *Schedule) ParcelVisit(v VisitID) *ParcelVisit { return &s.visits[int(v)-len(s.vehicles)] }

// Position is the location of a visit; for a vehicle its current position.
func (s *Schedule) Position(v VisitID) Point {
	if s.IsVehicle(v) {
		return s.vehicles[v].Position
	}
	return s.ParcelVisit(v).Position
}

func (s *Schedule) Successor(v VisitID) VisitID   { return s.next[v] }
func (s *Schedule) Predecessor(v VisitID) VisitID { return s.prev[v] }

// SetSuccessor replaces the successor link of v. The previous successor, if
// any, becomes a detached fragment head. succ must be a detached parcel visit
// (or None) and must not head the fragment that contains v.
func (s *Schedule) SetSuccessor(v, succ VisitID) error {
	if !s.Contains(v) {
		return fmt.Errorf("set successor of %d: %w", v, ErrUnknownVisit)
	}
	if succ != None && succ != s.next[v] {
		if !s.Contains(succ) {
			return fmt.Errorf("set successor of %d to %d: %w", v, succ, ErrUnknownVisit)
		}
		if s.IsVehicle(succ) {
			return fmt.Errorf("set successor of %d to %d: %w", v, succ, ErrVehicleSuccessor)
		}
		if s.prev[succ] != None {
			return fmt.Errorf("set successor of %d to %d (predecessor %d): %w", v, succ, s.prev[succ], ErrAttached)
		}
		if s.head(v) == succ {
			return fmt.Errorf("set successor of %d to %d: %w", v, succ, ErrCycle)
		}
	}
	if old := s.next[v]; old != None {
		s.prev[old] = None
	}
	s.next[v] = succ
	if succ != None {
		s.prev[succ] = v
	}
	s.version++
	s.lastMutated = v
	return nil
}

// head walks predecessors up to the first visit of v's chain or fragment.
func (s *Schedule) head(v VisitID) VisitID {
	for s.prev[v] != None {
		v = s.prev[v]
	}
	return v
}

// Owner returns the vehicle whose chain contains v, or None when v is
// unreachable.
func (s *Schedule) Owner(v VisitID) VisitID {
	if !s.Contains(v) {
		return None
	}
	h := s.head(v)
	if s.IsVehicle(h) {
		return h
	}
	return None
}

// Chain lists the parcel visits of a vehicle in order.
func (s *Schedule) Chain(vehicle VisitID) []VisitID {
	var out []VisitID
	for cur := s.next[vehicle]; cur != None; cur = s.next[cur] {
		out = append(out, cur)
	}
	return out
}

// Last returns the final parcel visit of a vehicle's chain, or None when idle.
func (s *Schedule) Last(vehicle VisitID) VisitID {
	last := None
	for cur := s.next[vehicle]; cur != None; cur = s.next[cur] {
		last = cur
	}
	return last
}

// Routes returns every vehicle chain, indexed by vehicle.
func (s *Schedule) Routes() [][]VisitID {
	out := make([][]VisitID, len(s.vehicles))
	for i := range s.vehicles {
		out[i] = s.Chain(VisitID(i))
	}
	return out
}

// Append links detached visits, in order, behind the current tail of a
// vehicle. It is a construction helper; inside a scoring session use
// Session.ChangeLink.
func (s *Schedule) Append(vehicle VisitID, visits ...VisitID) error {
	if !s.IsVehicle(vehicle) {
		return fmt.Errorf("append to %d: %w", vehicle, ErrUnknownVisit)
	}
	tail := s.Last(vehicle)
	if tail == None {
		tail = vehicle
	}
	for _, v := range visits {
		if err := s.SetSuccessor(tail, v); err != nil {
			return fmt.Errorf("append to vehicle %d: %w", vehicle, err)
		}
		tail = v
	}
	return nil
}

// Clone returns an independent copy of the graph. Vehicles and parcel visits
// are shared by value; travel models are shared.
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.vehicles = append([]Vehicle(nil), s.vehicles...)
	c.visits = append([]ParcelVisit(nil), s.visits...)
	c.next = append([]VisitID(nil), s.next...)
	c.prev = append([]VisitID(nil), s.prev...)
	return &c
}
