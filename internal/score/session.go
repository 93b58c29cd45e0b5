package score

import "fmt"

// Config selects the scoring rules of a session.
type Config struct {
	// PickupDelivery enables the pickup/delivery pairing hard constraint.
	PickupDelivery bool `json:"pickupDelivery" yaml:"pickupDelivery"`
}

// Stats counts evaluator work since the last Reset.
type Stats struct {
	Inserts          int64 `json:"inserts"`
	Removes          int64 `json:"removes"`
	Edits            int64 `json:"edits"`
	Flushes          int64 `json:"flushes"`
	VehiclesResynced int64 `json:"vehiclesResynced"`
}

type anchor struct {
	vehicle VisitID
	visit   VisitID
}

// Session is the incremental evaluator of one solving session. It owns the
// per-visit caches and the running totals between Reset calls and is not
// safe for concurrent use; independent sessions share nothing.
type Session struct {
	cfg   Config
	sched *Schedule

	hard int64
	soft int64

	// Dense caches keyed by VisitID. Vehicles hold their depot leg.
	doneTimes   []int64
	travelTimes []int64
	tardiness   []int64
	scored      []bool

	depotArrival  []int64
	hardByVehicle []int64

	unplanned    []bool
	numUnplanned int

	hasDelivery []bool
	onBoard     map[int]struct{}

	pending    []VisitID
	pendingSet []bool
	anchors    []anchor
	isAnchor   []bool
	reached    []uint32
	epoch      uint32

	edit        *LinkEdit
	seenVersion uint64
	broken      error
	stats       Stats
}

func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, onBoard: map[int]struct{}{}}
}

// Reset establishes the cold baseline for sched: every cache and total is
// cleared, every parcel visit is marked unplanned, then each vehicle chain is
// priced once end to end.
func (s *Session) Reset(sched *Schedule) error {
	if sched == nil {
		return fmt.Errorf("score: reset: %w", ErrNotReset)
	}
	n := sched.Len()
	s.sched = sched
	s.hard, s.soft = 0, 0
	s.doneTimes = make([]int64, n)
	s.travelTimes = make([]int64, n)
	s.tardiness = make([]int64, n)
	s.scored = make([]bool, n)
	s.depotArrival = make([]int64, sched.NumVehicles())
	s.hardByVehicle = make([]int64, sched.NumVehicles())
	s.unplanned = make([]bool, n)
	s.pendingSet = make([]bool, sched.NumVehicles())
	s.isAnchor = make([]bool, n)
	s.reached = make([]uint32, n)
	s.pending = s.pending[:0]
	s.anchors = s.anchors[:0]
	s.epoch = 1
	s.edit = nil
	s.broken = nil
	s.stats = Stats{}

	s.numUnplanned = 0
	maxParcel := -1
	for v := VisitID(sched.NumVehicles()); int(v) < n; v++ {
		s.unplanned[v] = true
		s.numUnplanned++
		if p := sched.ParcelVisit(v).Parcel; p > maxParcel {
			maxParcel = p
		}
	}
	for i := 0; i < sched.NumVehicles(); i++ {
		for _, p := range sched.vehicles[i].Contents {
			if p > maxParcel {
				maxParcel = p
			}
		}
	}
	s.hasDelivery = make([]bool, maxParcel+1)
	for v := VisitID(sched.NumVehicles()); int(v) < n; v++ {
		if pv := sched.ParcelVisit(v); pv.Kind == Delivery && pv.Parcel >= 0 {
			s.hasDelivery[pv.Parcel] = true
		}
	}

	for i := 0; i < sched.NumVehicles(); i++ {
		veh := VisitID(i)
		s.doneTimes[veh] = sched.StartTime
		last := None
		steps := 0
		for cur := sched.next[veh]; cur != None; cur = sched.next[cur] {
			if steps++; steps > n {
				return s.fail(fmt.Errorf("reset: chain of vehicle %d does not terminate: %w", veh, ErrInvariant))
			}
			if err := s.insert(cur, veh); err != nil {
				return s.fail(fmt.Errorf("reset: %w", err))
			}
			last = cur
		}
		s.updateDepotScore(veh, last)
		s.updateHardScore(veh)
	}
	s.seenVersion = sched.Version()
	return nil
}

// Score flushes pending re-sync work and returns the current (hard, soft)
// pair.
func (s *Session) Score() (Score, error) {
	if err := s.usable(); err != nil {
		return Score{}, err
	}
	if s.edit != nil {
		return Score{}, s.fail(fmt.Errorf("score requested mid-edit on visit %d: %w", s.edit.visit, ErrEditPending))
	}
	if s.sched.Version() != s.seenVersion {
		return Score{}, s.fail(fmt.Errorf("score requested: %w", ErrUnbracketedMutation))
	}
	if err := s.flush(); err != nil {
		return Score{}, s.fail(err)
	}
	return Score{Hard: s.hard, Soft: s.soft}, nil
}

// Recompute scores sched from scratch in a fresh session.
func Recompute(sched *Schedule, cfg Config) (Score, error) {
	s := NewSession(cfg)
	if err := s.Reset(sched); err != nil {
		return Score{}, err
	}
	return s.Score()
}

func (s *Session) Schedule() *Schedule { return s.sched }
func (s *Session) Config() Config       { return s.cfg }
func (s *Session) Stats() Stats         { return s.stats }

// Err reports the fault that poisoned the session, if any.
func (s *Session) Err() error { return s.broken }

func (s *Session) DoneTime(v VisitID) int64   { return s.doneTimes[v] }
func (s *Session) TravelTime(v VisitID) int64 { return s.travelTimes[v] }
func (s *Session) Tardiness(v VisitID) int64  { return s.tardiness[v] }

// IsUnplanned reports membership of the unplanned set. The set is exact after
// Reset and Score; in between it may lag behind detaching edits.
func (s *Session) IsUnplanned(v VisitID) bool { return s.unplanned[v] }

func (s *Session) NumUnplanned() int { return s.numUnplanned }

// Unplanned lists the unplanned parcel visits in id order.
func (s *Session) Unplanned() []VisitID {
	out := make([]VisitID, 0, s.numUnplanned)
	for v := VisitID(s.sched.NumVehicles()); int(v) < len(s.unplanned); v++ {
		if s.unplanned[v] {
			out = append(out, v)
		}
	}
	return out
}

// Pending returns a copy of the pending-edit set: anchors per vehicle.
func (s *Session) Pending() map[VisitID][]VisitID {
	out := make(map[VisitID][]VisitID, len(s.pending))
	for _, a := range s.anchors {
		if a.vehicle != None {
			out[a.vehicle] = append(out[a.vehicle], a.visit)
		}
	}
	for _, v := range s.pending {
		if _, ok := out[v]; !ok {
			out[v] = nil
		}
	}
	return out
}

func (s *Session) usable() error {
	if s.sched == nil {
		return ErrNotReset
	}
	if s.broken != nil {
		return fmt.Errorf("%w: %w", ErrBroken, s.broken)
	}
	return nil
}

func (s *Session) fail(err error) error {
	if s.broken == nil {
		s.broken = err
	}
	return err
}

func (s *Session) markUnplanned(v VisitID) {
	if !s.unplanned[v] {
		s.unplanned[v] = true
		s.numUnplanned++
	}
}

func (s *Session) markPlanned(v VisitID) {
	if s.unplanned[v] {
		s.unplanned[v] = false
		s.numUnplanned--
	}
}
