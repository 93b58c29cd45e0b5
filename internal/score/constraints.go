package score

// updateHardScore replaces the pairing violations counted for vehicle.
func (s *Session) updateHardScore(vehicle VisitID) {
	if !s.cfg.PickupDelivery {
		return
	}
	s.hard += s.hardByVehicle[vehicle]
	v := s.pairingViolations(vehicle)
	s.hardByVehicle[vehicle] = v
	s.hard -= v
}

// pairingViolations counts, along one chain, pickups of parcels already on
// board, deliveries of parcels not on board, and parcels left on board that
// still have to be delivered.
func (s *Session) pairingViolations(vehicle VisitID) int64 {
	clear(s.onBoard)
	initial := s.sched.Vehicle(vehicle).Contents
	for _, p := range initial {
		s.onBoard[p] = struct{}{}
	}

	var violations int64
	for cur := s.sched.next[vehicle]; cur != None; cur = s.sched.next[cur] {
		pv := s.sched.ParcelVisit(cur)
		_, carried := s.onBoard[pv.Parcel]
		switch pv.Kind {
		case Pickup:
			if carried {
				violations++
				continue
			}
			s.onBoard[pv.Parcel] = struct{}{}
		case Delivery:
			if !carried {
				violations++
				continue
			}
			delete(s.onBoard, pv.Parcel)
		}
	}

	for p := range s.onBoard {
		if s.mustDeliver(p, initial) {
			violations++
		}
	}
	return violations
}

func (s *Session) mustDeliver(parcel int, initial []int) bool {
	if parcel >= 0 && parcel < len(s.hasDelivery) && s.hasDelivery[parcel] {
		return true
	}
	for _, p := range initial {
		if p == parcel {
			return true
		}
	}
	return false
}
