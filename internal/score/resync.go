package score

import "fmt"

// LinkEdit is the open half of a bracketed link mutation. It is returned by
// BeforeLinkChange and closed by AfterLinkChange.
type LinkEdit struct {
	s       *Session
	visit   VisitID
	owner   VisitID
	version uint64
}

// Visit is the visit whose successor link is being changed.
func (e *LinkEdit) Visit() VisitID { return e.visit }

// AfterLinkChange closes the edit; see Session.AfterLinkChange.
func (e *LinkEdit) AfterLinkChange() error { return e.s.AfterLinkChange(e) }

// BeforeLinkChange signals that the successor link of v is about to change.
// The current successor, if any, is detached from the soft total and recorded
// as a pending anchor of v's vehicle. Exactly one Schedule.SetSuccessor(v, ..)
// may happen before the returned edit is closed.
func (s *Session) BeforeLinkChange(v VisitID) (*LinkEdit, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if s.edit != nil {
		return nil, s.fail(fmt.Errorf("before link change of %d while %d is open: %w", v, s.edit.visit, ErrEditPending))
	}
	if !s.sched.Contains(v) {
		return nil, s.fail(fmt.Errorf("before link change of %d: %w", v, ErrUnknownVisit))
	}
	if s.sched.Version() != s.seenVersion {
		return nil, s.fail(fmt.Errorf("before link change of %d: %w", v, ErrUnbracketedMutation))
	}

	owner := s.sched.Owner(v)
	if succ := s.sched.next[v]; succ != None {
		if s.scored[succ] {
			if err := s.remove(succ); err != nil {
				return nil, s.fail(err)
			}
		}
		s.addAnchor(owner, succ)
	}
	s.edit = &LinkEdit{s: s, visit: v, owner: owner, version: s.sched.Version()}
	s.stats.Edits++
	return s.edit, nil
}

// AfterLinkChange closes edit. The new successor, if any, is priced behind
// its predecessor and recorded as a pending anchor.
func (s *Session) AfterLinkChange(edit *LinkEdit) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.edit == nil {
		return s.fail(fmt.Errorf("after link change: %w", ErrNoEditPending))
	}
	if edit != s.edit {
		return s.fail(fmt.Errorf("after link change of %d: %w", edit.visit, ErrStaleEdit))
	}
	delta := s.sched.Version() - edit.version
	if delta > 1 || (delta == 1 && s.sched.lastMutated != edit.visit) {
		return s.fail(fmt.Errorf("after link change of %d: %w", edit.visit, ErrUnbracketedMutation))
	}
	s.edit = nil
	s.seenVersion = s.sched.Version()

	v := edit.visit
	succ := s.sched.next[v]
	if succ == None {
		return nil
	}
	s.addAnchor(edit.owner, succ)
	// A predecessor without a trustworthy completion time is repriced by the
	// next flush instead.
	ready := s.sched.IsVehicle(v) || s.scored[v]
	if edit.owner != None && ready && !s.scored[succ] {
		if err := s.insert(succ, edit.owner); err != nil {
			return s.fail(err)
		}
	}
	return nil
}

// ChangeLink brackets Schedule.SetSuccessor(v, succ) with the two signalling
// calls. A rejected mutation leaves the schedule and the score unchanged.
func (s *Session) ChangeLink(v, succ VisitID) error {
	edit, err := s.BeforeLinkChange(v)
	if err != nil {
		return err
	}
	setErr := s.sched.SetSuccessor(v, succ)
	if err := edit.AfterLinkChange(); err != nil {
		return err
	}
	if setErr != nil {
		return fmt.Errorf("score: change link: %w", setErr)
	}
	return nil
}

func (s *Session) addAnchor(vehicle, v VisitID) {
	if vehicle != None && !s.pendingSet[vehicle] {
		s.pendingSet[vehicle] = true
		s.pending = append(s.pending, vehicle)
	}
	s.isAnchor[v] = true
	s.anchors = append(s.anchors, anchor{vehicle: vehicle, visit: v})
}

// flush re-syncs every pending vehicle, then unplans the detached fragments
// headed by anchors that no walk reached.
func (s *Session) flush() error {
	if len(s.anchors) == 0 && len(s.pending) == 0 {
		return nil
	}
	s.epoch++
	if s.epoch == 0 {
		clear(s.reached)
		s.epoch = 1
	}

	for _, veh := range s.pending {
		if err := s.updateRoute(veh); err != nil {
			return fmt.Errorf("flush vehicle %d: %w", veh, err)
		}
	}

	for _, a := range s.anchors {
		if s.reached[a.visit] == s.epoch {
			continue
		}
		if s.sched.Owner(a.visit) != None {
			return fmt.Errorf("flush: visit %d reachable but not re-synced: %w", a.visit, ErrInvariant)
		}
		for cur := a.visit; cur != None && s.reached[cur] != s.epoch; cur = s.sched.next[cur] {
			s.reached[cur] = s.epoch
			if s.scored[cur] {
				if err := s.remove(cur); err != nil {
					return err
				}
			}
			s.markUnplanned(cur)
		}
	}

	for _, veh := range s.pending {
		s.pendingSet[veh] = false
	}
	for _, a := range s.anchors {
		s.isAnchor[a.visit] = false
	}
	s.pending = s.pending[:0]
	s.anchors = s.anchors[:0]
	s.stats.Flushes++
	return nil
}

// updateRoute walks the chain of veh. The unchanged prefix keeps its caches;
// from the first anchor or unpriced visit on, every visit is repriced.
func (s *Session) updateRoute(veh VisitID) error {
	repricing := false
	last := None
	steps, limit := 0, s.sched.Len()
	for cur := s.sched.next[veh]; cur != None; cur = s.sched.next[cur] {
		if steps++; steps > limit {
			return fmt.Errorf("chain does not terminate: %w", ErrInvariant)
		}
		s.reached[cur] = s.epoch
		if !repricing && (s.isAnchor[cur] || !s.scored[cur]) {
			repricing = true
		}
		if repricing {
			if err := s.reprice(cur, veh); err != nil {
				return err
			}
		}
		last = cur
	}
	s.updateDepotScore(veh, last)
	s.updateHardScore(veh)
	s.stats.VehiclesResynced++
	return nil
}
