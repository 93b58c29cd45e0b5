package opt

import (
	"fmt"
	"math/rand"

	"github.com/christofluyten/rinlog/internal/score"
)

// relocation records where a moved visit came from.
type relocation struct {
	visit score.VisitID
	from  score.VisitID
}

// mover applies neighbourhood moves as bracketed link edits and journals
// them so a rejected candidate can be rolled back.
type mover struct {
	sess    *score.Session
	sched   *score.Schedule
	journal []relocation
}

func newMover(sess *score.Session) *mover {
	return &mover{sess: sess, sched: sess.Schedule()}
}

// relocate moves the planned visit m to directly after target, a vehicle or
// another planned visit.
func (mv *mover) relocate(m, target score.VisitID) error {
	p := mv.sched.Predecessor(m)
	if target == m || target == p {
		return nil
	}
	if err := mv.splice(m, target); err != nil {
		return err
	}
	mv.journal = append(mv.journal, relocation{visit: m, from: p})
	return nil
}

// splice unlinks m from its chain and relinks it behind target: four
// bracketed edits.
func (mv *mover) splice(m, target score.VisitID) error {
	p, n := mv.sched.Predecessor(m), mv.sched.Successor(m)
	if err := mv.sess.ChangeLink(m, score.None); err != nil {
		return err
	}
	if err := mv.sess.ChangeLink(p, n); err != nil {
		return err
	}
	next := mv.sched.Successor(target)
	if err := mv.sess.ChangeLink(target, m); err != nil {
		return err
	}
	return mv.sess.ChangeLink(m, next)
}

// exchange swaps the positions of two planned visits.
func (mv *mover) exchange(x, y score.VisitID) error {
	if x == y {
		return nil
	}
	px, py := mv.sched.Predecessor(x), mv.sched.Predecessor(y)
	switch {
	case py == x:
		return mv.relocate(x, y)
	case px == y:
		return mv.relocate(y, x)
	}
	if err := mv.relocate(x, py); err != nil {
		return err
	}
	return mv.relocate(y, px)
}

// twoOpt reverses the run of up to k visits starting at first.
func (mv *mover) twoOpt(first score.VisitID, k int) error {
	p := mv.sched.Predecessor(first)
	seg := []score.VisitID{first}
	for cur := mv.sched.Successor(first); cur != score.None && len(seg) < k; cur = mv.sched.Successor(cur) {
		seg = append(seg, cur)
	}
	for _, v := range seg[1:] {
		if err := mv.relocate(v, p); err != nil {
			return err
		}
	}
	return nil
}

// apply runs operator op on random planned visits.
func (mv *mover) apply(op int, rng *rand.Rand) error {
	nv, n := mv.sched.NumVehicles(), mv.sched.NumVisits()
	visit := func() score.VisitID { return mv.sched.VisitOf(rng.Intn(n)) }
	var err error
	switch op {
	case OpRelocate:
		err = mv.relocate(visit(), score.VisitID(rng.Intn(nv+n)))
	case OpExchange:
		err = mv.exchange(visit(), visit())
	case OpTwoOpt:
		err = mv.twoOpt(visit(), 2+rng.Intn(4))
	default:
		err = fmt.Errorf("opt: unknown operator %d", op)
	}
	if err != nil {
		return fmt.Errorf("opt: %s: %w", OperatorNames[op], err)
	}
	return nil
}

// undo rolls back every journaled move, newest first.
func (mv *mover) undo() error {
	for i := len(mv.journal) - 1; i >= 0; i-- {
		r := mv.journal[i]
		if mv.sched.Predecessor(r.visit) == r.from {
			continue
		}
		if err := mv.splice(r.visit, r.from); err != nil {
			return err
		}
	}
	mv.journal = mv.journal[:0]
	return nil
}

func (mv *mover) commit() { mv.journal = mv.journal[:0] }

// greedySeed appends every unplanned visit, in id order, to the vehicle tail
// where the evaluator prices it best. It returns the number of visits
// planned.
func greedySeed(sess *score.Session) (int, error) {
	if _, err := sess.Score(); err != nil {
		return 0, err
	}
	sched := sess.Schedule()
	seeded := 0
	for _, v := range sess.Unplanned() {
		if p := sched.Predecessor(v); p != score.None {
			if err := sess.ChangeLink(p, score.None); err != nil {
				return seeded, err
			}
		}
		if sched.Successor(v) != score.None {
			if err := sess.ChangeLink(v, score.None); err != nil {
				return seeded, err
			}
		}

		bestTail := score.None
		var best score.Score
		for i := 0; i < sched.NumVehicles(); i++ {
			tail := sched.Last(sched.VehicleOf(i))
			if tail == score.None {
				tail = sched.VehicleOf(i)
			}
			if err := sess.ChangeLink(tail, v); err != nil {
				return seeded, err
			}
			s, err := sess.Score()
			if err != nil {
				return seeded, err
			}
			if bestTail == score.None || s.Better(best) {
				bestTail, best = tail, s
			}
			if err := sess.ChangeLink(tail, score.None); err != nil {
				return seeded, err
			}
		}
		if bestTail == score.None {
			break
		}
		if err := sess.ChangeLink(bestTail, v); err != nil {
			return seeded, err
		}
		seeded++
	}
	if _, err := sess.Score(); err != nil {
		return seeded, err
	}
	return seeded, nil
}
