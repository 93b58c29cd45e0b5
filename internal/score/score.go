package score

import "fmt"

// Score is the two-tier signal consumed by the search loop. Both tiers are
// maximised: Hard counts constraint violations (negated), Soft is the negated
// sum of travel time and tardiness.
type Score struct {
	Hard int64 `json:"hard"`
	Soft int64 `json:"soft"`
}

// Compare orders scores hard tier first. It returns -1, 0 or 1 when s is
// worse than, equal to or better than o.
func (s Score) Compare(o Score) int {
	switch {
	case s.Hard < o.Hard:
		return -1
	case s.Hard > o.Hard:
		return 1
	case s.Soft < o.Soft:
		return -1
	case s.Soft > o.Soft:
		return 1
	}
	return 0
}

func (s Score) Better(o Score) bool { return s.Compare(o) > 0 }

func (s Score) Feasible() bool { return s.Hard >= 0 }

func (s Score) String() string { return fmt.Sprintf("%dhard/%dsoft", s.Hard, s.Soft) }
