package scenario

import (
	"fmt"

	"github.com/christofluyten/rinlog/internal/model"
	"github.com/christofluyten/rinlog/internal/score"
)

// Report scores sess and maps its cached route pricing to wire form.
func (b *Built) Report(sess *score.Session) (model.Evaluation, error) {
	s, err := sess.Score()
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("scenario: report: %w", err)
	}
	sched := sess.Schedule()
	ev := model.Evaluation{Score: ScoreOut(s), Routes: make([]model.RouteOut, 0, sched.NumVehicles())}
	for i := 0; i < sched.NumVehicles(); i++ {
		veh := sched.VehicleOf(i)
		r, err := sess.Route(veh)
		if err != nil {
			return model.Evaluation{}, fmt.Errorf("scenario: report: %w", err)
		}
		out := model.RouteOut{
			VehicleID:      b.VehicleID(veh),
			Stops:          make([]model.StopOut, 0, len(r.Stops)),
			DepotTravel:    r.DepotTravel,
			DepotArrival:   r.DepotArrival,
			DepotTardiness: r.DepotTardiness,
			Violations:     r.Violations,
		}
		for _, st := range r.Stops {
			ref := b.Ref(st.Visit)
			out.Stops = append(out.Stops, model.StopOut{
				Parcel:     ref.Parcel,
				Kind:       ref.Kind,
				TravelTime: st.TravelTime,
				DoneTime:   st.DoneTime,
				Tardiness:  st.Tardiness,
			})
		}
		ev.Routes = append(ev.Routes, out)
	}
	for _, v := range sess.Unplanned() {
		ev.Unplanned = append(ev.Unplanned, b.Ref(v))
	}
	return ev, nil
}

// Evaluate builds sc and prices its routes once.
func Evaluate(sc model.Scenario) (model.Evaluation, error) {
	b, err := Build(sc)
	if err != nil {
		return model.Evaluation{}, err
	}
	sess, err := b.Session()
	if err != nil {
		return model.Evaluation{}, err
	}
	return b.Report(sess)
}

func ScoreOut(s score.Score) model.ScoreOut {
	return model.ScoreOut{Hard: s.Hard, Soft: s.Soft, Score: s.String(), Feasible: s.Feasible()}
}
