package scenario

import (
	"fmt"

	"github.com/christofluyten/rinlog/internal/model"
	"github.com/christofluyten/rinlog/internal/score"
)

// Built is a scenario lowered to a scoring schedule, with the index needed
// to map visit ids back to wire names.
type Built struct {
	Scenario model.Scenario
	Schedule *score.Schedule
	Config   score.Config

	refs     []model.StopRef // per parcel visit j
	visitIDs map[model.StopRef]score.VisitID
}

// Build validates sc and lowers it. Parcel visits are laid out in parcel
// order, pickup before delivery; the vehicles' routes become the initial
// chains.
func Build(sc model.Scenario) (*Built, error) {
	if err := Validate(&sc); err != nil {
		return nil, err
	}
	b := &Built{
		Scenario: sc,
		Config:   score.Config{PickupDelivery: sc.PickupDelivery},
		visitIDs: map[model.StopRef]score.VisitID{},
	}

	parcelIndex := map[string]int{}
	var visits []score.ParcelVisit
	for i, p := range sc.Parcels {
		parcelIndex[p.ID] = i
		if p.Pickup != nil {
			visits = append(visits, parcelVisit(i, score.Pickup, p.Pickup))
			b.refs = append(b.refs, model.StopRef{Parcel: p.ID, Kind: KindPickup})
		}
		if p.Delivery != nil {
			visits = append(visits, parcelVisit(i, score.Delivery, p.Delivery))
			b.refs = append(b.refs, model.StopRef{Parcel: p.ID, Kind: KindDelivery})
		}
	}

	vehicles := make([]score.Vehicle, len(sc.Vehicles))
	for i, v := range sc.Vehicles {
		depot := v.Position
		if v.Depot != nil {
			depot = *v.Depot
		}
		contents := make([]int, 0, len(v.Contents))
		for _, c := range v.Contents {
			contents = append(contents, parcelIndex[c])
		}
		vehicles[i] = score.Vehicle{
			Name:     v.ID,
			Position: point(v.Position),
			Depot:    point(depot),
			Deadline: v.Deadline,
			Travel:   travelModel(sc.Travel, v.Speed),
			Contents: contents,
		}
	}

	b.Schedule = score.NewSchedule(sc.StartTime, vehicles, visits)
	for j, ref := range b.refs {
		b.visitIDs[ref] = b.Schedule.VisitOf(j)
	}
	for i, v := range sc.Vehicles {
		chain := make([]score.VisitID, 0, len(v.Route))
		for _, ref := range v.Route {
			chain = append(chain, b.visitIDs[ref])
		}
		if err := b.Schedule.Append(b.Schedule.VehicleOf(i), chain...); err != nil {
			return nil, fmt.Errorf("scenario: build route of %s: %w", v.ID, err)
		}
	}
	return b, nil
}

func parcelVisit(parcel int, kind score.VisitKind, st *model.StopIn) score.ParcelVisit {
	w := score.Always
	if st.TimeWindow != nil {
		w = score.TimeWindow{Begin: st.TimeWindow.Start, End: st.TimeWindow.End}
	}
	return score.ParcelVisit{
		Parcel:          parcel,
		Kind:            kind,
		Position:        point(st.Location),
		ServiceDuration: st.ServiceTime,
		Window:          w,
	}
}

func travelModel(spec model.TravelSpec, override float64) score.TravelTimer {
	speed := spec.Speed
	if override > 0 {
		speed = override
	}
	if spec.Model == "haversine" {
		return score.Haversine{SpeedKph: speed}
	}
	return score.Euclidean{Speed: speed}
}

func point(p model.Point) score.Point { return score.Point{X: p.X, Y: p.Y} }

// Ref names visit v, a parcel visit of b.Schedule.
func (b *Built) Ref(v score.VisitID) model.StopRef {
	return b.refs[int(v)-b.Schedule.NumVehicles()]
}

// Visit looks up the visit id of a stop.
func (b *Built) Visit(ref model.StopRef) (score.VisitID, bool) {
	v, ok := b.visitIDs[ref]
	return v, ok
}

// VehicleID names vehicle v.
func (b *Built) VehicleID(v score.VisitID) string { return b.Scenario.Vehicles[v].ID }

// Session returns a session reset onto the built schedule.
func (b *Built) Session() (*score.Session, error) {
	sess := score.NewSession(b.Config)
	if err := sess.Reset(b.Schedule); err != nil {
		return nil, fmt.Errorf("scenario: reset: %w", err)
	}
	return sess, nil
}

// WithRoutes returns the scenario with every vehicle route replaced by the
// chains of sched, which must be derived from b.Schedule.
func (b *Built) WithRoutes(sched *score.Schedule) model.Scenario {
	out := b.Scenario
	out.Vehicles = append([]model.VehicleIn(nil), b.Scenario.Vehicles...)
	for i := range out.Vehicles {
		chain := sched.Chain(sched.VehicleOf(i))
		route := make([]model.StopRef, 0, len(chain))
		for _, v := range chain {
			route = append(route, b.Ref(v))
		}
		out.Vehicles[i].Route = route
	}
	return out
}
