package scenario

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/christofluyten/rinlog/internal/model"
)

// ErrInvalid marks every validation failure.
var ErrInvalid = errors.New("invalid scenario")

const (
	KindPickup   = "pickup"
	KindDelivery = "delivery"
)

// Validate reports every structural problem of sc at once. Defaults are not
// applied here; see Build.
func Validate(sc *model.Scenario) error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch sc.Travel.Model {
	case "", "euclidean", "haversine":
	default:
		add("unknown travel model %q", sc.Travel.Model)
	}
	if sc.Travel.Speed < 0 {
		add("travel speed must be >= 0")
	}
	if len(sc.Vehicles) == 0 {
		add("at least one vehicle is required")
	}

	parcels := map[string]*model.ParcelIn{}
	for i := range sc.Parcels {
		p := &sc.Parcels[i]
		if p.ID == "" {
			add("parcel %d: missing id", i)
			continue
		}
		if _, dup := parcels[p.ID]; dup {
			add("parcel %s: duplicate id", p.ID)
			continue
		}
		parcels[p.ID] = p
		if p.Pickup == nil && p.Delivery == nil {
			add("parcel %s: needs a pickup or a delivery", p.ID)
		}
		for _, stop := range []struct {
			kind string
			st   *model.StopIn
		}{{KindPickup, p.Pickup}, {KindDelivery, p.Delivery}} {
			kind, st := stop.kind, stop.st
			if st == nil {
				continue
			}
			if st.ServiceTime < 0 {
				add("parcel %s %s: service time must be >= 0", p.ID, kind)
			}
			if st.TimeWindow != nil && st.TimeWindow.End < st.TimeWindow.Start {
				add("parcel %s %s: time window ends before it starts", p.ID, kind)
			}
		}
	}

	vehicles := map[string]bool{}
	routed := map[model.StopRef]string{}
	carried := map[string]string{}
	for i, v := range sc.Vehicles {
		name := v.ID
		if name == "" {
			add("vehicle %d: missing id", i)
			name = fmt.Sprintf("#%d", i)
		} else if vehicles[name] {
			add("vehicle %s: duplicate id", name)
		}
		vehicles[name] = true
		if v.Speed < 0 {
			add("vehicle %s: speed must be >= 0", name)
		}
		for _, c := range v.Contents {
			p, ok := parcels[c]
			switch {
			case !ok:
				add("vehicle %s: carries unknown parcel %s", name, c)
			case p.Pickup != nil:
				add("vehicle %s: carries parcel %s which still has a pickup", name, c)
			}
			if other, dup := carried[c]; dup {
				add("parcel %s: on board of both %s and %s", c, other, name)
			}
			carried[c] = name
		}
		for _, ref := range v.Route {
			p, ok := parcels[ref.Parcel]
			if !ok {
				add("vehicle %s: route visits unknown parcel %s", name, ref.Parcel)
				continue
			}
			switch ref.Kind {
			case KindPickup:
				if p.Pickup == nil {
					add("vehicle %s: parcel %s has no pickup", name, ref.Parcel)
					continue
				}
			case KindDelivery:
				if p.Delivery == nil {
					add("vehicle %s: parcel %s has no delivery", name, ref.Parcel)
					continue
				}
			default:
				add("vehicle %s: unknown stop kind %q", name, ref.Kind)
				continue
			}
			if other, dup := routed[ref]; dup {
				add("parcel %s %s: routed by both %s and %s", ref.Parcel, ref.Kind, other, name)
			}
			routed[ref] = name
		}
	}
	return errs
}
