package score

import (
	"math"
)

// VisitID addresses a visit in a Schedule arena. Vehicles occupy the first
// NumVehicles ids, parcel visits follow.
type VisitID int32

// None marks an absent link.
const None VisitID = -1

// Point is a location in the plane (or lon/lat for Haversine).
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// TimeWindow bounds the start of service. End is the deadline used for
// tardiness pricing.
type TimeWindow struct {
	Begin int64
	End   int64
}

// Always is a window that never delays service and never produces tardiness.
var Always = TimeWindow{Begin: math.MinInt64, End: math.MaxInt64}

type VisitKind uint8

const (
	Pickup VisitKind = iota + 1
	Delivery
)

func (k VisitKind) String() string {
	switch k {
	case Pickup:
		return "pickup"
	case Delivery:
		return "delivery"
	}
	return "unknown"
}

// TravelTimer computes the travel time between two points for one vehicle.
type TravelTimer interface {
	TravelTime(from, to Point) int64
}

// TravelFunc adapts a plain function to TravelTimer.
type TravelFunc func(from, to Point) int64

func (f TravelFunc) TravelTime(from, to Point) int64 { return f(from, to) }

// Euclidean travels in straight lines at a constant speed in distance units
// per time unit. Travel times are rounded to the nearest time unit.
type Euclidean struct {
	Speed float64
}

func (e Euclidean) TravelTime(from, to Point) int64 {
	speed := e.Speed
	if speed <= 0 {
		speed = 1
	}
	d := math.Hypot(to.X-from.X, to.Y-from.Y)
	return int64(math.Round(d / speed))
}

// Haversine travels great-circle distances between lon/lat points (X=lon,
// Y=lat) and returns seconds.
type Haversine struct {
	SpeedKph float64
}

func (h Haversine) TravelTime(from, to Point) int64 {
	speed := h.SpeedKph
	if speed <= 0 {
		speed = 50
	}
	meters := haversineMeters(from.Y, from.X, to.Y, to.X)
	return int64(math.Round(meters / (speed / 3.6)))
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// Vehicle is the root of one chain.
type Vehicle struct {
	Name     string
	Position Point
	Depot    Point
	// Deadline is the latest return time at the depot. Zero means none.
	Deadline int64
	Travel   TravelTimer
	// Contents lists parcels already on board at session start.
	Contents []int
}

// DepotTardiness is the lateness of arriving at the depot at time t.
func (v *Vehicle) DepotTardiness(t int64) int64 {
	if v.Deadline == 0 || t <= v.Deadline {
		return 0
	}
	return t - v.Deadline
}

func (v *Vehicle) travel(from, to Point) int64 {
	if v.Travel == nil {
		return Euclidean{Speed: 1}.TravelTime(from, to)
	}
	return v.Travel.TravelTime(from, to)
}

// ParcelVisit is one pickup or delivery stop of a transport request.
type ParcelVisit struct {
	Parcel          int
	Kind            VisitKind
	Position        Point
	ServiceDuration int64
	Window          TimeWindow
}

// ServiceStartTime is the later of arrival and the window opening.
func (p *ParcelVisit) ServiceStartTime(arrival int64) int64 {
	if arrival < p.Window.Begin {
		return p.Window.Begin
	}
	return arrival
}

// Tardiness is the non-negative excess of the service start over the deadline.
func (p *ParcelVisit) Tardiness(serviceStart int64) int64 {
	if serviceStart <= p.Window.End {
		return 0
	}
	return serviceStart - p.Window.End
}
