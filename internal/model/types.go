package model

// Wire types shared by scenario files, the HTTP API and the store.

// Scenario describes a scoring problem: vehicles with their current routes
// and the parcels they may serve. Times are integer time units relative to
// the scenario clock.
type Scenario struct {
    ID             string      `json:"id,omitempty" yaml:"id,omitempty"`
    TenantID       string      `json:"tenantId,omitempty" yaml:"tenantId,omitempty"`
    Name           string      `json:"name,omitempty" yaml:"name,omitempty"`
    StartTime      int64       `json:"startTime,omitempty" yaml:"startTime,omitempty"`
    Travel         TravelSpec  `json:"travel,omitempty" yaml:"travel,omitempty"`
    PickupDelivery bool        `json:"pickupDelivery,omitempty" yaml:"pickupDelivery,omitempty"`
    Vehicles       []VehicleIn `json:"vehicles" yaml:"vehicles"`
    Parcels        []ParcelIn  `json:"parcels" yaml:"parcels"`
    CreatedAt      string      `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// TravelSpec selects the travel-time model. Model is "euclidean" (default)
// or "haversine"; Speed is distance units per time unit, or km/h for
// haversine.
type TravelSpec struct {
    Model string  `json:"model,omitempty" yaml:"model,omitempty"`
    Speed float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
}

type Point struct {
    X float64 `json:"x" yaml:"x"`
    Y float64 `json:"y" yaml:"y"`
}

type VehicleIn struct {
    ID       string `json:"id" yaml:"id"`
    Position Point  `json:"position" yaml:"position"`
    // Depot defaults to Position.
    Depot    *Point `json:"depot,omitempty" yaml:"depot,omitempty"`
    Deadline int64  `json:"deadline,omitempty" yaml:"deadline,omitempty"`
    // Speed overrides the scenario travel speed for this vehicle.
    Speed    float64   `json:"speed,omitempty" yaml:"speed,omitempty"`
    Contents []string  `json:"contents,omitempty" yaml:"contents,omitempty"`
    Route    []StopRef `json:"route,omitempty" yaml:"route,omitempty"`
}

// StopRef names one visit of a parcel.
type StopRef struct {
    Parcel string `json:"parcel" yaml:"parcel"`
    Kind   string `json:"kind" yaml:"kind"` // pickup, delivery
}

// ParcelIn is a transport request. Pickup is nil for parcels already on
// board of a vehicle.
type ParcelIn struct {
    ID       string  `json:"id" yaml:"id"`
    Pickup   *StopIn `json:"pickup,omitempty" yaml:"pickup,omitempty"`
    Delivery *StopIn `json:"delivery,omitempty" yaml:"delivery,omitempty"`
}

type StopIn struct {
    Location    Point       `json:"location" yaml:"location"`
    ServiceTime int64       `json:"serviceTime,omitempty" yaml:"serviceTime,omitempty"`
    TimeWindow  *TimeWindow `json:"timeWindow,omitempty" yaml:"timeWindow,omitempty"`
}

// TimeWindow bounds the service start. A missing window never delays and
// never produces tardiness.
type TimeWindow struct {
    Start int64 `json:"start" yaml:"start"`
    End   int64 `json:"end" yaml:"end"`
}

// Read models for API responses

type ScoreOut struct {
    Hard     int64  `json:"hard"`
    Soft     int64  `json:"soft"`
    Score    string `json:"score"`
    Feasible bool   `json:"feasible"`
}

type StopOut struct {
    Parcel     string `json:"parcel"`
    Kind       string `json:"kind"`
    TravelTime int64  `json:"travelTime"`
    DoneTime   int64  `json:"doneTime"`
    Tardiness  int64  `json:"tardiness"`
}

type RouteOut struct {
    VehicleID      string    `json:"vehicleId"`
    Stops          []StopOut `json:"stops"`
    DepotTravel    int64     `json:"depotTravel"`
    DepotArrival   int64     `json:"depotArrival"`
    DepotTardiness int64     `json:"depotTardiness"`
    Violations     int64     `json:"violations,omitempty"`
}

// Evaluation is the priced state of a scenario's routes.
type Evaluation struct {
    Score     ScoreOut   `json:"score"`
    Routes    []RouteOut `json:"routes"`
    Unplanned []StopRef  `json:"unplanned,omitempty"`
}

// SolveRequest asks for an optimized schedule of a stored or inline scenario.
type SolveRequest struct {
    ScenarioID      string    `json:"scenarioId,omitempty"`
    Scenario        *Scenario `json:"scenario,omitempty"`
    Seed            int64     `json:"seed,omitempty"`
    TimeBudgetMs    int       `json:"timeBudgetMs,omitempty"`
    MaxIterations   int       `json:"maxIterations,omitempty"`
    InitTemp        float64   `json:"initTemp,omitempty"`
    Cooling         float64   `json:"cooling,omitempty"`
    OperatorWeights []float64 `json:"operatorWeights,omitempty"`
}

const (
    RunQueued    = "queued"
    RunRunning   = "running"
    RunSucceeded = "succeeded"
    RunFailed    = "failed"
)

// Run is one solve request and, once finished, its outcome.
type Run struct {
    ID         string         `json:"id"`
    TenantID   string         `json:"tenantId"`
    ScenarioID string         `json:"scenarioId,omitempty"`
    Status     string         `json:"status"`
    Request    SolveRequest   `json:"request"`
    Initial    *Evaluation    `json:"initial,omitempty"`
    Result     *Evaluation    `json:"result,omitempty"`
    Solution   *Scenario      `json:"solution,omitempty"`
    Metrics    map[string]any `json:"metrics,omitempty"`
    Error      string         `json:"error,omitempty"`
    CreatedAt  string         `json:"createdAt,omitempty"`
    StartedAt  string         `json:"startedAt,omitempty"`
    FinishedAt string         `json:"finishedAt,omitempty"`
}
