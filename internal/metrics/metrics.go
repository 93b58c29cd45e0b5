package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the service
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // SolveRuns counts finished solve runs by status
    SolveRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "solve_runs_total", Help: "Solve runs by final status."},
        []string{"status"},
    )
    // SolveDuration tracks wall time of solve runs in seconds
    SolveDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Solve run duration in seconds.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}},
    )
    // SolverIterations counts search iterations by operator and outcome
    SolverIterations = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "solver_iterations_total", Help: "Local search iterations by operator and outcome."},
        []string{"operator", "outcome"},
    )
    // EvaluatorWork counts incremental evaluator primitives by kind
    EvaluatorWork = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "evaluator_operations_total", Help: "Incremental score evaluator operations."},
        []string{"kind"},
    )
    // ActiveRuns is the number of solve runs in progress
    ActiveRuns = prometheus.NewGauge(prometheus.GaugeOpts{Name: "solve_runs_active", Help: "Solve runs in progress."})
    // ScenarioScores counts scenario evaluations by feasibility
    ScenarioScores = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "scenario_scores_total", Help: "Scenario evaluations by feasibility."},
        []string{"feasible"},
    )
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(SolveRuns)
        Registry.MustRegister(SolveDuration)
        Registry.MustRegister(SolverIterations)
        Registry.MustRegister(EvaluatorWork)
        Registry.MustRegister(ActiveRuns)
        Registry.MustRegister(ScenarioScores)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once

// Evaluator is the subset of evaluator counters exported here.
type Evaluator struct {
    Inserts, Removes, Edits, Flushes, VehiclesResynced int64
}

// ObserveEvaluator adds one session's evaluator counters.
func ObserveEvaluator(e Evaluator) {
    EvaluatorWork.WithLabelValues("insert").Add(float64(e.Inserts))
    EvaluatorWork.WithLabelValues("remove").Add(float64(e.Removes))
    EvaluatorWork.WithLabelValues("link_edit").Add(float64(e.Edits))
    EvaluatorWork.WithLabelValues("flush").Add(float64(e.Flushes))
    EvaluatorWork.WithLabelValues("vehicle_resync").Add(float64(e.VehiclesResynced))
}
