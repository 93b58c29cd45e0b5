package store

import (
    "context"
    "errors"

    "github.com/christofluyten/rinlog/internal/model"
)

// Store is the persistence interface used by the API server and the solve worker.
type Store interface {
    // Scenarios
    CreateScenario(ctx context.Context, tenantID string, sc model.Scenario) (model.Scenario, error)
    GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error)
    ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.Scenario, string, error)
    DeleteScenario(ctx context.Context, tenantID, id string) error

    // Solve runs. CreateRun queues runs created with an empty or queued
    // status; a run created as running belongs to its caller.
    CreateRun(ctx context.Context, run model.Run) (model.Run, error)
    GetRun(ctx context.Context, tenantID, id string) (model.Run, error)
    ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Run, string, error)
    // ClaimQueuedRuns moves up to limit queued runs, oldest first, to running
    // and returns them. A run is handed out at most once.
    ClaimQueuedRuns(ctx context.Context, limit int) ([]model.Run, error)
    UpdateRun(ctx context.Context, run model.Run) error

    // Solver defaults per tenant
    GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error)
    SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error

    Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const (
    defaultLimit = 100
    maxLimit     = 500
)

func clampLimit(limit int) int {
    if limit <= 0 || limit > maxLimit { return defaultLimit }
    return limit
}
