package jobs

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/christofluyten/rinlog/internal/config"
    "github.com/christofluyten/rinlog/internal/model"
    "github.com/christofluyten/rinlog/internal/opt"
)

// options layers the service defaults, the tenant's stored solver config
// and the request; later non-zero values win.
func (w *Worker) options(ctx context.Context, run model.Run) (opt.Options, error) {
    eff := w.Defaults
    stored, err := w.Store.GetSolverConfig(ctx, run.TenantID)
    if err != nil { return opt.Options{}, fmt.Errorf("jobs: solver config: %w", err) }
    tenant, err := DecodeSolverConfig(stored)
    if err != nil { return opt.Options{}, err }
    eff = Merge(eff, tenant)
    req := run.Request
    eff = Merge(eff, config.SolverConfig{
        TimeBudgetMs: req.TimeBudgetMs, MaxIterations: req.MaxIterations,
        InitTemp: req.InitTemp, Cooling: req.Cooling, OperatorWeights: req.OperatorWeights,
    })
    return opt.Options{
        Seed:            req.Seed,
        TimeBudget:      time.Duration(eff.TimeBudgetMs) * time.Millisecond,
        MaxIterations:   eff.MaxIterations,
        InitialTemp:     eff.InitTemp,
        Cooling:         eff.Cooling,
        OperatorWeights: eff.OperatorWeights,
    }, nil
}

// Merge returns base with every non-zero field of over applied.
func Merge(base, over config.SolverConfig) config.SolverConfig {
    if over.TimeBudgetMs > 0 { base.TimeBudgetMs = over.TimeBudgetMs }
    if over.MaxIterations > 0 { base.MaxIterations = over.MaxIterations }
    if over.InitTemp > 0 { base.InitTemp = over.InitTemp }
    if over.Cooling > 0 { base.Cooling = over.Cooling }
    if len(over.OperatorWeights) > 0 { base.OperatorWeights = append([]float64(nil), over.OperatorWeights...) }
    return base
}

// DecodeSolverConfig reads a stored tenant config map.
func DecodeSolverConfig(m map[string]any) (config.SolverConfig, error) {
    var out config.SolverConfig
    if len(m) == 0 { return out, nil }
    js, err := json.Marshal(m)
    if err != nil { return out, err }
    if err := json.Unmarshal(js, &out); err != nil { return out, fmt.Errorf("jobs: solver config: %w", err) }
    return out, nil
}
