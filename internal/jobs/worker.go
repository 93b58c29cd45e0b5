// Package jobs runs queued solve runs in the background.
package jobs

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/attribute"
    "go.opentelemetry.io/otel/codes"
    "go.uber.org/zap"

    "github.com/christofluyten/rinlog/internal/config"
    "github.com/christofluyten/rinlog/internal/events"
    "github.com/christofluyten/rinlog/internal/metrics"
    "github.com/christofluyten/rinlog/internal/model"
    "github.com/christofluyten/rinlog/internal/opt"
    "github.com/christofluyten/rinlog/internal/scenario"
    "github.com/christofluyten/rinlog/internal/score"
    "github.com/christofluyten/rinlog/internal/store"
)

var tracer = otel.Tracer("github.com/christofluyten/rinlog/internal/jobs")

type Worker struct {
    Store        store.Store
    Events       events.Publisher
    Log          *zap.Logger
    Defaults     config.SolverConfig
    PollInterval time.Duration
    BatchSize    int

    stop   chan struct{}
    cancel context.CancelFunc
    wg     sync.WaitGroup
}

func NewWorker(s store.Store, pub events.Publisher, log *zap.Logger, cfg config.Config) *Worker {
    if log == nil { log = zap.NewNop() }
    return &Worker{
        Store: s, Events: pub, Log: log.Named("jobs"),
        Defaults: cfg.Solver, PollInterval: cfg.Worker.PollInterval, BatchSize: cfg.Worker.BatchSize,
        stop: make(chan struct{}),
    }
}

// Start polls the store for queued runs until Stop is called.
func (w *Worker) Start() {
    ctx, cancel := context.WithCancel(context.Background())
    w.cancel = cancel
    interval := w.PollInterval
    if interval <= 0 { interval = time.Second }
    w.wg.Add(1)
    go func() {
        defer w.wg.Done()
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-w.stop:
                return
            case <-ticker.C:
                w.processOnce(ctx)
            }
        }
    }()
}

// Stop cancels runs in flight, which are recorded as failed, and waits for
// the loop to exit.
func (w *Worker) Stop() {
    select {
    case <-w.stop:
        return
    default:
    }
    close(w.stop)
    if w.cancel != nil { w.cancel() }
    w.wg.Wait()
}

// processOnce claims one batch and solves its runs concurrently, one
// session per run. It returns the number of runs handled.
func (w *Worker) processOnce(ctx context.Context) int {
    claimCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
    items, err := w.Store.ClaimQueuedRuns(claimCtx, max(w.BatchSize, 1))
    cancel()
    if err != nil {
        if !errors.Is(err, context.Canceled) { w.Log.Warn("claim queued runs", zap.Error(err)) }
        return 0
    }
    var wg sync.WaitGroup
    for _, run := range items {
        wg.Add(1)
        go func(run model.Run) {
            defer wg.Done()
            w.Execute(ctx, run)
        }(run)
    }
    wg.Wait()
    return len(items)
}

// Execute solves run, which must already be marked running, persists the
// outcome and publishes the terminal event. The returned run is the stored
// state.
func (w *Worker) Execute(ctx context.Context, run model.Run) model.Run {
    ctx, span := tracer.Start(ctx, "solve.run")
    defer span.End()
    span.SetAttributes(
        attribute.String("run.id", run.ID),
        attribute.String("tenant.id", run.TenantID),
        attribute.String("scenario.id", run.ScenarioID),
    )
    metrics.ActiveRuns.Inc()
    defer metrics.ActiveRuns.Dec()
    log := w.Log.With(zap.String("run", run.ID), zap.String("tenant", run.TenantID))

    start := time.Now()
    w.publish(run.ID, events.Event{Type: events.RunStarted, Data: map[string]any{"runId": run.ID}})
    err := w.solve(ctx, &run)
    elapsed := time.Since(start)

    run.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
    if err != nil {
        run.Status = model.RunFailed
        run.Error = err.Error()
        span.RecordError(err)
        span.SetStatus(codes.Error, err.Error())
        log.Warn("solve failed", zap.Error(err), zap.Duration("dur", elapsed))
    } else {
        run.Status = model.RunSucceeded
        run.Error = ""
        span.SetAttributes(
            attribute.Int64("score.hard", run.Result.Score.Hard),
            attribute.Int64("score.soft", run.Result.Score.Soft),
        )
        log.Info("solve done", zap.String("score", run.Result.Score.Score), zap.Duration("dur", elapsed))
    }
    metrics.SolveRuns.WithLabelValues(run.Status).Inc()
    metrics.SolveDuration.Observe(elapsed.Seconds())

    // The outcome is stored even when ctx was cancelled by shutdown.
    persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
    defer cancel()
    if uerr := w.Store.UpdateRun(persistCtx, run); uerr != nil {
        log.Error("persist run", zap.Error(uerr))
    }

    final := map[string]any{"runId": run.ID, "status": run.Status}
    if run.Result != nil { final["score"] = run.Result.Score }
    if run.Error != "" { final["error"] = run.Error }
    w.publish(run.ID, events.Event{Type: events.RunFinished, Data: final})
    return run
}

func (w *Worker) solve(ctx context.Context, run *model.Run) error {
    sc, err := w.resolveScenario(ctx, *run)
    if err != nil { return err }
    built, err := scenario.Build(sc)
    if err != nil { return err }
    sess, err := built.Session()
    if err != nil { return err }
    initial, err := built.Report(sess)
    if err != nil { return err }
    run.Initial = &initial

    opts, err := w.options(ctx, *run)
    if err != nil { return err }
    runID := run.ID
    opts.Progress = func(_ context.Context, p opt.Progress) {
        w.publish(runID, events.Event{Type: events.RunProgress, Data: map[string]any{
            "iteration": p.Iteration,
            "current":   p.Current.String(),
            "best":      p.Best.String(),
            "elapsedMs": p.Elapsed.Milliseconds(),
        }})
    }

    res, err := opt.Solve(ctx, sess, opts)
    observe(res.Metrics)
    run.Metrics = res.Metrics.ToMap()
    if err != nil { return err }

    best := score.NewSession(built.Config)
    if err := best.Reset(res.Schedule); err != nil { return err }
    ev, err := built.Report(best)
    if err != nil { return err }
    solution := built.WithRoutes(res.Schedule)
    solution.ID, solution.CreatedAt = "", ""
    run.Result = &ev
    run.Solution = &solution
    return nil
}

func (w *Worker) resolveScenario(ctx context.Context, run model.Run) (model.Scenario, error) {
    if run.Request.Scenario != nil {
        sc := *run.Request.Scenario
        if err := scenario.Validate(&sc); err != nil { return model.Scenario{}, err }
        return sc, nil
    }
    if run.ScenarioID == "" { return model.Scenario{}, errors.New("jobs: run has no scenario") }
    sc, err := w.Store.GetScenario(ctx, run.TenantID, run.ScenarioID)
    if err != nil { return model.Scenario{}, fmt.Errorf("jobs: scenario %s: %w", run.ScenarioID, err) }
    return sc, nil
}

func (w *Worker) publish(runID string, evt events.Event) {
    if w.Events != nil { w.Events.Publish(runID, evt) }
}

func observe(m opt.Metrics) {
    metrics.ObserveEvaluator(metrics.Evaluator{
        Inserts:          m.Evaluator.Inserts,
        Removes:          m.Evaluator.Removes,
        Edits:            m.Evaluator.Edits,
        Flushes:          m.Evaluator.Flushes,
        VehiclesResynced: m.Evaluator.VehiclesResynced,
    })
    for i, name := range opt.OperatorNames {
        metrics.SolverIterations.WithLabelValues(name, "selected").Add(float64(m.OperatorSelects[i]))
    }
    metrics.SolverIterations.WithLabelValues("all", "improved").Add(float64(m.Improvements))
    metrics.SolverIterations.WithLabelValues("all", "accepted_worse").Add(float64(m.AcceptedWorse))
    metrics.SolverIterations.WithLabelValues("all", "rejected").Add(float64(m.Rejected))
}
