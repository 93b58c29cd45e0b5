package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/christofluyten/rinlog/internal/config"
	"github.com/christofluyten/rinlog/internal/events"
	"github.com/christofluyten/rinlog/internal/model"
	"github.com/christofluyten/rinlog/internal/store"
)

type recordStore struct {
	*store.Memory
	mu      sync.Mutex
	updates []model.Run
}

func (r *recordStore) UpdateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	r.updates = append(r.updates, run)
	r.mu.Unlock()
	return r.Memory.UpdateRun(ctx, run)
}

type recordPub struct {
	mu  sync.Mutex
	got []events.Event
}

func (p *recordPub) Publish(runID string, evt events.Event) {
	p.mu.Lock()
	p.got = append(p.got, evt)
	p.mu.Unlock()
}

func (p *recordPub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.got))
	for _, e := range p.got {
		out = append(out, e.Type)
	}
	return out
}

// swapped has the two stops of truck-1 in the expensive order B, A.
func swapped() model.Scenario {
	return model.Scenario{
		Name:   "swapped",
		Travel: model.TravelSpec{Model: "euclidean", Speed: 1},
		Vehicles: []model.VehicleIn{{
			ID:    "truck-1",
			Route: []model.StopRef{{Parcel: "B", Kind: "pickup"}, {Parcel: "A", Kind: "pickup"}},
		}},
		Parcels: []model.ParcelIn{
			{ID: "A", Pickup: &model.StopIn{Location: model.Point{X: 20}, ServiceTime: 10, TimeWindow: &model.TimeWindow{Start: 0, End: 50}}},
			{ID: "B", Pickup: &model.StopIn{Location: model.Point{X: 20, Y: 30}, ServiceTime: 5, TimeWindow: &model.TimeWindow{Start: 0, End: 100}}},
		},
	}
}

func newTestWorker(rs store.Store, pub events.Publisher) *Worker {
	cfg := config.Default()
	cfg.Solver.MaxIterations = 300
	cfg.Solver.TimeBudgetMs = 2000
	return NewWorker(rs, pub, nil, cfg)
}

func TestProcessOnceSolvesQueuedRun(t *testing.T) {
	ctx := context.Background()
	rs := &recordStore{Memory: store.NewMemory()}
	sc, err := rs.CreateScenario(ctx, "t1", swapped())
	if err != nil {
		t.Fatalf("create scenario: %v", err)
	}
	run, err := rs.CreateRun(ctx, model.Run{TenantID: "t1", ScenarioID: sc.ID, Request: model.SolveRequest{ScenarioID: sc.ID, Seed: 1}})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	pub := &recordPub{}
	w := newTestWorker(rs, pub)

	if n := w.processOnce(ctx); n != 1 {
		t.Fatalf("processed %d runs, want 1", n)
	}
	if n := w.processOnce(ctx); n != 0 {
		t.Fatalf("run handed out twice")
	}

	got, err := rs.GetRun(ctx, "t1", run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != model.RunSucceeded {
		t.Fatalf("status %q, error %q", got.Status, got.Error)
	}
	if got.Initial == nil || got.Initial.Score.Soft != -107 {
		t.Fatalf("initial score %+v", got.Initial)
	}
	if got.Result == nil || got.Result.Score.Score != "0hard/-86soft" {
		t.Fatalf("result score %+v", got.Result)
	}
	route := got.Solution.Vehicles[0].Route
	if len(route) != 2 || route[0].Parcel != "A" || route[1].Parcel != "B" {
		t.Fatalf("solution route %+v", route)
	}
	if got.Metrics["iterations"] != 300 || got.FinishedAt == "" {
		t.Fatalf("metrics %v finished %q", got.Metrics["iterations"], got.FinishedAt)
	}

	types := pub.types()
	if len(types) < 2 || types[0] != events.RunStarted || types[len(types)-1] != events.RunFinished {
		t.Fatalf("event sequence %v", types)
	}
}

func TestExecuteRecordsFailure(t *testing.T) {
	ctx := context.Background()
	rs := &recordStore{Memory: store.NewMemory()}
	run, _ := rs.CreateRun(ctx, model.Run{TenantID: "t1", ScenarioID: "missing", Status: model.RunRunning})
	pub := &recordPub{}
	out := newTestWorker(rs, pub).Execute(ctx, run)

	if out.Status != model.RunFailed || out.Error == "" {
		t.Fatalf("expected failed run, got %+v", out)
	}
	if len(rs.updates) != 1 || rs.updates[0].Status != model.RunFailed {
		t.Fatalf("updates %+v", rs.updates)
	}
	last := pub.got[len(pub.got)-1]
	if last.Type != events.RunFinished || last.Data["status"] != model.RunFailed {
		t.Fatalf("final event %+v", last)
	}
}

func TestExecuteInlineScenarioIsValidated(t *testing.T) {
	ctx := context.Background()
	rs := &recordStore{Memory: store.NewMemory()}
	bad := swapped()
	bad.Vehicles = nil
	run, _ := rs.CreateRun(ctx, model.Run{TenantID: "t1", Status: model.RunRunning, Request: model.SolveRequest{Scenario: &bad}})
	out := newTestWorker(rs, nil).Execute(ctx, run)
	if out.Status != model.RunFailed {
		t.Fatalf("invalid inline scenario solved: %+v", out)
	}
}

func TestOptionsLayering(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if err := mem.SaveSolverConfig(ctx, "t1", map[string]any{"timeBudgetMs": 50, "cooling": 0.9}); err != nil {
		t.Fatal(err)
	}
	w := newTestWorker(mem, nil)
	opts, err := w.options(ctx, model.Run{TenantID: "t1", Request: model.SolveRequest{Cooling: 0.5, Seed: 7}})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.TimeBudget != 50*time.Millisecond {
		t.Fatalf("tenant budget not applied: %v", opts.TimeBudget)
	}
	if opts.Cooling != 0.5 || opts.Seed != 7 {
		t.Fatalf("request overrides not applied: %+v", opts)
	}
	if opts.MaxIterations != 300 || opts.InitialTemp != 10 {
		t.Fatalf("service defaults lost: %+v", opts)
	}

	if err := mem.SaveSolverConfig(ctx, "t2", map[string]any{"cooling": "fast"}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.options(ctx, model.Run{TenantID: "t2"}); err == nil {
		t.Fatalf("expected error for malformed tenant config")
	}
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	rs := &recordStore{Memory: store.NewMemory()}
	sc, _ := rs.CreateScenario(ctx, "t1", swapped())
	run, _ := rs.CreateRun(ctx, model.Run{TenantID: "t1", ScenarioID: sc.ID})
	w := newTestWorker(rs, nil)
	w.PollInterval = 10 * time.Millisecond
	w.Start()
	defer w.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := rs.GetRun(ctx, "t1", run.ID)
		if got.Status == model.RunSucceeded {
			w.Stop()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("worker did not finish the run")
}
