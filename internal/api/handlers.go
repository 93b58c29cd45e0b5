package api

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "go.uber.org/zap"

    "github.com/christofluyten/rinlog/internal/jobs"
    "github.com/christofluyten/rinlog/internal/metrics"
    "github.com/christofluyten/rinlog/internal/model"
    "github.com/christofluyten/rinlog/internal/scenario"
    "github.com/christofluyten/rinlog/internal/store"
)

// ScenariosHandler handles POST/GET /v1/scenarios. POST accepts a JSON or
// YAML scenario document.
func (s *Server) ScenariosHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/scenarios" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    ctx, tenant := s.withTenant(r)
    switch r.Method {
    case http.MethodPost:
        sc, err := scenario.Load(http.MaxBytesReader(w, r.Body, maxBody))
        if err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
            return
        }
        if err := scenario.Validate(&sc); err != nil {
            writeProblem(w, http.StatusUnprocessableEntity, "Invalid scenario", err.Error(), r.URL.Path)
            return
        }
        created, err := s.Store.CreateScenario(ctx, tenant, sc)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create scenario failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, map[string]any{"id": created.ID, "name": created.Name, "createdAt": created.CreatedAt})
    case http.MethodGet:
        cursor, limit := pageParams(r)
        items, next, err := s.Store.ListScenarios(ctx, tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List scenarios failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// ScenarioByIDHandler handles GET/DELETE /v1/scenarios/{id} and POST /v1/scenarios/{id}/score
func (s *Server) ScenarioByIDHandler(w http.ResponseWriter, r *http.Request) {
    id, sub, ok := splitID(r.URL.Path, "/v1/scenarios/")
    if !ok { writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path); return }
    ctx, tenant := s.withTenant(r)
    switch {
    case sub == "" && r.Method == http.MethodGet:
        sc, err := s.Store.GetScenario(ctx, tenant, id)
        if err != nil { s.storeProblem(w, r, "Scenario", err); return }
        writeJSON(w, http.StatusOK, sc)
    case sub == "" && r.Method == http.MethodDelete:
        if !s.getPrincipal(r).IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
        if err := s.Store.DeleteScenario(ctx, tenant, id); err != nil { s.storeProblem(w, r, "Scenario", err); return }
        w.WriteHeader(http.StatusNoContent)
    case sub == "score" && r.Method == http.MethodPost:
        sc, err := s.Store.GetScenario(ctx, tenant, id)
        if err != nil { s.storeProblem(w, r, "Scenario", err); return }
        ev, err := scenario.Evaluate(sc)
        if err != nil {
            writeProblem(w, http.StatusUnprocessableEntity, "Scoring failed", err.Error(), r.URL.Path)
            return
        }
        metrics.ScenarioScores.WithLabelValues(boolLabel(ev.Score.Feasible)).Inc()
        writeJSON(w, http.StatusOK, ev)
    case sub == "" || sub == "score":
        w.WriteHeader(http.StatusMethodNotAllowed)
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
    }
}

// SolveHandler handles POST /v1/solve. With ?wait=true the run is solved
// within the request and returned; otherwise it is queued for the worker.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    ctx, tenant := s.withTenant(r)
    var req model.SolveRequest
    if err := readJSON(w, r, &req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateSolveRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
        return
    }
    if req.ScenarioID != "" {
        if _, err := s.Store.GetScenario(ctx, tenant, req.ScenarioID); err != nil { s.storeProblem(w, r, "Scenario", err); return }
    }
    wait := r.URL.Query().Get("wait") == "true"
    run := model.Run{TenantID: tenant, ScenarioID: req.ScenarioID, Request: req, Status: model.RunQueued}
    if wait { run.Status = model.RunRunning }
    run, err := s.Store.CreateRun(ctx, run)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
        return
    }
    s.Log.Info("run created", zap.String("run", run.ID), zap.String("tenant", tenant), zap.Bool("wait", wait))
    if !wait {
        writeJSON(w, http.StatusAccepted, map[string]any{"runId": run.ID, "status": run.Status})
        return
    }
    done := s.Worker.Execute(ctx, run)
    writeJSON(w, http.StatusOK, done)
}

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/runs" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    ctx, tenant := s.withTenant(r)
    cursor, limit := pageParams(r)
    items, next, err := s.Store.ListRuns(ctx, tenant, r.URL.Query().Get("status"), cursor, limit)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and the /v1/runs/{id}/events stream
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
    id, sub, ok := splitID(r.URL.Path, "/v1/runs/")
    if !ok { writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    switch sub {
    case "":
        ctx, tenant := s.withTenant(r)
        run, err := s.Store.GetRun(ctx, tenant, id)
        if err != nil { s.storeProblem(w, r, "Run", err); return }
        writeJSON(w, http.StatusOK, run)
    case "events":
        s.RunEventsWS(w, r, id)
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
    }
}

// effectiveSolverConfig layers the tenant config over the service defaults.
func (s *Server) effectiveSolverConfig(ctx context.Context, tenant string) (map[string]any, error) {
    stored, err := s.Store.GetSolverConfig(ctx, tenant)
    if err != nil { return nil, err }
    tc, err := jobs.DecodeSolverConfig(stored)
    if err != nil { return nil, err }
    eff := jobs.Merge(s.Config.Solver, tc)
    return map[string]any{
        "timeBudgetMs":    eff.TimeBudgetMs,
        "maxIterations":   eff.MaxIterations,
        "initTemp":        eff.InitTemp,
        "cooling":         eff.Cooling,
        "operatorWeights": eff.OperatorWeights,
    }, nil
}

// SolverConfigHandler returns the solver settings applied to requests that leave them unset
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/solver/config" || r.Method != http.MethodGet { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    ctx, tenant := s.withTenant(r)
    defaults, err := s.effectiveSolverConfig(ctx, tenant)
    if err != nil { writeProblem(w, 500, "Solver config unavailable", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"defaults": defaults})
}

// Admin get/set solver tenant config
func (s *Server) AdminSolverConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/solver/config" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    switch r.Method {
    case http.MethodGet:
        cfg, err := s.Store.GetSolverConfig(r.Context(), p.Tenant)
        if err != nil { writeProblem(w, 500, "Load failed", err.Error(), r.URL.Path); return }
        if cfg == nil { cfg = map[string]any{} }
        writeJSON(w, 200, map[string]any{"config": cfg})
    case http.MethodPut:
        var body struct{ Config map[string]any `json:"config"` }
        if err := readJSON(w, r, &body); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        if body.Config == nil { writeProblem(w, 400, "Missing config", "", r.URL.Path); return }
        sc, err := jobs.DecodeSolverConfig(body.Config)
        if err == nil { err = validateSolverSettings(sc) }
        if err != nil { writeProblem(w, 400, "Invalid config", err.Error(), r.URL.Path); return }
        if err := s.Store.SaveSolverConfig(r.Context(), p.Tenant, body.Config); err != nil { writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]bool{"ok": true})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    type pinger interface{ Ping(ctx context.Context) error }
    if b, ok := s.Broker.(pinger); ok {
        if err := b.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", "broker: "+err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}

func (s *Server) storeProblem(w http.ResponseWriter, r *http.Request, what string, err error) {
    if errors.Is(err, store.ErrNotFound) {
        writeProblem(w, http.StatusNotFound, what+" not found", "", r.URL.Path)
        return
    }
    s.Log.Error("store", zap.String("path", r.URL.Path), zap.Error(err))
    writeProblem(w, http.StatusInternalServerError, what+" lookup failed", err.Error(), r.URL.Path)
}

// splitID parses prefix + "{id}" or prefix + "{id}/{sub}".
func splitID(path, prefix string) (id, sub string, ok bool) {
    rest := strings.TrimPrefix(path, prefix)
    if rest == path || rest == "" { return "", "", false }
    parts := strings.SplitN(rest, "/", 2)
    if parts[0] == "" { return "", "", false }
    if len(parts) == 2 { sub = strings.TrimSuffix(parts[1], "/") }
    return parts[0], sub, true
}

func boolLabel(b bool) string {
    if b { return "true" }
    return "false"
}
