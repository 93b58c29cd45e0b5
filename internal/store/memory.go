package store

import (
    "context"
    "sync"
    "time"

    "github.com/christofluyten/rinlog/internal/model"
    "github.com/google/uuid"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu        sync.Mutex
    scenarios map[string]model.Scenario  // id -> scenario
    scenByTen map[string][]string        // tenant -> scenario ids, insertion order
    runs      map[string]model.Run       // id -> run
    runsByTen map[string][]string        // tenant -> run ids, insertion order
    queue     []string                   // queued run ids, FIFO
    solverCfg map[string]map[string]any  // tenant -> config
    now       func() time.Time
}

func NewMemory() *Memory {
    return &Memory{
        scenarios: map[string]model.Scenario{},
        scenByTen: map[string][]string{},
        runs: map[string]model.Run{},
        runsByTen: map[string][]string{},
        solverCfg: map[string]map[string]any{},
        now: time.Now,
    }
}

func (m *Memory) stamp() string { return m.now().UTC().Format(time.RFC3339Nano) }

func (m *Memory) CreateScenario(ctx context.Context, tenantID string, sc model.Scenario) (model.Scenario, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    sc.ID = uuid.New().String()
    sc.TenantID = tenantID
    sc.CreatedAt = m.stamp()
    m.scenarios[sc.ID] = sc
    m.scenByTen[tenantID] = append(m.scenByTen[tenantID], sc.ID)
    return sc, nil
}

func (m *Memory) GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    sc, ok := m.scenarios[id]
    if !ok || sc.TenantID != tenantID { return model.Scenario{}, ErrNotFound }
    return sc, nil
}

func (m *Memory) ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.Scenario, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []model.Scenario{}
    next := page(m.scenByTen[tenantID], cursor, clampLimit(limit), func(id string) bool {
        out = append(out, m.scenarios[id])
        return true
    })
    return out, next, nil
}

func (m *Memory) DeleteScenario(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    sc, ok := m.scenarios[id]
    if !ok || sc.TenantID != tenantID { return ErrNotFound }
    delete(m.scenarios, id)
    m.scenByTen[tenantID] = without(m.scenByTen[tenantID], id)
    return nil
}

func (m *Memory) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    run.ID = uuid.New().String()
    if run.Status == "" { run.Status = model.RunQueued }
    run.CreatedAt = m.stamp()
    if run.Status == model.RunRunning { run.StartedAt = run.CreatedAt }
    m.runs[run.ID] = run
    m.runsByTen[run.TenantID] = append(m.runsByTen[run.TenantID], run.ID)
    if run.Status == model.RunQueued { m.queue = append(m.queue, run.ID) }
    return run, nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.runs[id]
    if !ok || r.TenantID != tenantID { return model.Run{}, ErrNotFound }
    return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Run, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []model.Run{}
    next := page(m.runsByTen[tenantID], cursor, clampLimit(limit), func(id string) bool {
        r := m.runs[id]
        if status != "" && r.Status != status { return false }
        out = append(out, r)
        return true
    })
    return out, next, nil
}

func (m *Memory) ClaimQueuedRuns(ctx context.Context, limit int) ([]model.Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if limit <= 0 { limit = 1 }
    out := []model.Run{}
    for len(m.queue) > 0 && len(out) < limit {
        id := m.queue[0]
        m.queue = m.queue[1:]
        r, ok := m.runs[id]
        if !ok || r.Status != model.RunQueued { continue }
        r.Status = model.RunRunning
        r.StartedAt = m.stamp()
        m.runs[id] = r
        out = append(out, r)
    }
    return out, nil
}

func (m *Memory) UpdateRun(ctx context.Context, run model.Run) error {
    m.mu.Lock(); defer m.mu.Unlock()
    cur, ok := m.runs[run.ID]
    if !ok || cur.TenantID != run.TenantID { return ErrNotFound }
    run.CreatedAt = cur.CreatedAt
    if run.StartedAt == "" { run.StartedAt = cur.StartedAt }
    if (run.Status == model.RunSucceeded || run.Status == model.RunFailed) && run.FinishedAt == "" {
        run.FinishedAt = m.stamp()
    }
    m.runs[run.ID] = run
    return nil
}

func (m *Memory) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    cfg, ok := m.solverCfg[tenantID]
    if !ok { return nil, nil }
    out := make(map[string]any, len(cfg))
    for k, v := range cfg { out[k] = v }
    return out, nil
}

func (m *Memory) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
    m.mu.Lock(); defer m.mu.Unlock()
    cp := make(map[string]any, len(cfg))
    for k, v := range cfg { cp[k] = v }
    m.solverCfg[tenantID] = cp
    return nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

// page walks ids after cursor, calling take until limit items were taken.
// The returned cursor is the last id visited, or "" when the list is exhausted.
func page(ids []string, cursor string, limit int, take func(id string) bool) string {
    start := 0
    if cursor != "" {
        for i, id := range ids {
            if id == cursor { start = i + 1; break }
        }
    }
    n := 0
    for i := start; i < len(ids); i++ {
        if take(ids[i]) { n++ }
        if n == limit {
            if i+1 < len(ids) { return ids[i] }
            return ""
        }
    }
    return ""
}

func without(ids []string, id string) []string {
    out := ids[:0]
    for _, v := range ids {
        if v != id { out = append(out, v) }
    }
    return out
}
