package store

import (
    "context"
    "database/sql"
    "embed"
    "encoding/json"
    "errors"
    "fmt"
    "io/fs"
    "sort"
    "time"

    "github.com/christofluyten/rinlog/internal/model"
    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        _ = db.Close()
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate applies the embedded schema files in name order. Every file is
// idempotent, so reapplying is harmless.
func (p *Postgres) Migrate(ctx context.Context) error {
    files, err := migrationFiles()
    if err != nil { return err }
    for _, name := range files {
        body, err := migrationsFS.ReadFile("migrations/" + name)
        if err != nil { return err }
        if _, err := p.db.ExecContext(ctx, string(body)); err != nil {
            return fmt.Errorf("store: migrate %s: %w", name, err)
        }
    }
    return nil
}

func migrationFiles() ([]string, error) {
    entries, err := fs.ReadDir(migrationsFS, "migrations")
    if err != nil { return nil, err }
    names := make([]string, 0, len(entries))
    for _, e := range entries {
        if !e.IsDir() { names = append(names, e.Name()) }
    }
    sort.Strings(names)
    return names, nil
}

func (p *Postgres) CreateScenario(ctx context.Context, tenantID string, sc model.Scenario) (model.Scenario, error) {
    sc.ID = uuid.New().String()
    sc.TenantID = tenantID
    body, err := json.Marshal(sc)
    if err != nil { return model.Scenario{}, err }
    var created time.Time
    err = p.db.QueryRowContext(ctx, `INSERT INTO scenarios (id, tenant_id, name, body) VALUES ($1,$2,$3,$4) RETURNING created_at`,
        sc.ID, tenantID, nullIfEmpty(sc.Name), string(body)).Scan(&created)
    if err != nil { return model.Scenario{}, err }
    sc.CreatedAt = formatTime(created)
    return sc, nil
}

func (p *Postgres) GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error) {
    if !validID(id) { return model.Scenario{}, ErrNotFound }
    var body []byte
    var created time.Time
    err := p.db.QueryRowContext(ctx, `SELECT body, created_at FROM scenarios WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(&body, &created)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Scenario{}, ErrNotFound }
        return model.Scenario{}, err
    }
    return decodeScenario(body, created)
}

func (p *Postgres) ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.Scenario, string, error) {
    limit = clampLimit(limit)
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT body, created_at FROM scenarios WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT body, created_at FROM scenarios WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Scenario{}
    var last string
    for rows.Next() {
        var body []byte
        var created time.Time
        if err := rows.Scan(&body, &created); err != nil { return nil, "", err }
        sc, err := decodeScenario(body, created)
        if err != nil { return nil, "", err }
        out = append(out, sc)
        last = sc.ID
    }
    if err := rows.Err(); err != nil { return nil, "", err }
    var next string
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteScenario(ctx context.Context, tenantID, id string) error {
    if !validID(id) { return ErrNotFound }
    res, err := p.db.ExecContext(ctx, `DELETE FROM scenarios WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

const runColumns = `id::text, tenant_id, COALESCE(scenario_id,''), status, request, initial, result, solution, metrics, COALESCE(error,''), created_at, started_at, finished_at`

func (p *Postgres) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
    run.ID = uuid.New().String()
    if run.Status == "" { run.Status = model.RunQueued }
    req, err := json.Marshal(run.Request)
    if err != nil { return model.Run{}, err }
    initial, err := jsonArg(run.Initial)
    if err != nil { return model.Run{}, err }
    var created time.Time
    var started sql.NullTime
    err = p.db.QueryRowContext(ctx, `INSERT INTO runs (id, tenant_id, scenario_id, status, request, initial, started_at)
        VALUES ($1,$2,$3,$4,$5,$6, CASE WHEN $4 = 'running' THEN now() END) RETURNING created_at, started_at`,
        run.ID, run.TenantID, nullIfEmpty(run.ScenarioID), run.Status, string(req), initial).Scan(&created, &started)
    if err != nil { return model.Run{}, err }
    run.CreatedAt = formatTime(created)
    if started.Valid { run.StartedAt = formatTime(started.Time) }
    return run, nil
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
    if !validID(id) { return model.Run{}, ErrNotFound }
    row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    r, err := scanRun(row)
    if errors.Is(err, sql.ErrNoRows) { return model.Run{}, ErrNotFound }
    return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Run, string, error) {
    limit = clampLimit(limit)
    q := `SELECT ` + runColumns + ` FROM runs WHERE tenant_id=$1`
    args := []any{tenantID}
    idx := 2
    if status != "" { q += ` AND status=$` + fmt.Sprint(idx); args = append(args, status); idx++ }
    if cursor != "" { q += ` AND id::text > $` + fmt.Sprint(idx); args = append(args, cursor); idx++ }
    q += ` ORDER BY id LIMIT $` + fmt.Sprint(idx)
    args = append(args, limit)
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Run{}
    for rows.Next() {
        r, err := scanRun(rows)
        if err != nil { return nil, "", err }
        out = append(out, r)
    }
    if err := rows.Err(); err != nil { return nil, "", err }
    var next string
    if len(out) == limit { next = out[len(out)-1].ID }
    return out, next, nil
}

func (p *Postgres) ClaimQueuedRuns(ctx context.Context, limit int) ([]model.Run, error) {
    if limit <= 0 { limit = 1 }
    rows, err := p.db.QueryContext(ctx, `UPDATE runs SET status='running', started_at=now()
        WHERE id IN (SELECT id FROM runs WHERE status='queued' ORDER BY created_at LIMIT $1 FOR UPDATE SKIP LOCKED)
        RETURNING `+runColumns, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Run{}
    for rows.Next() {
        r, err := scanRun(rows)
        if err != nil { return nil, err }
        out = append(out, r)
    }
    if err := rows.Err(); err != nil { return nil, err }
    return out, nil
}

func (p *Postgres) UpdateRun(ctx context.Context, run model.Run) error {
    if !validID(run.ID) { return ErrNotFound }
    initial, err := jsonArg(run.Initial)
    if err != nil { return err }
    result, err := jsonArg(run.Result)
    if err != nil { return err }
    solution, err := jsonArg(run.Solution)
    if err != nil { return err }
    var metrics any
    if run.Metrics != nil {
        b, err := json.Marshal(run.Metrics)
        if err != nil { return err }
        metrics = string(b)
    }
    finished := run.Status == model.RunSucceeded || run.Status == model.RunFailed
    res, err := p.db.ExecContext(ctx, `UPDATE runs SET status=$3, initial=COALESCE($4, initial), result=$5, solution=$6, metrics=$7, error=$8,
        finished_at=CASE WHEN $9 THEN COALESCE(finished_at, now()) ELSE finished_at END
        WHERE tenant_id=$1 AND id=$2`,
        run.TenantID, run.ID, run.Status, initial, result, solution, metrics, nullIfEmpty(run.Error), finished)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (p *Postgres) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
    row := p.db.QueryRowContext(ctx, `SELECT config FROM solver_config WHERE tenant_id=$1`, tenantID)
    var js []byte
    if err := row.Scan(&js); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return nil, nil }
        return nil, err
    }
    var cfg map[string]any
    if err := json.Unmarshal(js, &cfg); err != nil { return nil, err }
    return cfg, nil
}

func (p *Postgres) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
    js, err := json.Marshal(cfg)
    if err != nil { return err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO solver_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, string(js))
    return err
}

type rowScanner interface {
    Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
    var r model.Run
    var req, initial, result, solution, metrics []byte
    var created time.Time
    var started, finished sql.NullTime
    if err := row.Scan(&r.ID, &r.TenantID, &r.ScenarioID, &r.Status, &req, &initial, &result, &solution, &metrics, &r.Error, &created, &started, &finished); err != nil {
        return model.Run{}, err
    }
    if err := json.Unmarshal(req, &r.Request); err != nil { return model.Run{}, fmt.Errorf("store: run %s request: %w", r.ID, err) }
    var err error
    if r.Initial, err = decodePtr[model.Evaluation](initial); err != nil { return model.Run{}, err }
    if r.Result, err = decodePtr[model.Evaluation](result); err != nil { return model.Run{}, err }
    if r.Solution, err = decodePtr[model.Scenario](solution); err != nil { return model.Run{}, err }
    if len(metrics) > 0 {
        if err := json.Unmarshal(metrics, &r.Metrics); err != nil { return model.Run{}, err }
    }
    r.CreatedAt = formatTime(created)
    if started.Valid { r.StartedAt = formatTime(started.Time) }
    if finished.Valid { r.FinishedAt = formatTime(finished.Time) }
    return r, nil
}

func decodeScenario(body []byte, created time.Time) (model.Scenario, error) {
    var sc model.Scenario
    if err := json.Unmarshal(body, &sc); err != nil { return model.Scenario{}, err }
    sc.CreatedAt = formatTime(created)
    return sc, nil
}

func decodePtr[T any](js []byte) (*T, error) {
    if len(js) == 0 || string(js) == "null" { return nil, nil }
    v := new(T)
    if err := json.Unmarshal(js, v); err != nil { return nil, err }
    return v, nil
}

// jsonArg encodes v for a jsonb parameter; nil stays SQL NULL.
func jsonArg[T any](v *T) (any, error) {
    if v == nil { return nil, nil }
    b, err := json.Marshal(v)
    if err != nil { return nil, err }
    return string(b), nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func nullIfEmpty(s string) any { if s == "" { return nil }; return s }

// validID rejects non-uuid ids before they reach a uuid column.
func validID(id string) bool { _, err := uuid.Parse(id); return err == nil }
