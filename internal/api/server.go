package api

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"

    "github.com/christofluyten/rinlog/internal/config"
    "github.com/christofluyten/rinlog/internal/events"
    "github.com/christofluyten/rinlog/internal/jobs"
    "github.com/christofluyten/rinlog/internal/metrics"
    "github.com/christofluyten/rinlog/internal/store"
)

type Server struct {
    Store  store.Store
    Broker events.EventBroker
    Worker *jobs.Worker
    Config config.Config
    Log    *zap.Logger

    limiter *tenantLimiter
}

// NewServer creates a Server. If cfg.DatabaseURL is empty, uses the in-memory store.
func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
    if log == nil { log = zap.NewNop() }
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if cfg.DBMigrate {
            ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
            err := sp.Migrate(ctx)
            cancel()
            if err != nil { _ = sp.Close(); return nil, err }
        }
        s = sp
    }
    // Broker selection
    var broker events.EventBroker
    if cfg.RedisURL != "" {
        if rb, err := events.NewRedisBroker(cfg.RedisURL); err == nil {
            broker = rb
        } else {
            log.Warn("redis broker unavailable, using in-process broker", zap.Error(err))
            broker = events.NewBroker()
        }
    } else {
        broker = events.NewBroker()
    }
    metrics.RegisterDefault()
    return &Server{
        Store: s, Broker: broker, Config: cfg, Log: log,
        Worker:  jobs.NewWorker(s, broker, log, cfg),
        limiter: newTenantLimiter(cfg.Rate),
    }, nil
}

// Routes returns the service handler with logging and metrics middleware.
func (s *Server) Routes() http.Handler {
    mux := http.NewServeMux()
    handle := func(pattern string, h http.HandlerFunc) {
        mux.Handle(pattern, s.instrument(pattern, h))
    }

    // Scenarios
    handle("/v1/scenarios", s.ScenariosHandler)
    handle("/v1/scenarios/", s.ScenarioByIDHandler) // includes /score

    // Solving
    handle("/v1/solve", s.rateLimited(s.SolveHandler))
    handle("/v1/runs", s.RunsHandler)
    handle("/v1/runs/", s.RunByIDHandler) // includes /events
    handle("/v1/solver/config", s.SolverConfigHandler)
    handle("/v1/admin/solver/config", s.AdminSolverConfigHandler)

    // Health and ops
    handle("/healthz", s.HealthHandler)
    handle("/readyz", s.ReadyHandler)
    handle("/debug/info", s.DebugJSON)
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    return mux
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    tenant := s.getPrincipal(r).Tenant
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

type ctxKeyTenant struct{}

// Close releases the store and broker connections.
func (s *Server) Close() {
    type closer interface{ Close() error }
    if c, ok := s.Store.(closer); ok { _ = c.Close() }
    if c, ok := s.Broker.(closer); ok { _ = c.Close() }
}
