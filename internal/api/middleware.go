package api

import (
    "bufio"
    "errors"
    "math"
    "net"
    "net/http"
    "strconv"
    "sync"
    "time"

    "go.uber.org/zap"
    "golang.org/x/time/rate"

    "github.com/christofluyten/rinlog/internal/config"
    "github.com/christofluyten/rinlog/internal/metrics"
)

// statusRecorder captures the response status. It passes Hijack and Flush
// through so WebSocket upgrades keep working behind it.
type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    if r.status == 0 { r.status = code }
    r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
    if r.status == 0 { r.status = http.StatusOK }
    return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := r.ResponseWriter.(http.Hijacker)
    if !ok { return nil, nil, errors.New("api: response writer does not support hijacking") }
    if r.status == 0 { r.status = http.StatusSwitchingProtocols }
    return h.Hijack()
}

// instrument logs each request and records it under the route pattern.
func (s *Server) instrument(pattern string, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)
        if rec.status == 0 { rec.status = http.StatusOK }
        code := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, pattern, code).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, pattern, code).Observe(dur.Seconds())
        s.Log.Info("http",
            zap.String("method", r.Method),
            zap.String("path", r.URL.Path),
            zap.Int("status", rec.status),
            zap.Duration("dur", dur),
            zap.String("remote", r.RemoteAddr),
        )
    })
}

// tenantLimiter keeps one token bucket per tenant.
type tenantLimiter struct {
    mu    sync.Mutex
    limit rate.Limit
    burst int
    byTen map[string]*rate.Limiter
}

// newTenantLimiter returns nil, meaning unlimited, when cfg.RPS <= 0.
func newTenantLimiter(cfg config.RateConfig) *tenantLimiter {
    if cfg.RPS <= 0 { return nil }
    return &tenantLimiter{limit: rate.Limit(cfg.RPS), burst: max(cfg.Burst, 1), byTen: map[string]*rate.Limiter{}}
}

func (l *tenantLimiter) get(tenant string) *rate.Limiter {
    l.mu.Lock(); defer l.mu.Unlock()
    lim, ok := l.byTen[tenant]
    if !ok {
        lim = rate.NewLimiter(l.limit, l.burst)
        l.byTen[tenant] = lim
    }
    return lim
}

// rateLimited answers 429 with Retry-After once the tenant's bucket is empty.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if s.limiter == nil || r.Method != http.MethodPost { next(w, r); return }
        _, tenant := s.withTenant(r)
        res := s.limiter.get(tenant).Reserve()
        if delay := res.Delay(); delay > 0 {
            res.Cancel()
            w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "solve rate limit exceeded", r.URL.Path)
            return
        }
        next(w, r)
    }
}
