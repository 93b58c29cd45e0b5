package api

import (
    "net/http"
    "time"

    "github.com/christofluyten/rinlog/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    cfg := s.Config
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "port":             cfg.Port,
            "rateRps":          cfg.Rate.RPS,
            "rateBurst":        cfg.Rate.Burst,
            "workerPoll":       cfg.Worker.PollInterval.String(),
            "workerBatch":      cfg.Worker.BatchSize,
            "solver":           cfg.Solver,
            "hasDatabaseUrl":   cfg.DatabaseURL != "",
            "hasRedisUrl":      cfg.RedisURL != "",
        },
    }
    writeJSON(w, http.StatusOK, info)
}
