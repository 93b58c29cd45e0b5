package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "go.uber.org/zap"

    "github.com/christofluyten/rinlog/internal/api"
    "github.com/christofluyten/rinlog/internal/buildinfo"
    "github.com/christofluyten/rinlog/internal/config"
    "github.com/christofluyten/rinlog/internal/logging"
)

func main() {
    cfgPath := flag.String("config", os.Getenv("RINLOG_CONFIG"), "path to a YAML config file")
    flag.Parse()

    envErr := godotenv.Load()
    cfg, err := config.Load(*cfgPath)
    if err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
    log, err := logging.New(cfg.Log)
    if err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
    defer func() { _ = log.Sync() }()
    if envErr != nil {
        log.Debug("no .env file found, using environment variables")
    }

    srvDeps, err := api.NewServer(cfg, log)
    if err != nil {
        log.Fatal("failed to init server", zap.Error(err))
    }
    defer srvDeps.Close()

    srv := &http.Server{
        Addr:              cfg.Addr(),
        Handler:           srvDeps.Routes(),
        ReadHeaderTimeout: 5 * time.Second,
    }

    srvDeps.Worker.Start()
    errCh := make(chan error, 1)
    go func() {
        log.Info("API listening", zap.String("addr", srv.Addr), zap.String("version", buildinfo.String()))
        errCh <- srv.ListenAndServe()
    }()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()
    select {
    case err := <-errCh:
        if err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Error("server error", zap.Error(err))
        }
    case <-ctx.Done():
        log.Info("shutting down")
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Warn("http shutdown", zap.Error(err))
    }
    srvDeps.Worker.Stop()
}
