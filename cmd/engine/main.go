package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"jobmarket-engine/internal/board"
	"jobmarket-engine/internal/config"
	"jobmarket-engine/internal/events"
	"jobmarket-engine/internal/httpapi"
	"jobmarket-engine/internal/ingest"
	"jobmarket-engine/internal/metrics"
	"jobmarket-engine/internal/scheduler"
	"jobmarket-engine/internal/secrets"
	"jobmarket-engine/internal/session"
	"jobmarket-engine/internal/store"
)

func main() {
	dataDir, err := resolveDataDir()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir: the history db and config file are not shared.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock %s: %v", dataDir, err)
	}
	if !locked {
		log.Fatalf("another engine is already using %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		c, err := config.Load(userCfgPath)
		if err != nil {
			return c, err
		}
		c, vr := config.NormalizeAndValidate(c)
		if !vr.OK() {
			return c, fmt.Errorf("invalid config: %v", vr.Errors)
		}
		for _, w := range vr.Warnings {
			log.Printf("[config] warning: %s", w)
		}
		return c, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)
	currentCfg := func() config.Config { return cfgVal.Load().(config.Config) }

	db, err := store.Open(filepath.Join(dataDir, "history.db"))
	if err != nil {
		log.Fatalf("open history: %v", err)
	}
	defer db.Close()

	hub := events.NewHub()
	fetcher := ingest.NewFetcher(
		ingest.WithLimiter(ingest.NewHostLimiter(cfg.FetchRate())),
		ingest.WithTokens(secrets.GetSourceToken),
	)
	sessions := session.NewManager(cfg.Session.MaxDatasets)
	boards := board.NewService(board.Deps{
		Config:  currentCfg,
		Fetcher: fetcher,
		DB:      db.Pool,
		Hub:     hub,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wait := scheduler.Start(ctx,
		scheduler.Job{
			Name:     "session-sweep",
			Interval: time.Minute,
			Task: func(ctx context.Context) error {
				idle := time.Duration(currentCfg().Session.IdleMinutes) * time.Minute
				if n := sessions.Sweep(idle); n > 0 {
					log.Printf("[session] expired %d idle sessions", n)
				}
				metrics.SetActiveSessions(sessions.Len())
				return nil
			},
		},
		scheduler.Job{
			Name: "history-cleanup",
			// Follows history.cleanup_minutes across config reloads.
			IntervalFunc: func() time.Duration {
				return time.Duration(currentCfg().History.CleanupMinutes) * time.Minute
			},
			Task: func(ctx context.Context) error {
				days := currentCfg().History.RetentionDays
				n, err := store.CleanupOldPredictions(ctx, db.Pool, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				if n > 0 {
					log.Printf("[history] removed %d predictions older than %dd", n, days)
					hub.Emit(events.Scope{}, events.TypeHistoryCleaned, map[string]any{"deleted": n, "retentionDays": days})
				}
				return nil
			},
		},
	)

	deps := httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		Boards:      boards,
		Sessions:    sessions,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,

		OnConfigReload: func(c config.Config) {
			fetcher.SetRate(c.FetchRate())
			sessions.SetMaxDatasets(c.Session.MaxDatasets)
		},
	}
	mux := httpapi.NewMux(deps)

	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
	}

	token := os.Getenv("JOBMARKET_SHUTDOWN_TOKEN")
	if token == "" {
		if token, err = randomToken(16); err != nil {
			log.Fatal(err)
		}
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))
	srv.Handler = httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors,
		httpapi.Sessions(sessions),
	)

	addr := os.Getenv("JOBMARKET_ADDR")
	if addr == "" {
		addr = net.JoinHostPort(cfg.App.Host, fmt.Sprint(cfg.App.Port))
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (data=%s config=%s)", ln.Addr(), dataDir, userCfgPath)
	log.Printf("SHUTDOWN_TOKEN=%s", token)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	stop()
	wait()
	log.Printf("engine stopped")
}
