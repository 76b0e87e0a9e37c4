package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dockout/frontend/gross"
	"dockout/frontend/picking"
	"dockout/frontend/transfer"
	"dockout/infrastructure/audit"
	"dockout/infrastructure/cache"
	"dockout/infrastructure/config"
	httpserver "dockout/infrastructure/http"
	"dockout/infrastructure/locks"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/session"
	"dockout/infrastructure/sqlite"
	"dockout/infrastructure/teg"
)

// evictEvery is how often idle workflow runs are swept.
const evictEvery = 10 * time.Minute

// longestChain is the most sequential upstream calls one submission makes:
// TEG auth, picking update and additional materials.
const longestChain = 3

// guardTTL bounds a held submission lock. It outlives the longest chain of
// upstream calls, each bounded by timeout, with a margin for local work.
func guardTTL(timeout time.Duration) time.Duration {
	return longestChain*timeout + 30*time.Second
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slog.SetDefault(newLogger(cfg.LogFormat, cfg.LogLevel))

	defaults, err := config.LoadDefaults(cfg.DefaultsFile)
	if err != nil {
		log.Fatalf("load defaults: %v", err)
	}

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := sqlite.ApplyMigrations(context.Background(), db, ""); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	guard, err := locks.New(context.Background(), cfg.RedisAddr, guardTTL(cfg.UpstreamTimeout))
	if err != nil {
		log.Fatalf("submission guard: %v", err)
	}

	sapClient := sap.NewClient(cfg.SAP, nil, cfg.UpstreamTimeout)
	tegClient := teg.NewClient(cfg.TEG, nil, cfg.UpstreamTimeout)
	auditSvc := audit.NewService()
	runs := cache.NewWorkflowRunCache()

	server := httpserver.NewServer(cfg.Addr, db, runs, auditSvc, httpserver.Services{
		Tokens:   sapClient,
		Transfer: transfer.NewOrchestrator(sapClient, defaults.Picking, db, auditSvc, guard),
		Picking:  picking.NewOrchestrator(sapClient, db, auditSvc, guard),
		Gross:    gross.NewService(sapClient, tegClient, defaults.TEG, db, auditSvc, guard),
		Defaults: defaults,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}
	slog.Info("dockout listening", slog.String("addr", cfg.Addr), slog.Duration("upstream_timeout", cfg.UpstreamTimeout), slog.Bool("redis_guard", cfg.RedisAddr != ""))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go evictIdleRuns(ctx, runs)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		slog.Error("graceful shutdown error", slog.Any("err", err))
	}
}

func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func evictIdleRuns(ctx context.Context, runs *cache.WorkflowRunCache) {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := runs.Evict(session.RunTTL); n > 0 {
				slog.Info("evicted idle workflow runs", slog.Int("count", n), slog.Int("remaining", runs.Len()))
			}
		}
	}
}
