// hospimatch matching-service
//
// Candidate–job matching core for the hospitality recruitment platform.
// Exposes a REST API used by the Gateway to implement:
//   - swipe feed         — ranked, deduplicated job cards per candidate
//   - swipe recording    — ledger upsert + application / counter side effects
//   - applications       — idempotent creation and the recruiter status machine
//   - match detail       — score breakdown plus an AI-written rationale
//
// Status changes publish notification events to Redis for Gateway fan-out.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hospimatch/matching-service/internal/ai"
	"hospimatch/matching-service/internal/application"
	"hospimatch/matching-service/internal/config"
	"hospimatch/matching-service/internal/db"
	"hospimatch/matching-service/internal/httpapi"
	"hospimatch/matching-service/internal/logger"
	"hospimatch/matching-service/internal/notify"
	"hospimatch/matching-service/internal/ranking"
	"hospimatch/matching-service/internal/scheduler"
	"hospimatch/matching-service/internal/scoring"
	"hospimatch/matching-service/internal/store"
	"hospimatch/matching-service/internal/swipe"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[matching-service] Config error: %v", err)
	}

	zlog, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		log.Fatalf("[matching-service] Logger error: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("postgres connect failed", zap.Error(err))
	}
	defer pool.Close()
	zlog.Info("postgres connected")

	// ── Redis ────────────────────────────────────────────────────────────────
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Fatal("redis connect failed", zap.Error(err))
	}
	defer rdb.Close()
	zlog.Info("redis connected")

	// ── Stores ───────────────────────────────────────────────────────────────
	profiles := store.NewProfiles(pool)
	applications := store.NewApplications(pool)
	swipes := store.NewSwipes(pool)
	counters := store.NewCounters(pool)
	results := store.NewMatchingResults(pool)
	rankingPool := store.NewRankingPool(pool)

	// ── AI rationale chain ───────────────────────────────────────────────────
	rationale := buildRationale(ctx, cfg, zlog)

	// ── Services ─────────────────────────────────────────────────────────────
	engine := scoring.NewEngine()
	notifier := notify.NewRedisNotifier(rdb)

	appSvc := application.NewService(applications, profiles, counters, results, engine, notifier, zlog)
	swipeSvc := swipe.NewService(swipes, appSvc, counters, zlog)
	ranker := ranking.NewCoordinator(rankingPool, rankingPool, profiles, engine, ranking.Config{
		Workers:        cfg.RankingWorkers,
		PerCallTimeout: cfg.PerCallTimeout,
		BatchTimeout:   cfg.BatchTimeout,
	}, zlog)

	// ── Expiry sweep ─────────────────────────────────────────────────────────
	sweeper := scheduler.New(rankingPool, cfg.ExpirySweepInterval, zlog)
	if err := sweeper.Start(ctx); err != nil {
		zlog.Fatal("scheduler start failed", zap.Error(err))
	}
	defer sweeper.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := httpapi.NewHandler(swipeSvc, appSvc, ranker, profiles, engine, rationale, cfg.RankingPoolSize, zlog)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zlog.Info("listening", zap.String("version", version), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
	zlog.Info("stopped")
}

// buildRationale registers every provider that has a key and wires the
// fallback chain. Returns nil when no provider is configured: the match
// detail endpoint then serves scores without rationale text.
func buildRationale(ctx context.Context, cfg *config.Config, zlog *zap.Logger) *ai.RationaleGenerator {
	registry := ai.NewRegistry()

	if cfg.GeminiAPIKey != "" {
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			zlog.Warn("gemini provider init failed", zap.Error(err))
		} else {
			registry.Register(ai.ProviderGemini, p)
		}
	}
	if cfg.OpenAIAPIKey != "" {
		p, err := ai.NewOpenAIProvider(cfg.OpenAIAPIKey, "")
		if err != nil {
			zlog.Warn("openai provider init failed", zap.Error(err))
		} else {
			registry.Register(ai.ProviderOpenAI, p)
		}
	}
	if cfg.MistralAPIKey != "" {
		p, err := ai.NewMistralProvider(cfg.MistralAPIKey, "")
		if err != nil {
			zlog.Warn("mistral provider init failed", zap.Error(err))
		} else {
			registry.Register(ai.ProviderMistral, p)
		}
	}

	if registry.Len() == 0 {
		zlog.Warn("no AI provider configured, rationales disabled")
		return nil
	}

	var order []ai.ProviderID
	for _, p := range cfg.ProviderOrder {
		order = append(order, ai.ProviderID(p))
	}

	orch := ai.NewOrchestrator(registry, cfg.AITimeout, zlog)
	return ai.NewRationaleGenerator(orch, order)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"matching-service","version":%q}`, version)
}
