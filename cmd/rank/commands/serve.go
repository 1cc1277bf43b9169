package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/wonny/cryptorank/internal/api"
	"github.com/wonny/cryptorank/internal/api/handlers"
	"github.com/wonny/cryptorank/internal/scheduler"
	"github.com/wonny/cryptorank/internal/scheduler/jobs"
	"github.com/wonny/cryptorank/internal/session"
	"github.com/wonny/cryptorank/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "랭킹 API 서버 시작",
	Long: `랭킹 세션을 HTTP로 노출합니다.

Endpoints:
  GET    /health
  GET    /metrics
  GET    /api/catalog
  GET    /api/ranking
  GET    /api/pool
  PUT    /api/ranking/metrics
  PUT    /api/ranking/mode
  PUT    /api/ranking/top
  POST   /api/ranking/filters
  DELETE /api/ranking/filters/{index}
  PUT    /api/ranking/directions/{metric}
  POST   /api/ranking/reset

RELOAD_SCHEDULE (cron, seconds first) reloads the dataset in the background.

Example:
  go run ./cmd/rank serve
  go run ./cmd/rank serve --port 8089`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== cryptorank API Server ===")

	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	// 1. Metrics registry
	reg := prometheus.NewRegistry()
	if a.cfg.MetricsEnabled {
		if err := a.metrics.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// 2. Session (an unreachable dataset is not fatal; the reload job retries)
	s := session.New(a.catalog, a.tuning, a.log, a.metrics)
	loadCtx, cancel := context.WithTimeout(ctx, time.Minute)
	table, err := a.loader.Load(loadCtx)
	cancel()
	if err != nil {
		a.log.WithError(err).Warn("Initial dataset load failed, serving empty ranking")
	} else if _, err := s.LoadTable(table); err != nil {
		return err
	}

	// 3. Router
	rankingHandler := handlers.NewRankingHandler(s, a.log)
	deps := api.RouterDeps{
		Ranking:     rankingHandler,
		Limiter:     redis.NewRateLimiter(a.redis, "cryptorank"),
		MutationCap: a.cfg.APIRateLimit,
		Logger:      a.log,
	}
	if a.cfg.MetricsEnabled {
		deps.Gatherer = reg
	}
	server := api.NewServer(":"+a.cfg.Port, api.NewRouter(deps), rankingHandler, a.log)

	// 4. Scheduled reloads
	if a.cfg.Dataset.ReloadSchedule != "" {
		sched := scheduler.New(a.log)
		job := jobs.NewDatasetReloadJob(a.loader, rankingHandler.ApplyTable, a.cfg.Dataset.ReloadSchedule, a.log)
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("schedule dataset reload: %w", err)
		}
		sched.Start()
		server.WithReloads(sched)
	}

	// 5. Serve until SIGINT/SIGTERM, then drain
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(runCtx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
