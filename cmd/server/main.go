// Package main provides the portfolio HTTP service: accepts valuation
// requests over a JSON API, persists run history and serves Prometheus
// metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"defi-portfolio-lab/internal/binance"
	"defi-portfolio-lab/internal/candles"
	"defi-portfolio-lab/internal/config"
	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/observability"
	"defi-portfolio-lab/internal/orchestrator"
	"defi-portfolio-lab/internal/portfolio"
	"defi-portfolio-lab/internal/stats"
	"defi-portfolio-lab/internal/storage"
	"defi-portfolio-lab/internal/storage/memory"
	pgstore "defi-portfolio-lab/internal/storage/postgres"
)

const dateLayout = "2006-01-02"

// Server wires the valuation pipeline behind an HTTP API.
type Server struct {
	orch     *orchestrator.Orchestrator
	runStore storage.RunStore
	logger   *log.Logger
	started  time.Time
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for run history")
	useMemory := flag.Bool("use-memory", false, "Use in-memory run storage instead of PostgreSQL")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if !*useMemory && cfg.Storage.PostgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runStore storage.RunStore
	if *useMemory {
		runStore = memory.NewRunStore()
		logger.Println("Using in-memory run storage")
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatalf("Connect to PostgreSQL: %v", err)
		}
		defer pool.Close()
		if err := pool.Migrate(ctx); err != nil {
			logger.Fatalf("Apply PostgreSQL migrations: %v", err)
		}
		runStore = pgstore.NewRunStore(pool)
	}

	client := binance.NewHTTPClient(
		binance.WithBaseURL(cfg.Binance.BaseURL),
		binance.WithTimeout(cfg.Binance.Timeout.Std()),
	)
	assembler := candles.NewAssembler(candles.AssemblerOptions{
		Source: client,
		Limit:  cfg.Binance.PageLimit,
		Pacer:  candles.NewFixedDelayPacer(cfg.Binance.PageDelay.Std()),
		Logger: logger,
	})
	engine := portfolio.NewEngine(assembler, logger)

	srv := &Server{
		orch: orchestrator.New(orchestrator.Options{
			Engine:   engine,
			RunStore: runStore,
			Logger:   logger,
		}),
		runStore: runStore,
		logger:   logger,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", srv.handleCreateRun)
	mux.HandleFunc("GET /api/v1/runs", srv.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", srv.handleGetRun)
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // valuation runs page through the exchange
	}

	go func() {
		logger.Printf("Listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
}

// runRequest is the JSON body of POST /api/v1/runs.
type runRequest struct {
	Benchmark   string  `json:"benchmark"`
	Interval    string  `json:"interval"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Capital     float64 `json:"capital"`
	Allocations []struct {
		Symbol string `json:"symbol"`
		Weight int    `json:"weight"`
	} `json:"allocations"`
}

// runResponse summarizes a completed run.
type runResponse struct {
	RunID          string           `json:"run_id"`
	Rows           int              `json:"rows"`
	DurationMs     int64            `json:"duration_ms"`
	PortfolioStats statsPayload     `json:"portfolio_stats"`
	BenchmarkStats statsPayload     `json:"benchmark_stats"`
	Allocations    []allocationView `json:"allocations"`
}

type allocationView struct {
	Symbol string `json:"symbol"`
	Weight int    `json:"weight"`
}

// statsPayload mirrors the stats report with JSON-safe Calmar handling.
type statsPayload struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Calmar           float64 `json:"calmar"`
	CalmarDefined    bool    `json:"calmar_defined"`
}

// runView is the JSON shape of a persisted run. Stats go through
// statsPayload because a stored undefined Calmar reads back as +Inf.
type runView struct {
	RunID          string           `json:"run_id"`
	CreatedAtMs    int64            `json:"created_at_ms"`
	Benchmark      string           `json:"benchmark"`
	Interval       string           `json:"interval"`
	StartDate      string           `json:"start_date"`
	EndDate        string           `json:"end_date"`
	Capital        float64          `json:"capital"`
	Allocations    []allocationView `json:"allocations"`
	PortfolioStats statsPayload     `json:"portfolio_stats"`
	BenchmarkStats statsPayload     `json:"benchmark_stats"`
}

func toRunView(run *domain.PortfolioRun) runView {
	return runView{
		RunID:          run.RunID,
		CreatedAtMs:    run.CreatedAtMs,
		Benchmark:      run.Benchmark,
		Interval:       run.Interval.String(),
		StartDate:      run.StartDate,
		EndDate:        run.EndDate,
		Capital:        run.Capital,
		Allocations:    toAllocationViews(run.Allocations),
		PortfolioStats: toStatsPayload(run.PortfolioStats),
		BenchmarkStats: toStatsPayload(run.BenchmarkStats),
	}
}

func toStatsPayload(s domain.StatsReport) statsPayload {
	// JSON has no representation for infinity or NaN; ratios over a zero
	// deviation come back as +/-Inf and must be flattened.
	return statsPayload{
		TotalReturn:      jsonSafe(s.TotalReturn),
		AnnualizedReturn: jsonSafe(s.AnnualizedReturn),
		Sharpe:           jsonSafe(s.Sharpe),
		Sortino:          jsonSafe(s.Sortino),
		MaxDrawdown:      jsonSafe(s.MaxDrawdown),
		Calmar:           jsonSafe(s.Calmar),
		CalmarDefined:    s.CalmarDefined,
	}
}

func jsonSafe(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req, err := buildRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.orch.Run(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if isRequestError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusCreated, runResponse{
		RunID:          result.RunID,
		Rows:           result.Valuation.Len(),
		DurationMs:     result.Duration.Milliseconds(),
		PortfolioStats: toStatsPayload(*result.PortfolioStats),
		BenchmarkStats: toStatsPayload(*result.BenchmarkStats),
		Allocations:    toAllocationViews(req.Portfolio.Allocations),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runStore.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]runView, len(runs))
	for i, run := range runs {
		views[i] = toRunView(run)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runStore.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunView(run))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func buildRequest(body runRequest) (orchestrator.Request, error) {
	iv, err := domain.ParseInterval(body.Interval)
	if err != nil {
		return orchestrator.Request{}, err
	}
	startDate, err := time.ParseInLocation(dateLayout, body.StartDate, time.UTC)
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("invalid start_date: %w", err)
	}
	endDate, err := time.ParseInLocation(dateLayout, body.EndDate, time.UTC)
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("invalid end_date: %w", err)
	}

	allocs := make([]domain.Allocation, len(body.Allocations))
	for i, a := range body.Allocations {
		allocs[i] = domain.Allocation{Symbol: a.Symbol, Weight: a.Weight}
	}

	return orchestrator.Request{
		Benchmark: body.Benchmark,
		Interval:  iv,
		StartDate: startDate,
		EndDate:   endDate,
		Portfolio: domain.Portfolio{
			Capital:     body.Capital,
			Allocations: allocs,
		},
	}, nil
}

// isRequestError reports whether the failure was caused by the request
// itself rather than the exchange or storage.
func isRequestError(err error) bool {
	return errors.Is(err, domain.ErrWeightSum) ||
		errors.Is(err, domain.ErrDuplicateSymbol) ||
		errors.Is(err, domain.ErrInvalidCapital) ||
		errors.Is(err, domain.ErrEmptyPortfolio) ||
		errors.Is(err, domain.ErrInvalidWeight) ||
		errors.Is(err, candles.ErrInvalidRange) ||
		errors.Is(err, stats.ErrSeriesTooShort)
}

func toAllocationViews(allocs []domain.Allocation) []allocationView {
	out := make([]allocationView, len(allocs))
	for i, a := range allocs {
		out[i] = allocationView{Symbol: a.Symbol, Weight: a.Weight}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
