// Package main provides the portfolio valuation CLI: fetches candles for
// every position and the benchmark, values the portfolio over the range,
// computes performance statistics and renders the report files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"defi-portfolio-lab/internal/binance"
	"defi-portfolio-lab/internal/candles"
	"defi-portfolio-lab/internal/config"
	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/orchestrator"
	"defi-portfolio-lab/internal/portfolio"
	"defi-portfolio-lab/internal/reporting"
	"defi-portfolio-lab/internal/storage"
	"defi-portfolio-lab/internal/storage/memory"
	pgstore "defi-portfolio-lab/internal/storage/postgres"
)

const dateLayout = "2006-01-02"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	allocations := flag.String("allocations", "", "Comma-separated symbol:weight pairs (e.g. UNIUSDT:60,LDOUSDT:40)")
	capital := flag.Float64("capital", 0, "Starting capital (overrides config)")
	benchmark := flag.String("benchmark", "", "Benchmark symbol (overrides config)")
	interval := flag.String("interval", "", "Candle interval (overrides config)")
	start := flag.String("start", "", "Start date (YYYY-MM-DD, inclusive)")
	end := flag.String("end", "", "End date (YYYY-MM-DD, inclusive)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for run history (optional)")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides config)")
	noPersist := flag.Bool("no-persist", false, "Skip writing the run to the run store")
	flag.Parse()

	logger := log.New(os.Stdout, "[portfolio] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *capital == 0 {
		*capital = cfg.Portfolio.Capital
	}
	if *benchmark == "" {
		*benchmark = cfg.Portfolio.Benchmark
	}
	if *interval == "" {
		*interval = cfg.Portfolio.Interval
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}

	iv, err := domain.ParseInterval(*interval)
	if err != nil {
		logger.Fatalf("Invalid interval: %v", err)
	}
	startDate, err := time.ParseInLocation(dateLayout, *start, time.UTC)
	if err != nil {
		logger.Fatalf("Invalid --start: %v", err)
	}
	endDate, err := time.ParseInLocation(dateLayout, *end, time.UTC)
	if err != nil {
		logger.Fatalf("Invalid --end: %v", err)
	}
	allocs, err := parseAllocations(*allocations)
	if err != nil {
		logger.Fatalf("Invalid --allocations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run", sig)
		cancel()
	}()

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

	var runStore storage.RunStore
	if !*noPersist {
		if cfg.Storage.PostgresDSN != "" {
			pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
			if err != nil {
				logger.Fatalf("Connect to PostgreSQL: %v", err)
			}
			defer pool.Close()
			if err := pool.Migrate(ctx); err != nil {
				logger.Fatalf("Apply PostgreSQL migrations: %v", err)
			}
			runStore = pgstore.NewRunStore(pool)
		} else {
			runStore = memory.NewRunStore()
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		Engine:   engine,
		RunStore: runStore,
		Logger:   logger,
	})

	result, err := orch.Run(ctx, orchestrator.Request{
		Benchmark: *benchmark,
		Interval:  iv,
		StartDate: startDate,
		EndDate:   endDate,
		Portfolio: domain.Portfolio{
			Capital:     *capital,
			Allocations: allocs,
		},
	})
	if err != nil {
		logger.Fatalf("Run failed: %v", err)
	}

	report := reporting.NewBuilder().Build(orchestrator.Request{
		Benchmark: *benchmark,
		Interval:  iv,
		StartDate: startDate,
		EndDate:   endDate,
		Portfolio: domain.Portfolio{Capital: *capital, Allocations: allocs},
	}, result)

	if err := reporting.WriteFiles(cfg.Output.Dir, report); err != nil {
		logger.Fatalf("Write report: %v", err)
	}

	fmt.Print(reporting.RenderMarkdown(report))
	logger.Printf("Report files written to %s", cfg.Output.Dir)
}

// parseAllocations parses "SYM:weight,SYM:weight" with integer weights.
func parseAllocations(s string) ([]domain.Allocation, error) {
	if s == "" {
		return nil, fmt.Errorf("--allocations is required")
	}
	var out []domain.Allocation
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, weight, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("malformed allocation %q, want SYMBOL:WEIGHT", part)
		}
		w, err := strconv.Atoi(strings.TrimSpace(weight))
		if err != nil {
			return nil, fmt.Errorf("weight for %s must be an integer: %w", sym, err)
		}
		out = append(out, domain.Allocation{
			Symbol: strings.ToUpper(strings.TrimSpace(sym)),
			Weight: w,
		})
	}
	return out, nil
}
