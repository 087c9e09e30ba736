// Package main provides the candle fetch CLI: assembles historical kline
// ranges from Binance and writes them to the CSV cache and optionally
// ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"defi-portfolio-lab/internal/binance"
	"defi-portfolio-lab/internal/candles"
	"defi-portfolio-lab/internal/config"
	"defi-portfolio-lab/internal/domain"
	chstore "defi-portfolio-lab/internal/storage/clickhouse"
	"defi-portfolio-lab/internal/storage/csvcache"
)

const dateLayout = "2006-01-02"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	symbols := flag.String("symbols", "", "Comma-separated trading pair symbols (e.g. BTCUSDT,ETHUSDT)")
	interval := flag.String("interval", "", "Candle interval (3m, 5m, 15m, 1h, 4h, 1d)")
	start := flag.String("start", "", "Start date (YYYY-MM-DD, inclusive)")
	end := flag.String("end", "", "End date (YYYY-MM-DD, inclusive)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	cacheDir := flag.String("cache-dir", "", "CSV cache directory (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[fetch] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *cacheDir != "" {
		cfg.Storage.CacheDir = *cacheDir
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *interval == "" {
		*interval = cfg.Portfolio.Interval
	}

	if *symbols == "" {
		logger.Fatal("--symbols is required")
	}
	iv, err := domain.ParseInterval(*interval)
	if err != nil {
		logger.Fatalf("Invalid interval: %v", err)
	}
	startDate, endDate, err := parseRange(*start, *end)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling fetch", sig)
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

	cache, err := csvcache.New(cfg.Storage.CacheDir)
	if err != nil {
		logger.Fatalf("Open CSV cache: %v", err)
	}

	var candleStore *chstore.CandleStore
	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			logger.Fatalf("Connect to ClickHouse: %v", err)
		}
		defer conn.Close()
		if err := conn.Migrate(ctx); err != nil {
			logger.Fatalf("Apply ClickHouse migrations: %v", err)
		}
		candleStore = chstore.NewCandleStore(conn)
	}

	failed := 0
	for _, symbol := range splitSymbols(*symbols) {
		if err := fetchOne(ctx, assembler, cache, candleStore, symbol, iv, startDate, endDate, logger); err != nil {
			logger.Printf("Error: %s: %v", symbol, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func fetchOne(ctx context.Context, assembler *candles.Assembler, cache *csvcache.Cache, store *chstore.CandleStore, symbol string, iv domain.Interval, startDate, endDate time.Time, logger *log.Logger) error {
	started := time.Now()
	series, err := assembler.FetchRange(ctx, symbol, iv, startDate, endDate)
	if err != nil {
		return err
	}
	if err := cache.SaveSeries(ctx, series); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if store != nil {
		if err := store.InsertBulk(ctx, symbol, iv, series.Candles); err != nil {
			return fmt.Errorf("write clickhouse: %w", err)
		}
	}
	logger.Printf("%s: %d candles in %s -> %s", symbol, series.Len(), time.Since(started).Round(time.Millisecond), csvcache.FileName(series))
	return nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--start and --end are required")
	}
	startDate, err := time.ParseInLocation(dateLayout, start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	endDate, err := time.ParseInLocation(dateLayout, end, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}
	return startDate, endDate, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
