package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"defi-portfolio-lab/internal/domain"
	"defi-portfolio-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds candles for one symbol+interval. MergeTree does not
// enforce uniqueness at insert time, so duplicates are checked explicitly
// before the batch is sent; the entire batch fails on any duplicate.
func (s *CandleStore) InsertBulk(ctx context.Context, symbol string, interval domain.Interval, candles []domain.Candle) error {
	if symbol == "" || interval.DurationMs() == 0 {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(candles))
	for _, c := range candles {
		if _, exists := seen[c.OpenTimeMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[c.OpenTimeMs] = struct{}{}
	}

	for _, c := range candles {
		exists, err := s.exists(ctx, symbol, interval, c.OpenTimeMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			symbol, interval, open_time_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			symbol, string(interval), uint64(c.OpenTimeMs),
			c.Open, c.High, c.Low, c.Close, c.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetSeries retrieves all candles for symbol+interval, ordered by open time ASC.
func (s *CandleStore) GetSeries(ctx context.Context, symbol string, interval domain.Interval) (*domain.CandleSeries, error) {
	query := `
		SELECT open_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND interval = ?
		ORDER BY open_time_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, string(interval))
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows, symbol, interval)
}

// GetSeriesRange retrieves candles within [startMs, endMs] inclusive.
func (s *CandleStore) GetSeriesRange(ctx context.Context, symbol string, interval domain.Interval, startMs, endMs int64) (*domain.CandleSeries, error) {
	query := `
		SELECT open_time_ms, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND interval = ? AND open_time_ms >= ? AND open_time_ms <= ?
		ORDER BY open_time_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, string(interval), uint64(startMs), uint64(endMs))
	if err != nil {
		return nil, fmt.Errorf("query series range: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows, symbol, interval)
}

func (s *CandleStore) exists(ctx context.Context, symbol string, interval domain.Interval, openTimeMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM candles
		WHERE symbol = ? AND interval = ? AND open_time_ms = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, string(interval), uint64(openTimeMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanSeries(rows driver.Rows, symbol string, interval domain.Interval) (*domain.CandleSeries, error) {
	var candles []domain.Candle
	for rows.Next() {
		var openTime uint64
		var c domain.Candle
		if err := rows.Scan(&openTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		c.OpenTimeMs = int64(openTime)
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	if len(candles) == 0 {
		return nil, storage.ErrNotFound
	}

	return &domain.CandleSeries{Symbol: symbol, Interval: interval, Candles: candles}, nil
}
