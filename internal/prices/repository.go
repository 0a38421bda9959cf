package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockwatch/internal/contracts"
)

// Repository implements contracts.PriceStore on the stock_prices table
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `ticker, trade_date, open, high, low, close, volume`

// ListDistinctTickers returns every ticker with at least one record
func (r *Repository) ListDistinctTickers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT ticker FROM stock_prices ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	tickers := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}

// LatestRecord returns the newest record at or before asOf, or nil
func (r *Repository) LatestRecord(ctx context.Context, ticker string, asOf time.Time) (*contracts.PriceRecord, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM stock_prices
		WHERE ticker = $1 AND trade_date <= $2
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var p contracts.PriceRecord
	err := r.pool.QueryRow(ctx, query, ticker, contracts.DateOf(asOf)).Scan(
		&p.Ticker, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price for %s: %w", ticker, err)
	}

	return &p, nil
}

// RecordsInWindow returns records with from <= trade_date <= to, newest first
func (r *Repository) RecordsInWindow(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PriceRecord, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM stock_prices
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date DESC
	`

	rows, err := r.pool.Query(ctx, query, ticker, contracts.DateOf(from), contracts.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query price window for %s: %w", ticker, err)
	}
	return collect(rows)
}

// MostRecentN returns up to n records at or before asOf, newest first
func (r *Repository) MostRecentN(ctx context.Context, ticker string, asOf time.Time, n int) ([]contracts.PriceRecord, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM stock_prices
		WHERE ticker = $1 AND trade_date <= $2
		ORDER BY trade_date DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, ticker, contracts.DateOf(asOf), n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent prices for %s: %w", ticker, err)
	}
	return collect(rows)
}

// SaveBatch upserts records in one round trip.
// The ingestion job owns this table; the screener only writes here in tests and seeding.
func (r *Repository) SaveBatch(ctx context.Context, records []contracts.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO stock_prices (ticker, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, p := range records {
		batch.Queue(query, p.Ticker, contracts.DateOf(p.Date), p.Open, p.High, p.Low, p.Close, p.Volume)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save %d prices: %w", len(records), err)
	}
	return nil
}

func collect(rows pgx.Rows) ([]contracts.PriceRecord, error) {
	defer rows.Close()

	records := make([]contracts.PriceRecord, 0)
	for rows.Next() {
		var p contracts.PriceRecord
		if err := rows.Scan(&p.Ticker, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return records, nil
}
