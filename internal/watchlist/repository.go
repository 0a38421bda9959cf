package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockwatch/internal/contracts"
)

// Repository implements contracts.WatchlistManager on the watchlists table
// ⭐ SSOT: 워치리스트 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new watchlist repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, ticker, date_added, reason, price_at_admission, week52_high, percent_below_high, metrics, last_updated`

// FindLatestByTicker returns the entry for ticker, or nil when it was never admitted
func (r *Repository) FindLatestByTicker(ctx context.Context, ticker string) (*contracts.WatchlistEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM watchlists
		WHERE ticker = $1
		ORDER BY date_added DESC
		LIMIT 1
	`

	entry, err := scanEntry(r.pool.QueryRow(ctx, query, ticker))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find watchlist entry for %s: %w", ticker, err)
	}

	return entry, nil
}

// FindOrCreate inserts defaults unless ticker already has an entry.
// The unique constraint on ticker makes concurrent callers agree on a single row.
func (r *Repository) FindOrCreate(ctx context.Context, ticker string, defaults contracts.WatchlistEntry) (*contracts.WatchlistEntry, bool, error) {
	metricsJSON, err := json.Marshal(defaults.Metrics)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	lastUpdated := defaults.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}

	insert := `
		INSERT INTO watchlists (
			ticker, date_added, reason, price_at_admission,
			week52_high, percent_below_high, metrics, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker) DO NOTHING
		RETURNING ` + entryColumns

	entry, err := scanEntry(r.pool.QueryRow(ctx, insert,
		ticker, contracts.DateOf(defaults.DateAdded), defaults.Reason, defaults.CurrentPriceAtAdmission,
		defaults.Week52High, defaults.PercentBelowHigh, metricsJSON, lastUpdated,
	))
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert watchlist entry for %s: %w", ticker, err)
	}

	// 이미 존재함: 기존 행을 그대로 반환
	existing, err := r.FindLatestByTicker(ctx, ticker)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// removed between the insert and the read
		return nil, false, fmt.Errorf("watchlist entry for %s vanished during find-or-create", ticker)
	}

	return existing, false, nil
}

// List returns every entry, newest admission first
func (r *Repository) List(ctx context.Context) ([]contracts.WatchlistEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM watchlists
		ORDER BY date_added DESC, ticker ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	entries := make([]contracts.WatchlistEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}

	return entries, nil
}

// Add lists ticker by hand. Signal columns stay zero.
func (r *Repository) Add(ctx context.Context, ticker, reason string, at time.Time) (*contracts.WatchlistEntry, bool, error) {
	return r.FindOrCreate(ctx, ticker, contracts.WatchlistEntry{
		Ticker:      ticker,
		DateAdded:   at,
		Reason:      reason,
		LastUpdated: at,
	})
}

// Remove deletes the entry for ticker and reports whether one existed
func (r *Repository) Remove(ctx context.Context, ticker string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM watchlists WHERE ticker = $1`, ticker)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", ticker, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanEntry(row pgx.Row) (*contracts.WatchlistEntry, error) {
	var e contracts.WatchlistEntry
	var metricsJSON []byte

	if err := row.Scan(
		&e.ID, &e.Ticker, &e.DateAdded, &e.Reason, &e.CurrentPriceAtAdmission,
		&e.Week52High, &e.PercentBelowHigh, &metricsJSON, &e.LastUpdated,
	); err != nil {
		return nil, err
	}

	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &e.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
	}

	return &e, nil
}
