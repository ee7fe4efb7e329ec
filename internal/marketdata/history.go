package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/clearfolio/suitability/internal/database"
	"github.com/rs/zerolog"
)

// HistoryProvider serves series from the history database, with an optional
// msgpack cache layered on top.
type HistoryProvider struct {
	db       *database.DB
	cache    *SeriesCache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewHistoryProvider creates a provider over the history database.
// The cache is optional; when nil, every call reads daily_prices directly.
func NewHistoryProvider(db *database.DB, cache *SeriesCache, cacheTTL time.Duration, log zerolog.Logger) *HistoryProvider {
	return &HistoryProvider{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "history_provider").Logger(),
	}
}

// DailyCloses implements Provider.
func (p *HistoryProvider) DailyCloses(ctx context.Context, ticker string, lookbackDays int) ([]float64, error) {
	closes, _, err := p.series(ctx, ticker, lookbackDays)
	if err != nil {
		return nil, err
	}
	return closes, nil
}

// DailyReturns implements Provider.
func (p *HistoryProvider) DailyReturns(ctx context.Context, ticker string, lookbackDays int) ([]float64, error) {
	_, returns, err := p.series(ctx, ticker, lookbackDays)
	if err != nil {
		return nil, err
	}
	return returns, nil
}

func (p *HistoryProvider) series(ctx context.Context, ticker string, lookbackDays int) ([]float64, []float64, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	if p.cache != nil {
		if closes, returns, ok := p.cache.Get(ticker, lookbackDays); ok {
			return closes, returns, nil
		}
	}

	closes, err := p.fetchCloses(ctx, ticker, lookbackDays+1)
	if err != nil {
		return nil, nil, err
	}
	if len(closes) < 2 {
		return nil, nil, fmt.Errorf("ticker %s: %w", ticker, ErrDataUnavailable)
	}

	returns := ReturnsFromCloses(closes)

	if p.cache != nil {
		if err := p.cache.Set(ticker, lookbackDays, closes, returns, p.cacheTTL); err != nil {
			p.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache series")
		}
	}

	return closes, returns, nil
}

// fetchCloses reads up to limit most recent closes, returned oldest-first.
func (p *HistoryProvider) fetchCloses(ctx context.Context, ticker string, limit int) ([]float64, error) {
	rows, err := p.db.Conn().QueryContext(ctx,
		`SELECT close FROM daily_prices WHERE ticker = ? ORDER BY date DESC LIMIT ?`,
		ticker, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	var descending []float64
	for rows.Next() {
		var close float64
		if err := rows.Scan(&close); err != nil {
			return nil, fmt.Errorf("failed to scan price for %s: %w", ticker, err)
		}
		descending = append(descending, close)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices for %s: %w", ticker, err)
	}

	// Reverse to oldest-first.
	closes := make([]float64, len(descending))
	for i, c := range descending {
		closes[len(descending)-1-i] = c
	}
	return closes, nil
}

// InsertDailyPrice upserts one observation. Used by ingestion and test setup.
func (p *HistoryProvider) InsertDailyPrice(ticker, date string, close float64) error {
	_, err := p.db.Conn().Exec(
		`INSERT INTO daily_prices (ticker, date, close) VALUES (?, ?, ?)
		 ON CONFLICT(ticker, date) DO UPDATE SET close = excluded.close`,
		ticker, date, close,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price for %s: %w", ticker, err)
	}
	return nil
}
