package marketdata

import (
	"fmt"
	"time"

	"github.com/clearfolio/suitability/internal/database"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SeriesCache caches derived series in the history database with TTLs.
// Payloads are msgpack-encoded; expired entries are pruned by the scheduler.
type SeriesCache struct {
	db  *database.DB
	log zerolog.Logger
}

// cachedSeries is the msgpack cache payload for one ticker window.
type cachedSeries struct {
	Closes  []float64 `msgpack:"closes"`
	Returns []float64 `msgpack:"returns"`
}

// NewSeriesCache creates a series cache over the history database.
func NewSeriesCache(db *database.DB, log zerolog.Logger) *SeriesCache {
	return &SeriesCache{
		db:  db,
		log: log.With().Str("component", "series_cache").Logger(),
	}
}

// Get retrieves a cached series if present and not expired.
func (c *SeriesCache) Get(ticker string, lookbackDays int) ([]float64, []float64, bool) {
	key := cacheKey(ticker, lookbackDays)

	var payload []byte
	err := c.db.Conn().QueryRow(
		`SELECT payload FROM series_cache WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&payload)
	if err != nil {
		return nil, nil, false
	}

	var entry cachedSeries
	if err := msgpack.Unmarshal(payload, &entry); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached series, ignoring")
		return nil, nil, false
	}
	return entry.Closes, entry.Returns, true
}

// Set stores a series with the given TTL.
func (c *SeriesCache) Set(ticker string, lookbackDays int, closes, returns []float64, ttl time.Duration) error {
	payload, err := msgpack.Marshal(cachedSeries{Closes: closes, Returns: returns})
	if err != nil {
		return fmt.Errorf("failed to marshal series for %s: %w", ticker, err)
	}

	_, err = c.db.Conn().Exec(
		`INSERT INTO series_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		cacheKey(ticker, lookbackDays), payload, time.Now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache series for %s: %w", ticker, err)
	}
	return nil
}

// Prune deletes expired entries and returns the number removed.
func (c *SeriesCache) Prune() (int64, error) {
	res, err := c.db.Conn().Exec(`DELETE FROM series_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune series cache: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		c.log.Debug().Int64("removed", removed).Msg("Pruned expired series cache entries")
	}
	return removed, nil
}

func cacheKey(ticker string, lookbackDays int) string {
	return fmt.Sprintf("series|%s|%d", ticker, lookbackDays)
}
