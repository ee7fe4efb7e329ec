package marketdata_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfolio/suitability/internal/marketdata"
	suitabilitytesting "github.com/clearfolio/suitability/internal/testing"
)

func seedPrices(t *testing.T, provider *marketdata.HistoryProvider, ticker string, closes []float64) {
	t.Helper()
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, close := range closes {
		date := base.AddDate(0, 0, i).Format("2006-01-02")
		require.NoError(t, provider.InsertDailyPrice(ticker, date, close))
	}
}

// TestHistoryProviderOrdering verifies series come back oldest-first with the
// window anchored on the most recent observations.
func TestHistoryProviderOrdering(t *testing.T) {
	db, cleanup := suitabilitytesting.NewTestDB(t, "history")
	t.Cleanup(cleanup)

	provider := marketdata.NewHistoryProvider(db, nil, 0, zerolog.Nop())
	seedPrices(t, provider, "AAPL", []float64{100, 102, 101, 105, 110})

	closes, err := provider.DailyCloses(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 105, 110}, closes[len(closes)-3:])

	returns, err := provider.DailyReturns(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	require.Len(t, returns, 3)
	assert.InDelta(t, (110.0-105.0)/105.0, returns[len(returns)-1], 1e-12)
}

func TestHistoryProviderUnknownTicker(t *testing.T) {
	db, cleanup := suitabilitytesting.NewTestDB(t, "history")
	t.Cleanup(cleanup)

	provider := marketdata.NewHistoryProvider(db, nil, 0, zerolog.Nop())

	_, err := provider.DailyCloses(context.Background(), "MISSING", 30)
	assert.ErrorIs(t, err, marketdata.ErrDataUnavailable)
}

// TestInsertDailyPriceUpsert verifies re-ingesting a date replaces the close.
func TestInsertDailyPriceUpsert(t *testing.T) {
	db, cleanup := suitabilitytesting.NewTestDB(t, "history")
	t.Cleanup(cleanup)

	provider := marketdata.NewHistoryProvider(db, nil, 0, zerolog.Nop())
	require.NoError(t, provider.InsertDailyPrice("AAPL", "2026-01-02", 100))
	require.NoError(t, provider.InsertDailyPrice("AAPL", "2026-01-03", 105))
	require.NoError(t, provider.InsertDailyPrice("AAPL", "2026-01-03", 106))

	closes, err := provider.DailyCloses(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 106}, closes)
}

// TestSeriesCacheRoundTrip exercises Set, Get, expiry and Prune.
func TestSeriesCacheRoundTrip(t *testing.T) {
	db, cleanup := suitabilitytesting.NewTestDB(t, "history")
	t.Cleanup(cleanup)

	cache := marketdata.NewSeriesCache(db, zerolog.Nop())

	closes := []float64{100, 101, 102}
	returns := marketdata.ReturnsFromCloses(closes)
	require.NoError(t, cache.Set("AAPL", 252, closes, returns, time.Hour))

	gotCloses, gotReturns, ok := cache.Get("AAPL", 252)
	require.True(t, ok)
	assert.Equal(t, closes, gotCloses)
	assert.Equal(t, returns, gotReturns)

	// A different window is a different key.
	_, _, ok = cache.Get("AAPL", 30)
	assert.False(t, ok)

	// Expired entries are invisible to Get and removed by Prune.
	require.NoError(t, cache.Set("TLT", 252, closes, returns, -time.Minute))
	_, _, ok = cache.Get("TLT", 252)
	assert.False(t, ok)

	removed, err := cache.Prune()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

// TestHistoryProviderUsesCache verifies a cached series answers subsequent
// reads even after the underlying rows change.
func TestHistoryProviderUsesCache(t *testing.T) {
	db, cleanup := suitabilitytesting.NewTestDB(t, "history")
	t.Cleanup(cleanup)

	cache := marketdata.NewSeriesCache(db, zerolog.Nop())
	provider := marketdata.NewHistoryProvider(db, cache, time.Hour, zerolog.Nop())

	seedPrices(t, provider, "MSFT", []float64{100, 101, 102, 103})

	first, err := provider.DailyCloses(context.Background(), "MSFT", 252)
	require.NoError(t, err)

	// Mutate the source; the cached window must still be served.
	require.NoError(t, provider.InsertDailyPrice("MSFT", "2026-02-01", 999))

	second, err := provider.DailyCloses(context.Background(), "MSFT", 252)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotContains(t, second, 999.0)
}
