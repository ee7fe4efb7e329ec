package marketdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnsFromCloses(t *testing.T) {
	returns := ReturnsFromCloses([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Empty(t, ReturnsFromCloses([]float64{100}))

	// A non-positive previous close yields a zero return, not a division blowup.
	guarded := ReturnsFromCloses([]float64{0, 50, 55})
	require.Len(t, guarded, 2)
	assert.Zero(t, guarded[0])
	assert.InDelta(t, 0.10, guarded[1], 1e-9)
}

// TestStaticProviderWindow verifies the lookback window trims from the most
// recent end and the returns series aligns with it.
func TestStaticProviderWindow(t *testing.T) {
	provider := NewStaticProvider(map[string][]float64{
		"AAPL": {100, 101, 102, 103, 104},
	})
	ctx := context.Background()

	closes, err := provider.DailyCloses(ctx, "AAPL", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 103, 104}, closes)

	returns, err := provider.DailyReturns(ctx, "AAPL", 3)
	require.NoError(t, err)
	require.Len(t, returns, 3)
	assert.InDelta(t, (102.0-101.0)/101.0, returns[0], 1e-12)

	full, err := provider.DailyCloses(ctx, "AAPL", 50)
	require.NoError(t, err)
	assert.Len(t, full, 5)
}

func TestStaticProviderUnknownTicker(t *testing.T) {
	provider := NewStaticProvider(map[string][]float64{"ONLY": {1, 2}})

	_, err := provider.DailyCloses(context.Background(), "MISSING", 10)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = provider.DailyReturns(context.Background(), "MISSING", 10)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}
