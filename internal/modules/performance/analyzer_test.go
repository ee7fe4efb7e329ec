package performance

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfolio/suitability/internal/marketdata"
	suitabilitytesting "github.com/clearfolio/suitability/internal/testing"
)

const testRiskFreeRatePct = 2.0

// TestAnalyzeExcessReturnIdentity verifies the derivation rule excess = total
// minus benchmark, exactly, alongside basic report sanity.
func TestAnalyzeExcessReturnIdentity(t *testing.T) {
	provider := suitabilitytesting.NewStaticProvider(300)
	analyzer := NewAnalyzer(provider, testRiskFreeRatePct, zerolog.Nop())

	portfolio := suitabilitytesting.DiversifiedPortfolio("CL-1001")
	require.NoError(t, portfolio.Validate())

	report, err := analyzer.Analyze(context.Background(), suitabilitytesting.ModerateProfile(), portfolio)
	require.NoError(t, err)

	assert.InDelta(t, report.TotalReturnPct-report.BenchmarkReturnPct, report.ExcessReturnPct, 1e-9)
	assert.NotZero(t, report.BenchmarkReturnPct)
	assert.False(t, report.Degraded)
	require.NotNil(t, report.Alpha)
	assert.InDelta(t, report.ExcessReturnPct, *report.Alpha, 1e-9)
}

// TestAnalyzeMissingBenchmark reports benchmark return as zero with a concern
// instead of failing the whole analysis.
func TestAnalyzeMissingBenchmark(t *testing.T) {
	provider := suitabilitytesting.NewStaticProvider(300)
	delete(provider.Closes, "SPX")
	analyzer := NewAnalyzer(provider, testRiskFreeRatePct, zerolog.Nop())

	portfolio := suitabilitytesting.DiversifiedPortfolio("CL-1001")
	require.NoError(t, portfolio.Validate())

	report, err := analyzer.Analyze(context.Background(), suitabilitytesting.ModerateProfile(), portfolio)
	require.NoError(t, err)

	assert.Zero(t, report.BenchmarkReturnPct)
	assert.InDelta(t, report.TotalReturnPct, report.ExcessReturnPct, 1e-9)
	assert.Nil(t, report.Alpha)
	assert.NotEmpty(t, report.Concerns)
}

// TestAnalyzePartialCoverage renormalizes over the covered subset and names
// the missing tickers in a concern.
func TestAnalyzePartialCoverage(t *testing.T) {
	provider := suitabilitytesting.NewStaticProvider(300)
	delete(provider.Closes, "JNJ")
	delete(provider.Closes, "GLD")
	analyzer := NewAnalyzer(provider, testRiskFreeRatePct, zerolog.Nop())

	portfolio := suitabilitytesting.DiversifiedPortfolio("CL-1001")
	require.NoError(t, portfolio.Validate())

	report, err := analyzer.Analyze(context.Background(), suitabilitytesting.ModerateProfile(), portfolio)
	require.NoError(t, err)

	var coverage string
	for _, c := range report.Concerns {
		coverage = c
	}
	assert.Contains(t, coverage, "JNJ")
	assert.Contains(t, coverage, "GLD")

	for _, hr := range append(report.TopPerformers, report.BottomPerformers...) {
		assert.NotEqual(t, "JNJ", hr.Ticker)
		assert.NotEqual(t, "GLD", hr.Ticker)
	}
}

// TestAnalyzeNoCoverage returns ErrDataUnavailable when no holding has
// usable history.
func TestAnalyzeNoCoverage(t *testing.T) {
	provider := marketdata.NewStaticProvider(map[string][]float64{})
	analyzer := NewAnalyzer(provider, testRiskFreeRatePct, zerolog.Nop())

	portfolio := suitabilitytesting.DiversifiedPortfolio("CL-1001")
	require.NoError(t, portfolio.Validate())

	_, err := analyzer.Analyze(context.Background(), suitabilitytesting.ModerateProfile(), portfolio)
	require.Error(t, err)
	assert.ErrorIs(t, err, marketdata.ErrDataUnavailable)
}

// TestPerformerRanking checks the top list is descending, the bottom list is
// ascending from the worst, and the strongest synthetic drift wins.
func TestPerformerRanking(t *testing.T) {
	provider := suitabilitytesting.NewStaticProvider(300)
	analyzer := NewAnalyzer(provider, testRiskFreeRatePct, zerolog.Nop())

	portfolio := suitabilitytesting.DiversifiedPortfolio("CL-1001")
	require.NoError(t, portfolio.Validate())

	report, err := analyzer.Analyze(context.Background(), suitabilitytesting.ModerateProfile(), portfolio)
	require.NoError(t, err)

	require.Len(t, report.TopPerformers, 3)
	require.Len(t, report.BottomPerformers, 3)

	// AAPL carries the highest drift in the fixture series.
	assert.Equal(t, "AAPL", report.TopPerformers[0].Ticker)
	assert.GreaterOrEqual(t, report.TopPerformers[0].ReturnPct, report.TopPerformers[1].ReturnPct)
	assert.GreaterOrEqual(t, report.TopPerformers[1].ReturnPct, report.TopPerformers[2].ReturnPct)
	assert.LessOrEqual(t, report.BottomPerformers[0].ReturnPct, report.BottomPerformers[1].ReturnPct)
}

// TestAttributionCoversSectorsAndClasses verifies both attribution axes are
// populated for every covered holding.
func TestAttributionCoversSectorsAndClasses(t *testing.T) {
	provider := suitabilitytesting.NewStaticProvider(300)
	analyzer := NewAnalyzer(provider, testRiskFreeRatePct, zerolog.Nop())

	portfolio := suitabilitytesting.DiversifiedPortfolio("CL-1001")
	require.NoError(t, portfolio.Validate())

	report, err := analyzer.Analyze(context.Background(), suitabilitytesting.ModerateProfile(), portfolio)
	require.NoError(t, err)

	assert.Contains(t, report.Attribution, "sector:Technology")
	assert.Contains(t, report.Attribution, "sector:Bonds")
	assert.Contains(t, report.Attribution, "class:EQUITY")
	assert.Contains(t, report.Attribution, "class:CASH")
}

func TestDegradedReport(t *testing.T) {
	report := DegradedReport("timed out")

	assert.True(t, report.Degraded)
	assert.Zero(t, report.TotalReturnPct)
	assert.Zero(t, report.SharpeRatio)
	require.NotEmpty(t, report.Concerns)
	assert.Contains(t, report.Concerns[0], "timed out")
}
