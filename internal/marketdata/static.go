package marketdata

import "context"

// StaticProvider serves series from an in-memory map. Used in tests and as a
// deterministic fixture source; tickers without an entry report
// ErrDataUnavailable like a real feed outage would.
type StaticProvider struct {
	Closes map[string][]float64
}

// NewStaticProvider creates a provider over fixed closing price series.
func NewStaticProvider(closes map[string][]float64) *StaticProvider {
	return &StaticProvider{Closes: closes}
}

// DailyCloses implements Provider.
func (p *StaticProvider) DailyCloses(_ context.Context, ticker string, lookbackDays int) ([]float64, error) {
	closes, ok := p.Closes[ticker]
	if !ok || len(closes) < 2 {
		return nil, ErrDataUnavailable
	}
	return tail(closes, lookbackDays), nil
}

// DailyReturns implements Provider.
func (p *StaticProvider) DailyReturns(ctx context.Context, ticker string, lookbackDays int) ([]float64, error) {
	closes, err := p.DailyCloses(ctx, ticker, lookbackDays+1)
	if err != nil {
		return nil, err
	}
	return ReturnsFromCloses(closes), nil
}

// ReturnsFromCloses computes simple daily returns from a close series.
// Non-positive previous closes produce a zero return for that observation.
func ReturnsFromCloses(closes []float64) []float64 {
	if len(closes) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			returns[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}
	return returns
}

func tail(series []float64, n int) []float64 {
	if n <= 0 || n >= len(series) {
		return series
	}
	return series[len(series)-n:]
}
