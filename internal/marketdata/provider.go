// Package marketdata provides historical price and return series to the
// risk and performance analyzers. Missing data is a distinguishable outcome
// (ErrDataUnavailable), never an opaque failure.
package marketdata

import (
	"context"
	"errors"
)

// ErrDataUnavailable indicates no usable history exists for a ticker.
// Analyzers recover locally with reduced-confidence output.
var ErrDataUnavailable = errors.New("market data unavailable")

// Provider exposes historical series by ticker.
// Both methods return observations oldest-first over at most lookbackDays
// trading days, so risk and performance share one observation window.
type Provider interface {
	// DailyReturns returns the daily return series for a ticker.
	DailyReturns(ctx context.Context, ticker string, lookbackDays int) ([]float64, error)

	// DailyCloses returns the daily closing price series for a ticker.
	DailyCloses(ctx context.Context, ticker string, lookbackDays int) ([]float64, error)
}

// DefaultLookbackDays is one year of trading days, the shared observation
// window for volatility, VaR, beta, Sharpe and return calculations.
const DefaultLookbackDays = 252
