package testing

import (
	"math"
	"time"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/marketdata"
)

// ModerateProfile returns a valid moderate-tolerance client profile.
func ModerateProfile() *domain.ClientProfile {
	return &domain.ClientProfile{
		ClientID:         "CL-1001",
		Name:             "Jordan Reyes",
		Age:              42,
		RiskTolerance:    domain.ToleranceModerate,
		InvestmentGoals:  []string{"retirement", "college fund"},
		TimeHorizonYears: 18,
		AnnualIncome:     145000,
		NetWorth:         820000,
		LiquidityNeeds:   20000,
	}
}

// ConservativeProfile returns a valid conservative short-horizon profile.
func ConservativeProfile() *domain.ClientProfile {
	return &domain.ClientProfile{
		ClientID:         "CL-2002",
		Name:             "Priya Natarajan",
		Age:              63,
		RiskTolerance:    domain.ToleranceConservative,
		InvestmentGoals:  []string{"capital preservation"},
		TimeHorizonYears: 3,
		AnnualIncome:     90000,
		NetWorth:         1200000,
		LiquidityNeeds:   50000,
	}
}

// DiversifiedPortfolio returns a nine-holding balanced portfolio for the
// given client. Total value matches the holding sum exactly.
func DiversifiedPortfolio(clientID string) *domain.Portfolio {
	holdings := []domain.Holding{
		{Ticker: "AAPL", Shares: 100, Price: 180, AssetClass: domain.AssetClassEquity, Sector: "Technology"},
		{Ticker: "MSFT", Shares: 50, Price: 400, AssetClass: domain.AssetClassEquity, Sector: "Technology"},
		{Ticker: "JNJ", Shares: 120, Price: 150, AssetClass: domain.AssetClassEquity, Sector: "Healthcare"},
		{Ticker: "JPM", Shares: 90, Price: 200, AssetClass: domain.AssetClassEquity, Sector: "Financials"},
		{Ticker: "XOM", Shares: 150, Price: 110, AssetClass: domain.AssetClassEquity, Sector: "Energy"},
		{Ticker: "AGG", Shares: 300, Price: 98, AssetClass: domain.AssetClassFixedIncome, Sector: "Bonds"},
		{Ticker: "TLT", Shares: 200, Price: 92, AssetClass: domain.AssetClassFixedIncome, Sector: "Bonds"},
		{Ticker: "GLD", Shares: 60, Price: 190, AssetClass: domain.AssetClassAlternatives, Sector: "Commodities"},
		{Ticker: "CASH", Shares: 25000, Price: 1, AssetClass: domain.AssetClassCash},
	}
	return buildPortfolio("PF-DIV-1", clientID, holdings)
}

// ConcentratedPortfolio returns a two-holding portfolio dominated by one
// position, tripping the concentration limit.
func ConcentratedPortfolio(clientID string) *domain.Portfolio {
	holdings := []domain.Holding{
		{Ticker: "TSLA", Shares: 900, Price: 250, AssetClass: domain.AssetClassEquity, Sector: "Consumer Discretionary"},
		{Ticker: "CASH", Shares: 25000, Price: 1, AssetClass: domain.AssetClassCash},
	}
	return buildPortfolio("PF-CONC-1", clientID, holdings)
}

func buildPortfolio(portfolioID, clientID string, holdings []domain.Holding) *domain.Portfolio {
	total := 0.0
	for i := range holdings {
		holdings[i].MarketValue = holdings[i].Shares * holdings[i].Price
		total += holdings[i].MarketValue
	}
	return &domain.Portfolio{
		PortfolioID:     portfolioID,
		ClientID:        clientID,
		Holdings:        holdings,
		TotalValue:      total,
		AsOf:            time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		BenchmarkSymbol: "SPX",
	}
}

// SyntheticCloses generates a deterministic close series with the given
// drift and oscillation, suitable for provider fixtures.
func SyntheticCloses(days int, start, dailyDriftPct, wavePct float64) []float64 {
	closes := make([]float64, days)
	price := start
	for i := 0; i < days; i++ {
		wave := math.Sin(float64(i)/9.0) * wavePct / 100
		price *= 1 + dailyDriftPct/100 + wave
		closes[i] = price
	}
	return closes
}

// NewStaticProvider builds a StaticProvider covering every ticker of the
// diversified fixture plus the SPX benchmark, with distinct drifts so returns
// and rankings are non-trivial.
func NewStaticProvider(days int) *marketdata.StaticProvider {
	return marketdata.NewStaticProvider(map[string][]float64{
		"AAPL": SyntheticCloses(days, 150, 0.08, 0.9),
		"MSFT": SyntheticCloses(days, 360, 0.06, 0.8),
		"JNJ":  SyntheticCloses(days, 145, 0.02, 0.5),
		"JPM":  SyntheticCloses(days, 180, 0.04, 0.7),
		"XOM":  SyntheticCloses(days, 105, -0.01, 1.1),
		"AGG":  SyntheticCloses(days, 97, 0.005, 0.1),
		"TLT":  SyntheticCloses(days, 95, -0.005, 0.2),
		"GLD":  SyntheticCloses(days, 175, 0.03, 0.6),
		"CASH": SyntheticCloses(days, 1, 0.0, 0.0),
		"TSLA": SyntheticCloses(days, 220, 0.05, 2.5),
		"SPX":  SyntheticCloses(days, 5000, 0.04, 0.6),
	})
}
