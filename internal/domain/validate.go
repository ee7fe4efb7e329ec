package domain

import (
	"fmt"
	"math"
)

// totalValueTolerance is the allowed rounding gap between the stated portfolio
// total and the sum of recomputed holding market values.
const totalValueTolerance = 0.01

// Validate checks the client profile field constraints.
func (c *ClientProfile) Validate() error {
	if c.ClientID == "" {
		return NewValidationError("client_id", "must not be empty")
	}
	if c.Age < 18 || c.Age > 120 {
		return NewValidationError("age", fmt.Sprintf("must be between 18 and 120, got %d", c.Age))
	}
	switch c.RiskTolerance {
	case ToleranceConservative, ToleranceModerate, ToleranceAggressive:
	default:
		return NewValidationError("risk_tolerance", fmt.Sprintf("unknown tolerance %q", c.RiskTolerance))
	}
	if len(c.InvestmentGoals) == 0 {
		return NewValidationError("investment_goals", "at least one goal is required")
	}
	if c.TimeHorizonYears < 1 {
		return NewValidationError("time_horizon_years", fmt.Sprintf("must be >= 1, got %d", c.TimeHorizonYears))
	}
	if c.AnnualIncome < 0 {
		return NewValidationError("annual_income", "must not be negative")
	}
	if c.NetWorth < 0 {
		return NewValidationError("net_worth", "must not be negative")
	}
	if c.LiquidityNeeds < 0 {
		return NewValidationError("liquidity_needs", "must not be negative")
	}
	return nil
}

// Validate checks a holding's field constraints. Market value is recomputed
// from shares and price; the caller-supplied value is never trusted.
func (h *Holding) Validate() error {
	if h.Ticker == "" {
		return NewValidationError("ticker", "must not be empty")
	}
	if h.Shares <= 0 {
		return NewValidationError("shares", fmt.Sprintf("must be > 0 for %s, got %v", h.Ticker, h.Shares))
	}
	if h.Price <= 0 {
		return NewValidationError("price", fmt.Sprintf("must be > 0 for %s, got %v", h.Ticker, h.Price))
	}
	switch h.AssetClass {
	case AssetClassEquity, AssetClassFixedIncome, AssetClassCash, AssetClassAlternatives:
	default:
		return NewValidationError("asset_class", fmt.Sprintf("unknown asset class %q for %s", h.AssetClass, h.Ticker))
	}
	if h.CostBasis != nil && *h.CostBasis < 0 {
		return NewValidationError("cost_basis", fmt.Sprintf("must not be negative for %s", h.Ticker))
	}
	h.MarketValue = h.Shares * h.Price
	return nil
}

// Validate checks the portfolio field constraints and normalizes derived
// fields: each holding's market value is recomputed, and the stated total
// must match the holding sum within rounding tolerance.
func (p *Portfolio) Validate() error {
	if p.PortfolioID == "" {
		return NewValidationError("portfolio_id", "must not be empty")
	}
	if p.ClientID == "" {
		return NewValidationError("client_id", "must not be empty")
	}
	if len(p.Holdings) == 0 {
		return NewValidationError("holdings", "at least one holding is required")
	}
	if p.AsOf.IsZero() {
		return NewValidationError("as_of", "timestamp is required")
	}
	if p.BenchmarkSymbol == "" {
		p.BenchmarkSymbol = DefaultBenchmarkSymbol
	}

	sum := 0.0
	for i := range p.Holdings {
		if err := p.Holdings[i].Validate(); err != nil {
			return err
		}
		sum += p.Holdings[i].MarketValue
	}

	if p.TotalValue <= 0 {
		return NewValidationError("total_value", fmt.Sprintf("must be > 0, got %v", p.TotalValue))
	}
	if math.Abs(p.TotalValue-sum) > totalValueTolerance {
		return NewValidationError("total_value",
			fmt.Sprintf("stated total %.2f does not match holding sum %.2f", p.TotalValue, sum))
	}
	// Holding sum is authoritative after validation.
	p.TotalValue = sum
	return nil
}

// ValidateRequest validates a profile/portfolio pair as one pipeline input.
// The portfolio must belong to the profile's client.
func ValidateRequest(profile *ClientProfile, portfolio *Portfolio) error {
	if profile == nil {
		return NewValidationError("profile", "is required")
	}
	if portfolio == nil {
		return NewValidationError("portfolio", "is required")
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := portfolio.Validate(); err != nil {
		return err
	}
	if portfolio.ClientID != profile.ClientID {
		return NewValidationError("client_id",
			fmt.Sprintf("portfolio belongs to %s, profile is %s", portfolio.ClientID, profile.ClientID))
	}
	return nil
}
