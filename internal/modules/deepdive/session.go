// Package deepdive runs the stateful equity deep-dive handoff. A session is
// created from a completed analysis run with the prior context passed in
// explicitly, supports follow-up questions, and expires after an idle TTL.
// Sessions never mutate the originating run's persisted results.
package deepdive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/marketdata"
)

const (
	// smaPeriod and rsiPeriod drive the talib sector metrics.
	smaPeriod = 20
	rsiPeriod = 14

	momentumStrongPct = 5.0
	rsiOverbought     = 70.0
	rsiOversold       = 30.0
)

// growthSectors drive the growth-vs-value split; anything else counts as
// value, Unclassified is split evenly.
var growthSectors = map[string]bool{
	"Technology":             true,
	"Information Technology": true,
	"Communication Services": true,
	"Consumer Discretionary": true,
	"Healthcare":             true,
}

// ErrSessionNotFound is returned by Ask for unknown or expired session IDs.
var ErrSessionNotFound = fmt.Errorf("deep-dive session not found or expired")

type session struct {
	id         string
	runID      string
	portfolio  domain.Portfolio
	profile    domain.ClientProfile
	priorScore *float64
	report     *domain.EquityDeepDiveReport
	lastActive time.Time
}

// Manager owns all active deep-dive sessions. One active session per run ID.
type Manager struct {
	mu       sync.Mutex
	byID     map[string]*session
	byRunID  map[string]string
	provider marketdata.Provider
	ttl      time.Duration
	log      zerolog.Logger
}

// NewManager creates a session manager. ttl is the idle expiry window.
func NewManager(provider marketdata.Provider, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		byID:     make(map[string]*session),
		byRunID:  make(map[string]string),
		provider: provider,
		ttl:      ttl,
		log:      log.With().Str("component", "deepdive_manager").Logger(),
	}
}

// Start opens a session for the given handoff request and returns the
// initial report. A second Start for the same run while a session is active
// is a validation error.
func (m *Manager) Start(ctx context.Context, req *domain.EquityDeepDiveRequest) (*domain.EquityDeepDiveReport, error) {
	if req.RunID == "" {
		return nil, &domain.ValidationError{Field: "run_id", Reason: "deep-dive requests must name the originating run"}
	}
	if !hasEquity(&req.Portfolio) {
		return nil, &domain.ValidationError{Field: "portfolio", Reason: "deep-dive requires at least one equity holding"}
	}

	m.mu.Lock()
	m.pruneLocked(time.Now())
	if existing, ok := m.byRunID[req.RunID]; ok {
		m.mu.Unlock()
		return nil, &domain.ValidationError{
			Field:  "run_id",
			Reason: fmt.Sprintf("session %s is already active for this run", existing),
		}
	}
	s := &session{
		id:         uuid.New().String(),
		runID:      req.RunID,
		portfolio:  req.Portfolio,
		profile:    req.Profile,
		priorScore: req.PriorScore,
		lastActive: time.Now(),
	}
	m.byID[s.id] = s
	m.byRunID[s.runID] = s.id
	m.mu.Unlock()

	report := m.buildReport(ctx, s, req)
	for _, q := range req.Questions {
		report.Answers[q] = m.answer(s, report, q)
	}

	m.mu.Lock()
	s.report = report
	m.mu.Unlock()

	m.log.Info().
		Str("session_id", s.id).
		Str("run_id", s.runID).
		Int("sectors", len(report.Sectors)).
		Msg("Deep-dive session started")

	return report, nil
}

// Ask answers a follow-up question on an existing session and refreshes its
// idle timer.
func (m *Manager) Ask(_ context.Context, sessionID, question string) (*domain.EquityDeepDiveReport, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &domain.ValidationError{Field: "question", Reason: "must not be empty"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.pruneLocked(now)

	s, ok := m.byID[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastActive = now

	s.report.Answers[question] = m.answer(s, s.report, question)
	s.report.GeneratedAt = now
	return s.report, nil
}

// PruneExpired drops idle sessions; called by the scheduler alongside the
// market data cache prune.
func (m *Manager) PruneExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked(time.Now())
}

func (m *Manager) pruneLocked(now time.Time) int {
	pruned := 0
	for id, s := range m.byID {
		if now.Sub(s.lastActive) > m.ttl {
			delete(m.byID, id)
			delete(m.byRunID, s.runID)
			pruned++
		}
	}
	if pruned > 0 {
		m.log.Debug().Int("pruned", pruned).Msg("Expired deep-dive sessions removed")
	}
	return pruned
}

func (m *Manager) buildReport(ctx context.Context, s *session, req *domain.EquityDeepDiveRequest) *domain.EquityDeepDiveReport {
	report := &domain.EquityDeepDiveReport{
		SessionID:        s.id,
		RunID:            s.runID,
		ValuationMetrics: make(map[string]float64),
		Answers:          make(map[string]string),
		GeneratedAt:      time.Now(),
	}

	equityValue := 0.0
	for _, h := range s.portfolio.Holdings {
		if h.AssetClass == domain.AssetClassEquity {
			equityValue += h.MarketValue
		}
	}
	report.ValuationMetrics["equity_weight_pct"] = equityValue / s.portfolio.TotalValue * 100

	sectors := m.sectorMetrics(ctx, s, equityValue)
	report.Sectors = sectors

	growth, value := 0.0, 0.0
	portfolioMomentum, portfolioRSI := 0.0, 0.0
	for _, sec := range sectors {
		w := sec.WeightPct / 100
		portfolioMomentum += w * sec.Momentum
		portfolioRSI += w * sec.RSI
		switch {
		case growthSectors[sec.Sector]:
			growth += sec.WeightPct
		case sec.Sector == "Unclassified":
			growth += sec.WeightPct / 2
			value += sec.WeightPct / 2
		default:
			value += sec.WeightPct
		}
	}
	report.GrowthWeightPct = growth
	report.ValueWeightPct = value
	report.ValuationMetrics["portfolio_momentum_pct"] = portfolioMomentum
	report.ValuationMetrics["portfolio_rsi"] = portfolioRSI

	if gain, ok := averageGain(&s.portfolio); ok {
		report.ValuationMetrics["avg_unrealized_gain_pct"] = gain
	}

	report.Recommendations = sectorRecommendations(sectors, req.FocusAreas)
	report.Narrative = narrative(s, report)
	return report
}

// sectorMetrics aggregates per-sector momentum and RSI, value-weighted over
// the equity sleeve. Holdings without usable history are noted in the sector
// narrative and skipped from the indicator averages.
func (m *Manager) sectorMetrics(ctx context.Context, s *session, equityValue float64) []domain.SectorAnalysis {
	type accum struct {
		value         float64
		indicatorW    float64
		momentum      float64
		rsi           float64
		missingHist   []string
		holdingsCount int
	}
	bySector := make(map[string]*accum)

	for _, h := range s.portfolio.Holdings {
		if h.AssetClass != domain.AssetClassEquity {
			continue
		}
		sector := h.Sector
		if sector == "" {
			sector = "Unclassified"
		}
		a := bySector[sector]
		if a == nil {
			a = &accum{}
			bySector[sector] = a
		}
		a.value += h.MarketValue
		a.holdingsCount++

		closes, err := m.provider.DailyCloses(ctx, h.Ticker, marketdata.DefaultLookbackDays)
		if err != nil || len(closes) <= smaPeriod {
			a.missingHist = append(a.missingHist, h.Ticker)
			continue
		}

		sma := talib.Sma(closes, smaPeriod)
		rsi := talib.Rsi(closes, rsiPeriod)
		last := len(closes) - 1

		if sma[last] > 0 {
			a.momentum += h.MarketValue * ((closes[last]/sma[last] - 1) * 100)
			a.rsi += h.MarketValue * rsi[last]
			a.indicatorW += h.MarketValue
		}
	}

	sectors := make([]domain.SectorAnalysis, 0, len(bySector))
	for name, a := range bySector {
		sec := domain.SectorAnalysis{
			Sector:    name,
			WeightPct: a.value / equityValue * 100,
		}
		if a.indicatorW > 0 {
			sec.Momentum = a.momentum / a.indicatorW
			sec.RSI = a.rsi / a.indicatorW
		}
		sec.Narrative = sectorNarrative(sec, a.missingHist, a.holdingsCount)
		sectors = append(sectors, sec)
	}
	sort.Slice(sectors, func(i, j int) bool { return sectors[i].WeightPct > sectors[j].WeightPct })
	return sectors
}

func sectorNarrative(sec domain.SectorAnalysis, missing []string, holdings int) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s holds %.1f%% of the equity sleeve across %d position(s)",
		sec.Sector, sec.WeightPct, holdings))

	switch {
	case sec.Momentum > momentumStrongPct:
		parts = append(parts, fmt.Sprintf("price sits %.1f%% above its %d-day average, a strong uptrend", sec.Momentum, smaPeriod))
	case sec.Momentum < -momentumStrongPct:
		parts = append(parts, fmt.Sprintf("price sits %.1f%% below its %d-day average, a pronounced downtrend", -sec.Momentum, smaPeriod))
	}
	switch {
	case sec.RSI >= rsiOverbought:
		parts = append(parts, fmt.Sprintf("RSI %.0f signals overbought conditions", sec.RSI))
	case sec.RSI > 0 && sec.RSI <= rsiOversold:
		parts = append(parts, fmt.Sprintf("RSI %.0f signals oversold conditions", sec.RSI))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		parts = append(parts, fmt.Sprintf("no usable history for %v", missing))
	}
	return strings.Join(parts, "; ")
}

func sectorRecommendations(sectors []domain.SectorAnalysis, focusAreas []string) []string {
	var recs []string
	for _, sec := range sectors {
		if sec.WeightPct > 40 {
			recs = append(recs, fmt.Sprintf("%s dominates the equity sleeve at %.1f%%; consider trimming toward other sectors", sec.Sector, sec.WeightPct))
		}
		if sec.RSI >= rsiOverbought {
			recs = append(recs, fmt.Sprintf("%s looks overbought (RSI %.0f); avoid adding at current levels", sec.Sector, sec.RSI))
		}
		if sec.RSI > 0 && sec.RSI <= rsiOversold {
			recs = append(recs, fmt.Sprintf("%s looks oversold (RSI %.0f); a candidate for rebalancing into", sec.Sector, sec.RSI))
		}
	}
	for _, focus := range focusAreas {
		recs = append(recs, fmt.Sprintf("requested focus area %q reviewed; see sector findings above", focus))
	}
	if len(recs) == 0 {
		recs = append(recs, "sector exposures and momentum look balanced; no equity-specific action needed")
	}
	return recs
}

func narrative(s *session, report *domain.EquityDeepDiveReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Equity deep dive for portfolio %s: %.1f%% of value in equities, split %.0f%% growth / %.0f%% value. ",
		s.portfolio.PortfolioID,
		report.ValuationMetrics["equity_weight_pct"],
		report.GrowthWeightPct, report.ValueWeightPct)
	if len(report.Sectors) > 0 {
		fmt.Fprintf(&b, "Largest sector exposure is %s at %.1f%%. ",
			report.Sectors[0].Sector, report.Sectors[0].WeightPct)
	}
	if s.priorScore != nil {
		fmt.Fprintf(&b, "The originating analysis scored this portfolio %.1f/100.", *s.priorScore)
	}
	return strings.TrimSpace(b.String())
}

// answer handles a follow-up question with a keyword-routed response built
// from the session's computed report. Unrecognized questions get a pointer to
// what the session can answer.
func (m *Manager) answer(s *session, report *domain.EquityDeepDiveReport, question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "sector"):
		names := make([]string, 0, len(report.Sectors))
		for _, sec := range report.Sectors {
			names = append(names, fmt.Sprintf("%s %.1f%%", sec.Sector, sec.WeightPct))
		}
		return "sector weights within the equity sleeve: " + strings.Join(names, ", ")
	case strings.Contains(q, "momentum") || strings.Contains(q, "trend"):
		return fmt.Sprintf("value-weighted momentum is %.1f%% versus the %d-day average; positive values indicate an uptrend",
			report.ValuationMetrics["portfolio_momentum_pct"], smaPeriod)
	case strings.Contains(q, "rsi") || strings.Contains(q, "overbought") || strings.Contains(q, "oversold"):
		return fmt.Sprintf("value-weighted RSI is %.0f (70+ overbought, 30- oversold)", report.ValuationMetrics["portfolio_rsi"])
	case strings.Contains(q, "growth") || strings.Contains(q, "value"):
		return fmt.Sprintf("the equity sleeve splits %.0f%% growth sectors / %.0f%% value sectors",
			report.GrowthWeightPct, report.ValueWeightPct)
	case strings.Contains(q, "gain") || strings.Contains(q, "cost") || strings.Contains(q, "valuation"):
		if gain, ok := report.ValuationMetrics["avg_unrealized_gain_pct"]; ok {
			return fmt.Sprintf("weighted unrealized gain over cost basis is %.1f%%", gain)
		}
		return "no cost basis data was supplied, so unrealized gains cannot be computed"
	case strings.Contains(q, "score"):
		if s.priorScore != nil {
			return fmt.Sprintf("the originating run scored %.1f/100; this session does not rescore the portfolio", *s.priorScore)
		}
		return "no prior score was handed off with this session"
	default:
		return "this session can answer questions about sectors, momentum, RSI, growth/value split, valuation, and the prior score"
	}
}

func hasEquity(p *domain.Portfolio) bool {
	for _, h := range p.Holdings {
		if h.AssetClass == domain.AssetClassEquity {
			return true
		}
	}
	return false
}

// averageGain is the value-weighted unrealized gain over cost basis, for
// holdings that carry one.
func averageGain(p *domain.Portfolio) (float64, bool) {
	weighted, totalW := 0.0, 0.0
	for _, h := range p.Holdings {
		if h.CostBasis == nil || *h.CostBasis <= 0 {
			continue
		}
		weighted += h.MarketValue * ((h.Price - *h.CostBasis) / *h.CostBasis * 100)
		totalW += h.MarketValue
	}
	if totalW == 0 {
		return 0, false
	}
	return weighted / totalW, true
}
