// Package macro derives a USD/JPY directional bias from FRED macro series
// using a three-question framework: are US yields rising, is sentiment
// risk-on, and is there BoJ/Japan volatility. Two out of three agreeing
// sets the bias.
package macro

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/models"
)

// FRED series IDs.
const (
	SeriesUS10Y        = "DGS10"
	SeriesVIX          = "VIXCLS"
	SeriesFedRate      = "FEDFUNDS"
	SeriesCPI          = "CPIAUCSL"
	SeriesUnemployment = "UNRATE"
	SeriesJapanCPI     = "JPNCPIALLMINMEI"
)

const (
	cacheDuration = time.Hour

	// Trend classification threshold: smaller moves count as stable.
	stablePctThreshold = 0.5

	vixRiskOff = 25.0
	vixRiskOn  = 15.0

	// Japan CPI moving more than this percent flags BoJ volatility.
	bojVolatilityPct = 1.0
)

// Trend is the short-term direction of one macro series.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Confidence grades the bias reading. Distinct from signal confidence:
// LOW exists here because macro data can simply be unavailable.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Indicator is one processed macro series reading.
type Indicator struct {
	Name          string           `json:"name"`
	SeriesID      string           `json:"series_id"`
	Value         float64          `json:"value"`
	PreviousValue float64          `json:"previous_value"`
	PercentChange float64          `json:"percent_change"`
	Trend         Trend            `json:"trend"`
	Signal        models.Direction `json:"signal"`
	LastUpdated   string           `json:"last_updated"`
}

// Bias is the aggregate macro reading for USD/JPY.
type Bias struct {
	Direction      models.Direction `json:"direction"`
	Score          int              `json:"score"`
	Confidence     Confidence       `json:"confidence"`
	YieldSignal    models.Direction `json:"yield_signal"`
	RiskSignal     models.Direction `json:"risk_signal"`
	BoJVolatility  bool             `json:"boj_volatility"`
	AgreementCount int              `json:"agreement_count"`
	Recommendation string           `json:"recommendation"`
}

// Engine caches FRED data for an hour and answers bias queries. Safe for
// concurrent use.
type Engine struct {
	fetcher SeriesFetcher

	mu         sync.Mutex
	indicators map[string]Indicator
	lastFetch  time.Time

	now    func() time.Time
	logger zerolog.Logger
}

// SeriesFetcher abstracts the FRED client so the bias math is testable
// offline.
type SeriesFetcher interface {
	Observations(ctx context.Context, seriesID string, limit int) ([]Observation, error)
}

// Observation is one FRED data point, newest first as the API returns
// them. Value "." marks a missing reading.
type Observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

func NewEngine(fetcher SeriesFetcher) *Engine {
	return &Engine{
		fetcher:    fetcher,
		indicators: make(map[string]Indicator),
		now:        time.Now,
		logger:     log.With().Str("component", "macro_bias").Logger(),
	}
}

var seriesNames = map[string]string{
	SeriesUS10Y:        "US 10-Year Treasury Yield",
	SeriesVIX:          "VIX (Fear Index)",
	SeriesFedRate:      "Fed Funds Rate",
	SeriesCPI:          "US CPI",
	SeriesUnemployment: "US Unemployment",
	SeriesJapanCPI:     "Japan CPI",
}

// CurrentBias fetches (or reuses cached) indicators and computes the bias.
func (e *Engine) CurrentBias(ctx context.Context) Bias {
	indicators := e.fetchAll(ctx)
	return computeBias(indicators)
}

// CurrentDirection is the convenience form consumed by the signal engine.
func (e *Engine) CurrentDirection(ctx context.Context) models.Direction {
	return e.CurrentBias(ctx).Direction
}

func (e *Engine) fetchAll(ctx context.Context) map[string]Indicator {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastFetch.IsZero() && e.now().Sub(e.lastFetch) < cacheDuration {
		return cloneIndicators(e.indicators)
	}

	e.logger.Info().Msg("fetching fresh macro data")
	for seriesID, name := range seriesNames {
		obs, err := e.fetcher.Observations(ctx, seriesID, 5)
		if err != nil {
			e.logger.Warn().Err(err).Str("series", seriesID).Msg("macro series fetch failed")
			continue
		}
		if ind, ok := processObservations(seriesID, name, obs); ok {
			e.indicators[seriesID] = ind
		}
	}
	e.lastFetch = e.now()
	return cloneIndicators(e.indicators)
}

func cloneIndicators(in map[string]Indicator) map[string]Indicator {
	out := make(map[string]Indicator, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// processObservations turns raw FRED observations into a classified
// indicator. Missing values ('.') are skipped; at least two valid points
// are required.
func processObservations(seriesID, name string, obs []Observation) (Indicator, bool) {
	var valid []Observation
	for _, o := range obs {
		if o.Value != "." && o.Value != "" {
			valid = append(valid, o)
		}
	}
	if len(valid) < 2 {
		return Indicator{}, false
	}

	current, ok1 := parseFloat(valid[0].Value)
	previous, ok2 := parseFloat(valid[1].Value)
	if !ok1 || !ok2 {
		return Indicator{}, false
	}

	change := current - previous
	var pct float64
	if previous != 0 {
		pct = change / previous * 100
	}

	trend := TrendStable
	if math.Abs(pct) >= stablePctThreshold {
		if change > 0 {
			trend = TrendRising
		} else {
			trend = TrendFalling
		}
	}

	return Indicator{
		Name:          name,
		SeriesID:      seriesID,
		Value:         current,
		PreviousValue: previous,
		PercentChange: pct,
		Trend:         trend,
		Signal:        classify(seriesID, trend, current),
		LastUpdated:   valid[0].Date,
	}, true
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// classify maps one series' trend into a USD/JPY directional claim.
func classify(seriesID string, trend Trend, value float64) models.Direction {
	switch seriesID {
	case SeriesUS10Y, SeriesFedRate, SeriesCPI:
		// Rising US rates and hot inflation widen the rate differential.
		switch trend {
		case TrendRising:
			return models.Bullish
		case TrendFalling:
			return models.Bearish
		}
	case SeriesUnemployment:
		switch trend {
		case TrendFalling:
			return models.Bullish
		case TrendRising:
			return models.Bearish
		}
	case SeriesVIX:
		// High VIX means risk-off, which strengthens JPY.
		if value > vixRiskOff {
			return models.Bearish
		}
		if value < vixRiskOn {
			return models.Bullish
		}
		switch trend {
		case TrendFalling:
			return models.Bullish
		case TrendRising:
			return models.Bearish
		}
	case SeriesJapanCPI:
		// Rising Japan CPI raises BoJ tightening odds, strengthening JPY.
		switch trend {
		case TrendRising:
			return models.Bearish
		case TrendFalling:
			return models.Bullish
		}
	}
	return models.Neutral
}

// computeBias applies the three-question framework to the indicator set.
func computeBias(indicators map[string]Indicator) Bias {
	if len(indicators) == 0 {
		return Bias{
			Direction:      models.Neutral,
			Confidence:     ConfidenceLow,
			YieldSignal:    models.Neutral,
			RiskSignal:     models.Neutral,
			Recommendation: "Unable to fetch macro data - proceed with caution",
		}
	}

	// Question one: yield direction from US 10Y and the Fed rate.
	var yieldBull, yieldBear int
	for _, id := range []string{SeriesUS10Y, SeriesFedRate} {
		ind, ok := indicators[id]
		if !ok {
			continue
		}
		switch ind.Signal {
		case models.Bullish:
			yieldBull++
		case models.Bearish:
			yieldBear++
		}
	}
	yieldSignal := models.Neutral
	if yieldBull > yieldBear {
		yieldSignal = models.Bullish
	} else if yieldBear > yieldBull {
		yieldSignal = models.Bearish
	}

	// Question two: risk sentiment from VIX.
	riskSignal := models.Neutral
	if vix, ok := indicators[SeriesVIX]; ok {
		riskSignal = vix.Signal
	}

	// Question three: BoJ volatility from Japan CPI movement.
	var bojVolatility bool
	if jp, ok := indicators[SeriesJapanCPI]; ok {
		bojVolatility = math.Abs(jp.PercentChange) > bojVolatilityPct
	}

	var bullCount, bearCount int
	for _, s := range []models.Direction{yieldSignal, riskSignal} {
		switch s {
		case models.Bullish:
			bullCount++
		case models.Bearish:
			bearCount++
		}
	}
	agreement := bullCount
	if bearCount > agreement {
		agreement = bearCount
	}

	direction := models.Neutral
	var score int
	switch {
	case bullCount >= 2:
		direction = models.Bullish
		score = 50 + bullCount*25
	case bearCount >= 2:
		direction = models.Bearish
		score = -50 - bearCount*25
	default:
		score = (bullCount - bearCount) * 25
	}
	if bojVolatility {
		score = int(float64(score) * 0.8)
	}

	var confidence Confidence
	switch {
	case agreement >= 2 && !bojVolatility:
		confidence = ConfidenceHigh
	case agreement >= 2 || bullCount+bearCount >= 2:
		confidence = ConfidenceMedium
	default:
		confidence = ConfidenceLow
	}

	return Bias{
		Direction:      direction,
		Score:          score,
		Confidence:     confidence,
		YieldSignal:    yieldSignal,
		RiskSignal:     riskSignal,
		BoJVolatility:  bojVolatility,
		AgreementCount: agreement,
		Recommendation: recommendation(direction, confidence, bojVolatility),
	}
}

func recommendation(direction models.Direction, confidence Confidence, bojVolatility bool) string {
	switch {
	case direction == models.Bullish && confidence == ConfidenceHigh:
		return "Strong USDJPY long bias - yields rising and risk-on sentiment align"
	case direction == models.Bearish && confidence == ConfidenceHigh:
		return "Strong USDJPY short bias - yields falling and risk-off sentiment align"
	case direction == models.Bullish:
		return "Moderate USDJPY long bias - consider reduced position size"
	case direction == models.Bearish:
		return "Moderate USDJPY short bias - consider reduced position size"
	case bojVolatility:
		return "Neutral with BoJ volatility risk - wait for clarity"
	default:
		return "No clear bias - wait for macro alignment"
	}
}

// AllowTrade gates a proposed action against the current bias. Only a
// HIGH-confidence opposing bias blocks a trade.
func (e *Engine) AllowTrade(ctx context.Context, action models.SignalAction) (bool, string) {
	bias := e.CurrentBias(ctx)

	if bias.Confidence == ConfidenceHigh {
		if bias.Direction == models.Bullish && action == models.ActionSell {
			return false, "macro bias is strongly bullish, SELL blocked"
		}
		if bias.Direction == models.Bearish && action == models.ActionBuy {
			return false, "macro bias is strongly bearish, BUY blocked"
		}
	}
	if bias.Confidence == ConfidenceMedium {
		if (bias.Direction == models.Bullish && action == models.ActionSell) ||
			(bias.Direction == models.Bearish && action == models.ActionBuy) {
			return true, "warning: trading against medium-confidence macro bias"
		}
	}
	return true, "trade aligned or no strong macro bias"
}

// SizeMultiplier scales position size by macro confluence.
func (e *Engine) SizeMultiplier(ctx context.Context) float64 {
	bias := e.CurrentBias(ctx)
	switch {
	case bias.Confidence == ConfidenceHigh && bias.AgreementCount >= 2:
		return 1.0
	case bias.Confidence == ConfidenceMedium:
		return 0.75
	default:
		return 0.5
	}
}
