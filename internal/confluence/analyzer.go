package confluence

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/internal/indicator"
	"github.com/quantfx/signalengine/models"
)

// Indicator periods and rule thresholds. These mirror the tuned live
// parameters; they are not part of the configuration surface.
const (
	trendEMAPeriod   = 200
	rsiPeriod        = 14
	adxPeriod        = 14
	bollingerPeriod  = 20
	bollingerStdDev  = 2.0
	squeezeThreshold = 0.0015
	adxStrongTrend   = 25.0
	rsiOversold      = 30.0
	rsiOverbought    = 70.0
	divergenceWindow = 30
	levelLookback    = 50
	levelExcludeBars = 5
)

// Input carries one evaluation cycle's market context.
type Input struct {
	M15 []models.Candle
	H1  []models.Candle
	H4  []models.Candle
	// MacroBias is the externally supplied directional lean; Neutral or
	// empty means no macro factor is emitted.
	MacroBias models.Direction
}

// Analyzer evaluates the fixed rule set and emits weighted factors. Rules
// are independent predicates: several factors from the same category can
// fire in one cycle, so evidence accumulates instead of being arbitrated.
type Analyzer struct {
	cfg    models.SignalConfig
	logger zerolog.Logger
}

func New(cfg models.SignalConfig) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		logger: log.With().Str("component", "confluence").Logger(),
	}
}

// Collect runs every enabled rule group and returns the factor set for this
// cycle, including the macro factor when a bias is present.
func (a *Analyzer) Collect(in Input) []models.ConfluenceFactor {
	var factors []models.ConfluenceFactor

	if a.cfg.EnableH4 {
		factors = append(factors, trendFactors(in.H4, models.TimeframeH4, 2.0)...)
	}
	if a.cfg.EnableH1 {
		factors = append(factors, trendFactors(in.H1, models.TimeframeH1, 1.5)...)
	}
	if a.cfg.EnableM15 {
		factors = append(factors, momentumFactors(in.M15)...)
		factors = append(factors, volatilityFactors(in.M15)...)
		factors = append(factors, levelFactors(in.M15)...)
	}

	if f, ok := a.macroFactor(in.MacroBias, factors); ok {
		factors = append(factors, f)
	}

	a.logger.Debug().Int("factors", len(factors)).Msg("confluence factors collected")
	return factors
}

// Score is the sum of all factor weights.
func Score(factors []models.ConfluenceFactor) float64 {
	var total float64
	for _, f := range factors {
		total += f.Weight
	}
	return total
}

// Dominance sums weights per directional side. Neutral factors count
// toward neither side.
func Dominance(factors []models.ConfluenceFactor) (bullish, bearish float64) {
	for _, f := range factors {
		switch f.Direction {
		case models.Bullish:
			bullish += f.Weight
		case models.Bearish:
			bearish += f.Weight
		}
	}
	return bullish, bearish
}

// trendFactors compares the latest close against the EMA200 of the
// timeframe and reads ADX for trend strength.
func trendFactors(candles []models.Candle, tf models.Timeframe, weight float64) []models.ConfluenceFactor {
	if len(candles) < 2 {
		return nil
	}
	var factors []models.ConfluenceFactor

	closes := indicator.Closes(candles)
	ema := indicator.EMA(closes, trendEMAPeriod)
	last := len(closes) - 1
	price := closes[last]

	if price > ema[last] {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorTrend,
			Name:      fmt.Sprintf("%s Trend Bullish", tf),
			Timeframe: tf,
			Direction: models.Bullish,
			Value:     fmt.Sprintf("close %.3f above EMA%d %.3f", price, trendEMAPeriod, ema[last]),
			Weight:    weight,
		})
	} else if price < ema[last] {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorTrend,
			Name:      fmt.Sprintf("%s Trend Bearish", tf),
			Timeframe: tf,
			Direction: models.Bearish,
			Value:     fmt.Sprintf("close %.3f below EMA%d %.3f", price, trendEMAPeriod, ema[last]),
			Weight:    weight,
		})
	}
	return factors
}

// momentumFactors reads RSI zones, ADX strength with DI direction, and RSI
// divergence on the M15 series.
func momentumFactors(m15 []models.Candle) []models.ConfluenceFactor {
	if len(m15) < 2 {
		return nil
	}
	var factors []models.ConfluenceFactor

	closes := indicator.Closes(m15)
	rsi := indicator.RSI(closes, rsiPeriod)
	last := len(closes) - 1
	r := rsi[last]

	switch {
	case r < rsiOversold:
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorMomentum,
			Name:      "RSI Oversold",
			Timeframe: models.TimeframeM15,
			Direction: models.Bullish,
			Value:     fmt.Sprintf("RSI %.1f", r),
			Weight:    1.0,
		})
	case r > rsiOverbought:
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorMomentum,
			Name:      "RSI Overbought",
			Timeframe: models.TimeframeM15,
			Direction: models.Bearish,
			Value:     fmt.Sprintf("RSI %.1f", r),
			Weight:    1.0,
		})
	case r > 50:
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorMomentum,
			Name:      "RSI Momentum Bullish",
			Timeframe: models.TimeframeM15,
			Direction: models.Bullish,
			Value:     fmt.Sprintf("RSI %.1f", r),
			Weight:    0.5,
		})
	case r < 50:
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorMomentum,
			Name:      "RSI Momentum Bearish",
			Timeframe: models.TimeframeM15,
			Direction: models.Bearish,
			Value:     fmt.Sprintf("RSI %.1f", r),
			Weight:    0.5,
		})
	}

	di := indicator.ADX(m15, adxPeriod)
	if di.ADX[last] > adxStrongTrend {
		dir := models.Bullish
		name := "ADX Strong Uptrend"
		if di.MinusDI[last] > di.PlusDI[last] {
			dir = models.Bearish
			name = "ADX Strong Downtrend"
		}
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorMomentum,
			Name:      name,
			Timeframe: models.TimeframeM15,
			Direction: dir,
			Value:     fmt.Sprintf("ADX %.1f +DI %.1f -DI %.1f", di.ADX[last], di.PlusDI[last], di.MinusDI[last]),
			Weight:    1.0,
		})
	}

	if indicator.BullishDivergence(closes, rsi, divergenceWindow) {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorMomentum,
			Name:      "RSI Bullish Divergence",
			Timeframe: models.TimeframeM15,
			Direction: models.Bullish,
			Value:     fmt.Sprintf("over last %d bars", divergenceWindow),
			Weight:    1.5,
		})
	}
	if indicator.BearishDivergence(closes, rsi, divergenceWindow) {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorMomentum,
			Name:      "RSI Bearish Divergence",
			Timeframe: models.TimeframeM15,
			Direction: models.Bearish,
			Value:     fmt.Sprintf("over last %d bars", divergenceWindow),
			Weight:    1.5,
		})
	}

	return factors
}

// volatilityFactors flags Bollinger squeezes and band breakouts on M15.
func volatilityFactors(m15 []models.Candle) []models.ConfluenceFactor {
	if len(m15) < bollingerPeriod {
		return nil
	}
	var factors []models.ConfluenceFactor

	closes := indicator.Closes(m15)
	bands := indicator.Bollinger(closes, bollingerPeriod, bollingerStdDev)
	last := len(closes) - 1

	if bands.Squeeze(last, squeezeThreshold) {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorVolatility,
			Name:      "Bollinger Squeeze",
			Timeframe: models.TimeframeM15,
			Direction: models.Neutral,
			Value:     fmt.Sprintf("width %.5f", bands.Width(last)),
			Weight:    0.5,
		})
	}
	if closes[last] > bands.Upper[last] {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorVolatility,
			Name:      "Upper Band Breakout",
			Timeframe: models.TimeframeM15,
			Direction: models.Bullish,
			Value:     fmt.Sprintf("close %.3f above %.3f", closes[last], bands.Upper[last]),
			Weight:    1.0,
		})
	} else if closes[last] < bands.Lower[last] {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorVolatility,
			Name:      "Lower Band Breakdown",
			Timeframe: models.TimeframeM15,
			Direction: models.Bearish,
			Value:     fmt.Sprintf("close %.3f below %.3f", closes[last], bands.Lower[last]),
			Weight:    1.0,
		})
	}
	return factors
}

// levelFactors detects true breaks of recent support/resistance on M15.
func levelFactors(m15 []models.Candle) []models.ConfluenceFactor {
	var factors []models.ConfluenceFactor

	if level, broke := indicator.BrokeResistance(m15, levelLookback, levelExcludeBars); broke {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorLevel,
			Name:      "Resistance Break",
			Timeframe: models.TimeframeM15,
			Direction: models.Bullish,
			Value:     fmt.Sprintf("closed above %.3f", level),
			Weight:    1.5,
		})
	}
	if level, broke := indicator.BrokeSupport(m15, levelLookback, levelExcludeBars); broke {
		factors = append(factors, models.ConfluenceFactor{
			Type:      models.FactorLevel,
			Name:      "Support Break",
			Timeframe: models.TimeframeM15,
			Direction: models.Bearish,
			Value:     fmt.Sprintf("closed below %.3f", level),
			Weight:    1.5,
		})
	}
	return factors
}

// macroFactor scores the external bias against the technical lean. An
// aligned bias adds macroWeight toward the lean; an opposed bias subtracts
// it, dragging both the total score and the dominant side down.
func (a *Analyzer) macroFactor(bias models.Direction, technical []models.ConfluenceFactor) (models.ConfluenceFactor, bool) {
	if bias != models.Bullish && bias != models.Bearish {
		return models.ConfluenceFactor{}, false
	}
	bull, bear := Dominance(technical)
	lean := models.Bullish
	if bear > bull {
		lean = models.Bearish
	}

	weight := a.cfg.MacroWeight
	name := "Macro Bias Aligned"
	if bias != lean {
		weight = -a.cfg.MacroWeight
		name = "Macro Bias Against"
	}
	return models.ConfluenceFactor{
		Type:      models.FactorMacro,
		Name:      name,
		Direction: lean,
		Value:     string(bias),
		Weight:    weight,
	}, true
}
