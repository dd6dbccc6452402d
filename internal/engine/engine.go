package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/internal/confluence"
	"github.com/quantfx/signalengine/internal/indicator"
	"github.com/quantfx/signalengine/models"
)

const (
	// minM15History is the indicator warm-up floor.
	minM15History = 200

	atrPeriod         = 14
	stopATRMultiplier = 1.5

	// dominanceFloor: if neither side's weight sum reaches this, the
	// cycle lacks directional conviction regardless of total score.
	dominanceFloor = 2.0

	highConfidenceScore = 5.0
	gradeAPlusScore     = 5.5
	gradeAScore         = 4.0
)

// Outcome tags why an evaluation produced no signal, or that it was
// accepted. Every rejection is a filter result, not an error.
type Outcome string

const (
	OutcomeAccepted            Outcome = "ACCEPTED"
	OutcomeInsufficientHistory Outcome = "INSUFFICIENT_HISTORY"
	OutcomeNewsBlackout        Outcome = "NEWS_BLACKOUT"
	OutcomeDailyCap            Outcome = "DAILY_CAP"
	OutcomeBelowThreshold      Outcome = "BELOW_THRESHOLD"
	OutcomeNoDominance         Outcome = "NO_DOMINANCE"
	OutcomeMacroMisaligned     Outcome = "MACRO_MISALIGNED"
	OutcomeZeroStopDistance    Outcome = "ZERO_STOP_DISTANCE"
)

// Input is one evaluation cycle's data batch. Now is the evaluation
// timestamp in Unix milliseconds, normally the close of the latest M15
// candle.
type Input struct {
	M15       []models.Candle
	H1        []models.Candle
	H4        []models.Candle
	MacroBias models.Direction
	Events    []models.EconomicEvent
	Now       int64
}

// Engine turns a confluence factor set into at most one risk-bounded
// trading signal per cycle. It is synchronous and not safe for concurrent
// use: the daily limiter is read-then-written per call.
type Engine struct {
	cfg      models.SignalConfig
	analyzer *confluence.Analyzer
	limiter  DailyLimiter
	logger   zerolog.Logger
}

func New(cfg models.SignalConfig) *Engine {
	return &Engine{
		cfg:      cfg,
		analyzer: confluence.New(cfg),
		logger:   log.With().Str("component", "engine").Logger(),
	}
}

// Limiter exposes the current daily-limit state, mainly for persistence
// and tests.
func (e *Engine) Limiter() DailyLimiter {
	return e.limiter
}

// Evaluate runs one full cycle: gates, factor collection, scoring and
// signal construction. A nil signal with a non-Accepted outcome is the
// normal quiet-market result.
func (e *Engine) Evaluate(in Input) (*models.TradingSignal, Outcome) {
	if len(in.M15) < minM15History {
		return nil, OutcomeInsufficientHistory
	}

	// Day rollover happens before any gate so yesterday's count never
	// blocks today's first evaluation.
	e.limiter = e.limiter.Roll(in.Now)

	if ev, blocked := inNewsBlackout(in.Events, in.Now); blocked {
		e.logger.Debug().Str("event", ev.Title).Int64("at", ev.Timestamp).Msg("news blackout")
		return nil, OutcomeNewsBlackout
	}
	if e.limiter.Exhausted(e.cfg.MaxDailySignals) {
		return nil, OutcomeDailyCap
	}

	factors := e.analyzer.Collect(confluence.Input{
		M15:       in.M15,
		H1:        in.H1,
		H4:        in.H4,
		MacroBias: in.MacroBias,
	})

	sig, outcome := e.construct(in, factors)
	if outcome != OutcomeAccepted {
		return nil, outcome
	}

	e.limiter = e.limiter.Record(in.Now)
	e.logger.Info().
		Str("action", string(sig.Action)).
		Float64("score", sig.ConfluenceScore).
		Str("grade", string(sig.Grade)).
		Float64("entry", sig.Entry).
		Msg("signal emitted")
	return sig, OutcomeAccepted
}

// construct applies the scoring gates and assembles the signal. Split out
// from Evaluate so the score/dominance boundaries are testable with a
// crafted factor set.
func (e *Engine) construct(in Input, factors []models.ConfluenceFactor) (*models.TradingSignal, Outcome) {
	score := confluence.Score(factors)
	if score < e.cfg.MinConfluenceScore {
		return nil, OutcomeBelowThreshold
	}

	bull, bear := confluence.Dominance(factors)
	if bull < dominanceFloor && bear < dominanceFloor {
		return nil, OutcomeNoDominance
	}
	action := models.ActionSell
	if bull > bear {
		action = models.ActionBuy
	}

	if e.cfg.RequireMacroAlignment {
		if in.MacroBias == models.Bearish && action == models.ActionBuy {
			return nil, OutcomeMacroMisaligned
		}
		if in.MacroBias == models.Bullish && action == models.ActionSell {
			return nil, OutcomeMacroMisaligned
		}
	}

	atrSeries := indicator.ATR(in.M15, atrPeriod)
	atr := atrSeries[len(atrSeries)-1]
	entry := in.M15[len(in.M15)-1].Close
	stopDistance := stopATRMultiplier * atr
	if stopDistance <= 0 {
		return nil, OutcomeZeroStopDistance
	}

	tp1Distance := stopDistance * e.cfg.MinRiskReward
	tp2Distance := stopDistance * (e.cfg.MinRiskReward + 1)

	var stopLoss, tp1, tp2 float64
	if action == models.ActionBuy {
		stopLoss = entry - stopDistance
		tp1 = entry + tp1Distance
		tp2 = entry + tp2Distance
	} else {
		stopLoss = entry + stopDistance
		tp1 = entry - tp1Distance
		tp2 = entry - tp2Distance
	}

	riskAmount := e.cfg.AccountSize * e.cfg.RiskPerTrade
	size := math.Floor(riskAmount * entry / stopDistance)

	confidence := models.ConfidenceMedium
	if score >= highConfidenceScore {
		confidence = models.ConfidenceHigh
	}
	grade := models.GradeB
	switch {
	case score >= gradeAPlusScore:
		grade = models.GradeAPlus
	case score >= gradeAScore:
		grade = models.GradeA
	}

	sig := &models.TradingSignal{
		ID:                uuid.NewString(),
		Timestamp:         in.Now,
		Pair:              e.cfg.Pair,
		Action:            action,
		Confidence:        confidence,
		Grade:             grade,
		Entry:             entry,
		StopLoss:          stopLoss,
		TakeProfit1:       tp1,
		TakeProfit2:       tp2,
		RiskReward:        tp1Distance / stopDistance,
		Size:              size,
		RiskAmount:        riskAmount,
		ConfluenceScore:   score,
		ConfluenceFactors: factors,
		MacroBias:         in.MacroBias,
		ATR:               atr,
		Reason:            buildReason(action, factors),
		Status:            models.StatusPending,
	}
	return sig, OutcomeAccepted
}

// buildReason names the three heaviest factors so every signal carries a
// human-auditable justification.
func buildReason(action models.SignalAction, factors []models.ConfluenceFactor) string {
	sorted := make([]models.ConfluenceFactor, len(factors))
	copy(sorted, factors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Weight) > math.Abs(sorted[j].Weight)
	})
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}
	parts := make([]string, len(sorted))
	for i, f := range sorted {
		parts[i] = fmt.Sprintf("%s (%.1f)", f.Name, f.Weight)
	}
	return fmt.Sprintf("%s: %s", action, strings.Join(parts, ", "))
}
