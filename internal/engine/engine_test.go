package engine

import (
	"math"
	"testing"

	"github.com/quantfx/signalengine/internal/indicator"
	"github.com/quantfx/signalengine/models"
)

func generateTestCandles(n int, gen func(i int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = gen(i)
	}
	return candles
}

func uptrendCandles(n int, start, step float64, spacingMs int64) []models.Candle {
	return generateTestCandles(n, func(i int) models.Candle {
		c := start + float64(i)*step
		return models.Candle{
			Timestamp: int64(i) * spacingMs,
			Open:      c - step/2,
			High:      c + step,
			Low:       c - step,
			Close:     c,
			Volume:    1000,
		}
	})
}

// uptrendInput is a clean multi-timeframe uptrend that reliably clears the
// confluence threshold.
func uptrendInput(now int64) Input {
	return Input{
		M15:       uptrendCandles(250, 148.0, 0.02, 900_000),
		H1:        uptrendCandles(250, 146.0, 0.08, 3_600_000),
		H4:        uptrendCandles(250, 140.0, 0.30, 14_400_000),
		MacroBias: models.Neutral,
		Now:       now,
	}
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	e := New(models.DefaultSignalConfig())
	in := uptrendInput(1_000_000)
	in.M15 = in.M15[:199]

	sig, outcome := e.Evaluate(in)
	if sig != nil || outcome != OutcomeInsufficientHistory {
		t.Fatalf("got (%v, %s), want (nil, %s)", sig, outcome, OutcomeInsufficientHistory)
	}
}

func TestEvaluateUptrendEmitsBuy(t *testing.T) {
	e := New(models.DefaultSignalConfig())
	in := uptrendInput(225_000_000)

	sig, outcome := e.Evaluate(in)
	if outcome != OutcomeAccepted {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeAccepted)
	}
	if sig.Action != models.ActionBuy {
		t.Errorf("action = %s, want BUY", sig.Action)
	}
	if sig.ID == "" {
		t.Error("signal ID is empty")
	}
	if sig.Status != models.StatusPending {
		t.Errorf("status = %s, want PENDING", sig.Status)
	}
	if sig.ConfluenceScore < e.cfg.MinConfluenceScore {
		t.Errorf("score = %v below threshold %v", sig.ConfluenceScore, e.cfg.MinConfluenceScore)
	}
	if sig.Reason == "" {
		t.Error("reason is empty")
	}

	// Position size follows from the 1.5xATR stop and the fixed risk budget.
	atrSeries := indicator.ATR(in.M15, atrPeriod)
	atr := atrSeries[len(atrSeries)-1]
	entry := in.M15[len(in.M15)-1].Close
	riskAmount := e.cfg.AccountSize * e.cfg.RiskPerTrade
	wantSize := math.Floor(riskAmount * entry / (stopATRMultiplier * atr))
	if sig.Size != wantSize {
		t.Errorf("size = %v, want %v", sig.Size, wantSize)
	}
	if sig.RiskAmount != riskAmount {
		t.Errorf("risk amount = %v, want %v", sig.RiskAmount, riskAmount)
	}
	if sig.ATR != atr {
		t.Errorf("atr = %v, want %v", sig.ATR, atr)
	}
}

func TestConstructScoreThreshold(t *testing.T) {
	e := New(models.DefaultSignalConfig())
	in := uptrendInput(225_000_000)

	tests := []struct {
		name    string
		factors []models.ConfluenceFactor
		want    Outcome
	}{
		{
			"just below threshold rejects",
			[]models.ConfluenceFactor{{Direction: models.Bullish, Weight: 2.9}},
			OutcomeBelowThreshold,
		},
		{
			"exactly at threshold passes",
			[]models.ConfluenceFactor{{Name: "H4 Trend Bullish", Direction: models.Bullish, Weight: 3.0}},
			OutcomeAccepted,
		},
		{
			"score without dominance rejects",
			[]models.ConfluenceFactor{
				{Direction: models.Bullish, Weight: 1.5},
				{Direction: models.Bearish, Weight: 1.5},
			},
			OutcomeNoDominance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, outcome := e.construct(in, tt.factors)
			if outcome != tt.want {
				t.Fatalf("outcome = %s, want %s", outcome, tt.want)
			}
			if (sig != nil) != (tt.want == OutcomeAccepted) {
				t.Errorf("signal presence does not match outcome %s", outcome)
			}
		})
	}
}

func TestConstructLevelOrdering(t *testing.T) {
	e := New(models.DefaultSignalConfig())
	in := uptrendInput(225_000_000)

	buyFactors := []models.ConfluenceFactor{{Name: "H4 Trend Bullish", Direction: models.Bullish, Weight: 4.0}}
	sellFactors := []models.ConfluenceFactor{{Name: "H4 Trend Bearish", Direction: models.Bearish, Weight: 4.0}}

	buy, outcome := e.construct(in, buyFactors)
	if outcome != OutcomeAccepted {
		t.Fatalf("buy outcome = %s", outcome)
	}
	if !(buy.StopLoss < buy.Entry && buy.Entry < buy.TakeProfit1 && buy.TakeProfit1 < buy.TakeProfit2) {
		t.Errorf("BUY ordering violated: stop=%v entry=%v tp1=%v tp2=%v",
			buy.StopLoss, buy.Entry, buy.TakeProfit1, buy.TakeProfit2)
	}

	sell, outcome := e.construct(in, sellFactors)
	if outcome != OutcomeAccepted {
		t.Fatalf("sell outcome = %s", outcome)
	}
	if !(sell.TakeProfit2 < sell.TakeProfit1 && sell.TakeProfit1 < sell.Entry && sell.Entry < sell.StopLoss) {
		t.Errorf("SELL ordering violated: stop=%v entry=%v tp1=%v tp2=%v",
			sell.StopLoss, sell.Entry, sell.TakeProfit1, sell.TakeProfit2)
	}

	// Both sides share the same stop distance and reward ratio.
	buyStop := buy.Entry - buy.StopLoss
	sellStop := sell.StopLoss - sell.Entry
	if math.Abs(buyStop-sellStop) > 1e-9 {
		t.Errorf("stop distances differ: buy=%v sell=%v", buyStop, sellStop)
	}
	if math.Abs(buy.RiskReward-e.cfg.MinRiskReward) > 1e-9 {
		t.Errorf("risk reward = %v, want %v", buy.RiskReward, e.cfg.MinRiskReward)
	}
}

func TestConstructGrading(t *testing.T) {
	e := New(models.DefaultSignalConfig())
	in := uptrendInput(225_000_000)

	tests := []struct {
		name           string
		weight         float64
		wantGrade      models.Grade
		wantConfidence models.Confidence
	}{
		{"B grade medium", 3.0, models.GradeB, models.ConfidenceMedium},
		{"A grade medium", 4.0, models.GradeA, models.ConfidenceMedium},
		{"A grade high", 5.0, models.GradeA, models.ConfidenceHigh},
		{"A+ grade high", 5.5, models.GradeAPlus, models.ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors := []models.ConfluenceFactor{{Name: "H4 Trend Bullish", Direction: models.Bullish, Weight: tt.weight}}
			sig, outcome := e.construct(in, factors)
			if outcome != OutcomeAccepted {
				t.Fatalf("outcome = %s", outcome)
			}
			if sig.Grade != tt.wantGrade {
				t.Errorf("grade = %s, want %s", sig.Grade, tt.wantGrade)
			}
			if sig.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %s, want %s", sig.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestConstructZeroStopDistance(t *testing.T) {
	e := New(models.DefaultSignalConfig())
	flat := generateTestCandles(250, func(i int) models.Candle {
		return models.Candle{Timestamp: int64(i) * 900_000, Open: 150, High: 150, Low: 150, Close: 150}
	})
	in := Input{M15: flat, Now: 225_000_000}

	factors := []models.ConfluenceFactor{{Direction: models.Bullish, Weight: 4.0}}
	sig, outcome := e.construct(in, factors)
	if sig != nil || outcome != OutcomeZeroStopDistance {
		t.Fatalf("got (%v, %s), want (nil, %s)", sig, outcome, OutcomeZeroStopDistance)
	}
}

func TestEvaluateNewsBlackout(t *testing.T) {
	now := int64(225_000_000)
	tests := []struct {
		name  string
		event models.EconomicEvent
		want  Outcome
	}{
		{
			"high impact USD inside window",
			models.EconomicEvent{Timestamp: now + 30*60_000, Currency: "USD", Impact: models.ImpactHigh, Title: "NFP"},
			OutcomeNewsBlackout,
		},
		{
			"high impact JPY at window edge",
			models.EconomicEvent{Timestamp: now - newsBlackoutMs, Currency: "JPY", Impact: models.ImpactHigh, Title: "BoJ Rate"},
			OutcomeNewsBlackout,
		},
		{
			"just outside window",
			models.EconomicEvent{Timestamp: now + newsBlackoutMs + 1, Currency: "USD", Impact: models.ImpactHigh},
			OutcomeAccepted,
		},
		{
			"medium impact ignored",
			models.EconomicEvent{Timestamp: now, Currency: "USD", Impact: models.ImpactMedium},
			OutcomeAccepted,
		},
		{
			"other currency ignored",
			models.EconomicEvent{Timestamp: now, Currency: "EUR", Impact: models.ImpactHigh},
			OutcomeAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(models.DefaultSignalConfig())
			in := uptrendInput(now)
			in.Events = []models.EconomicEvent{tt.event}
			_, outcome := e.Evaluate(in)
			if outcome != tt.want {
				t.Errorf("outcome = %s, want %s", outcome, tt.want)
			}
		})
	}
}

func TestEvaluateDailyCap(t *testing.T) {
	e := New(models.DefaultSignalConfig())
	now := int64(225_000_000)
	in := uptrendInput(now)

	for i := 0; i < e.cfg.MaxDailySignals; i++ {
		if _, outcome := e.Evaluate(in); outcome != OutcomeAccepted {
			t.Fatalf("evaluation %d outcome = %s, want %s", i+1, outcome, OutcomeAccepted)
		}
	}
	if _, outcome := e.Evaluate(in); outcome != OutcomeDailyCap {
		t.Fatalf("capped outcome = %s, want %s", outcome, OutcomeDailyCap)
	}

	// A new UTC day resets the counter.
	next := in
	next.Now = now + models.MsPerDay
	if _, outcome := e.Evaluate(next); outcome != OutcomeAccepted {
		t.Fatalf("next-day outcome = %s, want %s", outcome, OutcomeAccepted)
	}
}

func TestEvaluateMacroAlignment(t *testing.T) {
	cfg := models.DefaultSignalConfig()
	cfg.RequireMacroAlignment = true

	now := int64(225_000_000)

	t.Run("opposed bias vetoes", func(t *testing.T) {
		e := New(cfg)
		in := uptrendInput(now)
		in.MacroBias = models.Bearish
		sig, outcome := e.Evaluate(in)
		if sig != nil || outcome != OutcomeMacroMisaligned {
			t.Fatalf("got (%v, %s), want (nil, %s)", sig, outcome, OutcomeMacroMisaligned)
		}
	})

	t.Run("aligned bias boosts score", func(t *testing.T) {
		e := New(cfg)
		neutral := uptrendInput(now)
		eNeutral := New(models.DefaultSignalConfig())
		base, outcome := eNeutral.Evaluate(neutral)
		if outcome != OutcomeAccepted {
			t.Fatalf("baseline outcome = %s", outcome)
		}

		in := uptrendInput(now)
		in.MacroBias = models.Bullish
		sig, outcome := e.Evaluate(in)
		if outcome != OutcomeAccepted {
			t.Fatalf("outcome = %s, want %s", outcome, OutcomeAccepted)
		}
		if sig.ConfluenceScore <= base.ConfluenceScore {
			t.Errorf("aligned score %v not above baseline %v", sig.ConfluenceScore, base.ConfluenceScore)
		}
		if sig.MacroBias != models.Bullish {
			t.Errorf("macro bias = %s, want BULLISH", sig.MacroBias)
		}
	})
}

func TestBuildReason(t *testing.T) {
	factors := []models.ConfluenceFactor{
		{Name: "RSI Momentum Bullish", Weight: 0.5},
		{Name: "H4 Trend Bullish", Weight: 2.0},
		{Name: "Macro Bias Against", Weight: -1.5},
		{Name: "ADX Strong Uptrend", Weight: 1.0},
	}
	got := buildReason(models.ActionBuy, factors)
	want := "BUY: H4 Trend Bullish (2.0), Macro Bias Against (-1.5), ADX Strong Uptrend (1.0)"
	if got != want {
		t.Errorf("reason = %q, want %q", got, want)
	}
}

func TestDailyLimiter(t *testing.T) {
	var l DailyLimiter

	l = l.Record(100)
	l = l.Record(200)
	if l.Count != 2 {
		t.Fatalf("count = %d, want 2", l.Count)
	}
	if !l.Exhausted(2) {
		t.Error("limiter should be exhausted at cap")
	}
	if l.Exhausted(3) {
		t.Error("limiter exhausted below cap")
	}
	if l.Exhausted(0) {
		t.Error("zero cap must disable the limiter")
	}

	rolled := l.Roll(models.MsPerDay + 1)
	if rolled.Count != 0 {
		t.Errorf("rolled count = %d, want 0", rolled.Count)
	}
	same := l.Roll(500)
	if same.Count != 2 {
		t.Errorf("same-day roll count = %d, want 2", same.Count)
	}
}
