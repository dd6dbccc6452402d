package confluence

import (
	"testing"

	"github.com/quantfx/signalengine/models"
)

func generateTestCandles(n int, gen func(i int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = gen(i)
	}
	return candles
}

// uptrendCandles builds a steadily rising series with modest bar ranges.
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

func TestCollectUptrend(t *testing.T) {
	a := New(models.DefaultSignalConfig())
	in := Input{
		M15: uptrendCandles(250, 148.0, 0.02, 900_000),
		H1:  uptrendCandles(250, 146.0, 0.08, 3_600_000),
		H4:  uptrendCandles(250, 140.0, 0.30, 14_400_000),
	}

	factors := a.Collect(in)
	if len(factors) == 0 {
		t.Fatal("expected factors in a clean uptrend")
	}

	byName := map[string]models.ConfluenceFactor{}
	for _, f := range factors {
		byName[f.Name] = f
	}

	for _, name := range []string{"H4 Trend Bullish", "H1 Trend Bullish"} {
		f, ok := byName[name]
		if !ok {
			t.Fatalf("missing factor %q; got %v", name, names(factors))
		}
		if f.Direction != models.Bullish {
			t.Errorf("%s direction = %s, want BULLISH", name, f.Direction)
		}
	}

	bull, bear := Dominance(factors)
	if bull <= bear {
		t.Errorf("uptrend should be bullish-dominant: bull=%v bear=%v", bull, bear)
	}
	if Score(factors) < 3 {
		t.Errorf("uptrend score = %v, want >= 3", Score(factors))
	}
}

func TestCollectRespectsTimeframeFlags(t *testing.T) {
	cfg := models.DefaultSignalConfig()
	cfg.EnableH4 = false
	cfg.EnableH1 = false
	a := New(cfg)

	factors := a.Collect(Input{
		M15: uptrendCandles(250, 148.0, 0.02, 900_000),
		H4:  uptrendCandles(250, 140.0, 0.30, 14_400_000),
	})
	for _, f := range factors {
		if f.Type == models.FactorTrend {
			t.Errorf("trend factor %q emitted with trend timeframes disabled", f.Name)
		}
	}
}

func TestMacroFactor(t *testing.T) {
	tests := []struct {
		name       string
		bias       models.Direction
		wantWeight float64
		wantName   string
		wantEmit   bool
	}{
		{"aligned bias adds weight", models.Bullish, 1.5, "Macro Bias Aligned", true},
		{"opposed bias subtracts weight", models.Bearish, -1.5, "Macro Bias Against", true},
		{"neutral bias emits nothing", models.Neutral, 0, "", false},
	}

	bullishTechnical := []models.ConfluenceFactor{
		{Name: "H4 Trend Bullish", Direction: models.Bullish, Weight: 2.0},
		{Name: "H1 Trend Bullish", Direction: models.Bullish, Weight: 1.5},
	}

	a := New(models.DefaultSignalConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := a.macroFactor(tt.bias, bullishTechnical)
			if ok != tt.wantEmit {
				t.Fatalf("emitted = %v, want %v", ok, tt.wantEmit)
			}
			if !ok {
				return
			}
			if f.Weight != tt.wantWeight {
				t.Errorf("weight = %v, want %v", f.Weight, tt.wantWeight)
			}
			if f.Name != tt.wantName {
				t.Errorf("name = %q, want %q", f.Name, tt.wantName)
			}
		})
	}
}

func TestScoreAndDominance(t *testing.T) {
	factors := []models.ConfluenceFactor{
		{Direction: models.Bullish, Weight: 2.0},
		{Direction: models.Bullish, Weight: 1.0},
		{Direction: models.Bearish, Weight: 0.5},
		{Direction: models.Neutral, Weight: 0.5},
	}
	if got := Score(factors); got != 4.0 {
		t.Errorf("Score = %v, want 4.0", got)
	}
	bull, bear := Dominance(factors)
	if bull != 3.0 || bear != 0.5 {
		t.Errorf("Dominance = %v/%v, want 3.0/0.5", bull, bear)
	}
}

func names(factors []models.ConfluenceFactor) []string {
	out := make([]string, len(factors))
	for i, f := range factors {
		out[i] = f.Name
	}
	return out
}
