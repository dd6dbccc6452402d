package indicator

import (
	"math"
	"testing"

	"github.com/quantfx/signalengine/models"
)

func generateCandles(n int, gen func(i int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = gen(i)
	}
	return candles
}

func constantSeries(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestEMAConstantSeries(t *testing.T) {
	series := constantSeries(100, 142.50)
	ema := EMA(series, 20)

	if len(ema) != len(series) {
		t.Fatalf("EMA length = %d, want %d", len(ema), len(series))
	}
	for i, v := range ema {
		if math.Abs(v-142.50) > 1e-9 {
			t.Errorf("ema[%d] = %v, want 142.50", i, v)
		}
	}
}

func TestEMATracksRisingSeries(t *testing.T) {
	series := make([]float64, 100)
	for i := range series {
		series[i] = 100 + float64(i)*0.5
	}
	ema := EMA(series, 20)

	last := len(series) - 1
	if ema[last] >= series[last] {
		t.Errorf("EMA should lag a rising series: ema=%v close=%v", ema[last], series[last])
	}
	if ema[last] <= ema[last-1] {
		t.Errorf("EMA should rise with the series: %v then %v", ema[last-1], ema[last])
	}
}

func TestEMAInsufficientHistory(t *testing.T) {
	series := []float64{1, 2, 3}
	ema := EMA(series, 20)
	if len(ema) != 3 {
		t.Fatalf("EMA length = %d, want 3", len(ema))
	}
	// Running mean warm-up, never panics or truncates.
	if ema[2] != 2 {
		t.Errorf("ema[2] = %v, want 2 (running mean)", ema[2])
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   float64
	}{
		{
			name:   "flat series stays neutral",
			series: constantSeries(50, 150.0),
			want:   50,
		},
		{
			name: "monotonic gains saturate",
			series: func() []float64 {
				s := make([]float64, 50)
				for i := range s {
					s[i] = 100 + float64(i)
				}
				return s
			}(),
			want: 100,
		},
		{
			name: "monotonic losses bottom out",
			series: func() []float64 {
				s := make([]float64, 50)
				for i := range s {
					s[i] = 200 - float64(i)
				}
				return s
			}(),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi := RSI(tt.series, 14)
			if len(rsi) != len(tt.series) {
				t.Fatalf("RSI length = %d, want %d", len(rsi), len(tt.series))
			}
			got := rsi[len(rsi)-1]
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("RSI = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRSIWarmupPadding(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 100 + float64(i%5)
	}
	rsi := RSI(series, 14)
	for i := 0; i < 14; i++ {
		if rsi[i] != 50 {
			t.Errorf("rsi[%d] = %v, want neutral 50 during warm-up", i, rsi[i])
		}
	}
}

func TestATRZeroRangeConvergesToZero(t *testing.T) {
	candles := generateCandles(60, func(i int) models.Candle {
		return models.Candle{
			Timestamp: int64(i) * 900_000,
			Open:      150, High: 150, Low: 150, Close: 150,
		}
	})
	atr := ATR(candles, 14)
	if len(atr) != len(candles) {
		t.Fatalf("ATR length = %d, want %d", len(atr), len(candles))
	}
	if atr[len(atr)-1] != 0 {
		t.Errorf("ATR on zero-range series = %v, want 0", atr[len(atr)-1])
	}
}

func TestATRConstantRange(t *testing.T) {
	candles := generateCandles(100, func(i int) models.Candle {
		c := 150 + float64(i)*0.01
		return models.Candle{
			Timestamp: int64(i) * 900_000,
			Open:      c, High: c + 0.05, Low: c - 0.05, Close: c,
		}
	})
	atr := ATR(candles, 14)
	// True range is 0.10 on every bar except gaps; Wilder smoothing
	// should settle close to it.
	got := atr[len(atr)-1]
	if math.Abs(got-0.10) > 0.01 {
		t.Errorf("ATR = %v, want ~0.10", got)
	}
}

func TestADXTrendingMarket(t *testing.T) {
	candles := generateCandles(120, func(i int) models.Candle {
		c := 140 + float64(i)*0.10
		return models.Candle{
			Timestamp: int64(i) * 900_000,
			Open:      c - 0.02, High: c + 0.05, Low: c - 0.05, Close: c,
		}
	})
	di := ADX(candles, 14)

	if len(di.ADX) != len(candles) || len(di.PlusDI) != len(candles) || len(di.MinusDI) != len(candles) {
		t.Fatalf("ADX output lengths must match input")
	}
	last := len(candles) - 1
	if di.ADX[last] < 25 {
		t.Errorf("ADX in a steady uptrend = %v, want > 25", di.ADX[last])
	}
	if di.PlusDI[last] <= di.MinusDI[last] {
		t.Errorf("+DI (%v) should exceed -DI (%v) in an uptrend", di.PlusDI[last], di.MinusDI[last])
	}
}

func TestADXInsufficientHistory(t *testing.T) {
	candles := generateCandles(10, func(i int) models.Candle {
		return models.Candle{Close: 100}
	})
	di := ADX(candles, 14)
	if len(di.ADX) != 10 {
		t.Fatalf("ADX length = %d, want 10", len(di.ADX))
	}
	for i, v := range di.ADX {
		if v != 0 {
			t.Errorf("adx[%d] = %v, want neutral 0 with short input", i, v)
		}
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	series := constantSeries(60, 148.80)
	b := Bollinger(series, 20, 2.0)

	last := len(series) - 1
	if b.Middle[last] != 148.80 || b.Upper[last] != 148.80 || b.Lower[last] != 148.80 {
		t.Errorf("bands on constant series should collapse: upper=%v middle=%v lower=%v",
			b.Upper[last], b.Middle[last], b.Lower[last])
	}
	if !b.Squeeze(last, 0.01) {
		t.Error("zero-width bands must report a squeeze")
	}
}

func TestBollingerWidth(t *testing.T) {
	series := make([]float64, 60)
	for i := range series {
		series[i] = 100 + float64(i%2)*4 // oscillating, wide bands
	}
	b := Bollinger(series, 20, 2.0)
	last := len(series) - 1
	if b.Upper[last] <= b.Middle[last] || b.Lower[last] >= b.Middle[last] {
		t.Errorf("band ordering violated: %v / %v / %v", b.Upper[last], b.Middle[last], b.Lower[last])
	}
	if b.Squeeze(last, 0.01) {
		t.Error("volatile series should not report a squeeze at a tight threshold")
	}
}
