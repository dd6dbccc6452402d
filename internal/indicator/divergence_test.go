package indicator

import (
	"testing"

	"github.com/quantfx/signalengine/models"
)

func TestBullishDivergence(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		osc    []float64
		want   bool
	}{
		{
			name: "lower price low with higher oscillator low",
			// Early half bottoms at 100; late half undercuts to 99
			// while the oscillator holds a higher low.
			prices: []float64{102, 100, 101, 103, 101, 99, 100, 102},
			osc:    []float64{45, 30, 40, 50, 42, 38, 44, 48},
			want:   true,
		},
		{
			name:   "price and oscillator both make lower lows",
			prices: []float64{102, 100, 101, 103, 101, 99, 100, 102},
			osc:    []float64{45, 30, 40, 50, 42, 25, 44, 48},
			want:   false,
		},
		{
			name:   "price holds above earlier low",
			prices: []float64{102, 100, 101, 103, 102, 101, 102, 103},
			osc:    []float64{45, 30, 40, 50, 42, 38, 44, 48},
			want:   false,
		},
		{
			name:   "window too short",
			prices: []float64{100, 99},
			osc:    []float64{40, 38},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BullishDivergence(tt.prices, tt.osc, len(tt.prices))
			if got != tt.want {
				t.Errorf("BullishDivergence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBearishDivergence(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		osc    []float64
		want   bool
	}{
		{
			name: "higher price high with lower oscillator high",
			prices: []float64{98, 100, 99, 97, 99, 101, 100, 98},
			osc:    []float64{55, 70, 60, 50, 58, 62, 56, 52},
			want:   true,
		},
		{
			name:   "oscillator confirms the new high",
			prices: []float64{98, 100, 99, 97, 99, 101, 100, 98},
			osc:    []float64{55, 70, 60, 50, 58, 75, 56, 52},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearishDivergence(tt.prices, tt.osc, len(tt.prices))
			if got != tt.want {
				t.Errorf("BearishDivergence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelBreaks(t *testing.T) {
	// 20 bars ranging under 151.00, then a final bar that opens below and
	// closes above the old extreme.
	base := generateCandles(20, func(i int) models.Candle {
		return models.Candle{
			Timestamp: int64(i) * 900_000,
			Open:      150.40, High: 151.00, Low: 150.00, Close: 150.50,
		}
	})

	t.Run("true breakout", func(t *testing.T) {
		candles := append(append([]models.Candle{}, base...), models.Candle{
			Timestamp: 20 * 900_000,
			Open:      150.90, High: 151.40, Low: 150.80, Close: 151.30,
		})
		level, broke := BrokeResistance(candles, 15, 3)
		if !broke {
			t.Fatal("expected a resistance break")
		}
		if level != 151.00 {
			t.Errorf("resistance level = %v, want 151.00", level)
		}
	})

	t.Run("wick through level is not a break", func(t *testing.T) {
		candles := append(append([]models.Candle{}, base...), models.Candle{
			Timestamp: 20 * 900_000,
			Open:      150.90, High: 151.40, Low: 150.80, Close: 150.95,
		})
		if _, broke := BrokeResistance(candles, 15, 3); broke {
			t.Error("close below the level must not count as a break")
		}
	})

	t.Run("support breakdown", func(t *testing.T) {
		candles := append(append([]models.Candle{}, base...), models.Candle{
			Timestamp: 20 * 900_000,
			Open:      150.10, High: 150.20, Low: 149.60, Close: 149.70,
		})
		level, broke := BrokeSupport(candles, 15, 3)
		if !broke {
			t.Fatal("expected a support break")
		}
		if level != 150.00 {
			t.Errorf("support level = %v, want 150.00", level)
		}
	})

	t.Run("insufficient history", func(t *testing.T) {
		if _, broke := BrokeResistance(base[:5], 15, 3); broke {
			t.Error("short history must not report a break")
		}
	})
}
