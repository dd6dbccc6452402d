package indicator

import (
	"math"

	"github.com/quantfx/signalengine/models"
)

// trueRange is the greatest of high-low, |high-prevClose| and |low-prevClose|.
func trueRange(c models.Candle, prevClose float64) float64 {
	highLow := c.High - c.Low
	highPrev := math.Abs(c.High - prevClose)
	lowPrev := math.Abs(c.Low - prevClose)
	return math.Max(highLow, math.Max(highPrev, lowPrev))
}

// ATR returns the Wilder average true range as a same-length series. The
// first computed value is the simple mean of the first period true ranges;
// earlier indices are padded with it.
func ATR(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	tr := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		tr[i] = trueRange(candles[i], candles[i-1].Close)
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	for i := 0; i <= period; i++ {
		out[i] = atr
	}

	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}
