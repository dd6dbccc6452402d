package indicator

import "github.com/quantfx/signalengine/models"

// Resistance is the extreme high over the lookback window that ends
// `exclude` bars before the current one, so the level predates the move
// being tested against it.
func Resistance(candles []models.Candle, lookback, exclude int) (float64, bool) {
	n := len(candles)
	if lookback <= 0 || n < lookback+exclude+1 {
		return 0, false
	}
	window := candles[n-exclude-lookback : n-exclude]
	level := window[0].High
	for _, c := range window[1:] {
		if c.High > level {
			level = c.High
		}
	}
	return level, true
}

// Support is the extreme low over the same window shape as Resistance.
func Support(candles []models.Candle, lookback, exclude int) (float64, bool) {
	n := len(candles)
	if lookback <= 0 || n < lookback+exclude+1 {
		return 0, false
	}
	window := candles[n-exclude-lookback : n-exclude]
	level := window[0].Low
	for _, c := range window[1:] {
		if c.Low < level {
			level = c.Low
		}
	}
	return level, true
}

// BrokeResistance reports a true breakout: the current bar opened at or
// below the level and closed above it. A wick through the level does not
// count.
func BrokeResistance(candles []models.Candle, lookback, exclude int) (float64, bool) {
	level, ok := Resistance(candles, lookback, exclude)
	if !ok {
		return 0, false
	}
	cur := candles[len(candles)-1]
	return level, cur.Open <= level && cur.Close > level
}

// BrokeSupport reports a true breakdown: opened at or above the level and
// closed below it.
func BrokeSupport(candles []models.Candle, lookback, exclude int) (float64, bool) {
	level, ok := Support(candles, lookback, exclude)
	if !ok {
		return 0, false
	}
	cur := candles[len(candles)-1]
	return level, cur.Open >= level && cur.Close < level
}
