package indicator

import "github.com/quantfx/signalengine/models"

// epsilon guards divisions against zero-width inputs.
const epsilon = 1e-10

// SMA returns the simple moving average as a same-length series. Indices
// before the first full window hold the running mean of the values seen so
// far, keeping the output aligned with the input.
func SMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || period <= 0 {
		return out
	}

	var sum float64
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
			out[i] = sum / float64(period)
		} else {
			out[i] = sum / float64(i+1)
		}
	}
	return out
}

// EMA returns the exponential moving average as a same-length series.
// The seed is the arithmetic mean of the first period values; earlier
// indices hold the running mean so the series stays aligned and total.
func EMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || period <= 0 {
		return out
	}

	var sum float64
	warm := period
	if warm > len(series) {
		warm = len(series)
	}
	for i := 0; i < warm; i++ {
		sum += series[i]
		out[i] = sum / float64(i+1)
	}

	k := 2.0 / float64(period+1)
	for i := period; i < len(series); i++ {
		out[i] = series[i]*k + out[i-1]*(1-k)
	}
	return out
}

// Closes extracts the close series from candles.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
