package indicator

import "math"

// Bands holds the three Bollinger band series.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes Bollinger bands over the series: middle is the SMA,
// upper/lower are middle ± mult × population standard deviation of the
// window. Indices before a full window collapse all three bands onto the
// running mean.
func Bollinger(series []float64, period int, mult float64) Bands {
	n := len(series)
	b := Bands{
		Upper:  make([]float64, n),
		Middle: SMA(series, period),
		Lower:  make([]float64, n),
	}
	copy(b.Upper, b.Middle)
	copy(b.Lower, b.Middle)
	if period <= 0 || n < period {
		return b
	}

	for i := period - 1; i < n; i++ {
		mean := b.Middle[i]
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := series[j] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		b.Upper[i] = mean + mult*sd
		b.Lower[i] = mean - mult*sd
	}
	return b
}

// Width returns the normalized band width at index i.
func (b Bands) Width(i int) float64 {
	if i < 0 || i >= len(b.Middle) || math.Abs(b.Middle[i]) < epsilon {
		return 0
	}
	return (b.Upper[i] - b.Lower[i]) / b.Middle[i]
}

// Squeeze reports whether the normalized band width at index i is below
// the threshold, signalling volatility compression.
func (b Bands) Squeeze(i int, threshold float64) bool {
	if i < 0 || i >= len(b.Middle) {
		return false
	}
	return b.Width(i) < threshold
}
