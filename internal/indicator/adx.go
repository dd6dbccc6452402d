package indicator

import (
	"math"

	"github.com/quantfx/signalengine/models"
)

// DirectionalIndex bundles the ADX series with its directional components.
type DirectionalIndex struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// ADX computes the average directional index with +DI/-DI using Wilder
// smoothing. ADX values begin after 2×period bars; earlier indices are
// padded with the first computed value so the series stays aligned.
func ADX(candles []models.Candle, period int) DirectionalIndex {
	n := len(candles)
	di := DirectionalIndex{
		ADX:     make([]float64, n),
		PlusDI:  make([]float64, n),
		MinusDI: make([]float64, n),
	}
	if period <= 0 || n < 2*period+1 {
		return di
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(candles[i], candles[i-1].Close)
	}

	var sTR, sPlus, sMinus float64
	for i := 1; i <= period; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}

	dx := make([]float64, n)
	for i := period; i < n; i++ {
		if i > period {
			sTR = sTR - sTR/float64(period) + tr[i]
			sPlus = sPlus - sPlus/float64(period) + plusDM[i]
			sMinus = sMinus - sMinus/float64(period) + minusDM[i]
		}
		if sTR > epsilon {
			di.PlusDI[i] = 100 * sPlus / sTR
			di.MinusDI[i] = 100 * sMinus / sTR
		}
		if diSum := di.PlusDI[i] + di.MinusDI[i]; diSum > epsilon {
			dx[i] = 100 * math.Abs(di.PlusDI[i]-di.MinusDI[i]) / diSum
		}
	}
	for i := 0; i < period; i++ {
		di.PlusDI[i] = di.PlusDI[period]
		di.MinusDI[i] = di.MinusDI[period]
	}

	var dxSum float64
	for i := period; i < 2*period; i++ {
		dxSum += dx[i]
	}
	adx := dxSum / float64(period)
	for i := 2 * period; i < n; i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		di.ADX[i] = adx
	}
	first := di.ADX[2*period]
	for i := 0; i < 2*period; i++ {
		di.ADX[i] = first
	}
	return di
}
