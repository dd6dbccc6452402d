package indicator

// minMaxIdx returns the indices of the minimum and maximum of the slice.
func minMaxIdx(values []float64) (minIdx, maxIdx int) {
	for i, v := range values {
		if v < values[minIdx] {
			minIdx = i
		}
		if v > values[maxIdx] {
			maxIdx = i
		}
	}
	return minIdx, maxIdx
}

// BullishDivergence reports whether, over the last lookback bars, price set
// a lower low in the later half of the window while the oscillator set a
// higher low. The comparison is index-relative: the recent price extreme
// must undercut the earlier one while the oscillator refuses to confirm.
func BullishDivergence(prices, osc []float64, lookback int) bool {
	n := len(prices)
	if n != len(osc) || lookback < 4 || n < lookback {
		return false
	}
	p := prices[n-lookback:]
	o := osc[n-lookback:]
	half := lookback / 2

	earlyPriceMin, _ := minMaxIdx(p[:half])
	latePriceMin, _ := minMaxIdx(p[half:])
	earlyOscMin, _ := minMaxIdx(o[:half])
	lateOscMin, _ := minMaxIdx(o[half:])

	priceLowerLow := p[half+latePriceMin] < p[earlyPriceMin]
	oscHigherLow := o[half+lateOscMin] > o[earlyOscMin]
	return priceLowerLow && oscHigherLow
}

// BearishDivergence is the symmetric check: price sets a higher high in the
// later half while the oscillator sets a lower high.
func BearishDivergence(prices, osc []float64, lookback int) bool {
	n := len(prices)
	if n != len(osc) || lookback < 4 || n < lookback {
		return false
	}
	p := prices[n-lookback:]
	o := osc[n-lookback:]
	half := lookback / 2

	_, earlyPriceMax := minMaxIdx(p[:half])
	_, latePriceMax := minMaxIdx(p[half:])
	_, earlyOscMax := minMaxIdx(o[:half])
	_, lateOscMax := minMaxIdx(o[half:])

	priceHigherHigh := p[half+latePriceMax] > p[earlyPriceMax]
	oscLowerHigh := o[half+lateOscMax] < o[earlyOscMax]
	return priceHigherHigh && oscLowerHigh
}
