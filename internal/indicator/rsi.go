package indicator

// RSI returns the Wilder relative strength index as a same-length series.
// Indices before the warm-up window are padded with the neutral value 50.
func RSI(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = 50
	}
	if period <= 0 || len(series) < period+1 {
		return out
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss < epsilon {
		if avgGain < epsilon {
			return 50 // flat series, no conviction either way
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
