package market

import "github.com/quantfx/signalengine/models"

// Resample aggregates consecutive candles into bars of `factor` candles
// each (4 for M15 to H1, 16 for M15 to H4). A trailing partial bucket is
// dropped so only closed bars are returned. Used by the replay tool to
// derive higher timeframes from a single M15 file.
func Resample(candles []models.Candle, factor int) []models.Candle {
	if factor <= 1 || len(candles) < factor {
		return nil
	}
	out := make([]models.Candle, 0, len(candles)/factor)
	for i := 0; i+factor <= len(candles); i += factor {
		bucket := candles[i : i+factor]
		bar := models.Candle{
			Timestamp: bucket[0].Timestamp,
			Open:      bucket[0].Open,
			High:      bucket[0].High,
			Low:       bucket[0].Low,
			Close:     bucket[len(bucket)-1].Close,
		}
		for _, c := range bucket {
			if c.High > bar.High {
				bar.High = c.High
			}
			if c.Low < bar.Low {
				bar.Low = c.Low
			}
			bar.Volume += c.Volume
		}
		out = append(out, bar)
	}
	return out
}
