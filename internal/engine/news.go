package engine

import "github.com/quantfx/signalengine/models"

// newsBlackoutMs is the half-width of the window around a high-impact
// event during which no signal may be emitted.
const newsBlackoutMs = 60 * 60 * 1000

// inNewsBlackout reports whether any HIGH-impact USD or JPY event lies
// within ±60 minutes of the evaluation timestamp.
func inNewsBlackout(events []models.EconomicEvent, ts int64) (models.EconomicEvent, bool) {
	for _, ev := range events {
		if ev.Impact != models.ImpactHigh {
			continue
		}
		if ev.Currency != "USD" && ev.Currency != "JPY" {
			continue
		}
		delta := ev.Timestamp - ts
		if delta < 0 {
			delta = -delta
		}
		if delta <= newsBlackoutMs {
			return ev, true
		}
	}
	return models.EconomicEvent{}, false
}
