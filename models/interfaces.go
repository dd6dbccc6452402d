package models

import "context"

// CandleProvider supplies candle history for one timeframe of the pair.
type CandleProvider interface {
	Candles(ctx context.Context, tf Timeframe) ([]Candle, error)
}

// EventProvider supplies upcoming economic calendar events.
type EventProvider interface {
	UpcomingEvents(ctx context.Context) ([]EconomicEvent, error)
}

// SignalSink receives emitted signals (notification, persistence).
type SignalSink interface {
	SendSignal(ctx context.Context, sig TradingSignal) error
}
