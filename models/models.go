package models

// Timeframe identifies one of the candle series the engine consumes.
type Timeframe string

const (
	TimeframeH4  Timeframe = "H4"
	TimeframeH1  Timeframe = "H1"
	TimeframeM15 Timeframe = "M15"
)

// FactorType groups confluence factors by the kind of evidence they carry.
type FactorType string

const (
	FactorTrend      FactorType = "TREND"
	FactorMomentum   FactorType = "MOMENTUM"
	FactorVolatility FactorType = "VOLATILITY"
	FactorLevel      FactorType = "LEVEL"
	FactorMacro      FactorType = "MACRO"
)

// Direction is an explicit directional claim. Factors carry it instead of
// encoding direction in their name, and the macro bias reuses it.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// SignalAction is the side of an emitted trade signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
)

// Confidence is the coarse quality bucket derived from the confluence score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// Grade is the letter quality label, distinct from Confidence.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
)

// SignalStatus tracks a signal through its lifecycle.
type SignalStatus string

const (
	StatusPending   SignalStatus = "PENDING"
	StatusFilled    SignalStatus = "FILLED"
	StatusMissed    SignalStatus = "MISSED"
	StatusCancelled SignalStatus = "CANCELLED"
)

// Impact classifies economic calendar events.
type Impact string

const (
	ImpactHigh   Impact = "HIGH"
	ImpactMedium Impact = "MEDIUM"
	ImpactLow    Impact = "LOW"
)

// Candle represents a single price candle. Timestamp is Unix milliseconds.
// Series are ordered ascending by timestamp with no duplicates.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume,omitempty"`
}

// ConfluenceFactor is one weighted claim about market state. Weight is the
// factor's contribution to the aggregate score; it can be negative when the
// macro bias argues against the technical picture.
type ConfluenceFactor struct {
	Type      FactorType `json:"type"`
	Name      string     `json:"name"`
	Timeframe Timeframe  `json:"timeframe,omitempty"`
	Direction Direction  `json:"direction"`
	Value     string     `json:"value"`
	Weight    float64    `json:"weight"`
}

// EconomicEvent is a calendar entry supplied by the news collaborator.
type EconomicEvent struct {
	Timestamp int64  `json:"timestamp"`
	Currency  string `json:"currency"`
	Impact    Impact `json:"impact"`
	Title     string `json:"title,omitempty"`
}

// TradingSignal is the engine's sole output artifact.
type TradingSignal struct {
	ID        string       `json:"id"`
	Timestamp int64        `json:"timestamp"`
	Pair      string       `json:"pair"`
	Action    SignalAction `json:"action"`

	Confidence Confidence `json:"confidence"`
	Grade      Grade      `json:"grade"`

	Entry       float64 `json:"entry"`
	StopLoss    float64 `json:"stop_loss"`
	TakeProfit1 float64 `json:"take_profit_1"`
	TakeProfit2 float64 `json:"take_profit_2"`

	RiskReward float64 `json:"risk_reward"`
	Size       float64 `json:"size"`
	RiskAmount float64 `json:"risk_amount"`

	ConfluenceScore   float64            `json:"confluence_score"`
	ConfluenceFactors []ConfluenceFactor `json:"confluence_factors"`

	MacroBias Direction `json:"macro_bias,omitempty"`
	ATR       float64   `json:"atr"`
	Reason    string    `json:"reason"`

	Status    SignalStatus `json:"status"`
	FilledAt  *int64       `json:"filled_at,omitempty"`
	ExitPrice *float64     `json:"exit_price,omitempty"`
	PnL       *float64     `json:"pnl,omitempty"`
}

// SignalConfig is the immutable per-engine configuration.
type SignalConfig struct {
	Pair                  string  `json:"pair"`
	MinConfluenceScore    float64 `json:"min_confluence_score"`
	MinRiskReward         float64 `json:"min_risk_reward"`
	MaxDailySignals       int     `json:"max_daily_signals"`
	RequireMacroAlignment bool    `json:"require_macro_alignment"`
	MacroWeight           float64 `json:"macro_weight"`
	AccountSize           float64 `json:"account_size"`
	RiskPerTrade          float64 `json:"risk_per_trade"`
	EnableH4              bool    `json:"enable_h4"`
	EnableH1              bool    `json:"enable_h1"`
	EnableM15             bool    `json:"enable_m15"`
}

// DefaultSignalConfig returns the documented defaults.
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		Pair:               "USD/JPY",
		MinConfluenceScore: 3.0,
		MinRiskReward:      2.0,
		MaxDailySignals:    3,
		MacroWeight:        1.5,
		AccountSize:        10000,
		RiskPerTrade:       0.01,
		EnableH4:           true,
		EnableH1:           true,
		EnableM15:          true,
	}
}

// SignalPerformance aggregates closed signals over a time window.
type SignalPerformance struct {
	TotalSignals int            `json:"total_signals"`
	WinRate      float64        `json:"win_rate"`
	AverageRR    float64        `json:"average_rr"`
	AveragePnL   float64        `json:"average_pnl"`
	BestSignal   *TradingSignal `json:"best_signal,omitempty"`
	WorstSignal  *TradingSignal `json:"worst_signal,omitempty"`
	Period       string         `json:"period"`
}
