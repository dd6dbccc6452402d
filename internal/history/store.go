package history

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/models"
)

// DefaultCapacity bounds the in-memory history. Oldest signals are evicted
// first once the cap is reached.
const DefaultCapacity = 100

// USD/JPY contract constants for PnL settlement.
const (
	pipSize        = 0.01
	unitsPerLot    = 100_000
	pipValuePerLot = 10.0
)

// Update carries a lifecycle transition for a pending signal. ExitPrice is
// required when Status is FILLED so the PnL can be settled at once.
type Update struct {
	Status    models.SignalStatus
	FilledAt  int64
	ExitPrice float64
}

// Store is a bounded, concurrency-safe signal history. Signals enter as
// PENDING and may transition exactly once; after that they are immutable.
type Store struct {
	mu       sync.Mutex
	capacity int
	order    []string
	signals  map[string]*models.TradingSignal
	logger   zerolog.Logger
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		signals:  make(map[string]*models.TradingSignal),
		logger:   log.With().Str("component", "history").Logger(),
	}
}

// Add stores a copy of the signal, evicting the oldest entry when full.
func (s *Store) Add(sig models.TradingSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.signals[sig.ID]; exists {
		return
	}
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.signals, oldest)
		s.logger.Debug().Str("id", oldest).Msg("evicted oldest signal")
	}
	stored := sig
	s.order = append(s.order, stored.ID)
	s.signals[stored.ID] = &stored
}

// Get returns a copy of the signal with the given ID.
func (s *Store) Get(id string) (models.TradingSignal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok {
		return models.TradingSignal{}, false
	}
	return *sig, true
}

// Apply performs the single lifecycle transition of a pending signal. It
// fails if the signal is unknown or has already left PENDING. A FILLED
// transition settles the PnL from the exit price.
func (s *Store) Apply(id string, up Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok {
		return fmt.Errorf("signal %s not found", id)
	}
	if sig.Status != models.StatusPending {
		return fmt.Errorf("signal %s already %s", id, sig.Status)
	}
	switch up.Status {
	case models.StatusFilled:
		filledAt := up.FilledAt
		exit := up.ExitPrice
		pnl := settlePnL(sig, exit)
		sig.Status = models.StatusFilled
		sig.FilledAt = &filledAt
		sig.ExitPrice = &exit
		sig.PnL = &pnl
		s.logger.Info().Str("id", id).Float64("pnl", pnl).Msg("signal filled")
	case models.StatusMissed, models.StatusCancelled:
		sig.Status = up.Status
	default:
		return fmt.Errorf("invalid transition to %s", up.Status)
	}
	return nil
}

// settlePnL converts the exit price into USD PnL using standard USD/JPY
// pip accounting.
func settlePnL(sig *models.TradingSignal, exit float64) float64 {
	pips := (exit - sig.Entry) / pipSize
	if sig.Action == models.ActionSell {
		pips = -pips
	}
	lots := sig.Size / unitsPerLot
	return pips * lots * pipValuePerLot
}

// Active returns copies of all signals still in PENDING, oldest first.
func (s *Store) Active() []models.TradingSignal {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TradingSignal
	for _, id := range s.order {
		if sig := s.signals[id]; sig.Status == models.StatusPending {
			out = append(out, *sig)
		}
	}
	return out
}

// All returns copies of every stored signal, newest first.
func (s *Store) All() []models.TradingSignal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.TradingSignal, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.signals[s.order[i]])
	}
	return out
}

// ByDateRange returns copies of signals with from <= Timestamp < to,
// oldest first.
func (s *Store) ByDateRange(from, to int64) []models.TradingSignal {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TradingSignal
	for _, id := range s.order {
		sig := s.signals[id]
		if sig.Timestamp >= from && sig.Timestamp < to {
			out = append(out, *sig)
		}
	}
	return out
}

// Performance aggregates filled signals in the given window. An empty
// window yields a zeroed report rather than NaNs.
func (s *Store) Performance(from, to int64, period string) models.SignalPerformance {
	signals := s.ByDateRange(from, to)

	perf := models.SignalPerformance{Period: period}
	var wins int
	var sumRR, sumPnL float64
	var best, worst *models.TradingSignal

	for i := range signals {
		sig := signals[i]
		if sig.Status != models.StatusFilled || sig.PnL == nil {
			continue
		}
		perf.TotalSignals++
		sumRR += sig.RiskReward
		sumPnL += *sig.PnL
		if *sig.PnL > 0 {
			wins++
		}
		if best == nil || *sig.PnL > *best.PnL {
			cp := sig
			best = &cp
		}
		if worst == nil || *sig.PnL < *worst.PnL {
			cp := sig
			worst = &cp
		}
	}

	if perf.TotalSignals == 0 {
		return perf
	}
	perf.WinRate = float64(wins) / float64(perf.TotalSignals) * 100
	perf.AverageRR = sumRR / float64(perf.TotalSignals)
	perf.AveragePnL = sumPnL / float64(perf.TotalSignals)
	perf.BestSignal = best
	perf.WorstSignal = worst
	return perf
}
