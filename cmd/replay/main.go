// Replay runs the signal engine over a historical M15 CSV file and prints
// the resulting performance. Higher timeframes are derived by resampling,
// so one file drives all three series.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/internal/engine"
	"github.com/quantfx/signalengine/internal/history"
	"github.com/quantfx/signalengine/internal/market"
	"github.com/quantfx/signalengine/models"
)

const (
	warmupBars = 200
	// A pending signal that touches neither stop nor target within a
	// trading day of bars is cancelled.
	maxOpenBars = 96
)

func main() {
	csvPath := flag.String("csv", "", "path to M15 candle CSV (timestamp_ms,open,high,low,close[,volume])")
	bias := flag.String("bias", "", "fixed macro bias for the run: BULLISH, BEARISH or empty")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	if *csvPath == "" {
		log.Fatal().Msg("-csv is required")
	}
	candles, err := loadCandles(*csvPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading candles failed")
	}
	if len(candles) <= warmupBars {
		log.Fatal().Int("count", len(candles)).Msg("not enough candles for warm-up")
	}

	macroBias := models.Direction(*bias)

	cfg := models.DefaultSignalConfig()
	eng := engine.New(cfg)
	store := history.NewStore(history.DefaultCapacity)

	type openTrade struct {
		id      string
		openBar int
	}
	var open []openTrade
	var emitted int

	for i := warmupBars; i < len(candles); i++ {
		m15 := candles[:i+1]
		in := engine.Input{
			M15:       m15,
			H1:        market.Resample(m15, 4),
			H4:        market.Resample(m15, 16),
			MacroBias: macroBias,
			Now:       candles[i].Timestamp,
		}
		sig, outcome := eng.Evaluate(in)
		if outcome == engine.OutcomeAccepted {
			store.Add(*sig)
			open = append(open, openTrade{id: sig.ID, openBar: i})
			emitted++
		}

		// Settle open trades against this bar.
		bar := candles[i]
		var still []openTrade
		for _, tr := range open {
			stored, ok := store.Get(tr.id)
			if !ok || tr.openBar == i {
				still = append(still, tr)
				continue
			}
			if exit, hit := checkExit(stored, bar); hit {
				if err := store.Apply(tr.id, history.Update{
					Status:    models.StatusFilled,
					FilledAt:  bar.Timestamp,
					ExitPrice: exit,
				}); err != nil {
					log.Warn().Err(err).Str("id", tr.id).Msg("settling trade failed")
				}
				continue
			}
			if i-tr.openBar >= maxOpenBars {
				if err := store.Apply(tr.id, history.Update{Status: models.StatusCancelled}); err != nil {
					log.Warn().Err(err).Str("id", tr.id).Msg("cancelling trade failed")
				}
				continue
			}
			still = append(still, tr)
		}
		open = still
	}

	perf := store.Performance(candles[0].Timestamp, candles[len(candles)-1].Timestamp+1, "replay")

	fmt.Printf("Replay: %d bars, %d signals emitted, %d filled\n", len(candles), emitted, perf.TotalSignals)
	if perf.TotalSignals > 0 {
		fmt.Printf("Win rate: %.1f%%\n", perf.WinRate)
		fmt.Printf("Average PnL: $%.2f\n", perf.AveragePnL)
		fmt.Printf("Average RR: %.2f\n", perf.AverageRR)
		if perf.BestSignal != nil {
			fmt.Printf("Best: %s $%.2f\n", perf.BestSignal.ID, *perf.BestSignal.PnL)
		}
		if perf.WorstSignal != nil {
			fmt.Printf("Worst: %s $%.2f\n", perf.WorstSignal.ID, *perf.WorstSignal.PnL)
		}
	}
}

// checkExit reports whether the bar touched the trade's stop or first
// target. The stop is checked first, the conservative assumption when a
// single bar spans both.
func checkExit(sig models.TradingSignal, bar models.Candle) (float64, bool) {
	if sig.Action == models.ActionBuy {
		if bar.Low <= sig.StopLoss {
			return sig.StopLoss, true
		}
		if bar.High >= sig.TakeProfit1 {
			return sig.TakeProfit1, true
		}
		return 0, false
	}
	if bar.High >= sig.StopLoss {
		return sig.StopLoss, true
	}
	if bar.Low <= sig.TakeProfit1 {
		return sig.TakeProfit1, true
	}
	return 0, false
}

func loadCandles(path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var candles []models.Candle
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[0] == "timestamp" {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 fields, got %d", line, len(rec))
		}
		c, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseRecord(rec []string) (models.Candle, error) {
	ts, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("timestamp %q: %w", rec[0], err)
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d %q: %w", i+1, rec[i+1], err)
		}
		vals[i] = v
	}
	c := models.Candle{Timestamp: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}
	if len(rec) > 5 {
		c.Volume, _ = strconv.ParseFloat(rec[5], 64)
	}
	return c, nil
}
