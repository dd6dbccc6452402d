package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/config"
	"github.com/quantfx/signalengine/internal/calendar"
	"github.com/quantfx/signalengine/internal/database"
	"github.com/quantfx/signalengine/internal/engine"
	"github.com/quantfx/signalengine/internal/history"
	"github.com/quantfx/signalengine/internal/macro"
	"github.com/quantfx/signalengine/internal/market"
	"github.com/quantfx/signalengine/internal/metrics"
	"github.com/quantfx/signalengine/internal/notify"
	"github.com/quantfx/signalengine/models"
)

func main() {
	lvl, _ := zerolog.ParseLevel(envOr("LOG_LEVEL", "info"))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config failed")
	}

	marketClient := market.NewClient(market.Config{
		APIKey: cfg.TwelveDataAPIKey,
		Symbol: cfg.Signal.Pair,
	})
	calendarClient := calendar.NewClient(cfg.CalendarFeedURL)
	macroEngine := macro.NewEngine(macro.NewFREDClient(cfg.FREDAPIKey))
	eng := engine.New(cfg.Signal)
	store := history.NewStore(cfg.HistorySize)

	var db *database.DB
	if cfg.DBHost != "" {
		db, err = database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("initializing database failed")
		}
		defer db.Close()
	} else {
		log.Warn().Msg("DB_HOST not set, signals will not be persisted")
	}

	var telegram *notify.Telegram
	if cfg.TelegramToken != "" {
		telegram, err = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("initializing telegram failed")
		}
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	if db != nil {
		health.SetDatabaseOK(true)
	}
	metricsServer := metrics.NewServer(cfg.MetricsAddr, health)
	metricsServer.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("pair", cfg.Signal.Pair).
		Dur("interval", cfg.EvalInterval).
		Msg("signal engine started")

	runCycle(ctx, cfg, marketClient, calendarClient, macroEngine, eng, store, db, telegram, m, health)

	ticker := time.NewTicker(cfg.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			metricsServer.Stop(shutdownCtx)
			cancel()
			return
		case <-ticker.C:
			runCycle(ctx, cfg, marketClient, calendarClient, macroEngine, eng, store, db, telegram, m, health)
		}
	}
}

func runCycle(
	ctx context.Context,
	cfg *config.AppConfig,
	marketClient *market.Client,
	calendarClient *calendar.Client,
	macroEngine *macro.Engine,
	eng *engine.Engine,
	store *history.Store,
	db *database.DB,
	telegram *notify.Telegram,
	m *metrics.Metrics,
	health *metrics.HealthStatus,
) {
	start := time.Now()
	defer func() {
		m.EvaluationDur.Observe(time.Since(start).Seconds())
		health.SetLastEvaluation(time.Now())
	}()

	m.EvaluationsTotal.Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	snap, err := marketClient.MultiTimeframe(fetchCtx)
	if err != nil {
		log.Error().Err(err).Msg("market data fetch failed")
		m.FetchErrors.WithLabelValues("market").Inc()
		health.SetMarketDataOK(false)
		return
	}
	health.SetMarketDataOK(true)

	events, err := calendarClient.UpcomingEvents(fetchCtx)
	if err != nil {
		// Without the calendar the news gate cannot run; skip the cycle
		// rather than trade blind into a release.
		log.Error().Err(err).Msg("calendar fetch failed")
		m.FetchErrors.WithLabelValues("calendar").Inc()
		health.SetCalendarOK(false)
		return
	}
	health.SetCalendarOK(true)

	bias := macroEngine.CurrentDirection(fetchCtx)

	sig, outcome := eng.Evaluate(engine.Input{
		M15:       snap.M15,
		H1:        snap.H1,
		H4:        snap.H4,
		MacroBias: bias,
		Events:    events,
		Now:       time.Now().UnixMilli(),
	})
	if outcome != engine.OutcomeAccepted {
		log.Debug().Str("outcome", string(outcome)).Msg("no signal this cycle")
		m.RejectionsTotal.WithLabelValues(string(outcome)).Inc()
		return
	}

	m.SignalsTotal.WithLabelValues(string(sig.Action)).Inc()
	m.LastScore.Set(sig.ConfluenceScore)

	store.Add(*sig)
	m.ActiveSignals.Set(float64(len(store.Active())))

	if db != nil {
		if err := db.SaveSignal(*sig); err != nil {
			log.Error().Err(err).Str("id", sig.ID).Msg("persisting signal failed")
			health.SetDatabaseOK(false)
		} else {
			health.SetDatabaseOK(true)
		}
	}
	if telegram != nil {
		if err := telegram.SendSignal(ctx, *sig); err != nil {
			log.Error().Err(err).Str("id", sig.ID).Msg("sending notification failed")
		}
	}

	logSignal(*sig)
}

func logSignal(sig models.TradingSignal) {
	log.Info().
		Str("id", sig.ID).
		Str("action", string(sig.Action)).
		Str("grade", string(sig.Grade)).
		Float64("entry", sig.Entry).
		Float64("stop", sig.StopLoss).
		Float64("tp1", sig.TakeProfit1).
		Float64("size", sig.Size).
		Str("reason", sig.Reason).
		Msg("signal emitted")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
