package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/quantfx/signalengine/models"
)

// interval strings accepted by the Twelve Data time_series endpoint.
var intervals = map[models.Timeframe]string{
	models.TimeframeM15: "15min",
	models.TimeframeH1:  "1h",
	models.TimeframeH4:  "4h",
}

// Config holds the market data connection parameters.
type Config struct {
	APIKey         string
	Symbol         string
	OutputSize     int
	RequestTimeout time.Duration
}

// Client fetches OHLC candles from Twelve Data with rate limiting and
// retries. It satisfies models.CandleProvider.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        Config
	logger     zerolog.Logger
}

// NewClient creates a new API client with rate limiting.
func NewClient(cfg Config) *Client {
	if cfg.OutputSize <= 0 {
		cfg.OutputSize = 250
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5), // 5 requests per second
		cfg:        cfg,
		logger:     log.With().Str("component", "market_client").Logger(),
	}
}

type timeSeriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

type timeSeriesResponse struct {
	Values []timeSeriesValue `json:"values"`
	Status string            `json:"status"`
}

// Candles fetches one timeframe's series, oldest first.
func (c *Client) Candles(ctx context.Context, tf models.Timeframe) ([]models.Candle, error) {
	interval, ok := intervals[tf]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	url := fmt.Sprintf(
		"https://api.twelvedata.com/time_series?symbol=%s&interval=%s&outputsize=%d&apikey=%s",
		c.cfg.Symbol,
		interval,
		c.cfg.OutputSize,
		c.cfg.APIKey,
	)

	c.logger.Debug().Str("timeframe", string(tf)).Msg("Fetching candles")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if strings.Contains(string(body), `"status":"error"`) {
		c.logger.Error().Str("response", string(body)).Msg("Twelve Data API error")
		return nil, fmt.Errorf("Twelve Data API error: %s", string(body))
	}

	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if len(data.Values) == 0 {
		c.logger.Warn().Str("timeframe", string(tf)).Msg("No candles in response")
		return nil, fmt.Errorf("empty data returned")
	}

	candles := make([]models.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		candle, err := parseValue(v)
		if err != nil {
			return nil, fmt.Errorf("parsing candle: %w", err)
		}
		candles = append(candles, candle)
	}

	// Oldest first for indicator math.
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	c.logger.Debug().Str("timeframe", string(tf)).Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

func parseValue(v timeSeriesValue) (models.Candle, error) {
	ts, err := parseDatetime(v.Datetime)
	if err != nil {
		return models.Candle{}, err
	}
	open, err := strconv.ParseFloat(v.Open, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("open %q: %w", v.Open, err)
	}
	high, err := strconv.ParseFloat(v.High, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("high %q: %w", v.High, err)
	}
	low, err := strconv.ParseFloat(v.Low, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("low %q: %w", v.Low, err)
	}
	closePrice, err := strconv.ParseFloat(v.Close, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("close %q: %w", v.Close, err)
	}
	var volume float64
	if v.Volume != "" {
		volume, _ = strconv.ParseFloat(v.Volume, 64)
	}
	return models.Candle{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

// parseDatetime accepts the two shapes Twelve Data returns: a full
// timestamp for intraday series and a bare date for daily ones.
func parseDatetime(s string) (int64, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return models.TimeToMs(t), nil
		}
	}
	return 0, fmt.Errorf("unrecognized datetime %q", s)
}

// Snapshot is the multi-timeframe batch one evaluation cycle consumes.
type Snapshot struct {
	M15 []models.Candle
	H1  []models.Candle
	H4  []models.Candle
}

// MultiTimeframe fetches all three series in parallel.
func (c *Client) MultiTimeframe(ctx context.Context) (Snapshot, error) {
	var (
		snap     Snapshot
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	fetch := func(tf models.Timeframe, dst *[]models.Candle) {
		defer wg.Done()
		candles, err := c.Candles(ctx, tf)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to fetch %s candles: %w", tf, err)
			}
			return
		}
		*dst = candles
	}

	wg.Add(3)
	go fetch(models.TimeframeM15, &snap.M15)
	go fetch(models.TimeframeH1, &snap.H1)
	go fetch(models.TimeframeH4, &snap.H4)
	wg.Wait()

	if firstErr != nil {
		return Snapshot{}, firstErr
	}
	return snap, nil
}
