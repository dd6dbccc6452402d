package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const fredBaseURL = "https://api.stlouisfed.org/fred"

// FREDClient fetches series observations from the FRED API. It satisfies
// SeriesFetcher.
type FREDClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	logger     zerolog.Logger
}

func NewFREDClient(apiKey string) *FREDClient {
	return &FREDClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		apiKey:     apiKey,
		logger:     log.With().Str("component", "fred_client").Logger(),
	}
}

type observationsResponse struct {
	Observations []Observation `json:"observations"`
}

// Observations returns up to limit data points for the series, newest
// first.
func (c *FREDClient) Observations(ctx context.Context, seriesID string, limit int) ([]Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	params.Set("limit", fmt.Sprintf("%d", limit))

	endpoint := fmt.Sprintf("%s/series/observations?%s", fredBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

	var data observationsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("series", seriesID).Msg("Error parsing FRED response")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	c.logger.Debug().Str("series", seriesID).Int("count", len(data.Observations)).Msg("Fetched observations")
	return data.Observations, nil
}
