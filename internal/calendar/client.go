// Package calendar fetches upcoming economic events so evaluations can
// pause around high-impact USD and JPY releases.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/models"
)

// defaultFeedURL is the weekly Forex Factory calendar mirror.
const defaultFeedURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.json"

// Client fetches the weekly calendar feed. It satisfies
// models.EventProvider.
type Client struct {
	httpClient *http.Client
	feedURL    string
	retryTime  time.Duration
	logger     zerolog.Logger
}

func NewClient(feedURL string) *Client {
	if feedURL == "" {
		feedURL = defaultFeedURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		feedURL:    feedURL,
		retryTime:  30 * time.Second,
		logger:     log.With().Str("component", "calendar_client").Logger(),
	}
}

type feedEvent struct {
	Title   string `json:"title"`
	Country string `json:"country"`
	Date    string `json:"date"`
	Impact  string `json:"impact"`
}

// UpcomingEvents returns all events in the current weekly feed, mapped to
// the internal event model. Entries with unparseable dates are skipped.
func (c *Client) UpcomingEvents(ctx context.Context) ([]models.EconomicEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
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
	backoffStrategy.MaxElapsedTime = c.retryTime

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var feed []feedEvent
	if err := json.Unmarshal(body, &feed); err != nil {
		c.logger.Error().Err(err).Msg("Error parsing calendar feed")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	events := make([]models.EconomicEvent, 0, len(feed))
	for _, fe := range feed {
		ev, err := mapEvent(fe)
		if err != nil {
			c.logger.Warn().Err(err).Str("title", fe.Title).Msg("skipping calendar entry")
			continue
		}
		events = append(events, ev)
	}

	c.logger.Debug().Int("count", len(events)).Msg("Fetched calendar events")
	return events, nil
}

func mapEvent(fe feedEvent) (models.EconomicEvent, error) {
	t, err := time.Parse(time.RFC3339, fe.Date)
	if err != nil {
		return models.EconomicEvent{}, fmt.Errorf("parsing date %q: %w", fe.Date, err)
	}
	return models.EconomicEvent{
		Timestamp: models.TimeToMs(t),
		Currency:  strings.ToUpper(fe.Country),
		Impact:    mapImpact(fe.Impact),
		Title:     fe.Title,
	}, nil
}

func mapImpact(s string) models.Impact {
	switch strings.ToLower(s) {
	case "high":
		return models.ImpactHigh
	case "medium":
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}
