// Package mal reads public MyAnimeList anime lists.
//
// Requests are rate limited and go through a circuit breaker, so a burst of
// imports cannot hammer MyAnimeList or keep retrying while it is down.
package mal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/logging"
)

const (
	// DefaultBaseURL is the MyAnimeList site root.
	DefaultBaseURL = "https://myanimelist.net"

	// defaultMaxPages bounds one scrape. MyAnimeList serves 300 entries a page.
	defaultMaxPages = 11
)

// Entry is one row of a user's anime list.
type Entry struct {
	AnimeID         int64  `json:"anime_id"`
	Title           Title  `json:"anime_title"`
	URL             string `json:"anime_url"`
	Status          Status `json:"status"`
	Score           int    `json:"score"`
	NumEpisodes     int    `json:"anime_num_episodes"`
	WatchedEpisodes int    `json:"num_watched_episodes"`

	// ShowURL is URL resolved against the base URL of the client that
	// fetched the entry. Empty when URL is.
	ShowURL string `json:"-"`
}

// Title is a show title. MyAnimeList sends all-digit titles, such as "86",
// as JSON numbers.
type Title string

// UnmarshalJSON accepts a string or a number.
func (t *Title) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Title(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("anime title is neither a string nor a number: %s", data)
	}
	*t = Title(data)
	return nil
}

// StatusError is returned when MyAnimeList answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// Client fetches anime lists from MyAnimeList.
type Client struct {
	http     *http.Client
	baseURL  string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]Entry]
	maxPages int
	log      zerolog.Logger

	breakerThreshold uint32
	breakerTimeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBaseURL points the client at another host, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRateLimit sets how many requests per second may be sent.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithBreaker sets how many consecutive failures open the circuit and how
// long it stays open.
func WithBreaker(threshold uint32, timeout time.Duration) Option {
	return func(c *Client) {
		c.breakerThreshold = threshold
		c.breakerTimeout = timeout
	}
}

// WithMaxPages sets the most pages one scrape reads.
func WithMaxPages(n int) Option {
	return func(c *Client) { c.maxPages = n }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client. By default it sends at most one request a
// second and opens its circuit after 5 consecutive failures for 30 seconds.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:             &http.Client{Timeout: 10 * time.Second},
		baseURL:          DefaultBaseURL,
		limiter:          rate.NewLimiter(rate.Every(time.Second), 1),
		maxPages:         defaultMaxPages,
		log:              logging.Component("mal"),
		breakerThreshold: 5,
		breakerTimeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]Entry](gobreaker.Settings{
		Name:        "myanimelist",
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerThreshold
		},
		IsSuccessful: func(err error) bool {
			// A missing or private list is an answer, not an outage.
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < http.StatusInternalServerError && se.StatusCode != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c
}

// BreakerState returns the circuit breaker state for monitoring.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// ScrapeUserAnimeList reads a user's whole anime list, page by page, until
// an empty page or the page limit. Any failed page fails the scrape.
func (c *Client) ScrapeUserAnimeList(ctx context.Context, userName string) ([]Entry, error) {
	full := []Entry{}
	for page := 0; page < c.maxPages; page++ {
		entries, err := c.fetchPage(ctx, userName, len(full))
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			break
		}
		full = append(full, entries...)
	}
	c.log.Debug().Str("mal_user", userName).Int("entries", len(full)).Msg("anime list fetched")
	return full, nil
}

func (c *Client) fetchPage(ctx context.Context, userName string, offset int) ([]Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	pageURL := fmt.Sprintf("%s/animelist/%s/load.json?offset=%s", c.baseURL, url.PathEscape(userName), strconv.Itoa(offset))

	return c.breaker.Execute(func() ([]Entry, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
		}
		var entries []Entry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", pageURL, err)
		}
		for i := range entries {
			if entries[i].URL != "" {
				entries[i].ShowURL = c.baseURL + entries[i].URL
			}
		}
		return entries, nil
	})
}
