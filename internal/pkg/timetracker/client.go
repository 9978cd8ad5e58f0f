// Package timetracker is the HTTP client for the external time tracking
// provider's daily summary report.
package timetracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	BaseURL   string
	APIKey    string
	CompanyID string
	Timeout   time.Duration
}

// UserSummary is one user's aggregate for a day. Values are kept raw so a
// single bad entry does not fail the whole report.
type UserSummary struct {
	UserID string          `json:"user_id"`
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Total  json.RawMessage `json:"total"`
}

type DailySummary struct {
	Date  string        `json:"date"` // YYYY-MM-DD
	Users []UserSummary `json:"users"`
}

type dailySummaryResponse struct {
	Dailies []DailySummary `json:"dailies"`
}

type Client interface {
	// DailySummaries returns per-user aggregates grouped by day for [from, to].
	DailySummaries(ctx context.Context, from, to time.Time) ([]DailySummary, error)
}

type HTTPClient struct {
	BaseURL   string
	APIKey    string
	CompanyID string
	HTTP      *http.Client
	cb        *gobreaker.CircuitBreaker
}

func NewClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	settings := gobreaker.Settings{
		Name:        "time-tracker",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &HTTPClient{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:    cfg.APIKey,
		CompanyID: cfg.CompanyID,
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			}),
		},
		cb: gobreaker.NewCircuitBreaker(settings),
	}
}

// DailySummaries implements Client.
func (c *HTTPClient) DailySummaries(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.fetch(ctx, from, to)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("time tracker circuit open: %w", err)
		}
		return nil, err
	}
	return result.([]DailySummary), nil
}

func (c *HTTPClient) fetch(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	u, err := url.Parse(fmt.Sprintf("%s/companies/%s/reports/daily", c.BaseURL, url.PathEscape(c.CompanyID)))
	if err != nil {
		return nil, fmt.Errorf("invalid time tracker url: %w", err)
	}
	q := u.Query()
	q.Set("start", from.UTC().Format(time.RFC3339))
	q.Set("end", to.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("time tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("time tracker status=%d, body=%s", resp.StatusCode, string(b))
	}

	var api dailySummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("failed to decode time tracker response: %w", err)
	}

	return api.Dailies, nil
}

// UsersOn indexes the users reported for date by user id. A user listed
// twice keeps the first entry.
func UsersOn(dailies []DailySummary, date time.Time) map[string]UserSummary {
	day := date.Format("2006-01-02")
	users := make(map[string]UserSummary)
	for _, d := range dailies {
		if d.Date != day {
			continue
		}
		for _, u := range d.Users {
			if _, seen := users[u.UserID]; !seen && u.UserID != "" {
				users[u.UserID] = u
			}
		}
	}
	return users
}

// Parse validates the summary and returns its UTC start, end and total seconds.
func (u UserSummary) Parse() (start, end time.Time, seconds int64, err error) {
	start, err = time.Parse(time.RFC3339, u.Start)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("invalid start %q", u.Start)
	}
	end, err = time.Parse(time.RFC3339, u.End)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("invalid end %q", u.End)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("end %q before start %q", u.End, u.Start)
	}

	raw := strings.Trim(strings.TrimSpace(string(u.Total)), `"`)
	seconds, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return time.Time{}, time.Time{}, 0, fmt.Errorf("invalid total %q", string(u.Total))
		}
		seconds = int64(f)
	}
	if seconds < 0 {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("negative total %d", seconds)
	}

	return start.UTC().Truncate(time.Second), end.UTC().Truncate(time.Second), seconds, nil
}
