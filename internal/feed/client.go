// Package feed fetches and parses external calendar feeds.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Event is one parsed occurrence from a feed, before any caching or
// classification. Start/End follow the iCal convention: End is exclusive
// and represents the checkout date.
type Event struct {
	UID         string
	Start       time.Time
	End         time.Time
	Status      string
	Summary     string
	Description string
}

// Result is the outcome of fetching one feed.
type Result struct {
	Events []Event
	// ETag is the provider-supplied cache validator, when present.
	ETag string
}

// Client fetches and parses ICS feeds over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a feed client with the given per-fetch timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchEvents downloads and parses a feed URL. Any transport or parse
// failure is returned as an error; callers treat it as a per-unit failure.
func (c *Client) FetchEvents(ctx context.Context, feedURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("feed returned empty body")
	}

	events, err := Parse(body)
	if err != nil {
		return nil, err
	}

	return &Result{
		Events: events,
		ETag:   resp.Header.Get("ETag"),
	}, nil
}

// Parse parses raw ICS bytes into events. Events without usable dates are
// skipped rather than failing the whole feed.
func Parse(body []byte) ([]Event, error) {
	cal, err := ical.ParseCalendar(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, ok := parseVEvent(ve)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("feed contains no usable events")
	}

	return events, nil
}

func parseVEvent(ve *ical.VEvent) (Event, bool) {
	var ev Event

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		ev.Status = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, false
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return ev, false
	}
	if start.IsZero() || end.IsZero() {
		return ev, false
	}

	ev.Start = start.UTC()
	ev.End = end.UTC()
	return ev, true
}
