// Package scrape pulls tariff order PDFs from the regulator's site: a JSON
// orders feed, an HTML tender-table listing, and a downloader that mirrors
// the linked documents locally for ingestion.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultSubjects are the order categories worth indexing.
var DefaultSubjects = []string{"Open Access", "Multi Year Tariff MYT"}

// recentWindowMonths bounds the feed scan; older orders are already indexed.
const recentWindowMonths = 3

// timestampLayout matches the feed's YYYYMMDD order dates.
const timestampLayout = "20060102"

// Attachment is one downloadable file on an order.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Order is one entry in the orders feed.
type Order struct {
	Title       string       `json:"title"`
	Terms       string       `json:"terms"`
	Timestamp   string       `json:"timestamp"`
	Attachments []Attachment `json:"attachment"`
}

type ordersFeed struct {
	Data []Order `json:"data"`
}

// Client fetches order listings and documents from the regulator's site.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// NewClient returns a scraping client with a 30 second request timeout.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		now:        time.Now,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// FetchOrders returns the feed entries newer than the three-month cutoff
// whose subject matches one of the given terms (DefaultSubjects when nil).
// The feed is ordered newest first, so the scan stops at the first entry
// past the cutoff.
func (c *Client) FetchOrders(ctx context.Context, feedURL string, subjects []string) ([]Order, error) {
	if len(subjects) == 0 {
		subjects = DefaultSubjects
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orders feed returned status %d", resp.StatusCode)
	}

	var feed ordersFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode orders feed: %w", err)
	}

	cutoff := c.now().AddDate(0, -recentWindowMonths, 0)
	var matched []Order
	for _, order := range feed.Data {
		issued, err := time.Parse(timestampLayout, order.Timestamp)
		if err != nil {
			c.logger.Warn("Skipping order with unreadable timestamp",
				"timestamp", order.Timestamp, "title", order.Title)
			continue
		}
		if issued.Before(cutoff) {
			c.logger.Debug("Reached orders older than the cutoff, stopping scan",
				"timestamp", order.Timestamp)
			break
		}
		if !matchesSubject(order, subjects) {
			continue
		}
		matched = append(matched, order)
	}
	return matched, nil
}

// matchesSubject reports whether the order belongs to one of the wanted
// categories. The feed labels orders in the terms field; the title is a
// fallback for entries that predate the field.
func matchesSubject(order Order, subjects []string) bool {
	for _, subject := range subjects {
		s := strings.ToLower(subject)
		if strings.Contains(strings.ToLower(order.Terms), s) ||
			strings.Contains(strings.ToLower(order.Title), s) {
			return true
		}
	}
	return false
}
