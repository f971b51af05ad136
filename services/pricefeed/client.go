package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tokencast/models"
)

// Client fetches a single spot price from the price-feed HTTP API and
// revalidates it on an interval. Between revalidations every caller gets the
// cached observation.
type Client struct {
	url        string
	httpClient *http.Client

	cacheMu    sync.RWMutex
	price      float64
	fetchedAt  time.Time
	revalidate time.Duration
}

type priceResponse struct {
	Price float64 `json:"price"`
}

// NewClient creates a price feed client revalidating at the given interval.
func NewClient(url string, revalidate time.Duration) *Client {
	if revalidate <= 0 {
		revalidate = 30 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		revalidate: revalidate,
	}
}

// SpotPrice returns the current spot price, hitting the upstream API only
// when the cached observation has gone stale.
func (c *Client) SpotPrice(ctx context.Context) (float64, error) {
	c.cacheMu.RLock()
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.revalidate {
		price := c.price
		c.cacheMu.RUnlock()
		return price, nil
	}
	c.cacheMu.RUnlock()

	price, err := c.fetch(ctx)
	if err != nil {
		// Serve the stale observation if we have one; the next caller retries.
		c.cacheMu.RLock()
		defer c.cacheMu.RUnlock()
		if !c.fetchedAt.IsZero() {
			return c.price, nil
		}
		return 0, err
	}

	c.cacheMu.Lock()
	c.price = price
	c.fetchedAt = time.Now()
	c.cacheMu.Unlock()
	return price, nil
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: price feed request: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: price feed returned %s", models.ErrUpstream, resp.Status)
	}

	var response priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("%w: decode price feed response: %v", models.ErrUpstream, err)
	}
	return response.Price, nil
}
