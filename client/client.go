// Package client is a Go client for the foodhub API that behaves the way
// the browser front end does: records are overlaid with bundled fixture
// data, and an unreachable backend falls back to the fixtures entirely.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"foodhub/fixtures"
	"foodhub/merge"
	"foodhub/resolver"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means the backend could not serve the request and no
	// fixture could stand in for it.
	ErrUnavailable = errors.New("backend unavailable")
)

const defaultTimeout = 10 * time.Second

// StatusError is a non-2xx response other than 404 or a server failure.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

type Client struct {
	base   string
	http   *http.Client
	table  *fixtures.Table
	merger *merge.Merger
	log    *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, table *fixtures.Table, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		table:  table,
		merger: merge.New(table),
		log:    log.Named("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errFallback marks failures the fixture dataset may stand in for.
var errFallback = errors.New("fallback")

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errFallback, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s returned %d", errFallback, path, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		var body struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &body)
		return &StatusError{Code: resp.StatusCode, Message: body.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fallingBack(what string, err error) {
	c.log.Warn("api unavailable, using bundled data", zap.String("request", what), zap.Error(err))
}

// FixtureRestaurant returns the bundled record for a legacy id.
func (c *Client) FixtureRestaurant(id string) (merge.Record, bool) {
	if resolver.ClassifyKind(id) != resolver.Legacy {
		return merge.Record{}, false
	}
	fr, ok := c.table.Restaurant(id)
	if !ok {
		return merge.Record{}, false
	}
	return merge.FixtureRecord(fr), true
}

// FixtureRestaurants returns every bundled record.
func (c *Client) FixtureRestaurants() []merge.Record {
	frs := c.table.Restaurants()
	out := make([]merge.Record, 0, len(frs))
	for _, fr := range frs {
		out = append(out, merge.FixtureRecord(fr))
	}
	return out
}

// listed is a restaurant as the list endpoint returns it, with items as
// bare ids. The ids are dropped so the overlay can supply a menu.
type listed struct {
	merge.Record
	Items []string `json:"items"`
}

// Restaurants lists restaurants, each overlaid with its fixture.
func (c *Client) Restaurants(ctx context.Context) ([]merge.Record, error) {
	var recs []listed
	err := c.get(ctx, "/api/restaurants", &recs)
	if errors.Is(err, errFallback) {
		c.fallingBack("restaurants", err)
		return c.FixtureRestaurants(), nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]merge.Record, 0, len(recs))
	for _, l := range recs {
		out = append(out, c.merger.Merge(l.Record, l.ID))
	}
	return out, nil
}

// Restaurant fetches one restaurant by any identifier the API accepts and
// overlays its fixture.
func (c *Client) Restaurant(ctx context.Context, id string) (merge.Record, error) {
	var rec merge.Record
	err := c.get(ctx, "/api/restaurants/"+url.PathEscape(id), &rec)
	if errors.Is(err, errFallback) {
		c.fallingBack("restaurant "+id, err)
		if fixture, ok := c.FixtureRestaurant(id); ok {
			return fixture, nil
		}
		return merge.Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return merge.Record{}, err
	}
	return c.merger.Merge(rec, id), nil
}

// Items lists every item.
func (c *Client) Items(ctx context.Context) ([]merge.MenuEntry, error) {
	var items []merge.MenuEntry
	err := c.get(ctx, "/api/items", &items)
	if errors.Is(err, errFallback) {
		c.fallingBack("items", err)
		var out []merge.MenuEntry
		for _, fr := range c.table.Restaurants() {
			out = append(out, merge.FixtureItems(fr)...)
		}
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	return normalized(items), nil
}

// ItemsForRestaurant lists the items of one restaurant.
func (c *Client) ItemsForRestaurant(ctx context.Context, restaurantID string) ([]merge.MenuEntry, error) {
	var items []merge.MenuEntry
	err := c.get(ctx, "/api/items/restaurant/"+url.PathEscape(restaurantID), &items)
	if errors.Is(err, errFallback) {
		c.fallingBack("items of "+restaurantID, err)
		if resolver.ClassifyKind(restaurantID) == resolver.Legacy {
			if fr, ok := c.table.Restaurant(restaurantID); ok {
				return merge.FixtureItems(fr), nil
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return normalized(items), nil
}

func normalized(items []merge.MenuEntry) []merge.MenuEntry {
	if items == nil {
		return []merge.MenuEntry{}
	}
	for i := range items {
		items[i].Normalize()
	}
	return items
}
