package client

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"foodhub/merge"
)

// Source says where a rendered record came from.
type Source int

const (
	FromFixture Source = iota
	FromNetwork
)

func (s Source) String() string {
	if s == FromNetwork {
		return "network"
	}
	return "fixture"
}

// Loader drives a restaurant view. Each Show renders the bundled record at
// once, when there is one, and replaces it with the API result once that
// arrives. A Show supersedes every earlier one, so a slow response for a
// restaurant the view has moved away from is never rendered.
type Loader struct {
	client *Client
	latest Latest[merge.Record]
	wg     sync.WaitGroup
	log    *zap.Logger
}

func NewLoader(c *Client) *Loader {
	return &Loader{client: c, log: c.log.Named("loader")}
}

// Show renders restaurant id through render. Calls to Show are expected
// from a single goroutine; render is never called concurrently with itself.
func (l *Loader) Show(ctx context.Context, id string, render func(merge.Record, Source)) {
	ctx, gen := l.latest.Begin(ctx)
	if rec, ok := l.client.FixtureRestaurant(id); ok {
		render(rec, FromFixture)
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		rec, err := l.client.Restaurant(ctx, id)
		err = l.latest.Finish(gen, rec, err, func(rec merge.Record, err error) {
			if err == nil {
				render(rec, FromNetwork)
			}
		})
		switch {
		case err == nil, errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		default:
			l.log.Warn("restaurant load failed", zap.String("id", id), zap.Error(err))
		}
	}()
}

// Wait blocks until every background fetch has finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close drops the request in flight and waits for background work.
func (l *Loader) Close() {
	l.latest.Stop()
	l.wg.Wait()
}
