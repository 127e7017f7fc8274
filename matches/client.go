// Package matches reads and administers matches on the voting backend.
package matches

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-mvp-voting/backend"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RouteMatches   = "/matches/"
	RouteActive    = "/matches/active/matches"
	RouteLastMatch = "/matches/last-match"
)

// Client wraps the match endpoints. Active matches are cached until a forced
// reload or an admin write.
type Client struct {
	doer   backend.Doer
	logger zerolog.Logger

	mu     sync.RWMutex
	active []Match
	loaded bool
}

type ClientOption func(*Client)

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(doer backend.Doer, options ...ClientOption) *Client {
	c := &Client{doer: doer, logger: log.Logger}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) All(ctx context.Context) ([]Match, error) {
	var out []Match
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: RouteMatches}, &out); err != nil {
		return nil, fmt.Errorf("[matches.Client.All] %w", err)
	}
	return out, nil
}

// Active returns matches that are scheduled or in progress. The last
// successful result is served from memory unless force is set.
func (c *Client) Active(ctx context.Context, force bool) ([]Match, error) {
	if !force {
		c.mu.RLock()
		if c.loaded {
			cached := append([]Match(nil), c.active...)
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()
	}

	var out []Match
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: RouteActive}, &out); err != nil {
		return nil, fmt.Errorf("[matches.Client.Active] %w", err)
	}

	c.mu.Lock()
	c.active = append([]Match(nil), out...)
	c.loaded = true
	c.mu.Unlock()

	c.logger.Debug().Int("count", len(out)).Msg("active matches loaded")
	return out, nil
}

// Invalidate drops the cached active matches.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
	c.loaded = false
}

func (c *Client) ByID(ctx context.Context, id string) (*Match, error) {
	var out Match
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: matchPath(id)}, &out); err != nil {
		return nil, fmt.Errorf("[matches.Client.ByID] %s: %w", id, err)
	}
	return &out, nil
}

// LastMatch returns the most recently finished match, or nil when there is none.
func (c *Client) LastMatch(ctx context.Context) (*Match, error) {
	var out *Match
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: RouteLastMatch}, &out); err != nil {
		return nil, fmt.Errorf("[matches.Client.LastMatch] %w", err)
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Match, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[matches.Client.Create] %w", err)
	}
	return c.write(ctx, "[matches.Client.Create]", backend.Request{Method: http.MethodPost, Path: RouteMatches, Body: req})
}

func (c *Client) Update(ctx context.Context, id string, req UpdateRequest) (*Match, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[matches.Client.Update] %w", err)
	}
	return c.write(ctx, "[matches.Client.Update]", backend.Request{Method: http.MethodPut, Path: matchPath(id), Body: req})
}

// Start opens the voting window for the match.
func (c *Client) Start(ctx context.Context, id string) (*Match, error) {
	return c.write(ctx, "[matches.Client.Start]", backend.Request{Method: http.MethodPut, Path: matchPath(id) + "/start"})
}

// Finish closes the voting window for the match.
func (c *Client) Finish(ctx context.Context, id string) (*Match, error) {
	return c.write(ctx, "[matches.Client.Finish]", backend.Request{Method: http.MethodPut, Path: matchPath(id) + "/finish"})
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodDelete, Path: matchPath(id)}, nil); err != nil {
		return fmt.Errorf("[matches.Client.Delete] %s: %w", id, err)
	}
	c.Invalidate()
	return nil
}

func (c *Client) write(ctx context.Context, op string, req backend.Request) (*Match, error) {
	var out Match
	if err := c.doer.Do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, req.Path, err)
	}
	c.Invalidate()
	return &out, nil
}

func matchPath(id string) string {
	return RouteMatches + url.PathEscape(id)
}
