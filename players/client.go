// Package players manages the squad through the backend's admin endpoints.
package players

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-mvp-voting/backend"
)

const RoutePlayers = "/players/"

type Client struct {
	doer backend.Doer
}

func NewClient(doer backend.Doer) *Client {
	return &Client{doer: doer}
}

func (c *Client) List(ctx context.Context, page Pagination) (*ListResponse, error) {
	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("[players.Client.List] %w", err)
	}
	var out ListResponse
	err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: RoutePlayers, Query: page.Query()}, &out)
	if err != nil {
		return nil, fmt.Errorf("[players.Client.List] %w", err)
	}
	return &out, nil
}

func (c *Client) ByID(ctx context.Context, id string) (*Player, error) {
	var out Player
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: playerPath(id)}, &out); err != nil {
		return nil, fmt.Errorf("[players.Client.ByID] %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Player, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[players.Client.Create] %w", err)
	}
	var out Player
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodPost, Path: RoutePlayers, Body: req}, &out); err != nil {
		return nil, fmt.Errorf("[players.Client.Create] %w", err)
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, id string, req UpdateRequest) (*Player, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[players.Client.Update] %w", err)
	}
	var out Player
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodPut, Path: playerPath(id), Body: req}, &out); err != nil {
		return nil, fmt.Errorf("[players.Client.Update] %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.doer.Do(ctx, backend.Request{Method: http.MethodDelete, Path: playerPath(id)}, nil); err != nil {
		return fmt.Errorf("[players.Client.Delete] %s: %w", id, err)
	}
	return nil
}

// ToggleActive flips the player's active flag from its currently known value.
func (c *Client) ToggleActive(ctx context.Context, id string, currentlyActive bool) (*Player, error) {
	next := !currentlyActive
	return c.Update(ctx, id, UpdateRequest{Active: &next})
}

func playerPath(id string) string {
	return RoutePlayers + url.PathEscape(id)
}
