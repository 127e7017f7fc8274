// Package voting checks vote eligibility, casts votes and reads results.
package voting

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/jrsteele09/go-mvp-voting/backend"
	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	RouteVotes    = "/votes"
	RouteValidate = "/votes/validate/"
)

type Client struct {
	doer   backend.Doer
	logger zerolog.Logger

	submissions singleflight.Group
	mu          sync.Mutex
	inFlight    map[string]string // matchID -> playerID
}

type ClientOption func(*Client)

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(doer backend.Doer, options ...ClientOption) *Client {
	c := &Client{
		doer:     doer,
		logger:   log.Logger,
		inFlight: make(map[string]string),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Validate asks the backend whether the current user may vote on matchID.
// The answer is time dependent and never cached.
func (c *Client) Validate(ctx context.Context, matchID string) (*Eligibility, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, fmt.Errorf("[voting.Client.Validate] %w: match id is required", apperrors.ErrInvalidRequest)
	}
	var out Eligibility
	err := c.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: RouteValidate + url.PathEscape(matchID)}, &out)
	if err != nil {
		return nil, fmt.Errorf("[voting.Client.Validate] %s: %w", matchID, err)
	}
	return &out, nil
}

// CreateVote casts a vote. Concurrent submissions of the same vote share one
// request; a concurrent submission for a different player on the same match
// fails with ErrSubmissionInFlight. A 400 or 409 from the backend is ErrVoteConflict.
func (c *Client) CreateVote(ctx context.Context, playerID, matchID string) (*Vote, error) {
	if strings.TrimSpace(playerID) == "" || strings.TrimSpace(matchID) == "" {
		return nil, fmt.Errorf("[voting.Client.CreateVote] %w: player and match ids are required", apperrors.ErrInvalidRequest)
	}

	c.mu.Lock()
	if pending, ok := c.inFlight[matchID]; ok && pending != playerID {
		c.mu.Unlock()
		return nil, fmt.Errorf("[voting.Client.CreateVote] %s: %w", matchID, apperrors.ErrSubmissionInFlight)
	}
	c.inFlight[matchID] = playerID
	c.mu.Unlock()

	v, err, shared := c.submissions.Do(matchID, func() (any, error) {
		defer func() {
			c.mu.Lock()
			delete(c.inFlight, matchID)
			c.mu.Unlock()
		}()
		return c.createVote(ctx, playerID, matchID)
	})
	if shared {
		c.logger.Debug().Str("match", matchID).Msg("duplicate vote submission collapsed")
	}
	if err != nil {
		return nil, err
	}
	vote := *v.(*Vote)
	return &vote, nil
}

func (c *Client) createVote(ctx context.Context, playerID, matchID string) (*Vote, error) {
	var out Vote
	err := c.doer.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   RouteVotes,
		Body:   CreateVoteRequest{PlayerID: playerID, MatchID: matchID},
	}, &out)
	if err != nil {
		switch apperrors.StatusCode(err) {
		case http.StatusBadRequest, http.StatusConflict:
			return nil, fmt.Errorf("[voting.Client.CreateVote] %w: %w", apperrors.ErrVoteConflict, err)
		}
		return nil, fmt.Errorf("[voting.Client.CreateVote] %w", err)
	}
	if out.PlayerID == "" {
		out.PlayerID = playerID
	}
	if out.MatchID == "" {
		out.MatchID = matchID
	}
	c.logger.Info().Str("match", matchID).Str("player", playerID).Msg("vote cast")
	return &out, nil
}

func (c *Client) Stats(ctx context.Context, matchID string) ([]PlayerStats, error) {
	var out []PlayerStats
	if err := c.doer.Do(ctx, resultsRequest(matchID, "stats"), &out); err != nil {
		return nil, fmt.Errorf("[voting.Client.Stats] %s: %w", matchID, err)
	}
	return out, nil
}

func (c *Client) Top3(ctx context.Context, matchID string) ([]PlayerStats, error) {
	var out []PlayerStats
	if err := c.doer.Do(ctx, resultsRequest(matchID, "top3"), &out); err != nil {
		return nil, fmt.Errorf("[voting.Client.Top3] %s: %w", matchID, err)
	}
	return out, nil
}

// Winner returns nil when the match has no votes yet.
func (c *Client) Winner(ctx context.Context, matchID string) (*PlayerStats, error) {
	var out *PlayerStats
	if err := c.doer.Do(ctx, resultsRequest(matchID, "winner"), &out); err != nil {
		return nil, fmt.Errorf("[voting.Client.Winner] %s: %w", matchID, err)
	}
	return out, nil
}

func (c *Client) TotalVotes(ctx context.Context, matchID string) (int, error) {
	var out TotalVotes
	if err := c.doer.Do(ctx, resultsRequest(matchID, "total-votes"), &out); err != nil {
		return 0, fmt.Errorf("[voting.Client.TotalVotes] %s: %w", matchID, err)
	}
	return int(out), nil
}

func resultsRequest(matchID, view string) backend.Request {
	return backend.Request{Method: http.MethodGet, Path: RouteVotes + "/" + url.PathEscape(matchID) + "/" + view}
}
