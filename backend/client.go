package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-mvp-voting/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 4 << 10

// Request describes one call against the REST backend. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Doer performs a request and decodes a successful JSON response into out (which may be nil).
type Doer interface {
	Do(ctx context.Context, req Request, out any) error
}

// Response is a completed round trip, successful or not.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Path       string
}

// Client is a thin JSON client for the voting backend. It never attaches
// credentials itself; callers pass an authorize hook to Send.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	logger     zerolog.Logger
}

var _ Doer = (*Client)(nil)

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[backend.NewClient] invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		headers:    map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Send performs a single round trip. A non-2xx status is not an error here;
// only transport and encoding failures are.
func (c *Client) Send(ctx context.Context, req Request, authorize func(*http.Request)) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("[Client.Send] encode %s: %w", req.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("[Client.Send] new request %s: %w", req.Path, err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if authorize != nil {
		authorize(httpReq)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("request failed")
		return nil, apperrors.Join(apperrors.ErrNetworkOrServer, fmt.Errorf("[Client.Send] %s %s: %w", req.Method, req.Path, err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrNetworkOrServer, fmt.Errorf("[Client.Send] read %s: %w", req.Path, err))
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("backend call")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
		Path:       req.Path,
	}, nil
}

// Do sends an unauthenticated request.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.Send(ctx, req, nil)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return resp.Decode(out)
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an *errors.APIError for non-2xx responses.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &apperrors.APIError{
		StatusCode: r.StatusCode,
		Message:    r.Message(),
		Path:       r.Path,
	}
}

// Message extracts a human readable message from an error body.
func (r *Response) Message() string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
		Razon   string `json:"razon"`
	}
	if err := json.Unmarshal(r.Body, &body); err == nil {
		for _, m := range []string{body.Message, body.Error, body.Msg, body.Razon} {
			if m != "" {
				return m
			}
		}
	}
	text := strings.TrimSpace(string(r.Body))
	if len(text) > maxErrorBody || strings.HasPrefix(text, "<") || strings.HasPrefix(text, "{") {
		return ""
	}
	return text
}

// Decode unmarshals the body into out. Empty bodies and JSON null leave out untouched.
func (r *Response) Decode(out any) error {
	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return apperrors.Join(apperrors.ErrMalformed, fmt.Errorf("[Response.Decode] %s: %w", r.Path, err))
	}
	return nil
}

// IsNull reports whether the body is empty or JSON null.
func (r *Response) IsNull() bool {
	trimmed := bytes.TrimSpace(r.Body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
