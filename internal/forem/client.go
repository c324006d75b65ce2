// Package forem is a client for the Forem (DEV.to) article API.
package forem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/starford/devpub/internal/apperr"
	"github.com/starford/devpub/internal/models"
)

const (
	// DefaultBaseURL is the public DEV.to API root.
	DefaultBaseURL = "https://dev.to/api"
	// DefaultTimeout bounds a single request when no HTTP client is supplied.
	DefaultTimeout = 30 * time.Second
	// MaxTags is the number of tags the API accepts per article.
	MaxTags = 4

	defaultUserAgent = "devpub/1.0"
	maxErrorBody     = 64 << 10
)

// API is the set of remote operations the publisher depends on.
type API interface {
	Authenticate(ctx context.Context) (*models.User, error)
	ListOwnPosts(ctx context.Context) ([]models.Post, error)
	FindByTitle(ctx context.Context, title string) (*models.Post, error)
	CreatePost(ctx context.Context, fields ArticleFields) (*models.Post, error)
	UpdatePost(ctx context.Context, id int, fields ArticleFields) (*models.Post, error)
}

// Verify *Client satisfies API at compile time.
var _ API = (*Client)(nil)

// Client talks to one Forem instance with one API key.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	logger    *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is used as
// is; WithTimeout does not modify it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// It has no effect when WithHTTPClient is given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API rooted at baseURL (e.g. https://dev.to/api).
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: defaultUserAgent,
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Authenticate fetches the account that owns the API key.
// Any failure is reported as apperr.ErrAuth.
func (c *Client) Authenticate(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrAuth, err)
	}
	return &u, nil
}

// ListOwnPosts returns every article of the authenticated user in one call.
func (c *Client) ListOwnPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/articles/me/all", nil, &posts); err != nil {
		return nil, fmt.Errorf("forem: list articles: %w", err)
	}
	return posts, nil
}

// FindByTitle returns the first own post whose title equals title exactly,
// or nil when there is none. The list is fetched anew on every call.
func (c *Client) FindByTitle(ctx context.Context, title string) (*models.Post, error) {
	posts, err := c.ListOwnPosts(ctx)
	if err != nil {
		return nil, err
	}
	return MatchTitle(posts, title), nil
}

// MatchTitle is the case-sensitive, first-match-wins title lookup.
func MatchTitle(posts []models.Post, title string) *models.Post {
	for i := range posts {
		if posts[i].Title == title {
			return &posts[i]
		}
	}
	return nil
}

// CreatePost creates a new article from the supplied fields.
func (c *Client) CreatePost(ctx context.Context, fields ArticleFields) (*models.Post, error) {
	var p models.Post
	body := articleRequest{Article: fields.capped()}
	if err := c.do(ctx, http.MethodPost, "/articles", body, &p); err != nil {
		return nil, fmt.Errorf("forem: create article: %w", err)
	}
	return &p, nil
}

// UpdatePost updates article id with the supplied fields only.
func (c *Client) UpdatePost(ctx context.Context, id int, fields ArticleFields) (*models.Post, error) {
	var p models.Post
	body := articleRequest{Article: fields.capped()}
	if err := c.do(ctx, http.MethodPut, "/articles/"+strconv.Itoa(id), body, &p); err != nil {
		return nil, fmt.Errorf("forem: update article %d: %w", id, err)
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("forem request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(method, path, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
