// Client for the console REST backend.
//
// Environment:
//   - CONSOLE_API_URL: backend base URL (e.g. http://localhost:3000/api/v1)
//
// Every feature area talks to the backend through Client.Do: it attaches the
// bearer token, unwraps the response envelope and turns every failure into
// an *APIError.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hafizbahtiar/console/internal/config"
	"golang.org/x/oauth2"
)

const HeaderRequestID = "X-Request-ID"

// Paths reachable without a credential. A bearer header is never attached
// to them, even when a token is stored.
var publicPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/forgot-password",
	"/auth/verify-email",
	"/auth/resend-verification",
	"/auth/reset-password",
	"/auth/refresh",
}

// Refresher exchanges the refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	public     map[string]struct{}
	log        *slog.Logger

	refreshMu sync.Mutex
	refresher Refresher
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithPublicPaths extends the no-auth allow-list.
func WithPublicPaths(paths ...string) Option {
	return func(c *Client) {
		for _, p := range paths {
			c.public[normalizePath(p)] = struct{}{}
		}
	}
}

type RequestOptions struct {
	// Body is JSON-encoded unless it is a *Multipart or an io.Reader.
	Body    any
	Query   url.Values
	Headers http.Header
	// SkipAuth sends the request without a bearer token.
	SkipAuth bool
	// ExtractData decodes the "data" member of a wrapped response, or the
	// whole body when the response is bare.
	ExtractData bool
}

// New builds a client. tokens supplies the bearer for every non-public
// request; tokens.Store.TokenSource is the usual one. A nil source sends
// every request anonymously.
func New(cfg config.APIConfig, tokens oauth2.TokenSource, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout, // zero means the transport default
		},
		tokens: tokens,
		public: make(map[string]struct{}, len(publicPaths)),
		log:    slog.Default(),
	}
	for _, p := range publicPaths {
		c.public[p] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRefresher installs the 401 handler. It is set after construction because
// the session controller that refreshes is itself built on this client.
func (c *Client) SetRefresher(r Refresher) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	c.refresher = r
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsPublic reports whether path is on the no-auth allow-list.
func (c *Client) IsPublic(path string) bool {
	_, ok := c.public[normalizePath(path)]
	return ok
}

// Get returns the full response body in out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, RequestOptions{}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, RequestOptions{Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, RequestOptions{Body: body}, out)
}

// Delete accepts an optional body for endpoints that want a confirmation
// payload. A 204 leaves out untouched.
func (c *Client) Delete(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodDelete, path, RequestOptions{Body: body}, out)
}

// Do sends one request. On a 401 for an authenticated request it refreshes
// the token pair once and retries once; any other failure is returned as is.
func (c *Client) Do(ctx context.Context, method, path string, opts RequestOptions, out any) error {
	payload, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	authed := !opts.SkipAuth && !c.IsPublic(path)

	status, body, usedToken, err := c.send(ctx, method, path, opts, payload, contentType, authed)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && authed && usedToken != "" {
		if c.refreshOnce(ctx, usedToken) {
			status, body, _, err = c.send(ctx, method, path, opts, payload, contentType, authed)
			if err != nil {
				return err
			}
		}
	}

	return decodeResponse(status, body, opts.ExtractData, out)
}

// refreshOnce runs the refresher unless another request already replaced
// the token that was rejected. It reports whether a retry is worthwhile.
func (c *Client) refreshOnce(ctx context.Context, rejected string) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.refresher == nil {
		return false
	}
	if current := c.currentToken(); current != "" && current != rejected {
		return true
	}
	if err := c.refresher.Refresh(ctx); err != nil {
		c.log.Debug("token refresh failed", "err", err)
		return false
	}
	return c.currentToken() != ""
}

func (c *Client) currentToken() string {
	if tok := c.bearer(); tok != nil {
		return tok.AccessToken
	}
	return ""
}

// bearer returns the token to send, or nil when the source has none.
func (c *Client) bearer() *oauth2.Token {
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return nil
	}
	return tok
}

func (c *Client) send(ctx context.Context, method, path string, opts RequestOptions, payload []byte, contentType string, authed bool) (int, []byte, string, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, opts.Query), reader)
	if err != nil {
		return 0, nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range opts.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(HeaderRequestID, reqID)

	var token string
	if authed {
		if tok := c.bearer(); tok != nil {
			token = tok.AccessToken
			tok.SetAuthHeader(req)
		}
	} else {
		req.Header.Del("Authorization")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "req_id", reqID, "method", method, "path", path, "err", err)
		return 0, nil, token, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, token, networkError(err)
	}

	c.log.Debug("api request",
		"req_id", reqID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start).String(),
	)
	return resp.StatusCode, body, token, nil
}

func (c *Client) url(path string, query url.Values) string {
	var u string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u = path
	} else {
		u = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.body, b.contentType, nil
	case []byte:
		return b, "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		return data, "", err
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}

func decodeResponse(status int, body []byte, extract bool, out any) error {
	if status < 200 || status > 299 {
		return errorFromResponse(status, body)
	}

	trimmed := bytes.TrimSpace(body)
	if status == http.StatusNoContent || len(trimmed) == 0 || out == nil {
		return nil
	}

	data := json.RawMessage(trimmed)
	if extract {
		data, _ = UnwrapData(trimmed)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{StatusCode: status, Message: msgInvalidResponse, err: err}
	}
	return nil
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(path, "/")
	return path
}
