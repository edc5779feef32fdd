package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goBlog/internal/logging"
	"github.com/google/uuid"
)

// DefaultPrefix is the versioned path every endpoint lives under.
const DefaultPrefix = "/api/v1"

// RequestIDHeader carries the per-call request id to the backend.
const RequestIDHeader = "X-Request-ID"

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

type tokenKey struct{}
type requestIDKey struct{}

// WithToken returns a context whose calls authenticate with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by [WithToken].
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// WithRequestID pins the request id sent with calls made under ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Config configures a [Client].
type Config struct {
	BaseURL    string
	Prefix     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client sends requests to the backend.
type Client struct {
	base   *url.URL
	prefix string
	http   *http.Client
	logger logging.Logger
}

// NewClient validates cfg. The prefix defaults to /api/v1 and the HTTP
// client to one with cfg.Timeout.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", cfg.BaseURL)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		base:   base,
		prefix: "/" + strings.Trim(prefix, "/"),
		http:   hc,
		logger: logger,
	}, nil
}

// Service accessors. Each is a value type bound to c.
func (c *Client) Auth() AuthService { return AuthService{c: c} }
func (c *Client) Users() UserService { return UserService{c: c} }
func (c *Client) Posts() PostService { return PostService{c: c} }
func (c *Client) Likes() LikeService { return LikeService{c: c} }
func (c *Client) Comments() CommentService { return CommentService{c: c} }
func (c *Client) Images() ImageService { return ImageService{c: c} }
func (c *Client) Admin() AdminService { return AdminService{c: c} }

// endpoint joins the base URL, prefix and path.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + c.prefix + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     io.Reader
	contentType string
}

// call sends req and decodes a 2xx body into T. An empty body leaves T at
// its zero value.
func call[T any](ctx context.Context, c *Client, req request) Result[T] {
	resp, apiErr := c.send(ctx, req)
	if apiErr != nil {
		return fail[T](apiErr)
	}
	defer resp.Body.Close()

	var v T
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail[T](&Error{Failure: FailureNetwork, Status: resp.StatusCode, Err: err})
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ok(v)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return fail[T](&Error{Failure: FailureDecode, Status: resp.StatusCode, Err: err})
	}
	return ok(v)
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, *Error) {
	body := req.rawBody
	contentType := req.contentType
	if body == nil && req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, &Error{Failure: FailureValidation, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return nil, &Error{Failure: FailureNetwork, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token, ok := TokenFromContext(ctx); ok {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn(ctx, "backend request failed", "method", req.method, "path", req.path, "request_id", requestID, "error", err)
		return nil, &Error{Failure: FailureNetwork, Err: err}
	}
	c.logger.Debug(ctx, "backend request", "method", req.method, "path", req.path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeError(resp *http.Response) *Error {
	e := &Error{Failure: FailureForStatus(resp.StatusCode), Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		e.Code = body.Code
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
