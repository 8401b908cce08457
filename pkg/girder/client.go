// Package girder is a small client for the Girder REST API: API-key
// authentication, JSON reads, paginated listings and file downloads.
package girder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sivacor/sivacor-cli/internal/tracing"
	"github.com/sivacor/sivacor-cli/pkg/domain"
)

const (
	defaultPageSize = 50
	defaultTimeout  = 60 * time.Second

	tokenHeader     = "Girder-Token"
	requestIDHeader = "X-Request-Id"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	pageSize   int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPageSize sets the limit used for each page of ListResource.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Token() string { return c.token }

// Authenticate exchanges an API key for an auth token used by every later
// request.
func (c *Client) Authenticate(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return errors.New("girder: api key is required")
	}
	params := url.Values{"key": {apiKey}}
	body, err := c.do(ctx, http.MethodPost, "api_key/token", params)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	tok, err := domain.DecodeAuthToken(body)
	if err != nil {
		return fmt.Errorf("authenticate: decode token: %w", err)
	}
	if tok.Token == "" {
		return errors.New("authenticate: server returned an empty token")
	}
	c.token = tok.Token
	return nil
}

// Get issues GET <path> and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListResource pages through a list endpoint with limit/offset until a
// short page comes back, returning every record undecoded.
func (c *Client) ListResource(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	q.Set("limit", strconv.Itoa(c.pageSize))

	var out []json.RawMessage
	for offset := 0; ; offset += c.pageSize {
		q.Set("offset", strconv.Itoa(offset))
		var page []json.RawMessage
		if err := c.Get(ctx, path, q, &page); err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < c.pageSize {
			return out, nil
		}
	}
}

// DownloadFile streams the contents of a file to w and returns the number
// of bytes written. Downloads are bounded by ctx only, not by the client
// timeout.
func (c *Client) DownloadFile(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	path := "file/" + url.PathEscape(fileID) + "/download"
	ctx, span := c.startSpan(ctx, http.MethodGet, path)
	defer span.End()

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	hc := *c.httpClient
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		herr := newHTTPError(http.MethodGet, path, resp.StatusCode, raw)
		span.SetStatus(codes.Error, herr.Error())
		return 0, herr
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return n, fmt.Errorf("download %s: %w", fileID, err)
	}
	span.SetAttributes(attribute.Int64("girder.bytes", n))
	return n, nil
}

// DecodeList decodes raw records from ListResource into T.
func DecodeList[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, r := range raws {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	ctx, span := c.startSpan(ctx, method, path)
	defer span.End()

	req, err := c.newRequest(ctx, method, path, params)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("girder request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(requestIDHeader),
		"duration", time.Since(start),
	)
	if resp.StatusCode >= 300 {
		herr := newHTTPError(method, path, resp.StatusCode, body)
		span.SetStatus(codes.Error, herr.Error())
		return nil, herr
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}
	tracing.InjectHeaders(ctx, req.Header)
	return req, nil
}

func (c *Client) startSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return otel.Tracer("sivacor/girder").Start(ctx, "girder "+method+" "+resourceName(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("girder.path", path),
		),
	)
}

// resourceName keeps span names low-cardinality: "job/abc123" -> "job".
func resourceName(path string) string {
	path = strings.Trim(path, "/")
	head, rest, _ := strings.Cut(path, "/")
	if rest == "all" || rest == "token" {
		return head + "/" + rest
	}
	return head
}
