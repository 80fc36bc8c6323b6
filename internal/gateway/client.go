// Package gateway is the HTTP transport shared by every client of the backend gateway and the
// outreach provider. It never turns a response into a Go error by itself: callers get a tagged
// Response and decide what a bad status or an unreadable body means for their operation.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/automations/internal/common"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Outcome tags how a request ended.
type Outcome int

const (
	// OutcomeOK is a 2xx response.
	OutcomeOK Outcome = iota
	// OutcomeBadStatus is any non-2xx response.
	OutcomeBadStatus
	// OutcomeTransportError means no response was received.
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeBadStatus:
		return "bad_status"
	default:
		return "transport_error"
	}
}

// Response is the tagged result of one request.
type Response struct {
	Outcome Outcome
	Status  int
	Header  http.Header
	Body    []byte
	Err     error
}

// DecodeJSON decodes the body into v.
func (r Response) DecodeJSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(r.Body, v)
}

// AsError converts a non-OK response into an error: the transport error itself, or a
// *StatusError holding the raw body.
func (r Response) AsError() error {
	switch r.Outcome {
	case OutcomeOK:
		return nil
	case OutcomeBadStatus:
		return &StatusError{Status: r.Status, Body: r.Body}
	default:
		return r.Err
	}
}

// StatusError is a non-2xx gateway answer.
type StatusError struct {
	Status int
	Body   []byte
}

// maxErrorBody caps how many bytes of a failed response end up in the error text.
const maxErrorBody = 200

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "…"
	}
	if body == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, body)
}

// Client sends requests relative to a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
	name    string
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithName sets the prefix of the client's log events ("gateway" by default).
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		headers: map[string]string{},
		name:    "gateway",
		logger:  logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) Response {
	return c.Do(ctx, http.MethodGet, path, query, nil, "")
}

// Post issues a POST request without a body.
func (c *Client) Post(ctx context.Context, path string) Response {
	return c.Do(ctx, http.MethodPost, path, nil, nil, "")
}

// PostJSON encodes payload as JSON and POSTs it.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) Response {
	bs, err := json.Marshal(payload)
	if err != nil {
		return Response{Outcome: OutcomeTransportError, Err: fmt.Errorf("encode json: %w", err)}
	}
	return c.Do(ctx, http.MethodPost, path, nil, bytes.NewReader(bs), "application/json")
}

// PostMultipart sends a multipart/form-data request with plain fields and one file part.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, fileField, fileName string, data []byte) Response {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fileField, fileName)
	if err == nil {
		_, err = fw.Write(data)
	}
	for k, v := range fields {
		if err != nil {
			break
		}
		err = mw.WriteField(k, v)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return Response{Outcome: OutcomeTransportError, Err: fmt.Errorf("build multipart body: %w", err)}
	}
	return c.Do(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
}

// Do sends one request and classifies the result.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) Response {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		c.logger.Error(c.name+".http.build_request_error", "req_id", reqID, "error", err)
		return Response{Outcome: OutcomeTransportError, Err: fmt.Errorf("build request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug(c.name+".http.request", "req_id", reqID, "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(c.name+".http.send_error", "req_id", reqID, "path", path, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Response{Outcome: OutcomeTransportError, Err: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn(c.name+".http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn(c.name+".http.read_error", "req_id", reqID, "path", path, "error", err)
		return Response{Outcome: OutcomeTransportError, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Info(c.name+".http.response",
		"req_id", reqID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	out := Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	if resp.StatusCode/100 == 2 {
		out.Outcome = OutcomeOK
	} else {
		out.Outcome = OutcomeBadStatus
	}
	return out
}
