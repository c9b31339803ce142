package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/op-booking/internal/metrics"
)

// Client talks to the hospital API. Every call is a single JSON request and
// response; nothing is retried.
type Client struct {
	base    string
	hc      *http.Client
	log     zerolog.Logger
	metrics *metrics.PortalMetrics
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.PortalMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{},
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a failed call: no response, a non-2xx status, or a body that
// could not be understood. Message is safe to show to the patient.
type APIError struct {
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// call describes one request. failMsg is the message used when the server
// does not send its own.
type call struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	failMsg string
	// serverMsg reads the "message" field of error bodies
	serverMsg bool
	// accept adds Accept: application/json and requires a JSON content type
	accept bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, cl call) (response, error) {
	var rdr io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return response{}, fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		rdr = bytes.NewReader(b)
	}

	u := c.base + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, rdr)
	if err != nil {
		return response{}, fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.accept {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		c.observe(cl, "error", start)
		c.log.Debug().Err(err).Str("op", cl.op).Str("method", cl.method).Str("path", cl.path).Msg("portal call failed")
		return response{}, &APIError{Operation: cl.op, Message: cl.failMsg, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	c.observe(cl, strconv.Itoa(res.StatusCode), start)
	c.log.Debug().
		Str("op", cl.op).
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", res.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("portal call")
	if err != nil {
		return response{}, &APIError{Operation: cl.op, Status: res.StatusCode, Message: cl.failMsg, Err: err}
	}

	out := response{status: res.StatusCode, header: res.Header, body: body}

	if cl.accept && !strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		return out, &APIError{Operation: cl.op, Status: res.StatusCode, Message: "Received an invalid response from the server"}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := cl.failMsg
		if cl.serverMsg {
			if m := serverMessage(body); m != "" {
				msg = m
			}
		}
		return out, &APIError{Operation: cl.op, Status: res.StatusCode, Message: msg}
	}
	return out, nil
}

// decode unmarshals a successful body into v.
func (c *Client) decode(cl call, res response, v any) error {
	if err := json.Unmarshal(res.body, v); err != nil {
		return &APIError{Operation: cl.op, Status: res.status, Message: cl.failMsg, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) observe(cl call, status string, start time.Time) {
	c.metrics.ObserveRequest(cl.op, status, time.Since(start).Seconds())
}

func serverMessage(body []byte) string {
	var r struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &r)
	return strings.TrimSpace(r.Message)
}
