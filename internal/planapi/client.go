// Package planapi talks to the planning service: one call creates a plan from
// a survey profile, the other revises an existing plan from a chat message.
package planapi

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
	"unicode/utf8"

	"github.com/kingrea/wellplan/internal/plan"
)

const (
	// PlanPath creates a plan from a profile.
	PlanPath = "/api/plan"
	// ChatPath revises a plan from a chat message.
	ChatPath = "/api/chat"
	// SessionHeader carries the client session id on every request.
	SessionHeader = "X-Session-Id"
	// DefaultTimeout bounds one round-trip. Plan generation is slow upstream.
	DefaultTimeout = 120 * time.Second

	maxResponseBytes int64 = 8 << 20
	maxErrorBody           = 256
)

// Trace describes one finished call to the planning service.
type Trace struct {
	Op       string
	Method   string
	Path     string
	Session  string
	Status   int // 0 when no response arrived
	Sent     int
	Received int
	Duration time.Duration
	Err      error
}

// Tracer receives one Trace per call.
type Tracer interface {
	Trace(Trace)
}

// ChatRequest is the body of a revision call.
type ChatRequest struct {
	Profile plan.Profile `json:"profile"`
	Plan    plan.Plan    `json:"plan"`
	Message string       `json:"message"`
}

// ChatResponse is the revised plan and the service's reply text.
type ChatResponse struct {
	UpdatedPlan plan.Plan `json:"updatedPlan"`
	Reply       string    `json:"reply"`
}

type planResponse struct {
	Plan *plan.Plan `json:"plan"`
}

type chatResponse struct {
	UpdatedPlan *plan.Plan `json:"updatedPlan"`
	Reply       string     `json:"reply"`
}

// Client is a JSON-over-HTTP client for the planning service.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	sessionID string
	tracer    Tracer
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithSessionID tags every request with the given session id.
func WithSessionID(id string) Option {
	return func(c *Client) {
		c.sessionID = strings.TrimSpace(id)
	}
}

// WithTracer reports every request to t.
func WithTracer(t Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New builds a client rooted at baseURL (scheme and host, optional path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("planapi: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("planapi: base url %q must use http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("planapi: base url %q has no host", baseURL)
	}
	c := &Client{
		baseURL: trimmed,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		tracer:  nopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreatePlan posts the profile and returns the generated plan.
func (c *Client) CreatePlan(ctx context.Context, profile plan.Profile) (plan.Plan, error) {
	var out planResponse
	if err := c.post(ctx, "create plan", PlanPath, profile, &out); err != nil {
		return nil, err
	}
	if out.Plan == nil {
		return nil, &ParseError{Op: "create plan", Err: errors.New(`response has no "plan"`)}
	}
	return *out.Plan, nil
}

// Revise posts the current profile, plan and message and returns the
// revised plan with the service's reply.
func (c *Client) Revise(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.Plan == nil {
		req.Plan = plan.Plan{}
	}
	var out chatResponse
	if err := c.post(ctx, "revise plan", ChatPath, req, &out); err != nil {
		return ChatResponse{}, err
	}
	if out.UpdatedPlan == nil {
		return ChatResponse{}, &ParseError{Op: "revise plan", Err: errors.New(`response has no "updatedPlan"`)}
	}
	return ChatResponse{UpdatedPlan: *out.UpdatedPlan, Reply: out.Reply}, nil
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("planapi: %s: encode request: %w", op, err)
	}
	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("planapi: %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.sessionID != "" {
		req.Header.Set(SessionHeader, c.sessionID)
	}

	trace := Trace{Op: op, Method: http.MethodPost, Path: path, Session: c.sessionID, Sent: len(body)}
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		trace.Duration, trace.Err = time.Since(started), err
		c.tracer.Trace(trace)
		return &NetworkError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()
	trace.Status = resp.StatusCode
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	trace.Received, trace.Duration, trace.Err = len(data), time.Since(started), err
	c.tracer.Trace(trace)
	if err != nil {
		return &NetworkError{Op: op, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Op: op, Status: resp.StatusCode, Body: snippet(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}

func snippet(data []byte) string {
	text := strings.Join(strings.Fields(string(data)), " ")
	if len(text) <= maxErrorBody {
		return text
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

type nopTracer struct{}

func (nopTracer) Trace(Trace) {}
