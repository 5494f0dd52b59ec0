// Package dataapi is the client for the study data service that backs the
// performance and study-plan responders.
//
// Fetches never return errors: every failure (transport, non-2xx, malformed body,
// success:false) becomes a Result with Success false and a human-readable Message.
package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"grindhub/pkg/agent/llmerrors"
	"grindhub/pkg/agent/middleware/metrics"
	"grindhub/pkg/agent/middleware/resilience/retry"
	"grindhub/pkg/config"
	"grindhub/pkg/logx"
)

// Endpoint names one data operation.
type Endpoint string

const (
	// EndpointNone marks a profile that fetches nothing.
	EndpointNone Endpoint = ""
	// EndpointPerformance returns scores, study statistics and assignment data.
	EndpointPerformance Endpoint = "performance"
	// EndpointStudyPlan returns deadlines and logs used to build a plan.
	EndpointStudyPlan Endpoint = "study_plan"
	// EndpointUser returns the user record.
	EndpointUser Endpoint = "user"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// Query is the request payload. Nil fields are omitted.
type Query struct {
	UserID         string
	TimeRange      *string
	Class          *string
	AssignmentType *string
}

// MarshalJSON renders the wire payload {userid, time_range?, class?, assignment_type?}.
func (q Query) MarshalJSON() ([]byte, error) {
	payload := map[string]string{"userid": q.UserID}
	if q.TimeRange != nil {
		payload["time_range"] = *q.TimeRange
	}
	if q.Class != nil {
		payload["class"] = *q.Class
	}
	if q.AssignmentType != nil {
		payload["assignment_type"] = *q.AssignmentType
	}
	return json.Marshal(payload)
}

// Result is the outcome of one fetch.
type Result struct {
	Success bool
	Payload json.RawMessage // full response body on success
	Message string
}

// Available reports whether the result carries usable data.
func (r Result) Available() bool {
	return r.Success && len(r.Payload) > 0
}

// Unavailable builds a failed result.
func Unavailable(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Client talks to the data service.
type Client struct {
	baseURL  string
	paths    map[Endpoint]string
	http     *http.Client
	policy   *retry.Policy
	recorder metrics.Recorder
	logger   *logx.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRecorder records fetch metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a data API client.
func New(cfg config.DataAPIConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		paths: map[Endpoint]string{
			EndpointPerformance: cfg.PerformancePath,
			EndpointStudyPlan:   cfg.StudyPlanPath,
			EndpointUser:        cfg.UserPath,
		},
		http:     &http.Client{Timeout: timeout},
		policy:   retry.NewPolicy(retry.Config{MaxAttempts: attempts}, shouldRetryFetch),
		recorder: metrics.Nop(),
		logger:   logx.NewLogger("dataapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// shouldRetryFetch retries unreachable-service failures only. A well-formed answer,
// including success:false, is final.
func shouldRetryFetch(err error) bool {
	if !retry.ShouldRetry(err) {
		return false
	}
	var llmErr *llmerrors.Error
	if !errors.As(err, &llmErr) {
		return true
	}
	return llmErr.StatusCode == 0 || llmErr.StatusCode >= 500
}

// Fetch posts q to endpoint and returns the outcome. It never fails.
func (c *Client) Fetch(ctx context.Context, endpoint Endpoint, q Query) Result {
	start := time.Now()
	result, err := retry.Do(ctx, c.policy, func(ctx context.Context) (Result, error) {
		return c.post(ctx, endpoint, q)
	})
	if err != nil {
		cause := llmerrors.LastCause(err)
		c.logger.WithContext(ctx).Warn("%s fetch failed: %v", endpoint, cause)
		result = Unavailable("data service error: %v", cause)
	}
	c.recorder.ObserveDataFetch(string(endpoint), result.Success, time.Since(start))
	return result
}

// post performs one request. Returned errors are retry candidates; a decoded
// success:false answer is returned as a Result.
func (c *Client) post(ctx context.Context, endpoint Endpoint, body any) (Result, error) {
	path, ok := c.paths[endpoint]
	if !ok || path == "" {
		return Unavailable("no path configured for %s", endpoint), nil
	}
	if c.baseURL == "" {
		return Unavailable("data service not configured"), nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return Result{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeExternalData, err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return Result{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeExternalData, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logx.Debug(ctx, "dataapi", "POST %s", c.baseURL+path)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeExternalData, err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeExternalData, err, "read response")
	}

	return decode(resp.StatusCode, data)
}

// decode interprets a response body. The service answers misses with a non-2xx status
// and a {success:false, message} body, so the body is inspected before the status.
func decode(status int, data []byte) (Result, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		if status >= 500 {
			e := llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeExternalData, status, fmt.Sprintf("HTTP %d", status))
			return Result{}, e
		}
		if status < 200 || status >= 300 {
			return Unavailable("HTTP %d", status), nil
		}
		return Unavailable("malformed response body"), nil
	}

	success := gjson.GetBytes(data, "success")
	message := gjson.GetBytes(data, "message").String()

	if status >= 500 {
		e := llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeExternalData, status, fmt.Sprintf("HTTP %d: %s", status, message))
		return Result{}, e
	}
	if status < 200 || status >= 300 || !success.Bool() {
		if message == "" {
			message = fmt.Sprintf("HTTP %d without success flag", status)
		}
		return Result{Success: false, Message: message}, nil
	}
	return Result{Success: true, Payload: json.RawMessage(data), Message: message}, nil
}

// FetchUser returns the username recorded for userID.
func (c *Client) FetchUser(ctx context.Context, userID string) (string, error) {
	result := c.Fetch(ctx, EndpointUser, Query{UserID: userID})
	if !result.Available() {
		return "", llmerrors.NewError(llmerrors.ErrorTypeExternalData, result.Message)
	}
	users := gjson.GetBytes(result.Payload, "existingUser")
	if !users.IsArray() || len(users.Array()) == 0 {
		return "", llmerrors.NewError(llmerrors.ErrorTypeExternalData, "no existing user data found in the response")
	}
	name := users.Array()[0].Get("username").String()
	if name == "" {
		return "", llmerrors.NewError(llmerrors.ErrorTypeExternalData, "user record has no username")
	}
	return name, nil
}
