package restpipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// bodylessVerbs structurally carry no request body.
var bodylessVerbs = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodDelete: true,
}

// send runs the full non-streaming pipeline for one descriptor:
// validation, auto-parameter injection, route resolution, connectivity
// probe, and the retry loop around the HTTP exchange. The per-call
// timeout bounds the whole sequence.
func (c *Client) send(ctx context.Context, svc *Service, req *Request, params []Param) (*Response, error) {
	if req == nil {
		return nil, &InvalidRequestError{PipelineError: PipelineError{Message: "nil request descriptor"}}
	}
	if req.Endpoint == "" {
		return nil, &InvalidEndpointError{PipelineError: PipelineError{Message: "request has no endpoint"}}
	}
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}

	params, err := injectAutoParams(svc, req, params)
	if err != nil {
		return nil, err
	}

	callURL, err := buildRoute(c.settings.BaseURL, req.Endpoint, params, c.routeLogger(req))
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.callContext(ctx, req)
	defer cancel()

	var body []byte
	if req.Body != nil && !bodylessVerbs[req.Method] {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, &InvalidRequestError{PipelineError: PipelineError{Message: "cannot serialize request body", Cause: err}}
		}
	}

	if !req.IgnoreLogs {
		c.logger.Debug("request start",
			"request_id", req.ID, "method", req.Method, "url", callURL, "stream", false)
	}

	start := time.Now()
	policy := c.retryPolicy(req)
	attempts := 0
	resp, err := retry(ctx, policy, func(ctx context.Context) (*http.Response, error) {
		attempts++
		if probeErr := c.checker.Wait(ctx); probeErr != nil {
			return nil, probeErr
		}
		return c.exchange(ctx, req, callURL, body)
	})
	if err != nil {
		if ctx.Err() != nil && IsRetryable(err) {
			// A deadline or cancellation observed as a transport failure
			// must surface as the dedicated outcome, not a transient one.
			err = ctxError(ctx, fmt.Sprintf("call to %s did not complete", req.Endpoint))
		}
		if !req.IgnoreLogs {
			c.logger.Error("request failed",
				"request_id", req.ID, "endpoint", req.Endpoint, "attempts", attempts, "error", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{PipelineError: PipelineError{Message: "cannot read response body", Cause: err}}
	}

	envelope := &Response{
		Success:     true,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        raw,
		OutputPath:  req.OutputPath,
		Meta: CallMeta{
			RequestID: req.ID,
			Method:    req.Method,
			Endpoint:  req.Endpoint,
			URL:       callURL,
			Attempts:  attempts,
			Duration:  time.Since(start),
		},
	}

	if !req.IgnoreLogs {
		c.logger.Debug("response received",
			"request_id", req.ID, "status", resp.StatusCode,
			"content_type", envelope.ContentType, "attempts", attempts,
			"duration", envelope.Meta.Duration)
	}

	return envelope, nil
}

// exchange performs a single HTTP attempt: request construction,
// execution, and status classification. Non-2xx responses are mapped
// onto the provider error taxonomy and the body is consumed.
func (c *Client) exchange(ctx context.Context, req *Request, callURL string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, callURL, reader)
	if err != nil {
		return nil, &InvalidRequestError{PipelineError: PipelineError{Message: "cannot construct request", Cause: err}}
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if len(body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctxError(ctx, "request aborted")
		}
		return nil, &NetworkError{PipelineError: PipelineError{Message: "request failed", Cause: err}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.errorFromResponse(resp)
	}

	return resp, nil
}

// errorFromResponse converts a non-2xx response into the provider error
// taxonomy, extracting the provider's error envelope when present.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{PipelineError: PipelineError{Message: "cannot read error response body", Cause: err}}
	}

	message, code, raw, ok := extractErrorEnvelope(body)
	if !ok || message == "" {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
	return errorFromStatus(resp.StatusCode, message, c.settings.Name, code, raw, retryAfter)
}

// callContext derives the per-call context. The request timeout, when
// set, bounds the entire retry sequence.
func (c *Client) callContext(ctx context.Context, req *Request) (context.Context, context.CancelFunc) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.settings.Timeout
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// retryPolicy resolves the effective policy for one descriptor.
func (c *Client) retryPolicy(req *Request) RetryPolicy {
	policy := c.settings.Retry
	if req.MaxAttempts > 0 {
		policy.MaxAttempts = req.MaxAttempts
	}
	if req.RetryDelay > 0 {
		policy.BaseDelay = req.RetryDelay
	}
	if policy.OnRetry == nil && !req.IgnoreLogs {
		policy.OnRetry = func(err error, attempt int, delay time.Duration) {
			c.logger.Warn("retrying request",
				"request_id", req.ID, "endpoint", req.Endpoint,
				"attempt", attempt, "delay", delay, "error", err)
		}
	}
	return policy
}

// parseRetryAfter parses a Retry-After header value, in either seconds
// or HTTP-date form.
func parseRetryAfter(value string) *float64 {
	if value == "" {
		return nil
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return &seconds
	}
	for _, layout := range []string{time.RFC1123, time.RFC850} {
		if t, err := time.Parse(layout, value); err == nil {
			seconds := time.Until(t).Seconds()
			if seconds < 0 {
				seconds = 0
			}
			return &seconds
		}
	}
	return nil
}

// routeLogger returns the logger used by route resolution warnings.
func (c *Client) routeLogger(req *Request) *slog.Logger {
	if req.IgnoreLogs {
		return nil
	}
	return c.logger
}
