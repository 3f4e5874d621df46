package restpipe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// failDeliveryWindow bounds how long a stream reader waits to hand the
// terminal failure event to a consumer before giving up on it.
const failDeliveryWindow = 5 * time.Second

// DeltaEvent is one normalized unit of a streaming response.
type DeltaEvent struct {
	// Payload is the raw JSON of one parsed stream element.
	Payload json.RawMessage

	// Done marks the terminal event. A healthy stream carries exactly
	// one Done event; cancellation or timeout ends the stream with an
	// error event instead.
	Done bool

	// IsError marks an in-stream error, either a provider error
	// envelope embedded in the stream or a transport failure mid-read.
	IsError      bool
	ErrorMessage string

	// Usage carries token metering when the element reports it.
	Usage *Usage
}

// ChunkAssembler repairs provider-specific fragmented JSON chunks into
// DeltaEvents. Providers that stream a JSON array over chunked
// transfer may hand us a prefix comma, a dangling open bracket, or a
// bare object with no bracket at all; the assembler heuristically
// wraps each fragment into a parseable array and detects, via the
// trailing bracket, whether the chunk is the terminal segment.
//
// The heuristic is deliberately isolated here so provider-specific
// variations can be swapped without touching the orchestration logic.
type ChunkAssembler struct {
	logger *slog.Logger
}

// NewChunkAssembler creates an assembler logging parse failures to the
// given logger.
func NewChunkAssembler(logger *slog.Logger) *ChunkAssembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkAssembler{logger: logger}
}

// Normalize converts one chunk into zero or more DeltaEvents. A chunk
// whose JSON carries a recognized top-level "error" envelope yields
// exactly one error event and suppresses normal parsing. Malformed
// chunks are logged and skipped; previously parsed deltas are
// unaffected.
func (a *ChunkAssembler) Normalize(chunk []byte) []DeltaEvent {
	text := bytes.TrimSpace(chunk)
	if len(text) == 0 {
		return nil
	}

	// Mid-array chunks arrive with the element separator attached.
	text = bytes.TrimSpace(bytes.TrimPrefix(text, []byte(",")))
	terminal := bytes.HasSuffix(text, []byte("]"))

	if bytes.Contains(text, []byte(`"error"`)) {
		obj := bytes.TrimSuffix(bytes.TrimPrefix(text, []byte("[")), []byte("]"))
		if message, code, _, ok := extractErrorEnvelope(bytes.TrimSpace(obj)); ok {
			if message == "" {
				message = code
			}
			return []DeltaEvent{{IsError: true, ErrorMessage: message}}
		}
	}

	if !bytes.HasPrefix(text, []byte("[")) {
		text = append([]byte("["), text...)
	}
	if !bytes.HasSuffix(text, []byte("]")) {
		text = append(bytes.TrimSuffix(text, []byte(",")), ']')
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(text, &elements); err != nil {
		a.logger.Warn("skipping unparseable stream chunk", "error", err, "bytes", len(chunk))
		return nil
	}

	events := make([]DeltaEvent, 0, len(elements))
	for i, elem := range elements {
		events = append(events, DeltaEvent{
			Payload: elem,
			Done:    terminal && i == len(elements)-1,
			Usage:   usageFrom(elem),
		})
	}
	return events
}

// usageFrom extracts optional token metering from a stream element.
func usageFrom(elem json.RawMessage) *Usage {
	var meter struct {
		Usage *Usage `json:"usage"`
	}
	if err := json.Unmarshal(elem, &meter); err != nil {
		return nil
	}
	return meter.Usage
}

// sseEvent is a single Server-Sent Event.
type sseEvent struct {
	Event string
	Data  string
}

// sseReader parses SSE framing from an io.Reader.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	return &sseReader{scanner: scanner}
}

// Next returns the next SSE event, or io.EOF at end of stream. The
// OpenAI-style "[DONE]" sentinel is surfaced as an event with
// Event == "[DONE]".
func (r *sseReader) Next() (*sseEvent, error) {
	var event sseEvent
	var dataLines []string
	hasData := false

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Blank line terminates one event.
		if line == "" {
			if hasData {
				event.Data = strings.Join(dataLines, "\n")
				return &event, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if data == "[DONE]" {
				return &sseEvent{Event: "[DONE]", Data: "[DONE]"}, nil
			}
			dataLines = append(dataLines, data)
			hasData = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		event.Data = strings.Join(dataLines, "\n")
		return &event, nil
	}
	return nil, io.EOF
}

// openStream runs the pipeline for a streaming descriptor and returns
// a channel of normalized delta events. The connection itself goes
// through the same injection, routing and retry stages as a blocking
// call; once established, a goroutine feeds the channel until the
// terminal event, an in-stream error, or cancellation.
func (c *Client) openStream(ctx context.Context, svc *Service, req *Request, params []Param) (<-chan DeltaEvent, error) {
	if req == nil {
		return nil, &InvalidRequestError{PipelineError: PipelineError{Message: "nil request descriptor"}}
	}
	if req.Endpoint == "" {
		return nil, &InvalidEndpointError{PipelineError: PipelineError{Message: "request has no endpoint"}}
	}
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	req.Stream = true

	params, err := injectAutoParams(svc, req, params)
	if err != nil {
		return nil, err
	}
	callURL, err := buildRoute(c.settings.BaseURL, req.Endpoint, params, c.routeLogger(req))
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx, req)

	var body []byte
	if req.Body != nil && !bodylessVerbs[req.Method] {
		body, err = json.Marshal(req.Body)
		if err != nil {
			cancel()
			return nil, &InvalidRequestError{PipelineError: PipelineError{Message: "cannot serialize request body", Cause: err}}
		}
	}

	if !req.IgnoreLogs {
		c.logger.Debug("request start",
			"request_id", req.ID, "method", req.Method, "url", callURL, "stream", true)
	}

	resp, err := retry(callCtx, c.retryPolicy(req), func(ctx context.Context) (*http.Response, error) {
		if probeErr := c.checker.Wait(ctx); probeErr != nil {
			return nil, probeErr
		}
		return c.exchange(ctx, req, callURL, body)
	})
	if err != nil {
		cancel()
		if !req.IgnoreLogs {
			c.logger.Error("stream connect failed",
				"request_id", req.ID, "endpoint", req.Endpoint, "error", err)
		}
		return nil, err
	}

	ch := make(chan DeltaEvent, 64)
	go func() {
		defer cancel()
		c.readStream(callCtx, resp, ch, req)
	}()
	return ch, nil
}

// readStream consumes the response body and feeds normalized events to
// ch, choosing SSE or raw JSON-array framing by content type.
func (c *Client) readStream(ctx context.Context, resp *http.Response, ch chan<- DeltaEvent, req *Request) {
	defer close(ch)
	defer resp.Body.Close()

	start := time.Now()
	assembler := NewChunkAssembler(c.logger)
	terminal := false

	emit := func(ev DeltaEvent) bool {
		select {
		case <-ctx.Done():
			return false
		case ch <- ev:
			return true
		}
	}

	fail := func(message string) {
		ev := DeltaEvent{IsError: true, ErrorMessage: message}
		if ctx.Err() != nil {
			ev.ErrorMessage = ctxError(ctx, message).Error()
		}
		// The failure event must reach a live consumer even when the
		// buffer is full, and must not wait on the already-done context.
		// The timer only escapes a consumer that abandoned the channel.
		select {
		case ch <- ev:
		case <-time.After(failDeliveryWindow):
		}
	}

	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/event-stream") {
		reader := newSSEReader(resp.Body)
		for {
			if ctx.Err() != nil {
				fail("stream cancelled")
				return
			}
			event, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				fail("stream read error: " + err.Error())
				return
			}
			if event.Event == "[DONE]" {
				terminal = true
				if !emit(DeltaEvent{Done: true}) {
					fail("stream cancelled")
				}
				break
			}
			for _, ev := range assembler.Normalize([]byte(event.Data)) {
				terminal = terminal || ev.Done
				if !emit(ev) {
					fail("stream cancelled")
					return
				}
				if ev.IsError {
					return
				}
			}
			if terminal {
				break
			}
		}
	} else {
		buf := make([]byte, 32*1024)
		for {
			if ctx.Err() != nil {
				fail("stream cancelled")
				return
			}
			n, err := resp.Body.Read(buf)
			if n > 0 {
				for _, ev := range assembler.Normalize(buf[:n]) {
					terminal = terminal || ev.Done
					if !emit(ev) {
						fail("stream cancelled")
						return
					}
					if ev.IsError {
						return
					}
				}
			}
			if err == io.EOF || terminal {
				break
			}
			if err != nil {
				fail("stream read error: " + err.Error())
				return
			}
		}
	}

	if !terminal {
		// The stream ended without a terminal segment. This is a
		// distinct failure, never a fabricated Done event.
		fail("stream ended without terminal chunk")
		return
	}

	if !req.IgnoreLogs {
		c.logger.Debug("stream finished",
			"request_id", req.ID, "endpoint", req.Endpoint, "duration", time.Since(start))
	}
}
