package restpipe

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Request describes one outbound call. A descriptor belongs to exactly
// one logical call: the injector and route resolver mutate it in place
// before transport, so descriptors must never be shared across
// concurrent calls.
type Request struct {
	// Endpoint is the route template, e.g. "{ver}/models/{0}".
	Endpoint string

	// Method is the HTTP verb: POST, GET, PATCH, DELETE or HEAD.
	Method string

	// Body is the optional typed request body, serialized as JSON.
	// Verbs that structurally carry no body (GET, HEAD, DELETE) omit
	// it entirely.
	Body interface{}

	// Headers holds per-call headers. The auto-parameter injector
	// appends to it.
	Headers http.Header

	// MaxAttempts and RetryDelay override the client retry defaults
	// when non-zero.
	MaxAttempts int
	RetryDelay  time.Duration

	// Timeout overrides the client per-call timeout when non-zero.
	Timeout time.Duration

	// Stream marks the call as a long-lived streaming exchange.
	Stream bool

	// OutputPath is where binary response bodies are persisted.
	OutputPath string

	// IgnoreLogs suppresses per-call logging.
	IgnoreLogs bool

	// ID uniquely identifies the call in logs and CallMeta.
	ID string
}

// NewRequest creates a descriptor for the given template and verb.
func NewRequest(method, endpoint string) *Request {
	return &Request{
		Endpoint: endpoint,
		Method:   method,
		Headers:  make(http.Header),
		ID:       uuid.NewString(),
	}
}

// CallMeta is per-call diagnostic metadata. It replaces shared
// last-request bookkeeping on the client, so concurrent calls never
// race on it.
type CallMeta struct {
	RequestID string
	Method    string
	Endpoint  string
	URL       string
	Attempts  int
	Duration  time.Duration
}

// Response is the envelope produced by the transport orchestrator.
type Response struct {
	Success     bool
	StatusCode  int
	ContentType string
	Body        []byte
	OutputPath  string
	Meta        CallMeta
}

// QueryResponse is the unwrapped pagination envelope of a List call.
type QueryResponse[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"has_more"`
	FirstID    string `json:"first_id,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Usage tracks token metering reported inside streamed payloads.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
