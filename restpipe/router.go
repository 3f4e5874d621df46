package restpipe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// binaryContent reports whether a content type routes to the binary
// decode path.
func binaryContent(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "octet-stream") ||
		strings.HasPrefix(ct, "audio/") ||
		strings.HasPrefix(ct, "image/")
}

// structuredContent reports whether a content type routes to the
// structured-text decode path.
func structuredContent(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "json") ||
		strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "problem+json")
}

// decodeBody routes a response envelope through the structured-text
// path into dest. Binary content types must never reach this path. A
// 2xx body carrying a recognized provider error envelope is folded
// into the error channel rather than decoded as a success. Unknown
// content types default to the structured path with a warning, since
// several providers omit correct headers on error bodies.
func (c *Client) decodeBody(envelope *Response, dest interface{}) error {
	if envelope == nil {
		return &EmptyResponseError{PipelineError: PipelineError{Message: "nil response envelope"}}
	}
	if binaryContent(envelope.ContentType) {
		return &InvalidRequestError{PipelineError: PipelineError{
			Message: fmt.Sprintf("binary content type %q routed to the structured path", envelope.ContentType),
		}}
	}
	if !structuredContent(envelope.ContentType) && envelope.ContentType != "" {
		c.logger.Warn("unknown content type, decoding as structured text",
			"request_id", envelope.Meta.RequestID, "content_type", envelope.ContentType)
	}

	if message, code, raw, ok := extractErrorEnvelope(envelope.Body); ok {
		return &ProviderError{
			PipelineError: PipelineError{Message: message},
			Provider:      c.settings.Name,
			StatusCode:    envelope.StatusCode,
			ErrorCode:     code,
			Raw:           raw,
		}
	}

	if dest == nil || len(envelope.Body) == 0 {
		return nil
	}
	// Raw sinks bypass JSON decoding: text/* bodies are not always JSON.
	switch d := dest.(type) {
	case *string:
		*d = string(envelope.Body)
		return nil
	case *[]byte:
		*d = envelope.Body
		return nil
	}
	if err := json.Unmarshal(envelope.Body, dest); err != nil {
		return &EmptyResponseError{PipelineError: PipelineError{
			Message: fmt.Sprintf("cannot decode response for %s", envelope.Meta.Endpoint),
			Cause:   err,
		}}
	}
	return nil
}

// pageEnvelope covers the pagination shapes the known providers emit:
// OpenAI and Anthropic carry has_more with first_id/last_id cursors,
// others carry an explicit next_cursor.
type pageEnvelope[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"has_more"`
	FirstID    string `json:"first_id"`
	LastID     string `json:"last_id"`
	NextCursor string `json:"next_cursor"`
}

// decodePage unwraps a list response into a QueryResponse. The cursor
// is absent whenever HasMore is false.
func decodePage[T any](c *Client, envelope *Response) (QueryResponse[T], error) {
	var page pageEnvelope[T]
	if err := c.decodeBody(envelope, &page); err != nil {
		return QueryResponse[T]{}, err
	}
	out := QueryResponse[T]{
		Data:    page.Data,
		HasMore: page.HasMore,
		FirstID: page.FirstID,
	}
	if page.HasMore {
		out.NextCursor = page.NextCursor
		if out.NextCursor == "" {
			out.NextCursor = page.LastID
		}
	}
	return out, nil
}

// persistBinary routes a response envelope through the binary path:
// the raw bytes are written to the descriptor's output path and the
// final path is returned. When the path carries no extension, one is
// derived from the content type.
func (c *Client) persistBinary(envelope *Response) (string, error) {
	if envelope == nil {
		return "", &EmptyResponseError{PipelineError: PipelineError{Message: "nil response envelope"}}
	}
	if envelope.OutputPath == "" {
		return "", &InvalidRequestError{PipelineError: PipelineError{
			Message: fmt.Sprintf("binary response for %s has no output path", envelope.Meta.Endpoint),
		}}
	}

	path := envelope.OutputPath
	if filepath.Ext(path) == "" {
		if ext := extensionFor(envelope.ContentType); ext != "" {
			path += ext
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", &PipelineError{Message: "cannot create output directory", Cause: err}
		}
	}
	if err := os.WriteFile(path, envelope.Body, 0o644); err != nil {
		return "", &PipelineError{Message: "cannot persist binary response", Cause: err}
	}

	c.logger.Debug("binary response persisted",
		"request_id", envelope.Meta.RequestID, "path", path, "bytes", len(envelope.Body))
	return path, nil
}

// extensionFor maps common binary content types to a file extension.
func extensionFor(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "image/png"):
		return ".png"
	case strings.Contains(ct, "image/jpeg"):
		return ".jpg"
	case strings.Contains(ct, "image/webp"):
		return ".webp"
	case strings.Contains(ct, "audio/mpeg"), strings.Contains(ct, "audio/mp3"):
		return ".mp3"
	case strings.Contains(ct, "audio/wav"):
		return ".wav"
	case strings.Contains(ct, "audio/ogg"), strings.Contains(ct, "audio/opus"):
		return ".ogg"
	case strings.Contains(ct, "octet-stream"):
		return ".bin"
	}
	return ""
}
