package services

import (
	"context"

	"github.com/martinemde/conduit/restpipe"
)

// Anthropic groups the Anthropic messages endpoints. Beta features are
// opted into per service through header overrides, so a caller can run
// a stable and a beta surface side by side on one client.
type Anthropic struct {
	messages *restpipe.Service
	batches  *restpipe.Service
}

// NewAnthropic creates the Anthropic service set for a configured
// client. The batches surface carries its own beta header.
func NewAnthropic(client *restpipe.Client) *Anthropic {
	messages := client.Service("messages")
	return &Anthropic{
		messages: messages,
		batches: messages.Child("batches",
			restpipe.WithBetaHeaders(map[string]string{
				"anthropic-beta": "message-batches-2024-09-24",
			})),
	}
}

// AnthropicMessage is one turn of a messages request.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesRequest is the messages request body.
type MessagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []AnthropicMessage `json:"messages"`
	Stream    bool               `json:"stream,omitempty"`
}

// ContentBlock is one block of a messages response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MessagesResponse is a blocking messages response.
type MessagesResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Model      string          `json:"model"`
	Content    []ContentBlock  `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      *restpipe.Usage `json:"usage,omitempty"`
}

// MessageBatch describes a message batch job.
type MessageBatch struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	ProcessingStatus string `json:"processing_status"`
}

// CreateMessage performs a blocking messages call.
func (a *Anthropic) CreateMessage(ctx context.Context, req MessagesRequest) (MessagesResponse, error) {
	req.Stream = false
	return restpipe.Create[MessagesResponse](ctx, a.messages, "{ver}/messages", req)
}

// StreamMessage performs a streaming messages call.
func (a *Anthropic) StreamMessage(ctx context.Context, req MessagesRequest) (<-chan restpipe.DeltaEvent, error) {
	req.Stream = true
	return restpipe.Stream(ctx, a.messages, "{ver}/messages", req)
}

// CreateBatch submits a message batch. The batches beta header rides
// along automatically.
func (a *Anthropic) CreateBatch(ctx context.Context, body map[string]interface{}) (MessageBatch, error) {
	return restpipe.Create[MessageBatch](ctx, a.batches, "{ver}/messages/batches", body)
}

// RetrieveBatch fetches one batch by id.
func (a *Anthropic) RetrieveBatch(ctx context.Context, id string) (MessageBatch, error) {
	return restpipe.Retrieve[MessageBatch](ctx, a.batches, "{ver}/messages/batches/{0}", restpipe.ID(id))
}

// CancelBatch cancels a running batch.
func (a *Anthropic) CancelBatch(ctx context.Context, id string) (MessageBatch, error) {
	return restpipe.Cancel[MessageBatch](ctx, a.batches, "{ver}/messages/batches/{0}/cancel", restpipe.ID(id))
}

// ListBatches returns one page of batches.
func (a *Anthropic) ListBatches(ctx context.Context, params ...restpipe.Param) (restpipe.QueryResponse[MessageBatch], error) {
	return restpipe.List[MessageBatch](ctx, a.batches, "{ver}/messages/batches", params...)
}
