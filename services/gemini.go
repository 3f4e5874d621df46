package services

import (
	"context"

	"github.com/martinemde/conduit/restpipe"
)

// Gemini groups the Gemini generateContent endpoints. Gemini routes
// differ from the OpenAI shape in two ways the pipeline absorbs: the
// API key travels as a query parameter, and the RPC verb is a
// ":method" suffix on the model resource.
type Gemini struct {
	models *restpipe.Service
}

// NewGemini creates the Gemini service set for a configured client.
func NewGemini(client *restpipe.Client) *Gemini {
	return &Gemini{models: client.Service("models")}
}

// GeminiPart is one part of a content turn.
type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

// GeminiContent is one turn of a generateContent request.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GenerateRequest is the generateContent request body.
type GenerateRequest struct {
	Contents []GeminiContent `json:"contents"`
}

// GeminiCandidate is one generated alternative.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

// GenerateResponse is a blocking generateContent response.
type GenerateResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// GeminiModel describes one available model.
type GeminiModel struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

// GenerateContent performs a blocking generateContent call against the
// named model.
func (g *Gemini) GenerateContent(ctx context.Context, model string, req GenerateRequest) (GenerateResponse, error) {
	return restpipe.Create[GenerateResponse](ctx, g.models, "{ver}/models/{0}", req,
		restpipe.ID(model), restpipe.Method("generateContent"))
}

// StreamGenerateContent performs a streaming generateContent call. The
// wire format is a chunked JSON array rather than SSE; the stream
// normalizer handles both.
func (g *Gemini) StreamGenerateContent(ctx context.Context, model string, req GenerateRequest) (<-chan restpipe.DeltaEvent, error) {
	return restpipe.Stream(ctx, g.models, "{ver}/models/{0}", req,
		restpipe.ID(model), restpipe.Method("streamGenerateContent"))
}

// RetrieveModel fetches one model by name.
func (g *Gemini) RetrieveModel(ctx context.Context, model string) (GeminiModel, error) {
	return restpipe.Retrieve[GeminiModel](ctx, g.models, "{ver}/models/{0}", restpipe.ID(model))
}

// ListModels returns one page of models.
func (g *Gemini) ListModels(ctx context.Context, params ...restpipe.Param) (restpipe.QueryResponse[GeminiModel], error) {
	return restpipe.List[GeminiModel](ctx, g.models, "{ver}/models", params...)
}
