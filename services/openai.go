// Package services contains thin, mechanical callers of the restpipe
// CRUD façade for the providers conduit ships profiles for. Each
// service owns its endpoint templates and response models; everything
// else (auth, versioning, retries, decoding, streaming) is the
// pipeline's job.
package services

import (
	"context"

	"github.com/martinemde/conduit/restpipe"
)

// OpenAI groups the OpenAI-style endpoints under one client.
type OpenAI struct {
	chat   *restpipe.Service
	models *restpipe.Service
	files  *restpipe.Service
	tuning *restpipe.Service
}

// NewOpenAI creates the OpenAI service set for a configured client.
func NewOpenAI(client *restpipe.Client) *OpenAI {
	return &OpenAI{
		chat:   client.Service("chat"),
		models: client.Service("models"),
		files:  client.Service("files"),
		tuning: client.Service("fine_tuning"),
	}
}

// ChatMessage is one message of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat completion request body.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletion is a blocking chat completion response.
type ChatCompletion struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Model   string          `json:"model"`
	Choices []ChatChoice    `json:"choices"`
	Usage   *restpipe.Usage `json:"usage,omitempty"`
}

// Model describes one available model.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// File describes one uploaded file.
type File struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	Bytes    int64  `json:"bytes"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
}

// FineTuningJob describes a fine-tuning job.
type FineTuningJob struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Model  string `json:"model"`
	Status string `json:"status"`
}

// Complete performs a blocking chat completion.
func (o *OpenAI) Complete(ctx context.Context, req ChatRequest) (ChatCompletion, error) {
	req.Stream = false
	return restpipe.Create[ChatCompletion](ctx, o.chat, "{ver}/chat/completions", req)
}

// StreamComplete performs a streaming chat completion and returns the
// normalized delta events.
func (o *OpenAI) StreamComplete(ctx context.Context, req ChatRequest) (<-chan restpipe.DeltaEvent, error) {
	req.Stream = true
	return restpipe.Stream(ctx, o.chat, "{ver}/chat/completions", req)
}

// ListModels returns every available model.
func (o *OpenAI) ListModels(ctx context.Context) ([]Model, error) {
	return restpipe.ListAll[Model](ctx, o.models, "{ver}/models")
}

// RetrieveModel fetches one model by id.
func (o *OpenAI) RetrieveModel(ctx context.Context, id string) (Model, error) {
	return restpipe.Retrieve[Model](ctx, o.models, "{ver}/models/{0}", restpipe.ID(id))
}

// DeleteModel removes a fine-tuned model.
func (o *OpenAI) DeleteModel(ctx context.Context, id string) (bool, error) {
	return restpipe.Delete(ctx, o.models, "{ver}/models/{0}", restpipe.ID(id))
}

// ListFiles returns one page of uploaded files.
func (o *OpenAI) ListFiles(ctx context.Context, params ...restpipe.Param) (restpipe.QueryResponse[File], error) {
	return restpipe.List[File](ctx, o.files, "{ver}/files", params...)
}

// DownloadFile persists a file's content to outputPath.
func (o *OpenAI) DownloadFile(ctx context.Context, id, outputPath string) (string, error) {
	return restpipe.Download(ctx, o.files, "{ver}/files/{0}/content", outputPath, restpipe.ID(id))
}

// DeleteFile removes an uploaded file.
func (o *OpenAI) DeleteFile(ctx context.Context, id string) (bool, error) {
	return restpipe.Delete(ctx, o.files, "{ver}/files/{0}", restpipe.ID(id))
}

// CreateFineTuningJob starts a fine-tuning job.
func (o *OpenAI) CreateFineTuningJob(ctx context.Context, body map[string]interface{}) (FineTuningJob, error) {
	return restpipe.Create[FineTuningJob](ctx, o.tuning, "{ver}/fine_tuning/jobs", body)
}

// CancelFineTuningJob cancels a running fine-tuning job.
func (o *OpenAI) CancelFineTuningJob(ctx context.Context, id string) (FineTuningJob, error) {
	return restpipe.Cancel[FineTuningJob](ctx, o.tuning, "{ver}/fine_tuning/jobs/{0}/cancel", restpipe.ID(id))
}
