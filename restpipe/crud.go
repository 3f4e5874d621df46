package restpipe

import (
	"context"
	"net/http"
)

// The generic CRUD façade. Each verb builds a descriptor, runs the
// pipeline (inject -> route -> transport -> decode), and returns an
// explicit typed result or error. A zero value is only ever returned
// together with a non-nil error, so callers can always distinguish
// failure from a legitimately empty result.

// Do runs a prepared descriptor through the pipeline and decodes the
// structured response into T.
func Do[T any](ctx context.Context, svc *Service, req *Request, params ...Param) (T, error) {
	var out T
	envelope, err := svc.client.send(ctx, svc, req, params)
	if err != nil {
		return out, err
	}
	if err := svc.client.decodeBody(envelope, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Create POSTs the body to the endpoint and decodes the created
// resource.
func Create[T any](ctx context.Context, svc *Service, endpoint string, body interface{}, params ...Param) (T, error) {
	req := NewRequest(http.MethodPost, endpoint)
	req.Body = body
	return Do[T](ctx, svc, req, params...)
}

// Retrieve GETs a single resource.
func Retrieve[T any](ctx context.Context, svc *Service, endpoint string, params ...Param) (T, error) {
	return Do[T](ctx, svc, NewRequest(http.MethodGet, endpoint), params...)
}

// Update POSTs a mutation to an existing resource. Most providers
// model updates as POST rather than PUT.
func Update[T any](ctx context.Context, svc *Service, endpoint string, body interface{}, params ...Param) (T, error) {
	req := NewRequest(http.MethodPost, endpoint)
	req.Body = body
	return Do[T](ctx, svc, req, params...)
}

// Patch applies a partial mutation.
func Patch[T any](ctx context.Context, svc *Service, endpoint string, body interface{}, params ...Param) (T, error) {
	req := NewRequest(http.MethodPatch, endpoint)
	req.Body = body
	return Do[T](ctx, svc, req, params...)
}

// Cancel POSTs to a cancellation endpoint and decodes the updated
// resource state.
func Cancel[T any](ctx context.Context, svc *Service, endpoint string, params ...Param) (T, error) {
	return Do[T](ctx, svc, NewRequest(http.MethodPost, endpoint), params...)
}

// deleteStatus matches the deletion acknowledgment most providers
// return.
type deleteStatus struct {
	Deleted bool `json:"deleted"`
}

// Delete issues a DELETE and reports whether the backend acknowledged
// the deletion: an empty 2xx body counts as deleted, a structured body
// must carry deleted=true.
func Delete(ctx context.Context, svc *Service, endpoint string, params ...Param) (bool, error) {
	envelope, err := svc.client.send(ctx, svc, NewRequest(http.MethodDelete, endpoint), params)
	if err != nil {
		return false, err
	}
	if len(envelope.Body) == 0 {
		return true, nil
	}
	var status deleteStatus
	if err := svc.client.decodeBody(envelope, &status); err != nil {
		return false, err
	}
	return status.Deleted, nil
}

// List GETs one page of a collection and unwraps the pagination
// envelope.
func List[T any](ctx context.Context, svc *Service, endpoint string, params ...Param) (QueryResponse[T], error) {
	envelope, err := svc.client.send(ctx, svc, NewRequest(http.MethodGet, endpoint), params)
	if err != nil {
		return QueryResponse[T]{}, err
	}
	return decodePage[T](svc.client, envelope)
}

// ListAll walks every page of a collection, advancing the backend's
// cursor parameter until the envelope reports no further pages. The
// cursor advances monotonically; a page repeating the previous cursor
// stops the walk rather than looping.
func ListAll[T any](ctx context.Context, svc *Service, endpoint string, params ...Param) ([]T, error) {
	var all []T
	cursor := ""
	for {
		pageParams := params
		if cursor != "" {
			pageParams = append(append([]Param{}, params...), Query(svc.client.settings.CursorParam, cursor))
		}
		page, err := List[T](ctx, svc, endpoint, pageParams...)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if !page.HasMore || page.NextCursor == "" || page.NextCursor == cursor {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// Stream opens a streaming call and returns the normalized delta
// events. The channel closes after the terminal event, an in-stream
// error, or cancellation.
func Stream(ctx context.Context, svc *Service, endpoint string, body interface{}, params ...Param) (<-chan DeltaEvent, error) {
	req := NewRequest(http.MethodPost, endpoint)
	req.Body = body
	return svc.client.openStream(ctx, svc, req, params)
}

// Download GETs a binary resource and persists it to outputPath,
// returning the final on-disk path.
func Download(ctx context.Context, svc *Service, endpoint, outputPath string, params ...Param) (string, error) {
	req := NewRequest(http.MethodGet, endpoint)
	req.OutputPath = outputPath
	envelope, err := svc.client.send(ctx, svc, req, params)
	if err != nil {
		return "", err
	}
	if !binaryContent(envelope.ContentType) && structuredContent(envelope.ContentType) {
		// Providers sometimes answer a download with a JSON error body.
		if message, code, raw, ok := extractErrorEnvelope(envelope.Body); ok {
			return "", &ProviderError{
				PipelineError: PipelineError{Message: firstNonEmpty(message, code)},
				Provider:      svc.client.settings.Name,
				StatusCode:    envelope.StatusCode,
				ErrorCode:     code,
				Raw:           raw,
			}
		}
	}
	return svc.client.persistBinary(envelope)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
