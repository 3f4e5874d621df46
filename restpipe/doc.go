// Package restpipe is a backend-agnostic request pipeline for
// AI-provider HTTP APIs. Typed service objects perform CRUD-style
// operations (Create, Retrieve, Update, Patch, Delete, List, Cancel)
// against backends that differ in authentication placement, versioning
// scheme, pagination style, and streaming response format.
//
// # Architecture
//
// One logical call flows through five stages, strictly in order:
//
//   - Auto-parameter injection: API key, version and beta version are
//     placed into headers, path params, or the query string according to
//     the backend's Settings, before any network I/O.
//   - Route resolution: the endpoint template's {ver}, {0}, {1}, ... and
//     {method} tokens are expanded from the call's Params.
//   - Transport: connectivity probe, request construction, and a
//     bounded retry loop with cancellation at every suspension point.
//   - Response routing: content-type-driven dispatch to the
//     structured-text decoder or the binary persistence path.
//   - Stream normalization (streaming calls): fragmented provider
//     chunks are repaired and emitted as a channel of DeltaEvents.
//
// # Quick Start
//
//	client, _ := restpipe.New(restpipe.Settings{
//	    Name:             "openai",
//	    BaseURL:          "https://api.openai.com",
//	    Version:          "v1",
//	    KeyPlacement:     restpipe.PlacementHeader,
//	    VersionPlacement: restpipe.PlacementPath,
//	    APIKey:           restpipe.StaticKey(os.Getenv("OPENAI_API_KEY")),
//	})
//	svc := client.Service("models")
//
//	model, err := restpipe.Retrieve[Model](ctx, svc, "{ver}/models/{0}",
//	    restpipe.ID("gpt-4o"))
//
// Streaming calls return a channel of delta events:
//
//	events, err := restpipe.Stream(ctx, chat, "{ver}/chat/completions", body)
//	for ev := range events {
//	    if ev.IsError { ... }
//	    if ev.Done { break }
//	}
package restpipe
