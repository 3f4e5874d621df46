package restpipe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAssemblerSplitArray(t *testing.T) {
	a := NewChunkAssembler(discardLogger())

	first := a.Normalize([]byte(`[{"a":1},`))
	if len(first) != 1 {
		t.Fatalf("expected 1 event from first chunk, got %d", len(first))
	}
	if first[0].Done {
		t.Error("non-terminal chunk must not carry Done")
	}
	if string(first[0].Payload) != `{"a":1}` {
		t.Errorf("payload = %s", first[0].Payload)
	}

	second := a.Normalize([]byte(`{"a":2}]`))
	if len(second) != 1 {
		t.Fatalf("expected 1 event from second chunk, got %d", len(second))
	}
	if !second[0].Done {
		t.Error("last element of the terminal chunk must carry Done")
	}
	if string(second[0].Payload) != `{"a":2}` {
		t.Errorf("payload = %s", second[0].Payload)
	}
}

func TestAssemblerWholeArray(t *testing.T) {
	a := NewChunkAssembler(discardLogger())
	events := a.Normalize([]byte(`[{"i":0},{"i":1},{"i":2}]`))
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events[:2] {
		if ev.Done {
			t.Errorf("event %d must not be terminal", i)
		}
	}
	if !events[2].Done {
		t.Error("only the last element carries Done")
	}
}

func TestAssemblerBareObject(t *testing.T) {
	a := NewChunkAssembler(discardLogger())
	events := a.Normalize([]byte(`{"delta":"hi"}`))
	if len(events) != 1 || events[0].Done {
		t.Fatalf("bare object must yield one non-terminal event, got %+v", events)
	}
}

func TestAssemblerLeadingComma(t *testing.T) {
	a := NewChunkAssembler(discardLogger())
	events := a.Normalize([]byte(`,{"delta":"mid"}`))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if string(events[0].Payload) != `{"delta":"mid"}` {
		t.Errorf("payload = %s", events[0].Payload)
	}
}

func TestAssemblerErrorChunkShortCircuits(t *testing.T) {
	a := NewChunkAssembler(discardLogger())
	events := a.Normalize([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if !events[0].IsError {
		t.Fatal("expected IsError")
	}
	if events[0].ErrorMessage != "quota exceeded" {
		t.Errorf("ErrorMessage = %q", events[0].ErrorMessage)
	}
	if events[0].Done || events[0].Payload != nil {
		t.Error("error chunk must suppress normal parsing")
	}
}

func TestAssemblerMalformedChunkSkipped(t *testing.T) {
	a := NewChunkAssembler(discardLogger())
	if events := a.Normalize([]byte(`{"broken": `)); events != nil {
		t.Fatalf("malformed chunk must be skipped, got %+v", events)
	}
	// The stream keeps working after a skipped chunk.
	events := a.Normalize([]byte(`{"ok":true}]`))
	if len(events) != 1 || !events[0].Done {
		t.Fatalf("assembler must recover after a malformed chunk, got %+v", events)
	}
}

func TestAssemblerEmptyChunk(t *testing.T) {
	a := NewChunkAssembler(discardLogger())
	if events := a.Normalize([]byte("  \n")); events != nil {
		t.Fatalf("expected no events, got %+v", events)
	}
}

func TestAssemblerUsageExtraction(t *testing.T) {
	a := NewChunkAssembler(discardLogger())
	events := a.Normalize([]byte(`{"delta":"x","usage":{"input_tokens":5,"output_tokens":7,"total_tokens":12}}]`))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Usage == nil || events[0].Usage.TotalTokens != 12 {
		t.Errorf("usage not extracted: %+v", events[0].Usage)
	}
}

func TestSSEReader(t *testing.T) {
	input := ": keep-alive\n" +
		"event: delta\n" +
		"data: {\"a\":1}\n" +
		"\n" +
		"data: {\"a\":2}\n" +
		"\n" +
		"data: [DONE]\n" +
		"\n"
	r := newSSEReader(strings.NewReader(input))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Event != "delta" || first.Data != `{"a":1}` {
		t.Errorf("first = %+v", first)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Data != `{"a":2}` {
		t.Errorf("second = %+v", second)
	}

	done, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Event != "[DONE]" {
		t.Errorf("expected the [DONE] sentinel, got %+v", done)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func streamService(t *testing.T, handler http.HandlerFunc) (*Service, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	c := testClient(t, Settings{Name: "test", BaseURL: server.URL})
	return c.Service("stream"), server.Close
}

func collect(t *testing.T, ch <-chan DeltaEvent) []DeltaEvent {
	t.Helper()
	var events []DeltaEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out collecting stream events")
		}
	}
}

func TestStreamSSE(t *testing.T) {
	svc, done := streamService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"delta\":\"he\"}\n\n")
		io.WriteString(w, "data: {\"delta\":\"llo\"}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})
	defer done()

	ch, err := Stream(context.Background(), svc, "v1/chat", map[string]string{"prompt": "hi"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Done || events[1].Done {
		t.Error("delta events must not be terminal")
	}
	if !events[2].Done {
		t.Error("expected a terminal event from [DONE]")
	}
}

func TestStreamChunkedArray(t *testing.T) {
	svc, done := streamService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		flusher := w.(http.Flusher)
		io.WriteString(w, `[{"text":"one"},`)
		flusher.Flush()
		time.Sleep(10 * time.Millisecond)
		io.WriteString(w, `{"text":"two"}]`)
	})
	defer done()

	ch, err := Stream(context.Background(), svc, "v1/generate", map[string]string{"prompt": "hi"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Done {
		t.Error("first event must not be terminal")
	}
	if !events[1].Done {
		t.Error("second event must be terminal")
	}
}

func TestStreamEmbeddedError(t *testing.T) {
	svc, done := streamService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"error\":{\"message\":\"overloaded\",\"type\":\"overloaded_error\"}}\n\n")
	})
	defer done()

	ch, err := Stream(context.Background(), svc, "v1/chat", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)
	if len(events) != 1 {
		t.Fatalf("expected exactly one error event, got %d: %+v", len(events), events)
	}
	if !events[0].IsError || events[0].ErrorMessage != "overloaded" {
		t.Errorf("got %+v", events[0])
	}
}

func TestStreamEndsWithoutTerminal(t *testing.T) {
	svc, done := streamService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"delta\":\"partial\"}\n\n")
		// Connection closes with no [DONE].
	})
	defer done()

	ch, err := Stream(context.Background(), svc, "v1/chat", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)
	if len(events) != 2 {
		t.Fatalf("expected delta + failure, got %+v", events)
	}
	last := events[len(events)-1]
	if !last.IsError || last.Done {
		t.Errorf("truncated stream must end in a failure, not a fabricated Done: %+v", last)
	}
}

func TestStreamTruncationFailureReachesSlowConsumer(t *testing.T) {
	// Exactly fill the event buffer before the truncation is noticed,
	// so the failure event can only arrive via a blocking hand-off.
	svc, done := streamService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 64; i++ {
			fmt.Fprintf(w, "data: {\"i\":%d}\n\n", i)
		}
		// Connection closes with no [DONE].
	})
	defer done()

	ch, err := Stream(context.Background(), svc, "v1/chat", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	time.Sleep(300 * time.Millisecond) // let the reader reach end of stream first
	events := collect(t, ch)
	if len(events) != 65 {
		t.Fatalf("expected 64 deltas + failure, got %d events", len(events))
	}
	last := events[len(events)-1]
	if !last.IsError || last.Done {
		t.Errorf("truncated stream must end in a failure event: %+v", last)
	}
	for _, ev := range events[:64] {
		if ev.Done || ev.IsError {
			t.Fatalf("unexpected terminal event before the failure: %+v", ev)
		}
	}
}

func TestStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	svc, done := streamService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"delta\":\"first\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	})
	defer done()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Stream(ctx, svc, "v1/chat", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	first := <-ch
	if first.IsError || first.Done {
		t.Fatalf("expected a plain delta first, got %+v", first)
	}
	cancel()

	sawDone := false
	for ev := range ch {
		if ev.Done {
			sawDone = true
		}
	}
	if sawDone {
		t.Error("cancellation must not produce a false terminal event")
	}
}

func TestStreamConnectFailureSurfaces(t *testing.T) {
	svc, done := streamService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"authentication_error"}}`)
	})
	defer done()

	_, err := Stream(context.Background(), svc, "v1/chat", nil)
	if _, ok := err.(*AuthenticationError); !ok {
		t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
	}
}
