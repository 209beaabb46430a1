package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/spigell/prep-brief/internal/ai"
	"github.com/spigell/prep-brief/internal/prep"
)

func newTestInvoker(t *testing.T, handler http.HandlerFunc) *Invoker {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	invoker, err := New("test-key", srv.URL+"/v1/")
	if err != nil {
		t.Fatalf("new invoker: %v", err)
	}
	return invoker
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
}

func TestInvokeSplitMode(t *testing.T) {
	t.Parallel()

	var got openai.ChatCompletionRequest
	invoker := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(w, " {\"role_summary\": \"ok\"} ")
	})

	output, err := invoker.Invoke(context.Background(), prep.PromptPair{Mode: prep.ModeSplit, System: "sys", User: "usr"}, "")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if output != `{"role_summary": "ok"}` {
		t.Fatalf("unexpected output %q", output)
	}

	if got.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != openai.ChatMessageRoleSystem || got.Messages[0].Content != "sys" ||
		got.Messages[1].Role != openai.ChatMessageRoleUser || got.Messages[1].Content != "usr" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected json_object response format, got %+v", got.ResponseFormat)
	}
}

func TestInvokeCombinedMode(t *testing.T) {
	t.Parallel()

	var got openai.ChatCompletionRequest
	invoker := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeCompletion(w, "Sure! {}")
	})

	output, err := invoker.Invoke(context.Background(), prep.PromptPair{Mode: prep.ModeCombined, User: "all in one"}, "gpt-4o")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if output != "Sure! {}" {
		t.Fatalf("unexpected output %q", output)
	}
	if got.Model != "gpt-4o" {
		t.Fatalf("unexpected model %q", got.Model)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "all in one" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if got.ResponseFormat != nil {
		t.Fatalf("did not expect a response format in combined mode")
	}
}

func TestInvokeErrors(t *testing.T) {
	t.Parallel()

	apiError := func(status int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error": {"message": "nope", "type": "invalid_request_error"}}`)
		}
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    error
		status  int
	}{
		{name: "unauthorized", handler: apiError(http.StatusUnauthorized), kind: ai.ErrAuthentication, status: http.StatusUnauthorized},
		{name: "rate limited", handler: apiError(http.StatusTooManyRequests), kind: ai.ErrRateLimit, status: http.StatusTooManyRequests},
		{name: "server error", handler: apiError(http.StatusInternalServerError), kind: ai.ErrUpstream, status: http.StatusInternalServerError},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"id": "x", "choices": []}`)
			},
			kind: ai.ErrUpstream,
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeCompletion(w, "  ")
			},
			kind: ai.ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			invoker := newTestInvoker(t, tt.handler)
			_, err := invoker.Invoke(context.Background(), prep.PromptPair{System: "s", User: "u"}, "")
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}

			var invokeErr *ai.InvokeError
			if !errors.As(err, &invokeErr) {
				t.Fatalf("expected *ai.InvokeError, got %T", err)
			}
			if invokeErr.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, invokeErr.StatusCode)
			}
		})
	}
}

func TestInvokeTimeout(t *testing.T) {
	t.Parallel()

	invoker := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := invoker.Invoke(ctx, prep.PromptPair{System: "s", User: "u"}, "")
	if !errors.Is(err, ai.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := New("", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
