package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractJSONFragment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain object", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced json", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around object", raw: "Here you go:\n{\"a\":1}\nEnjoy!", want: `{"a":1}`},
		{name: "array payload", raw: "```\n[1,2,3]\n```", want: `[1,2,3]`},
		{name: "empty", raw: "   ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSONFragment(tc.raw); got != tc.want {
				t.Fatalf("ExtractJSONFragment() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGeminiCompleteReturnsCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`))
	}))
	defer srv.Close()

	client := NewGemini(GeminiOptions{APIKey: "test", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	got, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("Complete() = %q, want %q", got, "hello")
	}
}

func TestGeminiCompleteSurfacesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded"}}`))
	}))
	defer srv.Close()

	client := NewGemini(GeminiOptions{APIKey: "test", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Code = %d, want %d", statusErr.Code, http.StatusServiceUnavailable)
	}
	if !statusErr.Transient() {
		t.Fatalf("503 should be transient")
	}
}

func TestGeminiCompleteStructuredDecodesFencedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + "```json\\n{\\\"name\\\":\\\"x\\\"}\\n```" + `"}]}}]}`))
	}))
	defer srv.Close()

	client := NewGemini(GeminiOptions{APIKey: "test", BaseURL: srv.URL})
	var out struct {
		Name string `json:"name"`
	}
	if err := client.CompleteStructured(context.Background(), CompletionRequest{Prompt: "hi"}, &out); err != nil {
		t.Fatalf("CompleteStructured returned error: %v", err)
	}
	if out.Name != "x" {
		t.Fatalf("Name = %q, want %q", out.Name, "x")
	}
}

func TestGeminiEmbedReturnsVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-embedding-004:embedContent" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()

	client := NewGemini(GeminiOptions{APIKey: "test", BaseURL: srv.URL})
	vec, err := client.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("len(vec) = %d, want 3", len(vec))
	}
}

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{code: 400, want: false},
		{code: 404, want: false},
		{code: 408, want: true},
		{code: 429, want: true},
		{code: 500, want: true},
		{code: 503, want: true},
	}
	for _, tc := range tests {
		err := &StatusError{Provider: "test", Code: tc.code}
		if got := err.Transient(); got != tc.want {
			t.Fatalf("Transient(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
