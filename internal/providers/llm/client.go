package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CompletionRequest describes one model invocation.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	JSONOutput  bool
}

// Client is the completion capability used by the pipeline stages.
type Client interface {
	// Complete returns the raw text of the model response.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// CompleteStructured requests JSON output and unmarshals it into out,
	// tolerating code fences and prose around the payload.
	CompleteStructured(ctx context.Context, req CompletionRequest, out any) error
	// Embed returns an embedding vector for the text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// StatusError carries the HTTP status of a failed provider call so retry
// policies can separate transient from fatal failures.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s status %d: %s", e.Provider, e.Code, e.Body)
	}
	return fmt.Sprintf("%s status %d", e.Provider, e.Code)
}

// Transient reports whether the failure is worth retrying.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code >= http.StatusInternalServerError
}

// ErrEmptyResponse is returned when a provider answers without content.
var ErrEmptyResponse = errors.New("llm: empty response")

// DecodeStructured extracts a JSON payload from raw model text and unmarshals
// it into out. Models routinely wrap JSON in markdown fences or commentary;
// the fragment between the outermost braces is what gets decoded.
func DecodeStructured(raw string, out any) error {
	cleaned := ExtractJSONFragment(raw)
	if cleaned == "" {
		return fmt.Errorf("llm: no json payload in response")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("llm: decode payload: %w", err)
	}
	return nil
}

// ExtractJSONFragment strips code fences and surrounding prose, returning the
// substring between the first opening and last closing bracket.
func ExtractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
