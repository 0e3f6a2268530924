package llm

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
)

// Mock is a deterministic in-memory Client used in tests and keyless
// development runs. Responses are consumed in order; when the queue is empty
// Complete returns a stable filler derived from the prompt.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	EmbedDim  int
	Calls     []CompletionRequest
}

// Complete records the call and pops the next canned response.
func (m *Mock) Complete(_ context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		next := m.Responses[0]
		m.Responses = m.Responses[1:]
		return next, nil
	}
	sum := sha256.Sum256([]byte(req.System + "|" + req.Prompt))
	return fmt.Sprintf("mock-completion-%x", sum[:4]), nil
}

// CompleteStructured pops the next canned response and decodes it as JSON.
func (m *Mock) CompleteStructured(ctx context.Context, req CompletionRequest, out any) error {
	text, err := m.Complete(ctx, req)
	if err != nil {
		return err
	}
	return DecodeStructured(text, out)
}

// Embed returns a stable vector derived from the text.
func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	dim := m.EmbedDim
	if dim <= 0 {
		dim = 8
	}
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)]) / 255
	}
	return vec, nil
}

var _ Client = (*Mock)(nil)
