package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

const geminiDefaultTimeout = 45 * time.Second

// GeminiOptions controls how the Gemini client is configured.
type GeminiOptions struct {
	APIKey     string
	Model      string
	EmbedModel string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Gemini implements Client over the generateContent and embedContent APIs.
type Gemini struct {
	apiKey     string
	model      string
	embedModel string
	baseURL    string
	client     *http.Client
	logger     *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewGemini constructs a Gemini completion client with sane defaults.
func NewGemini(opts GeminiOptions) *Gemini {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	embedModel := strings.TrimSpace(opts.EmbedModel)
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Gemini{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		embedModel: embedModel,
		baseURL:    baseURL,
		client:     client,
		logger:     logger,
	}
}

// Model returns the configured completion model identifier.
func (g *Gemini) Model() string {
	return g.model
}

// Complete invokes generateContent and returns the first candidate text.
func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	payload := geminiGenerateRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:    req.Temperature,
			CandidateCount: 1,
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSONOutput {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	var response geminiGenerateResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(g.model))
	if err := g.invoke(ctx, path, payload, &response); err != nil {
		return "", err
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", ErrEmptyResponse
}

// CompleteStructured requests JSON output and decodes it into out.
func (g *Gemini) CompleteStructured(ctx context.Context, req CompletionRequest, out any) error {
	req.JSONOutput = true
	text, err := g.Complete(ctx, req)
	if err != nil {
		return err
	}
	return DecodeStructured(text, out)
}

// Embed returns the embedding vector for the text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := geminiEmbedRequest{
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}
	var response geminiEmbedResponse
	path := fmt.Sprintf("/models/%s:embedContent", url.PathEscape(g.embedModel))
	if err := g.invoke(ctx, path, payload, &response); err != nil {
		return nil, err
	}
	if len(response.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return response.Embedding.Values, nil
}

func (g *Gemini) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := g.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("x-goog-api-key", g.apiKey)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail := ""
		var apiErr geminiErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			detail = apiErr.Error.Message
		} else {
			detail = strings.TrimSpace(string(raw))
		}
		return &StatusError{Provider: "gemini", Code: resp.StatusCode, Body: detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}

	g.logger.Debug().
		Str("model", g.model).
		Str("path", path).
		Dur("elapsed_ms", time.Since(start)).
		Msg("llm: gemini call completed")
	return nil
}

var _ Client = (*Gemini)(nil)
