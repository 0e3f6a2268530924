package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIOptions controls how the OpenAI client is configured.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	EmbedModel string
	BaseURL    string
}

// OpenAI implements Client with the official openai-go SDK.
type OpenAI struct {
	client     openai.Client
	model      string
	embedModel string
}

// NewOpenAI constructs an OpenAI completion client.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	embedModel := strings.TrimSpace(opts.EmbedModel)
	if embedModel == "" {
		embedModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAI{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		embedModel: embedModel,
	}, nil
}

// Complete invokes the chat completions API and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// CompleteStructured asks for JSON and decodes the payload into out.
func (o *OpenAI) CompleteStructured(ctx context.Context, req CompletionRequest, out any) error {
	if !strings.Contains(strings.ToLower(req.System+req.Prompt), "json") {
		req.System = strings.TrimSpace(req.System + " Respond strictly with valid JSON.")
	}
	text, err := o.Complete(ctx, req)
	if err != nil {
		return err
	}
	return DecodeStructured(text, out)
}

// Embed returns the embedding vector for the text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// wrapOpenAIError converts SDK API errors to StatusError so the retry
// executor can classify them.
func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: "openai", Code: apiErr.StatusCode, Body: apiErr.Message}
	}
	return err
}

var _ Client = (*OpenAI)(nil)
