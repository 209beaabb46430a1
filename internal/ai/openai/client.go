package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/spigell/prep-brief/internal/ai"
	"github.com/spigell/prep-brief/internal/prep"
)

const (
	ProviderName = "openai"
	DefaultModel = "gpt-4o-mini"

	temperature = 0.2
)

// Models lists the models offered in interactive mode.
var Models = []string{DefaultModel, "gpt-4o", "gpt-4.1-mini", "gpt-4.1"}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Invoker sends prompts to an OpenAI compatible chat completions endpoint.
type Invoker struct {
	client chatCompleter
}

// New creates an Invoker. baseURL is optional and points the client at any
// OpenAI compatible server.
func New(apiKey, baseURL string) (*Invoker, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	return &Invoker{client: openai.NewClientWithConfig(cfg)}, nil
}

// Invoke makes a single chat completion call. Split mode sends a system and a
// user message and asks for a JSON object.
func (i *Invoker) Invoke(ctx context.Context, prompt prep.PromptPair, model string) (string, error) {
	if i == nil || i.client == nil {
		return "", errors.New("openai invoker is not initialized")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
	}
	switch prompt.Mode {
	case prep.ModeCombined:
		req.Messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt.Combined()},
		}
	default:
		req.Messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		}
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := i.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", ai.Classify(ProviderName, statusCode(err), err)
	}

	if len(resp.Choices) == 0 {
		return "", ai.Upstream(ProviderName, "no choices in response from model %s", model)
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", ai.Upstream(ProviderName, "empty response from model %s (finish reason %q)", model, resp.Choices[0].FinishReason)
	}

	return output, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
