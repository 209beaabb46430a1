package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spigell/prep-brief/internal/ai"
	"github.com/spigell/prep-brief/internal/prep"
)

const (
	ProviderName = "anthropic"
	DefaultModel = "claude-sonnet-4-5"

	maxTokens = 4096
)

// Models lists the models offered in interactive mode.
var Models = []string{DefaultModel, "claude-haiku-4-5", "claude-opus-4-1"}

type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Invoker sends prompts to the Anthropic Messages API.
type Invoker struct {
	messages messageCreator
}

// New creates an Invoker with SDK retries disabled. baseURL is optional.
func New(apiKey, baseURL string) (*Invoker, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(opts...)
	return &Invoker{messages: &client.Messages}, nil
}

// Invoke makes a single Messages call. Split mode puts the system part in the
// system field.
func (i *Invoker) Invoke(ctx context.Context, prompt prep.PromptPair, model string) (string, error) {
	if i == nil || i.messages == nil {
		return "", errors.New("anthropic invoker is not initialized")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
	}
	switch prompt.Mode {
	case prep.ModeCombined:
		params.Messages = []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.Combined())),
		}
	default:
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
		params.Messages = []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		}
	}

	msg, err := i.messages.New(ctx, params)
	if err != nil {
		return "", ai.Classify(ProviderName, statusCode(err), err)
	}

	var builder strings.Builder
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	output := builder.String()
	if output == "" {
		return "", ai.Upstream(ProviderName, "empty response from model %s (stop reason %q)", model, msg.StopReason)
	}

	return output, nil
}

func statusCode(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
