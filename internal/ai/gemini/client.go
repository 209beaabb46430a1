package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/prep-brief/internal/ai"
	"github.com/spigell/prep-brief/internal/prep"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

// Models lists the models offered in interactive mode.
var Models = []string{DefaultModel, "gemini-2.5-pro", "gemini-2.5-flash-lite"}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Invoker sends prompts to the Gemini API.
type Invoker struct {
	models contentGenerator
}

// New creates an Invoker for the Gemini API backend. baseURL is optional.
func New(ctx context.Context, apiKey, baseURL string) (*Invoker, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Invoker{models: client.Models}, nil
}

// Invoke makes a single GenerateContent call. In split mode the system part is
// sent as the system instruction and JSON output is requested.
func (i *Invoker) Invoke(ctx context.Context, prompt prep.PromptPair, model string) (string, error) {
	if i == nil || i.models == nil {
		return "", errors.New("gemini invoker is not initialized")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	var (
		contents []*genai.Content
		config   *genai.GenerateContentConfig
	)
	switch prompt.Mode {
	case prep.ModeCombined:
		contents = genai.Text(prompt.Combined())
	default:
		contents = genai.Text(prompt.User)
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}},
			ResponseMIMEType:  "application/json",
		}
	}

	resp, err := i.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", ai.Classify(ProviderName, statusCode(err), err)
	}

	output := responseText(resp)
	if output == "" {
		return "", ai.Upstream(ProviderName, "empty response from model %s", model)
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
