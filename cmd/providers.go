package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spigell/prep-brief/internal/ai/anthropic"
	"github.com/spigell/prep-brief/internal/ai/gemini"
	"github.com/spigell/prep-brief/internal/ai/openai"
	"github.com/spigell/prep-brief/internal/prep"
	"github.com/spigell/prep-brief/internal/secrets"
)

const defaultProvider = openai.ProviderName

type provider struct {
	name         string
	keyEnv       string
	defaultModel string
	models       []string
	build        func(ctx context.Context, apiKey, baseURL string) (prep.Invoker, error)
}

var providers = map[string]provider{
	openai.ProviderName: {
		name:         openai.ProviderName,
		keyEnv:       "OPENAI_API_KEY",
		defaultModel: openai.DefaultModel,
		models:       openai.Models,
		build: func(_ context.Context, apiKey, baseURL string) (prep.Invoker, error) {
			inv, err := openai.New(apiKey, baseURL)
			if err != nil {
				return nil, err
			}
			return inv, nil
		},
	},
	gemini.ProviderName: {
		name:         gemini.ProviderName,
		keyEnv:       "GEMINI_API_KEY",
		defaultModel: gemini.DefaultModel,
		models:       gemini.Models,
		build: func(ctx context.Context, apiKey, baseURL string) (prep.Invoker, error) {
			inv, err := gemini.New(ctx, apiKey, baseURL)
			if err != nil {
				return nil, err
			}
			return inv, nil
		},
	},
	anthropic.ProviderName: {
		name:         anthropic.ProviderName,
		keyEnv:       "ANTHROPIC_API_KEY",
		defaultModel: anthropic.DefaultModel,
		models:       anthropic.Models,
		build: func(_ context.Context, apiKey, baseURL string) (prep.Invoker, error) {
			inv, err := anthropic.New(apiKey, baseURL)
			if err != nil {
				return nil, err
			}
			return inv, nil
		},
	},
}

func lookupProvider(name string) (provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = defaultProvider
	}

	p, ok := providers[name]
	if !ok {
		known := make([]string, 0, len(providers))
		for k := range providers {
			known = append(known, k)
		}
		slices.Sort(known)
		return provider{}, fmt.Errorf("unsupported ai provider %q (want one of %s)", name, strings.Join(known, ", "))
	}

	return p, nil
}

// invokerFactory builds the model invoker for a resolved AI config.
type invokerFactory func(ctx context.Context, cfg AIConfig) (prep.Invoker, error)

func newInvoker(ctx context.Context, cfg AIConfig) (prep.Invoker, error) {
	p, err := lookupProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  p.name + " api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   p.keyEnv,
	})
	if err != nil {
		return nil, err
	}

	return p.build(ctx, apiKey, cfg.BaseURL)
}
