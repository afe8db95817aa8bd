package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Supported providers.
const (
	ProviderAzure      = "azure"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// DefaultModel is used when GeneratorConfig.Model is empty.
const DefaultModel = "gpt-4o"

const (
	defaultOpenRouterBase  = "https://openrouter.ai/api/v1"
	defaultAzureAPIVersion = "2024-02-01"
)

var (
	// ErrUnsupportedProvider is returned for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
	// ErrMissingAPIKey is returned when the provider's key is not configured.
	ErrMissingAPIKey = errors.New("API key not configured")
)

// GeneratorConfig selects and configures the chat completion backend. Empty fields
// are filled from the provider's environment variables.
type GeneratorConfig struct {
	Provider    string
	Model       string
	Temperature float32
	Endpoint    string // Azure endpoint or OpenAI-compatible base URL
	APIVersion  string // Azure only
	APIKey      string

	// Getenv overrides os.Getenv, mainly for tests.
	Getenv func(string) string
}

func (c GeneratorConfig) env(key string) string {
	if c.Getenv != nil {
		return c.Getenv(key)
	}
	return os.Getenv(key)
}

// OpenAIGenerator talks to an OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
}

// NewOpenAIGenerator builds a client for cfg.Provider.
//
//   - azure: AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, OPENAI_API_VERSION; the model
//     name is used as deployment name
//   - openrouter: OPENROUTER_API_KEY, OPENROUTER_API_BASE
//   - openai: OPENAI_API_KEY, optional Endpoint for compatible servers
func NewOpenAIGenerator(cfg GeneratorConfig) (*OpenAIGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAzure
	}

	var clientCfg openai.ClientConfig
	switch provider {
	case ProviderAzure:
		key := firstNonEmpty(cfg.APIKey, cfg.env("AZURE_OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: set AZURE_OPENAI_API_KEY", ErrMissingAPIKey)
		}
		endpoint := firstNonEmpty(cfg.Endpoint, cfg.env("AZURE_OPENAI_ENDPOINT"))
		if endpoint == "" {
			return nil, errors.New("azure endpoint not configured: set AZURE_OPENAI_ENDPOINT")
		}
		clientCfg = openai.DefaultAzureConfig(key, endpoint)
		clientCfg.APIVersion = firstNonEmpty(cfg.APIVersion, cfg.env("OPENAI_API_VERSION"), defaultAzureAPIVersion)

	case ProviderOpenRouter:
		key := firstNonEmpty(cfg.APIKey, cfg.env("OPENROUTER_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: set OPENROUTER_API_KEY", ErrMissingAPIKey)
		}
		clientCfg = openai.DefaultConfig(key)
		clientCfg.BaseURL = firstNonEmpty(cfg.Endpoint, cfg.env("OPENROUTER_API_BASE"), defaultOpenRouterBase)

	case ProviderOpenAI:
		key := firstNonEmpty(cfg.APIKey, cfg.env("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
		}
		clientCfg = openai.DefaultConfig(key)
		if cfg.Endpoint != "" {
			clientCfg.BaseURL = cfg.Endpoint
		}

	default:
		return nil, fmt.Errorf("%w: %s (expected azure, openrouter or openai)", ErrUnsupportedProvider, cfg.Provider)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	// The request omits a zero temperature and providers then use their own default
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	slog.Info("initializing LLM client", "provider", provider, "model", model)
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		provider:    provider,
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	slog.Debug("requesting chat completion", "provider", g.provider, "model", g.model, "messages", len(messages))
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion failed: %w", g.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", g.provider)
	}

	slog.Debug("chat completion received", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
