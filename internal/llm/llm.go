package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/replyqueue/internal/errors"
	"github.com/tropicaldog17/replyqueue/internal/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
)

// Client produces embeddings and single-turn text completions.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Complete(ctx context.Context, prompt string) (string, error)
	// Name is "provider:embedModel/textModel".
	Name() string
}

// Config selects and configures the language-model provider.
type Config struct {
	Provider string `yaml:"provider"`

	OpenAIKey        string `yaml:"-"`
	OpenAIBaseURL    string `yaml:"openai_base_url"`
	OpenAIEmbedModel string `yaml:"openai_embed_model"`
	OpenAITextModel  string `yaml:"openai_text_model"`

	GenAIKey        string `yaml:"-"`
	GenAIEmbedModel string `yaml:"genai_embed_model"`
	GenAITextModel  string `yaml:"genai_text_model"`
}

// New builds the client for cfg.Provider (OpenAI when unset).
func New(ctx context.Context, cfg Config, log *zap.Logger) (Client, error) {
	var (
		c   Client
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, &apperrors.ErrConfig{Key: "OPENAI_API_KEY", Message: "is required for the openai provider"}
		}
		c = NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel, cfg.OpenAITextModel, log)
	case ProviderGenAI:
		if cfg.GenAIKey == "" {
			return nil, &apperrors.ErrConfig{Key: "GENAI_API_KEY", Message: "is required for the genai provider"}
		}
		if c, err = NewGenAIClient(ctx, cfg.GenAIKey, cfg.GenAIEmbedModel, cfg.GenAITextModel, log); err != nil {
			return nil, err
		}
	default:
		return nil, &apperrors.ErrConfig{Key: "LLM_PROVIDER", Message: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
	logger.OrNop(log).Info("language model ready", zap.String("model", c.Name()))
	return c, nil
}
