package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/tropicaldog17/replyqueue/internal/logger"
)

const (
	DefaultGenAIEmbedModel = "gemini-embedding-001"
	DefaultGenAITextModel  = "gemini-2.5-flash"
)

// GenAIClient uses Google's Gemini API for both embeddings and completions.
type GenAIClient struct {
	client     *genai.Client
	embedModel string
	textModel  string
	logger     *zap.Logger
}

func NewGenAIClient(ctx context.Context, apiKey, embedModel, textModel string, log *zap.Logger) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if embedModel == "" {
		embedModel = DefaultGenAIEmbedModel
	}
	if textModel == "" {
		textModel = DefaultGenAITextModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIClient{client: client, embedModel: embedModel, textModel: textModel, logger: logger.OrNop(log)}, nil
}

// Embed uses the native batch endpoint; one vector per text, in order.
func (g *GenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("GenAI batch embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("GenAI returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

func (g *GenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("GenAI response had no text output")
	}
	return text, nil
}

func (g *GenAIClient) Name() string {
	return fmt.Sprintf("genai:%s/%s", g.embedModel, g.textModel)
}
