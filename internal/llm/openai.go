package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/replyqueue/internal/logger"
)

const (
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
	DefaultOpenAIEmbedModel = "text-embedding-3-small"
	DefaultOpenAITextModel  = "gpt-4.1-mini"
)

// OpenAIClient calls the OpenAI embeddings and responses endpoints.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	embedModel string
	textModel  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIClient(apiKey, baseURL, embedModel, textModel string, log *zap.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if embedModel == "" {
		embedModel = DefaultOpenAIEmbedModel
	}
	if textModel == "" {
		textModel = DefaultOpenAITextModel
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		textModel:  textModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.OrNop(log),
	}
}

func (c *OpenAIClient) Name() string {
	return fmt.Sprintf("openai:%s/%s", c.embedModel, c.textModel)
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai status %d: %s", e.StatusCode, e.Message)
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", embeddingRequest{Model: c.embedModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Complete returns the trimmed text of the first output message. An empty
// answer is an error.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	var resp responsesResponse
	if err := c.post(ctx, "/responses", responsesRequest{Model: c.textModel, Input: prompt}, &resp); err != nil {
		return "", err
	}
	for _, item := range resp.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("openai response had no text output")
}

func (c *OpenAIClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("failed to read openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		msg := envelope.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug("openai error response", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode openai response: %w", err)
	}
	return nil
}
