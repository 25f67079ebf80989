package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/xiehust/mem0/restclient"
)

const (
	chatEndpoint      = "/v1/chat/completions"
	embeddingEndpoint = "/v1/embeddings"
)

var _ Interface = &OpenAIClient{}

// OpenAIClient talks to any OpenAI-compatible endpoint (OpenAI itself,
// LM Studio, vLLM and friends).
type OpenAIClient struct {
	rest            restclient.Interface
	cache           sync.Map
	model           string
	embeddingsModel string
	temperature     float64
	maxTokens       int
}

func NewOpenAIClient(rest restclient.Interface, model, embeddingsModel string) *OpenAIClient {
	return &OpenAIClient{
		rest:            rest,
		model:           model,
		embeddingsModel: embeddingsModel,
		temperature:     0.1,
		maxTokens:       2000,
	}
}

type chatRequestPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type embeddingRequestPayload struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	payload := chatRequestPayload{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var response chatResponse
	if err := c.sendAndParse(ctx, chatEndpoint, payload, &response, 3); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", errors.New("empty LLM response")
	}
	return response.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Load(text); ok {
		if embedding, ok2 := v.([]float32); ok2 {
			return embedding, nil
		}
	}
	if c.embeddingsModel == "" {
		return nil, errors.New("embeddings model is empty; configure OpenAIClient.embeddingsModel")
	}

	payload := embeddingRequestPayload{
		Model: c.embeddingsModel,
		Input: text,
	}
	var response embeddingResponse
	if err := c.sendAndParse(ctx, embeddingEndpoint, payload, &response, 3); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	embedding := response.Data[0].Embedding
	c.cache.Store(text, embedding)
	return embedding, nil
}

func (c *OpenAIClient) sendAndParse(ctx context.Context, endpoint string, payload any, out any, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if i > 0 {
			time.Sleep(time.Duration(100*(1<<uint(i))) * time.Millisecond)
		}

		body, status, err := c.rest.Post(ctx, endpoint, payload, nil)
		if err != nil {
			lastErr = err
			log.Printf("⚠️ model request attempt %d failed: http=%d err=%v", i+1, status, err)
			continue
		}
		if status != http.StatusOK {
			lastErr = fmt.Errorf("http %d: %s", status, string(body))
			log.Printf("⚠️ model request attempt %d failed: %v", i+1, lastErr)
			continue
		}
		if err = json.Unmarshal(body, out); err != nil {
			lastErr = fmt.Errorf("parse response: %w", err)
			log.Printf("⚠️ %v", lastErr)
			continue
		}
		return nil
	}

	return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}
