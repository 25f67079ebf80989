package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	defaultBedrockModel          = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	defaultBedrockEmbeddingModel = "amazon.titan-embed-text-v2:0"

	defaultTemperature = float32(0.1)
	defaultMaxTokens   = int32(2000)
	defaultTopP        = float32(0.9)
)

// BedrockAPI is the slice of the Bedrock runtime client used here.
type BedrockAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

var _ Interface = &BedrockClient{}

// BedrockClient adapts the Bedrock Converse and InvokeModel APIs to the
// models interface. Chat goes through Converse; embeddings go through
// InvokeModel with a provider-specific request body.
type BedrockClient struct {
	api            BedrockAPI
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int32
	topP           float32
}

func NewBedrockClient(api BedrockAPI, model, embeddingModel string) *BedrockClient {
	if model == "" {
		model = defaultBedrockModel
	}
	if embeddingModel == "" {
		embeddingModel = defaultBedrockEmbeddingModel
	}
	return &BedrockClient{
		api:            api,
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    defaultTemperature,
		maxTokens:      defaultMaxTokens,
		topP:           defaultTopP,
	}
}

func (c *BedrockClient) Chat(ctx context.Context, messages []Message) (string, error) {
	var converseMessages []types.Message
	var system []types.SystemContentBlock

	for _, message := range messages {
		switch strings.ToLower(message.Role) {
		case "system":
			system = append(system, &types.SystemContentBlockMemberText{Value: message.Content})
		case "user":
			converseMessages = append(converseMessages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: message.Content}},
			})
		case "assistant":
			converseMessages = append(converseMessages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: message.Content}},
			})
		}
	}
	if len(converseMessages) == 0 {
		return "", errors.New("no user or assistant messages to send")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.model),
		Messages: converseMessages,
		System:   system,
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(c.temperature),
			MaxTokens:   aws.Int32(c.maxTokens),
			TopP:        aws.Float32(c.topP),
		},
	}

	output, err := c.api.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("converse: %w", err)
	}

	message, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("converse returned no message output")
	}

	var texts []string
	for _, block := range message.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			texts = append(texts, text.Value)
		}
	}
	return strings.Join(texts, " "), nil
}

func (c *BedrockClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	// Newlines degrade embedding quality on most providers.
	text = strings.ReplaceAll(text, "\n", " ")

	provider := strings.SplitN(c.embeddingModel, ".", 2)[0]
	var body map[string]any
	if provider == "cohere" {
		body = map[string]any{
			"texts":      []string{text},
			"input_type": "search_document",
		}
	} else {
		// Covers the common amazon.titan models.
		body = map[string]any{"inputText": text}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	output, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.embeddingModel),
		Body:        raw,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("invoke embedding model: %w", err)
	}

	if provider == "cohere" {
		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err = json.Unmarshal(output.Body, &response); err != nil {
			return nil, fmt.Errorf("parse embedding response: %w", err)
		}
		if len(response.Embeddings) == 0 {
			return nil, errors.New("no embedding returned")
		}
		return response.Embeddings[0], nil
	}

	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	if err = json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(response.Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return response.Embedding, nil
}
