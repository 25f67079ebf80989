package models

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBedrockAPI struct {
	mock.Mock
}

func (m *mockBedrockAPI) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bedrockruntime.ConverseOutput), args.Error(1)
}

func (m *mockBedrockAPI) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bedrockruntime.InvokeModelOutput), args.Error(1)
}

func TestBedrockChat(t *testing.T) {
	api := &mockBedrockAPI{}
	var captured *bedrockruntime.ConverseInput
	api.On("Converse", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*bedrockruntime.ConverseInput)
		}).
		Return(&bedrockruntime.ConverseOutput{
			Output: &types.ConverseOutputMemberMessage{
				Value: types.Message{
					Role:    types.ConversationRoleAssistant,
					Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "hello there"}},
				},
			},
		}, nil)

	client := NewBedrockClient(api, "", "")
	answer, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", answer)

	require.NotNil(t, captured)
	assert.Equal(t, defaultBedrockModel, *captured.ModelId)
	require.Len(t, captured.System, 1)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, types.ConversationRoleUser, captured.Messages[0].Role)
}

func TestBedrockChatNoMessages(t *testing.T) {
	client := NewBedrockClient(&mockBedrockAPI{}, "", "")
	_, err := client.Chat(context.Background(), []Message{{Role: "system", Content: "only system"}})
	assert.Error(t, err)
}

func TestBedrockEmbedTitan(t *testing.T) {
	api := &mockBedrockAPI{}
	var captured *bedrockruntime.InvokeModelInput
	api.On("InvokeModel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*bedrockruntime.InvokeModelInput)
		}).
		Return(&bedrockruntime.InvokeModelOutput{
			Body: []byte(`{"embedding":[0.1,0.2,0.3]}`),
		}, nil)

	client := NewBedrockClient(api, "", "amazon.titan-embed-text-v2:0")
	embedding, err := client.EmbedText(context.Background(), "line one\nline two")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embedding)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured.Body, &body))
	assert.Equal(t, "line one line two", body["inputText"])
	assert.Equal(t, "amazon.titan-embed-text-v2:0", *captured.ModelId)
}

func TestBedrockEmbedCohere(t *testing.T) {
	api := &mockBedrockAPI{}
	var captured *bedrockruntime.InvokeModelInput
	api.On("InvokeModel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*bedrockruntime.InvokeModelInput)
		}).
		Return(&bedrockruntime.InvokeModelOutput{
			Body: []byte(`{"embeddings":[[0.5,0.6]]}`),
		}, nil)

	client := NewBedrockClient(api, "", "cohere.embed-english-v3")
	embedding, err := client.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6}, embedding)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured.Body, &body))
	assert.Equal(t, "search_document", body["input_type"])
	assert.Equal(t, []any{"hello"}, body["texts"])
}

func TestBedrockEmbedError(t *testing.T) {
	api := &mockBedrockAPI{}
	api.On("InvokeModel", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	client := NewBedrockClient(api, "", "")
	_, err := client.EmbedText(context.Background(), "hello")
	assert.ErrorContains(t, err, "throttled")
}
