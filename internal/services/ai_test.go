package services

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
)

type fakeCompleter struct {
	content string
	err     error
	request openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = request
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content}},
		},
	}, nil
}

func TestSuggestChecklist(t *testing.T) {
	fake := &fakeCompleter{content: "```json\n[\"Draft outline\", \"  \", \"Review with team\"]\n```"}
	service := NewAIServiceWithClient(fake)

	items, err := service.SuggestChecklist(context.Background(), "Write proposal", "For the Q3 budget")
	require.NoError(t, err)
	assert.Equal(t, []string{"Draft outline", "Review with team"}, items)
	assert.Contains(t, fake.request.Messages[0].Content, "Write proposal")
}

func TestSuggestChecklist_Failures(t *testing.T) {
	var unconfigured *AIService
	_, err := unconfigured.SuggestChecklist(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)

	service := NewAIServiceWithClient(&fakeCompleter{content: "[]"})
	_, err = service.SuggestChecklist(context.Background(), "", "")
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	_, err = service.SuggestChecklist(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrAINoItemsGenerated)

	service = NewAIServiceWithClient(&fakeCompleter{content: "sure, here you go"})
	_, err = service.SuggestChecklist(context.Background(), "x", "")
	assert.ErrorIs(t, err, apierrors.ErrDependency)

	service = NewAIServiceWithClient(&fakeCompleter{err: errConnRefused})
	_, err = service.SuggestChecklist(context.Background(), "x", "")
	assert.ErrorIs(t, err, apierrors.ErrDependency)
}
