package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoItemsGenerated     = errors.New("AI did not suggest any checklist items")
)

// ChatCompleter is the subset of the OpenAI client the suggester needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client ChatCompleter
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// NewAIServiceWithClient uses a prepared chat client.
func NewAIServiceWithClient(client ChatCompleter) *AIService {
	return &AIService{client: client}
}

// SuggestChecklist asks the model for checklist items for a task draft.
// Nothing is persisted; the caller decides which items to keep.
func (s *AIService) SuggestChecklist(ctx context.Context, title, description string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, ErrAIServiceNotConfigured
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apierrors.Validation("title", "Title is required")
	}

	prompt := fmt.Sprintf(`You help break tasks down into checklists.

Task title: %s
Task description: %s

Return a JSON array of at most %d short checklist item texts, for example:
["Draft outline", "Review with team"]

Return only the JSON array, with no other text.`, title, strings.TrimSpace(description), constants.MaxAISuggestedItems)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, apierrors.Classify("openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apierrors.Dependency("openai chat completion", errors.New("no response from OpenAI"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, apierrors.Dependency("parse AI response", err)
	}

	items := make([]string, 0, len(raw))
	for _, text := range raw {
		if text = strings.TrimSpace(text); text != "" {
			items = append(items, text)
		}
		if len(items) == constants.MaxAISuggestedItems {
			break
		}
	}
	if len(items) == 0 {
		return nil, ErrAINoItemsGenerated
	}
	return items, nil
}
