package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompleter generates responses via the OpenAI chat completions API.
type OpenAICompleter struct {
	client       *openai.Client
	defaultModel string
}

func NewOpenAICompleter(apiKey, defaultModel string) *OpenAICompleter {
	return &OpenAICompleter{
		client:       openai.NewClient(apiKey),
		defaultModel: defaultModel,
	}
}

// Complete sends the context as a system message and the prompt as the user
// message, returning the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt, contextText, modelID string) (string, error) {
	model := modelID
	if model == "" {
		model = c.defaultModel
	}

	var messages []openai.ChatCompletionMessage
	if contextText != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: contextText,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: provider returned no choices", ErrCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}
