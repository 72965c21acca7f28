package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 2048

// AnthropicCompleter generates responses via the Anthropic messages API.
type AnthropicCompleter struct {
	client       *anthropic.Client
	defaultModel string
}

func NewAnthropicCompleter(apiKey, defaultModel string) *AnthropicCompleter {
	cl := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCompleter{
		client:       &cl,
		defaultModel: defaultModel,
	}
}

// Complete sends the context as the system prompt and the user prompt as a
// single message, concatenating any text blocks in the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt, contextText, modelID string) (string, error) {
	model := modelID
	if model == "" {
		model = c.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(anthropicMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if contextText != "" {
		params.System = []anthropic.TextBlockParam{{Text: contextText}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: provider returned no text content", ErrCompletion)
	}
	return b.String(), nil
}
