// Package llm holds the completion contract and its provider clients.
package llm

import (
	"context"
	"errors"
)

// ErrCompletion wraps any provider failure so callers can classify it.
var ErrCompletion = errors.New("completion failed")

// Completer is the narrow contract the chat service consumes. The context
// text is injected ahead of the prompt; modelID selects the provider model.
type Completer interface {
	Complete(ctx context.Context, prompt, contextText, modelID string) (string, error)
}
