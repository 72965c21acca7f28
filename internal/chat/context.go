package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/recallstack/recall/internal/models"
)

// operatingInstructions is the static preamble injected ahead of every turn.
const operatingInstructions = `You are a helpful assistant with long-term memory of this conversation.
Use the relevant memories below when they apply to the user's question.
If the memories contradict each other, prefer the most recent one.
Do not mention the memory system itself unless asked about it.`

// buildContext assembles the context block injected into the LLM call:
// operating instructions, ranked memories with relevance and age, and a
// short window of recent messages for conversational continuity.
func buildContext(ranked []models.RetrievedMemory, recent []*models.Message) string {
	var b strings.Builder
	b.WriteString(operatingInstructions)

	if len(ranked) > 0 {
		b.WriteString("\n\nRelevant memories:\n")
		for _, m := range ranked {
			b.WriteString(fmt.Sprintf("- [%s] (relevance %.0f%%, %s) %s\n",
				strings.ToUpper(string(m.Type)),
				m.Similarity*100,
				formatTimestamp(m.CreatedAt),
				m.Content,
			))
		}
	}

	if len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, msg := range recent {
			b.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
		}
	}

	return b.String()
}

func formatTimestamp(unix int64) string {
	if unix == 0 {
		return "unknown time"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
