// Package content prepares raw conversation text for embedding: stripping
// leaked UI markup, optionally extracting key sentences, and chunking long
// passages. All transforms are pure and never fail; bad input degrades to
// empty output.
package content

import (
	"regexp"
	"strings"
)

// Options controls which transforms Process applies.
type Options struct {
	Clean        bool
	Extract      bool
	Chunk        bool
	MaxChunkSize int
}

const defaultMaxChunkSize = 1000

var (
	// Markup patterns that occasionally leak from the chat surface into
	// stored content.
	memoryCountRe = regexp.MustCompile(`(?i)\b\d+\s+memor(?:y|ies)\b`)
	similarityRe  = regexp.MustCompile(`(?i)similarity:?\s*\d+(?:\.\d+)?%?`)
	relevanceRe   = regexp.MustCompile(`(?i)relevance:?\s*\d+(?:\.\d+)?%?`)
	bracketTagRe  = regexp.MustCompile(`\[(?:memory|context|debug)[^\]]*\]`)

	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	newlinesRe   = regexp.MustCompile(`\n{3,}`)

	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
)

// importantWords marks sentences worth keeping during extraction.
var importantWords = []string{
	"because", "therefore", "important", "key", "main",
	"significant", "crucial", "essential",
}

// Process runs the configured transforms in order: clean, extract, chunk.
// With chunking disabled the result is a single-element slice. Empty input
// yields an empty slice.
func Process(text string, opts Options) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	out := text
	if opts.Clean {
		out = Clean(out)
	}
	if opts.Extract {
		out = ExtractKeySentences(out)
	}
	if out == "" {
		return nil
	}

	if opts.Chunk {
		max := opts.MaxChunkSize
		if max <= 0 {
			max = defaultMaxChunkSize
		}
		return Chunk(out, max)
	}
	return []string{out}
}

// Clean strips leaked UI markup and collapses whitespace. When cleaning
// removes more than 90% of an already-short input it returns the original
// trimmed text instead, so legitimately terse memories survive.
func Clean(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	out := memoryCountRe.ReplaceAllString(trimmed, "")
	out = similarityRe.ReplaceAllString(out, "")
	out = relevanceRe.ReplaceAllString(out, "")
	out = bracketTagRe.ReplaceAllString(out, "")

	out = whitespaceRe.ReplaceAllString(out, " ")
	out = newlinesRe.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	if len(trimmed) < 50 && len(out)*10 < len(trimmed) {
		return trimmed
	}
	return out
}

// ExtractKeySentences keeps questions, sentences carrying signal words, and
// short comma-free declaratives. Falls back to the full cleaned text when
// the retained portion drops below 30% of the original.
func ExtractKeySentences(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return ""
	}

	sentences := splitSentences(cleaned)
	if len(sentences) <= 1 {
		return cleaned
	}

	var kept []string
	for _, s := range sentences {
		if keepSentence(s) {
			kept = append(kept, s)
		}
	}

	retained := strings.Join(kept, " ")
	if len(retained) < len(cleaned)*30/100 {
		return cleaned
	}
	return retained
}

func keepSentence(s string) bool {
	if strings.HasSuffix(s, "?") {
		return true
	}
	lower := strings.ToLower(s)
	for _, w := range importantWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return len(s) < 100 && !strings.Contains(s, ",")
}

// Chunk splits text into segments no longer than max characters, preferring
// paragraph boundaries, then sentence boundaries, then hard slicing. Never
// returns an empty chunk for non-empty input.
func Chunk(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if max <= 0 {
		max = defaultMaxChunkSize
	}
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= max {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, chunkBySentence(para, max)...)
	}
	if len(chunks) == 0 {
		return []string{text[:max]}
	}
	return chunks
}

func chunkBySentence(text string, max int) []string {
	var chunks []string
	var current strings.Builder

	for _, s := range splitSentences(text) {
		if len(s) > max {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))
				current.Reset()
			}
			chunks = append(chunks, hardSlice(s, max)...)
			continue
		}
		if current.Len()+len(s)+1 > max {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

func hardSlice(text string, max int) []string {
	var chunks []string
	for len(text) > max {
		chunks = append(chunks, text[:max])
		text = text[max:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// splitSentences breaks text on terminal punctuation, keeping the
// punctuation attached to its sentence.
func splitSentences(text string) []string {
	var sentences []string
	bounds := sentenceBoundary.FindAllStringIndex(text, -1)
	start := 0
	for _, b := range bounds {
		s := strings.TrimSpace(text[start : b[0]+1])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = b[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
